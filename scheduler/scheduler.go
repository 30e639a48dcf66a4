package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"deal-underwriter/domain"
)

// Jobs is the slice of the analysis service the scheduler drives.
type Jobs interface {
	RefreshMarketData(ctx context.Context, limit int) (int, error)
	DashboardStats(ctx context.Context) (domain.DashboardStats, error)
}

type Config struct {
	MarketRefreshCron string
	StatsCron         string
	RefreshLimit      int
	JobTimeout        time.Duration
}

// Scheduler runs the periodic maintenance tasks.
type Scheduler struct {
	cron *cron.Cron
	jobs Jobs
	cfg  Config
	ctx  context.Context
	log  zerolog.Logger
}

func NewScheduler(ctx context.Context, jobs Jobs, cfg Config, log zerolog.Logger) *Scheduler {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		jobs: jobs,
		cfg:  cfg,
		ctx:  ctx,
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// RegisterAll registers the market refresh and stats tasks. An empty
// expression leaves that task disabled.
func (s *Scheduler) RegisterAll() error {
	if s.cfg.MarketRefreshCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.MarketRefreshCron, s.RunMarketRefreshNow); err != nil {
			return fmt.Errorf("register market refresh task: %w", err)
		}
	}
	if s.cfg.StatsCron != "" {
		if _, err := s.cron.AddFunc(s.cfg.StatsCron, s.RunStatsNow); err != nil {
			return fmt.Errorf("register stats task: %w", err)
		}
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("tasks", len(s.cron.Entries())).Msg("scheduler started")
}

// Stop waits for running tasks to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) RunMarketRefreshNow() {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.JobTimeout)
	defer cancel()

	start := time.Now()
	n, err := s.jobs.RefreshMarketData(ctx, s.cfg.RefreshLimit)
	if err != nil {
		s.log.Error().Err(err).Int("refreshed", n).Msg("market refresh failed")
		return
	}
	s.log.Info().Int("refreshed", n).Dur("elapsed", time.Since(start)).Msg("market data refreshed")
}

func (s *Scheduler) RunStatsNow() {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.JobTimeout)
	defer cancel()

	stats, err := s.jobs.DashboardStats(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("stats snapshot failed")
		return
	}
	s.log.Info().
		Int("deals_analyzed", stats.DealsAnalyzed).
		Int("passed_deals", stats.PassedDeals).
		Float64("avg_coc_return", stats.AvgCashOnCashReturn).
		Float64("avg_processing_time", stats.AvgProcessingTime).
		Msg("dashboard stats")
}
