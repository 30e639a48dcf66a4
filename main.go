package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"deal-underwriter/config"
	"deal-underwriter/extractor"
	httpLayer "deal-underwriter/http"
	"deal-underwriter/logging"
	"deal-underwriter/market"
	"deal-underwriter/repository"
	"deal-underwriter/scheduler"
	"deal-underwriter/service"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// .env is optional; real environment variables still win.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("load config")
	}

	log := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dealRepo, err := openDealRepository(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("open storage")
	}
	defer dealRepo.Close()

	cache, closeCache := openCache(ctx, cfg, log)
	defer closeCache()

	provider := newMarketProvider(cfg, log)

	analysisService := service.NewAnalysisService(dealRepo, cache, provider, service.AnalysisServiceConfig{
		Defaults: service.AnalysisDefaults{
			DownPaymentPercent: cfg.Underwriting.DownPaymentPercent,
			InterestRate:       cfg.Underwriting.InterestRate,
			LoanTermYears:      cfg.Underwriting.LoanTermYears,
		},
		CacheTTL: cfg.Cache.TTL,
	}, log)
	documentService := service.NewDocumentService(dealRepo, analysisService, extractor.NewStatementExtractor(), log)

	rateLimiter := httpLayer.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, time.Minute, cfg.RateLimit.Burst)
	defer rateLimiter.Stop()

	router := httpLayer.NewRouter(httpLayer.Handlers{
		Deals:     httpLayer.NewDealHandler(analysisService),
		Documents: httpLayer.NewDocumentHandler(documentService),
	}, rateLimiter, log)

	sched := scheduler.NewScheduler(ctx, analysisService, scheduler.Config{
		MarketRefreshCron: cfg.Schedule.MarketRefreshCron,
		StatsCron:         cfg.Schedule.StatsCron,
		RefreshLimit:      cfg.Schedule.RefreshLimit,
	}, log)
	if err := sched.RegisterAll(); err != nil {
		log.Fatal().Err(err).Msg("register scheduled tasks")
	}
	sched.Start()
	defer sched.Stop()

	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		log.Error().Err(err).Msg("server failed")
		return
	case <-ctx.Done():
		log.Info().Msg("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}

	log.Info().Msg("server exited")
}

func openDealRepository(ctx context.Context, cfg *config.Config, log zerolog.Logger) (repository.DealRepository, error) {
	switch cfg.Storage.Driver {
	case "sqlite":
		return repository.NewSQLiteDealRepository(cfg.Storage.SQLitePath, log)
	case "postgres":
		return repository.NewPostgresDealRepository(ctx, cfg.Storage.PostgresURL, log)
	default:
		return repository.NewDealRepositoryMemory(), nil
	}
}

// openCache falls back to the in-process cache when Redis is unreachable.
func openCache(ctx context.Context, cfg *config.Config, log zerolog.Logger) (repository.CacheRepository, func()) {
	if cfg.Cache.Driver != "redis" {
		return repository.NewMemoryCache(), func() {}
	}

	redisCache := repository.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := redisCache.Ping(pingCtx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("redis unavailable, using memory cache")
		redisCache.Close()
		return repository.NewMemoryCache(), func() {}
	}
	return redisCache, func() { redisCache.Close() }
}

func newMarketProvider(cfg *config.Config, log zerolog.Logger) service.MarketDataProvider {
	if cfg.MarketData.Provider == "http" {
		return market.NewHTTPProvider(market.HTTPProviderConfig{
			BaseURL:    cfg.MarketData.BaseURL,
			APIKey:     cfg.MarketData.APIKey,
			Source:     cfg.MarketData.Source,
			Timeout:    cfg.MarketData.Timeout,
			RetryCount: cfg.MarketData.RetryCount,
		}, log)
	}
	return market.NewStaticProvider(nil)
}
