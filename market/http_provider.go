package market

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"deal-underwriter/domain"
)

const (
	defaultHTTPSource  = "comps-api"
	defaultHTTPTimeout = 10 * time.Second
	apiKeyHeader       = "X-API-Key"
)

type HTTPProviderConfig struct {
	BaseURL    string
	APIKey     string
	Source     string
	Timeout    time.Duration
	RetryCount int
}

// HTTPProvider fetches comparables, area insights and price trends from a
// comps API. Comparables are required; the other two are best-effort.
type HTTPProvider struct {
	client *resty.Client
	source string
	log    zerolog.Logger
}

func NewHTTPProvider(cfg HTTPProviderConfig, log zerolog.Logger) *HTTPProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultHTTPTimeout
	}
	if cfg.Source == "" {
		cfg.Source = defaultHTTPSource
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader(apiKeyHeader, cfg.APIKey)
	}

	return &HTTPProvider{
		client: client,
		source: cfg.Source,
		log:    log.With().Str("component", "market").Str("source", cfg.Source).Logger(),
	}
}

func (p *HTTPProvider) Name() string { return p.source }

func (p *HTTPProvider) FetchMarketData(ctx context.Context, address string) (domain.MarketData, error) {
	var (
		comps    []domain.RentComparable
		insights domain.AreaInsights
		trends   []domain.PriceTrend
		gotInfo  bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.get(gctx, "/comparables", address, &comps)
	})
	g.Go(func() error {
		if err := p.get(gctx, "/insights", address, &insights); err != nil {
			p.log.Warn().Err(err).Str("address", address).Msg("area insights unavailable")
			return nil
		}
		gotInfo = true
		return nil
	})
	g.Go(func() error {
		if err := p.get(gctx, "/trends", address, &trends); err != nil {
			p.log.Warn().Err(err).Str("address", address).Msg("price trends unavailable")
			trends = nil
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.MarketData{}, fmt.Errorf("fetch comparables: %w", err)
	}

	data := domain.MarketData{
		Source:      p.source,
		RentComps:   comps,
		PriceTrends: trends,
	}
	if gotInfo {
		data.AreaInsights = &insights
	}
	return data, nil
}

func (p *HTTPProvider) get(ctx context.Context, path, address string, out any) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("address", address).
		SetResult(out).
		Get(path)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode())
	}
	return nil
}
