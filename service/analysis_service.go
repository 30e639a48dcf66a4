package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"deal-underwriter/domain"
	"deal-underwriter/repository"
	"deal-underwriter/underwriting"
)

// MarketDataProvider supplies rent comparables and area data for an address.
type MarketDataProvider interface {
	FetchMarketData(ctx context.Context, address string) (domain.MarketData, error)
	Name() string
}

type AnalysisDefaults struct {
	DownPaymentPercent float64
	InterestRate       float64
	LoanTermYears      int
}

type AnalysisServiceConfig struct {
	Defaults AnalysisDefaults
	CacheTTL time.Duration
}

func DefaultAnalysisServiceConfig() AnalysisServiceConfig {
	return AnalysisServiceConfig{
		Defaults: AnalysisDefaults{
			DownPaymentPercent: DefaultDownPaymentPercent,
			InterestRate:       DefaultInterestRate,
			LoanTermYears:      DefaultLoanTermYears,
		},
		CacheTTL: DefaultResultsCacheTTL,
	}
}

type AnalysisService struct {
	repo   repository.DealRepository
	cache  *resultsCache
	market MarketDataProvider
	cfg    AnalysisServiceConfig
	log    zerolog.Logger
	now    func() time.Time
}

// NewAnalysisService wires the underwriting core to storage, the results
// cache and a market data provider.
func NewAnalysisService(
	repo repository.DealRepository,
	cache repository.CacheRepository,
	market MarketDataProvider,
	cfg AnalysisServiceConfig,
	log zerolog.Logger,
) *AnalysisService {
	log = log.With().Str("component", "analysis").Logger()
	return &AnalysisService{
		repo:   repo,
		cache:  newResultsCache(cache, cfg.CacheTTL, log),
		market: market,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

func (s *AnalysisService) CreateProperty(ctx context.Context, property domain.Property) (domain.Property, error) {
	if err := validateStruct(property); err != nil {
		return domain.Property{}, err
	}

	property.ID = uuid.NewString()
	property.CreatedAt = s.now().UTC()
	if err := s.repo.CreateProperty(ctx, property); err != nil {
		return domain.Property{}, fmt.Errorf("create property: %w", err)
	}
	return property, nil
}

func (s *AnalysisService) CreateDeal(ctx context.Context, input domain.NewDeal) (domain.Deal, error) {
	if err := validateStruct(input); err != nil {
		return domain.Deal{}, err
	}
	if _, err := s.repo.GetProperty(ctx, input.PropertyID); err != nil {
		return domain.Deal{}, fmt.Errorf("property %q: %w", input.PropertyID, err)
	}

	now := s.now().UTC()
	deal := domain.Deal{
		ID:         uuid.NewString(),
		PropertyID: input.PropertyID,
		Status:     domain.DealStatusAnalyzing,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.CreateDeal(ctx, deal); err != nil {
		return domain.Deal{}, fmt.Errorf("create deal: %w", err)
	}
	return deal, nil
}

// AnalyzeDeal runs the metrics, buy-box evaluation and recommendations for a
// deal and stores the outcome. A market data failure is logged and the
// analysis carries on without comparables.
func (s *AnalysisService) AnalyzeDeal(
	ctx context.Context,
	dealID string,
	req domain.AnalysisRequest,
) (domain.AnalysisResult, error) {

	start := s.now()

	deal, property, err := s.loadDeal(ctx, dealID)
	if err != nil {
		return domain.AnalysisResult{}, err
	}

	inputs, err := s.resolveInputs(ctx, dealID, req.Inputs)
	if err != nil {
		return domain.AnalysisResult{}, err
	}
	if err := validateStruct(inputs); err != nil {
		return domain.AnalysisResult{}, err
	}
	if err := validateStruct(req.BuyBox); err != nil {
		return domain.AnalysisResult{}, err
	}

	if err := s.repo.SaveBuyBox(ctx, dealID, req.BuyBox); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("save buy box: %w", err)
	}

	marketData := s.refreshComparables(ctx, dealID, property.Address)

	results := underwriting.CalculateMetrics(inputs)
	evaluation := underwriting.Evaluate(results, req.BuyBox, property)
	recommendations := underwriting.GenerateRecommendations(results, evaluation)

	elapsed := s.now().Sub(start).Seconds()

	deal.Status = domain.DealStatusFail
	if evaluation.Passed {
		deal.Status = domain.DealStatusPass
	}
	deal.DownPaymentPercent = inputs.DownPaymentPercent
	deal.Results = &results
	deal.Evaluation = &evaluation
	deal.Recommendations = recommendations
	deal.ProcessingTimeSeconds = elapsed
	deal.UpdatedAt = s.now().UTC()

	if err := s.repo.UpdateDeal(ctx, deal); err != nil {
		return domain.AnalysisResult{}, fmt.Errorf("update deal: %w", err)
	}
	s.InvalidateResults(ctx, dealID)

	s.log.Info().
		Str("deal_id", dealID).
		Str("status", string(deal.Status)).
		Float64("cash_on_cash", results.CashOnCashReturn).
		Float64("cap_rate", results.CapRate).
		Float64("dscr", results.DSCR).
		Strs("risk_flags", results.RiskFlags).
		Dur("elapsed", s.now().Sub(start)).
		Msg("deal analyzed")

	return domain.AnalysisResult{
		Deal:            deal,
		Property:        property,
		Results:         results,
		Evaluation:      evaluation,
		Recommendations: recommendations,
		MarketData:      marketData,
		ProcessingTime:  elapsed,
	}, nil
}

// DealResults returns the stored view of a deal, served from the cache when
// a fresh copy is present.
func (s *AnalysisService) DealResults(ctx context.Context, dealID string) (domain.DealResults, error) {
	if view, ok := s.cache.get(ctx, dealID); ok {
		return view, nil
	}

	gen := s.cache.generation(dealID)
	view, err := s.buildResults(ctx, dealID)
	if err != nil {
		return domain.DealResults{}, err
	}

	s.cache.store(ctx, dealID, gen, view)
	return view, nil
}

func (s *AnalysisService) ListDeals(ctx context.Context) ([]domain.DealWithProperty, error) {
	return s.dealsWithProperties(ctx, 0)
}

// RecentDeals returns up to limit deals, newest first. Out-of-range limits
// are clamped.
func (s *AnalysisService) RecentDeals(ctx context.Context, limit int) ([]domain.DealWithProperty, error) {
	if limit <= 0 {
		limit = DefaultRecentDeals
	}
	if limit > MaxRecentDeals {
		limit = MaxRecentDeals
	}
	return s.dealsWithProperties(ctx, limit)
}

func (s *AnalysisService) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	stats, err := s.repo.DashboardStats(ctx)
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("dashboard stats: %w", err)
	}
	return stats, nil
}

// RefreshMarketData re-fetches comparables for the most recent analyzed
// deals and returns how many were refreshed.
func (s *AnalysisService) RefreshMarketData(ctx context.Context, limit int) (int, error) {
	deals, err := s.repo.ListDeals(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list deals: %w", err)
	}

	refreshed := 0
	for _, deal := range deals {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		if deal.Status == domain.DealStatusAnalyzing {
			continue
		}

		property, err := s.repo.GetProperty(ctx, deal.PropertyID)
		if err != nil {
			s.log.Warn().Err(err).Str("deal_id", deal.ID).Msg("skipping market refresh")
			continue
		}
		if s.refreshComparables(ctx, deal.ID, property.Address) != nil {
			s.InvalidateResults(ctx, deal.ID)
			refreshed++
		}
	}
	return refreshed, nil
}

func (s *AnalysisService) loadDeal(ctx context.Context, dealID string) (domain.Deal, domain.Property, error) {
	if err := checkID("deal", dealID); err != nil {
		return domain.Deal{}, domain.Property{}, err
	}

	deal, err := s.repo.GetDeal(ctx, dealID)
	if err != nil {
		return domain.Deal{}, domain.Property{}, fmt.Errorf("deal %q: %w", dealID, err)
	}
	property, err := s.repo.GetProperty(ctx, deal.PropertyID)
	if err != nil {
		return domain.Deal{}, domain.Property{}, fmt.Errorf("property %q: %w", deal.PropertyID, err)
	}
	return deal, property, nil
}

// resolveInputs fills omitted inputs from the configured defaults and, for
// income and expenses, from the latest T12 upload that carries them.
func (s *AnalysisService) resolveInputs(
	ctx context.Context,
	dealID string,
	in domain.AnalysisInputs,
) (domain.DealInputs, error) {

	d := s.cfg.Defaults
	inputs := domain.DealInputs{
		PurchasePrice:      in.PurchasePrice,
		DownPaymentPercent: valueOr(in.DownPaymentPercent, d.DownPaymentPercent),
		InterestRate:       valueOr(in.InterestRate, d.InterestRate),
		LoanTermYears:      valueOr(in.LoanTermYears, d.LoanTermYears),
	}

	gross, opex := in.GrossRentalIncome, in.OperatingExpenses
	if gross == nil || opex == nil {
		t12, err := s.latestT12(ctx, dealID)
		if err != nil {
			return domain.DealInputs{}, err
		}
		if gross == nil {
			gross = t12.GrossRentalIncome
		}
		if opex == nil {
			opex = t12.OperatingExpenses
		}
	}
	if gross == nil {
		return domain.DealInputs{}, fmt.Errorf("%w: grossRentalIncome is required when no T12 figures are on file", ErrInvalidInput)
	}
	if opex == nil {
		return domain.DealInputs{}, fmt.Errorf("%w: operatingExpenses is required when no T12 figures are on file", ErrInvalidInput)
	}
	inputs.GrossRentalIncome = *gross
	inputs.OperatingExpenses = *opex

	return inputs, nil
}

func (s *AnalysisService) latestT12(ctx context.Context, dealID string) (domain.ExtractedData, error) {
	docs, err := s.repo.ListDocuments(ctx, dealID)
	if err != nil {
		return domain.ExtractedData{}, fmt.Errorf("list documents: %w", err)
	}

	var merged domain.ExtractedData
	for _, doc := range docs {
		if doc.FileType != domain.DocumentTypeT12 {
			continue
		}
		if doc.ExtractedData.GrossRentalIncome != nil {
			merged.GrossRentalIncome = doc.ExtractedData.GrossRentalIncome
		}
		if doc.ExtractedData.OperatingExpenses != nil {
			merged.OperatingExpenses = doc.ExtractedData.OperatingExpenses
		}
	}
	return merged, nil
}

// refreshComparables fetches market data and replaces the deal's stored
// comparables. It returns nil when the provider fails.
func (s *AnalysisService) refreshComparables(ctx context.Context, dealID, address string) *domain.MarketData {
	data, err := s.market.FetchMarketData(ctx, address)
	if err != nil {
		s.log.Warn().Err(err).Str("deal_id", dealID).Str("provider", s.market.Name()).Msg("market data unavailable")
		return nil
	}

	comps := make([]domain.MarketComparable, 0, len(data.RentComps))
	for _, rc := range data.RentComps {
		comps = append(comps, domain.MarketComparable{
			ID:           uuid.NewString(),
			DealID:       dealID,
			PropertyName: rc.PropertyName,
			RentPerSqft:  rc.RentPerSqft,
			CapRate:      rc.CapRate,
			Source:       data.Source,
		})
	}
	if err := s.repo.ReplaceComparables(ctx, dealID, comps); err != nil {
		s.log.Warn().Err(err).Str("deal_id", dealID).Msg("failed to store comparables")
	}
	return &data
}

func (s *AnalysisService) buildResults(ctx context.Context, dealID string) (domain.DealResults, error) {
	deal, property, err := s.loadDeal(ctx, dealID)
	if err != nil {
		return domain.DealResults{}, err
	}

	view := domain.DealResults{Deal: deal, Property: property}

	buyBox, err := s.repo.GetBuyBox(ctx, dealID)
	switch {
	case err == nil:
		view.BuyBox = &buyBox
	case !errors.Is(err, repository.ErrNotFound):
		return domain.DealResults{}, fmt.Errorf("buy box: %w", err)
	}

	if view.MarketComps, err = s.repo.ListComparables(ctx, dealID); err != nil {
		return domain.DealResults{}, fmt.Errorf("comparables: %w", err)
	}
	if view.Documents, err = s.repo.ListDocuments(ctx, dealID); err != nil {
		return domain.DealResults{}, fmt.Errorf("documents: %w", err)
	}
	return view, nil
}

func (s *AnalysisService) dealsWithProperties(ctx context.Context, limit int) ([]domain.DealWithProperty, error) {
	deals, err := s.repo.ListDeals(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}

	properties := make(map[string]domain.Property)
	out := make([]domain.DealWithProperty, 0, len(deals))
	for _, deal := range deals {
		property, ok := properties[deal.PropertyID]
		if !ok {
			property, err = s.repo.GetProperty(ctx, deal.PropertyID)
			if err != nil {
				return nil, fmt.Errorf("property %q: %w", deal.PropertyID, err)
			}
			properties[deal.PropertyID] = property
		}
		out = append(out, domain.DealWithProperty{Deal: deal, Property: property})
	}
	return out, nil
}

// InvalidateResults drops the cached results view of a deal. Views being
// built concurrently are not cached afterwards.
func (s *AnalysisService) InvalidateResults(ctx context.Context, dealID string) {
	s.cache.invalidate(ctx, dealID)
}

func valueOr[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
