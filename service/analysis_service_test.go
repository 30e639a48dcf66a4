package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deal-underwriter/domain"
	"deal-underwriter/extractor"
	"deal-underwriter/market"
	"deal-underwriter/repository"
	"deal-underwriter/underwriting"
)

type MockMarketProvider struct {
	Calls      int
	ForceError bool
}

func (m *MockMarketProvider) Name() string { return "mock" }

func (m *MockMarketProvider) FetchMarketData(ctx context.Context, address string) (domain.MarketData, error) {
	m.Calls++
	if m.ForceError {
		return domain.MarketData{}, errors.New("provider down")
	}
	return market.NewStaticProvider(nil).FetchMarketData(ctx, address)
}

// steppingClock advances one second per reading so creation order is stable.
func steppingClock() func() time.Time {
	t := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

type fixture struct {
	repo     *repository.DealRepositoryMemory
	cache    *repository.MemoryCache
	provider *MockMarketProvider
	analysis *AnalysisService
	docs     *DocumentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:     repository.NewDealRepositoryMemory(),
		cache:    repository.NewMemoryCache(),
		provider: &MockMarketProvider{},
	}
	clock := steppingClock()
	f.analysis = NewAnalysisService(f.repo, f.cache, f.provider, DefaultAnalysisServiceConfig(), zerolog.Nop())
	f.analysis.now = clock
	f.docs = NewDocumentService(f.repo, f.analysis, extractor.NewStatementExtractor(), zerolog.Nop())
	f.docs.now = clock
	return f
}

func (f *fixture) newDeal(t *testing.T, yearBuilt int) domain.Deal {
	t.Helper()

	property, err := f.analysis.CreateProperty(context.Background(), domain.Property{
		Address:      "123 Harbor Way",
		PropertyType: domain.PropertyTypeMultifamily,
		YearBuilt:    &yearBuilt,
	})
	require.NoError(t, err)

	deal, err := f.analysis.CreateDeal(context.Background(), domain.NewDeal{PropertyID: property.ID})
	require.NoError(t, err)
	return deal
}

func float64Ptr(v float64) *float64 { return &v }

func scenarioBRequest() domain.AnalysisRequest {
	return domain.AnalysisRequest{
		Inputs: domain.AnalysisInputs{
			PurchasePrice:     3_850_000,
			GrossRentalIncome: float64Ptr(468_000),
			OperatingExpenses: float64Ptr(203_400),
		},
		BuyBox: domain.BuyBoxCriteria{
			MinCashOnCashReturn: 8,
			MinCapRate:          5.5,
			YearBuiltThreshold:  1980,
			TargetHoldPeriod:    5,
		},
	}
}

func TestCreateProperty_Invalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.analysis.CreateProperty(context.Background(), domain.Property{PropertyType: "Castle"})

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateDeal_UnknownProperty(t *testing.T) {
	f := newFixture(t)

	_, err := f.analysis.CreateDeal(context.Background(), domain.NewDeal{PropertyID: uuid.NewString()})

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreateDeal_StartsAnalyzing(t *testing.T) {
	f := newFixture(t)

	deal := f.newDeal(t, 1995)

	assert.Equal(t, domain.DealStatusAnalyzing, deal.Status)
	assert.NotEmpty(t, deal.ID)
}

func TestAnalyzeDeal_ScenarioB(t *testing.T) {
	f := newFixture(t)
	deal := f.newDeal(t, 1995)
	ctx := context.Background()

	result, err := f.analysis.AnalyzeDeal(ctx, deal.ID, scenarioBRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.DealStatusFail, result.Deal.Status)
	assert.False(t, result.Evaluation.Passed)
	require.Len(t, result.Evaluation.FailedCriteria, 1)
	assert.Contains(t, result.Evaluation.FailedCriteria[0], "Cash-on-Cash Return")
	assert.Equal(t, []string{underwriting.RecommendationRaiseCashOnCash, underwriting.RecommendationRiskFlags}, result.Recommendations)
	assert.Equal(t, 25.0, result.Deal.DownPaymentPercent)
	assert.InDelta(t, 4.7, result.Results.CashOnCashReturn, 0.5)
	require.NotNil(t, result.MarketData)
	assert.GreaterOrEqual(t, result.ProcessingTime, 0.0)

	stored, err := f.repo.GetDeal(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DealStatusFail, stored.Status)
	require.NotNil(t, stored.Results)
	assert.Equal(t, result.Results.CashOnCashReturn, stored.Results.CashOnCashReturn)

	comps, err := f.repo.ListComparables(ctx, deal.ID)
	require.NoError(t, err)
	assert.Len(t, comps, 3)

	buyBox, err := f.repo.GetBuyBox(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, 8.0, buyBox.MinCashOnCashReturn)
}

func TestAnalyzeDeal_Passes(t *testing.T) {
	f := newFixture(t)
	deal := f.newDeal(t, 1995)

	req := scenarioBRequest()
	req.BuyBox.MinCashOnCashReturn = 4

	result, err := f.analysis.AnalyzeDeal(context.Background(), deal.ID, req)
	require.NoError(t, err)

	assert.Equal(t, domain.DealStatusPass, result.Deal.Status)
	assert.Empty(t, result.Evaluation.FailedCriteria)
}

func TestAnalyzeDeal_ExplicitZeroRateIsKept(t *testing.T) {
	f := newFixture(t)
	deal := f.newDeal(t, 1995)

	req := scenarioBRequest()
	req.Inputs.InterestRate = float64Ptr(0)

	result, err := f.analysis.AnalyzeDeal(context.Background(), deal.ID, req)
	require.NoError(t, err)

	assert.InDelta(t, 96_250, result.Results.AnnualDebtService, 0.01)
}

func TestAnalyzeDeal_MarketFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.provider.ForceError = true
	deal := f.newDeal(t, 1995)

	result, err := f.analysis.AnalyzeDeal(context.Background(), deal.ID, scenarioBRequest())
	require.NoError(t, err)

	assert.Nil(t, result.MarketData)
	assert.Equal(t, 1, f.provider.Calls)
}

func TestAnalyzeDeal_MissingIncomeWithoutT12(t *testing.T) {
	f := newFixture(t)
	deal := f.newDeal(t, 1995)

	req := scenarioBRequest()
	req.Inputs.GrossRentalIncome = nil

	_, err := f.analysis.AnalyzeDeal(context.Background(), deal.ID, req)

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAnalyzeDeal_FallsBackToT12(t *testing.T) {
	f := newFixture(t)
	deal := f.newDeal(t, 1995)
	ctx := context.Background()

	_, err := f.docs.Upload(ctx, deal.ID, domain.DocumentTypeT12, "t12.csv", []byte("Gross Rental Income,468000\nTotal Operating Expenses,203400\n"))
	require.NoError(t, err)

	req := scenarioBRequest()
	req.Inputs.GrossRentalIncome = nil
	req.Inputs.OperatingExpenses = nil

	result, err := f.analysis.AnalyzeDeal(ctx, deal.ID, req)
	require.NoError(t, err)

	assert.Equal(t, 468_000.0, result.Results.GrossRentalIncome)
	assert.Equal(t, 203_400.0, result.Results.OperatingExpenses)
}

func TestAnalyzeDeal_InvalidPrice(t *testing.T) {
	f := newFixture(t)
	deal := f.newDeal(t, 1995)

	req := scenarioBRequest()
	req.Inputs.PurchasePrice = 0

	_, err := f.analysis.AnalyzeDeal(context.Background(), deal.ID, req)

	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAnalyzeDeal_UnknownDeal(t *testing.T) {
	f := newFixture(t)

	_, err := f.analysis.AnalyzeDeal(context.Background(), "not-a-uuid", scenarioBRequest())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = f.analysis.AnalyzeDeal(context.Background(), uuid.NewString(), scenarioBRequest())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDealResults_CachedUntilReanalyzed(t *testing.T) {
	f := newFixture(t)
	deal := f.newDeal(t, 1995)
	ctx := context.Background()

	first, err := f.analysis.DealResults(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DealStatusAnalyzing, first.Deal.Status)
	assert.Nil(t, first.BuyBox)

	_, cached := f.cache.Get(ctx, resultsCacheKey(deal.ID))
	assert.True(t, cached)

	_, err = f.analysis.AnalyzeDeal(ctx, deal.ID, scenarioBRequest())
	require.NoError(t, err)

	_, cached = f.cache.Get(ctx, resultsCacheKey(deal.ID))
	assert.False(t, cached)

	second, err := f.analysis.DealResults(ctx, deal.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DealStatusFail, second.Deal.Status)
	require.NotNil(t, second.BuyBox)
	assert.Len(t, second.MarketComps, 3)
}

// invalidatingRepo invalidates a deal's results while they are being built.
type invalidatingRepo struct {
	*repository.DealRepositoryMemory
	onListDocuments func(ctx context.Context, dealID string)
}

func (r *invalidatingRepo) ListDocuments(ctx context.Context, dealID string) ([]domain.DocumentUpload, error) {
	if r.onListDocuments != nil {
		r.onListDocuments(ctx, dealID)
	}
	return r.DealRepositoryMemory.ListDocuments(ctx, dealID)
}

func TestDealResults_NotCachedWhenInvalidatedDuringBuild(t *testing.T) {
	f := newFixture(t)
	deal := f.newDeal(t, 1995)
	ctx := context.Background()

	repo := &invalidatingRepo{DealRepositoryMemory: f.repo}
	analysis := NewAnalysisService(repo, f.cache, f.provider, DefaultAnalysisServiceConfig(), zerolog.Nop())
	repo.onListDocuments = func(ctx context.Context, dealID string) {
		repo.onListDocuments = nil
		analysis.InvalidateResults(ctx, dealID)
	}

	_, err := analysis.DealResults(ctx, deal.ID)
	require.NoError(t, err)

	_, cached := f.cache.Get(ctx, resultsCacheKey(deal.ID))
	assert.False(t, cached)

	_, err = analysis.DealResults(ctx, deal.ID)
	require.NoError(t, err)

	_, cached = f.cache.Get(ctx, resultsCacheKey(deal.ID))
	assert.True(t, cached)
}

func TestUpload_InvalidatesCachedResults(t *testing.T) {
	f := newFixture(t)
	deal := f.newDeal(t, 1995)
	ctx := context.Background()

	_, err := f.analysis.DealResults(ctx, deal.ID)
	require.NoError(t, err)
	before := f.analysis.cache.generation(deal.ID)

	_, err = f.docs.Upload(ctx, deal.ID, domain.DocumentTypeT12, "t12.csv",
		[]byte("Gross Rental Income,468000\nTotal Operating Expenses,203400\n"))
	require.NoError(t, err)

	_, cached := f.cache.Get(ctx, resultsCacheKey(deal.ID))
	assert.False(t, cached)
	assert.Equal(t, before+1, f.analysis.cache.generation(deal.ID))
}

func TestRecentDeals_NewestFirst(t *testing.T) {
	f := newFixture(t)
	older := f.newDeal(t, 1990)
	newer := f.newDeal(t, 2001)

	deals, err := f.analysis.RecentDeals(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, deals, 1)
	assert.Equal(t, newer.ID, deals[0].ID)
	assert.Equal(t, "123 Harbor Way", deals[0].Property.Address)

	all, err := f.analysis.ListDeals(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, older.ID, all[1].ID)
}

func TestDashboardStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	passing := scenarioBRequest()
	passing.BuyBox.MinCashOnCashReturn = 4

	_, err := f.analysis.AnalyzeDeal(ctx, f.newDeal(t, 1995).ID, passing)
	require.NoError(t, err)
	_, err = f.analysis.AnalyzeDeal(ctx, f.newDeal(t, 1995).ID, scenarioBRequest())
	require.NoError(t, err)
	f.newDeal(t, 1995)

	stats, err := f.analysis.DashboardStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.DealsAnalyzed)
	assert.Equal(t, 1, stats.PassedDeals)
	assert.InDelta(t, 4.7, stats.AvgCashOnCashReturn, 0.5)
}

func TestRefreshMarketData_SkipsUnanalyzedDeals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	analyzed := f.newDeal(t, 1995)
	_, err := f.analysis.AnalyzeDeal(ctx, analyzed.ID, scenarioBRequest())
	require.NoError(t, err)
	f.newDeal(t, 1995)

	refreshed, err := f.analysis.RefreshMarketData(ctx, 10)
	require.NoError(t, err)

	assert.Equal(t, 1, refreshed)
	assert.Equal(t, 2, f.provider.Calls)
}
