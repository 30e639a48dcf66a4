package market

import (
	"context"

	"deal-underwriter/domain"
)

const StaticSource = "static"

// DefaultComparables is the fixed comparable set served when no list is
// configured.
var DefaultComparables = []domain.RentComparable{
	{PropertyName: "Oak Street Commons", Address: "456 Oak Street", RentPerSqft: 1.85, CapRate: ptr(5.8), Distance: 0.3},
	{PropertyName: "Riverside Place", Address: "789 River Road", RentPerSqft: 1.92, CapRate: ptr(6.1), Distance: 0.7},
	{PropertyName: "Downtown Lofts", Address: "321 Main Avenue", RentPerSqft: 2.15, CapRate: ptr(5.4), Distance: 1.2},
}

// StaticProvider returns the same market data for every address. It backs
// local development and tests where no comps API is reachable.
type StaticProvider struct {
	comps    []domain.RentComparable
	insights *domain.AreaInsights
}

func NewStaticProvider(comps []domain.RentComparable) *StaticProvider {
	if len(comps) == 0 {
		comps = DefaultComparables
	}
	return &StaticProvider{
		comps: comps,
		insights: &domain.AreaInsights{
			NeighborhoodScore: 82,
			SchoolRating:      8,
			CrimeIndex:        "Low",
			WalkScore:         74,
			UnemploymentRate:  3.4,
			MedianIncome:      64_000,
		},
	}
}

func (p *StaticProvider) Name() string { return StaticSource }

func (p *StaticProvider) FetchMarketData(ctx context.Context, address string) (domain.MarketData, error) {
	if err := ctx.Err(); err != nil {
		return domain.MarketData{}, err
	}

	comps := make([]domain.RentComparable, len(p.comps))
	copy(comps, p.comps)
	insights := *p.insights

	return domain.MarketData{
		Source:       StaticSource,
		RentComps:    comps,
		AreaInsights: &insights,
	}, nil
}

func ptr(v float64) *float64 { return &v }
