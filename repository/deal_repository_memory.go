package repository

import (
	"context"
	"sort"
	"sync"

	"deal-underwriter/domain"
)

// DealRepositoryMemory is an in-memory implementation of DealRepository.
type DealRepositoryMemory struct {
	mu          sync.RWMutex
	properties  map[string]domain.Property
	deals       map[string]domain.Deal
	buyBoxes    map[string]domain.BuyBoxCriteria
	documents   map[string][]domain.DocumentUpload
	comparables map[string][]domain.MarketComparable
}

// NewDealRepositoryMemory creates a new in-memory deal repository.
func NewDealRepositoryMemory() *DealRepositoryMemory {
	return &DealRepositoryMemory{
		properties:  make(map[string]domain.Property),
		deals:       make(map[string]domain.Deal),
		buyBoxes:    make(map[string]domain.BuyBoxCriteria),
		documents:   make(map[string][]domain.DocumentUpload),
		comparables: make(map[string][]domain.MarketComparable),
	}
}

func (r *DealRepositoryMemory) CreateProperty(_ context.Context, property domain.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.properties[property.ID] = property
	return nil
}

func (r *DealRepositoryMemory) GetProperty(_ context.Context, id string) (domain.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.properties[id]
	if !ok {
		return domain.Property{}, ErrNotFound
	}
	return p, nil
}

func (r *DealRepositoryMemory) CreateDeal(_ context.Context, deal domain.Deal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.deals[deal.ID] = cloneDeal(deal)
	return nil
}

func (r *DealRepositoryMemory) GetDeal(_ context.Context, id string) (domain.Deal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.deals[id]
	if !ok {
		return domain.Deal{}, ErrNotFound
	}
	return cloneDeal(d), nil
}

func (r *DealRepositoryMemory) UpdateDeal(_ context.Context, deal domain.Deal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.deals[deal.ID]; !ok {
		return ErrNotFound
	}
	r.deals[deal.ID] = cloneDeal(deal)
	return nil
}

func (r *DealRepositoryMemory) ListDeals(_ context.Context, limit int) ([]domain.Deal, error) {
	r.mu.RLock()
	deals := make([]domain.Deal, 0, len(r.deals))
	for _, d := range r.deals {
		deals = append(deals, cloneDeal(d))
	}
	r.mu.RUnlock()

	sort.Slice(deals, func(i, j int) bool {
		return deals[i].CreatedAt.After(deals[j].CreatedAt)
	})

	if limit > 0 && len(deals) > limit {
		deals = deals[:limit]
	}
	return deals, nil
}

func (r *DealRepositoryMemory) SaveBuyBox(_ context.Context, dealID string, criteria domain.BuyBoxCriteria) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buyBoxes[dealID] = criteria
	return nil
}

func (r *DealRepositoryMemory) GetBuyBox(_ context.Context, dealID string) (domain.BuyBoxCriteria, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.buyBoxes[dealID]
	if !ok {
		return domain.BuyBoxCriteria{}, ErrNotFound
	}
	return c, nil
}

func (r *DealRepositoryMemory) SaveDocument(_ context.Context, doc domain.DocumentUpload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.documents[doc.DealID] = append(r.documents[doc.DealID], doc)
	return nil
}

func (r *DealRepositoryMemory) ListDocuments(_ context.Context, dealID string) ([]domain.DocumentUpload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]domain.DocumentUpload{}, r.documents[dealID]...), nil
}

func (r *DealRepositoryMemory) ReplaceComparables(_ context.Context, dealID string, comps []domain.MarketComparable) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.comparables[dealID] = append([]domain.MarketComparable{}, comps...)
	return nil
}

func (r *DealRepositoryMemory) ListComparables(_ context.Context, dealID string) ([]domain.MarketComparable, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]domain.MarketComparable{}, r.comparables[dealID]...), nil
}

func (r *DealRepositoryMemory) DashboardStats(_ context.Context) (domain.DashboardStats, error) {
	r.mu.RLock()
	deals := make([]domain.Deal, 0, len(r.deals))
	for _, d := range r.deals {
		deals = append(deals, d)
	}
	r.mu.RUnlock()

	return computeDashboardStats(deals), nil
}

func (r *DealRepositoryMemory) Close() error { return nil }

func cloneDeal(d domain.Deal) domain.Deal {
	if d.Results != nil {
		res := *d.Results
		res.RiskFlags = append([]string{}, d.Results.RiskFlags...)
		d.Results = &res
	}
	if d.Evaluation != nil {
		eval := *d.Evaluation
		eval.FailedCriteria = append([]string{}, d.Evaluation.FailedCriteria...)
		eval.Recommendations = append([]string{}, d.Evaluation.Recommendations...)
		d.Evaluation = &eval
	}
	if d.Recommendations != nil {
		d.Recommendations = append([]string{}, d.Recommendations...)
	}
	return d
}
