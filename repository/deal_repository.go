package repository

import (
	"context"
	"errors"

	"deal-underwriter/domain"
)

var ErrNotFound = errors.New("not found")

// DealRepository persists properties, deals and everything attached to a
// deal. Implementations must be safe for concurrent use.
type DealRepository interface {
	CreateProperty(ctx context.Context, property domain.Property) error
	GetProperty(ctx context.Context, id string) (domain.Property, error)

	CreateDeal(ctx context.Context, deal domain.Deal) error
	GetDeal(ctx context.Context, id string) (domain.Deal, error)
	UpdateDeal(ctx context.Context, deal domain.Deal) error
	// ListDeals returns deals newest first. A limit <= 0 returns all of them.
	ListDeals(ctx context.Context, limit int) ([]domain.Deal, error)

	SaveBuyBox(ctx context.Context, dealID string, criteria domain.BuyBoxCriteria) error
	GetBuyBox(ctx context.Context, dealID string) (domain.BuyBoxCriteria, error)

	SaveDocument(ctx context.Context, doc domain.DocumentUpload) error
	// ListDocuments returns a deal's uploads oldest first.
	ListDocuments(ctx context.Context, dealID string) ([]domain.DocumentUpload, error)

	// ReplaceComparables swaps the stored comparables of a deal for comps.
	ReplaceComparables(ctx context.Context, dealID string, comps []domain.MarketComparable) error
	ListComparables(ctx context.Context, dealID string) ([]domain.MarketComparable, error)

	DashboardStats(ctx context.Context) (domain.DashboardStats, error)

	Close() error
}
