package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"deal-underwriter/domain"
)

// PostgresDealRepository persists deals to PostgreSQL through a pgx pool.
type PostgresDealRepository struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

// NewPostgresDealRepository connects to databaseURL and creates the schema
// if it does not exist yet.
func NewPostgresDealRepository(ctx context.Context, databaseURL string, log zerolog.Logger) (*PostgresDealRepository, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	r := &PostgresDealRepository{
		pool: pool,
		log:  log.With().Str("component", "postgres_repository").Logger(),
	}
	if err := r.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("database", config.ConnConfig.Database).Msg("postgres repository connected")
	return r, nil
}

func (r *PostgresDealRepository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS properties (
			id            UUID PRIMARY KEY,
			address       TEXT NOT NULL,
			property_type TEXT NOT NULL,
			total_units   INTEGER,
			year_built    INTEGER,
			created_at    TIMESTAMPTZ NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS deals (
			id                      UUID PRIMARY KEY,
			property_id             UUID NOT NULL REFERENCES properties(id),
			status                  TEXT NOT NULL,
			down_payment_percent    DOUBLE PRECISION NOT NULL DEFAULT 0,
			cash_on_cash_return     DOUBLE PRECISION NOT NULL DEFAULT 0,
			processing_time_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
			results_json            JSONB,
			evaluation_json         JSONB,
			recommendations_json    JSONB,
			created_at              TIMESTAMPTZ NOT NULL,
			updated_at              TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deals_created ON deals(created_at)`,

		`CREATE TABLE IF NOT EXISTS buy_box_criteria (
			deal_id                 UUID PRIMARY KEY REFERENCES deals(id),
			min_cash_on_cash_return DOUBLE PRECISION NOT NULL,
			min_cap_rate            DOUBLE PRECISION NOT NULL,
			year_built_threshold    INTEGER NOT NULL,
			target_hold_period      INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS document_uploads (
			id             UUID PRIMARY KEY,
			deal_id        UUID NOT NULL REFERENCES deals(id),
			file_name      TEXT NOT NULL,
			file_type      TEXT NOT NULL,
			mime_type      TEXT NOT NULL,
			file_size      BIGINT NOT NULL,
			extracted_json JSONB,
			uploaded_at    TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_deal ON document_uploads(deal_id, uploaded_at)`,

		`CREATE TABLE IF NOT EXISTS market_comparables (
			id            UUID PRIMARY KEY,
			deal_id       UUID NOT NULL REFERENCES deals(id),
			position      INTEGER NOT NULL,
			property_name TEXT NOT NULL,
			rent_per_sqft DOUBLE PRECISION NOT NULL,
			cap_rate      DOUBLE PRECISION,
			source        TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_comparables_deal ON market_comparables(deal_id, position)`,
	}

	for _, s := range stmts {
		if _, err := r.pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *PostgresDealRepository) CreateProperty(ctx context.Context, p domain.Property) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO properties
		(id, address, property_type, total_units, year_built, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.Address, string(p.PropertyType), p.TotalUnits, p.YearBuilt, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create property: %w", err)
	}
	return nil
}

func (r *PostgresDealRepository) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	var (
		p        domain.Property
		propType string
	)
	err := r.pool.QueryRow(ctx, `SELECT id::text, address, property_type, total_units, year_built, created_at
		FROM properties WHERE id = $1`, id,
	).Scan(&p.ID, &p.Address, &propType, &p.TotalUnits, &p.YearBuilt, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Property{}, ErrNotFound
	}
	if err != nil {
		return domain.Property{}, fmt.Errorf("failed to load property: %w", err)
	}
	p.PropertyType = domain.PropertyType(propType)
	return p, nil
}

func (r *PostgresDealRepository) CreateDeal(ctx context.Context, d domain.Deal) error {
	cols, err := encodeDeal(d)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `INSERT INTO deals
		(id, property_id, status, down_payment_percent, cash_on_cash_return, processing_time_seconds,
		 results_json, evaluation_json, recommendations_json, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		d.ID, d.PropertyID, string(d.Status), d.DownPaymentPercent, cols.cashOnCash, d.ProcessingTimeSeconds,
		cols.results, cols.evaluation, cols.recommendations, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create deal: %w", err)
	}
	return nil
}

func (r *PostgresDealRepository) UpdateDeal(ctx context.Context, d domain.Deal) error {
	cols, err := encodeDeal(d)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, `UPDATE deals SET
		status = $1, down_payment_percent = $2, cash_on_cash_return = $3, processing_time_seconds = $4,
		results_json = $5, evaluation_json = $6, recommendations_json = $7, updated_at = $8
		WHERE id = $9`,
		string(d.Status), d.DownPaymentPercent, cols.cashOnCash, d.ProcessingTimeSeconds,
		cols.results, cols.evaluation, cols.recommendations, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update deal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const postgresDealSelect = `SELECT id::text, property_id::text, status, down_payment_percent, processing_time_seconds,
	results_json, evaluation_json, recommendations_json, created_at, updated_at FROM deals`

func (r *PostgresDealRepository) GetDeal(ctx context.Context, id string) (domain.Deal, error) {
	d, err := scanPostgresDeal(r.pool.QueryRow(ctx, postgresDealSelect+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Deal{}, ErrNotFound
	}
	return d, err
}

func (r *PostgresDealRepository) ListDeals(ctx context.Context, limit int) ([]domain.Deal, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}

	rows, err := r.pool.Query(ctx, postgresDealSelect+` ORDER BY created_at DESC LIMIT $1`, lim)
	if err != nil {
		return nil, fmt.Errorf("failed to list deals: %w", err)
	}
	defer rows.Close()

	deals := []domain.Deal{}
	for rows.Next() {
		d, err := scanPostgresDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

func scanPostgresDeal(row pgx.Row) (domain.Deal, error) {
	var (
		d                         domain.Deal
		status                    string
		results, evaluation, recs []byte
	)
	if err := row.Scan(&d.ID, &d.PropertyID, &status, &d.DownPaymentPercent, &d.ProcessingTimeSeconds,
		&results, &evaluation, &recs, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return domain.Deal{}, err
	}
	d.Status = domain.DealStatus(status)
	if err := decodeDeal(&d, results, evaluation, recs); err != nil {
		return domain.Deal{}, fmt.Errorf("deal %s: %w", d.ID, err)
	}
	return d, nil
}

func (r *PostgresDealRepository) SaveBuyBox(ctx context.Context, dealID string, c domain.BuyBoxCriteria) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO buy_box_criteria
		(deal_id, min_cash_on_cash_return, min_cap_rate, year_built_threshold, target_hold_period)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (deal_id) DO UPDATE SET
			min_cash_on_cash_return = EXCLUDED.min_cash_on_cash_return,
			min_cap_rate = EXCLUDED.min_cap_rate,
			year_built_threshold = EXCLUDED.year_built_threshold,
			target_hold_period = EXCLUDED.target_hold_period`,
		dealID, c.MinCashOnCashReturn, c.MinCapRate, c.YearBuiltThreshold, c.TargetHoldPeriod,
	)
	if err != nil {
		return fmt.Errorf("failed to save buy box: %w", err)
	}
	return nil
}

func (r *PostgresDealRepository) GetBuyBox(ctx context.Context, dealID string) (domain.BuyBoxCriteria, error) {
	var c domain.BuyBoxCriteria
	err := r.pool.QueryRow(ctx, `SELECT min_cash_on_cash_return, min_cap_rate, year_built_threshold, target_hold_period
		FROM buy_box_criteria WHERE deal_id = $1`, dealID,
	).Scan(&c.MinCashOnCashReturn, &c.MinCapRate, &c.YearBuiltThreshold, &c.TargetHoldPeriod)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.BuyBoxCriteria{}, ErrNotFound
	}
	if err != nil {
		return domain.BuyBoxCriteria{}, fmt.Errorf("failed to load buy box: %w", err)
	}
	return c, nil
}

func (r *PostgresDealRepository) SaveDocument(ctx context.Context, doc domain.DocumentUpload) error {
	extracted, err := json.Marshal(doc.ExtractedData)
	if err != nil {
		return fmt.Errorf("failed to marshal extracted data: %w", err)
	}

	_, err = r.pool.Exec(ctx, `INSERT INTO document_uploads
		(id, deal_id, file_name, file_type, mime_type, file_size, extracted_json, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		doc.ID, doc.DealID, doc.FileName, string(doc.FileType), doc.MimeType, doc.FileSize,
		extracted, doc.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

func (r *PostgresDealRepository) ListDocuments(ctx context.Context, dealID string) ([]domain.DocumentUpload, error) {
	rows, err := r.pool.Query(ctx, `SELECT id::text, deal_id::text, file_name, file_type, mime_type, file_size, extracted_json, uploaded_at
		FROM document_uploads WHERE deal_id = $1 ORDER BY uploaded_at`, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.DocumentUpload{}
	for rows.Next() {
		var (
			doc       domain.DocumentUpload
			fileType  string
			extracted []byte
		)
		if err := rows.Scan(&doc.ID, &doc.DealID, &doc.FileName, &fileType, &doc.MimeType, &doc.FileSize,
			&extracted, &doc.UploadedAt); err != nil {
			return nil, err
		}
		doc.FileType = domain.DocumentType(fileType)
		if len(extracted) > 0 {
			if err := json.Unmarshal(extracted, &doc.ExtractedData); err != nil {
				return nil, fmt.Errorf("failed to unmarshal extracted data: %w", err)
			}
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *PostgresDealRepository) ReplaceComparables(ctx context.Context, dealID string, comps []domain.MarketComparable) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM market_comparables WHERE deal_id = $1`, dealID); err != nil {
		return fmt.Errorf("failed to clear comparables: %w", err)
	}
	for i, c := range comps {
		if _, err := tx.Exec(ctx, `INSERT INTO market_comparables
			(id, deal_id, position, property_name, rent_per_sqft, cap_rate, source)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.ID, dealID, i, c.PropertyName, c.RentPerSqft, c.CapRate, c.Source,
		); err != nil {
			return fmt.Errorf("failed to insert comparable: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (r *PostgresDealRepository) ListComparables(ctx context.Context, dealID string) ([]domain.MarketComparable, error) {
	rows, err := r.pool.Query(ctx, `SELECT id::text, deal_id::text, property_name, rent_per_sqft, cap_rate, source
		FROM market_comparables WHERE deal_id = $1 ORDER BY position`, dealID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comparables: %w", err)
	}
	defer rows.Close()

	comps := []domain.MarketComparable{}
	for rows.Next() {
		var c domain.MarketComparable
		if err := rows.Scan(&c.ID, &c.DealID, &c.PropertyName, &c.RentPerSqft, &c.CapRate, &c.Source); err != nil {
			return nil, err
		}
		comps = append(comps, c)
	}
	return comps, rows.Err()
}

func (r *PostgresDealRepository) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	var stats domain.DashboardStats
	err := r.pool.QueryRow(ctx, `SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'pass' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(cash_on_cash_return) FILTER (WHERE status <> 'analyzing'), 0),
			COALESCE(AVG(processing_time_seconds) FILTER (WHERE status <> 'analyzing'), 0)
		FROM deals`,
	).Scan(&stats.DealsAnalyzed, &stats.PassedDeals, &stats.AvgCashOnCashReturn, &stats.AvgProcessingTime)
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("failed to compute dashboard stats: %w", err)
	}
	return stats, nil
}

func (r *PostgresDealRepository) Close() error {
	r.pool.Close()
	return nil
}
