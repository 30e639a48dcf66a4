package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"deal-underwriter/domain"
)

// SQLiteDealRepository persists deals to a SQLite database.
type SQLiteDealRepository struct {
	db  *sql.DB
	mu  sync.Mutex
	log zerolog.Logger
}

// NewSQLiteDealRepository opens (or creates) the database and runs migrations.
func NewSQLiteDealRepository(dbPath string, log zerolog.Logger) (*SQLiteDealRepository, error) {
	// Connection-scoped pragmas go in the DSN so every pooled connection gets them.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteDealRepository{
		db:  db,
		log: log.With().Str("component", "sqlite_repository").Logger(),
	}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.log.Info().Str("path", dbPath).Msg("sqlite repository opened")
	return r, nil
}

func (r *SQLiteDealRepository) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS properties (
			id            TEXT PRIMARY KEY,
			address       TEXT NOT NULL,
			property_type TEXT NOT NULL,
			total_units   INTEGER,
			year_built    INTEGER,
			created_at    INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS deals (
			id                      TEXT PRIMARY KEY,
			property_id             TEXT NOT NULL REFERENCES properties(id),
			status                  TEXT NOT NULL,
			down_payment_percent    REAL NOT NULL DEFAULT 0,
			cash_on_cash_return     REAL NOT NULL DEFAULT 0,
			processing_time_seconds REAL NOT NULL DEFAULT 0,
			results_json            TEXT,
			evaluation_json         TEXT,
			recommendations_json    TEXT,
			created_at              INTEGER NOT NULL,
			updated_at              INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_deals_created ON deals(created_at)`,

		`CREATE TABLE IF NOT EXISTS buy_box_criteria (
			deal_id                 TEXT PRIMARY KEY REFERENCES deals(id),
			min_cash_on_cash_return REAL NOT NULL,
			min_cap_rate            REAL NOT NULL,
			year_built_threshold    INTEGER NOT NULL,
			target_hold_period      INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS document_uploads (
			id             TEXT PRIMARY KEY,
			deal_id        TEXT NOT NULL REFERENCES deals(id),
			file_name      TEXT NOT NULL,
			file_type      TEXT NOT NULL,
			mime_type      TEXT NOT NULL,
			file_size      INTEGER NOT NULL,
			extracted_json TEXT,
			uploaded_at    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_deal ON document_uploads(deal_id, uploaded_at)`,

		`CREATE TABLE IF NOT EXISTS market_comparables (
			id            TEXT PRIMARY KEY,
			deal_id       TEXT NOT NULL REFERENCES deals(id),
			position      INTEGER NOT NULL,
			property_name TEXT NOT NULL,
			rent_per_sqft REAL NOT NULL,
			cap_rate      REAL,
			source        TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_comparables_deal ON market_comparables(deal_id, position)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (r *SQLiteDealRepository) CreateProperty(ctx context.Context, p domain.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO properties
		(id, address, property_type, total_units, year_built, created_at)
		VALUES (?,?,?,?,?,?)`,
		p.ID, p.Address, string(p.PropertyType),
		nullInt(p.TotalUnits), nullInt(p.YearBuilt), unixNano(p.CreatedAt),
	)
	return err
}

func (r *SQLiteDealRepository) GetProperty(ctx context.Context, id string) (domain.Property, error) {
	var (
		p         domain.Property
		propType  string
		units     sql.NullInt64
		yearBuilt sql.NullInt64
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx, `SELECT id, address, property_type, total_units, year_built, created_at
		FROM properties WHERE id = ?`, id,
	).Scan(&p.ID, &p.Address, &propType, &units, &yearBuilt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Property{}, ErrNotFound
	}
	if err != nil {
		return domain.Property{}, fmt.Errorf("get property: %w", err)
	}

	p.PropertyType = domain.PropertyType(propType)
	p.TotalUnits = intFromNull(units)
	p.YearBuilt = intFromNull(yearBuilt)
	p.CreatedAt = fromUnixNano(createdAt)
	return p, nil
}

func (r *SQLiteDealRepository) CreateDeal(ctx context.Context, d domain.Deal) error {
	cols, err := encodeDeal(d)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.ExecContext(ctx, `INSERT INTO deals
		(id, property_id, status, down_payment_percent, cash_on_cash_return, processing_time_seconds,
		 results_json, evaluation_json, recommendations_json, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, d.PropertyID, string(d.Status), d.DownPaymentPercent, cols.cashOnCash, d.ProcessingTimeSeconds,
		string(cols.results), string(cols.evaluation), string(cols.recommendations),
		unixNano(d.CreatedAt), unixNano(d.UpdatedAt),
	)
	return err
}

func (r *SQLiteDealRepository) UpdateDeal(ctx context.Context, d domain.Deal) error {
	cols, err := encodeDeal(d)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx, `UPDATE deals SET
		status = ?, down_payment_percent = ?, cash_on_cash_return = ?, processing_time_seconds = ?,
		results_json = ?, evaluation_json = ?, recommendations_json = ?, updated_at = ?
		WHERE id = ?`,
		string(d.Status), d.DownPaymentPercent, cols.cashOnCash, d.ProcessingTimeSeconds,
		string(cols.results), string(cols.evaluation), string(cols.recommendations),
		unixNano(d.UpdatedAt), d.ID,
	)
	if err != nil {
		return fmt.Errorf("update deal: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

const sqliteDealSelect = `SELECT id, property_id, status, down_payment_percent, processing_time_seconds,
	results_json, evaluation_json, recommendations_json, created_at, updated_at FROM deals`

func (r *SQLiteDealRepository) GetDeal(ctx context.Context, id string) (domain.Deal, error) {
	row := r.db.QueryRowContext(ctx, sqliteDealSelect+` WHERE id = ?`, id)
	d, err := scanSQLiteDeal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Deal{}, ErrNotFound
	}
	return d, err
}

func (r *SQLiteDealRepository) ListDeals(ctx context.Context, limit int) ([]domain.Deal, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, sqliteDealSelect+` ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	defer rows.Close()

	deals := []domain.Deal{}
	for rows.Next() {
		d, err := scanSQLiteDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteDeal(row rowScanner) (domain.Deal, error) {
	var (
		d                         domain.Deal
		status                    string
		results, evaluation, recs sql.NullString
		createdAt, updatedAt      int64
	)
	if err := row.Scan(&d.ID, &d.PropertyID, &status, &d.DownPaymentPercent, &d.ProcessingTimeSeconds,
		&results, &evaluation, &recs, &createdAt, &updatedAt); err != nil {
		return domain.Deal{}, err
	}

	d.Status = domain.DealStatus(status)
	d.CreatedAt = fromUnixNano(createdAt)
	d.UpdatedAt = fromUnixNano(updatedAt)
	if err := decodeDeal(&d, []byte(results.String), []byte(evaluation.String), []byte(recs.String)); err != nil {
		return domain.Deal{}, fmt.Errorf("deal %s: %w", d.ID, err)
	}
	return d, nil
}

func (r *SQLiteDealRepository) SaveBuyBox(ctx context.Context, dealID string, c domain.BuyBoxCriteria) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `INSERT INTO buy_box_criteria
		(deal_id, min_cash_on_cash_return, min_cap_rate, year_built_threshold, target_hold_period)
		VALUES (?,?,?,?,?)
		ON CONFLICT(deal_id) DO UPDATE SET
			min_cash_on_cash_return = excluded.min_cash_on_cash_return,
			min_cap_rate = excluded.min_cap_rate,
			year_built_threshold = excluded.year_built_threshold,
			target_hold_period = excluded.target_hold_period`,
		dealID, c.MinCashOnCashReturn, c.MinCapRate, c.YearBuiltThreshold, c.TargetHoldPeriod,
	)
	return err
}

func (r *SQLiteDealRepository) GetBuyBox(ctx context.Context, dealID string) (domain.BuyBoxCriteria, error) {
	var c domain.BuyBoxCriteria
	err := r.db.QueryRowContext(ctx, `SELECT min_cash_on_cash_return, min_cap_rate, year_built_threshold, target_hold_period
		FROM buy_box_criteria WHERE deal_id = ?`, dealID,
	).Scan(&c.MinCashOnCashReturn, &c.MinCapRate, &c.YearBuiltThreshold, &c.TargetHoldPeriod)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BuyBoxCriteria{}, ErrNotFound
	}
	if err != nil {
		return domain.BuyBoxCriteria{}, fmt.Errorf("get buy box: %w", err)
	}
	return c, nil
}

func (r *SQLiteDealRepository) SaveDocument(ctx context.Context, doc domain.DocumentUpload) error {
	extracted, err := json.Marshal(doc.ExtractedData)
	if err != nil {
		return fmt.Errorf("encode extracted data: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, err = r.db.ExecContext(ctx, `INSERT INTO document_uploads
		(id, deal_id, file_name, file_type, mime_type, file_size, extracted_json, uploaded_at)
		VALUES (?,?,?,?,?,?,?,?)`,
		doc.ID, doc.DealID, doc.FileName, string(doc.FileType), doc.MimeType, doc.FileSize,
		string(extracted), unixNano(doc.UploadedAt),
	)
	return err
}

func (r *SQLiteDealRepository) ListDocuments(ctx context.Context, dealID string) ([]domain.DocumentUpload, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, deal_id, file_name, file_type, mime_type, file_size, extracted_json, uploaded_at
		FROM document_uploads WHERE deal_id = ? ORDER BY uploaded_at`, dealID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.DocumentUpload{}
	for rows.Next() {
		var (
			doc        domain.DocumentUpload
			fileType   string
			extracted  sql.NullString
			uploadedAt int64
		)
		if err := rows.Scan(&doc.ID, &doc.DealID, &doc.FileName, &fileType, &doc.MimeType, &doc.FileSize,
			&extracted, &uploadedAt); err != nil {
			return nil, err
		}
		doc.FileType = domain.DocumentType(fileType)
		doc.UploadedAt = fromUnixNano(uploadedAt)
		if extracted.Valid && extracted.String != "" {
			if err := json.Unmarshal([]byte(extracted.String), &doc.ExtractedData); err != nil {
				return nil, fmt.Errorf("decode extracted data: %w", err)
			}
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (r *SQLiteDealRepository) ReplaceComparables(ctx context.Context, dealID string, comps []domain.MarketComparable) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM market_comparables WHERE deal_id = ?`, dealID); err != nil {
		return fmt.Errorf("clear comparables: %w", err)
	}
	for i, c := range comps {
		if _, err := tx.ExecContext(ctx, `INSERT INTO market_comparables
			(id, deal_id, position, property_name, rent_per_sqft, cap_rate, source)
			VALUES (?,?,?,?,?,?,?)`,
			c.ID, dealID, i, c.PropertyName, c.RentPerSqft, nullFloat(c.CapRate), c.Source,
		); err != nil {
			return fmt.Errorf("insert comparable: %w", err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteDealRepository) ListComparables(ctx context.Context, dealID string) ([]domain.MarketComparable, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, deal_id, property_name, rent_per_sqft, cap_rate, source
		FROM market_comparables WHERE deal_id = ? ORDER BY position`, dealID)
	if err != nil {
		return nil, fmt.Errorf("list comparables: %w", err)
	}
	defer rows.Close()

	comps := []domain.MarketComparable{}
	for rows.Next() {
		var (
			c       domain.MarketComparable
			capRate sql.NullFloat64
		)
		if err := rows.Scan(&c.ID, &c.DealID, &c.PropertyName, &c.RentPerSqft, &capRate, &c.Source); err != nil {
			return nil, err
		}
		c.CapRate = floatFromNull(capRate)
		comps = append(comps, c)
	}
	return comps, rows.Err()
}

func (r *SQLiteDealRepository) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	var stats domain.DashboardStats
	err := r.db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'pass' THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(CASE WHEN status <> 'analyzing' THEN cash_on_cash_return END), 0),
			COALESCE(AVG(CASE WHEN status <> 'analyzing' THEN processing_time_seconds END), 0)
		FROM deals`,
	).Scan(&stats.DealsAnalyzed, &stats.PassedDeals, &stats.AvgCashOnCashReturn, &stats.AvgProcessingTime)
	if err != nil {
		return domain.DashboardStats{}, fmt.Errorf("dashboard stats: %w", err)
	}
	return stats, nil
}

func (r *SQLiteDealRepository) Close() error {
	r.log.Info().Msg("closing sqlite repository")
	return r.db.Close()
}
