package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"deal-underwriter/domain"
)

// dealColumns are the JSON-encoded analysis parts of a deal row.
type dealColumns struct {
	results         []byte
	evaluation      []byte
	recommendations []byte
	cashOnCash      float64
}

func encodeDeal(d domain.Deal) (dealColumns, error) {
	var cols dealColumns
	var err error

	if cols.results, err = json.Marshal(d.Results); err != nil {
		return cols, fmt.Errorf("encode results: %w", err)
	}
	if cols.evaluation, err = json.Marshal(d.Evaluation); err != nil {
		return cols, fmt.Errorf("encode evaluation: %w", err)
	}
	if cols.recommendations, err = json.Marshal(d.Recommendations); err != nil {
		return cols, fmt.Errorf("encode recommendations: %w", err)
	}
	if d.Results != nil {
		cols.cashOnCash = d.Results.CashOnCashReturn
	}
	return cols, nil
}

func decodeDeal(d *domain.Deal, results, evaluation, recommendations []byte) error {
	if len(results) > 0 {
		if err := json.Unmarshal(results, &d.Results); err != nil {
			return fmt.Errorf("decode results: %w", err)
		}
	}
	if len(evaluation) > 0 {
		if err := json.Unmarshal(evaluation, &d.Evaluation); err != nil {
			return fmt.Errorf("decode evaluation: %w", err)
		}
	}
	if len(recommendations) > 0 {
		if err := json.Unmarshal(recommendations, &d.Recommendations); err != nil {
			return fmt.Errorf("decode recommendations: %w", err)
		}
	}
	return nil
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatFromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func unixNano(t time.Time) int64 { return t.UnixNano() }

func fromUnixNano(n int64) time.Time { return time.Unix(0, n).UTC() }
