package valuation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Record is a persisted valuation with its inputs and audit trail.
type Record struct {
	ID         int64              `json:"id"`
	ParcelID   string             `json:"parcel_id"`
	Attributes PropertyAttributes `json:"attributes"`
	Result     ValuationResult    `json:"result"`
	ParamsHash string             `json:"params_hash"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Repository persists valuation history. The calculator itself never touches
// storage; handlers and the batch engine call this after computing.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Save stores a computed valuation for a parcel
func (r *Repository) Save(ctx context.Context, rec *Record) error {
	attrsJSON, err := json.Marshal(rec.Attributes)
	if err != nil {
		return fmt.Errorf("marshal attributes: %w", err)
	}

	breakdownJSON, err := json.Marshal(rec.Result.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown: %w", err)
	}

	query := `
		INSERT INTO valuation (
			parcel_id,
			attributes,
			estimated_value,
			confidence_score,
			price_per_sqft,
			breakdown,
			params_hash,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id, created_at
	`

	err = r.db.QueryRow(ctx, query,
		rec.ParcelID,
		attrsJSON,
		rec.Result.EstimatedValue,
		rec.Result.ConfidenceScore,
		rec.Result.PricePerSquareFoot,
		breakdownJSON,
		rec.ParamsHash,
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert valuation: %w", err)
	}

	return nil
}

// History returns the most recent valuations for a parcel, newest first
func (r *Repository) History(ctx context.Context, parcelID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT
			id,
			parcel_id,
			attributes,
			estimated_value,
			confidence_score,
			price_per_sqft,
			breakdown,
			params_hash,
			created_at
		FROM valuation
		WHERE parcel_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, parcelID, limit)
	if err != nil {
		return nil, fmt.Errorf("query valuation history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var attrsJSON, breakdownJSON []byte

		err := rows.Scan(
			&rec.ID,
			&rec.ParcelID,
			&attrsJSON,
			&rec.Result.EstimatedValue,
			&rec.Result.ConfidenceScore,
			&rec.Result.PricePerSquareFoot,
			&breakdownJSON,
			&rec.ParamsHash,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan valuation row: %w", err)
		}

		if err := json.Unmarshal(attrsJSON, &rec.Attributes); err != nil {
			return nil, fmt.Errorf("unmarshal attributes: %w", err)
		}
		if err := json.Unmarshal(breakdownJSON, &rec.Result.Breakdown); err != nil {
			return nil, fmt.Errorf("unmarshal breakdown: %w", err)
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate valuation rows: %w", err)
	}

	return records, nil
}
