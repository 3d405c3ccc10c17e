package costmodel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terrabuild/terrafusion/backend/internal/valuation"
)

// CostTableEntry is a versioned base-cost rate for one property type,
// region, and assessment year.
type CostTableEntry struct {
	ID            int64                  `json:"id"`
	PropertyType  valuation.PropertyType `json:"property_type"`
	Region        string                 `json:"region"`
	Year          int                    `json:"year"`
	CostPerSqft   float64                `json:"cost_per_sqft"`
	Source        string                 `json:"source,omitempty"`
	Notes         string                 `json:"notes,omitempty"`
	Version       int                    `json:"version"`
	EffectiveDate time.Time              `json:"effective_date"`
	CreatedAt     time.Time              `json:"created_at"`
}

// ListFilter narrows cost-table queries
type ListFilter struct {
	PropertyType valuation.PropertyType
	Region       string
	Year         int
	Limit        int
	Offset       int
}

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = fmt.Errorf("cost table entry not found")

// Repository handles cost-table and location-multiplier persistence
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new cost-table entry; the version is advanced past any
// existing entry for the same type/region/year.
func (r *Repository) Create(ctx context.Context, entry *CostTableEntry) error {
	query := `
		INSERT INTO cost_table (
			property_type, region, year, cost_per_sqft, source, notes, version, effective_date, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			COALESCE((
				SELECT MAX(version) + 1 FROM cost_table
				WHERE property_type = $1 AND region = $2 AND year = $3
			), 1),
			$7, NOW()
		)
		RETURNING id, version, created_at
	`

	err := r.db.QueryRow(ctx, query,
		entry.PropertyType,
		entry.Region,
		entry.Year,
		entry.CostPerSqft,
		entry.Source,
		entry.Notes,
		entry.EffectiveDate,
	).Scan(&entry.ID, &entry.Version, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert cost table entry: %w", err)
	}

	return nil
}

// Update modifies an existing entry in place
func (r *Repository) Update(ctx context.Context, id int64, costPerSqft float64, source, notes string) error {
	query := `
		UPDATE cost_table
		SET cost_per_sqft = $2, source = $3, notes = $4
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, costPerSqft, source, notes)
	if err != nil {
		return fmt.Errorf("update cost table entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes an entry
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM cost_table WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete cost table entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Get returns a single entry by id
func (r *Repository) Get(ctx context.Context, id int64) (*CostTableEntry, error) {
	query := `
		SELECT id, property_type, region, year, cost_per_sqft,
		       COALESCE(source, ''), COALESCE(notes, ''), version, effective_date, created_at
		FROM cost_table
		WHERE id = $1
	`

	entry := &CostTableEntry{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&entry.ID,
		&entry.PropertyType,
		&entry.Region,
		&entry.Year,
		&entry.CostPerSqft,
		&entry.Source,
		&entry.Notes,
		&entry.Version,
		&entry.EffectiveDate,
		&entry.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cost table entry: %w", err)
	}

	return entry, nil
}

// List returns entries matching the filter, newest first, plus a total count
// for pagination.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]CostTableEntry, int64, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.PropertyType != "" {
		args = append(args, filter.PropertyType)
		conditions = append(conditions, fmt.Sprintf("property_type = $%d", len(args)))
	}
	if filter.Region != "" {
		args = append(args, filter.Region)
		conditions = append(conditions, fmt.Sprintf("region = $%d", len(args)))
	}
	if filter.Year != 0 {
		args = append(args, filter.Year)
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")

	countQuery := "SELECT COUNT(*) FROM cost_table WHERE " + where
	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count cost table entries: %w", err)
	}

	args = append(args, limit, filter.Offset)
	listQuery := fmt.Sprintf(`
		SELECT id, property_type, region, year, cost_per_sqft,
		       COALESCE(source, ''), COALESCE(notes, ''), version, effective_date, created_at
		FROM cost_table
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query cost table entries: %w", err)
	}
	defer rows.Close()

	var entries []CostTableEntry
	for rows.Next() {
		var entry CostTableEntry
		err := rows.Scan(
			&entry.ID,
			&entry.PropertyType,
			&entry.Region,
			&entry.Year,
			&entry.CostPerSqft,
			&entry.Source,
			&entry.Notes,
			&entry.Version,
			&entry.EffectiveDate,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan cost table entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate cost table entries: %w", err)
	}

	return entries, total, nil
}

// Lookup returns the latest-version rate for a type/region/year
func (r *Repository) Lookup(ctx context.Context, propertyType valuation.PropertyType, region string, year int) (*CostTableEntry, error) {
	query := `
		SELECT id, property_type, region, year, cost_per_sqft,
		       COALESCE(source, ''), COALESCE(notes, ''), version, effective_date, created_at
		FROM cost_table
		WHERE property_type = $1 AND region = $2 AND year = $3
		ORDER BY version DESC
		LIMIT 1
	`

	entry := &CostTableEntry{}
	err := r.db.QueryRow(ctx, query, propertyType, region, year).Scan(
		&entry.ID,
		&entry.PropertyType,
		&entry.Region,
		&entry.Year,
		&entry.CostPerSqft,
		&entry.Source,
		&entry.Notes,
		&entry.Version,
		&entry.EffectiveDate,
		&entry.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup cost factor: %w", err)
	}

	return entry, nil
}

// BulkImport inserts entries in a single transaction; all or nothing
func (r *Repository) BulkImport(ctx context.Context, entries []CostTableEntry) (int, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin bulk import: %w", err)
	}
	defer tx.Rollback(ctx)

	inserted := 0
	for i := range entries {
		entry := &entries[i]
		query := `
			INSERT INTO cost_table (
				property_type, region, year, cost_per_sqft, source, notes, version, effective_date, created_at
			) VALUES (
				$1, $2, $3, $4, $5, $6,
				COALESCE((
					SELECT MAX(version) + 1 FROM cost_table
					WHERE property_type = $1 AND region = $2 AND year = $3
				), 1),
				$7, NOW()
			)
		`
		_, err := tx.Exec(ctx, query,
			entry.PropertyType,
			entry.Region,
			entry.Year,
			entry.CostPerSqft,
			entry.Source,
			entry.Notes,
			entry.EffectiveDate,
		)
		if err != nil {
			return 0, fmt.Errorf("bulk import row %d: %w", i, err)
		}
		inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit bulk import: %w", err)
	}

	return inserted, nil
}

// UpsertLocationMultiplier stores the multiplier for a city
func (r *Repository) UpsertLocationMultiplier(ctx context.Context, city string, multiplier float64, source string) error {
	query := `
		INSERT INTO location_multiplier (city, multiplier, source, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (city) DO UPDATE SET
			multiplier = EXCLUDED.multiplier,
			source = EXCLUDED.source,
			updated_at = NOW()
	`

	if _, err := r.db.Exec(ctx, query, city, multiplier, source); err != nil {
		return fmt.Errorf("upsert location multiplier: %w", err)
	}

	return nil
}

// LocationMultipliers returns all stored city multipliers
func (r *Repository) LocationMultipliers(ctx context.Context) (map[string]float64, error) {
	rows, err := r.db.Query(ctx, `SELECT city, multiplier FROM location_multiplier`)
	if err != nil {
		return nil, fmt.Errorf("query location multipliers: %w", err)
	}
	defer rows.Close()

	multipliers := make(map[string]float64)
	for rows.Next() {
		var city string
		var multiplier float64
		if err := rows.Scan(&city, &multiplier); err != nil {
			return nil, fmt.Errorf("scan location multiplier: %w", err)
		}
		multipliers[city] = multiplier
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate location multipliers: %w", err)
	}

	return multipliers, nil
}

// ParametersFor assembles a full parameter set for a region and year from
// stored cost tables and location multipliers, falling back to the
// documented defaults for rates with no stored entry.
func (r *Repository) ParametersFor(ctx context.Context, region string, year int, marketMultiplier float64) (valuation.CostModelParameters, error) {
	params := Defaults()
	if marketMultiplier > 0 {
		params.MarketMultiplier = marketMultiplier
	}

	for propertyType := range params.BaseCostPerSquareFoot {
		entry, err := r.Lookup(ctx, propertyType, region, year)
		if err == ErrNotFound {
			continue // documented default stays in place
		}
		if err != nil {
			return valuation.CostModelParameters{}, err
		}
		params.BaseCostPerSquareFoot[propertyType] = entry.CostPerSqft
	}

	multipliers, err := r.LocationMultipliers(ctx)
	if err != nil {
		return valuation.CostModelParameters{}, err
	}
	params.LocationMultiplier = multipliers

	return params, nil
}
