package property

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terrabuild/terrafusion/backend/internal/valuation"
)

// Property is a parcel record with the attributes the calculator consumes.
type Property struct {
	ID            int64                  `json:"id"`
	ParcelID      string                 `json:"parcel_id"`
	Address       string                 `json:"address"`
	Owner         string                 `json:"owner,omitempty"`
	City          string                 `json:"city"`
	Region        string                 `json:"region"`
	PropertyType  valuation.PropertyType `json:"property_type"`
	SquareFootage float64                `json:"square_footage"`
	YearBuilt     int                    `json:"year_built"`
	Condition     valuation.Condition    `json:"condition,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}

// Attributes maps the stored record onto calculator input
func (p *Property) Attributes() valuation.PropertyAttributes {
	return valuation.PropertyAttributes{
		SquareFootage: p.SquareFootage,
		YearBuilt:     p.YearBuilt,
		City:          p.City,
		PropertyType:  p.PropertyType,
		Condition:     p.Condition,
	}
}

// ListFilter narrows property queries
type ListFilter struct {
	Region       string
	PropertyType valuation.PropertyType
	YearFrom     int
	YearTo       int
	Limit        int
	Offset       int
}

// ErrNotFound is returned when a parcel does not exist
var ErrNotFound = fmt.Errorf("property not found")

// Repository handles parcel persistence
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const propertyColumns = `
	id, parcel_id, address, COALESCE(owner, ''), city, region,
	property_type, square_footage, year_built, COALESCE(condition, ''),
	created_at, updated_at
`

func scanProperty(row pgx.Row) (*Property, error) {
	p := &Property{}
	err := row.Scan(
		&p.ID,
		&p.ParcelID,
		&p.Address,
		&p.Owner,
		&p.City,
		&p.Region,
		&p.PropertyType,
		&p.SquareFootage,
		&p.YearBuilt,
		&p.Condition,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan property: %w", err)
	}
	return p, nil
}

// Create inserts a new parcel; parcel_id must be unique
func (r *Repository) Create(ctx context.Context, p *Property) error {
	query := `
		INSERT INTO property (
			parcel_id, address, owner, city, region,
			property_type, square_footage, year_built, condition,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		p.ParcelID,
		p.Address,
		p.Owner,
		p.City,
		p.Region,
		p.PropertyType,
		p.SquareFootage,
		p.YearBuilt,
		nullable(string(p.Condition)),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert property: %w", err)
	}

	return nil
}

// Upsert inserts or refreshes a parcel keyed by parcel_id, used by batch import
func (r *Repository) Upsert(ctx context.Context, p *Property) error {
	query := `
		INSERT INTO property (
			parcel_id, address, owner, city, region,
			property_type, square_footage, year_built, condition,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (parcel_id) DO UPDATE SET
			address = EXCLUDED.address,
			owner = EXCLUDED.owner,
			city = EXCLUDED.city,
			region = EXCLUDED.region,
			property_type = EXCLUDED.property_type,
			square_footage = EXCLUDED.square_footage,
			year_built = EXCLUDED.year_built,
			condition = EXCLUDED.condition,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(ctx, query,
		p.ParcelID,
		p.Address,
		p.Owner,
		p.City,
		p.Region,
		p.PropertyType,
		p.SquareFootage,
		p.YearBuilt,
		nullable(string(p.Condition)),
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert property: %w", err)
	}

	return nil
}

// Get returns a parcel by numeric id
func (r *Repository) Get(ctx context.Context, id int64) (*Property, error) {
	query := "SELECT " + propertyColumns + " FROM property WHERE id = $1"
	return scanProperty(r.db.QueryRow(ctx, query, id))
}

// GetByParcelID returns a parcel by its assessor parcel number
func (r *Repository) GetByParcelID(ctx context.Context, parcelID string) (*Property, error) {
	query := "SELECT " + propertyColumns + " FROM property WHERE parcel_id = $1"
	return scanProperty(r.db.QueryRow(ctx, query, parcelID))
}

// List returns parcels matching the filter, plus a total count for pagination
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Property, int64, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	conditions := []string{"1=1"}
	args := []interface{}{}

	if filter.Region != "" {
		args = append(args, filter.Region)
		conditions = append(conditions, fmt.Sprintf("region = $%d", len(args)))
	}
	if filter.PropertyType != "" {
		args = append(args, filter.PropertyType)
		conditions = append(conditions, fmt.Sprintf("property_type = $%d", len(args)))
	}
	if filter.YearFrom != 0 {
		args = append(args, filter.YearFrom)
		conditions = append(conditions, fmt.Sprintf("year_built >= $%d", len(args)))
	}
	if filter.YearTo != 0 {
		args = append(args, filter.YearTo)
		conditions = append(conditions, fmt.Sprintf("year_built <= $%d", len(args)))
	}

	where := strings.Join(conditions, " AND ")

	var total int64
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM property WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count properties: %w", err)
	}

	args = append(args, limit, filter.Offset)
	query := fmt.Sprintf(
		"SELECT "+propertyColumns+" FROM property WHERE %s ORDER BY parcel_id LIMIT $%d OFFSET $%d",
		where, len(args)-1, len(args),
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query properties: %w", err)
	}
	defer rows.Close()

	var properties []Property
	for rows.Next() {
		p := Property{}
		err := rows.Scan(
			&p.ID,
			&p.ParcelID,
			&p.Address,
			&p.Owner,
			&p.City,
			&p.Region,
			&p.PropertyType,
			&p.SquareFootage,
			&p.YearBuilt,
			&p.Condition,
			&p.CreatedAt,
			&p.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan property row: %w", err)
		}
		properties = append(properties, p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate property rows: %w", err)
	}

	return properties, total, nil
}

// nullable turns an empty string into NULL for optional columns
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
