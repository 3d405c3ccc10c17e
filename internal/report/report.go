package report

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terrabuild/terrafusion/backend/pkg/redis"
)

// Summary aggregates the latest valuation per parcel across the whole roll.
type Summary struct {
	TotalProperties       int64     `json:"total_properties"`
	ValuedProperties      int64     `json:"valued_properties"`
	TotalEstimatedValue   float64   `json:"total_estimated_value"`
	AverageEstimatedValue float64   `json:"average_estimated_value"`
	AveragePricePerSqft   float64   `json:"average_price_per_sqft"`
	AverageConfidence     float64   `json:"average_confidence"`
	GeneratedAt           time.Time `json:"generated_at"`
}

// GroupRow is one aggregation bucket of a regional or property-type report
type GroupRow struct {
	Key                   string  `json:"key"`
	Count                 int64   `json:"count"`
	TotalEstimatedValue   float64 `json:"total_estimated_value"`
	AverageEstimatedValue float64 `json:"average_estimated_value"`
	AveragePricePerSqft   float64 `json:"average_price_per_sqft"`
	MinEstimatedValue     float64 `json:"min_estimated_value"`
	MaxEstimatedValue     float64 `json:"max_estimated_value"`
}

// GroupedReport is a bucketed view of the assessment roll
type GroupedReport struct {
	GroupedBy   string     `json:"grouped_by"`
	Region      string     `json:"region,omitempty"`
	Rows        []GroupRow `json:"rows"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// latestValuation joins each parcel to its newest valuation row
const latestValuation = `
	SELECT DISTINCT ON (parcel_id)
		parcel_id, estimated_value, confidence_score, price_per_sqft
	FROM valuation
	ORDER BY parcel_id, created_at DESC
`

// Service builds roll-level reports from the latest valuations. Results are
// cached in Redis for a short TTL since the underlying aggregates are
// expensive on large rolls.
type Service struct {
	db    *pgxpool.Pool
	cache *redis.Cache
}

// NewService creates a new Service instance
func NewService(db *pgxpool.Pool, client *redis.Client) *Service {
	return &Service{
		db:    db,
		cache: redis.NewCache(client, "report"),
	}
}

// Summary returns roll-wide totals and averages
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	var summary Summary

	err := s.cache.GetOrSet(ctx, redis.ReportKey("summary", "all"), &summary, redis.TTLShort,
		func() (interface{}, error) {
			return s.querySummary(ctx)
		})
	if err != nil {
		return nil, err
	}

	return &summary, nil
}

func (s *Service) querySummary(ctx context.Context) (*Summary, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM property) AS total_properties,
			COUNT(v.parcel_id) AS valued_properties,
			COALESCE(SUM(v.estimated_value), 0),
			COALESCE(AVG(v.estimated_value), 0),
			COALESCE(AVG(v.price_per_sqft), 0),
			COALESCE(AVG(v.confidence_score), 0)
		FROM (` + latestValuation + `) v
	`

	summary := &Summary{GeneratedAt: time.Now().UTC()}
	err := s.db.QueryRow(ctx, query).Scan(
		&summary.TotalProperties,
		&summary.ValuedProperties,
		&summary.TotalEstimatedValue,
		&summary.AverageEstimatedValue,
		&summary.AveragePricePerSqft,
		&summary.AverageConfidence,
	)
	if err != nil {
		return nil, fmt.Errorf("query summary report: %w", err)
	}

	return summary, nil
}

// ByRegion buckets the latest valuations by property region
func (s *Service) ByRegion(ctx context.Context) (*GroupedReport, error) {
	return s.grouped(ctx, "region", "p.region", "")
}

// ByPropertyType buckets the latest valuations by property type, optionally
// restricted to one region
func (s *Service) ByPropertyType(ctx context.Context, region string) (*GroupedReport, error) {
	return s.grouped(ctx, "property_type", "p.property_type", region)
}

func (s *Service) grouped(ctx context.Context, name, column, region string) (*GroupedReport, error) {
	var report GroupedReport

	key := redis.ReportKey(name, filterHash(region))
	err := s.cache.GetOrSet(ctx, key, &report, redis.TTLShort,
		func() (interface{}, error) {
			return s.queryGrouped(ctx, name, column, region)
		})
	if err != nil {
		return nil, err
	}

	return &report, nil
}

func (s *Service) queryGrouped(ctx context.Context, name, column, region string) (*GroupedReport, error) {
	query := `
		SELECT
			` + column + ` AS bucket,
			COUNT(*),
			COALESCE(SUM(v.estimated_value), 0),
			COALESCE(AVG(v.estimated_value), 0),
			COALESCE(AVG(v.price_per_sqft), 0),
			COALESCE(MIN(v.estimated_value), 0),
			COALESCE(MAX(v.estimated_value), 0)
		FROM (` + latestValuation + `) v
		JOIN property p ON p.parcel_id = v.parcel_id
	`

	args := []interface{}{}
	if region != "" {
		args = append(args, region)
		query += " WHERE p.region = $1"
	}
	query += " GROUP BY bucket ORDER BY bucket"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s report: %w", name, err)
	}
	defer rows.Close()

	report := &GroupedReport{
		GroupedBy:   name,
		Region:      region,
		GeneratedAt: time.Now().UTC(),
	}

	for rows.Next() {
		var row GroupRow
		err := rows.Scan(
			&row.Key,
			&row.Count,
			&row.TotalEstimatedValue,
			&row.AverageEstimatedValue,
			&row.AveragePricePerSqft,
			&row.MinEstimatedValue,
			&row.MaxEstimatedValue,
		)
		if err != nil {
			return nil, fmt.Errorf("scan %s report row: %w", name, err)
		}
		report.Rows = append(report.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s report rows: %w", name, err)
	}

	return report, nil
}

// filterHash keys cache entries by their filter set
func filterHash(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
