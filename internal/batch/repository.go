package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Upload statuses
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Upload tracks one batch valuation run from file receipt to completion.
type Upload struct {
	ID               string     `json:"upload_id"`
	Filename         string     `json:"filename"`
	FileType         string     `json:"file_type"`
	Status           string     `json:"status"`
	TotalRecords     int        `json:"total_records"`
	ProcessedRecords int        `json:"processed_records"`
	ErrorRecords     int        `json:"error_records"`
	ErrorLog         string     `json:"error_log,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
}

// ErrNotFound is returned when an upload id does not exist
var ErrNotFound = fmt.Errorf("batch upload not found")

// Repository persists batch upload state
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository instance
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create inserts a new upload record
func (r *Repository) Create(ctx context.Context, upload *Upload) error {
	query := `
		INSERT INTO batch_upload (
			id, filename, file_type, status, total_records, processed_records, error_records, created_at
		) VALUES ($1, $2, $3, $4, $5, 0, 0, NOW())
		RETURNING created_at
	`

	err := r.db.QueryRow(ctx, query,
		upload.ID,
		upload.Filename,
		upload.FileType,
		upload.Status,
		upload.TotalRecords,
	).Scan(&upload.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert batch upload: %w", err)
	}

	return nil
}

// UpdateProgress refreshes the processed and error counters
func (r *Repository) UpdateProgress(ctx context.Context, id string, processed, errors int) error {
	query := `
		UPDATE batch_upload
		SET processed_records = $2, error_records = $3
		WHERE id = $1
	`

	if _, err := r.db.Exec(ctx, query, id, processed, errors); err != nil {
		return fmt.Errorf("update batch progress: %w", err)
	}

	return nil
}

// Finish marks an upload completed or failed and stores the error log
func (r *Repository) Finish(ctx context.Context, id, status, errorLog string, processed, errors int) error {
	query := `
		UPDATE batch_upload
		SET status = $2, error_log = $3, processed_records = $4, error_records = $5, completed_at = NOW()
		WHERE id = $1
	`

	if _, err := r.db.Exec(ctx, query, id, status, nullableText(errorLog), processed, errors); err != nil {
		return fmt.Errorf("finish batch upload: %w", err)
	}

	return nil
}

// Get returns an upload by id
func (r *Repository) Get(ctx context.Context, id string) (*Upload, error) {
	query := `
		SELECT id, filename, file_type, status, total_records,
		       processed_records, error_records, COALESCE(error_log, ''),
		       created_at, completed_at
		FROM batch_upload
		WHERE id = $1
	`

	upload := &Upload{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&upload.ID,
		&upload.Filename,
		&upload.FileType,
		&upload.Status,
		&upload.TotalRecords,
		&upload.ProcessedRecords,
		&upload.ErrorRecords,
		&upload.ErrorLog,
		&upload.CreatedAt,
		&upload.CompletedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query batch upload: %w", err)
	}

	return upload, nil
}

// History returns the most recent uploads, newest first
func (r *Repository) History(ctx context.Context, limit int) ([]Upload, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}

	query := `
		SELECT id, filename, file_type, status, total_records,
		       processed_records, error_records, COALESCE(error_log, ''),
		       created_at, completed_at
		FROM batch_upload
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query batch history: %w", err)
	}
	defer rows.Close()

	var uploads []Upload
	for rows.Next() {
		var upload Upload
		err := rows.Scan(
			&upload.ID,
			&upload.Filename,
			&upload.FileType,
			&upload.Status,
			&upload.TotalRecords,
			&upload.ProcessedRecords,
			&upload.ErrorRecords,
			&upload.ErrorLog,
			&upload.CreatedAt,
			&upload.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan batch upload: %w", err)
		}
		uploads = append(uploads, upload)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch uploads: %w", err)
	}

	return uploads, nil
}

// PruneOlderThan removes finished uploads past the retention window
func (r *Repository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM batch_upload
		WHERE completed_at IS NOT NULL AND completed_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune batch uploads: %w", err)
	}

	return tag.RowsAffected(), nil
}

func nullableText(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
