package jobs

import (
	"context"
	"time"

	"github.com/terrabuild/terrafusion/backend/internal/batch"
	"github.com/terrabuild/terrafusion/backend/pkg/logger"
)

// batchUploadRetention is how long finished uploads are kept
const batchUploadRetention = 30 * 24 * time.Hour

// UploadCleanupJob prunes finished batch uploads past the retention window
type UploadCleanupJob struct {
	uploads *batch.Repository
	logger  *logger.Logger
}

// NewUploadCleanupJob creates a new upload cleanup job
func NewUploadCleanupJob(uploads *batch.Repository, log *logger.Logger) *UploadCleanupJob {
	return &UploadCleanupJob{
		uploads: uploads,
		logger:  log,
	}
}

// Name returns the job name
func (j *UploadCleanupJob) Name() string {
	return "upload_cleanup"
}

// Schedule returns the cron schedule (every day at 3 AM)
func (j *UploadCleanupJob) Schedule() string {
	return "0 0 3 * * *"
}

// Run executes the cleanup
func (j *UploadCleanupJob) Run(ctx context.Context) error {
	cutoff := time.Now().Add(-batchUploadRetention)

	removed, err := j.uploads.PruneOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}

	if removed > 0 {
		j.logger.WithField("removed", removed).Info("Upload cleanup completed")
	}

	return nil
}
