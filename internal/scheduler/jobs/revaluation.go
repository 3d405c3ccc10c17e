package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/terrabuild/terrafusion/backend/internal/batch"
	"github.com/terrabuild/terrafusion/backend/internal/costmodel"
	"github.com/terrabuild/terrafusion/backend/internal/property"
	"github.com/terrabuild/terrafusion/backend/pkg/logger"
)

// RevaluationJob re-values every parcel on the roll against the current cost
// model. It reuses the batch engine so the run shows up in upload history
// with progress and an error log like any other batch.
type RevaluationJob struct {
	properties *property.Repository
	uploads    *batch.Repository
	engine     *batch.Engine
	model      *costmodel.Model
	paramsHash string
	logger     *logger.Logger
}

// NewRevaluationJob creates a new revaluation job
func NewRevaluationJob(
	properties *property.Repository,
	uploads *batch.Repository,
	engine *batch.Engine,
	model *costmodel.Model,
	paramsHash string,
	log *logger.Logger,
) *RevaluationJob {
	return &RevaluationJob{
		properties: properties,
		uploads:    uploads,
		engine:     engine,
		model:      model,
		paramsHash: paramsHash,
		logger:     log,
	}
}

// Name returns the job name
func (j *RevaluationJob) Name() string {
	return "annual_revaluation"
}

// Schedule returns the cron schedule (every day at 2 AM)
func (j *RevaluationJob) Schedule() string {
	return "0 0 2 * * *"
}

// Run executes the revaluation
func (j *RevaluationJob) Run(ctx context.Context) error {
	records, err := j.loadAllProperties(ctx)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		j.logger.Info("No properties on the roll, skipping revaluation")
		return nil
	}

	upload := &batch.Upload{
		ID:           uuid.NewString(),
		Filename:     "annual-revaluation",
		FileType:     "system",
		Status:       batch.StatusProcessing,
		TotalRecords: len(records),
	}
	if err := j.uploads.Create(ctx, upload); err != nil {
		return fmt.Errorf("create revaluation upload: %w", err)
	}

	j.engine.Run(ctx, upload, records, nil,
		j.model.Parameters, j.paramsHash, time.Now().Year())

	return nil
}

// loadAllProperties pages through the roll
func (j *RevaluationJob) loadAllProperties(ctx context.Context) ([]property.Property, error) {
	const pageSize = 500

	var all []property.Property
	for offset := 0; ; offset += pageSize {
		page, _, err := j.properties.List(ctx, property.ListFilter{Limit: pageSize, Offset: offset})
		if err != nil {
			return nil, fmt.Errorf("list properties: %w", err)
		}
		all = append(all, page...)

		if len(page) < pageSize {
			return all, nil
		}
	}
}
