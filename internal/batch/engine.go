package batch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/terrabuild/terrafusion/backend/internal/property"
	"github.com/terrabuild/terrafusion/backend/internal/valuation"
	"github.com/terrabuild/terrafusion/backend/pkg/logger"
)

// propertyStore is the slice of the property repository the engine needs
type propertyStore interface {
	Upsert(ctx context.Context, p *property.Property) error
}

// valuationStore is the slice of the valuation repository the engine needs
type valuationStore interface {
	Save(ctx context.Context, rec *valuation.Record) error
}

// uploadStore is the slice of the batch repository the engine needs
type uploadStore interface {
	UpdateProgress(ctx context.Context, id string, processed, errors int) error
	Finish(ctx context.Context, id, status, errorLog string, processed, errors int) error
}

// Config controls engine concurrency and throughput
type Config struct {
	Workers       int
	RatePerSecond float64
}

// itemResult is the outcome of valuing one record
type itemResult struct {
	parcelID string
	err      error
}

// Engine values uploaded property records across a worker pool. Each record
// is upserted, valued, and its result persisted; failures are accumulated
// into the upload's error log without stopping the run.
type Engine struct {
	properties propertyStore
	valuations valuationStore
	uploads    uploadStore
	calculator *valuation.Calculator
	tracker    *Tracker
	limiter    *rate.Limiter
	workers    int
	log        *logger.Logger
}

// NewEngine creates a new Engine instance
func NewEngine(
	properties propertyStore,
	valuations valuationStore,
	uploads uploadStore,
	tracker *Tracker,
	cfg Config,
	log *logger.Logger,
) *Engine {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 5
	}

	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = 200
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}

	return &Engine{
		properties: properties,
		valuations: valuations,
		uploads:    uploads,
		calculator: valuation.NewCalculator(),
		tracker:    tracker,
		limiter:    rate.NewLimiter(rate.Limit(perSecond), burst),
		workers:    workers,
		log:        log,
	}
}

// Run values every record of an upload and finalizes its status. Row errors
// from the CSV parse are folded into the error log alongside valuation
// failures. Run blocks until the upload is finished; callers start it in a
// goroutine.
func (e *Engine) Run(
	ctx context.Context,
	upload *Upload,
	records []property.Property,
	rowErrors []RowError,
	params valuation.CostModelParameters,
	paramsHash string,
	currentYear int,
) {
	start := time.Now()

	e.log.WithFields(map[string]interface{}{
		"upload_id": upload.ID,
		"records":   len(records),
		"workers":   e.workers,
	}).Info("Batch valuation started")

	e.tracker.Publish(Progress{
		UploadID: upload.ID,
		Status:   StatusProcessing,
		Total:    upload.TotalRecords,
	})

	jobs := make(chan property.Property, len(records))
	results := make(chan itemResult, len(records))

	var wg sync.WaitGroup
	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go e.worker(ctx, &wg, jobs, results, params, paramsHash, currentYear)
	}

	for _, rec := range records {
		jobs <- rec
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	var (
		processed int
		errLines  []string
	)
	for _, re := range rowErrors {
		errLines = append(errLines, re.Error())
	}

	for res := range results {
		processed++
		if res.err != nil {
			errLines = append(errLines, fmt.Sprintf("%s: %v", res.parcelID, res.err))
		}

		if processed%50 == 0 || processed == len(records) {
			e.publishProgress(ctx, upload, processed, len(errLines), false)
		}
	}

	status := StatusCompleted
	if processed == 0 && len(errLines) > 0 {
		status = StatusFailed
	}

	errorLog := strings.Join(errLines, "\n")
	if err := e.uploads.Finish(ctx, upload.ID, status, errorLog, processed, len(errLines)); err != nil {
		e.log.WithError(err).WithField("upload_id", upload.ID).Error("Failed to finalize batch upload")
	}

	e.tracker.Publish(Progress{
		UploadID:  upload.ID,
		Status:    status,
		Total:     upload.TotalRecords,
		Processed: processed,
		Errors:    len(errLines),
		Done:      true,
	})

	e.log.WithFields(map[string]interface{}{
		"upload_id": upload.ID,
		"status":    status,
		"processed": processed,
		"errors":    len(errLines),
		"elapsed":   time.Since(start).String(),
	}).Info("Batch valuation finished")
}

// worker values records from the jobs channel until it closes or the
// context is canceled
func (e *Engine) worker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan property.Property,
	results chan<- itemResult,
	params valuation.CostModelParameters,
	paramsHash string,
	currentYear int,
) {
	defer wg.Done()

	for rec := range jobs {
		select {
		case <-ctx.Done():
			results <- itemResult{parcelID: rec.ParcelID, err: ctx.Err()}
			continue
		default:
		}

		if err := e.limiter.Wait(ctx); err != nil {
			results <- itemResult{parcelID: rec.ParcelID, err: err}
			continue
		}

		results <- itemResult{
			parcelID: rec.ParcelID,
			err:      e.processOne(ctx, rec, params, paramsHash, currentYear),
		}
	}
}

// processOne upserts the parcel, values it, and persists the result
func (e *Engine) processOne(
	ctx context.Context,
	rec property.Property,
	params valuation.CostModelParameters,
	paramsHash string,
	currentYear int,
) error {
	if err := e.properties.Upsert(ctx, &rec); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}

	result, err := e.calculator.Valuate(rec.Attributes(), params, currentYear)
	if err != nil {
		return fmt.Errorf("valuate: %w", err)
	}

	record := &valuation.Record{
		ParcelID:   rec.ParcelID,
		Attributes: rec.Attributes(),
		Result:     *result,
		ParamsHash: paramsHash,
	}
	if err := e.valuations.Save(ctx, record); err != nil {
		return fmt.Errorf("save valuation: %w", err)
	}

	return nil
}

func (e *Engine) publishProgress(ctx context.Context, upload *Upload, processed, errors int, done bool) {
	if err := e.uploads.UpdateProgress(ctx, upload.ID, processed, errors); err != nil {
		e.log.WithError(err).WithField("upload_id", upload.ID).Warn("Failed to update batch progress")
	}

	e.tracker.Publish(Progress{
		UploadID:  upload.ID,
		Status:    StatusProcessing,
		Total:     upload.TotalRecords,
		Processed: processed,
		Errors:    errors,
		Done:      done,
	})
}
