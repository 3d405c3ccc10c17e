package batch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrabuild/terrafusion/backend/internal/costmodel"
	"github.com/terrabuild/terrafusion/backend/internal/property"
	"github.com/terrabuild/terrafusion/backend/internal/valuation"
	"github.com/terrabuild/terrafusion/backend/pkg/config"
	"github.com/terrabuild/terrafusion/backend/pkg/logger"
)

type fakePropertyStore struct {
	mu      sync.Mutex
	upserts []string
	failOn  string
}

func (f *fakePropertyStore) Upsert(_ context.Context, p *property.Property) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p.ParcelID == f.failOn {
		return fmt.Errorf("simulated upsert failure")
	}
	f.upserts = append(f.upserts, p.ParcelID)
	return nil
}

type fakeValuationStore struct {
	mu    sync.Mutex
	saved []valuation.Record
}

func (f *fakeValuationStore) Save(_ context.Context, rec *valuation.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.saved = append(f.saved, *rec)
	return nil
}

type fakeUploadStore struct {
	mu           sync.Mutex
	finishStatus string
	errorLog     string
	processed    int
	errors       int
}

func (f *fakeUploadStore) UpdateProgress(_ context.Context, _ string, processed, errors int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.processed = processed
	f.errors = errors
	return nil
}

func (f *fakeUploadStore) Finish(_ context.Context, _, status, errorLog string, processed, errors int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.finishStatus = status
	f.errorLog = errorLog
	f.processed = processed
	f.errors = errors
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(&config.Config{Env: "development", LogLevel: "error", LogFormat: "json"})
}

func testRecords(n int) []property.Property {
	records := make([]property.Property, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, property.Property{
			ParcelID:      fmt.Sprintf("1-%04d", i),
			Address:       fmt.Sprintf("%d Main St", i),
			City:          "Richland",
			Region:        "benton",
			PropertyType:  valuation.SingleFamily,
			SquareFootage: 1800 + float64(i),
			YearBuilt:     1990,
			Condition:     valuation.ConditionGood,
		})
	}
	return records
}

func TestEngineRun(t *testing.T) {
	properties := &fakePropertyStore{}
	valuations := &fakeValuationStore{}
	uploads := &fakeUploadStore{}
	tracker := NewTracker()

	engine := NewEngine(properties, valuations, uploads, tracker,
		Config{Workers: 3, RatePerSecond: 10000}, testLogger())

	records := testRecords(20)
	upload := &Upload{ID: "u-1", TotalRecords: len(records), Status: StatusProcessing}

	done := tracker.Subscribe(upload.ID)

	engine.Run(context.Background(), upload, records, nil,
		costmodel.Defaults(), "hash-1", 2025)

	assert.Equal(t, StatusCompleted, uploads.finishStatus)
	assert.Equal(t, 20, uploads.processed)
	assert.Equal(t, 0, uploads.errors)
	assert.Empty(t, uploads.errorLog)
	assert.Len(t, properties.upserts, 20)
	assert.Len(t, valuations.saved, 20)

	// Every persisted valuation carries the parameter hash
	for _, rec := range valuations.saved {
		assert.Equal(t, "hash-1", rec.ParamsHash)
		assert.Greater(t, rec.Result.EstimatedValue, 0.0)
	}

	// The subscriber channel closes on the final snapshot
	var final Progress
	deadline := time.After(2 * time.Second)
	for {
		select {
		case p, ok := <-done:
			if !ok {
				require.True(t, final.Done, "channel closed before final snapshot")
				assert.Equal(t, StatusCompleted, final.Status)
				assert.Equal(t, 20, final.Processed)
				return
			}
			final = p
		case <-deadline:
			t.Fatal("timed out waiting for progress updates")
		}
	}
}

func TestEngineRunAccumulatesErrors(t *testing.T) {
	properties := &fakePropertyStore{failOn: "1-0003"}
	valuations := &fakeValuationStore{}
	uploads := &fakeUploadStore{}

	engine := NewEngine(properties, valuations, uploads, NewTracker(),
		Config{Workers: 2, RatePerSecond: 10000}, testLogger())

	records := testRecords(10)
	rowErrors := []RowError{{Line: 12, Reason: "unrecognized property_type \"castle\""}}
	upload := &Upload{ID: "u-2", TotalRecords: len(records) + 1, Status: StatusProcessing}

	engine.Run(context.Background(), upload, records, rowErrors,
		costmodel.Defaults(), "hash-2", 2025)

	assert.Equal(t, StatusCompleted, uploads.finishStatus)
	assert.Equal(t, 10, uploads.processed)
	assert.Equal(t, 2, uploads.errors)
	assert.Contains(t, uploads.errorLog, "line 12")
	assert.Contains(t, uploads.errorLog, "1-0003")
	assert.Len(t, valuations.saved, 9)
}

func TestEngineRunFailsWhenNothingProcessable(t *testing.T) {
	uploads := &fakeUploadStore{}

	engine := NewEngine(&fakePropertyStore{}, &fakeValuationStore{}, uploads, NewTracker(),
		Config{Workers: 2, RatePerSecond: 10000}, testLogger())

	rowErrors := []RowError{
		{Line: 2, Reason: "parcel_id is required"},
		{Line: 3, Reason: "square_footage must be a positive number"},
	}
	upload := &Upload{ID: "u-3", TotalRecords: 2, Status: StatusProcessing}

	engine.Run(context.Background(), upload, nil, rowErrors,
		costmodel.Defaults(), "hash-3", 2025)

	assert.Equal(t, StatusFailed, uploads.finishStatus)
	assert.Equal(t, 0, uploads.processed)
	assert.Equal(t, 2, uploads.errors)
}

func TestTrackerLatest(t *testing.T) {
	tracker := NewTracker()

	_, ok := tracker.Latest("missing")
	assert.False(t, ok)

	tracker.Publish(Progress{UploadID: "u-9", Status: StatusProcessing, Processed: 5})

	p, ok := tracker.Latest("u-9")
	require.True(t, ok)
	assert.Equal(t, 5, p.Processed)

	// Late subscriber receives the latest snapshot immediately
	ch := tracker.Subscribe("u-9")
	select {
	case got := <-ch:
		assert.Equal(t, 5, got.Processed)
	case <-time.After(time.Second):
		t.Fatal("expected buffered snapshot")
	}
	tracker.Unsubscribe("u-9", ch)
}

func TestTrackerSubscribeDuringFinalPublish(t *testing.T) {
	// Whatever order the two land in, the subscriber must end on a final
	// snapshot or a closed channel, never a send on a closed channel.
	for i := 0; i < 200; i++ {
		tracker := NewTracker()
		tracker.Publish(Progress{UploadID: "u-7", Status: StatusProcessing, Processed: 1})

		var wg sync.WaitGroup
		wg.Add(2)

		var ch chan Progress
		go func() {
			defer wg.Done()
			ch = tracker.Subscribe("u-7")
		}()
		go func() {
			defer wg.Done()
			tracker.Publish(Progress{
				UploadID: "u-7", Status: StatusCompleted, Processed: 2, Done: true,
			})
		}()
		wg.Wait()

		sawEnd := false
		for !sawEnd {
			select {
			case p, ok := <-ch:
				sawEnd = !ok || p.Done
			case <-time.After(time.Second):
				t.Fatal("subscriber never saw the final snapshot")
			}
		}
	}
}
