package jobs

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrabuild/terrafusion/backend/internal/costmodel"
	"github.com/terrabuild/terrafusion/backend/internal/external/costindex"
	"github.com/terrabuild/terrafusion/backend/internal/valuation"
	"github.com/terrabuild/terrafusion/backend/pkg/config"
	"github.com/terrabuild/terrafusion/backend/pkg/logger"
)

const refreshPage = `<html><body>
<table class="cost-index">
  <tr><th>Property Type</th><th>Index</th></tr>
  <tr><td>Single Family</td><td>148.5</td></tr>
  <tr><td>Condo</td><td>112.0</td></tr>
</table>
</body></html>`

type fakeCostTableStore struct {
	mu      sync.Mutex
	rows    []costmodel.CostTableEntry
	failAll bool
}

func (f *fakeCostTableStore) BulkImport(_ context.Context, entries []costmodel.CostTableEntry) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAll {
		return 0, fmt.Errorf("simulated import failure")
	}
	f.rows = append(f.rows, entries...)
	return len(entries), nil
}

func newRefreshJob(t *testing.T, baseURL string, store costTableStore) *CostIndexRefreshJob {
	t.Helper()

	cfg := &config.Config{Env: "development", LogLevel: "error", LogFormat: "json"}
	cfg.CostIndex.BaseURL = baseURL
	cfg.CostIndex.Timeout = 5 * time.Second

	log := logger.New(cfg)
	client := costindex.NewClient(cfg, log, nil)

	return NewCostIndexRefreshJob(client, store, "0 0 4 * * *", log)
}

func TestCostIndexRefreshImportsRates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(refreshPage))
	}))
	defer server.Close()

	store := &fakeCostTableStore{}
	job := newRefreshJob(t, server.URL, store)

	require.NoError(t, job.Run(context.Background()))

	// Two parsed rows per jurisdiction land in the cost table
	require.Len(t, store.rows, 2*len(costindex.Jurisdictions))

	regions := make(map[string]bool)
	for _, row := range store.rows {
		regions[row.Region] = true
		assert.Equal(t, time.Now().Year(), row.Year)
		assert.Contains(t, row.Source, "cost index")
		assert.False(t, row.EffectiveDate.IsZero())
	}
	for _, jurisdiction := range costindex.Jurisdictions {
		assert.True(t, regions[jurisdiction.Code], "missing rows for %s", jurisdiction.Code)
	}

	assert.Equal(t, valuation.SingleFamily, store.rows[0].PropertyType)
	assert.Equal(t, 148.5, store.rows[0].CostPerSqft)
}

func TestCostIndexRefreshFailsWhenNothingFetched(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	store := &fakeCostTableStore{}
	job := newRefreshJob(t, server.URL, store)

	err := job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed for all")
	assert.Empty(t, store.rows)
}

func TestCostIndexRefreshFailsWhenNothingImported(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(refreshPage))
	}))
	defer server.Close()

	store := &fakeCostTableStore{failAll: true}
	job := newRefreshJob(t, server.URL, store)

	err := job.Run(context.Background())
	require.Error(t, err)
}
