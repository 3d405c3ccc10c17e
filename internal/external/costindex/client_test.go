package costindex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terrabuild/terrafusion/backend/internal/valuation"
	"github.com/terrabuild/terrafusion/backend/pkg/config"
	"github.com/terrabuild/terrafusion/backend/pkg/logger"
)

const indexPage = `<!DOCTYPE html>
<html>
<body>
<h1>Construction Cost Indices - 2025</h1>
<table class="cost-index">
  <tr><th>Property Type</th><th>Index</th></tr>
  <tr><td>Single Family</td><td>145.0</td></tr>
  <tr><td>Condo</td><td>110.5</td></tr>
  <tr><td>Mobile-Home</td><td>65.2</td></tr>
  <tr><td>Castle</td><td>999.0</td></tr>
  <tr><td>Commercial</td><td>n/a</td></tr>
</table>
</body>
</html>`

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	cfg := &config.Config{
		Env:       "development",
		LogLevel:  "error",
		LogFormat: "json",
	}
	cfg.CostIndex.BaseURL = baseURL
	cfg.CostIndex.Timeout = 5 * time.Second

	return NewClient(cfg, logger.New(cfg), nil)
}

func TestFetchIndices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/indices/benton-wa/2025", r.URL.Path)
		w.Write([]byte(indexPage))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	entries, err := client.FetchIndices(context.Background(), "benton-wa", 2025)
	require.NoError(t, err)

	// Unknown type and unparsable value are skipped
	require.Len(t, entries, 3)

	assert.Equal(t, valuation.SingleFamily, entries[0].PropertyType)
	assert.Equal(t, 145.0, entries[0].Index)
	assert.Equal(t, 2025, entries[0].Year)

	assert.Equal(t, valuation.Condo, entries[1].PropertyType)
	assert.Equal(t, 110.5, entries[1].Index)

	// Display name with hyphen normalizes to the internal code
	assert.Equal(t, valuation.MobileHome, entries[2].PropertyType)
}

func TestFetchIndicesUnknownJurisdiction(t *testing.T) {
	client := newTestClient(t, "http://localhost:1")

	_, err := client.FetchIndices(context.Background(), "harris-tx", 2025)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown jurisdiction")
}

func TestFetchIndicesEmptyTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("<html><body><p>maintenance</p></body></html>"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.FetchIndices(context.Background(), "benton-wa", 2025)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no index rows")
}

func TestFetchIndicesHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)

	_, err := client.FetchIndices(context.Background(), "king-wa", 2025)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestKnownJurisdiction(t *testing.T) {
	assert.True(t, KnownJurisdiction(DefaultJurisdiction))
	assert.True(t, KnownJurisdiction("clark-wa"))
	assert.False(t, KnownJurisdiction("harris-tx"))
}
