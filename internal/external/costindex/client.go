package costindex

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/terrabuild/terrafusion/backend/internal/valuation"
	"github.com/terrabuild/terrafusion/backend/pkg/config"
	"github.com/terrabuild/terrafusion/backend/pkg/httputil"
	"github.com/terrabuild/terrafusion/backend/pkg/logger"
	"github.com/terrabuild/terrafusion/backend/pkg/redis"
)

// Jurisdiction identifies a county whose cost index tables are published
type Jurisdiction struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// DefaultJurisdiction is used when a request does not name one
const DefaultJurisdiction = "benton-wa"

// Jurisdictions lists the counties with published index tables
var Jurisdictions = []Jurisdiction{
	{Code: "benton-wa", Name: "Benton County, WA"},
	{Code: "king-wa", Name: "King County, WA"},
	{Code: "clark-wa", Name: "Clark County, WA"},
}

// KnownJurisdiction reports whether a code is in the published list
func KnownJurisdiction(code string) bool {
	for _, j := range Jurisdictions {
		if j.Code == code {
			return true
		}
	}
	return false
}

// IndexEntry is one row of a published construction cost index table
type IndexEntry struct {
	PropertyType valuation.PropertyType `json:"property_type"`
	Index        float64                `json:"index"`
	Year         int                    `json:"year"`
}

// Client fetches published construction cost index tables. The upstream
// publishes plain HTML pages, one table per jurisdiction and year.
type Client struct {
	http    *httputil.Client
	baseURL string
	log     *logger.Logger
}

// NewClient creates a new Client instance
func NewClient(cfg *config.Config, log *logger.Logger, limiter *redis.RateLimiter) *Client {
	httpClient := httputil.NewWithTimeout(cfg, log, cfg.CostIndex.Timeout)
	if limiter != nil {
		httpClient = httpClient.WithRateLimiter(limiter, redis.CostIndexRateLimit)
	}

	return &Client{
		http:    httpClient,
		baseURL: strings.TrimRight(cfg.CostIndex.BaseURL, "/"),
		log:     log,
	}
}

// FetchIndices downloads and parses the index table for one jurisdiction and
// year. Rows with unknown property types are skipped with a warning; an
// empty table is an error since it almost always means a layout change.
func (c *Client) FetchIndices(ctx context.Context, jurisdiction string, year int) ([]IndexEntry, error) {
	if !KnownJurisdiction(jurisdiction) {
		return nil, fmt.Errorf("unknown jurisdiction %q", jurisdiction)
	}

	url := fmt.Sprintf("%s/indices/%s/%d", c.baseURL, jurisdiction, year)

	resp, err := c.http.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch cost index page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cost index page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse cost index page: %w", err)
	}

	entries := c.parseTable(doc, year)
	if len(entries) == 0 {
		return nil, fmt.Errorf("no index rows found for %s/%d", jurisdiction, year)
	}

	return entries, nil
}

// parseTable extracts rows from the first table carrying the cost-index
// class, falling back to the first table on the page
func (c *Client) parseTable(doc *goquery.Document, year int) []IndexEntry {
	table := doc.Find("table.cost-index").First()
	if table.Length() == 0 {
		table = doc.Find("table").First()
	}

	var entries []IndexEntry
	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return // header or spacer row
		}

		rawType := strings.TrimSpace(cells.Eq(0).Text())
		propertyType := valuation.PropertyType(normalizeType(rawType))
		if !propertyType.Valid() {
			c.log.WithField("property_type", rawType).Warn("Skipping unknown cost index row")
			return
		}

		rawIndex := strings.TrimSpace(cells.Eq(1).Text())
		index, err := strconv.ParseFloat(strings.ReplaceAll(rawIndex, ",", ""), 64)
		if err != nil || index <= 0 {
			c.log.WithField("value", rawIndex).Warn("Skipping unparsable cost index value")
			return
		}

		entries = append(entries, IndexEntry{
			PropertyType: propertyType,
			Index:        index,
			Year:         year,
		})
	})

	return entries
}

// normalizeType maps the display names the upstream uses onto internal codes
func normalizeType(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.Join(strings.Fields(s), "_")
	return s
}
