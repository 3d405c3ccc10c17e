package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/terrabuild/terrafusion/backend/internal/costmodel"
	"github.com/terrabuild/terrafusion/backend/internal/external/costindex"
	"github.com/terrabuild/terrafusion/backend/internal/valuation"
	"github.com/terrabuild/terrafusion/backend/pkg/logger"
	"github.com/terrabuild/terrafusion/backend/pkg/redis"
)

// CostTableHandler handles cost-table and location-multiplier endpoints
type CostTableHandler struct {
	costTables *costmodel.Repository
	cache      *redis.Cache
	logger     *logger.Logger
}

// NewCostTableHandler creates a new cost table handler
func NewCostTableHandler(costTables *costmodel.Repository, client *redis.Client, log *logger.Logger) *CostTableHandler {
	return &CostTableHandler{
		costTables: costTables,
		cache:      redis.NewCache(client, "costmodel"),
		logger:     log,
	}
}

// CostTableRequest represents a create/update payload
type CostTableRequest struct {
	PropertyType  string  `json:"property_type"`
	Region        string  `json:"region"`
	Year          int     `json:"year"`
	CostPerSqft   float64 `json:"cost_per_sqft"`
	Source        string  `json:"source,omitempty"`
	Notes         string  `json:"notes,omitempty"`
	EffectiveDate string  `json:"effective_date,omitempty"` // YYYY-MM-DD, defaults to today
}

func (req *CostTableRequest) toEntry() (*costmodel.CostTableEntry, error) {
	propertyType := valuation.PropertyType(req.PropertyType)
	if !propertyType.Valid() {
		return nil, errors.New("unrecognized property_type")
	}
	if req.Region == "" {
		return nil, errors.New("region is required")
	}
	if req.Year < 1900 {
		return nil, errors.New("year is implausible")
	}
	if req.CostPerSqft <= 0 {
		return nil, errors.New("cost_per_sqft must be positive")
	}

	effectiveDate := time.Now()
	if req.EffectiveDate != "" {
		parsed, err := time.Parse("2006-01-02", req.EffectiveDate)
		if err != nil {
			return nil, errors.New("invalid effective_date format (expected YYYY-MM-DD)")
		}
		effectiveDate = parsed
	}

	return &costmodel.CostTableEntry{
		PropertyType:  propertyType,
		Region:        req.Region,
		Year:          req.Year,
		CostPerSqft:   req.CostPerSqft,
		Source:        req.Source,
		Notes:         req.Notes,
		EffectiveDate: effectiveDate,
	}, nil
}

// Create inserts a new cost-table entry
// POST /api/cost-tables
func (h *CostTableHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CostTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	entry, err := req.toEntry()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.costTables.Create(ctx, entry); err != nil {
		h.logger.WithError(err).Error("Failed to create cost table entry")
		respondError(w, http.StatusInternalServerError, "Failed to create cost table entry")
		return
	}

	h.invalidateLookup(ctx, entry)
	respondJSON(w, http.StatusCreated, entry)
}

// Get returns one entry by id
// GET /api/cost-tables/{id}
func (h *CostTableHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	entry, err := h.costTables.Get(ctx, id)
	if errors.Is(err, costmodel.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Cost table entry not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get cost table entry")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve cost table entry")
		return
	}

	respondJSON(w, http.StatusOK, entry)
}

// Update modifies an existing entry
// PUT /api/cost-tables/{id}
func (h *CostTableHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	var req CostTableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.CostPerSqft <= 0 {
		respondError(w, http.StatusBadRequest, "cost_per_sqft must be positive")
		return
	}

	err = h.costTables.Update(ctx, id, req.CostPerSqft, req.Source, req.Notes)
	if errors.Is(err, costmodel.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Cost table entry not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to update cost table entry")
		respondError(w, http.StatusInternalServerError, "Failed to update cost table entry")
		return
	}

	entry, err := h.costTables.Get(ctx, id)
	if err != nil {
		respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
		return
	}

	h.invalidateLookup(ctx, entry)
	respondJSON(w, http.StatusOK, entry)
}

// Delete removes an entry
// DELETE /api/cost-tables/{id}
func (h *CostTableHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid id")
		return
	}

	entry, _ := h.costTables.Get(ctx, id)

	err = h.costTables.Delete(ctx, id)
	if errors.Is(err, costmodel.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Cost table entry not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to delete cost table entry")
		respondError(w, http.StatusInternalServerError, "Failed to delete cost table entry")
		return
	}

	if entry != nil {
		h.invalidateLookup(ctx, entry)
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// List returns entries matching the query filters
// GET /api/cost-tables?property_type=&region=&year=&limit=&offset=
func (h *CostTableHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := costmodel.ListFilter{
		PropertyType: valuation.PropertyType(query.Get("property_type")),
		Region:       query.Get("region"),
	}
	filter.Year, _ = strconv.Atoi(query.Get("year"))
	filter.Limit, _ = strconv.Atoi(query.Get("limit"))
	filter.Offset, _ = strconv.Atoi(query.Get("offset"))

	entries, total, err := h.costTables.List(ctx, filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list cost table entries")
		respondError(w, http.StatusInternalServerError, "Failed to list cost table entries")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"total":   total,
		"count":   len(entries),
		"entries": entries,
	})
}

// Lookup returns the latest-version rate for a type/region/year, cached
// GET /api/cost-tables/lookup?property_type=&region=&year=
func (h *CostTableHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	propertyType := valuation.PropertyType(query.Get("property_type"))
	region := query.Get("region")
	year, _ := strconv.Atoi(query.Get("year"))

	if !propertyType.Valid() || region == "" || year == 0 {
		respondError(w, http.StatusBadRequest, "property_type, region, and year are required")
		return
	}

	var entry costmodel.CostTableEntry
	key := redis.CostTableKey(string(propertyType), region, year)
	err := h.cache.GetOrSet(ctx, key, &entry, redis.TTLMedium, func() (interface{}, error) {
		return h.costTables.Lookup(ctx, propertyType, region, year)
	})
	if errors.Is(err, costmodel.ErrNotFound) {
		respondError(w, http.StatusNotFound, "No cost factor for that type, region, and year")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to look up cost factor")
		respondError(w, http.StatusInternalServerError, "Failed to look up cost factor")
		return
	}

	respondJSON(w, http.StatusOK, entry)
}

// BulkImportRequest carries many entries at once
type BulkImportRequest struct {
	Entries []CostTableRequest `json:"entries"`
}

// BulkImport inserts many entries in one transaction
// POST /api/cost-tables/bulk
func (h *CostTableHandler) BulkImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req BulkImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Entries) == 0 {
		respondError(w, http.StatusBadRequest, "entries must not be empty")
		return
	}

	entries := make([]costmodel.CostTableEntry, 0, len(req.Entries))
	for i := range req.Entries {
		entry, err := req.Entries[i].toEntry()
		if err != nil {
			respondError(w, http.StatusBadRequest, "entry "+strconv.Itoa(i)+": "+err.Error())
			return
		}
		entries = append(entries, *entry)
	}

	inserted, err := h.costTables.BulkImport(ctx, entries)
	if err != nil {
		h.logger.WithError(err).Error("Failed to bulk import cost table entries")
		respondError(w, http.StatusInternalServerError, "Failed to import cost table entries")
		return
	}

	for i := range entries {
		h.invalidateLookup(ctx, &entries[i])
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "success",
		"inserted": inserted,
	})
}

// LocationMultipliers returns all stored city multipliers, cached
// GET /api/location-multipliers
func (h *CostTableHandler) LocationMultipliers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var multipliers map[string]float64
	err := h.cache.GetOrSet(ctx, redis.LocationMultiplierKey("all"), &multipliers, redis.TTLLong,
		func() (interface{}, error) {
			return h.costTables.LocationMultipliers(ctx)
		})
	if err != nil {
		h.logger.WithError(err).Error("Failed to list location multipliers")
		respondError(w, http.StatusInternalServerError, "Failed to list location multipliers")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":       len(multipliers),
		"multipliers": multipliers,
	})
}

// LocationMultiplierRequest sets one city multiplier
type LocationMultiplierRequest struct {
	City       string  `json:"city"`
	Multiplier float64 `json:"multiplier"`
	Source     string  `json:"source,omitempty"`
}

// UpsertLocationMultiplier stores the multiplier for a city
// PUT /api/location-multipliers
func (h *CostTableHandler) UpsertLocationMultiplier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req LocationMultiplierRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.City == "" {
		respondError(w, http.StatusBadRequest, "city is required")
		return
	}
	if req.Multiplier <= 0 {
		respondError(w, http.StatusBadRequest, "multiplier must be positive")
		return
	}

	if err := h.costTables.UpsertLocationMultiplier(ctx, req.City, req.Multiplier, req.Source); err != nil {
		h.logger.WithError(err).Error("Failed to upsert location multiplier")
		respondError(w, http.StatusInternalServerError, "Failed to store location multiplier")
		return
	}

	_ = h.cache.Delete(ctx, redis.LocationMultiplierKey("all"))

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"city":       req.City,
		"multiplier": req.Multiplier,
	})
}

// Jurisdictions returns the jurisdictions with published cost indices
// GET /api/jurisdictions
func (h *CostTableHandler) Jurisdictions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"default":       costindex.DefaultJurisdiction,
		"jurisdictions": costindex.Jurisdictions,
	})
}

// invalidateLookup drops the cached rate a changed entry may shadow
func (h *CostTableHandler) invalidateLookup(ctx context.Context, entry *costmodel.CostTableEntry) {
	key := redis.CostTableKey(string(entry.PropertyType), entry.Region, entry.Year)
	_ = h.cache.Delete(ctx, key)
}
