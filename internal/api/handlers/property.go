package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/terrabuild/terrafusion/backend/internal/property"
	"github.com/terrabuild/terrafusion/backend/internal/valuation"
	"github.com/terrabuild/terrafusion/backend/pkg/logger"
)

// PropertyHandler handles property API endpoints
type PropertyHandler struct {
	properties *property.Repository
	logger     *logger.Logger
}

// NewPropertyHandler creates a new property handler
func NewPropertyHandler(properties *property.Repository, log *logger.Logger) *PropertyHandler {
	return &PropertyHandler{
		properties: properties,
		logger:     log,
	}
}

// Create registers a new parcel
// POST /api/properties
func (h *PropertyHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var p property.Property
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if p.ParcelID == "" {
		respondError(w, http.StatusBadRequest, "parcel_id is required")
		return
	}
	if !p.PropertyType.Valid() {
		respondError(w, http.StatusBadRequest, "unrecognized property_type")
		return
	}
	if p.SquareFootage <= 0 {
		respondError(w, http.StatusBadRequest, "square_footage must be positive")
		return
	}
	if p.Condition != "" && !p.Condition.Valid() {
		respondError(w, http.StatusBadRequest, "unrecognized condition")
		return
	}

	if err := h.properties.Create(ctx, &p); err != nil {
		h.logger.WithError(err).WithField("parcel_id", p.ParcelID).Error("Failed to create property")
		respondError(w, http.StatusInternalServerError, "Failed to create property")
		return
	}

	respondJSON(w, http.StatusCreated, p)
}

// Get returns a parcel by its assessor parcel number
// GET /api/properties/{parcelID}
func (h *PropertyHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	parcelID := mux.Vars(r)["parcelID"]

	p, err := h.properties.GetByParcelID(ctx, parcelID)
	if errors.Is(err, property.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Property not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("parcel_id", parcelID).Error("Failed to get property")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve property")
		return
	}

	respondJSON(w, http.StatusOK, p)
}

// List returns parcels matching the query filters
// GET /api/properties?region=&property_type=&year_from=&year_to=&limit=&offset=
func (h *PropertyHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := property.ListFilter{
		Region:       query.Get("region"),
		PropertyType: valuation.PropertyType(query.Get("property_type")),
	}
	filter.YearFrom, _ = strconv.Atoi(query.Get("year_from"))
	filter.YearTo, _ = strconv.Atoi(query.Get("year_to"))
	filter.Limit, _ = strconv.Atoi(query.Get("limit"))
	filter.Offset, _ = strconv.Atoi(query.Get("offset"))

	if filter.PropertyType != "" && !filter.PropertyType.Valid() {
		respondError(w, http.StatusBadRequest, "unrecognized property_type")
		return
	}

	properties, total, err := h.properties.List(ctx, filter)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list properties")
		respondError(w, http.StatusInternalServerError, "Failed to list properties")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"total":      total,
		"count":      len(properties),
		"properties": properties,
	})
}
