package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/terrabuild/terrafusion/backend/internal/costmodel"
	"github.com/terrabuild/terrafusion/backend/internal/valuation"
	"github.com/terrabuild/terrafusion/backend/pkg/logger"
)

// ValuationHandler handles valuation API endpoints
type ValuationHandler struct {
	calculator *valuation.Calculator
	valuations *valuation.Repository
	costTables *costmodel.Repository
	model      *costmodel.Model
	paramsHash string
	logger     *logger.Logger
}

// NewValuationHandler creates a new valuation handler
func NewValuationHandler(
	valuations *valuation.Repository,
	costTables *costmodel.Repository,
	model *costmodel.Model,
	paramsHash string,
	log *logger.Logger,
) *ValuationHandler {
	return &ValuationHandler{
		calculator: valuation.NewCalculator(),
		valuations: valuations,
		costTables: costTables,
		model:      model,
		paramsHash: paramsHash,
		logger:     log,
	}
}

// ValuateRequest represents a single-property valuation request
type ValuateRequest struct {
	ParcelID      string  `json:"parcel_id,omitempty"` // when set, the result is persisted
	SquareFootage float64 `json:"square_footage"`
	YearBuilt     int     `json:"year_built"`
	City          string  `json:"city"`
	PropertyType  string  `json:"property_type"`
	Condition     string  `json:"condition,omitempty"`
	Region        string  `json:"region,omitempty"` // when set, stored cost tables override model rates
}

// ValuateResponse represents a valuation response
type ValuateResponse struct {
	ParcelID   string                     `json:"parcel_id,omitempty"`
	Result     *valuation.ValuationResult `json:"result"`
	ModelID    string                     `json:"model_id"`
	ParamsHash string                     `json:"params_hash"`
	Saved      bool                       `json:"saved"`
}

// Create computes a valuation, persisting it when a parcel id is supplied
// POST /api/valuations
func (h *ValuationHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ValuateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	attrs := valuation.PropertyAttributes{
		SquareFootage: req.SquareFootage,
		YearBuilt:     req.YearBuilt,
		City:          req.City,
		PropertyType:  valuation.PropertyType(req.PropertyType),
		Condition:     valuation.Condition(req.Condition),
	}

	params := h.model.Parameters
	paramsHash := h.paramsHash
	if req.Region != "" {
		regionParams, err := h.costTables.ParametersFor(ctx, req.Region, h.model.Meta.AssessmentYear, h.model.Parameters.MarketMultiplier)
		if err != nil {
			h.logger.WithError(err).Error("Failed to assemble region parameters")
			respondError(w, http.StatusInternalServerError, "Failed to load cost tables for region")
			return
		}

		hash, err := costmodel.Hash(&costmodel.Model{Meta: h.model.Meta, Parameters: regionParams})
		if err != nil {
			h.logger.WithError(err).Error("Failed to hash region parameters")
			respondError(w, http.StatusInternalServerError, "Failed to load cost tables for region")
			return
		}

		params = regionParams
		paramsHash = hash
	}

	result, err := h.calculator.Valuate(attrs, params, time.Now().Year())
	if err != nil {
		respondValuationError(w, err)
		return
	}

	resp := ValuateResponse{
		ParcelID:   req.ParcelID,
		Result:     result,
		ModelID:    h.model.Meta.ModelID,
		ParamsHash: paramsHash,
	}

	if req.ParcelID != "" {
		record := &valuation.Record{
			ParcelID:   req.ParcelID,
			Attributes: attrs,
			Result:     *result,
			ParamsHash: paramsHash,
		}
		if err := h.valuations.Save(ctx, record); err != nil {
			h.logger.WithError(err).WithField("parcel_id", req.ParcelID).Error("Failed to save valuation")
			respondError(w, http.StatusInternalServerError, "Failed to save valuation")
			return
		}
		resp.Saved = true
	}

	respondJSON(w, http.StatusOK, resp)
}

// History returns the stored valuations for a parcel, newest first
// GET /api/valuations/{parcelID}/history
func (h *ValuationHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	parcelID := mux.Vars(r)["parcelID"]

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	records, err := h.valuations.History(ctx, parcelID, limit)
	if err != nil {
		h.logger.WithError(err).WithField("parcel_id", parcelID).Error("Failed to get valuation history")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve valuation history")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"parcel_id": parcelID,
		"count":     len(records),
		"history":   records,
	})
}
