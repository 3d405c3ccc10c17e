package handlers

import (
	"net/http"

	"github.com/terrabuild/terrafusion/backend/internal/costmodel"
	"github.com/terrabuild/terrafusion/backend/pkg/database"
	"github.com/terrabuild/terrafusion/backend/pkg/logger"
	"github.com/terrabuild/terrafusion/backend/pkg/redis"
)

// HealthHandler reports service health
type HealthHandler struct {
	db     *database.DB
	redis  *redis.Client
	model  *costmodel.Model
	logger *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.DB, redisClient *redis.Client, model *costmodel.Model, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		redis:  redisClient,
		model:  model,
		logger: log,
	}
}

// Check returns service and dependency health
// GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	dbStatus, err := h.db.HealthCheck(ctx)
	status := http.StatusOK
	overall := "ok"
	if err != nil {
		h.logger.WithError(err).Error("Database health check failed")
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	respondJSON(w, status, map[string]interface{}{
		"status":        overall,
		"service":       "terrafusion-api",
		"database":      dbStatus,
		"redis_enabled": h.redis.Enabled(),
		"model_id":      h.model.Meta.ModelID,
		"jurisdiction":  h.model.Meta.Jurisdiction,
	})
}
