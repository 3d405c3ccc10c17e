package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/terrabuild/terrafusion/backend/internal/api/handlers"
	"github.com/terrabuild/terrafusion/backend/pkg/logger"
	"github.com/terrabuild/terrafusion/backend/pkg/redis"
)

// Handlers bundles every endpoint group the router mounts
type Handlers struct {
	Health    *handlers.HealthHandler
	Valuation *handlers.ValuationHandler
	Property  *handlers.PropertyHandler
	CostTable *handlers.CostTableHandler
	Batch     *handlers.BatchHandler
	Report    *handlers.ReportHandler
	Session   *handlers.SessionHandler
}

// NewRouter creates and configures the HTTP router
func NewRouter(h Handlers, limiter *redis.RateLimiter, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", h.Health.Check).Methods("GET")

	// API v1
	api := r.PathPrefix("/api").Subrouter()
	api.Use(rateLimitMiddleware(limiter, log))

	// Valuation endpoints
	api.HandleFunc("/valuations", h.Valuation.Create).Methods("POST")
	api.HandleFunc("/valuations/{parcelID}/history", h.Valuation.History).Methods("GET")

	// Property endpoints
	api.HandleFunc("/properties", h.Property.Create).Methods("POST")
	api.HandleFunc("/properties", h.Property.List).Methods("GET")
	api.HandleFunc("/properties/{parcelID}", h.Property.Get).Methods("GET")

	// Cost table endpoints
	api.HandleFunc("/cost-tables", h.CostTable.Create).Methods("POST")
	api.HandleFunc("/cost-tables", h.CostTable.List).Methods("GET")
	api.HandleFunc("/cost-tables/bulk", h.CostTable.BulkImport).Methods("POST")
	api.HandleFunc("/cost-tables/lookup", h.CostTable.Lookup).Methods("GET")
	api.HandleFunc("/cost-tables/{id:[0-9]+}", h.CostTable.Get).Methods("GET")
	api.HandleFunc("/cost-tables/{id:[0-9]+}", h.CostTable.Update).Methods("PUT")
	api.HandleFunc("/cost-tables/{id:[0-9]+}", h.CostTable.Delete).Methods("DELETE")
	api.HandleFunc("/location-multipliers", h.CostTable.LocationMultipliers).Methods("GET")
	api.HandleFunc("/location-multipliers", h.CostTable.UpsertLocationMultiplier).Methods("PUT")
	api.HandleFunc("/jurisdictions", h.CostTable.Jurisdictions).Methods("GET")

	// Batch endpoints
	api.HandleFunc("/batch/upload", h.Batch.Upload).Methods("POST")
	api.HandleFunc("/batch", h.Batch.History).Methods("GET")
	api.HandleFunc("/batch/{uploadID}", h.Batch.Status).Methods("GET")
	api.HandleFunc("/batch/{uploadID}/progress", h.Batch.Progress).Methods("GET")

	// Report endpoints
	api.HandleFunc("/reports/summary", h.Report.Summary).Methods("GET")
	api.HandleFunc("/reports/regions", h.Report.ByRegion).Methods("GET")
	api.HandleFunc("/reports/property-types", h.Report.ByPropertyType).Methods("GET")

	// Session endpoints
	api.HandleFunc("/sessions", h.Session.Create).Methods("POST")
	api.HandleFunc("/sessions/{sessionID}", h.Session.Get).Methods("GET")
	api.HandleFunc("/sessions/{sessionID}", h.Session.Update).Methods("PUT")
	api.HandleFunc("/sessions/{sessionID}", h.Session.Delete).Methods("DELETE")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Call next handler
			next.ServeHTTP(w, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// rateLimitMiddleware enforces the per-instance API ceiling. With Redis
// disabled the limiter allows everything, so this is a no-op in development.
func rateLimitMiddleware(limiter *redis.RateLimiter, log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter != nil {
				allowed, _, err := limiter.Allow(r.Context(), redis.ValuationAPIRateLimit)
				if err != nil {
					log.WithError(err).Warn("Rate limit check failed, allowing request")
				} else if !allowed {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusTooManyRequests)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Rate limit exceeded",
					})
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
