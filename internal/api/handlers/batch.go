package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/terrabuild/terrafusion/backend/internal/batch"
	"github.com/terrabuild/terrafusion/backend/internal/costmodel"
	"github.com/terrabuild/terrafusion/backend/pkg/logger"
)

// maxUploadBytes caps batch CSV uploads at 32 MiB
const maxUploadBytes = 32 << 20

// BatchHandler handles batch upload and progress endpoints
type BatchHandler struct {
	uploads    *batch.Repository
	engine     *batch.Engine
	tracker    *batch.Tracker
	model      *costmodel.Model
	paramsHash string
	upgrader   websocket.Upgrader
	logger     *logger.Logger
}

// NewBatchHandler creates a new batch handler
func NewBatchHandler(
	uploads *batch.Repository,
	engine *batch.Engine,
	tracker *batch.Tracker,
	model *costmodel.Model,
	paramsHash string,
	log *logger.Logger,
) *BatchHandler {
	return &BatchHandler{
		uploads:    uploads,
		engine:     engine,
		tracker:    tracker,
		model:      model,
		paramsHash: paramsHash,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: log,
	}
}

// Upload accepts a CSV of property records and starts a batch valuation.
// The response returns immediately with the upload id; progress is available
// via the status and progress endpoints.
// POST /api/batch/upload (multipart form, field "file")
func (h *BatchHandler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form or file too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "Missing 'file' form field")
		return
	}
	defer file.Close()

	records, rowErrors, err := batch.ParseCSV(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(records) == 0 && len(rowErrors) == 0 {
		respondError(w, http.StatusBadRequest, "File contains no data rows")
		return
	}

	upload := &batch.Upload{
		ID:           uuid.NewString(),
		Filename:     header.Filename,
		FileType:     "csv",
		Status:       batch.StatusProcessing,
		TotalRecords: len(records) + len(rowErrors),
	}
	if err := h.uploads.Create(ctx, upload); err != nil {
		h.logger.WithError(err).Error("Failed to create batch upload")
		respondError(w, http.StatusInternalServerError, "Failed to create batch upload")
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"upload_id":  upload.ID,
		"filename":   header.Filename,
		"records":    len(records),
		"row_errors": len(rowErrors),
	}).Info("Batch upload accepted")

	// The request context dies with the response; the run gets its own.
	go h.engine.Run(context.Background(), upload, records, rowErrors,
		h.model.Parameters, h.paramsHash, time.Now().Year())

	respondJSON(w, http.StatusAccepted, upload)
}

// Status returns the current state of an upload
// GET /api/batch/{uploadID}
func (h *BatchHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uploadID := mux.Vars(r)["uploadID"]

	upload, err := h.uploads.Get(ctx, uploadID)
	if errors.Is(err, batch.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Batch upload not found")
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("upload_id", uploadID).Error("Failed to get batch upload")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve batch upload")
		return
	}

	respondJSON(w, http.StatusOK, upload)
}

// History returns recent uploads, newest first
// GET /api/batch?limit=
func (h *BatchHandler) History(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	uploads, err := h.uploads.History(ctx, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list batch uploads")
		respondError(w, http.StatusInternalServerError, "Failed to list batch uploads")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(uploads),
		"uploads": uploads,
	})
}

// Progress streams progress snapshots for a running upload over a websocket.
// The connection closes after the final snapshot.
// GET /api/batch/{uploadID}/progress
func (h *BatchHandler) Progress(w http.ResponseWriter, r *http.Request) {
	uploadID := mux.Vars(r)["uploadID"]

	// For finished uploads, report the stored state once without upgrading.
	if _, ok := h.tracker.Latest(uploadID); !ok {
		upload, err := h.uploads.Get(r.Context(), uploadID)
		if errors.Is(err, batch.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Batch upload not found")
			return
		}
		if err == nil && (upload.Status == batch.StatusCompleted || upload.Status == batch.StatusFailed) {
			respondJSON(w, http.StatusOK, batch.Progress{
				UploadID:  upload.ID,
				Status:    upload.Status,
				Total:     upload.TotalRecords,
				Processed: upload.ProcessedRecords,
				Errors:    upload.ErrorRecords,
				Done:      true,
			})
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ch := h.tracker.Subscribe(uploadID)
	defer h.tracker.Unsubscribe(uploadID, ch)

	for {
		select {
		case snapshot, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(snapshot); err != nil {
				return
			}
			if snapshot.Done {
				return
			}
		case <-time.After(60 * time.Second):
			// Keepalive; also bounds how long an idle socket lives
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
