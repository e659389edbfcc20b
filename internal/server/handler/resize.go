// Package handler provides HTTP handlers for the resize service.
package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/sevigo/resizer/internal/config"
	"github.com/sevigo/resizer/internal/core"
	"github.com/sevigo/resizer/internal/jobs"
)

// IndexBody is the greeting served on the root path.
const IndexBody = "Resize Microservice"

// Index answers the root path with a fixed greeting.
func Index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, IndexBody)
}

// ResizeHandler offloads resize requests to the worker lane.
type ResizeHandler struct {
	cfg        *config.Config
	dispatcher core.JobDispatcher
	logger     *slog.Logger
}

// NewResizeHandler creates a new resize handler with the given configuration and dispatcher.
func NewResizeHandler(cfg *config.Config, dispatcher core.JobDispatcher, logger *slog.Logger) *ResizeHandler {
	return &ResizeHandler{
		cfg:        cfg,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Handle reads the image from the request body, waits for the worker to
// resize it and writes the result.
func (h *ResizeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.cfg.Server.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.logger.Warn("failed to read request body", "error", err)
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	defaults := core.Params{Width: h.cfg.Resize.DefaultWidth, Height: h.cfg.Resize.DefaultHeight}
	job := core.NewJob(payload, ParseParams(r.URL.Query(), defaults))
	logger := h.logger.With(
		"job_id", job.ID,
		"request_id", middleware.GetReqID(r.Context()),
	)
	logger.Debug("dispatching resize job", "width", job.Params.Width, "height", job.Params.Height, "bytes", len(payload))

	data, err := jobs.OffloadJob(r.Context(), h.dispatcher, job)
	if err != nil {
		if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
			logger.Info("client went away before the resize finished")
			return
		}
		status := StatusFor(err)
		logger.Warn("resize request failed", "status", status, "error", err)
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// StatusFor maps an offload error to the HTTP status returned to the client.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrClosed), errors.Is(err, core.ErrWorkerUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
