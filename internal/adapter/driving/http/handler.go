// Package httphandler implements the JSON API driving adapter.
package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/subpanel/internal/application"
	"github.com/ericfisherdev/subpanel/internal/domain/model"
	"github.com/ericfisherdev/subpanel/internal/domain/port/driven"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 200
)

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	subscriptionSvc *application.SubscriptionService
	statusSvc       *application.StatusService
	logger          *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	subscriptionSvc *application.SubscriptionService,
	statusSvc *application.StatusService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		subscriptionSvc: subscriptionSvc,
		statusSvc:       statusSvc,
		logger:          logger,
	}
}

// RegisterAPIRoutes registers all JSON API routes on the provided mux.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /api/v1/status", h.Status)
	mux.HandleFunc("GET /api/v1/runs", h.ListRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", h.GetRun)
	mux.HandleFunc("POST /api/v1/subscription/start", h.StartSubscription)
	mux.HandleFunc("POST /api/v1/subscription/increase", h.IncreaseSubscription)
	mux.HandleFunc("POST /api/v1/subscription/cancel", h.CancelSubscription)
}

// Health returns a simple liveness response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// Status returns the current on-chain subscription snapshot.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.statusSvc.Status(r.Context())
	if err != nil {
		h.logger.Error("failed to read subscription status", "error", err)
		writeError(w, http.StatusBadGateway, "chain read failed")
		return
	}

	writeJSON(w, http.StatusOK, toStatusResponse(*status))
}

// ListRuns returns recent workflow runs, newest first. ?limit= caps the count.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxRunLimit)
	}

	runs, err := h.subscriptionSvc.RecentRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list workflow runs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		resp = append(resp, toRunResponse(run))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetRun returns a single workflow run by ID.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	run, err := h.subscriptionSvc.Run(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get workflow run", "run_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if run == nil {
		writeError(w, http.StatusNotFound, "workflow run not found")
		return
	}

	writeJSON(w, http.StatusOK, toRunResponse(*run))
}

// StartSubscription runs the approve-then-start workflow for the requested duration.
func (h *Handler) StartSubscription(w http.ResponseWriter, r *http.Request) {
	duration, ok := decodeDuration(w, r)
	if !ok {
		return
	}
	h.respondAction(r.Context(), w, model.ActionStart, func(ctx context.Context) (*model.WorkflowRun, error) {
		return h.subscriptionSvc.StartSubscription(ctx, duration)
	})
}

// IncreaseSubscription runs the approve-then-increase workflow for the requested duration.
func (h *Handler) IncreaseSubscription(w http.ResponseWriter, r *http.Request) {
	duration, ok := decodeDuration(w, r)
	if !ok {
		return
	}
	h.respondAction(r.Context(), w, model.ActionIncrease, func(ctx context.Context) (*model.WorkflowRun, error) {
		return h.subscriptionSvc.IncreaseSubscription(ctx, duration)
	})
}

// CancelSubscription runs the single-call cancel workflow.
func (h *Handler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	h.respondAction(r.Context(), w, model.ActionCancel, h.subscriptionSvc.CancelSubscription)
}

// respondAction runs a workflow and maps its outcome to a status code. The
// workflow has already logged and recorded any failure. It runs detached from
// request cancellation so a dropped client cannot abandon it between the
// approval and the action; receipt waits stay bounded by the service timeout.
func (h *Handler) respondAction(
	ctx context.Context,
	w http.ResponseWriter,
	action model.Action,
	run func(context.Context) (*model.WorkflowRun, error),
) {
	result, err := run(context.WithoutCancel(ctx))

	var resp ActionResponse
	if result != nil {
		rr := toRunResponse(*result)
		resp.Run = &rr
	}

	if err != nil {
		h.logger.Warn("subscription action failed", "action", action, "error", err)
		resp.Error = err.Error()
		writeJSON(w, actionErrorStatus(err), resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// actionErrorStatus maps workflow errors onto the three failure classes the
// API exposes.
func actionErrorStatus(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidDuration):
		return http.StatusBadRequest
	case errors.Is(err, driven.ErrNoSigner):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}

// decodeDuration reads an ActionRequest body and validates its duration,
// writing a 400 response and returning false on failure.
func decodeDuration(w http.ResponseWriter, r *http.Request) (model.Duration, bool) {
	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return 0, false
	}

	d := model.Duration(req.Duration)
	if !d.Valid() {
		writeError(w, http.StatusBadRequest, model.ErrInvalidDuration.Error())
		return 0, false
	}
	return d, true
}
