// Package web implements the HTML GUI driving adapter using templ components.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/subpanel/internal/adapter/driving/web/templates"
	"github.com/ericfisherdev/subpanel/internal/adapter/driving/web/templates/pages"
	vm "github.com/ericfisherdev/subpanel/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/subpanel/internal/application"
	"github.com/ericfisherdev/subpanel/internal/domain/model"
)

const (
	// recentRunsShown is the number of activity rows on the page.
	recentRunsShown = 10

	defaultStatusTimeout = 5 * time.Second
)

// Handler is the web GUI driving adapter that serves HTML via templ components.
type Handler struct {
	subscriptionSvc *application.SubscriptionService
	statusSvc       *application.StatusService
	planNotesHTML   string
	statusTimeout   time.Duration
	logger          *slog.Logger
}

// NewHandler creates a Handler. planNotesHTML is rendered as-is and must
// already be sanitized (see LoadPlanNotes).
func NewHandler(
	subscriptionSvc *application.SubscriptionService,
	statusSvc *application.StatusService,
	planNotesHTML string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		subscriptionSvc: subscriptionSvc,
		statusSvc:       statusSvc,
		planNotesHTML:   planNotesHTML,
		statusTimeout:   defaultStatusTimeout,
		logger:          logger,
	}
}

// Page renders the subscription page. The selected duration is carried in
// ?duration= and defaults to none.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	var selected model.Duration
	if v := r.URL.Query().Get("duration"); v != "" {
		d, err := model.ParseDuration(v)
		if err != nil {
			h.logger.Debug("ignoring invalid duration selection", "duration", v)
		} else {
			selected = d
		}
	}

	page := vm.SubscriptionPageViewModel{
		SelectedDays:  int(selected),
		Durations:     toDurationOptions(selected),
		CSRFToken:     csrfToken(w, r),
		CanTransact:   !h.statusSvc.ReadOnly(),
		PlanNotesHTML: h.planNotesHTML,
	}

	statusCtx, cancel := context.WithTimeout(r.Context(), h.statusTimeout)
	status, err := h.statusSvc.Status(statusCtx)
	cancel()
	if err != nil {
		h.logger.Error("failed to read subscription status", "error", err)
		page.StatusError = "Could not read the subscription contract."
	} else {
		page.Status = toStatusViewModel(*status)
	}

	runs, err := h.subscriptionSvc.RecentRuns(r.Context(), recentRunsShown)
	if err != nil {
		h.logger.Error("failed to list workflow runs", "error", err)
	}
	page.Runs = toRunViewModels(runs)

	layout := templates.Layout("Subscription", pages.Subscription(page))
	if err := layout.Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render subscription page", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// StartSubscription handles the Start form.
func (h *Handler) StartSubscription(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, r, model.ActionStart, func(ctx context.Context, d model.Duration) (*model.WorkflowRun, error) {
		return h.subscriptionSvc.StartSubscription(ctx, d)
	})
}

// IncreaseSubscription handles the Increase form.
func (h *Handler) IncreaseSubscription(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, r, model.ActionIncrease, func(ctx context.Context, d model.Duration) (*model.WorkflowRun, error) {
		return h.subscriptionSvc.IncreaseSubscription(ctx, d)
	})
}

// CancelSubscription handles the Cancel form.
func (h *Handler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	h.handleAction(w, r, model.ActionCancel, func(ctx context.Context, _ model.Duration) (*model.WorkflowRun, error) {
		return h.subscriptionSvc.CancelSubscription(ctx)
	})
}

// handleAction validates the CSRF token, runs the workflow and redirects back
// to the page with the selection kept. Failures are not surfaced beyond the
// log and the activity list. The workflow ignores request cancellation: once
// an approval is sent, a dropped connection must not strand it.
func (h *Handler) handleAction(
	w http.ResponseWriter,
	r *http.Request,
	action model.Action,
	run func(context.Context, model.Duration) (*model.WorkflowRun, error),
) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if !validateCSRF(r) {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}

	days, _ := strconv.Atoi(r.PostFormValue("duration"))
	duration := model.Duration(days)

	if _, err := run(context.WithoutCancel(r.Context()), duration); err != nil {
		h.logger.Warn("subscription action failed", "action", action, "error", err)
	}

	target := "/"
	if duration.Valid() {
		target = "/?duration=" + strconv.Itoa(days)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
