package driven

import (
	"context"

	"github.com/ericfisherdev/subpanel/internal/domain/model"
)

// RunStore defines the driven port for workflow run history.
type RunStore interface {
	// Save inserts or replaces the run with the same ID.
	Save(ctx context.Context, run model.WorkflowRun) error
	// Get returns the run with the given ID, or (nil, nil) if none exists.
	Get(ctx context.Context, id string) (*model.WorkflowRun, error)
	// ListRecent returns up to limit runs, newest first.
	ListRecent(ctx context.Context, limit int) ([]model.WorkflowRun, error)
}
