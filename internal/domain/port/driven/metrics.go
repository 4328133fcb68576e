package driven

import (
	"time"

	"github.com/ericfisherdev/subpanel/internal/domain/model"
)

// WorkflowMetrics records workflow outcomes for monitoring.
type WorkflowMetrics interface {
	ObserveWorkflow(action model.Action, outcome model.Outcome, elapsed time.Duration)
	// ObserveTx records one submitted transaction; step is "approve" or the action name.
	ObserveTx(step string, succeeded bool)
}
