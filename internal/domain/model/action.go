package model

// Action identifies a subscription workflow.
type Action string

const (
	ActionStart    Action = "start"
	ActionIncrease Action = "increase"
	ActionCancel   Action = "cancel"
)

// NeedsApproval reports whether the workflow must approve a token allowance
// before calling the subscription contract.
func (a Action) NeedsApproval() bool {
	return a == ActionStart || a == ActionIncrease
}

// Outcome is the terminal state of a workflow run.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)
