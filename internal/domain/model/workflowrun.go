package model

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// WorkflowRun is the audit record of one start, increase or cancel attempt.
// ApproveTxHash is zero for cancel and for runs that failed before approval.
type WorkflowRun struct {
	ID            string
	Action        Action
	Duration      Duration // Zero for cancel.
	Account       common.Address
	ApproveTxHash common.Hash
	ActionTxHash  common.Hash
	Outcome       Outcome
	Error         string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Elapsed returns how long the run took.
func (r WorkflowRun) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
