// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/subpanel/internal/domain/model"
	"github.com/ericfisherdev/subpanel/internal/domain/port/driven"
)

// DefaultReceiptTimeout bounds each wait-for-inclusion step.
const DefaultReceiptTimeout = 2 * time.Minute

// SubscriptionService runs the start, increase and cancel workflows. Each
// workflow acquires a fresh wallet session, sequences its contract calls,
// and records the outcome. It depends only on port interfaces.
type SubscriptionService struct {
	wallet         driven.Wallet
	runStore       driven.RunStore
	metrics        driven.WorkflowMetrics
	receiptTimeout time.Duration
	now            func() time.Time
}

// NewSubscriptionService creates a new SubscriptionService. metrics may be nil.
// A non-positive receiptTimeout falls back to DefaultReceiptTimeout.
func NewSubscriptionService(
	wallet driven.Wallet,
	runStore driven.RunStore,
	metrics driven.WorkflowMetrics,
	receiptTimeout time.Duration,
) *SubscriptionService {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if receiptTimeout <= 0 {
		receiptTimeout = DefaultReceiptTimeout
	}
	return &SubscriptionService{
		wallet:         wallet,
		runStore:       runStore,
		metrics:        metrics,
		receiptTimeout: receiptTimeout,
		now:            time.Now,
	}
}

// StartSubscription approves DepositAmount(duration) to the subscription
// contract, waits for it, then calls startSubscription(duration) and waits.
func (s *SubscriptionService) StartSubscription(ctx context.Context, duration model.Duration) (*model.WorkflowRun, error) {
	return s.run(ctx, model.ActionStart, duration)
}

// IncreaseSubscription is StartSubscription with increaseSubscription(duration)
// as the second call.
func (s *SubscriptionService) IncreaseSubscription(ctx context.Context, duration model.Duration) (*model.WorkflowRun, error) {
	return s.run(ctx, model.ActionIncrease, duration)
}

// CancelSubscription calls cancelSubscription() and waits. There is no
// approval step.
func (s *SubscriptionService) CancelSubscription(ctx context.Context) (*model.WorkflowRun, error) {
	return s.run(ctx, model.ActionCancel, 0)
}

// RecentRuns returns up to limit recorded workflow runs, newest first.
func (s *SubscriptionService) RecentRuns(ctx context.Context, limit int) ([]model.WorkflowRun, error) {
	return s.runStore.ListRecent(ctx, limit)
}

// Run returns a recorded workflow run by ID, or (nil, nil) if none exists.
func (s *SubscriptionService) Run(ctx context.Context, id string) (*model.WorkflowRun, error) {
	return s.runStore.Get(ctx, id)
}

// run executes one workflow. The returned run is non-nil whenever the
// workflow got past duration validation, including on failure.
func (s *SubscriptionService) run(ctx context.Context, action model.Action, duration model.Duration) (*model.WorkflowRun, error) {
	if action.NeedsApproval() && !duration.Valid() {
		return nil, fmt.Errorf("%s subscription for %d days: %w", action, int(duration), model.ErrInvalidDuration)
	}

	run := model.WorkflowRun{
		ID:        uuid.NewString(),
		Action:    action,
		Duration:  duration,
		StartedAt: s.now().UTC(),
	}

	err := s.execute(ctx, &run)
	run.FinishedAt = s.now().UTC()

	if err != nil {
		run.Outcome = model.OutcomeFailed
		run.Error = err.Error()
		slog.Error("subscription workflow failed",
			"run_id", run.ID,
			"action", action,
			"duration", int(duration),
			"account", run.Account.Hex(),
			"error", err,
		)
	} else {
		run.Outcome = model.OutcomeSucceeded
		slog.Info("subscription workflow succeeded",
			"run_id", run.ID,
			"action", action,
			"duration", int(duration),
			"account", run.Account.Hex(),
			"tx_hash", run.ActionTxHash.Hex(),
		)
	}

	s.metrics.ObserveWorkflow(action, run.Outcome, run.Elapsed())

	// Record even when the request context is gone; the transactions may
	// already be on-chain.
	if saveErr := s.runStore.Save(context.WithoutCancel(ctx), run); saveErr != nil {
		slog.Error("failed to record workflow run", "run_id", run.ID, "error", saveErr)
	}

	return &run, err
}

// execute performs the contract calls for run, filling in the account and
// transaction hashes as they become known. It stops at the first error.
func (s *SubscriptionService) execute(ctx context.Context, run *model.WorkflowRun) error {
	session, err := s.wallet.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connect wallet: %w", err)
	}
	run.Account = session.Account()
	subscription := session.Subscription()

	if run.Action.NeedsApproval() {
		amount := model.DepositAmount(run.Duration)
		tx, err := session.Token().Approve(ctx, subscription.Address(), amount)
		if err != nil {
			return fmt.Errorf("approve %s tokens: %w", model.FormatTokenAmount(amount), err)
		}
		run.ApproveTxHash = tx.Hash()
		slog.Debug("approval submitted", "run_id", run.ID, "tx_hash", tx.Hash().Hex())

		if err := s.confirm(ctx, "approve", tx); err != nil {
			return fmt.Errorf("wait for approval %s: %w", tx.Hash().Hex(), err)
		}
	}

	var tx driven.PendingTx
	switch run.Action {
	case model.ActionStart:
		tx, err = subscription.StartSubscription(ctx, run.Duration)
	case model.ActionIncrease:
		tx, err = subscription.IncreaseSubscription(ctx, run.Duration)
	case model.ActionCancel:
		tx, err = subscription.CancelSubscription(ctx)
	default:
		return fmt.Errorf("unknown action %q", run.Action)
	}
	if err != nil {
		return fmt.Errorf("%s subscription: %w", run.Action, err)
	}
	run.ActionTxHash = tx.Hash()

	if err := s.confirm(ctx, string(run.Action), tx); err != nil {
		return fmt.Errorf("wait for %s %s: %w", run.Action, tx.Hash().Hex(), err)
	}
	return nil
}

// confirm waits for tx to be mined within the receipt timeout.
func (s *SubscriptionService) confirm(ctx context.Context, step string, tx driven.PendingTx) error {
	wctx, cancel := context.WithTimeout(ctx, s.receiptTimeout)
	defer cancel()

	receipt, err := tx.Wait(wctx)
	s.metrics.ObserveTx(step, err == nil)
	if err != nil {
		return err
	}

	slog.Debug("transaction mined",
		"step", step,
		"tx_hash", receipt.TxHash.Hex(),
		"block", receipt.BlockNumber,
		"gas_used", receipt.GasUsed,
	)
	return nil
}

type nopMetrics struct{}

func (nopMetrics) ObserveWorkflow(model.Action, model.Outcome, time.Duration) {}
func (nopMetrics) ObserveTx(string, bool)                                     {}
