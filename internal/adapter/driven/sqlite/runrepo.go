package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ericfisherdev/subpanel/internal/domain/model"
	"github.com/ericfisherdev/subpanel/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RunStore = (*RunRepo)(nil)

// RunRepo is the SQLite implementation of the RunStore port interface.
// Addresses and hashes are stored as hex strings; an unset hash is stored as "".
type RunRepo struct {
	db *DB
}

// NewRunRepo creates a new RunRepo backed by the given DB.
func NewRunRepo(db *DB) *RunRepo {
	return &RunRepo{db: db}
}

const runColumns = `id, action, duration_days, account, approve_tx_hash, action_tx_hash,
	outcome, error, started_at, finished_at`

// Save inserts or replaces a workflow run keyed by ID.
func (r *RunRepo) Save(ctx context.Context, run model.WorkflowRun) error {
	const query = `
		INSERT INTO workflow_runs (` + runColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			account = excluded.account,
			approve_tx_hash = excluded.approve_tx_hash,
			action_tx_hash = excluded.action_tx_hash,
			outcome = excluded.outcome,
			error = excluded.error,
			finished_at = excluded.finished_at
	`

	account := ""
	if run.Account != (common.Address{}) {
		account = run.Account.Hex()
	}

	_, err := r.db.Writer.ExecContext(ctx, query,
		run.ID,
		string(run.Action),
		int(run.Duration),
		account,
		hashString(run.ApproveTxHash),
		hashString(run.ActionTxHash),
		string(run.Outcome),
		run.Error,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("save workflow run %s: %w", run.ID, err)
	}

	return nil
}

// Get returns the run with the given ID, or (nil, nil) if it does not exist.
func (r *RunRepo) Get(ctx context.Context, id string) (*model.WorkflowRun, error) {
	const query = `SELECT ` + runColumns + ` FROM workflow_runs WHERE id = ?`

	run, err := scanRun(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get workflow run %s: %w", id, err)
	}

	return run, nil
}

// ListRecent returns up to limit runs ordered newest first.
func (r *RunRepo) ListRecent(ctx context.Context, limit int) ([]model.WorkflowRun, error) {
	const query = `SELECT ` + runColumns + ` FROM workflow_runs ORDER BY started_at DESC, id LIMIT ?`

	if limit <= 0 {
		return []model.WorkflowRun{}, nil
	}

	rows, err := r.db.Reader.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list workflow runs: %w", err)
	}
	defer rows.Close()

	runs := []model.WorkflowRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workflow run: %w", err)
		}
		runs = append(runs, *run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workflow runs: %w", err)
	}

	return runs, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*model.WorkflowRun, error) {
	var (
		run                              model.WorkflowRun
		action, outcome                  string
		duration                         int
		account, approveHash, actionHash string
		startedAt, finishedAt            string
	)

	if err := s.Scan(
		&run.ID, &action, &duration, &account, &approveHash, &actionHash,
		&outcome, &run.Error, &startedAt, &finishedAt,
	); err != nil {
		return nil, err
	}

	run.Action = model.Action(action)
	run.Outcome = model.Outcome(outcome)
	run.Duration = model.Duration(duration)
	if account != "" {
		run.Account = common.HexToAddress(account)
	}
	if approveHash != "" {
		run.ApproveTxHash = common.HexToHash(approveHash)
	}
	if actionHash != "" {
		run.ActionTxHash = common.HexToHash(actionHash)
	}

	var err error
	if run.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	if run.FinishedAt, err = parseTime(finishedAt); err != nil {
		return nil, fmt.Errorf("parse finished_at: %w", err)
	}

	return &run, nil
}

func hashString(h common.Hash) string {
	if h == (common.Hash{}) {
		return ""
	}
	return h.Hex()
}

// formatTime stores times as fixed-width UTC strings so lexical order matches
// chronological order.
func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000000Z")
}

// parseTime accepts the stored format plus the formats SQLite's own
// CURRENT_TIMESTAMP and older rows may use.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05.000000000Z",
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t.UTC(), nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
