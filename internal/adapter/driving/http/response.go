package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ericfisherdev/subpanel/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// ActionRequest is the JSON body for the start and increase endpoints.
type ActionRequest struct {
	Duration int `json:"duration"`
}

// ActionResponse is returned by all three action endpoints. Run is omitted
// when the request failed validation before any call was made.
type ActionResponse struct {
	Run   *RunResponse `json:"run,omitempty"`
	Error string       `json:"error,omitempty"`
}

// RunResponse is the JSON representation of a workflow run.
type RunResponse struct {
	ID            string `json:"id"`
	Action        string `json:"action"`
	Duration      int    `json:"duration"`
	Account       string `json:"account,omitempty"`
	ApproveTxHash string `json:"approve_tx_hash,omitempty"`
	ActionTxHash  string `json:"action_tx_hash,omitempty"`
	Outcome       string `json:"outcome"`
	Error         string `json:"error,omitempty"`
	StartedAt     string `json:"started_at"`
	FinishedAt    string `json:"finished_at"`
}

// StatusResponse is the JSON representation of the on-chain subscription snapshot.
// Token amounts are decimal strings in base units.
type StatusResponse struct {
	SubscriptionAddress string `json:"subscription_address"`
	TokenAddress        string `json:"token_address"`
	Account             string `json:"account,omitempty"`
	InitialPrice        string `json:"initial_price"`
	Balance             string `json:"balance,omitempty"`
	Allowance           string `json:"allowance,omitempty"`
	ReadOnly            bool   `json:"read_only"`
}

// toRunResponse converts a domain WorkflowRun to its JSON response representation.
func toRunResponse(run model.WorkflowRun) RunResponse {
	resp := RunResponse{
		ID:         run.ID,
		Action:     string(run.Action),
		Duration:   int(run.Duration),
		Outcome:    string(run.Outcome),
		Error:      run.Error,
		StartedAt:  run.StartedAt.UTC().Format(time.RFC3339),
		FinishedAt: run.FinishedAt.UTC().Format(time.RFC3339),
	}
	if run.Account != (common.Address{}) {
		resp.Account = run.Account.Hex()
	}
	if run.ApproveTxHash != (common.Hash{}) {
		resp.ApproveTxHash = run.ApproveTxHash.Hex()
	}
	if run.ActionTxHash != (common.Hash{}) {
		resp.ActionTxHash = run.ActionTxHash.Hex()
	}
	return resp
}

// toStatusResponse converts a domain SubscriptionStatus to its JSON representation.
func toStatusResponse(s model.SubscriptionStatus) StatusResponse {
	resp := StatusResponse{
		SubscriptionAddress: s.SubscriptionAddress.Hex(),
		TokenAddress:        s.TokenAddress.Hex(),
		ReadOnly:            s.ReadOnly,
	}
	if s.InitialPrice != nil {
		resp.InitialPrice = s.InitialPrice.String()
	}
	if s.HasAccount() {
		resp.Account = s.Account.Hex()
	}
	if s.Balance != nil {
		resp.Balance = s.Balance.String()
	}
	if s.Allowance != nil {
		resp.Allowance = s.Allowance.String()
	}
	return resp
}
