package web

import (
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	vm "github.com/ericfisherdev/subpanel/internal/adapter/driving/web/viewmodel"
	"github.com/ericfisherdev/subpanel/internal/domain/model"
)

// toDurationOptions builds the selector buttons, marking selected as active.
func toDurationOptions(selected model.Duration) []vm.DurationOptionViewModel {
	opts := make([]vm.DurationOptionViewModel, 0, len(model.OfferedDurations))
	for _, d := range model.OfferedDurations {
		opts = append(opts, vm.DurationOptionViewModel{
			Days:     int(d),
			Label:    d.String(),
			Path:     "/?duration=" + strconv.Itoa(int(d)),
			Selected: d == selected,
		})
	}
	return opts
}

// toStatusViewModel formats token amounts in whole tokens.
func toStatusViewModel(s model.SubscriptionStatus) *vm.StatusViewModel {
	status := &vm.StatusViewModel{
		SubscriptionAddress: s.SubscriptionAddress.Hex(),
		TokenAddress:        s.TokenAddress.Hex(),
		InitialPrice:        model.FormatTokenAmount(s.InitialPrice),
		Balance:             model.FormatTokenAmount(s.Balance),
		Allowance:           model.FormatTokenAmount(s.Allowance),
		ReadOnly:            s.ReadOnly,
	}
	if s.HasAccount() {
		status.Account = s.Account.Hex()
	}
	return status
}

// toRunViewModels converts recorded workflow runs for the activity list.
func toRunViewModels(runs []model.WorkflowRun) []vm.RunViewModel {
	vms := make([]vm.RunViewModel, 0, len(runs))
	for _, r := range runs {
		row := vm.RunViewModel{
			ID:        r.ID,
			Action:    string(r.Action),
			Outcome:   string(r.Outcome),
			Failed:    r.Outcome == model.OutcomeFailed,
			Error:     r.Error,
			StartedAt: r.StartedAt.UTC().Format(time.RFC3339),
			Elapsed:   r.Elapsed().Round(time.Millisecond).String(),
		}
		if r.Action.NeedsApproval() {
			row.Duration = r.Duration.String()
		}
		if r.ActionTxHash != (common.Hash{}) {
			row.TxHash = r.ActionTxHash.Hex()
		}
		vms = append(vms, row)
	}
	return vms
}
