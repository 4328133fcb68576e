// Package viewmodel defines presentation-ready structs for templ components.
// View models decouple template rendering from domain model types.
package viewmodel

// SubscriptionPageViewModel holds everything the subscription page renders.
type SubscriptionPageViewModel struct {
	// SelectedDays is 0 until the user picks a duration.
	SelectedDays  int
	Durations     []DurationOptionViewModel
	CSRFToken     string
	CanTransact   bool
	Status        *StatusViewModel
	StatusError   string
	Runs          []RunViewModel
	PlanNotesHTML string
}

// HasSelection reports whether a duration has been picked.
func (p SubscriptionPageViewModel) HasSelection() bool {
	return p.SelectedDays > 0
}

// DurationOptionViewModel is one of the duration selector buttons.
type DurationOptionViewModel struct {
	Days     int
	Label    string
	Path     string
	Selected bool
}

// StatusViewModel holds the on-chain snapshot formatted for display.
type StatusViewModel struct {
	SubscriptionAddress string
	TokenAddress        string
	Account             string
	InitialPrice        string
	Balance             string
	Allowance           string
	ReadOnly            bool
}

// RunViewModel is one row of the recent activity list.
type RunViewModel struct {
	ID        string
	Action    string
	Duration  string
	Outcome   string
	Failed    bool
	Error     string
	TxHash    string
	StartedAt string
	Elapsed   string
}
