package models

import "time"

// ActionStatus is the outcome of one action in a dispatch.
type ActionStatus string

const (
	ActionStatusSucceeded ActionStatus = "succeeded"
	ActionStatusFailed    ActionStatus = "failed"
	ActionStatusSkipped   ActionStatus = "skipped"
)

// ActionResult records what happened to one action of a dispatch.
type ActionResult struct {
	RunID    string
	Index    int
	Action   ActionSpec
	Status   ActionStatus
	Err      error
	Output   any
	Duration time.Duration
}

// Failed reports whether the action ran and failed.
func (r ActionResult) Failed() bool {
	return r.Status == ActionStatusFailed
}

// TransitionResult is returned by a successful stage transition.
type TransitionResult struct {
	From    string
	To      string
	Changed bool
	Results []ActionResult
}

// Failures returns the results of actions that failed during the transition.
func (r TransitionResult) Failures() []ActionResult {
	var failed []ActionResult

	for _, result := range r.Results {
		if result.Failed() {
			failed = append(failed, result)
		}
	}

	return failed
}
