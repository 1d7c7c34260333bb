package syncer

import (
	"fmt"
	"strings"
)

// Step names a stage of a sync pass that can fail.
type Step string

const (
	StepRegisterMetadata Step = "register-metadata"
	StepDeliver          Step = "deliver"
	StepPersist          Step = "persist-cursor"
)

// Policy is how a pass reacts to a failed step.
type Policy int

const (
	// PolicyIgnore logs the failure and continues the pass.
	PolicyIgnore Policy = iota
	// PolicyAbortPass stops delivering; progress made so far is kept.
	PolicyAbortPass
	// PolicyPropagate returns the failure to the caller.
	PolicyPropagate
)

func (p Policy) String() string {
	switch p {
	case PolicyIgnore:
		return "ignore"
	case PolicyAbortPass:
		return "abort-pass"
	case PolicyPropagate:
		return "propagate"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// Policies is the recovery table applied by Coordinator.Sync.
var Policies = map[Step]Policy{
	StepRegisterMetadata: PolicyIgnore,
	StepDeliver:          PolicyAbortPass,
	StepPersist:          PolicyPropagate,
}

type Failure struct {
	Step   Step
	Policy Policy
	Err    error
}

type Outcome string

const (
	OutcomeNoNewData Outcome = "no-new-data"
	OutcomeComplete  Outcome = "complete"
	OutcomePartial   Outcome = "partial"
	OutcomeFailed    Outcome = "failed"
)

// Result describes what one pass did.
type Result struct {
	SessionID          string
	StartCursor        int
	EndCursor          int
	Pending            int
	Delivered          int
	MetadataRegistered bool
	Outcome            Outcome
	Failures           []Failure
}

func (r *Result) fail(step Step, err error) {
	r.Failures = append(r.Failures, Failure{Step: step, Policy: Policies[step], Err: err})
}

// Failed reports whether step failed during the pass.
func (r Result) Failed(step Step) bool {
	for _, f := range r.Failures {
		if f.Step == step {
			return true
		}
	}
	return false
}

func (r Result) String() string {
	s := fmt.Sprintf("session=%s outcome=%s delivered=%d/%d cursor=%d->%d",
		r.SessionID, r.Outcome, r.Delivered, r.Pending, r.StartCursor, r.EndCursor)
	if len(r.Failures) == 0 {
		return s
	}
	var parts []string
	for _, f := range r.Failures {
		parts = append(parts, fmt.Sprintf("%s(%s): %v", f.Step, f.Policy, f.Err))
	}
	return s + " failures=[" + strings.Join(parts, "; ") + "]"
}
