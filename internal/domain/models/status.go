package models

import "fmt"

// ApplicationStatus is the lifecycle state of a PendingApplication.
//
//	PENDING_APPROVAL ──► APPROVED ──► SUBMITTED
//	       │                 └──────► FAILED
//	       ├──► REJECTED
//	       └──► EXPIRED (sweep only)
//
// REJECTED, SUBMITTED, FAILED and EXPIRED are terminal.
type ApplicationStatus string

const (
	StatusPendingApproval ApplicationStatus = "PENDING_APPROVAL"
	StatusApproved        ApplicationStatus = "APPROVED"
	StatusRejected        ApplicationStatus = "REJECTED"
	StatusExpired         ApplicationStatus = "EXPIRED"
	StatusSubmitted       ApplicationStatus = "SUBMITTED"
	StatusFailed          ApplicationStatus = "FAILED"
)

var validTransitions = map[ApplicationStatus][]ApplicationStatus{
	StatusPendingApproval: {StatusApproved, StatusRejected, StatusExpired},
	StatusApproved:        {StatusSubmitted, StatusFailed},
}

// NonTerminalStatuses lists the states covered by the one-active-application-per-job rule.
var NonTerminalStatuses = []ApplicationStatus{StatusPendingApproval, StatusApproved}

func ParseStatus(s string) (ApplicationStatus, error) {
	st := ApplicationStatus(s)
	switch st {
	case StatusPendingApproval, StatusApproved, StatusRejected, StatusExpired, StatusSubmitted, StatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown application status %q", s)
}

// CanTransition reports whether moving from -> to is permitted.
func CanTransition(from, to ApplicationStatus) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

func (s ApplicationStatus) IsTerminal() bool {
	_, hasOutgoing := validTransitions[s]
	return !hasOutgoing
}

// Decision is the user's verdict on a pending application.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
	DecisionModified Decision = "modified"
)

func ParseDecision(s string) (Decision, error) {
	d := Decision(s)
	switch d {
	case DecisionApproved, DecisionRejected, DecisionModified:
		return d, nil
	}
	return "", fmt.Errorf("unknown decision %q", s)
}

// TargetStatus maps a decision onto the state it moves a pending application to.
// A modification is an edit followed by an approval.
func (d Decision) TargetStatus() ApplicationStatus {
	if d == DecisionRejected {
		return StatusRejected
	}
	return StatusApproved
}
