package workflow

import (
	"github.com/noah-isme/registrar-docs-api/internal/models"
)

// Restriction explains to the acting admin why a move is blocked and what has
// to happen before it becomes available.
type Restriction struct {
	Reason      string `json:"reason"`
	Requirement string `json:"requirement"`
	NextSteps   string `json:"next_steps"`
}

// Rule holds the allowed targets for a source status plus the canned
// restriction shown when a disallowed move is attempted.
type Rule struct {
	Allowed     []models.RequestStatus
	Restriction Restriction
}

// rules is the transition table. It forms a DAG terminating at RELEASED;
// REJECTED is the only state with a return edge to an earlier stage.
var rules = map[models.RequestStatus]Rule{
	models.RequestStatusPending: {
		Allowed: []models.RequestStatus{
			models.RequestStatusInProgress,
			models.RequestStatusRejected,
		},
		Restriction: Restriction{
			Reason:      "Pending requests can only be accepted for processing or rejected.",
			Requirement: "Assign the request and move it to Processing, or reject it with remarks.",
			NextSteps:   "Drag the request to Processing after assigning an admin, or to Change to send it back to the requester.",
		},
	},
	models.RequestStatusInProgress: {
		Allowed: []models.RequestStatus{
			models.RequestStatusDocReady,
			models.RequestStatusRejected,
		},
		Restriction: Restriction{
			Reason:      "Requests in Processing can only move forward once the documents are prepared, or be rejected.",
			Requirement: "Finish preparing every requested document before marking the request ready.",
			NextSteps:   "Mark each document as done, then move the request to Ready, or reject it with remarks.",
		},
	},
	models.RequestStatusDocReady: {
		Allowed: []models.RequestStatus{
			models.RequestStatusReleased,
			models.RequestStatusRejected,
		},
		Restriction: Restriction{
			Reason:      "Prepared requests can only be released or rejected.",
			Requirement: "Confirm payment before releasing the documents.",
			NextSteps:   "Wait for the requester to settle the fees, then move the request to Done.",
		},
	},
	models.RequestStatusReleased: {
		Allowed: nil,
		Restriction: Restriction{
			Reason:      "Released requests are final.",
			Requirement: "A released request cannot change status.",
			NextSteps:   "Open a new request if further documents are needed.",
		},
	},
	models.RequestStatusRejected: {
		Allowed: []models.RequestStatus{
			models.RequestStatusPending,
		},
		Restriction: Restriction{
			Reason:      "Rejected requests can only return to Pending once the requester has addressed the remarks.",
			Requirement: "The requester must resolve the rejection remarks first.",
			NextSteps:   "Move the request back to Pending to restart processing.",
		},
	},
}

// RuleFor returns the transition rule for a status.
func RuleFor(status models.RequestStatus) (Rule, bool) {
	rule, ok := rules[status]
	return rule, ok
}

// AllowedTargets lists the statuses reachable from the given source.
func AllowedTargets(status models.RequestStatus) []models.RequestStatus {
	rule, ok := rules[status]
	if !ok {
		return nil
	}
	targets := make([]models.RequestStatus, len(rule.Allowed))
	copy(targets, rule.Allowed)
	return targets
}
