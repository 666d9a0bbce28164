package workflow

import (
	"fmt"
	"strings"

	"github.com/noah-isme/registrar-docs-api/internal/models"
)

// Result is the outcome of a transition check. Invalid results carry a
// structured explanation that is presentable without contacting the backend
// again; they are data, not errors.
type Result struct {
	IsValid        bool                 `json:"is_valid"`
	Reason         string               `json:"reason,omitempty"`
	Requirement    string               `json:"requirement,omitempty"`
	NextSteps      string               `json:"next_steps,omitempty"`
	CurrentStatus  models.RequestStatus `json:"current_status,omitempty"`
	TargetStatus   models.RequestStatus `json:"target_status,omitempty"`
	CurrentDisplay string               `json:"current_display,omitempty"`
	TargetDisplay  string               `json:"target_display,omitempty"`
}

func valid() Result {
	return Result{IsValid: true}
}

func invalid(current, target models.RequestStatus, paid bool, r Restriction) Result {
	return Result{
		IsValid:        false,
		Reason:         r.Reason,
		Requirement:    r.Requirement,
		NextSteps:      r.NextSteps,
		CurrentStatus:  current,
		TargetStatus:   target,
		CurrentDisplay: models.ToDisplayStatus(current, paid),
		TargetDisplay:  models.ToDisplayStatus(target, paid),
	}
}

// ValidateTransition decides whether a request may move from current to
// target. It is deterministic, performs no I/O, and short-circuits on the
// first failing business rule.
func ValidateTransition(current, target models.RequestStatus, snapshot models.RequestSnapshot) Result {
	rule, ok := rules[current]
	if !ok {
		return invalid(current, target, snapshot.PaymentStatus, Restriction{
			Reason:      fmt.Sprintf("Unknown status %q.", string(current)),
			Requirement: "The request is in a status this board does not recognise.",
			NextSteps:   "Reload the board; if the status persists, contact support.",
		})
	}

	if !targetAllowed(rule, target) {
		return invalid(current, target, snapshot.PaymentStatus, rule.Restriction)
	}

	if current == models.RequestStatusInProgress && target == models.RequestStatusDocReady {
		if incomplete := incompleteDocuments(snapshot); len(incomplete) > 0 {
			return invalid(current, target, snapshot.PaymentStatus, Restriction{
				Reason:      "Not every requested document has been prepared.",
				Requirement: "All documents, including custom requests, must be marked done.",
				NextSteps:   "Finish preparing: " + strings.Join(incomplete, ", "),
			})
		}
	}

	if current == models.RequestStatusDocReady && target == models.RequestStatusReleased {
		if !snapshot.PaymentStatus {
			return invalid(current, target, snapshot.PaymentStatus, Restriction{
				Reason:      "The request has unpaid fees.",
				Requirement: "Payment must be completed before the documents are released.",
				NextSteps:   "Ask the requester to settle the fees, or record an over-the-counter payment.",
			})
		}
	}

	if current == models.RequestStatusPending {
		if snapshot.AssignedAdminID == nil || *snapshot.AssignedAdminID == "" {
			return invalid(current, target, snapshot.PaymentStatus, Restriction{
				Reason:      "The request has no assigned admin.",
				Requirement: "An admin must take ownership before the request leaves Pending.",
				NextSteps:   "Assign the request to an admin, then retry the move.",
			})
		}
	}

	return valid()
}

func targetAllowed(rule Rule, target models.RequestStatus) bool {
	for _, allowed := range rule.Allowed {
		if allowed == target {
			return true
		}
	}
	return false
}

func incompleteDocuments(snapshot models.RequestSnapshot) []string {
	var names []string
	for _, doc := range snapshot.Documents {
		if !doc.IsDone {
			names = append(names, doc.Name)
		}
	}
	for _, doc := range snapshot.OthersDocuments {
		if !doc.IsDone {
			names = append(names, doc.Name)
		}
	}
	return names
}
