// Package wizard defines the submission flow step graph as an explicit
// transition table consumed by a single reducer, so the step order can be
// tested exhaustively without any HTTP or rendering concerns.
package wizard

import (
	"fmt"

	"github.com/noah-isme/registrar-docs-api/internal/models"
)

// Event is a navigation action applied to the step cursor.
type Event string

const (
	// EventAdvance moves forward after the current step validated.
	EventAdvance Event = "advance"
	// EventBack returns to the previous step without losing entered data.
	EventBack Event = "back"
	// EventActiveFound routes the entry guard to the pending-requests
	// branch when open requests already exist.
	EventActiveFound Event = "activeFound"
	// EventCreateNewAnyway is the explicit escape hatch from the
	// pending-requests branch into a fresh submission.
	EventCreateNewAnyway Event = "createNewAnyway"
)

// transitions is the step graph: linear with one conditional branch at the
// entry guard and back-edges everywhere except the guard itself.
var transitions = map[models.WizardStep]map[Event]models.WizardStep{
	models.StepCheckActiveRequests: {
		EventAdvance:     models.StepDocuments,
		EventActiveFound: models.StepPendingRequests,
	},
	models.StepPendingRequests: {
		EventCreateNewAnyway: models.StepDocuments,
	},
	models.StepDocuments: {
		EventAdvance: models.StepRequestList,
	},
	models.StepRequestList: {
		EventAdvance: models.StepUploadRequirements,
		EventBack:    models.StepDocuments,
	},
	models.StepUploadRequirements: {
		EventAdvance: models.StepPreferredContact,
		EventBack:    models.StepRequestList,
	},
	models.StepPreferredContact: {
		EventAdvance: models.StepSummary,
		EventBack:    models.StepUploadRequirements,
	},
	models.StepSummary: {
		EventAdvance: models.StepSubmitRequest,
		EventBack:    models.StepPreferredContact,
	},
	models.StepSubmitRequest: {},
}

// Next resolves the target step for an event, reporting whether the move is
// part of the declared graph.
func Next(step models.WizardStep, event Event) (models.WizardStep, bool) {
	events, ok := transitions[step]
	if !ok {
		return "", false
	}
	next, ok := events[event]
	return next, ok
}

// Reduce applies a navigation event to the state's cursor. The aggregate is
// only ever merged into; nothing entered on earlier steps is discarded, which
// keeps back navigation non-destructive.
func Reduce(state *models.WizardState, event Event) error {
	next, ok := Next(state.Step, event)
	if !ok {
		return fmt.Errorf("event %q not allowed in step %q", event, state.Step)
	}
	state.Step = next
	return nil
}

// Steps returns the known steps in flow order, used by progress displays.
func Steps() []models.WizardStep {
	return []models.WizardStep{
		models.StepCheckActiveRequests,
		models.StepPendingRequests,
		models.StepDocuments,
		models.StepRequestList,
		models.StepUploadRequirements,
		models.StepPreferredContact,
		models.StepSummary,
		models.StepSubmitRequest,
	}
}
