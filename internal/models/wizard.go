package models

import "time"

// WizardStep identifies a stage of the submission flow.
type WizardStep string

const (
	StepCheckActiveRequests WizardStep = "checkActiveRequests"
	StepPendingRequests     WizardStep = "pendingRequests"
	StepDocuments           WizardStep = "documents"
	StepRequestList         WizardStep = "requestList"
	StepUploadRequirements  WizardStep = "uploadRequirements"
	StepPreferredContact    WizardStep = "preferredContact"
	StepSummary             WizardStep = "summary"
	StepSubmitRequest       WizardStep = "submitRequest"
)

// SelectedDocument is one document chosen in the wizard.
type SelectedDocument struct {
	DocID                string  `json:"doc_id"`
	DocName              string  `json:"doc_name"`
	Cost                 float64 `json:"cost"`
	Quantity             int     `json:"quantity"`
	RequiresPaymentFirst bool    `json:"requires_payment_first"`
	IsCustom             bool    `json:"is_custom"`
}

// WizardState is the cross-step aggregate for one requester's in-flight
// submission. It is mutated only by step handlers and cleared after the final
// submission succeeds.
type WizardState struct {
	StudentID        string             `json:"student_id"`
	Step             WizardStep         `json:"step"`
	SelectedDocs     []SelectedDocument `json:"selected_docs"`
	Uploads          map[string]string  `json:"uploads"`
	PreferredContact ContactMethod      `json:"preferred_contact"`
	TotalPrice       float64            `json:"total_price"`
	PaymentCompleted bool               `json:"payment_completed"`
	CheckoutID       string             `json:"checkout_id,omitempty"`
	Remarks          string             `json:"remarks,omitempty"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// NewWizardState returns the aggregate positioned at the entry guard.
func NewWizardState(studentID string) *WizardState {
	return &WizardState{
		StudentID: studentID,
		Step:      StepCheckActiveRequests,
		Uploads:   make(map[string]string),
	}
}

// RecomputeTotal recalculates the running total. Custom documents carry no
// catalog price and do not contribute to it.
func (s *WizardState) RecomputeTotal() {
	total := 0.0
	for _, doc := range s.SelectedDocs {
		if doc.IsCustom {
			continue
		}
		total += doc.Cost * float64(doc.Quantity)
	}
	s.TotalPrice = total
}

// RequiresPayment reports whether any selected document needs payment before
// the request can be finalized.
func (s *WizardState) RequiresPayment() bool {
	for _, doc := range s.SelectedDocs {
		if doc.RequiresPaymentFirst {
			return true
		}
	}
	return false
}

// PreservedPaymentData is the durable snapshot written before redirecting to
// the external payment provider. The redirect is a full browser navigation, so
// this record plus the payment-completed flag is the sole source of truth for
// payment progress after the round-trip.
type PreservedPaymentData struct {
	RequestID   string             `json:"request_id"`
	Amount      float64            `json:"amount"`
	Documents   []SelectedDocument `json:"documents"`
	CheckoutID  string             `json:"checkout_id"`
	PreservedAt time.Time          `json:"preserved_at"`
}
