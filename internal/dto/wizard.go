package dto

import "github.com/noah-isme/registrar-docs-api/internal/models"

// WizardStateResponse is the aggregate returned after every wizard mutation so
// the client can re-render the current step without a second round-trip.
type WizardStateResponse struct {
	Step             models.WizardStep         `json:"step"`
	SelectedDocs     []models.SelectedDocument `json:"selectedDocs"`
	Uploads          map[string]string         `json:"uploads"`
	Requirements     []string                  `json:"requirements"`
	PreferredContact models.ContactMethod      `json:"preferredContact,omitempty"`
	TotalPrice       float64                   `json:"totalPrice"`
	RequiresPayment  bool                      `json:"requiresPayment"`
	PaymentCompleted bool                      `json:"paymentCompleted"`
	ActiveRequests   []ActiveRequestSummary    `json:"activeRequests,omitempty"`
}

// ActiveRequestSummary is the minimal view shown on the pending-requests
// branch of the entry guard.
type ActiveRequestSummary struct {
	TrackingID    string `json:"trackingId"`
	DisplayStatus string `json:"displayStatus"`
	RequestedAt   string `json:"requestedAt"`
}

// SelectDocumentsRequest carries the document picks for the documents step.
// Custom documents have no catalog id and are priced out-of-band.
type SelectDocumentsRequest struct {
	Documents []SelectedDocumentInput `json:"documents" validate:"required,min=1,dive"`
}

// SelectedDocumentInput is one pick: either a catalog document by id or a
// free-text custom document.
type SelectedDocumentInput struct {
	DocID    string `json:"docId"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

// UploadRequirementResponse reports where an uploaded requirement landed.
type UploadRequirementResponse struct {
	Requirement string `json:"requirement"`
	Path        string `json:"path"`
}

// PreferredContactRequest sets the requester's contact channel.
type PreferredContactRequest struct {
	Method  models.ContactMethod `json:"method" validate:"required"`
	Remarks string               `json:"remarks"`
}

// NavigateRequest moves the wizard cursor without a step-specific payload.
type NavigateRequest struct {
	Event string `json:"event" validate:"required,oneof=advance back createNewAnyway"`
}

// SubmitResponse is returned once for a finalized request. The claim stub URL
// is pre-signed because the session is revoked as part of submission.
type SubmitResponse struct {
	TrackingID   string `json:"trackingId"`
	ClaimStubURL string `json:"claimStubUrl"`
}
