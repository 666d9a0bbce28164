package dto

import "github.com/noah-isme/registrar-docs-api/internal/models"

// RequestFilter captures admin list query parameters.
type RequestFilter struct {
	Status        string
	DisplayStatus string
	AssignedTo    string
	StudentID     string
	Search        string
	Page          int
	Limit         int
}

// RequestResponse is the tracking view of one request. Status is the display
// label; the backend status stays internal to the admin endpoints.
type RequestResponse struct {
	TrackingID       string                   `json:"trackingId"`
	StudentID        string                   `json:"studentId"`
	StudentName      string                   `json:"studentName,omitempty"`
	DisplayStatus    string                   `json:"displayStatus"`
	Paid             bool                     `json:"paid"`
	TotalPrice       float64                  `json:"totalPrice"`
	PreferredContact models.ContactMethod     `json:"preferredContact"`
	AssignedAdmin    *string                  `json:"assignedAdmin,omitempty"`
	Documents        []RequestDocumentView    `json:"documents"`
	Requirements     []RequestRequirementView `json:"requirements,omitempty"`
	Remarks          string                   `json:"remarks,omitempty"`
	CreatedAt        string                   `json:"createdAt"`
	UpdatedAt        string                   `json:"updatedAt"`
}

// RequestDocumentView is one requested document with its preparation flag.
type RequestDocumentView struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Quantity             int     `json:"quantity"`
	Cost                 float64 `json:"cost"`
	IsCustom             bool    `json:"isCustom"`
	RequiresPaymentFirst bool    `json:"requiresPaymentFirst"`
	IsDone               bool    `json:"isDone"`
	Paid                 bool    `json:"paid"`
}

// RequestRequirementView points at a stored requirement file.
type RequestRequirementView struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// UpdateStatusRequest asks for a transition by display label, as shown in the
// admin UI. The label is mapped back to a backend status before validation.
type UpdateStatusRequest struct {
	DisplayStatus string `json:"displayStatus" validate:"required"`
}

// AssignRequest assigns an admin to a request.
type AssignRequest struct {
	AdminID string `json:"adminId" validate:"required,uuid"`
}

// ToggleDocumentRequest flips the done flag on one requested document.
type ToggleDocumentRequest struct {
	Done bool `json:"done"`
}

// TransitionBlockedMeta is attached to a rejected transition so the client
// can show what is missing and where to go next.
type TransitionBlockedMeta struct {
	Reason      string `json:"reason"`
	Requirement string `json:"requirement"`
	NextSteps   string `json:"nextSteps"`
	From        string `json:"from"`
	To          string `json:"to"`
}
