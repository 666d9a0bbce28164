package models

import "time"

// RequestStatus captures lifecycle states for document requests.
type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "PENDING"
	RequestStatusInProgress RequestStatus = "IN-PROGRESS"
	RequestStatusDocReady   RequestStatus = "DOC-READY"
	RequestStatusReleased   RequestStatus = "RELEASED"
	RequestStatusRejected   RequestStatus = "REJECTED"
)

// Display labels shown on the status board. DOC-READY is ambiguous on its own
// and splits into Unpaid/Ready depending on the payment flag.
const (
	DisplayPending    = "Pending"
	DisplayProcessing = "Processing"
	DisplayUnpaid     = "Unpaid"
	DisplayReady      = "Ready"
	DisplayDone       = "Done"
	DisplayChange     = "Change"
)

var displayByStatus = map[RequestStatus]string{
	RequestStatusPending:    DisplayPending,
	RequestStatusInProgress: DisplayProcessing,
	RequestStatusDocReady:   DisplayReady,
	RequestStatusReleased:   DisplayDone,
	RequestStatusRejected:   DisplayChange,
}

var statusByDisplay = map[string]RequestStatus{
	DisplayPending:    RequestStatusPending,
	DisplayProcessing: RequestStatusInProgress,
	DisplayUnpaid:     RequestStatusDocReady,
	DisplayReady:      RequestStatusDocReady,
	DisplayDone:       RequestStatusReleased,
	DisplayChange:     RequestStatusRejected,
}

// ToDisplayStatus maps a backend status to its board label. Unknown statuses
// are echoed back unchanged so newer backend states never break the board.
func ToDisplayStatus(status RequestStatus, paid bool) string {
	if status == RequestStatusDocReady && !paid {
		return DisplayUnpaid
	}
	if label, ok := displayByStatus[status]; ok {
		return label
	}
	return string(status)
}

// ToBackendStatus maps a board label back to the backend status. Unknown
// labels pass through unchanged.
func ToBackendStatus(display string) RequestStatus {
	if status, ok := statusByDisplay[display]; ok {
		return status
	}
	return RequestStatus(display)
}

// ContactMethod enumerates supported notification channels.
type ContactMethod string

const (
	ContactEmail    ContactMethod = "Email"
	ContactSMS      ContactMethod = "SMS"
	ContactWhatsApp ContactMethod = "WhatsApp"
	ContactTelegram ContactMethod = "Telegram"
)

// ValidContactMethod reports whether the value is a supported channel.
func ValidContactMethod(m ContactMethod) bool {
	switch m {
	case ContactEmail, ContactSMS, ContactWhatsApp, ContactTelegram:
		return true
	}
	return false
}

// DocumentRequest is a persisted request identified by its tracking id.
type DocumentRequest struct {
	ID               string        `db:"id" json:"id"`
	StudentID        string        `db:"student_id" json:"student_id"`
	Status           RequestStatus `db:"status" json:"status"`
	PaymentStatus    bool          `db:"payment_status" json:"payment_status"`
	AssignedAdminID  *string       `db:"assigned_admin_id" json:"assigned_admin_id,omitempty"`
	PreferredContact ContactMethod `db:"preferred_contact" json:"preferred_contact"`
	TotalPrice       float64       `db:"total_price" json:"total_price"`
	Remarks          *string       `db:"remarks" json:"remarks,omitempty"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// RequestDocument is one requested document line under a request.
type RequestDocument struct {
	ID                   string  `db:"id" json:"id"`
	RequestID            string  `db:"request_id" json:"request_id"`
	DocID                *string `db:"doc_id" json:"doc_id,omitempty"`
	Name                 string  `db:"name" json:"name"`
	Cost                 float64 `db:"cost" json:"cost"`
	Quantity             int     `db:"quantity" json:"quantity"`
	IsCustom             bool    `db:"is_custom" json:"is_custom"`
	RequiresPaymentFirst bool    `db:"requires_payment_first" json:"requires_payment_first"`
	IsDone               bool    `db:"is_done" json:"is_done"`
	Paid                 bool    `db:"paid" json:"paid"`
}

// RequestRequirement records a supporting upload attached to a request.
type RequestRequirement struct {
	ID              string `db:"id" json:"id"`
	RequestID       string `db:"request_id" json:"request_id"`
	RequirementID   string `db:"requirement_id" json:"requirement_id"`
	RequirementName string `db:"requirement_name" json:"requirement_name"`
	FilePath        string `db:"file_path" json:"file_path"`
}

// SnapshotDocument is the minimal per-document view the validator needs.
type SnapshotDocument struct {
	Name   string `json:"name"`
	IsDone bool   `json:"is_done"`
}

// RequestSnapshot is the projection of a request used by transition checks.
type RequestSnapshot struct {
	Status          RequestStatus      `json:"status"`
	PaymentStatus   bool               `json:"payment_status"`
	AssignedAdminID *string            `json:"assigned_admin_id,omitempty"`
	Documents       []SnapshotDocument `json:"documents"`
	OthersDocuments []SnapshotDocument `json:"others_documents"`
}

// RequestFilter constrains admin listing queries.
type RequestFilter struct {
	Status          []RequestStatus
	AssignedAdminID string
	StudentID       string
	Search          string
	Unassigned      bool
	Limit           int
	Offset          int
}
