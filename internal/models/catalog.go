package models

import (
	"time"

	"github.com/lib/pq"
)

// Document is an entry in the administrative document catalog. A document
// references its supporting requirements by name; requirement identity is
// resolved against the requirement catalog at selection time.
type Document struct {
	ID                   string         `db:"id" json:"doc_id"`
	Name                 string         `db:"name" json:"doc_name"`
	Cost                 float64        `db:"cost" json:"cost"`
	RequiresPaymentFirst bool           `db:"requires_payment_first" json:"requires_payment_first"`
	RequirementNames     pq.StringArray `db:"requirement_names" json:"requirement_names"`
	Active               bool           `db:"active" json:"active"`
	CreatedAt            time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updated_at"`
}

// Requirement is a named supporting-document type requesters must upload.
type Requirement struct {
	ID        string    `db:"id" json:"req_id"`
	Name      string    `db:"name" json:"requirement_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
