package dto

// CreateDocumentRequest defines a catalog document offered to requesters.
type CreateDocumentRequest struct {
	Name                 string   `json:"name" validate:"required"`
	Cost                 float64  `json:"cost" validate:"min=0"`
	RequiresPaymentFirst bool     `json:"requiresPaymentFirst"`
	Requirements         []string `json:"requirements"`
}

// UpdateDocumentRequest applies partial catalog updates.
type UpdateDocumentRequest struct {
	Name                 *string  `json:"name"`
	Cost                 *float64 `json:"cost" validate:"omitempty,min=0"`
	RequiresPaymentFirst *bool    `json:"requiresPaymentFirst"`
	Requirements         []string `json:"requirements"`
	Active               *bool    `json:"active"`
}

// CreateRequirementRequest registers a named requirement documents can share.
type CreateRequirementRequest struct {
	Name string `json:"name" validate:"required"`
}
