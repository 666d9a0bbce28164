package dto

import "github.com/noah-isme/registrar-docs-api/internal/models"

// CheckoutResponse hands the client the gateway URL to navigate to. The
// redirect is a full browser navigation, so everything needed to resume the
// wizard is persisted server-side before this is returned.
type CheckoutResponse struct {
	CheckoutID  string  `json:"checkoutId"`
	CheckoutURL string  `json:"checkoutUrl"`
	Amount      float64 `json:"amount"`
}

// PaymentReturnRequest mirrors the query parameters the gateway appends when
// sending the payer back. Outcome is one of success, failure or cancel.
type PaymentReturnRequest struct {
	Outcome    string `form:"payment" validate:"required,oneof=success failure cancel"`
	TrackingID string `form:"tracking"`
}

// PaymentReturnResponse tells the client how the round-trip resolved and
// which step to resume on.
type PaymentReturnResponse struct {
	Outcome          string            `json:"outcome"`
	Step             models.WizardStep `json:"step"`
	PaymentCompleted bool              `json:"paymentCompleted"`
	Retained         bool              `json:"retained"`
}

// MarkPaidRequest records an over-the-counter payment against a request.
type MarkPaidRequest struct {
	Reference string `json:"reference"`
}
