package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/registrar-docs-api/internal/dto"
	"github.com/noah-isme/registrar-docs-api/internal/models"
	"github.com/noah-isme/registrar-docs-api/internal/service"
	appErrors "github.com/noah-isme/registrar-docs-api/pkg/errors"
	"github.com/noah-isme/registrar-docs-api/pkg/response"
)

type paymentService interface {
	StartCheckout(ctx context.Context, studentID string) (*dto.CheckoutResponse, error)
	HandleReturn(ctx context.Context, studentID string, req dto.PaymentReturnRequest) (*dto.PaymentReturnResponse, error)
	MarkRequestPaid(ctx context.Context, requestID string, req dto.MarkPaidRequest, actor *models.JWTClaims) error
	MarkDocumentPaid(ctx context.Context, requestID, documentID string, actor *models.JWTClaims) error
}

// PaymentHandler exposes the checkout round-trip and over-the-counter
// payment endpoints.
type PaymentHandler struct {
	service paymentService
	metrics *service.MetricsService
}

// NewPaymentHandler constructs the handler.
func NewPaymentHandler(svc paymentService, metrics *service.MetricsService) *PaymentHandler {
	return &PaymentHandler{service: svc, metrics: metrics}
}

// Checkout godoc
// @Summary Start a payment checkout for the wizard summary
// @Tags Payments
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /wizard/payment/checkout [post]
func (h *PaymentHandler) Checkout(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	res, err := h.service.StartCheckout(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Return godoc
// @Summary Handle the redirect back from the payment gateway
// @Description The gateway appends payment and tracking query parameters
// when sending the payer back.
// @Tags Payments
// @Produce json
// @Param payment query string true "Outcome" Enums(success, failure, cancel)
// @Param tracking query string true "Checkout tracking id"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /wizard/payment/return [get]
func (h *PaymentHandler) Return(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.PaymentReturnRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid return parameters"))
		return
	}
	res, err := h.service.HandleReturn(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordPaymentReturn(res.Outcome)
	response.JSON(c, http.StatusOK, res, nil)
}

// MarkRequestPaid godoc
// @Summary Record an over-the-counter payment for a request
// @Tags Payments
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.MarkPaidRequest true "Payment reference"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /requests/{id}/payment [post]
func (h *PaymentHandler) MarkRequestPaid(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.MarkPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid payment payload"))
		return
	}
	if err := h.service.MarkRequestPaid(c.Request.Context(), c.Param("id"), req, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkDocumentPaid godoc
// @Summary Record payment for a single requested document
// @Tags Payments
// @Produce json
// @Param id path string true "Request ID"
// @Param docId path string true "Document line ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /requests/{id}/documents/{docId}/payment [post]
func (h *PaymentHandler) MarkDocumentPaid(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.MarkDocumentPaid(c.Request.Context(), c.Param("id"), c.Param("docId"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
