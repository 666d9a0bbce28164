package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/registrar-docs-api/internal/dto"
	"github.com/noah-isme/registrar-docs-api/internal/models"
)

type fakePaymentSrv struct {
	checkoutResp *dto.CheckoutResponse
	checkoutErr  error
	returnResp   *dto.PaymentReturnResponse
	returnErr    error
	lastReturn   dto.PaymentReturnRequest
	markedPaid   string
}

func (f *fakePaymentSrv) StartCheckout(context.Context, string) (*dto.CheckoutResponse, error) {
	return f.checkoutResp, f.checkoutErr
}

func (f *fakePaymentSrv) HandleReturn(_ context.Context, _ string, req dto.PaymentReturnRequest) (*dto.PaymentReturnResponse, error) {
	f.lastReturn = req
	return f.returnResp, f.returnErr
}

func (f *fakePaymentSrv) MarkRequestPaid(_ context.Context, requestID string, _ dto.MarkPaidRequest, _ *models.JWTClaims) error {
	f.markedPaid = requestID
	return nil
}

func (f *fakePaymentSrv) MarkDocumentPaid(context.Context, string, string, *models.JWTClaims) error {
	return nil
}

func TestPaymentHandlerCheckout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakePaymentSrv{checkoutResp: &dto.CheckoutResponse{CheckoutID: "chk-1", CheckoutURL: "https://pay.example/chk-1", Amount: 400}}
	handler := NewPaymentHandler(srv, nil)

	rec := httptest.NewRecorder()
	c := studentContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/wizard/payment/checkout", nil)

	handler.Checkout(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, string(body.Data), "chk-1")
}

func TestPaymentHandlerReturnBindsQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakePaymentSrv{returnResp: &dto.PaymentReturnResponse{Outcome: "success", Step: models.StepSummary, PaymentCompleted: true}}
	handler := NewPaymentHandler(srv, nil)

	rec := httptest.NewRecorder()
	c := studentContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/wizard/payment/return?payment=success&tracking=trk-1", nil)

	handler.Return(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", srv.lastReturn.Outcome)
	assert.Equal(t, "trk-1", srv.lastReturn.TrackingID)
}

func TestPaymentHandlerReturnCancelRetains(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakePaymentSrv{returnResp: &dto.PaymentReturnResponse{Outcome: "cancel", Step: models.StepSummary, Retained: true}}
	handler := NewPaymentHandler(srv, nil)

	rec := httptest.NewRecorder()
	c := studentContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/wizard/payment/return?payment=cancel&tracking=trk-1", nil)

	handler.Return(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, string(body.Data), `"retained":true`)
}

func TestPaymentHandlerMarkRequestPaid(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakePaymentSrv{}
	handler := NewPaymentHandler(srv, nil)

	rec := httptest.NewRecorder()
	c := adminContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/requests/req-1/payment",
		strings.NewReader(`{"reference":"OR-2026-001"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	handler.MarkRequestPaid(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "req-1", srv.markedPaid)
}

func TestPaymentHandlerRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewPaymentHandler(&fakePaymentSrv{}, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/wizard/payment/checkout", nil)

	handler.Checkout(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
