package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/registrar-docs-api/internal/dto"
	"github.com/noah-isme/registrar-docs-api/internal/middleware"
	"github.com/noah-isme/registrar-docs-api/internal/models"
	"github.com/noah-isme/registrar-docs-api/internal/service"
	appErrors "github.com/noah-isme/registrar-docs-api/pkg/errors"
)

type fakeWizardSrv struct {
	state      *dto.WizardStateResponse
	submitResp *dto.SubmitResponse
	submitErr  error
	lastUpload service.RequirementUpload
	removed    string
	abandoned  bool
}

func (f *fakeWizardSrv) Start(context.Context, string) (*dto.WizardStateResponse, error) {
	return f.state, nil
}

func (f *fakeWizardSrv) State(context.Context, string) (*dto.WizardStateResponse, error) {
	return f.state, nil
}

func (f *fakeWizardSrv) Navigate(context.Context, string, dto.NavigateRequest) (*dto.WizardStateResponse, error) {
	return f.state, nil
}

func (f *fakeWizardSrv) SelectDocuments(context.Context, string, dto.SelectDocumentsRequest) (*dto.WizardStateResponse, error) {
	return f.state, nil
}

func (f *fakeWizardSrv) UploadRequirement(_ context.Context, _ string, upload service.RequirementUpload) (*dto.WizardStateResponse, error) {
	f.lastUpload = upload
	return f.state, nil
}

func (f *fakeWizardSrv) RemoveUpload(_ context.Context, _ string, requirement string) (*dto.WizardStateResponse, error) {
	f.removed = requirement
	return f.state, nil
}

func (f *fakeWizardSrv) CompleteUploads(context.Context, string) (*dto.WizardStateResponse, error) {
	return f.state, nil
}

func (f *fakeWizardSrv) SetPreferredContact(context.Context, string, dto.PreferredContactRequest) (*dto.WizardStateResponse, error) {
	return f.state, nil
}

func (f *fakeWizardSrv) Submit(context.Context, string) (*dto.SubmitResponse, error) {
	return f.submitResp, f.submitErr
}

func (f *fakeWizardSrv) Abandon(context.Context, string) error {
	f.abandoned = true
	return nil
}

func studentContext(rec *httptest.ResponseRecorder) *gin.Context {
	c, _ := gin.CreateTestContext(rec)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "student-1", Role: models.RoleStudent})
	return c
}

func TestWizardHandlerStart(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeWizardSrv{state: &dto.WizardStateResponse{Step: models.StepDocuments}}
	handler := NewWizardHandler(srv, nil)

	rec := httptest.NewRecorder()
	c := studentContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/wizard/start", nil)

	handler.Start(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, string(body.Data), string(models.StepDocuments))
}

func TestWizardHandlerNavigateRejectsUnknownEvent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewWizardHandler(&fakeWizardSrv{}, nil)

	rec := httptest.NewRecorder()
	c := studentContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/wizard/navigate",
		strings.NewReader(`{"event":`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Navigate(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWizardHandlerUploadRequiresFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewWizardHandler(&fakeWizardSrv{}, nil)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("requirement", "Clearance Form"))
	require.NoError(t, writer.Close())

	rec := httptest.NewRecorder()
	c := studentContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/wizard/uploads", &buf)
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())

	handler.UploadRequirement(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWizardHandlerUploadForwardsFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeWizardSrv{state: &dto.WizardStateResponse{Step: models.StepUploadRequirements}}
	handler := NewWizardHandler(srv, nil)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	require.NoError(t, writer.WriteField("requirement", "Clearance Form"))
	part, err := writer.CreateFormFile("file", "clearance.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	rec := httptest.NewRecorder()
	c := studentContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/wizard/uploads", &buf)
	c.Request.Header.Set("Content-Type", writer.FormDataContentType())

	handler.UploadRequirement(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Clearance Form", srv.lastUpload.Requirement)
	assert.Equal(t, "clearance.pdf", srv.lastUpload.Filename)
	assert.NotNil(t, srv.lastUpload.Content)
}

func TestWizardHandlerSubmitPaymentRequired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeWizardSrv{submitErr: appErrors.ErrPaymentRequired}
	handler := NewWizardHandler(srv, nil)

	rec := httptest.NewRecorder()
	c := studentContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/wizard/submit", nil)

	handler.Submit(c)

	assert.Equal(t, http.StatusPaymentRequired, rec.Code)
}

func TestWizardHandlerSubmitSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeWizardSrv{submitResp: &dto.SubmitResponse{TrackingID: "req-1", ClaimStubURL: "/api/v1/requests/req-1/claim-stub?token=tok"}}
	handler := NewWizardHandler(srv, nil)

	rec := httptest.NewRecorder()
	c := studentContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/wizard/submit", nil)

	handler.Submit(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, string(body.Data), "claim-stub")
}

func TestWizardHandlerRemoveUpload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeWizardSrv{state: &dto.WizardStateResponse{Step: models.StepUploadRequirements}}
	handler := NewWizardHandler(srv, nil)

	rec := httptest.NewRecorder()
	c := studentContext(rec)
	c.Request = httptest.NewRequest(http.MethodDelete, "/wizard/uploads/Clearance%20Form", nil)
	c.Params = gin.Params{{Key: "requirement", Value: "Clearance Form"}}

	handler.RemoveUpload(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Clearance Form", srv.removed)
}

func TestWizardHandlerAbandon(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeWizardSrv{}
	handler := NewWizardHandler(srv, nil)

	rec := httptest.NewRecorder()
	c := studentContext(rec)
	c.Request = httptest.NewRequest(http.MethodDelete, "/wizard", nil)

	handler.Abandon(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.True(t, srv.abandoned)
}

func TestWizardHandlerRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewWizardHandler(&fakeWizardSrv{}, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/wizard", nil)

	handler.State(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
