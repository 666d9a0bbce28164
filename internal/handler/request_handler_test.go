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
	"github.com/noah-isme/registrar-docs-api/internal/middleware"
	"github.com/noah-isme/registrar-docs-api/internal/models"
	"github.com/noah-isme/registrar-docs-api/internal/workflow"
	appErrors "github.com/noah-isme/registrar-docs-api/pkg/errors"
)

type fakeRequestSrv struct {
	listResp   []dto.RequestResponse
	listTotal  int
	listFilter dto.RequestFilter
	getResp    *dto.RequestResponse
	getErr     error
	updResult  *workflow.Result
	updErr     error
	assignErr  error
	toggled    struct {
		requestID  string
		documentID string
		done       bool
	}
}

func (f *fakeRequestSrv) List(_ context.Context, filter dto.RequestFilter) ([]dto.RequestResponse, int, error) {
	f.listFilter = filter
	return f.listResp, f.listTotal, nil
}

func (f *fakeRequestSrv) Get(context.Context, string, *models.JWTClaims) (*dto.RequestResponse, error) {
	return f.getResp, f.getErr
}

func (f *fakeRequestSrv) ListMine(context.Context, string) ([]dto.RequestResponse, error) {
	return f.listResp, nil
}

func (f *fakeRequestSrv) Assign(context.Context, string, dto.AssignRequest, *models.JWTClaims) error {
	return f.assignErr
}

func (f *fakeRequestSrv) ToggleDocument(_ context.Context, requestID, documentID string, done bool, _ *models.JWTClaims) error {
	f.toggled.requestID = requestID
	f.toggled.documentID = documentID
	f.toggled.done = done
	return nil
}

func (f *fakeRequestSrv) UpdateStatus(context.Context, string, dto.UpdateStatusRequest, *models.JWTClaims) (*workflow.Result, error) {
	return f.updResult, f.updErr
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func adminContext(rec *httptest.ResponseRecorder) *gin.Context {
	c, _ := gin.CreateTestContext(rec)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	return c
}

func TestRequestHandlerListBuildsFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeRequestSrv{listTotal: 1, listResp: []dto.RequestResponse{{TrackingID: "req-1"}}}
	handler := NewRequestHandler(srv, nil)

	rec := httptest.NewRecorder()
	c := adminContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/requests?status=Unpaid&page=2&limit=5", nil)

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Unpaid", srv.listFilter.DisplayStatus)
	assert.Equal(t, 2, srv.listFilter.Page)
	assert.Equal(t, 5, srv.listFilter.Limit)
}

func TestRequestHandlerListDefaultsPaging(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeRequestSrv{}
	handler := NewRequestHandler(srv, nil)

	rec := httptest.NewRecorder()
	c := adminContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/requests?page=junk", nil)

	handler.List(c)

	assert.Equal(t, 1, srv.listFilter.Page)
	assert.Equal(t, 20, srv.listFilter.Limit)
}

func TestRequestHandlerUpdateStatusBlockedCarriesRestriction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeRequestSrv{
		updResult: &workflow.Result{
			IsValid:        false,
			Reason:         "request is unpaid",
			Requirement:    "payment settled",
			NextSteps:      "record the payment, then release",
			CurrentDisplay: "Unpaid",
			TargetDisplay:  "Done",
		},
		updErr: appErrors.Clone(appErrors.ErrTransitionBlocked, "request is unpaid"),
	}
	handler := NewRequestHandler(srv, nil)

	rec := httptest.NewRecorder()
	c := adminContext(rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/requests/req-1/status",
		strings.NewReader(`{"displayStatus":"Done"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	handler.UpdateStatus(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	restriction, ok := body.Meta["restriction"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "request is unpaid", restriction["reason"])
	assert.Equal(t, "Unpaid", restriction["from"])
	assert.Equal(t, "Done", restriction["to"])
	assert.NotEmpty(t, restriction["nextSteps"])
}

func TestRequestHandlerUpdateStatusSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeRequestSrv{updResult: &workflow.Result{IsValid: true}}
	handler := NewRequestHandler(srv, nil)

	rec := httptest.NewRecorder()
	c := adminContext(rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/requests/req-1/status",
		strings.NewReader(`{"displayStatus":"Processing"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}

	handler.UpdateStatus(c)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestHandlerToggleDocument(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeRequestSrv{}
	handler := NewRequestHandler(srv, nil)

	rec := httptest.NewRecorder()
	c := adminContext(rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/requests/req-1/documents/doc-1",
		strings.NewReader(`{"done":true}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "req-1"}, {Key: "docId", Value: "doc-1"}}

	handler.ToggleDocument(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "req-1", srv.toggled.requestID)
	assert.Equal(t, "doc-1", srv.toggled.documentID)
	assert.True(t, srv.toggled.done)
}

func TestRequestHandlerRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewRequestHandler(&fakeRequestSrv{}, nil)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/requests", nil)

	handler.List(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
