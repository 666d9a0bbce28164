package handler

import (
	"context"
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

type fakeUserSrv struct {
	listResp    []dto.UserResponse
	listTotal   int
	listFilter  dto.UserFilter
	created     *dto.CreateUserRequest
	updated     *dto.UpdateUserRequest
	deactivated string
}

func (f *fakeUserSrv) List(_ context.Context, filter dto.UserFilter) ([]dto.UserResponse, int, error) {
	f.listFilter = filter
	return f.listResp, f.listTotal, nil
}

func (f *fakeUserSrv) Create(_ context.Context, req dto.CreateUserRequest, _ *models.JWTClaims) (*dto.UserResponse, error) {
	f.created = &req
	return &dto.UserResponse{ID: "user-new", Email: req.Email}, nil
}

func (f *fakeUserSrv) Update(_ context.Context, id string, req dto.UpdateUserRequest, _ *models.JWTClaims) (*dto.UserResponse, error) {
	f.updated = &req
	return &dto.UserResponse{ID: id}, nil
}

func (f *fakeUserSrv) Deactivate(_ context.Context, id string, _ *models.JWTClaims) error {
	f.deactivated = id
	return nil
}

func TestUserHandlerListBuildsFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeUserSrv{listTotal: 1, listResp: []dto.UserResponse{{ID: "user-1"}}}
	handler := NewUserHandler(srv)

	rec := httptest.NewRecorder()
	c := adminContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/users?role=STUDENT&active=false&search=maria&page=3", nil)

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "STUDENT", srv.listFilter.Role)
	require.NotNil(t, srv.listFilter.Active)
	assert.False(t, *srv.listFilter.Active)
	assert.Equal(t, "maria", srv.listFilter.Search)
	assert.Equal(t, 3, srv.listFilter.Page)
}

func TestUserHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeUserSrv{}
	handler := NewUserHandler(srv)

	rec := httptest.NewRecorder()
	c := adminContext(rec)
	body := `{"email":"staff@univ.edu","password":"s3cret-pass","fullName":"Staff","role":"ADMIN"}`
	c.Request = httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, srv.created)
	assert.Equal(t, "staff@univ.edu", srv.created.Email)
}

func TestUserHandlerDeactivate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv := &fakeUserSrv{}
	handler := NewUserHandler(srv)

	rec := httptest.NewRecorder()
	c := adminContext(rec)
	c.Request = httptest.NewRequest(http.MethodDelete, "/users/user-2", nil)
	c.Params = gin.Params{{Key: "id", Value: "user-2"}}

	handler.Deactivate(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Equal(t, "user-2", srv.deactivated)
}
