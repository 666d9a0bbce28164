package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/registrar-docs-api/internal/models"
	appErrors "github.com/noah-isme/registrar-docs-api/pkg/errors"
	"github.com/noah-isme/registrar-docs-api/pkg/response"
)

type exportService interface {
	ClaimStub(ctx context.Context, requestID, token string) ([]byte, error)
	RegistryCSV(ctx context.Context, filter models.RequestFilter, actor *models.JWTClaims) ([]byte, error)
}

// ExportHandler serves the claim stub PDF and registry exports.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// ClaimStub godoc
// @Summary Download the claim stub for a submitted request
// @Description The signed token is the only credential. Submission revokes
// the session, so no Authorization header is expected here.
// @Tags Exports
// @Produce application/pdf
// @Param id path string true "Request ID"
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /requests/{id}/claim-stub [get]
func (h *ExportHandler) ClaimStub(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	pdf, err := h.service.ClaimStub(c.Request.Context(), c.Param("id"), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"claim-stub-%s.pdf\"", c.Param("id")))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// RegistryCSV godoc
// @Summary Export the request registry as CSV
// @Tags Exports
// @Produce text/csv
// @Param status query string false "Display status filter"
// @Param assignedTo query string false "Assigned admin filter"
// @Success 200 {file} binary
// @Router /requests/export [get]
func (h *ExportHandler) RegistryCSV(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := models.RequestFilter{
		AssignedAdminID: strings.TrimSpace(c.Query("assignedTo")),
	}
	if display := strings.TrimSpace(c.Query("status")); display != "" {
		filter.Status = []models.RequestStatus{models.ToBackendStatus(display)}
	}
	data, err := h.service.RegistryCSV(c.Request.Context(), filter, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("requests-%s.csv", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/csv", data)
}
