package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/registrar-docs-api/internal/dto"
	"github.com/noah-isme/registrar-docs-api/internal/models"
	"github.com/noah-isme/registrar-docs-api/internal/service"
	"github.com/noah-isme/registrar-docs-api/internal/workflow"
	appErrors "github.com/noah-isme/registrar-docs-api/pkg/errors"
	"github.com/noah-isme/registrar-docs-api/pkg/response"
)

type requestService interface {
	List(ctx context.Context, filter dto.RequestFilter) ([]dto.RequestResponse, int, error)
	Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.RequestResponse, error)
	ListMine(ctx context.Context, studentID string) ([]dto.RequestResponse, error)
	Assign(ctx context.Context, id string, req dto.AssignRequest, actor *models.JWTClaims) error
	ToggleDocument(ctx context.Context, requestID, documentID string, done bool, actor *models.JWTClaims) error
	UpdateStatus(ctx context.Context, id string, req dto.UpdateStatusRequest, actor *models.JWTClaims) (*workflow.Result, error)
}

// RequestHandler serves the tracking board and admin request operations.
type RequestHandler struct {
	service requestService
	metrics *service.MetricsService
}

// NewRequestHandler constructs the handler.
func NewRequestHandler(svc requestService, metrics *service.MetricsService) *RequestHandler {
	return &RequestHandler{service: svc, metrics: metrics}
}

// List godoc
// @Summary List document requests
// @Description Admin board view. Status filters use display labels, so
// Unpaid and Ready are distinct columns.
// @Tags Requests
// @Produce json
// @Param status query string false "Display status filter"
// @Param assignedTo query string false "Assigned admin filter"
// @Param search query string false "Student name or tracking id search"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	filter := dto.RequestFilter{
		DisplayStatus: strings.TrimSpace(c.Query("status")),
		AssignedTo:    strings.TrimSpace(c.Query("assignedTo")),
		Search:        strings.TrimSpace(c.Query("search")),
		Page:          queryInt(c, "page", 1),
		Limit:         queryInt(c, "limit", 20),
	}
	items, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, &models.Pagination{
		Page:       filter.Page,
		PageSize:   filter.Limit,
		TotalCount: total,
	})
}

// ListMine godoc
// @Summary List the authenticated student's requests
// @Tags Requests
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /requests/mine [get]
func (h *RequestHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	items, err := h.service.ListMine(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get godoc
// @Summary Get one request with documents and requirements
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	item, err := h.service.Get(c.Request.Context(), c.Param("id"), claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// UpdateStatus godoc
// @Summary Transition a request to a new status
// @Description A rejected transition answers 409 with a restriction
// descriptor in the meta block.
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.UpdateStatusRequest true "Target display status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/status [put]
func (h *RequestHandler) UpdateStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid status payload"))
		return
	}
	result, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		if result != nil && !result.IsValid {
			h.metrics.RecordTransition(result.TargetDisplay, false)
			response.ErrorWithMeta(c, err, map[string]interface{}{
				"restriction": dto.TransitionBlockedMeta{
					Reason:      result.Reason,
					Requirement: result.Requirement,
					NextSteps:   result.NextSteps,
					From:        result.CurrentDisplay,
					To:          result.TargetDisplay,
				},
			})
			return
		}
		response.Error(c, err)
		return
	}
	h.metrics.RecordTransition(req.DisplayStatus, true)
	response.JSON(c, http.StatusOK, result, nil)
}

// Assign godoc
// @Summary Assign an admin to a request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.AssignRequest true "Admin assignment"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /requests/{id}/assignee [put]
func (h *RequestHandler) Assign(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid assignment payload"))
		return
	}
	if err := h.service.Assign(c.Request.Context(), c.Param("id"), req, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ToggleDocument godoc
// @Summary Toggle the done flag on a requested document
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param docId path string true "Document line ID"
// @Param payload body dto.ToggleDocumentRequest true "Done flag"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /requests/{id}/documents/{docId} [put]
func (h *RequestHandler) ToggleDocument(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ToggleDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid toggle payload"))
		return
	}
	if err := h.service.ToggleDocument(c.Request.Context(), c.Param("id"), c.Param("docId"), req.Done, claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return fallback
	}
	return value
}
