package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/registrar-docs-api/internal/dto"
	"github.com/noah-isme/registrar-docs-api/internal/models"
	appErrors "github.com/noah-isme/registrar-docs-api/pkg/errors"
	"github.com/noah-isme/registrar-docs-api/pkg/response"
)

type catalogService interface {
	ListOffered(ctx context.Context) ([]models.Document, error)
	ListAll(ctx context.Context) ([]models.Document, error)
	Get(ctx context.Context, id string) (*models.Document, error)
	Create(ctx context.Context, req dto.CreateDocumentRequest, actor *models.JWTClaims) (*models.Document, error)
	Update(ctx context.Context, id string, req dto.UpdateDocumentRequest, actor *models.JWTClaims) (*models.Document, error)
	ListRequirements(ctx context.Context) ([]models.Requirement, error)
	CreateRequirement(ctx context.Context, req dto.CreateRequirementRequest, actor *models.JWTClaims) (*models.Requirement, error)
}

// CatalogHandler serves the offered-document and requirement catalogs.
type CatalogHandler struct {
	service catalogService
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(svc catalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// ListOffered godoc
// @Summary List documents offered to students
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/documents [get]
func (h *CatalogHandler) ListOffered(c *gin.Context) {
	docs, err := h.service.ListOffered(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, nil)
}

// ListAll godoc
// @Summary List the full catalog including retired documents
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/documents/all [get]
func (h *CatalogHandler) ListAll(c *gin.Context) {
	docs, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, docs, nil)
}

// Get godoc
// @Summary Get one catalog document
// @Tags Catalog
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /catalog/documents/{id} [get]
func (h *CatalogHandler) Get(c *gin.Context) {
	doc, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Create godoc
// @Summary Register a catalog document
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateDocumentRequest true "Document"
// @Success 201 {object} response.Envelope
// @Router /catalog/documents [post]
func (h *CatalogHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid document payload"))
		return
	}
	doc, err := h.service.Create(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// Update godoc
// @Summary Update a catalog document
// @Tags Catalog
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.UpdateDocumentRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /catalog/documents/{id} [patch]
func (h *CatalogHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid document payload"))
		return
	}
	doc, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// ListRequirements godoc
// @Summary List the requirement catalog
// @Tags Catalog
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /catalog/requirements [get]
func (h *CatalogHandler) ListRequirements(c *gin.Context) {
	reqs, err := h.service.ListRequirements(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reqs, nil)
}

// CreateRequirement godoc
// @Summary Register a requirement catalog entry
// @Tags Catalog
// @Accept json
// @Produce json
// @Param payload body dto.CreateRequirementRequest true "Requirement"
// @Success 201 {object} response.Envelope
// @Router /catalog/requirements [post]
func (h *CatalogHandler) CreateRequirement(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.CreateRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid requirement payload"))
		return
	}
	requirement, err := h.service.CreateRequirement(c.Request.Context(), req, claims)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, requirement)
}
