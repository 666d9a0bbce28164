package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/registrar-docs-api/internal/dto"
	"github.com/noah-isme/registrar-docs-api/internal/service"
	appErrors "github.com/noah-isme/registrar-docs-api/pkg/errors"
	"github.com/noah-isme/registrar-docs-api/pkg/response"
)

type wizardService interface {
	Start(ctx context.Context, studentID string) (*dto.WizardStateResponse, error)
	State(ctx context.Context, studentID string) (*dto.WizardStateResponse, error)
	Navigate(ctx context.Context, studentID string, req dto.NavigateRequest) (*dto.WizardStateResponse, error)
	SelectDocuments(ctx context.Context, studentID string, req dto.SelectDocumentsRequest) (*dto.WizardStateResponse, error)
	UploadRequirement(ctx context.Context, studentID string, upload service.RequirementUpload) (*dto.WizardStateResponse, error)
	RemoveUpload(ctx context.Context, studentID, requirement string) (*dto.WizardStateResponse, error)
	CompleteUploads(ctx context.Context, studentID string) (*dto.WizardStateResponse, error)
	SetPreferredContact(ctx context.Context, studentID string, req dto.PreferredContactRequest) (*dto.WizardStateResponse, error)
	Submit(ctx context.Context, studentID string) (*dto.SubmitResponse, error)
	Abandon(ctx context.Context, studentID string) error
}

// WizardHandler drives the submission wizard for the authenticated student.
type WizardHandler struct {
	service wizardService
	metrics *service.MetricsService
}

// NewWizardHandler constructs the handler.
func NewWizardHandler(svc wizardService, metrics *service.MetricsService) *WizardHandler {
	return &WizardHandler{service: svc, metrics: metrics}
}

// Start godoc
// @Summary Start or resume the submission wizard
// @Tags Wizard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /wizard/start [post]
func (h *WizardHandler) Start(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	state, err := h.service.Start(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// State godoc
// @Summary Get current wizard state
// @Tags Wizard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /wizard [get]
func (h *WizardHandler) State(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	state, err := h.service.State(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// Navigate godoc
// @Summary Move the wizard forward or back
// @Tags Wizard
// @Accept json
// @Produce json
// @Param payload body dto.NavigateRequest true "Navigation event"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /wizard/navigate [post]
func (h *WizardHandler) Navigate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid navigation payload"))
		return
	}
	state, err := h.service.Navigate(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordWizardEvent(string(state.Step), req.Event)
	response.JSON(c, http.StatusOK, state, nil)
}

// SelectDocuments godoc
// @Summary Set the document selection
// @Tags Wizard
// @Accept json
// @Produce json
// @Param payload body dto.SelectDocumentsRequest true "Document picks"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /wizard/documents [put]
func (h *WizardHandler) SelectDocuments(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SelectDocumentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid document selection"))
		return
	}
	state, err := h.service.SelectDocuments(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// UploadRequirement godoc
// @Summary Upload a requirement file
// @Tags Wizard
// @Accept multipart/form-data
// @Produce json
// @Param requirement formData string true "Requirement name"
// @Param file formData file true "Requirement file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /wizard/uploads [post]
func (h *WizardHandler) UploadRequirement(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	requirement := c.PostForm("requirement")
	if requirement == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "requirement is required"))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close()

	reader, ok := src.(io.ReadSeeker)
	if !ok {
		buf, readErr := io.ReadAll(src)
		if readErr != nil {
			response.Error(c, appErrors.Wrap(readErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer file"))
			return
		}
		reader = bytes.NewReader(buf)
	}

	state, err := h.service.UploadRequirement(c.Request.Context(), claims.UserID, service.RequirementUpload{
		Requirement: requirement,
		Filename:    fileHeader.Filename,
		Size:        fileHeader.Size,
		MimeType:    fileHeader.Header.Get("Content-Type"),
		Content:     reader,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// RemoveUpload godoc
// @Summary Remove an uploaded requirement file
// @Tags Wizard
// @Produce json
// @Param requirement path string true "Requirement name"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /wizard/uploads/{requirement} [delete]
func (h *WizardHandler) RemoveUpload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	requirement := c.Param("requirement")
	if requirement == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "requirement is required"))
		return
	}
	state, err := h.service.RemoveUpload(c.Request.Context(), claims.UserID, requirement)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// CompleteUploads godoc
// @Summary Confirm all requirement uploads are present
// @Tags Wizard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /wizard/uploads/complete [post]
func (h *WizardHandler) CompleteUploads(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	state, err := h.service.CompleteUploads(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// SetPreferredContact godoc
// @Summary Set the preferred contact channel
// @Tags Wizard
// @Accept json
// @Produce json
// @Param payload body dto.PreferredContactRequest true "Contact channel"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /wizard/contact [put]
func (h *WizardHandler) SetPreferredContact(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.PreferredContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid contact payload"))
		return
	}
	state, err := h.service.SetPreferredContact(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// Submit godoc
// @Summary Finalize the wizard into a tracked request
// @Description Creates the request, revokes the session and returns a
// pre-signed claim stub URL.
// @Tags Wizard
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 402 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /wizard/submit [post]
func (h *WizardHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	res, err := h.service.Submit(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.metrics.RecordSubmission()
	response.JSON(c, http.StatusCreated, res, nil)
}

// Abandon godoc
// @Summary Discard the in-progress wizard
// @Tags Wizard
// @Produce json
// @Success 204
// @Router /wizard [delete]
func (h *WizardHandler) Abandon(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Abandon(c.Request.Context(), claims.UserID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
