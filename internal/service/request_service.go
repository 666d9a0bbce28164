package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/registrar-docs-api/internal/dto"
	"github.com/noah-isme/registrar-docs-api/internal/models"
	"github.com/noah-isme/registrar-docs-api/internal/workflow"
	appErrors "github.com/noah-isme/registrar-docs-api/pkg/errors"
)

type requestStore interface {
	FindByID(ctx context.Context, id string) (*models.DocumentRequest, error)
	Documents(ctx context.Context, requestID string) ([]models.RequestDocument, error)
	Requirements(ctx context.Context, requestID string) ([]models.RequestRequirement, error)
	Snapshot(ctx context.Context, requestID string) (*models.RequestSnapshot, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.DocumentRequest, int, error)
	ListActiveByStudent(ctx context.Context, studentID string) ([]models.DocumentRequest, error)
	UpdateStatus(ctx context.Context, id string, status models.RequestStatus) error
	Assign(ctx context.Context, id, adminID string) error
	ToggleDocument(ctx context.Context, requestID, documentID string, done bool) error
}

type requestUserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// RequestService exposes the request lifecycle to the status board. Status
// changes go through the transition rules; a blocked transition carries its
// restriction descriptor back to the caller.
type RequestService struct {
	repo   requestStore
	users  requestUserStore
	audit  auditLogger
	logger *zap.Logger
}

// NewRequestService constructs a RequestService.
func NewRequestService(repo requestStore, users requestUserStore, audit auditLogger, logger *zap.Logger) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{repo: repo, users: users, audit: audit, logger: logger}
}

// List returns requests for the board. Filtering by display label folds
// Unpaid and Ready into the same backend status.
func (s *RequestService) List(ctx context.Context, filter dto.RequestFilter) ([]dto.RequestResponse, int, error) {
	repoFilter := models.RequestFilter{
		StudentID:       filter.StudentID,
		AssignedAdminID: filter.AssignedTo,
		Search:          filter.Search,
		Limit:           filter.Limit,
		Offset:          (max(filter.Page, 1) - 1) * filter.Limit,
	}
	if filter.Status != "" {
		repoFilter.Status = []models.RequestStatus{models.RequestStatus(filter.Status)}
	} else if filter.DisplayStatus != "" {
		repoFilter.Status = []models.RequestStatus{models.ToBackendStatus(filter.DisplayStatus)}
	}

	reqs, total, err := s.repo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}

	out := make([]dto.RequestResponse, 0, len(reqs))
	names := make(map[string]string)
	for _, req := range reqs {
		view := s.toResponse(&req, nil, nil)
		if filter.DisplayStatus != "" && view.DisplayStatus != filter.DisplayStatus {
			// Unpaid and Ready share a backend status; drop the wrong half
			continue
		}
		view.StudentName = s.studentName(ctx, req.StudentID, names)
		out = append(out, view)
	}
	return out, total, nil
}

// Get returns the full tracking view of one request.
func (s *RequestService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*dto.RequestResponse, error) {
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor != nil && actor.Role == models.RoleStudent && req.StudentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "request belongs to another student")
	}
	docs, err := s.repo.Documents(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request documents")
	}
	reqs, err := s.repo.Requirements(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request requirements")
	}
	view := s.toResponse(req, docs, reqs)
	view.StudentName = s.studentName(ctx, req.StudentID, map[string]string{})
	return &view, nil
}

// ListMine returns the student's own non-terminal requests.
func (s *RequestService) ListMine(ctx context.Context, studentID string) ([]dto.RequestResponse, error) {
	reqs, err := s.repo.ListActiveByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	out := make([]dto.RequestResponse, 0, len(reqs))
	names := make(map[string]string)
	for _, req := range reqs {
		view := s.toResponse(&req, nil, nil)
		view.StudentName = s.studentName(ctx, req.StudentID, names)
		out = append(out, view)
	}
	return out, nil
}

// Assign hands a request to an admin. Assignment is the precondition for
// leaving PENDING.
func (s *RequestService) Assign(ctx context.Context, id string, req dto.AssignRequest, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	admin, err := s.users.FindByID(ctx, req.AdminID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "admin not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load admin")
	}
	if admin.Role != models.RoleAdmin && admin.Role != models.RoleSuperAdmin {
		return appErrors.Clone(appErrors.ErrValidation, "assignee must be an admin")
	}

	if err := s.repo.Assign(ctx, id, req.AdminID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign request")
	}
	s.emitAudit(ctx, actor, id, models.AuditActionRequestAssign, fmt.Sprintf(`{"admin_id":%q}`, req.AdminID))
	return nil
}

// ToggleDocument flips the preparation flag on one document line.
func (s *RequestService) ToggleDocument(ctx context.Context, requestID, documentID string, done bool, actor *models.JWTClaims) error {
	if actor == nil {
		return appErrors.ErrUnauthorized
	}
	if err := s.repo.ToggleDocument(ctx, requestID, documentID, done); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "request document not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle document")
	}
	s.emitAudit(ctx, actor, requestID, models.AuditActionDocumentToggle, fmt.Sprintf(`{"document_id":%q,"done":%t}`, documentID, done))
	return nil
}

// UpdateStatus validates and applies a lifecycle transition requested by
// display label. On a blocked transition the restriction descriptor is
// returned alongside the error so callers can render what is missing.
func (s *RequestService) UpdateStatus(ctx context.Context, id string, req dto.UpdateStatusRequest, actor *models.JWTClaims) (*workflow.Result, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if req.DisplayStatus == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "display status is required")
	}

	snapshot, err := s.repo.Snapshot(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}

	target := models.ToBackendStatus(req.DisplayStatus)
	result := workflow.ValidateTransition(snapshot.Status, target, *snapshot)
	if !result.IsValid {
		return &result, appErrors.Clone(appErrors.ErrTransitionBlocked, result.Reason)
	}

	if err := s.repo.UpdateStatus(ctx, id, target); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update status")
	}

	s.emitAudit(ctx, actor, id, models.AuditActionStatusChange,
		fmt.Sprintf(`{"from":%q,"to":%q}`, snapshot.Status, target))
	return &result, nil
}

func (s *RequestService) load(ctx context.Context, id string) (*models.DocumentRequest, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return req, nil
}

func (s *RequestService) toResponse(req *models.DocumentRequest, docs []models.RequestDocument, reqs []models.RequestRequirement) dto.RequestResponse {
	view := dto.RequestResponse{
		TrackingID:       req.ID,
		StudentID:        req.StudentID,
		DisplayStatus:    models.ToDisplayStatus(req.Status, req.PaymentStatus),
		Paid:             req.PaymentStatus,
		TotalPrice:       req.TotalPrice,
		PreferredContact: req.PreferredContact,
		AssignedAdmin:    req.AssignedAdminID,
		CreatedAt:        req.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        req.UpdatedAt.Format(time.RFC3339),
	}
	if req.Remarks != nil {
		view.Remarks = *req.Remarks
	}
	for _, doc := range docs {
		view.Documents = append(view.Documents, dto.RequestDocumentView{
			ID:                   doc.ID,
			Name:                 doc.Name,
			Quantity:             doc.Quantity,
			Cost:                 doc.Cost,
			IsCustom:             doc.IsCustom,
			RequiresPaymentFirst: doc.RequiresPaymentFirst,
			IsDone:               doc.IsDone,
			Paid:                 doc.Paid,
		})
	}
	for _, r := range reqs {
		view.Requirements = append(view.Requirements, dto.RequestRequirementView{
			Name: r.RequirementName,
			Path: r.FilePath,
		})
	}
	return view
}

// studentName resolves the requester's display name, memoised per call so one
// board page does not repeat lookups for the same student.
func (s *RequestService) studentName(ctx context.Context, id string, memo map[string]string) string {
	if name, ok := memo[id]; ok {
		return name
	}
	var name string
	if user, err := s.users.FindByID(ctx, id); err == nil {
		name = user.FullName
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("failed to resolve student name", zap.String("student_id", id), zap.Error(err))
	}
	memo[id] = name
	return name
}

func (s *RequestService) emitAudit(ctx context.Context, actor *models.JWTClaims, requestID, action, payload string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     action,
		Resource:   "request",
		ResourceID: &requestID,
		NewValues:  []byte(payload),
	}); err != nil {
		s.logger.Warn("failed to record request audit log", zap.Error(err))
	}
}
