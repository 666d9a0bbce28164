package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/registrar-docs-api/internal/dto"
	"github.com/noah-isme/registrar-docs-api/internal/models"
	appErrors "github.com/noah-isme/registrar-docs-api/pkg/errors"
)

type userStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

// UserService covers the admin account-management operations.
type UserService struct {
	repo      userStore
	audit     auditLogger
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(repo userStore, audit auditLogger, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, audit: audit, validator: validate, logger: logger}
}

// List returns accounts matching the filter with a total count.
func (s *UserService) List(ctx context.Context, filter dto.UserFilter) ([]dto.UserResponse, int, error) {
	repoFilter := models.UserFilter{
		Active:    filter.Active,
		Search:    filter.Search,
		Page:      filter.Page,
		PageSize:  filter.Limit,
		SortBy:    filter.SortBy,
		SortOrder: filter.SortOrder,
	}
	if filter.Role != "" {
		role, err := parseRole(filter.Role)
		if err != nil {
			return nil, 0, err
		}
		repoFilter.Role = &role
	}

	users, total, err := s.repo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}

	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, dto.NewUserResponse(&users[i]))
	}
	return items, total, nil
}

// Create provisions an account with an initial password.
func (s *UserService) Create(ctx context.Context, req dto.CreateUserRequest, actor *models.JWTClaims) (*dto.UserResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	role, err := parseRole(req.Role)
	if err != nil {
		return nil, err
	}
	if role == models.RoleSuperAdmin && actor.Role != models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only a super admin can grant the super admin role")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email is already registered")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         role,
		Active:       true,
	}
	if number := strings.TrimSpace(req.StudentNumber); number != "" {
		user.StudentNumber = &number
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.recordAudit(ctx, actor, user.ID, fmt.Sprintf(`{"op":"create","role":%q}`, role))

	resp := dto.NewUserResponse(user)
	return &resp, nil
}

// Update applies partial changes to an account.
func (s *UserService) Update(ctx context.Context, id string, req dto.UpdateUserRequest, actor *models.JWTClaims) (*dto.UserResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid user payload")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}

	if req.Role != nil {
		role, err := parseRole(*req.Role)
		if err != nil {
			return nil, err
		}
		if (role == models.RoleSuperAdmin || user.Role == models.RoleSuperAdmin) && actor.Role != models.RoleSuperAdmin {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only a super admin can change super admin roles")
		}
		user.Role = role
	}
	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.StudentNumber != nil {
		if number := strings.TrimSpace(*req.StudentNumber); number != "" {
			user.StudentNumber = &number
		} else {
			user.StudentNumber = nil
		}
	}
	if req.Active != nil {
		if !*req.Active && user.ID == actor.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot deactivate your own account")
		}
		user.Active = *req.Active
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	s.recordAudit(ctx, actor, user.ID, `{"op":"update"}`)

	resp := dto.NewUserResponse(user)
	return &resp, nil
}

// Deactivate marks an account inactive. The record is kept so the audit
// trail and past requests still resolve the user.
func (s *UserService) Deactivate(ctx context.Context, id string, actor *models.JWTClaims) error {
	if id == actor.UserID {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot deactivate your own account")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	if user.Role == models.RoleSuperAdmin && actor.Role != models.RoleSuperAdmin {
		return appErrors.Clone(appErrors.ErrForbidden, "only a super admin can deactivate a super admin")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate user")
	}

	s.recordAudit(ctx, actor, id, `{"op":"deactivate"}`)
	return nil
}

func (s *UserService) recordAudit(ctx context.Context, actor *models.JWTClaims, subjectID, detail string) {
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actor.UserID,
		Action:     models.AuditActionUserManage,
		Resource:   "users",
		ResourceID: &subjectID,
		NewValues:  []byte(detail),
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("failed to record user management audit log", zap.Error(err))
	}
}

func parseRole(raw string) (models.UserRole, error) {
	switch models.UserRole(strings.ToUpper(strings.TrimSpace(raw))) {
	case models.RoleSuperAdmin:
		return models.RoleSuperAdmin, nil
	case models.RoleAdmin:
		return models.RoleAdmin, nil
	case models.RoleStudent:
		return models.RoleStudent, nil
	default:
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown role %q", raw))
	}
}
