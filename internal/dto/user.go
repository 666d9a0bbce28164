package dto

import (
	"time"

	"github.com/noah-isme/registrar-docs-api/internal/models"
)

// UserFilter carries the query parameters of the admin user list.
type UserFilter struct {
	Role      string
	Active    *bool
	Search    string
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
}

// CreateUserRequest provisions an account with an initial password.
type CreateUserRequest struct {
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=8"`
	FullName      string `json:"fullName" validate:"required"`
	StudentNumber string `json:"studentNumber"`
	Role          string `json:"role" validate:"required,oneof=SUPERADMIN ADMIN STUDENT"`
}

// UpdateUserRequest applies partial account updates.
type UpdateUserRequest struct {
	FullName      *string `json:"fullName"`
	StudentNumber *string `json:"studentNumber"`
	Role          *string `json:"role" validate:"omitempty,oneof=SUPERADMIN ADMIN STUDENT"`
	Active        *bool   `json:"active"`
}

// UserResponse is the account view returned to administrators.
type UserResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FullName      string     `json:"fullName"`
	StudentNumber string     `json:"studentNumber,omitempty"`
	Role          string     `json:"role"`
	Active        bool       `json:"active"`
	LastLogin     *time.Time `json:"lastLogin,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// NewUserResponse maps a stored user onto the admin view.
func NewUserResponse(user *models.User) UserResponse {
	resp := UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		FullName:  user.FullName,
		Role:      string(user.Role),
		Active:    user.Active,
		LastLogin: user.LastLogin,
		CreatedAt: user.CreatedAt,
	}
	if user.StudentNumber != nil {
		resp.StudentNumber = *user.StudentNumber
	}
	return resp
}
