package users

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/circlemart/circlemart-backend/internal/repo"
	"github.com/circlemart/circlemart-backend/pkg/db/models"
	"github.com/circlemart/circlemart-backend/pkg/enums"
	"github.com/circlemart/circlemart-backend/pkg/pagination"
)

// UserDTO is the transport shape that omits credentials.
type UserDTO struct {
	ID          uuid.UUID      `json:"id"`
	FullName    string         `json:"full_name"`
	Username    string         `json:"username"`
	Email       string         `json:"email"`
	Phone       string         `json:"phone"`
	Role        enums.UserRole `json:"role"`
	IsActive    bool           `json:"is_active"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// CreateUserDTO holds the data required to persist a new user.
type CreateUserDTO struct {
	FullName     string
	Username     string
	Email        string
	Phone        string
	PasswordHash string
	Role         enums.UserRole
}

type ProfileInput struct {
	FullName *string
	Username *string
	Phone    *string
}

type ListFilter struct {
	Search   string
	Role     *enums.UserRole
	IsActive *bool
	Sort     repo.Sort
	Page     pagination.Params
}

// SortFields maps public sort keys to columns.
var SortFields = map[string]string{
	"full_name":     "full_name",
	"username":      "username",
	"created_at":    "created_at",
	"last_login_at": "last_login_at",
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}
	return &UserDTO{
		ID:          u.ID,
		FullName:    u.FullName,
		Username:    u.Username,
		Email:       u.Email,
		Phone:       u.Phone,
		Role:        u.Role,
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func FromModels(rows []models.User) []UserDTO {
	out := make([]UserDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}

func (c CreateUserDTO) ToModel() *models.User {
	role := c.Role
	if role == "" {
		role = enums.UserRoleUser
	}
	return &models.User{
		ID:           uuid.New(),
		FullName:     strings.TrimSpace(c.FullName),
		Username:     NormalizeUsername(c.Username),
		Email:        NormalizeEmail(c.Email),
		Phone:        strings.TrimSpace(c.Phone),
		PasswordHash: c.PasswordHash,
		Role:         role,
		IsActive:     true,
	}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
