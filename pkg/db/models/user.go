package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/circlemart/circlemart-backend/pkg/enums"
)

// User represents the canonical identity entity.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	FullName     string         `gorm:"column:full_name;not null" json:"full_name"`
	Username     string         `gorm:"column:username;not null;uniqueIndex" json:"username"`
	Email        string         `gorm:"column:email;not null;uniqueIndex" json:"email"`
	Phone        string         `gorm:"column:phone;not null;uniqueIndex" json:"phone"`
	PasswordHash string         `gorm:"column:password_hash;not null" json:"-"`
	Role         enums.UserRole `gorm:"column:role;type:text;not null;default:user" json:"role"`
	IsActive     bool           `gorm:"column:is_active;not null" json:"is_active"`
	LastLoginAt  *time.Time     `gorm:"column:last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// IsAdmin reports whether the user holds the platform admin role.
func (u User) IsAdmin() bool {
	return u.Role == enums.UserRoleAdmin
}
