package models

import (
	"time"

	"github.com/google/uuid"
)

// Service is the top-level grouping that owns groups and blogs.
type Service struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Title         string    `gorm:"column:title;not null;uniqueIndex" json:"title"`
	Slug          string    `gorm:"column:slug;not null;uniqueIndex" json:"slug"`
	Description   string    `gorm:"column:description" json:"description"`
	ImageURL      string    `gorm:"column:image_url" json:"image_url,omitempty"`
	ImagePublicID string    `gorm:"column:image_public_id" json:"image_public_id,omitempty"`
	IsActive      bool      `gorm:"column:is_active;not null" json:"is_active"`
	IsDefault     bool      `gorm:"column:is_default;not null;default:false" json:"is_default"`
	TotalGroups   int       `gorm:"column:total_groups;not null;default:0" json:"total_groups"`
	TotalMembers  int       `gorm:"column:total_members;not null;default:0" json:"total_members"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
