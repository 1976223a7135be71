package models

import (
	"time"

	"github.com/google/uuid"
)

// Category groups products; Counts mirrors the number of products pointing at it.
type Category struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name         string     `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Slug         string     `gorm:"column:slug;not null;uniqueIndex" json:"slug"`
	Description  string     `gorm:"column:description" json:"description"`
	LogoURL      string     `gorm:"column:logo_url" json:"logo_url,omitempty"`
	LogoPublicID string     `gorm:"column:logo_public_id" json:"logo_public_id,omitempty"`
	Counts       int        `gorm:"column:counts;not null;default:0" json:"counts"`
	IsActive     bool       `gorm:"column:is_active;not null" json:"is_active"`
	CreatedByID  *uuid.UUID `gorm:"column:created_by;type:uuid" json:"created_by,omitempty"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
