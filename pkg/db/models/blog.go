package models

import (
	"time"

	"github.com/google/uuid"
)

// Blog is a standalone post attached to the default service.
type Blog struct {
	ID                uuid.UUID   `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ServiceID         uuid.UUID   `gorm:"column:service_id;type:uuid;not null;index" json:"service_id"`
	AuthorID          uuid.UUID   `gorm:"column:author_id;type:uuid;not null" json:"author_id"`
	Title             string      `gorm:"column:title;not null" json:"title"`
	Slug              string      `gorm:"column:slug;not null;uniqueIndex" json:"slug"`
	Excerpt           string      `gorm:"column:excerpt" json:"excerpt"`
	Content           string      `gorm:"column:content;not null" json:"content"`
	ThumbnailURL      string      `gorm:"column:thumbnail_url;not null" json:"thumbnail_url"`
	ThumbnailPublicID string      `gorm:"column:thumbnail_public_id;not null" json:"thumbnail_public_id"`
	Gallery           []BlogImage `gorm:"foreignKey:BlogID;constraint:OnDelete:CASCADE" json:"gallery"`
	Views             int         `gorm:"column:views;not null;default:0" json:"views"`
	Likes             int         `gorm:"column:likes;not null;default:0" json:"likes"`
	IsActive          bool        `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt         time.Time   `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time   `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// BlogImage is one gallery entry of a blog post.
type BlogImage struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	BlogID    uuid.UUID `gorm:"column:blog_id;type:uuid;not null;index" json:"blog_id"`
	URL       string    `gorm:"column:url;not null" json:"url"`
	PublicID  string    `gorm:"column:public_id;not null" json:"public_id"`
	Width     int       `gorm:"column:width" json:"width"`
	Height    int       `gorm:"column:height" json:"height"`
	SortOrder int       `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
}

func (BlogImage) TableName() string {
	return "blog_images"
}
