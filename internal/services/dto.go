package services

import (
	"github.com/google/uuid"

	"github.com/circlemart/circlemart-backend/internal/repo"
	"github.com/circlemart/circlemart-backend/pkg/pagination"
)

type CreateInput struct {
	Title       string
	Description string
	IsActive    *bool
	IsDefault   bool
	Image       []byte
}

type UpdateInput struct {
	Title       *string
	Description *string
	IsActive    *bool
	IsDefault   *bool
	Image       []byte
}

type ListFilter struct {
	Search   string
	IsActive *bool
	Sort     repo.Sort
	Page     pagination.Params
}

// SortFields maps public sort keys to columns.
var SortFields = map[string]string{
	"title":         "title",
	"created_at":    "created_at",
	"total_groups":  "total_groups",
	"total_members": "total_members",
}

// Stat aggregates group figures for one service.
type Stat struct {
	ServiceID      uuid.UUID `json:"service_id"`
	Title          string    `json:"title"`
	Groups         int64     `gorm:"column:group_count" json:"groups"`
	ApprovedGroups int64     `json:"approved_groups"`
	PendingGroups  int64     `json:"pending_groups"`
	Members        int64     `json:"members"`
}

// DefaultTitle names the service created when blogs need one and none is flagged.
const DefaultTitle = "General"
