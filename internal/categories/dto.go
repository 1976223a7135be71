package categories

import (
	"github.com/google/uuid"

	"github.com/circlemart/circlemart-backend/internal/repo"
	"github.com/circlemart/circlemart-backend/pkg/pagination"
)

// CreateInput is the validated payload for a new category.
type CreateInput struct {
	Name        string
	Description string
	IsActive    *bool
	Logo        []byte
}

// UpdateInput carries optional changes. Nil fields are left untouched.
type UpdateInput struct {
	Name        *string
	Description *string
	IsActive    *bool
	Logo        []byte
}

// ListFilter narrows the category list.
type ListFilter struct {
	Search   string
	IsActive *bool
	Sort     repo.Sort
	Page     pagination.Params
}

// SortFields maps public sort keys to columns.
var SortFields = map[string]string{
	"name":       "name",
	"counts":     "counts",
	"created_at": "created_at",
}

// Stat aggregates product figures for one category.
type Stat struct {
	CategoryID     uuid.UUID `json:"category_id"`
	Name           string    `json:"name"`
	Products       int64     `json:"products"`
	ActiveProducts int64     `json:"active_products"`
	TotalQuantity  int64     `json:"total_quantity"`
}
