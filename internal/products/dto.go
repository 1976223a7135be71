package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/circlemart/circlemart-backend/internal/repo"
	"github.com/circlemart/circlemart-backend/pkg/pagination"
)

type CreateInput struct {
	CategoryID     uuid.UUID
	GroupID        uuid.UUID
	Name           string
	Description    string
	Price          decimal.Decimal
	Quantity       int
	Color          string
	Phone          *string
	ExpirationDate time.Time
	IsActive       *bool
	Images         [][]byte
}

type UpdateInput struct {
	CategoryID     *uuid.UUID
	Name           *string
	Description    *string
	Price          *decimal.Decimal
	Quantity       *int
	Color          *string
	Phone          *string
	ExpirationDate *time.Time
	IsActive       *bool
}

type ListFilter struct {
	CategoryID     *uuid.UUID
	GroupID        *uuid.UUID
	Search         string
	IsActive       *bool
	IncludeExpired bool
	InStock        bool
	MinPrice       *decimal.Decimal
	MaxPrice       *decimal.Decimal
	Sort           repo.Sort
	Page           pagination.Params
}

// SortFields maps public sort keys to columns.
var SortFields = map[string]string{
	"name":            "name",
	"price":           "price",
	"quantity":        "quantity",
	"created_at":      "created_at",
	"expiration_date": "expiration_date",
}

// Stat aggregates inventory per group.
type Stat struct {
	GroupID        uuid.UUID       `json:"group_id"`
	GroupName      string          `json:"group_name"`
	Products       int64           `json:"products"`
	ActiveProducts int64           `json:"active_products"`
	TotalQuantity  int64           `json:"total_quantity"`
	InventoryValue decimal.Decimal `json:"inventory_value"`
}
