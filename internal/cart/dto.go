package cart

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/circlemart/circlemart-backend/pkg/db/models"
	"github.com/circlemart/circlemart-backend/pkg/enums"
	"github.com/circlemart/circlemart-backend/pkg/pagination"
)

// View is a cart plus the corrections applied while reading it.
type View struct {
	Cart    *models.Cart `json:"cart"`
	Notices []string     `json:"notices,omitempty"`
}

// Updated reports whether the read changed the stored cart.
func (v View) Updated() bool {
	return len(v.Notices) > 0
}

type HistoryFilter struct {
	Status *enums.CartStatus
	Page   pagination.Params
}

type AdminFilter struct {
	Status *enums.CartStatus
	UserID *uuid.UUID
	Page   pagination.Params
}

// StatusStat aggregates carts per status.
type StatusStat struct {
	Status      enums.CartStatus `json:"status"`
	Carts       int64            `json:"carts"`
	TotalItems  int64            `json:"total_items"`
	TotalAmount decimal.Decimal  `json:"total_amount"`
}

// Problem describes why a line cannot be purchased right now.
type Problem struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Reason    string    `json:"reason"`
}
