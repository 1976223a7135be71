package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/circlemart/circlemart-backend/pkg/enums"
)

// Cart is a user's basket moving through the approval pipeline.
type Cart struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID        `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Status      enums.CartStatus `gorm:"column:status;type:text;not null;default:active;index" json:"status"`
	Items       []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
	TotalAmount decimal.Decimal  `gorm:"column:total_amount;type:numeric(12,2);not null;default:0" json:"total_amount"`
	TotalItems  int              `gorm:"column:total_items;not null;default:0" json:"total_items"`
	UserNotes   string           `gorm:"column:user_notes" json:"user_notes,omitempty"`
	AdminNotes  string           `gorm:"column:admin_notes" json:"admin_notes,omitempty"`
	SubmittedAt *time.Time       `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	ApprovedBy  *uuid.UUID       `gorm:"column:approved_by;type:uuid" json:"approved_by,omitempty"`
	ApprovedAt  *time.Time       `gorm:"column:approved_at" json:"approved_at,omitempty"`
	RejectedBy  *uuid.UUID       `gorm:"column:rejected_by;type:uuid" json:"rejected_by,omitempty"`
	RejectedAt  *time.Time       `gorm:"column:rejected_at" json:"rejected_at,omitempty"`
	CancelledAt *time.Time       `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// Recalculate derives the totals from the current lines.
func (c *Cart) Recalculate() {
	total := decimal.Zero
	count := 0
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
		count += item.Quantity
	}
	c.TotalAmount = total
	c.TotalItems = count
}

// FindItem returns the index of the line for productID or -1.
func (c *Cart) FindItem(productID uuid.UUID) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// CartItem is a single line. PriceAtTime is captured when the line is created.
type CartItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CartID      uuid.UUID       `gorm:"column:cart_id;type:uuid;not null;index" json:"cart_id"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null" json:"product_id"`
	Quantity    int             `gorm:"column:quantity;not null" json:"quantity"`
	PriceAtTime decimal.Decimal `gorm:"column:price_at_time;type:numeric(12,2);not null" json:"price_at_time"`
	AddedAt     time.Time       `gorm:"column:added_at;not null" json:"added_at"`
	Product     *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

func (i CartItem) LineTotal() decimal.Decimal {
	return i.PriceAtTime.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
