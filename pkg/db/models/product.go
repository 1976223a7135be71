package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const expirationLayout = "Jan 2, 2006"

// Product is a listing inside a group, filed under a category.
type Product struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	CategoryID     uuid.UUID       `gorm:"column:category_id;type:uuid;not null;index" json:"category_id"`
	GroupID        uuid.UUID       `gorm:"column:group_id;type:uuid;not null;index" json:"group_id"`
	Name           string          `gorm:"column:name;not null" json:"name"`
	Slug           string          `gorm:"column:slug;not null;uniqueIndex" json:"slug"`
	Description    string          `gorm:"column:description" json:"description"`
	Price          decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Quantity       int             `gorm:"column:quantity;not null;default:0" json:"quantity"`
	Color          string          `gorm:"column:color" json:"color,omitempty"`
	Phone          *string         `gorm:"column:phone" json:"phone,omitempty"`
	ExpirationDate time.Time       `gorm:"column:expiration_date;type:date;not null" json:"expiration_date"`
	IsActive       bool            `gorm:"column:is_active;not null" json:"is_active"`
	CreatedByID    uuid.UUID       `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
	Images         []ProductImage  `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// IsExpired reports whether the expiration day is already behind now.
// A product stays valid through the whole of its expiration date.
func (p Product) IsExpired(now time.Time) bool {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	exp := p.ExpirationDate.UTC()
	expDay := time.Date(exp.Year(), exp.Month(), exp.Day(), 0, 0, 0, 0, time.UTC)
	return expDay.Before(today)
}

// IsPurchasable folds the availability checks the cart relies on.
func (p Product) IsPurchasable(now time.Time) bool {
	return p.IsActive && !p.IsExpired(now) && p.Quantity > 0
}

func (p Product) FormattedPrice() string {
	return "$" + p.Price.StringFixed(2)
}

func (p Product) FormattedExpiration() string {
	return p.ExpirationDate.UTC().Format(expirationLayout)
}

// PrimaryImage returns the image flagged as primary, if any.
func (p Product) PrimaryImage() *ProductImage {
	for i := range p.Images {
		if p.Images[i].IsPrimary {
			return &p.Images[i]
		}
	}
	return nil
}

// MarshalJSON adds the derived fields next to the stored ones.
func (p Product) MarshalJSON() ([]byte, error) {
	type plain Product
	return json.Marshal(struct {
		plain
		ExpirationDate      string `json:"expiration_date"`
		IsExpired           bool   `json:"is_expired"`
		FormattedPrice      string `json:"formatted_price"`
		FormattedExpiration string `json:"formatted_expiration"`
	}{
		plain:               plain(p),
		ExpirationDate:      p.ExpirationDate.UTC().Format(time.DateOnly),
		IsExpired:           p.IsExpired(time.Now()),
		FormattedPrice:      p.FormattedPrice(),
		FormattedExpiration: p.FormattedExpiration(),
	})
}

// ProductImage is one entry of a product gallery.
type ProductImage struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index" json:"product_id"`
	URL       string    `gorm:"column:url;not null" json:"url"`
	PublicID  string    `gorm:"column:public_id;not null" json:"public_id"`
	Width     int       `gorm:"column:width" json:"width"`
	Height    int       `gorm:"column:height" json:"height"`
	AltText   string    `gorm:"column:alt_text" json:"alt_text,omitempty"`
	IsPrimary bool      `gorm:"column:is_primary;not null;default:false" json:"is_primary"`
	SortOrder int       `gorm:"column:sort_order;not null;default:0" json:"sort_order"`
	IsActive  bool      `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (ProductImage) TableName() string {
	return "product_images"
}
