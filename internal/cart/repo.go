package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/circlemart/circlemart-backend/internal/repo"
	"github.com/circlemart/circlemart-backend/pkg/db/models"
	"github.com/circlemart/circlemart-backend/pkg/enums"
)

// Repository persists carts and their lines.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

func withLines(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("added_at ASC") }).
		Preload("Items.Product")
}

func (r *Repository) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := withLines(r.DB(ctx)).
		Where("user_id = ? AND status = ?", userID, enums.CartStatusActive).
		Order("created_at DESC").
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := withLines(r.DB(ctx)).First(&cart, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *Repository) Create(ctx context.Context, cart *models.Cart) error {
	return r.DB(ctx).Omit(clause.Associations).Create(cart).Error
}

func (r *Repository) Save(ctx context.Context, cart *models.Cart) error {
	return r.DB(ctx).Omit(clause.Associations).Save(cart).Error
}

// ReplaceItems rewrites every line of cartID.
func (r *Repository) ReplaceItems(ctx context.Context, cartID uuid.UUID, items []models.CartItem) error {
	db := r.DB(ctx)
	if err := db.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	rows := make([]models.CartItem, len(items))
	for i := range items {
		rows[i] = items[i]
		rows[i].CartID = cartID
		rows[i].Product = nil
	}
	return db.Create(&rows).Error
}

func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// DecrementStock takes qty units when at least qty remain.
func (r *Repository) DecrementStock(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	res := r.DB(ctx).Model(&models.Product{}).
		Where("id = ? AND quantity >= ?", productID, qty).
		UpdateColumn("quantity", gorm.Expr("quantity - ?", qty))
	return res.RowsAffected == 1, res.Error
}

func (r *Repository) List(ctx context.Context, filter AdminFilter) ([]models.Cart, int64, error) {
	q := r.DB(ctx).Model(&models.Cart{})
	if filter.Status != nil {
		q = q.Where("status = ?", *filter.Status)
	}
	if filter.UserID != nil {
		q = q.Where("user_id = ?", *filter.UserID)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Cart
	err := withLines(filter.Page.Scope(q)).
		Order("updated_at DESC").Order("id ASC").
		Find(&rows).Error
	return rows, total, err
}

func (r *Repository) Stats(ctx context.Context) ([]StatusStat, error) {
	var rows []StatusStat
	err := r.DB(ctx).Model(&models.Cart{}).
		Select(`status, COUNT(*) AS carts,
			COALESCE(SUM(total_items), 0) AS total_items,
			COALESCE(SUM(total_amount), 0) AS total_amount`).
		Group("status").
		Order("status ASC").
		Scan(&rows).Error
	return rows, err
}
