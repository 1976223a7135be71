package products

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/circlemart/circlemart-backend/internal/repo"
	"github.com/circlemart/circlemart-backend/pkg/db/models"
	"github.com/circlemart/circlemart-backend/pkg/enums"
)

const table = "products"

// Repository handles products and their images.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

func orderedImages(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC, created_at ASC")
}

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.DB(ctx).Omit("Images").Create(product).Error
}

func (r *Repository) Save(ctx context.Context, product *models.Product) error {
	return r.DB(ctx).Omit("Images").Save(product).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.DB(ctx).Preload("Images", orderedImages).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) FindActiveBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := r.DB(ctx).Preload("Images", orderedImages).
		Where("slug = ? AND is_active = ?", slug, true).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *Repository) SlugTaken(ctx context.Context, slug string) (bool, error) {
	return r.Exists(ctx, table, "slug", slug, uuid.Nil, false)
}

// NameTaken checks the (group, name) scope case-insensitively.
func (r *Repository) NameTaken(ctx context.Context, groupID uuid.UUID, name string, excludeID uuid.UUID) (bool, error) {
	q := r.DB(ctx).Model(&models.Product{}).
		Where("group_id = ? AND LOWER(name) = ?", groupID, strings.ToLower(strings.TrimSpace(name)))
	if excludeID != uuid.Nil {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repository) FindCategory(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.DB(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *Repository) FindGroup(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	var group models.Group
	if err := r.DB(ctx).First(&group, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &group, nil
}

// IsApprovedMember reports whether userID holds an approved join record in groupID.
func (r *Repository) IsApprovedMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB(ctx).Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ? AND status = ?", groupID, userID, enums.MembershipStatusApproved).
		Count(&count).Error
	return count > 0, err
}

func (r *Repository) List(ctx context.Context, filter ListFilter, today time.Time) ([]models.Product, int64, error) {
	q := r.DB(ctx).Model(&models.Product{})
	if filter.CategoryID != nil {
		q = q.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.GroupID != nil {
		q = q.Where("group_id = ?", *filter.GroupID)
	}
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}
	if !filter.IncludeExpired {
		q = q.Where("expiration_date >= ?", today)
	}
	if filter.InStock {
		q = q.Where("quantity > 0")
	}
	if filter.MinPrice != nil {
		q = q.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		q = q.Where("price <= ?", *filter.MaxPrice)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Product
	err := filter.Sort.Apply(filter.Page.Scope(q), "created_at DESC").
		Preload("Images", orderedImages).
		Find(&rows).Error
	return rows, total, err
}

// Delete removes the product and its images.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.DB(ctx).Where("product_id = ?", id).Delete(&models.ProductImage{}).Error; err != nil {
		return err
	}
	return r.DB(ctx).Delete(&models.Product{}, "id = ?", id).Error
}

// CountSubmittedCartLines counts lines for productID in carts that have left
// the active state. Those lines are order history and pin the product row.
func (r *Repository) CountSubmittedCartLines(ctx context.Context, productID uuid.UUID) (int64, error) {
	var n int64
	err := r.DB(ctx).Model(&models.CartItem{}).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.product_id = ? AND carts.status <> ?", productID, enums.CartStatusActive).
		Count(&n).Error
	return n, err
}

// DetachFromActiveCarts drops productID from every active cart and
// recalculates the totals of the carts it touched.
func (r *Repository) DetachFromActiveCarts(ctx context.Context, productID uuid.UUID) error {
	var cartIDs []uuid.UUID
	if err := r.DB(ctx).Model(&models.CartItem{}).
		Joins("JOIN carts ON carts.id = cart_items.cart_id").
		Where("cart_items.product_id = ? AND carts.status = ?", productID, enums.CartStatusActive).
		Pluck("cart_items.cart_id", &cartIDs).Error; err != nil {
		return err
	}
	if len(cartIDs) == 0 {
		return nil
	}
	if err := r.DB(ctx).
		Where("product_id = ? AND cart_id IN ?", productID, cartIDs).
		Delete(&models.CartItem{}).Error; err != nil {
		return err
	}
	for _, id := range cartIDs {
		var cart models.Cart
		if err := r.DB(ctx).Preload("Items").First(&cart, "id = ?", id).Error; err != nil {
			return err
		}
		cart.Recalculate()
		if err := r.DB(ctx).Model(&models.Cart{}).Where("id = ?", id).Updates(map[string]any{
			"total_amount": cart.TotalAmount,
			"total_items":  cart.TotalItems,
		}).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) CreateImages(ctx context.Context, images []models.ProductImage) error {
	if len(images) == 0 {
		return nil
	}
	return r.DB(ctx).Create(&images).Error
}

func (r *Repository) DeleteImage(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Delete(&models.ProductImage{}, "id = ?", id).Error
}

// SetPrimary clears every sibling flag and sets imageID as primary.
func (r *Repository) SetPrimary(ctx context.Context, productID, imageID uuid.UUID) error {
	if err := r.DB(ctx).Model(&models.ProductImage{}).
		Where("product_id = ? AND is_primary = ?", productID, true).
		Update("is_primary", false).Error; err != nil {
		return err
	}
	return r.DB(ctx).Model(&models.ProductImage{}).
		Where("id = ? AND product_id = ?", imageID, productID).
		Update("is_primary", true).Error
}

func (r *Repository) SetSortOrder(ctx context.Context, imageID uuid.UUID, order int) error {
	return r.DB(ctx).Model(&models.ProductImage{}).Where("id = ?", imageID).Update("sort_order", order).Error
}

// DeactivateExpired switches off active products whose expiration day is before today.
func (r *Repository) DeactivateExpired(ctx context.Context, today time.Time) (int64, error) {
	res := r.DB(ctx).Model(&models.Product{}).
		Where("is_active = ? AND expiration_date < ?", true, today).
		Update("is_active", false)
	return res.RowsAffected, res.Error
}

func (r *Repository) Stats(ctx context.Context, today time.Time) ([]Stat, error) {
	var rows []Stat
	err := r.DB(ctx).
		Table(`"groups" AS g`).
		Select(`g.id AS group_id, g.name AS group_name,
			COUNT(p.id) AS products,
			COALESCE(SUM(CASE WHEN p.is_active AND p.expiration_date >= ? THEN 1 ELSE 0 END), 0) AS active_products,
			COALESCE(SUM(p.quantity), 0) AS total_quantity,
			COALESCE(SUM(p.price * p.quantity), 0) AS inventory_value`, today).
		Joins("JOIN products AS p ON p.group_id = g.id").
		Group("g.id, g.name").
		Order("g.name ASC").
		Scan(&rows).Error
	return rows, err
}
