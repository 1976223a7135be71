package categories

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/circlemart/circlemart-backend/internal/repo"
	"github.com/circlemart/circlemart-backend/pkg/db/models"
)

const table = "categories"

// Repository handles category persistence.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

func (r *Repository) Create(ctx context.Context, category *models.Category) error {
	return r.DB(ctx).Create(category).Error
}

func (r *Repository) Save(ctx context.Context, category *models.Category) error {
	return r.DB(ctx).Save(category).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := r.DB(ctx).First(&category, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *Repository) FindActiveBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var category models.Category
	if err := r.DB(ctx).Where("slug = ? AND is_active = ?", slug, true).First(&category).Error; err != nil {
		return nil, err
	}
	return &category, nil
}

func (r *Repository) NameTaken(ctx context.Context, name string, excludeID uuid.UUID) (bool, error) {
	return r.Exists(ctx, table, "name", name, excludeID, true)
}

func (r *Repository) SlugTaken(ctx context.Context, slug string) (bool, error) {
	return r.Exists(ctx, table, "slug", slug, uuid.Nil, false)
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Category, int64, error) {
	q := r.DB(ctx).Model(&models.Category{})
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Category
	err := filter.Sort.Apply(filter.Page.Scope(q), "name ASC").Find(&rows).Error
	return rows, total, err
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Delete(&models.Category{}, "id = ?", id).Error
}

// AddToCounts shifts counts by delta without letting it drop below zero.
func (r *Repository) AddToCounts(ctx context.Context, id uuid.UUID, delta int) (int64, error) {
	res := r.DB(ctx).Model(&models.Category{}).
		Where("id = ?", id).
		Update("counts", gorm.Expr("CASE WHEN counts + ? < 0 THEN 0 ELSE counts + ? END", delta, delta))
	return res.RowsAffected, res.Error
}

// RecomputeCounts rewrites every category's counts from the products table.
func (r *Repository) RecomputeCounts(ctx context.Context) (int64, error) {
	res := r.DB(ctx).Exec(`UPDATE categories SET counts = (
		SELECT COUNT(*) FROM products WHERE products.category_id = categories.id
	)`)
	return res.RowsAffected, res.Error
}

func (r *Repository) Stats(ctx context.Context) ([]Stat, error) {
	var rows []Stat
	err := r.DB(ctx).
		Table("categories AS c").
		Select(`c.id AS category_id, c.name AS name,
			COUNT(p.id) AS products,
			COALESCE(SUM(CASE WHEN p.is_active THEN 1 ELSE 0 END), 0) AS active_products,
			COALESCE(SUM(p.quantity), 0) AS total_quantity`).
		Joins("LEFT JOIN products AS p ON p.category_id = c.id").
		Group("c.id, c.name").
		Order("c.name ASC").
		Scan(&rows).Error
	return rows, err
}
