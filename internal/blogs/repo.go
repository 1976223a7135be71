package blogs

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/circlemart/circlemart-backend/internal/repo"
	"github.com/circlemart/circlemart-backend/pkg/db/models"
)

const table = "blogs"

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

func orderedGallery(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC")
}

func (r *Repository) Create(ctx context.Context, blog *models.Blog) error {
	return r.DB(ctx).Omit("Gallery").Create(blog).Error
}

func (r *Repository) Save(ctx context.Context, blog *models.Blog) error {
	return r.DB(ctx).Omit("Gallery").Save(blog).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Blog, error) {
	var blog models.Blog
	if err := r.DB(ctx).Preload("Gallery", orderedGallery).First(&blog, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &blog, nil
}

func (r *Repository) FindActiveBySlug(ctx context.Context, slug string) (*models.Blog, error) {
	var blog models.Blog
	err := r.DB(ctx).Preload("Gallery", orderedGallery).
		Where("slug = ? AND is_active = ?", slug, true).
		First(&blog).Error
	if err != nil {
		return nil, err
	}
	return &blog, nil
}

func (r *Repository) SlugTaken(ctx context.Context, slug string) (bool, error) {
	return r.Exists(ctx, table, "slug", slug, uuid.Nil, false)
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]models.Blog, int64, error) {
	q := r.DB(ctx).Model(&models.Blog{})
	if filter.IsActive != nil {
		q = q.Where("is_active = ?", *filter.IsActive)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(excerpt) LIKE ?", like, like)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var rows []models.Blog
	err := filter.Sort.Apply(filter.Page.Scope(q), "created_at DESC").
		Preload("Gallery", orderedGallery).
		Find(&rows).Error
	return rows, total, err
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.DB(ctx).Where("blog_id = ?", id).Delete(&models.BlogImage{}).Error; err != nil {
		return err
	}
	return r.DB(ctx).Delete(&models.Blog{}, "id = ?", id).Error
}

func (r *Repository) CreateImages(ctx context.Context, images []models.BlogImage) error {
	if len(images) == 0 {
		return nil
	}
	return r.DB(ctx).Create(&images).Error
}

func (r *Repository) DeleteImage(ctx context.Context, blogID, imageID uuid.UUID) error {
	return r.DB(ctx).Delete(&models.BlogImage{}, "id = ? AND blog_id = ?", imageID, blogID).Error
}

// Increment bumps a counter column without reading the row first.
func (r *Repository) Increment(ctx context.Context, id uuid.UUID, column string) (int64, error) {
	res := r.DB(ctx).Model(&models.Blog{}).Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	return res.RowsAffected, res.Error
}
