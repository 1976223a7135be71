package categories

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/circlemart/circlemart-backend/internal/media"
	"github.com/circlemart/circlemart-backend/pkg/db"
	"github.com/circlemart/circlemart-backend/pkg/db/models"
	pkgerrors "github.com/circlemart/circlemart-backend/pkg/errors"
	"github.com/circlemart/circlemart-backend/pkg/logger"
	"github.com/circlemart/circlemart-backend/pkg/pagination"
	"github.com/circlemart/circlemart-backend/pkg/slug"
)

// Service exposes category management.
type Service interface {
	Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (*models.Category, error)
	List(ctx context.Context, filter ListFilter) (*pagination.Page[models.Category], error)
	Get(ctx context.Context, id uuid.UUID) (*models.Category, error)
	GetBySlug(ctx context.Context, slug string) (*models.Category, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Category, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Category, error)
	Stats(ctx context.Context) ([]Stat, error)
}

type service struct {
	client   *db.Client
	repo     *Repository
	uploader media.Uploader
	logg     *logger.Logger
}

func NewService(client *db.Client, uploader media.Uploader, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	if uploader == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "media uploader required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		client:   client,
		repo:     NewRepository(client.DB()),
		uploader: uploader,
		logg:     logg,
	}, nil
}

// AdjustCounts shifts a category's product counter inside the caller's transaction.
func AdjustCounts(ctx context.Context, tx *gorm.DB, categoryID uuid.UUID, delta int) error {
	if delta == 0 || categoryID == uuid.Nil {
		return nil
	}
	affected, err := NewRepository(tx).AddToCounts(ctx, categoryID, delta)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update category counts")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	return nil
}

// RecomputeCounts rebuilds every counter from the products table.
func RecomputeCounts(ctx context.Context, conn *gorm.DB) (int64, error) {
	return NewRepository(conn).RecomputeCounts(ctx)
}

func (s *service) Create(ctx context.Context, actorID uuid.UUID, input CreateInput) (*models.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	taken, err := s.repo.NameTaken(ctx, name, uuid.Nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check category name")
	}
	if taken {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "category name already exists")
	}
	categorySlug, err := slug.Unique(ctx, name, s.repo.SlugTaken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate slug")
	}

	category := &models.Category{
		ID:          uuid.New(),
		Name:        name,
		Slug:        categorySlug,
		Description: strings.TrimSpace(input.Description),
		IsActive:    true,
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}
	if actorID != uuid.Nil {
		category.CreatedByID = &actorID
	}

	var logo *media.Asset
	if len(input.Logo) > 0 {
		if logo, err = s.uploader.Upload(ctx, input.Logo, media.FolderCategories); err != nil {
			return nil, err
		}
		category.LogoURL = logo.URL
		category.LogoPublicID = logo.PublicID
	}

	if err := s.repo.Create(ctx, category); err != nil {
		media.Cleanup(ctx, s.uploader, s.logg, logo)
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category")
	}
	return category, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) (*pagination.Page[models.Category], error) {
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list categories")
	}
	return &pagination.Page[models.Category]{Items: rows, Meta: pagination.NewMeta(filter.Page, total)}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load category")
	}
	return category, nil
}

func (s *service) GetBySlug(ctx context.Context, value string) (*models.Category, error) {
	category, err := s.repo.FindActiveBySlug(ctx, strings.ToLower(strings.TrimSpace(value)))
	if err != nil {
		return nil, notFoundOr(err, "load category")
	}
	return category, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Category, error) {
	category, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		if !strings.EqualFold(name, category.Name) {
			taken, err := s.repo.NameTaken(ctx, name, category.ID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check category name")
			}
			if taken {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "category name already exists")
			}
		}
		if name != category.Name {
			if category.Slug, err = slug.Rename(ctx, name, category.Slug, s.repo.SlugTaken); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate slug")
			}
			category.Name = name
		}
	}
	if input.Description != nil {
		category.Description = strings.TrimSpace(*input.Description)
	}
	if input.IsActive != nil {
		category.IsActive = *input.IsActive
	}

	oldLogo := category.LogoPublicID
	var logo *media.Asset
	if len(input.Logo) > 0 {
		if logo, err = s.uploader.Upload(ctx, input.Logo, media.FolderCategories); err != nil {
			return nil, err
		}
		category.LogoURL = logo.URL
		category.LogoPublicID = logo.PublicID
	}

	if err := s.repo.Save(ctx, category); err != nil {
		media.Cleanup(ctx, s.uploader, s.logg, logo)
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "category name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update category")
	}
	if logo != nil {
		media.DeleteAll(ctx, s.uploader, s.logg, oldLogo)
	}
	return category, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	category, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if category.Counts > 0 {
		return pkgerrors.Newf(pkgerrors.CodeBusinessRule, "category has %d products; move or delete them first", category.Counts)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete category")
	}
	if category.LogoPublicID != "" {
		if err := s.uploader.Delete(ctx, category.LogoPublicID); err != nil {
			s.logg.Error(ctx, "categories.logo_delete_failed", err)
		}
	}
	return nil
}

func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Category, error) {
	return s.Update(ctx, id, UpdateInput{IsActive: &active})
}

func (s *service) Stats(ctx context.Context) ([]Stat, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "category stats")
	}
	return stats, nil
}

func notFoundOr(err error, action string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
