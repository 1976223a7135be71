package services

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

// Service exposes management of top-level services.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Service, error)
	List(ctx context.Context, filter ListFilter) (*pagination.Page[models.Service], error)
	Get(ctx context.Context, id uuid.UUID) (*models.Service, error)
	GetBySlug(ctx context.Context, slug string) (*models.Service, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Service, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Service, error)
	Stats(ctx context.Context) ([]Stat, error)
	EnsureDefault(ctx context.Context) (*models.Service, error)
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

// Recompute refreshes a service's group/member aggregates inside tx.
func Recompute(ctx context.Context, tx *gorm.DB, serviceID uuid.UUID) error {
	if err := NewRepository(tx).Recompute(ctx, serviceID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recompute service aggregates")
	}
	return nil
}

// RecomputeAll refreshes every service and returns how many were touched.
func RecomputeAll(ctx context.Context, conn *gorm.DB) (int, error) {
	r := NewRepository(conn)
	ids, err := r.IDs(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := r.Recompute(ctx, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Service, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	taken, err := s.repo.TitleTaken(ctx, title, uuid.Nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check service title")
	}
	if taken {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "service title already exists")
	}
	serviceSlug, err := slug.Unique(ctx, title, s.repo.SlugTaken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate slug")
	}

	record := &models.Service{
		ID:          uuid.New(),
		Title:       title,
		Slug:        serviceSlug,
		Description: strings.TrimSpace(input.Description),
		IsActive:    true,
		IsDefault:   input.IsDefault,
	}
	if input.IsActive != nil {
		record.IsActive = *input.IsActive
	}

	var image *media.Asset
	if len(input.Image) > 0 {
		if image, err = s.uploader.Upload(ctx, input.Image, media.FolderServices); err != nil {
			return nil, err
		}
		record.ImageURL = image.URL
		record.ImagePublicID = image.PublicID
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)
		if err := r.Create(ctx, record); err != nil {
			return err
		}
		if record.IsDefault {
			return r.ClearDefault(ctx, record.ID)
		}
		return nil
	})
	if err != nil {
		media.Cleanup(ctx, s.uploader, s.logg, image)
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "service title already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create service")
	}
	return record, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) (*pagination.Page[models.Service], error) {
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list services")
	}
	return &pagination.Page[models.Service]{Items: rows, Meta: pagination.NewMeta(filter.Page, total)}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Service, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load service")
	}
	return record, nil
}

func (s *service) GetBySlug(ctx context.Context, value string) (*models.Service, error) {
	record, err := s.repo.FindActiveBySlug(ctx, strings.ToLower(strings.TrimSpace(value)))
	if err != nil {
		return nil, notFoundOr(err, "load service")
	}
	return record, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Service, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		if !strings.EqualFold(title, record.Title) {
			taken, err := s.repo.TitleTaken(ctx, title, record.ID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check service title")
			}
			if taken {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "service title already exists")
			}
		}
		if title != record.Title {
			if record.Slug, err = slug.Rename(ctx, title, record.Slug, s.repo.SlugTaken); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate slug")
			}
			record.Title = title
		}
	}
	if input.Description != nil {
		record.Description = strings.TrimSpace(*input.Description)
	}
	if input.IsActive != nil {
		record.IsActive = *input.IsActive
	}
	if input.IsDefault != nil {
		record.IsDefault = *input.IsDefault
	}

	oldImage := record.ImagePublicID
	var image *media.Asset
	if len(input.Image) > 0 {
		if image, err = s.uploader.Upload(ctx, input.Image, media.FolderServices); err != nil {
			return nil, err
		}
		record.ImageURL = image.URL
		record.ImagePublicID = image.PublicID
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)
		if err := r.Save(ctx, record); err != nil {
			return err
		}
		if record.IsDefault {
			return r.ClearDefault(ctx, record.ID)
		}
		return nil
	})
	if err != nil {
		media.Cleanup(ctx, s.uploader, s.logg, image)
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "service title already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update service")
	}
	if image != nil {
		media.DeleteAll(ctx, s.uploader, s.logg, oldImage)
	}
	return record, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	record, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	live, err := s.repo.CountLiveGroups(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count groups")
	}
	if live > 0 {
		return pkgerrors.Newf(pkgerrors.CodeBusinessRule, "service has %d active approved groups", live)
	}
	// Pending, rejected and inactive groups still reference the service row.
	total, err := s.repo.CountGroups(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count groups")
	}
	if total > 0 {
		return pkgerrors.Newf(pkgerrors.CodeBusinessRule, "service still has %d pending, rejected or inactive groups", total)
	}
	blogs, err := s.repo.CountBlogs(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count blogs")
	}
	if blogs > 0 {
		return pkgerrors.Newf(pkgerrors.CodeBusinessRule, "service has %d blogs", blogs)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete service")
	}
	media.DeleteAll(ctx, s.uploader, s.logg, record.ImagePublicID)
	return nil
}

func (s *service) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Service, error) {
	return s.Update(ctx, id, UpdateInput{IsActive: &active})
}

func (s *service) Stats(ctx context.Context) ([]Stat, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "service stats")
	}
	return stats, nil
}

// EnsureDefault returns the flagged default service, creating or flagging
// one titled DefaultTitle when none exists.
func (s *service) EnsureDefault(ctx context.Context) (*models.Service, error) {
	record, err := s.repo.FindDefault(ctx)
	if err == nil {
		return record, nil
	}
	if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load default service")
	}

	existing, err := s.repo.FindByTitle(ctx, DefaultTitle)
	switch {
	case err == nil:
		flag := true
		return s.Update(ctx, existing.ID, UpdateInput{IsDefault: &flag})
	case db.IsNotFound(err):
		return s.Create(ctx, CreateInput{Title: DefaultTitle, IsDefault: true})
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load default service")
	}
}

func notFoundOr(err error, action string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "service not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
