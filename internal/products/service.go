package products

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/circlemart/circlemart-backend/internal/categories"
	"github.com/circlemart/circlemart-backend/internal/media"
	"github.com/circlemart/circlemart-backend/pkg/auth"
	"github.com/circlemart/circlemart-backend/pkg/db"
	"github.com/circlemart/circlemart-backend/pkg/db/models"
	pkgerrors "github.com/circlemart/circlemart-backend/pkg/errors"
	"github.com/circlemart/circlemart-backend/pkg/logger"
	"github.com/circlemart/circlemart-backend/pkg/pagination"
	"github.com/circlemart/circlemart-backend/pkg/slug"
)

// Service exposes product listings and their galleries.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*models.Product, error)
	List(ctx context.Context, filter ListFilter) (*pagination.Page[models.Product], error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	GetBySlug(ctx context.Context, slug string) (*models.Product, error)
	Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*models.Product, error)
	Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error
	SetActive(ctx context.Context, actor auth.Actor, id uuid.UUID, active bool) (*models.Product, error)

	AddImages(ctx context.Context, actor auth.Actor, id uuid.UUID, files [][]byte, altText string) (*models.Product, error)
	SetPrimaryImage(ctx context.Context, actor auth.Actor, id, imageID uuid.UUID) (*models.Product, error)
	ReorderImages(ctx context.Context, actor auth.Actor, id uuid.UUID, imageIDs []uuid.UUID) (*models.Product, error)
	DeleteImage(ctx context.Context, actor auth.Actor, id, imageID uuid.UUID) (*models.Product, error)

	Stats(ctx context.Context) ([]Stat, error)
}

type service struct {
	client     *db.Client
	repo       *Repository
	uploader   media.Uploader
	maxGallery int
	logg       *logger.Logger
	now        func() time.Time
}

func NewService(client *db.Client, uploader media.Uploader, maxGallery int, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	if uploader == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "media uploader required")
	}
	if maxGallery <= 0 {
		maxGallery = 10
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		client:     client,
		repo:       NewRepository(client.DB()),
		uploader:   uploader,
		maxGallery: maxGallery,
		logg:       logg,
		now:        time.Now,
	}, nil
}

// DateOnly truncates t to midnight UTC of its calendar day.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DeactivateExpired switches off every active product past its expiration day.
func DeactivateExpired(ctx context.Context, conn *gorm.DB, now time.Time) (int64, error) {
	return NewRepository(conn).DeactivateExpired(ctx, DateOnly(now))
}

func (s *service) today() time.Time {
	return DateOnly(s.now())
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*models.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be zero or greater")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be zero or greater")
	}
	expiration := DateOnly(input.ExpirationDate)
	if input.ExpirationDate.IsZero() || expiration.Before(s.today()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "expiration date must be today or later")
	}
	if len(input.Images) > s.maxGallery {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "a product can have at most %d images", s.maxGallery)
	}

	category, err := s.repo.FindCategory(ctx, input.CategoryID)
	if err != nil {
		return nil, notFoundOr(err, "category not found", "load category")
	}
	if !category.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "category is not active")
	}
	group, err := s.repo.FindGroup(ctx, input.GroupID)
	if err != nil {
		return nil, notFoundOr(err, "group not found", "load group")
	}
	if !group.IsJoinable() {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "group is not active")
	}
	if err := s.ensureMember(ctx, actor, group.ID); err != nil {
		return nil, err
	}
	taken, err := s.repo.NameTaken(ctx, group.ID, name, uuid.Nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product name")
	}
	if taken {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a product with this name already exists in the group")
	}
	productSlug, err := slug.Unique(ctx, name, s.repo.SlugTaken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate slug")
	}

	product := &models.Product{
		ID:             uuid.New(),
		CategoryID:     category.ID,
		GroupID:        group.ID,
		Name:           name,
		Slug:           productSlug,
		Description:    strings.TrimSpace(input.Description),
		Price:          input.Price.Round(2),
		Quantity:       input.Quantity,
		Color:          strings.TrimSpace(input.Color),
		Phone:          normalizePhone(input.Phone),
		ExpirationDate: expiration,
		IsActive:       true,
		CreatedByID:    actor.UserID,
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	assets, err := media.UploadAll(ctx, s.uploader, s.logg, media.FolderProducts, input.Images)
	if err != nil {
		return nil, err
	}
	images := imagesFromAssets(product.ID, assets, 0, "", true)

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)
		if err := r.Create(ctx, product); err != nil {
			return err
		}
		if err := r.CreateImages(ctx, images); err != nil {
			return err
		}
		return categories.AdjustCounts(ctx, tx, product.CategoryID, 1)
	})
	if err != nil {
		media.Cleanup(ctx, s.uploader, s.logg, assets...)
		return nil, asDependency(err, "create product")
	}
	product.Images = images
	return product, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) (*pagination.Page[models.Product], error) {
	rows, total, err := s.repo.List(ctx, filter, s.today())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return &pagination.Page[models.Product]{Items: rows, Meta: pagination.NewMeta(filter.Page, total)}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}
	return product, nil
}

func (s *service) GetBySlug(ctx context.Context, value string) (*models.Product, error) {
	product, err := s.repo.FindActiveBySlug(ctx, strings.ToLower(strings.TrimSpace(value)))
	if err != nil {
		return nil, notFoundOr(err, "product not found", "load product")
	}
	return product, nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*models.Product, error) {
	product, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	previousCategory := product.CategoryID

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		if !strings.EqualFold(name, product.Name) {
			taken, err := s.repo.NameTaken(ctx, product.GroupID, name, product.ID)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product name")
			}
			if taken {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "a product with this name already exists in the group")
			}
		}
		if name != product.Name {
			if product.Slug, err = slug.Rename(ctx, name, product.Slug, s.repo.SlugTaken); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate slug")
			}
		}
		product.Name = name
	}
	if input.CategoryID != nil && *input.CategoryID != product.CategoryID {
		category, err := s.repo.FindCategory(ctx, *input.CategoryID)
		if err != nil {
			return nil, notFoundOr(err, "category not found", "load category")
		}
		if !category.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "category is not active")
		}
		product.CategoryID = category.ID
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be zero or greater")
		}
		product.Price = input.Price.Round(2)
	}
	if input.Quantity != nil {
		if *input.Quantity < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be zero or greater")
		}
		product.Quantity = *input.Quantity
	}
	if input.Color != nil {
		product.Color = strings.TrimSpace(*input.Color)
	}
	if input.Phone != nil {
		product.Phone = normalizePhone(input.Phone)
	}
	if input.ExpirationDate != nil {
		product.ExpirationDate = DateOnly(*input.ExpirationDate)
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Save(ctx, product); err != nil {
			return err
		}
		if product.CategoryID == previousCategory {
			return nil
		}
		if err := categories.AdjustCounts(ctx, tx, previousCategory, -1); err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return err
		}
		return categories.AdjustCounts(ctx, tx, product.CategoryID, 1)
	})
	if err != nil {
		return nil, asDependency(err, "update product")
	}
	return product, nil
}

func (s *service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	product, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)
		submitted, err := r.CountSubmittedCartLines(ctx, id)
		if err != nil {
			return err
		}
		if submitted > 0 {
			return pkgerrors.New(pkgerrors.CodeBusinessRule, "product is part of submitted carts, deactivate it instead")
		}
		if err := r.DetachFromActiveCarts(ctx, id); err != nil {
			return err
		}
		if err := r.Delete(ctx, id); err != nil {
			return err
		}
		if err := categories.AdjustCounts(ctx, tx, product.CategoryID, -1); err != nil && !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return asDependency(err, "delete product")
	}
	ids := make([]string, 0, len(product.Images))
	for _, img := range product.Images {
		ids = append(ids, img.PublicID)
	}
	media.DeleteAll(ctx, s.uploader, s.logg, ids...)
	return nil
}

func (s *service) SetActive(ctx context.Context, actor auth.Actor, id uuid.UUID, active bool) (*models.Product, error) {
	return s.Update(ctx, actor, id, UpdateInput{IsActive: &active})
}

func (s *service) AddImages(ctx context.Context, actor auth.Actor, id uuid.UUID, files [][]byte, altText string) (*models.Product, error) {
	if len(files) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one image is required")
	}
	product, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if len(product.Images)+len(files) > s.maxGallery {
		return nil, pkgerrors.Newf(pkgerrors.CodeBusinessRule, "a product can have at most %d images", s.maxGallery)
	}

	assets, err := media.UploadAll(ctx, s.uploader, s.logg, media.FolderProducts, files)
	if err != nil {
		return nil, err
	}
	nextOrder := 0
	for _, img := range product.Images {
		if img.SortOrder >= nextOrder {
			nextOrder = img.SortOrder + 1
		}
	}
	images := imagesFromAssets(product.ID, assets, nextOrder, altText, product.PrimaryImage() == nil)

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreateImages(ctx, images)
	})
	if err != nil {
		media.Cleanup(ctx, s.uploader, s.logg, assets...)
		return nil, asDependency(err, "add product images")
	}
	return s.Get(ctx, id)
}

func (s *service) SetPrimaryImage(ctx context.Context, actor auth.Actor, id, imageID uuid.UUID) (*models.Product, error) {
	product, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if findImage(product, imageID) < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "image not found")
	}
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).SetPrimary(ctx, id, imageID)
	})
	if err != nil {
		return nil, asDependency(err, "set primary image")
	}
	return s.Get(ctx, id)
}

func (s *service) ReorderImages(ctx context.Context, actor auth.Actor, id uuid.UUID, imageIDs []uuid.UUID) (*models.Product, error) {
	product, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if len(imageIDs) != len(product.Images) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image order must list every image exactly once")
	}
	seen := make(map[uuid.UUID]struct{}, len(imageIDs))
	for _, imageID := range imageIDs {
		if _, dup := seen[imageID]; dup || findImage(product, imageID) < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "image order must list every image exactly once")
		}
		seen[imageID] = struct{}{}
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)
		for i, imageID := range imageIDs {
			if err := r.SetSortOrder(ctx, imageID, i); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, asDependency(err, "reorder images")
	}
	return s.Get(ctx, id)
}

// DeleteImage removes one image. Removing the primary promotes the next by sort order.
func (s *service) DeleteImage(ctx context.Context, actor auth.Actor, id, imageID uuid.UUID) (*models.Product, error) {
	product, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	idx := findImage(product, imageID)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "image not found")
	}
	removed := product.Images[idx]

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)
		if err := r.DeleteImage(ctx, imageID); err != nil {
			return err
		}
		if !removed.IsPrimary {
			return nil
		}
		for _, img := range product.Images {
			if img.ID != imageID {
				return r.SetPrimary(ctx, id, img.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, asDependency(err, "delete image")
	}
	media.DeleteAll(ctx, s.uploader, s.logg, removed.PublicID)
	return s.Get(ctx, id)
}

func (s *service) Stats(ctx context.Context) ([]Stat, error) {
	stats, err := s.repo.Stats(ctx, s.today())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "product stats")
	}
	return stats, nil
}

func (s *service) ensureMember(ctx context.Context, actor auth.Actor, groupID uuid.UUID) error {
	if actor.IsAdmin() {
		return nil
	}
	member, err := s.repo.IsApprovedMember(ctx, groupID, actor.UserID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
	}
	if !member {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only group members can list products in this group")
	}
	return nil
}

// loadOwned returns the product when actor created it or is a platform admin.
func (s *service) loadOwned(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Product, error) {
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && product.CreatedByID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the product owner can change this product")
	}
	return product, nil
}

func imagesFromAssets(productID uuid.UUID, assets []*media.Asset, startOrder int, altText string, firstPrimary bool) []models.ProductImage {
	images := make([]models.ProductImage, 0, len(assets))
	for i, asset := range assets {
		images = append(images, models.ProductImage{
			ID:        uuid.New(),
			ProductID: productID,
			URL:       asset.URL,
			PublicID:  asset.PublicID,
			Width:     asset.Width,
			Height:    asset.Height,
			AltText:   strings.TrimSpace(altText),
			IsPrimary: firstPrimary && i == 0,
			SortOrder: startOrder + i,
			IsActive:  true,
		})
	}
	return images
}

func findImage(product *models.Product, imageID uuid.UUID) int {
	for i := range product.Images {
		if product.Images[i].ID == imageID {
			return i
		}
	}
	return -1
}

func normalizePhone(phone *string) *string {
	if phone == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*phone)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func notFoundOr(err error, notFound, action string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

func asDependency(err error, action string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	if db.IsUniqueViolation(err, "") {
		return pkgerrors.New(pkgerrors.CodeConflict, "product already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
