package blogs

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/circlemart/circlemart-backend/internal/media"
	"github.com/circlemart/circlemart-backend/pkg/auth"
	"github.com/circlemart/circlemart-backend/pkg/db"
	"github.com/circlemart/circlemart-backend/pkg/db/models"
	pkgerrors "github.com/circlemart/circlemart-backend/pkg/errors"
	"github.com/circlemart/circlemart-backend/pkg/logger"
	"github.com/circlemart/circlemart-backend/pkg/pagination"
	"github.com/circlemart/circlemart-backend/pkg/slug"
)

// DefaultServiceResolver yields the service every blog is attached to.
type DefaultServiceResolver interface {
	EnsureDefault(ctx context.Context) (*models.Service, error)
}

type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*models.Blog, error)
	List(ctx context.Context, filter ListFilter) (*pagination.Page[models.Blog], error)
	Get(ctx context.Context, id uuid.UUID) (*models.Blog, error)
	View(ctx context.Context, slug string) (*models.Blog, error)
	Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*models.Blog, error)
	Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error
	SetActive(ctx context.Context, actor auth.Actor, id uuid.UUID, active bool) (*models.Blog, error)
	AddGalleryImages(ctx context.Context, actor auth.Actor, id uuid.UUID, files [][]byte) (*models.Blog, error)
	DeleteGalleryImage(ctx context.Context, actor auth.Actor, id, imageID uuid.UUID) (*models.Blog, error)
	Like(ctx context.Context, id uuid.UUID) (*models.Blog, error)
}

type service struct {
	client     *db.Client
	repo       *Repository
	uploader   media.Uploader
	defaults   DefaultServiceResolver
	maxGallery int
	logg       *logger.Logger
}

func NewService(client *db.Client, uploader media.Uploader, defaults DefaultServiceResolver, maxGallery int, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	if uploader == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "media uploader required")
	}
	if defaults == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "default service resolver required")
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
		defaults:   defaults,
		maxGallery: maxGallery,
		logg:       logg,
	}, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*models.Blog, error) {
	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	switch {
	case title == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	case content == "":
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "content is required")
	case len(input.Thumbnail) == 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "thumbnail is required")
	case len(input.Gallery) == 0:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one gallery image is required")
	case len(input.Gallery) > s.maxGallery:
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "a blog can have at most %d gallery images", s.maxGallery)
	}

	owner, err := s.defaults.EnsureDefault(ctx)
	if err != nil {
		return nil, err
	}
	blogSlug, err := slug.Unique(ctx, title, s.repo.SlugTaken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate slug")
	}

	blog := &models.Blog{
		ID:        uuid.New(),
		ServiceID: owner.ID,
		AuthorID:  actor.UserID,
		Title:     title,
		Slug:      blogSlug,
		Excerpt:   excerpt(input.Excerpt, content),
		Content:   content,
		IsActive:  true,
	}
	if input.IsActive != nil {
		blog.IsActive = *input.IsActive
	}

	thumb, err := s.uploader.Upload(ctx, input.Thumbnail, media.FolderBlogs)
	if err != nil {
		return nil, err
	}
	gallery, err := media.UploadAll(ctx, s.uploader, s.logg, media.FolderBlogs, input.Gallery)
	if err != nil {
		media.Cleanup(ctx, s.uploader, s.logg, thumb)
		return nil, err
	}
	blog.ThumbnailURL = thumb.URL
	blog.ThumbnailPublicID = thumb.PublicID
	images := galleryFromAssets(blog.ID, gallery, 0)

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)
		if err := r.Create(ctx, blog); err != nil {
			return err
		}
		return r.CreateImages(ctx, images)
	})
	if err != nil {
		media.Cleanup(ctx, s.uploader, s.logg, append(gallery, thumb)...)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create blog")
	}
	blog.Gallery = images
	return blog, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) (*pagination.Page[models.Blog], error) {
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list blogs")
	}
	return &pagination.Page[models.Blog]{Items: rows, Meta: pagination.NewMeta(filter.Page, total)}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Blog, error) {
	blog, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "load blog")
	}
	return blog, nil
}

// View returns a published blog by slug and counts the read.
func (s *service) View(ctx context.Context, value string) (*models.Blog, error) {
	blog, err := s.repo.FindActiveBySlug(ctx, strings.ToLower(strings.TrimSpace(value)))
	if err != nil {
		return nil, notFoundOr(err, "load blog")
	}
	if _, err := s.repo.Increment(ctx, blog.ID, "views"); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "blog_id", blog.ID.String()), "blogs.view_count_failed")
		return blog, nil
	}
	blog.Views++
	return blog, nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*models.Blog, error) {
	blog, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be empty")
		}
		if title != blog.Title {
			if blog.Slug, err = slug.Rename(ctx, title, blog.Slug, s.repo.SlugTaken); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate slug")
			}
		}
		blog.Title = title
	}
	if input.Content != nil {
		content := strings.TrimSpace(*input.Content)
		if content == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "content cannot be empty")
		}
		blog.Content = content
	}
	if input.Excerpt != nil {
		blog.Excerpt = excerpt(*input.Excerpt, blog.Content)
	}
	if input.IsActive != nil {
		blog.IsActive = *input.IsActive
	}

	oldThumb := blog.ThumbnailPublicID
	var thumb *media.Asset
	if len(input.Thumbnail) > 0 {
		if thumb, err = s.uploader.Upload(ctx, input.Thumbnail, media.FolderBlogs); err != nil {
			return nil, err
		}
		blog.ThumbnailURL = thumb.URL
		blog.ThumbnailPublicID = thumb.PublicID
	}
	if err := s.repo.Save(ctx, blog); err != nil {
		media.Cleanup(ctx, s.uploader, s.logg, thumb)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update blog")
	}
	if thumb != nil {
		media.DeleteAll(ctx, s.uploader, s.logg, oldThumb)
	}
	return blog, nil
}

func (s *service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	blog, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return err
	}
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Delete(ctx, id)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete blog")
	}
	ids := []string{blog.ThumbnailPublicID}
	for _, img := range blog.Gallery {
		ids = append(ids, img.PublicID)
	}
	media.DeleteAll(ctx, s.uploader, s.logg, ids...)
	return nil
}

func (s *service) SetActive(ctx context.Context, actor auth.Actor, id uuid.UUID, active bool) (*models.Blog, error) {
	return s.Update(ctx, actor, id, UpdateInput{IsActive: &active})
}

func (s *service) AddGalleryImages(ctx context.Context, actor auth.Actor, id uuid.UUID, files [][]byte) (*models.Blog, error) {
	if len(files) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one image is required")
	}
	blog, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if len(blog.Gallery)+len(files) > s.maxGallery {
		return nil, pkgerrors.Newf(pkgerrors.CodeBusinessRule, "a blog can have at most %d gallery images", s.maxGallery)
	}
	assets, err := media.UploadAll(ctx, s.uploader, s.logg, media.FolderBlogs, files)
	if err != nil {
		return nil, err
	}
	next := 0
	for _, img := range blog.Gallery {
		if img.SortOrder >= next {
			next = img.SortOrder + 1
		}
	}
	if err := s.repo.CreateImages(ctx, galleryFromAssets(blog.ID, assets, next)); err != nil {
		media.Cleanup(ctx, s.uploader, s.logg, assets...)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add gallery images")
	}
	return s.Get(ctx, id)
}

// DeleteGalleryImage refuses to remove the last gallery image.
func (s *service) DeleteGalleryImage(ctx context.Context, actor auth.Actor, id, imageID uuid.UUID) (*models.Blog, error) {
	blog, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	var target *models.BlogImage
	for i := range blog.Gallery {
		if blog.Gallery[i].ID == imageID {
			target = &blog.Gallery[i]
		}
	}
	if target == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "image not found")
	}
	if len(blog.Gallery) == 1 {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "a blog must keep at least one gallery image")
	}
	if err := s.repo.DeleteImage(ctx, id, imageID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete gallery image")
	}
	media.DeleteAll(ctx, s.uploader, s.logg, target.PublicID)
	return s.Get(ctx, id)
}

func (s *service) Like(ctx context.Context, id uuid.UUID) (*models.Blog, error) {
	n, err := s.repo.Increment(ctx, id, "likes")
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "like blog")
	}
	if n == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "blog not found")
	}
	return s.Get(ctx, id)
}

func (s *service) loadOwned(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Blog, error) {
	blog, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && blog.AuthorID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the author can change this blog")
	}
	return blog, nil
}

func galleryFromAssets(blogID uuid.UUID, assets []*media.Asset, start int) []models.BlogImage {
	images := make([]models.BlogImage, 0, len(assets))
	for i, asset := range assets {
		images = append(images, models.BlogImage{
			ID:        uuid.New(),
			BlogID:    blogID,
			URL:       asset.URL,
			PublicID:  asset.PublicID,
			Width:     asset.Width,
			Height:    asset.Height,
			SortOrder: start + i,
		})
	}
	return images
}

// excerpt keeps an explicit summary or falls back to the opening of content.
func excerpt(explicit, content string) string {
	if e := strings.TrimSpace(explicit); e != "" {
		return e
	}
	if utf8.RuneCountInString(content) <= excerptLength {
		return content
	}
	runes := []rune(content)
	return strings.TrimSpace(string(runes[:excerptLength])) + "…"
}

func notFoundOr(err error, action string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "blog not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
