package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	_ "golang.org/x/image/webp"

	pkgerrors "github.com/circlemart/circlemart-backend/pkg/errors"
	"github.com/circlemart/circlemart-backend/pkg/logger"
	"github.com/circlemart/circlemart-backend/pkg/storage/gcs"
)

// Folders used by the resource services.
const (
	FolderCategories = "categories"
	FolderServices   = "services"
	FolderGroups     = "groups"
	FolderProducts   = "products"
	FolderBlogs      = "blogs"
)

// Asset is the stored form of an uploaded image.
type Asset struct {
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

// Uploader is the media delegate handed to every resource service.
type Uploader interface {
	Upload(ctx context.Context, data []byte, folder string) (*Asset, error)
	Delete(ctx context.Context, publicID string) error
}

type objectStore interface {
	Upload(ctx context.Context, object string, data []byte, contentType string) (*gcs.Object, error)
	Delete(ctx context.Context, object string) error
}

type Service struct {
	store      objectStore
	rootFolder string
	maxBytes   int64
	logg       *logger.Logger
}

// NewService builds the GCS-backed uploader.
func NewService(store objectStore, rootFolder string, maxBytes int64, logg *logger.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("object store required")
	}
	if maxBytes <= 0 {
		return nil, fmt.Errorf("max upload bytes must be positive")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{
		store:      store,
		rootFolder: strings.Trim(rootFolder, "/"),
		maxBytes:   maxBytes,
		logg:       logg,
	}, nil
}

func (s *Service) Upload(ctx context.Context, data []byte, folder string) (*Asset, error) {
	if int64(len(data)) > s.maxBytes {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "file exceeds the %d byte upload limit", s.maxBytes)
	}
	contentType, ext, err := sniffImage(data)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	width, height := 0, 0
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		width, height = cfg.Width, cfg.Height
	}

	object := path.Join(s.rootFolder, strings.Trim(folder, "/"), uuid.NewString()+"."+ext)
	stored, err := s.store.Upload(ctx, object, data, contentType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "image upload failed")
	}
	return &Asset{
		PublicID: stored.Name,
		URL:      stored.URL,
		Width:    width,
		Height:   height,
	}, nil
}

func (s *Service) Delete(ctx context.Context, publicID string) error {
	if strings.TrimSpace(publicID) == "" {
		return nil
	}
	if err := s.store.Delete(ctx, publicID); err != nil && !errors.Is(err, gcs.ErrObjectNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "image delete failed")
	}
	return nil
}

// UploadAll uploads every payload in order. When one fails, the assets
// already stored are deleted before the error is returned.
func UploadAll(ctx context.Context, uploader Uploader, logg *logger.Logger, folder string, files [][]byte) ([]*Asset, error) {
	assets := make([]*Asset, 0, len(files))
	for _, data := range files {
		asset, err := uploader.Upload(ctx, data, folder)
		if err != nil {
			Cleanup(ctx, uploader, logg, assets...)
			return nil, err
		}
		assets = append(assets, asset)
	}
	return assets, nil
}

// Cleanup deletes assets best-effort and logs the combined failure.
func Cleanup(ctx context.Context, uploader Uploader, logg *logger.Logger, assets ...*Asset) {
	ids := make([]string, 0, len(assets))
	for _, asset := range assets {
		if asset != nil {
			ids = append(ids, asset.PublicID)
		}
	}
	DeleteAll(ctx, uploader, logg, ids...)
}

// DeleteAll removes stored objects by public id, logging rather than returning failures.
func DeleteAll(ctx context.Context, uploader Uploader, logg *logger.Logger, publicIDs ...string) {
	var errs error
	for _, id := range publicIDs {
		if id == "" {
			continue
		}
		errs = multierr.Append(errs, uploader.Delete(ctx, id))
	}
	if errs != nil && logg != nil {
		logg.Error(ctx, "media.cleanup_failed", errs)
	}
}
