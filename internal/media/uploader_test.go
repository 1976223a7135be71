package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	pkgerrors "github.com/circlemart/circlemart-backend/pkg/errors"
	"github.com/circlemart/circlemart-backend/pkg/logger"
	"github.com/circlemart/circlemart-backend/pkg/storage/gcs"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	uploaded  []string
	deleted   []string
	failAfter int
	deleteErr error
}

func (f *fakeStore) Upload(_ context.Context, object string, _ []byte, contentType string) (*gcs.Object, error) {
	if f.failAfter >= 0 && len(f.uploaded) >= f.failAfter {
		return nil, errors.New("bucket unavailable")
	}
	f.uploaded = append(f.uploaded, object)
	return &gcs.Object{Name: object, ContentType: contentType, URL: "https://cdn.test/" + object}, nil
}

func (f *fakeStore) Delete(_ context.Context, object string) error {
	f.deleted = append(f.deleted, object)
	return f.deleteErr
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestService(t *testing.T, store *fakeStore) *Service {
	t.Helper()
	svc, err := NewService(store, "circlemart", 1<<20, logger.Nop())
	require.NoError(t, err)
	return svc
}

func TestUploadStoresImageWithDimensions(t *testing.T) {
	store := &fakeStore{failAfter: -1}
	svc := newTestService(t, store)

	asset, err := svc.Upload(context.Background(), pngBytes(t, 4, 3), FolderCategories)
	require.NoError(t, err)
	require.Equal(t, 4, asset.Width)
	require.Equal(t, 3, asset.Height)
	require.True(t, strings.HasPrefix(asset.PublicID, "circlemart/categories/"))
	require.True(t, strings.HasSuffix(asset.PublicID, ".png"))
	require.Equal(t, "https://cdn.test/"+asset.PublicID, asset.URL)
}

func TestUploadRejectsNonImages(t *testing.T) {
	svc := newTestService(t, &fakeStore{failAfter: -1})

	_, err := svc.Upload(context.Background(), []byte("%PDF-1.4 not an image"), FolderBlogs)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Upload(context.Background(), nil, FolderBlogs)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUploadRejectsOversizedFiles(t *testing.T) {
	store := &fakeStore{failAfter: -1}
	svc, err := NewService(store, "", 16, logger.Nop())
	require.NoError(t, err)

	_, err = svc.Upload(context.Background(), pngBytes(t, 8, 8), FolderProducts)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Empty(t, store.uploaded)
}

func TestUploadAllCleansUpOnFailure(t *testing.T) {
	store := &fakeStore{failAfter: 2}
	svc := newTestService(t, store)
	files := [][]byte{pngBytes(t, 1, 1), pngBytes(t, 1, 1), pngBytes(t, 1, 1)}

	_, err := UploadAll(context.Background(), svc, logger.Nop(), FolderBlogs, files)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	require.Len(t, store.uploaded, 2)
	require.ElementsMatch(t, store.uploaded, store.deleted)
}

func TestDeleteIgnoresMissingObjects(t *testing.T) {
	store := &fakeStore{failAfter: -1, deleteErr: gcs.ErrObjectNotFound}
	svc := newTestService(t, store)

	require.NoError(t, svc.Delete(context.Background(), "circlemart/x.png"))
	require.NoError(t, svc.Delete(context.Background(), ""))
	require.Len(t, store.deleted, 1)

	store.deleteErr = errors.New("boom")
	require.Error(t, svc.Delete(context.Background(), "circlemart/y.png"))
}
