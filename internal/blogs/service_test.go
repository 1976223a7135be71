package blogs

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/circlemart/circlemart-backend/internal/media/mediatest"
	"github.com/circlemart/circlemart-backend/internal/services"
	"github.com/circlemart/circlemart-backend/pkg/auth"
	"github.com/circlemart/circlemart-backend/pkg/db"
	"github.com/circlemart/circlemart-backend/pkg/db/dbtest"
	"github.com/circlemart/circlemart-backend/pkg/db/models"
	"github.com/circlemart/circlemart-backend/pkg/enums"
	pkgerrors "github.com/circlemart/circlemart-backend/pkg/errors"
	"github.com/circlemart/circlemart-backend/pkg/logger"
)

func newTestService(t *testing.T) (Service, *db.Client, *mediatest.Uploader) {
	t.Helper()
	client := dbtest.Open(t)
	uploader := mediatest.New()
	defaults, err := services.NewService(client, uploader, logger.Nop())
	require.NoError(t, err)
	svc, err := NewService(client, uploader, defaults, 3, logger.Nop())
	require.NoError(t, err)
	return svc, client, uploader
}

var editor = auth.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin}

func post(title string, gallery int) CreateInput {
	in := CreateInput{Title: title, Content: "Body of " + title, Thumbnail: []byte("thumb")}
	for i := 0; i < gallery; i++ {
		in.Gallery = append(in.Gallery, []byte{byte(i)})
	}
	return in
}

func TestCreateAttachesDefaultServiceAndGallery(t *testing.T) {
	svc, client, uploader := newTestService(t)
	ctx := context.Background()

	blog, err := svc.Create(ctx, editor, post("Spring Market Recap", 2))
	require.NoError(t, err)
	require.Equal(t, "spring-market-recap", blog.Slug)
	require.Equal(t, "Body of Spring Market Recap", blog.Excerpt)
	require.Len(t, blog.Gallery, 2)
	require.Equal(t, uploader.Uploaded[0], blog.ThumbnailPublicID)

	var owner models.Service
	require.NoError(t, client.DB().First(&owner, "id = ?", blog.ServiceID).Error)
	require.True(t, owner.IsDefault)
	require.Equal(t, services.DefaultTitle, owner.Title)

	second, err := svc.Create(ctx, editor, post("Spring Market Recap", 1))
	require.NoError(t, err)
	require.Equal(t, blog.ServiceID, second.ServiceID)
	require.Equal(t, "spring-market-recap-1", second.Slug)
}

func TestCreateRequiresGalleryAndThumbnail(t *testing.T) {
	svc, _, uploader := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, editor, post("Empty", 0))
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	noThumb := post("No Thumb", 1)
	noThumb.Thumbnail = nil
	_, err = svc.Create(ctx, editor, noThumb)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	require.Empty(t, uploader.Uploaded)
}

func TestCreateCleansUpThumbnailWhenGalleryUploadFails(t *testing.T) {
	svc, client, uploader := newTestService(t)
	uploader.FailAfter = 2

	_, err := svc.Create(context.Background(), editor, post("Broken", 2))
	require.Error(t, err)
	for _, id := range uploader.Uploaded {
		require.True(t, uploader.WasDeleted(id), id)
	}
	var count int64
	require.NoError(t, client.DB().Model(&models.Blog{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestViewCountsOnlyActiveBlogs(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	blog, err := svc.Create(ctx, editor, post("Hello", 1))
	require.NoError(t, err)

	viewed, err := svc.View(ctx, blog.Slug)
	require.NoError(t, err)
	require.Equal(t, 1, viewed.Views)
	viewed, err = svc.View(ctx, blog.Slug)
	require.NoError(t, err)
	require.Equal(t, 2, viewed.Views)

	_, err = svc.SetActive(ctx, editor, blog.ID, false)
	require.NoError(t, err)
	_, err = svc.View(ctx, blog.Slug)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	liked, err := svc.Like(ctx, blog.ID)
	require.NoError(t, err)
	require.Equal(t, 1, liked.Likes)
	_, err = svc.Like(ctx, uuid.New())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestGalleryKeepsAtLeastOneImage(t *testing.T) {
	svc, _, uploader := newTestService(t)
	ctx := context.Background()
	blog, err := svc.Create(ctx, editor, post("Gallery", 1))
	require.NoError(t, err)

	_, err = svc.DeleteGalleryImage(ctx, editor, blog.ID, blog.Gallery[0].ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule))

	blog, err = svc.AddGalleryImages(ctx, editor, blog.ID, [][]byte{{9}, {8}})
	require.NoError(t, err)
	require.Len(t, blog.Gallery, 3)
	require.Equal(t, []int{0, 1, 2}, []int{blog.Gallery[0].SortOrder, blog.Gallery[1].SortOrder, blog.Gallery[2].SortOrder})

	_, err = svc.AddGalleryImages(ctx, editor, blog.ID, [][]byte{{7}})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule))

	removed := blog.Gallery[0]
	blog, err = svc.DeleteGalleryImage(ctx, editor, blog.ID, removed.ID)
	require.NoError(t, err)
	require.Len(t, blog.Gallery, 2)
	require.True(t, uploader.WasDeleted(removed.PublicID))
}

func TestUpdateReplacesThumbnailAndChecksAuthor(t *testing.T) {
	svc, _, uploader := newTestService(t)
	ctx := context.Background()
	author := auth.Actor{UserID: uuid.New(), Role: enums.UserRoleUser}
	blog, err := svc.Create(ctx, author, post("Draft", 1))
	require.NoError(t, err)
	oldThumb := blog.ThumbnailPublicID

	title := "Final"
	updated, err := svc.Update(ctx, author, blog.ID, UpdateInput{Title: &title, Thumbnail: []byte("new")})
	require.NoError(t, err)
	require.Equal(t, "final", updated.Slug)
	require.NotEqual(t, oldThumb, updated.ThumbnailPublicID)
	require.True(t, uploader.WasDeleted(oldThumb))

	other := auth.Actor{UserID: uuid.New(), Role: enums.UserRoleUser}
	_, err = svc.Update(ctx, other, blog.ID, UpdateInput{Title: &title})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	require.NoError(t, svc.Delete(ctx, editor, blog.ID))
	require.True(t, uploader.WasDeleted(updated.ThumbnailPublicID))
}

func TestExcerptFallsBackToContentPrefix(t *testing.T) {
	long := strings.Repeat("a", excerptLength+50)
	got := excerpt("", long)
	require.Equal(t, excerptLength+1, len([]rune(got)))
	require.Equal(t, "custom", excerpt("  custom ", long))
}
