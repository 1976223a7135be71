package categories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/circlemart/circlemart-backend/internal/media/mediatest"
	"github.com/circlemart/circlemart-backend/internal/repo"
	"github.com/circlemart/circlemart-backend/pkg/db"
	"github.com/circlemart/circlemart-backend/pkg/db/dbtest"
	"github.com/circlemart/circlemart-backend/pkg/db/models"
	pkgerrors "github.com/circlemart/circlemart-backend/pkg/errors"
	"github.com/circlemart/circlemart-backend/pkg/logger"
	"github.com/circlemart/circlemart-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *db.Client, *mediatest.Uploader) {
	t.Helper()
	client := dbtest.Open(t)
	uploader := mediatest.New()
	svc, err := NewService(client, uploader, logger.Nop())
	require.NoError(t, err)
	return svc, client, uploader
}

func insertProduct(t *testing.T, client *db.Client, categoryID uuid.UUID, active bool, qty int) {
	t.Helper()
	p := models.Product{
		ID:             uuid.New(),
		CategoryID:     categoryID,
		GroupID:        uuid.New(),
		Name:           "p",
		Slug:           uuid.NewString(),
		Price:          decimal.NewFromInt(1),
		Quantity:       qty,
		ExpirationDate: time.Now().AddDate(0, 1, 0),
		IsActive:       active,
		CreatedByID:    uuid.New(),
	}
	require.NoError(t, client.DB().Create(&p).Error)
}

func TestCreateGeneratesSlugAndRejectsDuplicateNames(t *testing.T) {
	svc, _, uploader := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, uuid.New(), CreateInput{Name: "Home & Garden", Logo: []byte("logo")})
	require.NoError(t, err)
	require.Equal(t, "home-garden", first.Slug)
	require.True(t, first.IsActive)
	require.Equal(t, first.LogoPublicID, uploader.Uploaded[0])

	_, err = svc.Create(ctx, uuid.New(), CreateInput{Name: "home & garden"})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	second, err := svc.Create(ctx, uuid.New(), CreateInput{Name: "Home-Garden"})
	require.NoError(t, err)
	require.Equal(t, "home-garden-1", second.Slug)
}

func TestDeleteBlockedWhileCountsPositive(t *testing.T) {
	svc, client, uploader := newTestService(t)
	ctx := context.Background()

	category, err := svc.Create(ctx, uuid.New(), CreateInput{Name: "Books", Logo: []byte("logo")})
	require.NoError(t, err)

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return AdjustCounts(ctx, tx, category.ID, 1)
	}))

	err = svc.Delete(ctx, category.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule))
	require.Empty(t, uploader.Deleted)

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return AdjustCounts(ctx, tx, category.ID, -1)
	}))

	require.NoError(t, svc.Delete(ctx, category.ID))
	require.True(t, uploader.WasDeleted(category.LogoPublicID))

	_, err = svc.Get(ctx, category.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestAdjustCountsNeverNegative(t *testing.T) {
	svc, client, _ := newTestService(t)
	ctx := context.Background()
	category, err := svc.Create(ctx, uuid.Nil, CreateInput{Name: "Toys"})
	require.NoError(t, err)

	require.NoError(t, client.WithTx(ctx, func(tx *gorm.DB) error {
		return AdjustCounts(ctx, tx, category.ID, -3)
	}))
	got, err := svc.Get(ctx, category.ID)
	require.NoError(t, err)
	require.Zero(t, got.Counts)

	err = client.WithTx(ctx, func(tx *gorm.DB) error {
		return AdjustCounts(ctx, tx, uuid.New(), 1)
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateRenameReplacesLogo(t *testing.T) {
	svc, _, uploader := newTestService(t)
	ctx := context.Background()

	category, err := svc.Create(ctx, uuid.Nil, CreateInput{Name: "Music", Logo: []byte("a")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, uuid.Nil, CreateInput{Name: "Films"})
	require.NoError(t, err)
	oldLogo := category.LogoPublicID

	taken := "films"
	_, err = svc.Update(ctx, category.ID, UpdateInput{Name: &taken})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	name := "Music & Audio"
	updated, err := svc.Update(ctx, category.ID, UpdateInput{Name: &name, Logo: []byte("b")})
	require.NoError(t, err)
	require.Equal(t, "music-audio", updated.Slug)
	require.NotEqual(t, oldLogo, updated.LogoPublicID)
	require.True(t, uploader.WasDeleted(oldLogo))
}

func TestListFiltersAndGetBySlug(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	inactive := false
	_, err := svc.Create(ctx, uuid.Nil, CreateInput{Name: "Alpha"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, uuid.Nil, CreateInput{Name: "Beta", IsActive: &inactive})
	require.NoError(t, err)
	_, err = svc.Create(ctx, uuid.Nil, CreateInput{Name: "Gamma"})
	require.NoError(t, err)

	active := true
	page, err := svc.List(ctx, ListFilter{
		IsActive: &active,
		Sort:     repo.Sort{Field: "name", Desc: true},
		Page:     pagination.Params{Page: 1, Limit: 1},
	})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, "Gamma", page.Items[0].Name)
	require.EqualValues(t, 2, page.Meta.Total)
	require.True(t, page.Meta.HasNext)

	_, err = svc.GetBySlug(ctx, "beta")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	got, err := svc.GetBySlug(ctx, "alpha")
	require.NoError(t, err)
	require.Equal(t, "Alpha", got.Name)
}

func TestStatsAndRecompute(t *testing.T) {
	svc, client, _ := newTestService(t)
	ctx := context.Background()
	category, err := svc.Create(ctx, uuid.Nil, CreateInput{Name: "Garden"})
	require.NoError(t, err)
	insertProduct(t, client, category.ID, true, 4)
	insertProduct(t, client, category.ID, false, 6)

	updated, err := RecomputeCounts(ctx, client.DB())
	require.NoError(t, err)
	require.EqualValues(t, 1, updated)

	got, err := svc.Get(ctx, category.ID)
	require.NoError(t, err)
	require.Equal(t, 2, got.Counts)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	require.EqualValues(t, 2, stats[0].Products)
	require.EqualValues(t, 1, stats[0].ActiveProducts)
	require.EqualValues(t, 10, stats[0].TotalQuantity)
}
