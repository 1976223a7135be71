package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/circlemart/circlemart-backend/pkg/db/dbtest"
	"github.com/circlemart/circlemart-backend/pkg/db/models"
	"github.com/circlemart/circlemart-backend/pkg/enums"
	"github.com/circlemart/circlemart-backend/pkg/logger"
)

func TestJobsRepairDrift(t *testing.T) {
	client := dbtest.Open(t)
	conn := client.DB()
	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

	category := models.Category{ID: uuid.New(), Name: "Food", Slug: "food", IsActive: true, Counts: 9}
	require.NoError(t, conn.Create(&category).Error)
	service := models.Service{ID: uuid.New(), Title: "Market", Slug: "market", IsActive: true, TotalGroups: 7, TotalMembers: 70}
	require.NoError(t, conn.Create(&service).Error)
	group := models.Group{
		ID:             uuid.New(),
		ServiceID:      service.ID,
		Name:           "Bakers",
		Slug:           "bakers",
		AdminID:        uuid.New(),
		CreatedByID:    uuid.New(),
		ApprovalStatus: enums.ApprovalStatusApproved,
		IsActive:       true,
		MembersCount:   4,
	}
	require.NoError(t, conn.Create(&group).Error)

	fresh := models.Product{
		ID: uuid.New(), CategoryID: category.ID, GroupID: group.ID, Name: "Loaf", Slug: "loaf",
		Price: decimal.NewFromInt(3), Quantity: 2, ExpirationDate: now, IsActive: true, CreatedByID: uuid.New(),
	}
	stale := models.Product{
		ID: uuid.New(), CategoryID: category.ID, GroupID: group.ID, Name: "Bun", Slug: "bun",
		Price: decimal.NewFromInt(1), Quantity: 2, ExpirationDate: now.AddDate(0, 0, -1), IsActive: true, CreatedByID: uuid.New(),
	}
	require.NoError(t, conn.Create(&fresh).Error)
	require.NoError(t, conn.Create(&stale).Error)

	expired := NewExpiredProductsJob(client, logger.Nop())
	expired.now = func() time.Time { return now }
	lock := &fakeLock{}
	svc, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: NewRegistry(NewCategoryCountsJob(client, nil), NewServiceAggregatesJob(client, nil), expired),
		Lock:     lock,
	})
	require.NoError(t, err)
	require.NoError(t, svc.RunOnce(context.Background()))

	var gotCategory models.Category
	require.NoError(t, conn.First(&gotCategory, "id = ?", category.ID).Error)
	require.Equal(t, 2, gotCategory.Counts)

	var gotService models.Service
	require.NoError(t, conn.First(&gotService, "id = ?", service.ID).Error)
	require.Equal(t, 1, gotService.TotalGroups)
	require.Equal(t, 4, gotService.TotalMembers)

	var gotFresh, gotStale models.Product
	require.NoError(t, conn.First(&gotFresh, "id = ?", fresh.ID).Error)
	require.NoError(t, conn.First(&gotStale, "id = ?", stale.ID).Error)
	require.True(t, gotFresh.IsActive)
	require.False(t, gotStale.IsActive)
}
