package reconcile

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/circlemart/circlemart-backend/internal/categories"
	"github.com/circlemart/circlemart-backend/internal/products"
	"github.com/circlemart/circlemart-backend/internal/services"
	"github.com/circlemart/circlemart-backend/pkg/logger"
)

type dbProvider interface {
	DB() *gorm.DB
}

// CategoryCountsJob rebuilds category product counters from the products table.
type CategoryCountsJob struct {
	db   dbProvider
	logg *logger.Logger
}

func NewCategoryCountsJob(db dbProvider, logg *logger.Logger) *CategoryCountsJob {
	return &CategoryCountsJob{db: db, logg: orNop(logg)}
}

func (j *CategoryCountsJob) Name() string { return "category-counts" }

func (j *CategoryCountsJob) Run(ctx context.Context) error {
	updated, err := categories.RecomputeCounts(ctx, j.db.DB().WithContext(ctx))
	if err != nil {
		return fmt.Errorf("recompute category counts: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "rows_updated", updated), "category counts recomputed")
	return nil
}

// ServiceAggregatesJob refreshes every service's group and member totals.
type ServiceAggregatesJob struct {
	db   dbProvider
	logg *logger.Logger
}

func NewServiceAggregatesJob(db dbProvider, logg *logger.Logger) *ServiceAggregatesJob {
	return &ServiceAggregatesJob{db: db, logg: orNop(logg)}
}

func (j *ServiceAggregatesJob) Name() string { return "service-aggregates" }

func (j *ServiceAggregatesJob) Run(ctx context.Context) error {
	touched, err := services.RecomputeAll(ctx, j.db.DB().WithContext(ctx))
	if err != nil {
		return fmt.Errorf("recompute service aggregates: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "services", touched), "service aggregates recomputed")
	return nil
}

// ExpiredProductsJob switches off products whose expiration day has passed.
type ExpiredProductsJob struct {
	db   dbProvider
	logg *logger.Logger
	now  func() time.Time
}

func NewExpiredProductsJob(db dbProvider, logg *logger.Logger) *ExpiredProductsJob {
	return &ExpiredProductsJob{db: db, logg: orNop(logg), now: time.Now}
}

func (j *ExpiredProductsJob) Name() string { return "expired-products" }

func (j *ExpiredProductsJob) Run(ctx context.Context) error {
	deactivated, err := products.DeactivateExpired(ctx, j.db.DB().WithContext(ctx), j.now())
	if err != nil {
		return fmt.Errorf("deactivate expired products: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "deactivated", deactivated), "expired products deactivated")
	return nil
}

func orNop(logg *logger.Logger) *logger.Logger {
	if logg == nil {
		return logger.Nop()
	}
	return logg
}
