package cart

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circlemart/circlemart-backend/pkg/auth"
	"github.com/circlemart/circlemart-backend/pkg/db"
	"github.com/circlemart/circlemart-backend/pkg/db/dbtest"
	"github.com/circlemart/circlemart-backend/pkg/db/models"
	"github.com/circlemart/circlemart-backend/pkg/enums"
	pkgerrors "github.com/circlemart/circlemart-backend/pkg/errors"
	"github.com/circlemart/circlemart-backend/pkg/logger"
)

var testNow = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

type recordingMetrics struct {
	transitions map[string]int
}

func (m *recordingMetrics) IncTransition(status string) {
	if m.transitions == nil {
		m.transitions = map[string]int{}
	}
	m.transitions[status]++
}

type fixture struct {
	svc     Service
	client  *db.Client
	metrics *recordingMetrics
	buyer   uuid.UUID
	admin   auth.Actor
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	m := &recordingMetrics{}
	svc, err := NewService(client, opts, m, logger.Nop())
	require.NoError(t, err)
	svc.(*service).now = func() time.Time { return testNow }
	return &fixture{
		svc:     svc,
		client:  client,
		metrics: m,
		buyer:   uuid.New(),
		admin:   auth.Actor{UserID: uuid.New(), Role: enums.UserRoleAdmin},
	}
}

func (f *fixture) product(t *testing.T, name string, price string, qty int) *models.Product {
	t.Helper()
	p := &models.Product{
		ID:             uuid.New(),
		CategoryID:     uuid.New(),
		GroupID:        uuid.New(),
		Name:           name,
		Slug:           uuid.NewString(),
		Price:          decimal.RequireFromString(price),
		Quantity:       qty,
		ExpirationDate: testNow.AddDate(0, 1, 0),
		IsActive:       true,
		CreatedByID:    uuid.New(),
	}
	require.NoError(t, f.client.DB().Create(p).Error)
	return p
}

func (f *fixture) update(t *testing.T, p *models.Product, column string, value any) {
	t.Helper()
	require.NoError(t, f.client.DB().Model(&models.Product{}).Where("id = ?", p.ID).Update(column, value).Error)
}

func (f *fixture) submitted(t *testing.T, p *models.Product, qty int) *models.Cart {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.AddItem(ctx, f.buyer, p.ID, qty)
	require.NoError(t, err)
	cart, err := f.svc.Submit(ctx, f.buyer, "please deliver friday")
	require.NoError(t, err)
	return cart
}

func assertTotals(t *testing.T, cart *models.Cart) {
	t.Helper()
	sum := decimal.Zero
	items := 0
	for _, item := range cart.Items {
		sum = sum.Add(item.PriceAtTime.Mul(decimal.NewFromInt(int64(item.Quantity))))
		items += item.Quantity
	}
	assert.True(t, sum.Equal(cart.TotalAmount), "total_amount %s != %s", cart.TotalAmount, sum)
	assert.Equal(t, items, cart.TotalItems)
}

func (f *fixture) stored(t *testing.T, id uuid.UUID) *models.Cart {
	t.Helper()
	cart, err := f.svc.AdminGet(context.Background(), id)
	require.NoError(t, err)
	return cart
}

func TestGetActiveCartCreatesOnce(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	first, err := f.svc.GetActiveCart(ctx, f.buyer)
	require.NoError(t, err)
	second, err := f.svc.GetActiveCart(ctx, f.buyer)
	require.NoError(t, err)
	assert.Equal(t, first.Cart.ID, second.Cart.ID)
	assert.Equal(t, enums.CartStatusActive, second.Cart.Status)
	assert.False(t, second.Updated())

	var active int64
	require.NoError(t, f.client.DB().Model(&models.Cart{}).
		Where("user_id = ? AND status = ?", f.buyer, enums.CartStatusActive).Count(&active).Error)
	assert.EqualValues(t, 1, active)
}

func TestAddItemRespectsStock(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	p := f.product(t, "Honey Jar", "4.50", 5)

	cart, err := f.svc.AddItem(ctx, f.buyer, p.ID, 3)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)

	_, err = f.svc.AddItem(ctx, f.buyer, p.ID, 4)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule))
	assert.Equal(t, "only 2 more available", pkgerrors.As(err).Message())

	stored := f.stored(t, cart.ID)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, 3, stored.Items[0].Quantity)
	assertTotals(t, stored)
	assert.True(t, decimal.RequireFromString("13.5").Equal(stored.TotalAmount))
}

func TestAddItemMergesAndKeepsCapturedPrice(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	p := f.product(t, "Candle", "10", 10)
	other := f.product(t, "Soap", "2.25", 10)

	_, err := f.svc.AddItem(ctx, f.buyer, p.ID, 1)
	require.NoError(t, err)
	f.update(t, p, "price", decimal.NewFromInt(99))
	cart, err := f.svc.AddItem(ctx, f.buyer, p.ID, 2)
	require.NoError(t, err)
	cart, err = f.svc.AddItem(ctx, f.buyer, other.ID, 2)
	require.NoError(t, err)

	stored := f.stored(t, cart.ID)
	require.Len(t, stored.Items, 2)
	idx := stored.FindItem(p.ID)
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, 3, stored.Items[idx].Quantity)
	assert.True(t, decimal.NewFromInt(10).Equal(stored.Items[idx].PriceAtTime))
	assert.Equal(t, 5, stored.TotalItems)
	assert.True(t, decimal.RequireFromString("34.5").Equal(stored.TotalAmount))
	assertTotals(t, stored)
}

func TestAddItemRejectsUnavailableProducts(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	inactive := f.product(t, "Hidden", "1", 5)
	f.update(t, inactive, "is_active", false)
	_, err := f.svc.AddItem(ctx, f.buyer, inactive.ID, 1)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule))

	expired := f.product(t, "Old", "1", 5)
	f.update(t, expired, "expiration_date", testNow.AddDate(0, 0, -2))
	_, err = f.svc.AddItem(ctx, f.buyer, expired.ID, 1)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule))

	_, err = f.svc.AddItem(ctx, f.buyer, uuid.New(), 1)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.AddItem(ctx, f.buyer, inactive.ID, 0)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateAndRemoveItems(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	p := f.product(t, "Tea", "3", 4)
	q := f.product(t, "Cup", "6", 4)
	_, err := f.svc.AddItem(ctx, f.buyer, p.ID, 1)
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, f.buyer, q.ID, 1)
	require.NoError(t, err)

	cart, err := f.svc.UpdateItem(ctx, f.buyer, p.ID, 4)
	require.NoError(t, err)
	assertTotals(t, cart)
	_, err = f.svc.UpdateItem(ctx, f.buyer, p.ID, 5)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule))

	cart, err = f.svc.UpdateItem(ctx, f.buyer, q.ID, 0)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assertTotals(t, f.stored(t, cart.ID))

	_, err = f.svc.RemoveItem(ctx, f.buyer, q.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	cart, err = f.svc.Clear(ctx, f.buyer)
	require.NoError(t, err)
	stored := f.stored(t, cart.ID)
	assert.Empty(t, stored.Items)
	assert.Zero(t, stored.TotalItems)
	assert.True(t, stored.TotalAmount.IsZero())
}

func TestGetActiveCartHealsUnavailableLines(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	gone := f.product(t, "Melon", "2", 5)
	shrinking := f.product(t, "Apple", "1", 5)
	stable := f.product(t, "Pear", "1.5", 5)
	for _, p := range []*models.Product{gone, shrinking, stable} {
		_, err := f.svc.AddItem(ctx, f.buyer, p.ID, 3)
		require.NoError(t, err)
	}

	f.update(t, gone, "is_active", false)
	f.update(t, shrinking, "quantity", 2)

	view, err := f.svc.GetActiveCart(ctx, f.buyer)
	require.NoError(t, err)
	assert.True(t, view.Updated())
	assert.Len(t, view.Notices, 2)
	require.Len(t, view.Cart.Items, 2)

	stored := f.stored(t, view.Cart.ID)
	require.Len(t, stored.Items, 2)
	quantities := map[uuid.UUID]int{}
	for _, item := range stored.Items {
		quantities[item.ProductID] = item.Quantity
	}
	assert.Equal(t, 2, quantities[shrinking.ID])
	assert.Equal(t, 3, quantities[stable.ID])
	assertTotals(t, stored)

	again, err := f.svc.GetActiveCart(ctx, f.buyer)
	require.NoError(t, err)
	assert.False(t, again.Updated())
}

func TestSubmitRequiresItemsAndMovesToPending(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, f.buyer, "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule))

	p := f.product(t, "Bread", "3", 5)
	cart := f.submitted(t, p, 2)
	assert.Equal(t, enums.CartStatusPending, cart.Status)
	require.NotNil(t, cart.SubmittedAt)
	assert.Equal(t, "please deliver friday", cart.UserNotes)
	assert.Equal(t, 1, f.metrics.transitions[string(enums.CartStatusPending)])

	fresh, err := f.svc.GetActiveCart(ctx, f.buyer)
	require.NoError(t, err)
	assert.NotEqual(t, cart.ID, fresh.Cart.ID)
	assert.Empty(t, fresh.Cart.Items)
}

func TestSubmitRevalidatesStock(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	p := f.product(t, "Cheese", "8", 5)
	cart, err := f.svc.AddItem(ctx, f.buyer, p.ID, 4)
	require.NoError(t, err)
	f.update(t, p, "quantity", 1)

	_, err = f.svc.Submit(ctx, f.buyer, "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule))
	assert.Equal(t, enums.CartStatusActive, f.stored(t, cart.ID).Status)
}

func TestApproveOnlyPendingCarts(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	p := f.product(t, "Jam", "5", 5)

	active, err := f.svc.AddItem(ctx, f.buyer, p.ID, 1)
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, f.admin, active.ID, "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	cart, err := f.svc.Submit(ctx, f.buyer, "")
	require.NoError(t, err)

	_, err = f.svc.Approve(ctx, auth.Actor{UserID: f.buyer, Role: enums.UserRoleUser}, cart.ID, "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	approved, err := f.svc.Approve(ctx, f.admin, cart.ID, "ready for pickup")
	require.NoError(t, err)
	assert.Equal(t, enums.CartStatusApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, f.admin.UserID, *approved.ApprovedBy)
	require.NotNil(t, approved.ApprovedAt)
	assert.Equal(t, "ready for pickup", approved.AdminNotes)

	_, err = f.svc.Approve(ctx, f.admin, cart.ID, "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	_, err = f.svc.Cancel(ctx, f.buyer, cart.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	var stock models.Product
	require.NoError(t, f.client.DB().First(&stock, "id = ?", p.ID).Error)
	assert.Equal(t, 5, stock.Quantity)
}

func TestApproveRevalidatesAndOptionallyDecrements(t *testing.T) {
	f := newFixture(t, Options{DecrementStockOnApproval: true})
	ctx := context.Background()
	p := f.product(t, "Olive Oil", "12", 5)
	cart := f.submitted(t, p, 3)

	f.update(t, p, "quantity", 2)
	_, err := f.svc.Approve(ctx, f.admin, cart.ID, "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeBusinessRule))
	assert.Equal(t, enums.CartStatusPending, f.stored(t, cart.ID).Status)

	f.update(t, p, "quantity", 5)
	_, err = f.svc.Approve(ctx, f.admin, cart.ID, "")
	require.NoError(t, err)

	var stock models.Product
	require.NoError(t, f.client.DB().First(&stock, "id = ?", p.ID).Error)
	assert.Equal(t, 2, stock.Quantity)
}

func TestRejectAndCancel(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	p := f.product(t, "Flour", "2", 10)

	cart := f.submitted(t, p, 1)
	rejected, err := f.svc.Reject(ctx, f.admin, cart.ID, "out of delivery range")
	require.NoError(t, err)
	assert.Equal(t, enums.CartStatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectedAt)

	_, err = f.svc.Cancel(ctx, uuid.New(), cart.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	cancelled, err := f.svc.Cancel(ctx, f.buyer, cart.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CartStatusCancelled, cancelled.Status)
	_, err = f.svc.Cancel(ctx, f.buyer, cart.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	view, err := f.svc.GetActiveCart(ctx, f.buyer)
	require.NoError(t, err)
	_, err = f.svc.Reject(ctx, f.admin, view.Cart.ID, "")
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	cancelledActive, err := f.svc.Cancel(ctx, f.buyer, view.Cart.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CartStatusCancelled, cancelledActive.Status)
}

func TestHistoryAndStats(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	p := f.product(t, "Rice", "2.5", 50)

	first := f.submitted(t, p, 2)
	_, err := f.svc.Approve(ctx, f.admin, first.ID, "")
	require.NoError(t, err)
	f.submitted(t, p, 4)

	page, err := f.svc.History(ctx, f.buyer, HistoryFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Meta.Total)

	pending := enums.CartStatusPending
	page, err = f.svc.AdminList(ctx, AdminFilter{Status: &pending})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 4, page.Items[0].TotalItems)

	stats, err := f.svc.Stats(ctx)
	require.NoError(t, err)
	byStatus := map[enums.CartStatus]StatusStat{}
	for _, s := range stats {
		byStatus[s.Status] = s
	}
	assert.EqualValues(t, 1, byStatus[enums.CartStatusApproved].Carts)
	assert.True(t, decimal.NewFromInt(5).Equal(byStatus[enums.CartStatusApproved].TotalAmount))
	assert.EqualValues(t, 4, byStatus[enums.CartStatusPending].TotalItems)
}
