package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/circlemart/circlemart-backend/pkg/auth"
	"github.com/circlemart/circlemart-backend/pkg/db"
	"github.com/circlemart/circlemart-backend/pkg/db/models"
	"github.com/circlemart/circlemart-backend/pkg/enums"
	pkgerrors "github.com/circlemart/circlemart-backend/pkg/errors"
	"github.com/circlemart/circlemart-backend/pkg/logger"
	"github.com/circlemart/circlemart-backend/pkg/pagination"
)

const maxLineQuantity = 999

type transitionRecorder interface {
	IncTransition(status string)
}

// Service owns the per-user active cart and the admin approval pipeline.
type Service interface {
	GetActiveCart(ctx context.Context, userID uuid.UUID) (*View, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.Cart, error)
	UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.Cart, error)
	RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*models.Cart, error)
	Clear(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	Submit(ctx context.Context, userID uuid.UUID, notes string) (*models.Cart, error)
	Cancel(ctx context.Context, userID, cartID uuid.UUID) (*models.Cart, error)
	Approve(ctx context.Context, actor auth.Actor, cartID uuid.UUID, notes string) (*models.Cart, error)
	Reject(ctx context.Context, actor auth.Actor, cartID uuid.UUID, notes string) (*models.Cart, error)
	History(ctx context.Context, userID uuid.UUID, filter HistoryFilter) (*pagination.Page[models.Cart], error)
	AdminList(ctx context.Context, filter AdminFilter) (*pagination.Page[models.Cart], error)
	AdminGet(ctx context.Context, cartID uuid.UUID) (*models.Cart, error)
	Stats(ctx context.Context) ([]StatusStat, error)
}

// Options tune approval behavior.
type Options struct {
	DecrementStockOnApproval bool
}

type service struct {
	client  *db.Client
	repo    *Repository
	opts    Options
	metrics transitionRecorder
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(client *db.Client, opts Options, metrics transitionRecorder, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "db client required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		client:  client,
		repo:    NewRepository(client.DB()),
		opts:    opts,
		metrics: metrics,
		logg:    logg,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// GetActiveCart returns the caller's active cart, creating it when absent.
// Lines that can no longer be bought are dropped and lines above stock are
// clamped; both corrections are persisted and reported as notices.
func (s *service) GetActiveCart(ctx context.Context, userID uuid.UUID) (*View, error) {
	cart, err := s.activeCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	kept := make([]models.CartItem, 0, len(cart.Items))
	var notices []string
	for _, item := range cart.Items {
		product := item.Product
		switch {
		case product == nil:
			notices = append(notices, "an item is no longer available and was removed from your cart")
			continue
		case !product.IsPurchasable(now):
			notices = append(notices, fmt.Sprintf("%s is no longer available and was removed from your cart", product.Name))
			continue
		case item.Quantity > product.Quantity:
			notices = append(notices, fmt.Sprintf("only %d of %s available; quantity adjusted", product.Quantity, product.Name))
			item.Quantity = product.Quantity
		}
		kept = append(kept, item)
	}
	if len(notices) == 0 {
		return &View{Cart: cart}, nil
	}

	cart.Items = kept
	if err := s.persist(ctx, cart); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"cart_id": cart.ID.String(),
		"notices": len(notices),
	}), "cart.updated_on_read")
	return &View{Cart: cart, Notices: notices}, nil
}

// AddItem merges quantity into an existing line or appends a new line priced now.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity < 1 || quantity > maxLineQuantity {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity must be between 1 and %d", maxLineQuantity)
	}
	cart, err := s.activeCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := availability(product, s.now()); err != nil {
		return nil, err
	}

	idx := cart.FindItem(productID)
	existing := 0
	if idx >= 0 {
		existing = cart.Items[idx].Quantity
	}
	if existing+quantity > product.Quantity {
		remaining := product.Quantity - existing
		if remaining < 0 {
			remaining = 0
		}
		return nil, pkgerrors.Newf(pkgerrors.CodeBusinessRule, "only %d more available", remaining)
	}

	if idx >= 0 {
		cart.Items[idx].Quantity += quantity
	} else {
		cart.Items = append(cart.Items, models.CartItem{
			ID:          uuid.New(),
			CartID:      cart.ID,
			ProductID:   product.ID,
			Quantity:    quantity,
			PriceAtTime: product.Price,
			AddedAt:     s.now(),
			Product:     product,
		})
	}
	if err := s.persist(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// UpdateItem sets a line's quantity; zero or less removes the line.
func (s *service) UpdateItem(ctx context.Context, userID, productID uuid.UUID, quantity int) (*models.Cart, error) {
	if quantity <= 0 {
		return s.RemoveItem(ctx, userID, productID)
	}
	if quantity > maxLineQuantity {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity must be at most %d", maxLineQuantity)
	}
	cart, err := s.mutableCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := cart.FindItem(productID)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found in cart")
	}
	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if err := availability(product, s.now()); err != nil {
		return nil, err
	}
	if quantity > product.Quantity {
		return nil, pkgerrors.Newf(pkgerrors.CodeBusinessRule, "only %d available", product.Quantity)
	}

	cart.Items[idx].Quantity = quantity
	if err := s.persist(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*models.Cart, error) {
	cart, err := s.mutableCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := cart.FindItem(productID)
	if idx < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found in cart")
	}
	cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
	if err := s.persist(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.mutableCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	cart.Items = nil
	if err := s.persist(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// Submit moves the active cart to pending after revalidating every line.
func (s *service) Submit(ctx context.Context, userID uuid.UUID, notes string) (*models.Cart, error) {
	cart, err := s.mutableCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeBusinessRule, "cannot submit an empty cart")
	}
	if err := s.revalidate(cart); err != nil {
		return nil, err
	}

	now := s.now()
	cart.SubmittedAt = &now
	cart.UserNotes = strings.TrimSpace(notes)
	if err := s.transition(ctx, cart, enums.CartStatusPending, nil); err != nil {
		return nil, err
	}
	return cart, nil
}

// Cancel is owner-only and allowed from every state except approved and cancelled.
func (s *service) Cancel(ctx context.Context, userID, cartID uuid.UUID) (*models.Cart, error) {
	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if cart.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "you can only cancel your own cart")
	}
	now := s.now()
	cart.CancelledAt = &now
	if err := s.transition(ctx, cart, enums.CartStatusCancelled, nil); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *service) Approve(ctx context.Context, actor auth.Actor, cartID uuid.UUID, notes string) (*models.Cart, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(cart, enums.CartStatusPending); err != nil {
		return nil, err
	}
	if err := s.revalidate(cart); err != nil {
		return nil, err
	}

	now := s.now()
	cart.ApprovedBy = &actor.UserID
	cart.ApprovedAt = &now
	cart.AdminNotes = strings.TrimSpace(notes)

	var decrement func(r *Repository) error
	if s.opts.DecrementStockOnApproval {
		decrement = func(r *Repository) error {
			for _, item := range cart.Items {
				ok, err := r.DecrementStock(ctx, item.ProductID, item.Quantity)
				if err != nil {
					return err
				}
				if !ok {
					return pkgerrors.Newf(pkgerrors.CodeBusinessRule, "insufficient stock for %s", productName(item))
				}
			}
			return nil
		}
	}
	if err := s.transition(ctx, cart, enums.CartStatusApproved, decrement); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *service) Reject(ctx context.Context, actor auth.Actor, cartID uuid.UUID, notes string) (*models.Cart, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(cart, enums.CartStatusPending); err != nil {
		return nil, err
	}
	now := s.now()
	cart.RejectedBy = &actor.UserID
	cart.RejectedAt = &now
	cart.AdminNotes = strings.TrimSpace(notes)
	if err := s.transition(ctx, cart, enums.CartStatusRejected, nil); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, filter HistoryFilter) (*pagination.Page[models.Cart], error) {
	return s.AdminList(ctx, AdminFilter{Status: filter.Status, UserID: &userID, Page: filter.Page})
}

func (s *service) AdminList(ctx context.Context, filter AdminFilter) (*pagination.Page[models.Cart], error) {
	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list carts")
	}
	return &pagination.Page[models.Cart]{Items: rows, Meta: pagination.NewMeta(filter.Page, total)}, nil
}

func (s *service) AdminGet(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	return s.loadCart(ctx, cartID)
}

func (s *service) Stats(ctx context.Context) ([]StatusStat, error) {
	rows, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart stats")
	}
	return rows, nil
}

// activeCart loads the user's active cart or creates an empty one.
func (s *service) activeCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user id is required")
	}
	cart, err := s.repo.FindActiveByUser(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !db.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	cart = &models.Cart{
		ID:          uuid.New(),
		UserID:      userID,
		Status:      enums.CartStatusActive,
		TotalAmount: decimal.Zero,
	}
	if err := s.repo.Create(ctx, cart); err != nil {
		if db.IsUniqueViolation(err, "") {
			// another request created it first
			existing, findErr := s.repo.FindActiveByUser(ctx, userID)
			if findErr == nil {
				return existing, nil
			}
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return cart, nil
}

func (s *service) mutableCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.activeCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := requireStatus(cart, enums.CartStatusActive); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *service) loadCart(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

func (s *service) loadProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

// persist recomputes totals and rewrites the cart with its lines in one transaction.
func (s *service) persist(ctx context.Context, cart *models.Cart) error {
	cart.Recalculate()
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)
		if err := r.ReplaceItems(ctx, cart.ID, cart.Items); err != nil {
			return err
		}
		return r.Save(ctx, cart)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return nil
}

func (s *service) transition(ctx context.Context, cart *models.Cart, next enums.CartStatus, extra func(r *Repository) error) error {
	if !cart.Status.CanTransitionTo(next) {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cart cannot move from %s to %s", cart.Status, next)
	}
	previous := cart.Status
	cart.Status = next
	cart.Recalculate()
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		r := s.repo.WithTx(tx)
		if extra != nil {
			if err := extra(r); err != nil {
				return err
			}
		}
		return r.Save(ctx, cart)
	})
	if err != nil {
		cart.Status = previous
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart status")
	}
	if s.metrics != nil {
		s.metrics.IncTransition(string(next))
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"cart_id": cart.ID.String(),
		"from":    string(previous),
		"to":      string(next),
	}), "cart.status_changed")
	return nil
}

// revalidate checks every line against current availability and stock.
func (s *service) revalidate(cart *models.Cart) error {
	now := s.now()
	var problems []Problem
	for _, item := range cart.Items {
		product := item.Product
		switch {
		case product == nil:
			problems = append(problems, Problem{ProductID: item.ProductID, Reason: "product no longer exists"})
		case unavailableReason(product, now) != "":
			problems = append(problems, Problem{ProductID: item.ProductID, Name: product.Name, Reason: unavailableReason(product, now)})
		case item.Quantity > product.Quantity:
			problems = append(problems, Problem{ProductID: item.ProductID, Name: product.Name, Reason: fmt.Sprintf("only %d available", product.Quantity)})
		}
	}
	if len(problems) == 0 {
		return nil
	}
	msg := "some items are unavailable or out of stock"
	if len(problems) == 1 {
		msg = fmt.Sprintf("%s: %s", problemLabel(problems[0]), problems[0].Reason)
	}
	return pkgerrors.New(pkgerrors.CodeBusinessRule, msg).WithDetails(problems)
}

func unavailableReason(product *models.Product, now time.Time) string {
	switch {
	case !product.IsActive:
		return "product is not available"
	case product.IsExpired(now):
		return "product has expired"
	case product.Quantity <= 0:
		return "product is out of stock"
	}
	return ""
}

func availability(product *models.Product, now time.Time) error {
	if reason := unavailableReason(product, now); reason != "" {
		return pkgerrors.New(pkgerrors.CodeBusinessRule, reason)
	}
	return nil
}

func requireStatus(cart *models.Cart, want enums.CartStatus) error {
	if cart.Status != want {
		return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cart is %s, expected %s", cart.Status, want)
	}
	return nil
}

func problemLabel(p Problem) string {
	if p.Name != "" {
		return p.Name
	}
	return p.ProductID.String()
}

func productName(item models.CartItem) string {
	if item.Product != nil {
		return item.Product.Name
	}
	return item.ProductID.String()
}
