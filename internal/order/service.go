package order

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/order-fulfillment/internal/db"
	"github.com/vasiliy-maslov/order-fulfillment/internal/product"
	"github.com/vasiliy-maslov/order-fulfillment/internal/user"
)

// UserDirectory resolves order owners. It is a read dependency only: the
// engine never trusts it for concurrency-sensitive decisions.
type UserDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type Service interface {
	CreateOrder(ctx context.Context, userID uuid.UUID, lines []LineInput) (*Order, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID) (*Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status OrderStatus) (*Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetOrderStatus(ctx context.Context, id uuid.UUID) (OrderStatus, error)
	ListOrders(ctx context.Context) ([]Order, error)
	GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error)
}

type service struct {
	txm      db.TxManager
	orders   Repository
	products product.Repository
	users    UserDirectory
	events   EventPublisher // optional
	cache    StatusCache    // optional
}

func NewService(txm db.TxManager, orders Repository, products product.Repository, users UserDirectory, events EventPublisher, cache StatusCache) Service {
	return &service{
		txm:      txm,
		orders:   orders,
		products: products,
		users:    users,
		events:   events,
		cache:    cache,
	}
}

// fail classifies an error at the engine boundary: domain errors pass through
// unchanged, anything else is logged in full and reported as an opaque
// internal failure.
func (s *service) fail(err error, op string, orderID uuid.UUID) error {
	if isDomain(err) {
		return err
	}
	log.Error().Err(err).Str("op", op).Stringer("order_id", orderID).Msg("service: internal failure")
	return ErrInternal
}

func (s *service) CreateOrder(ctx context.Context, userID uuid.UUID, lines []LineInput) (*Order, error) {
	if len(lines) == 0 {
		return nil, ErrNoItems
	}
	for _, ln := range lines {
		if ln.Quantity <= 0 {
			return nil, fmt.Errorf("%w: product %s requested with quantity %d", ErrInvalidQuantity, ln.ProductID, ln.Quantity)
		}
	}

	// Owner check runs before any locking so an unknown user aborts cheaply.
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s", ErrUserNotFound, userID)
		}
		return nil, s.fail(err, "create", uuid.Nil)
	}

	orderID, err := uuid.NewV4()
	if err != nil {
		return nil, s.fail(fmt.Errorf("failed to generate order ID: %w", err), "create", uuid.Nil)
	}

	tx, err := s.txm.Begin(ctx)
	if err != nil {
		return nil, s.fail(err, "create", orderID)
	}
	defer tx.Rollback(ctx)

	if err := s.reserve(ctx, tx, orderID, userID, lines); err != nil {
		return nil, s.fail(err, "create", orderID)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, s.fail(err, "create", orderID)
	}

	created, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, s.fail(err, "create", orderID)
	}

	s.notify(ctx, EventOrderCreated, created)
	log.Info().Stringer("order_id", created.ID).Stringer("user_id", userID).
		Float64("total", created.TotalAmount).Msg("service: order created")

	return created, nil
}

// reserve runs the all-or-nothing part of order creation inside tx: header
// insert, product locking, per-line validation, stock decrement, item rows,
// total.
func (s *service) reserve(ctx context.Context, tx db.Tx, orderID, userID uuid.UUID, lines []LineInput) error {
	header := &Order{ID: orderID, UserID: userID, Status: StatusPending, TotalAmount: 0}
	if err := s.orders.Insert(ctx, tx, header); err != nil {
		return err
	}

	// Each distinct product is locked and read exactly once, in ascending id
	// order. The fixed order means two concurrent orders over overlapping
	// product sets can never deadlock; the dedup means a product repeated
	// within one request is validated against its already-decremented value.
	distinct := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, ln := range lines {
		if _, ok := seen[ln.ProductID]; !ok {
			seen[ln.ProductID] = struct{}{}
			distinct = append(distinct, ln.ProductID)
		}
	}
	sort.Slice(distinct, func(i, j int) bool {
		return bytes.Compare(distinct[i].Bytes(), distinct[j].Bytes()) < 0
	})

	locked := make(map[uuid.UUID]*product.Product, len(distinct))
	for _, pid := range distinct {
		p, err := s.products.GetByIDForUpdate(ctx, tx, pid)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				return fmt.Errorf("%w: product %s", ErrProductNotFound, pid)
			}
			return err
		}
		locked[pid] = p
	}

	total := 0.0
	items := make([]OrderItem, 0, len(lines))
	for _, ln := range lines {
		p := locked[ln.ProductID]
		if !p.IsAvailable {
			return fmt.Errorf("%w: product %s", ErrProductUnavailable, p.ID)
		}
		if p.Stock < ln.Quantity {
			return fmt.Errorf("%w: product %s has %d in stock, %d requested",
				ErrInsufficientStock, p.ID, p.Stock, ln.Quantity)
		}

		itemID, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("failed to generate order item ID: %w", err)
		}
		items = append(items, OrderItem{
			ID:           itemID,
			OrderID:      orderID,
			ProductID:    p.ID,
			Quantity:     ln.Quantity,
			PricePerUnit: p.Price,
		})

		p.Stock -= ln.Quantity
		p.IsAvailable = p.Stock > 0
		total += p.Price * float64(ln.Quantity)
	}

	if err := s.orders.InsertItems(ctx, tx, items); err != nil {
		return err
	}
	for _, pid := range distinct {
		if err := s.products.UpdateStock(ctx, tx, pid, locked[pid].Stock); err != nil {
			return err
		}
	}

	return s.orders.SetTotal(ctx, tx, orderID, total)
}

func (s *service) CancelOrder(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	tx, err := s.txm.Begin(ctx)
	if err != nil {
		return nil, s.fail(err, "cancel", orderID)
	}
	defer tx.Rollback(ctx)

	// The order row is locked before its products: concurrent cancels of the
	// same order serialize here, so stock is never restored twice.
	o, err := s.orders.GetByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, s.fail(err, "cancel", orderID)
	}
	if o.Status != StatusPending {
		return nil, fmt.Errorf("%w: order %s is %s", ErrOrderNotPending, o.ID, o.Status)
	}

	items := make([]OrderItem, len(o.OrderItems))
	copy(items, o.OrderItems)
	sort.Slice(items, func(i, j int) bool {
		return bytes.Compare(items[i].ProductID.Bytes(), items[j].ProductID.Bytes()) < 0
	})

	for _, item := range items {
		p, err := s.products.GetByIDForUpdate(ctx, tx, item.ProductID)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				// Row removed out of band. Recorded, not fatal: the rest of
				// the order still cancels.
				log.Warn().Stringer("order_id", o.ID).Stringer("product_id", item.ProductID).
					Msg("service: product missing during restock, skipping")
				continue
			}
			return nil, s.fail(err, "cancel", orderID)
		}
		if err := s.products.UpdateStock(ctx, tx, p.ID, p.Stock+item.Quantity); err != nil {
			return nil, s.fail(err, "cancel", orderID)
		}
	}

	if err := s.orders.UpdateStatus(ctx, tx, o.ID, StatusCancelled); err != nil {
		return nil, s.fail(err, "cancel", orderID)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, s.fail(err, "cancel", orderID)
	}

	cancelled, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, s.fail(err, "cancel", orderID)
	}

	s.notify(ctx, EventOrderCancelled, cancelled)
	log.Info().Stringer("order_id", cancelled.ID).Msg("service: order cancelled, stock restored")

	return cancelled, nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status OrderStatus) (*Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if status == StatusCancelled {
		// Cancellation is the only transition with inventory side effects.
		return s.CancelOrder(ctx, orderID)
	}

	tx, err := s.txm.Begin(ctx)
	if err != nil {
		return nil, s.fail(err, "update_status", orderID)
	}
	defer tx.Rollback(ctx)

	o, err := s.orders.GetByIDForUpdate(ctx, tx, orderID)
	if err != nil {
		return nil, s.fail(err, "update_status", orderID)
	}
	if o.Status == StatusCancelled {
		return nil, fmt.Errorf("%w: order %s", ErrOrderCancelled, o.ID)
	}
	if o.Status == status {
		// No-op, but still answer with the read projection so items carry
		// their resolved product references like every other success path.
		same, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			return nil, s.fail(err, "update_status", orderID)
		}
		return same, nil
	}

	if err := s.orders.UpdateStatus(ctx, tx, o.ID, status); err != nil {
		return nil, s.fail(err, "update_status", orderID)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, s.fail(err, "update_status", orderID)
	}

	updated, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, s.fail(err, "update_status", orderID)
	}

	s.notify(ctx, EventOrderStatusChanged, updated)
	log.Info().Stringer("order_id", updated.ID).Stringer("old_status", o.Status).
		Stringer("new_status", updated.Status).Msg("service: order status updated")

	return updated, nil
}

func (s *service) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, s.fail(err, "get", id)
	}
	return o, nil
}

func (s *service) GetOrderStatus(ctx context.Context, id uuid.UUID) (OrderStatus, error) {
	if s.cache != nil {
		status, ok, err := s.cache.GetStatus(ctx, id)
		if err != nil {
			log.Warn().Err(err).Stringer("order_id", id).Msg("service: status cache read failed")
		} else if ok {
			return status, nil
		}
	}

	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return "", s.fail(err, "get_status", id)
	}
	if s.cache != nil {
		if err := s.cache.SetStatus(ctx, id, o.Status); err != nil {
			log.Warn().Err(err).Stringer("order_id", id).Msg("service: status cache fill failed")
		}
	}

	return o.Status, nil
}

func (s *service) ListOrders(ctx context.Context) ([]Order, error) {
	orders, err := s.orders.List(ctx)
	if err != nil {
		return nil, s.fail(err, "list", uuid.Nil)
	}
	return orders, nil
}

func (s *service) GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	orders, err := s.orders.GetByUserID(ctx, userID)
	if err != nil {
		return nil, s.fail(err, "list_by_user", uuid.Nil)
	}
	return orders, nil
}

// notify updates the status cache and publishes a lifecycle event. Both are
// post-commit side channels; failures are logged and swallowed.
func (s *service) notify(ctx context.Context, eventType string, o *Order) {
	if s.cache != nil {
		if err := s.cache.SetStatus(ctx, o.ID, o.Status); err != nil {
			log.Warn().Err(err).Stringer("order_id", o.ID).Msg("service: failed to update status cache")
		}
	}

	if s.events == nil {
		return
	}
	eventID, err := uuid.NewV4()
	if err != nil {
		return
	}
	s.events.Publish(ctx, Event{
		EventID:    eventID.String(),
		EventType:  eventType,
		OccurredAt: time.Now().UTC(),
		OrderID:    o.ID,
		UserID:     o.UserID,
		Status:     o.Status,
		Total:      o.TotalAmount,
	})
}
