package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasiliy-maslov/order-fulfillment/internal/db"
	"github.com/vasiliy-maslov/order-fulfillment/internal/product"
)

// Repository is the order store. Mutations take an explicit transaction; the
// engine owns begin/commit/rollback. Reads run outside any transaction with
// read-committed visibility.
type Repository interface {
	Insert(ctx context.Context, tx db.Tx, o *Order) error
	InsertItems(ctx context.Context, tx db.Tx, items []OrderItem) error
	SetTotal(ctx context.Context, tx db.Tx, id uuid.UUID, total float64) error
	UpdateStatus(ctx context.Context, tx db.Tx, id uuid.UUID, status OrderStatus) error
	// GetByIDForUpdate reads the order header under an exclusive lock, together
	// with its items. Serializes concurrent cancel/status updates on one order.
	GetByIDForUpdate(ctx context.Context, tx db.Tx, id uuid.UUID) (*Order, error)

	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	List(ctx context.Context) ([]Order, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func pgxFrom(tx db.Tx) pgx.Tx {
	return tx.(*db.PgxTx).Conn()
}

func (r *postgresRepository) Insert(ctx context.Context, tx db.Tx, o *Order) error {
	now := time.Now().UTC()
	o.CreatedAt = now
	o.UpdatedAt = now

	query := `
		INSERT INTO orders (id, user_id, status, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := pgxFrom(tx).Exec(ctx, query,
		o.ID, o.UserID, string(o.Status), o.TotalAmount, o.CreatedAt, o.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return ErrUserNotFound
		}
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	return nil
}

func (r *postgresRepository) InsertItems(ctx context.Context, tx db.Tx, items []OrderItem) error {
	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity, price_per_unit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for i := range items {
		item := &items[i]
		now := time.Now().UTC()
		item.CreatedAt = now
		item.UpdatedAt = now

		_, err := pgxFrom(tx).Exec(ctx, query,
			item.ID, item.OrderID, item.ProductID, item.Quantity, item.PricePerUnit,
			item.CreatedAt, item.UpdatedAt)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order item for order %s: %w", item.OrderID, err)
		}
	}

	return nil
}

func (r *postgresRepository) SetTotal(ctx context.Context, tx db.Tx, id uuid.UUID, total float64) error {
	query := `
		UPDATE orders
		SET total_amount = $2, updated_at = $3
		WHERE id = $1
	`

	cmdTag, err := pgxFrom(tx).Exec(ctx, query, id, total, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("repository: failed to set total for order %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, tx db.Tx, id uuid.UUID, status OrderStatus) error {
	query := `
		UPDATE orders
		SET status = $2, updated_at = $3
		WHERE id = $1
	`

	cmdTag, err := pgxFrom(tx).Exec(ctx, query, id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("repository: failed to update status for order %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func (r *postgresRepository) GetByIDForUpdate(ctx context.Context, tx db.Tx, id uuid.UUID) (*Order, error) {
	query := `
		SELECT id, user_id, status, total_amount, created_at, updated_at
		FROM orders
		WHERE id = $1
		FOR UPDATE
	`

	var o Order
	err := pgxFrom(tx).QueryRow(ctx, query, id).Scan(
		&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to lock order %s: %w", id, err)
	}

	itemsQuery := `
		SELECT id, order_id, product_id, quantity, price_per_unit, created_at, updated_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at, id
	`
	rows, err := pgxFrom(tx).Query(ctx, itemsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query items for order %s: %w", id, err)
	}
	defer rows.Close()

	o.OrderItems = make([]OrderItem, 0)
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity,
			&item.PricePerUnit, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan item for order %s: %w", id, err)
		}
		o.OrderItems = append(o.OrderItems, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating items for order %s: %w", id, err)
	}

	return &o, nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	query := `
		SELECT id, user_id, status, total_amount, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var o Order
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", id, err)
	}

	itemsByOrder, err := r.loadItems(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	o.OrderItems = itemsByOrder[id]
	if o.OrderItems == nil {
		o.OrderItems = make([]OrderItem, 0)
	}

	return &o, nil
}

func (r *postgresRepository) List(ctx context.Context) ([]Order, error) {
	query := `
		SELECT id, user_id, status, total_amount, created_at, updated_at
		FROM orders
		ORDER BY created_at DESC
	`
	return r.listOrders(ctx, query)
}

func (r *postgresRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	query := `
		SELECT id, user_id, status, total_amount, created_at, updated_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	return r.listOrders(ctx, query, userID)
}

func (r *postgresRepository) listOrders(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer rows.Close()

	ordersMap := make(map[uuid.UUID]*Order)
	var orderIDs []uuid.UUID

	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Status, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		o.OrderItems = make([]OrderItem, 0)
		ordersMap[o.ID] = &o
		orderIDs = append(orderIDs, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating orders: %w", err)
	}

	if len(orderIDs) == 0 {
		return []Order{}, nil
	}

	itemsByOrder, err := r.loadItems(ctx, orderIDs)
	if err != nil {
		return nil, err
	}
	for orderID, items := range itemsByOrder {
		if o, ok := ordersMap[orderID]; ok {
			o.OrderItems = items
		}
	}

	result := make([]Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		result = append(result, *ordersMap[id])
	}

	return result, nil
}

// loadItems fetches the items for a set of orders and resolves their product
// references in one extra round trip.
func (r *postgresRepository) loadItems(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]OrderItem, error) {
	itemsQuery := `
		SELECT id, order_id, product_id, quantity, price_per_unit, created_at, updated_at
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, itemsQuery, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query order items: %w", err)
	}
	defer rows.Close()

	itemsByOrder := make(map[uuid.UUID][]OrderItem)
	productIDSet := make(map[uuid.UUID]struct{})

	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity,
			&item.PricePerUnit, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		itemsByOrder[item.OrderID] = append(itemsByOrder[item.OrderID], item)
		productIDSet[item.ProductID] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating order items: %w", err)
	}

	if len(productIDSet) == 0 {
		return itemsByOrder, nil
	}

	productIDs := make([]uuid.UUID, 0, len(productIDSet))
	for id := range productIDSet {
		productIDs = append(productIDs, id)
	}

	productsQuery := `
		SELECT id, name, price, stock, is_available, created_at, updated_at
		FROM products
		WHERE id = ANY($1)
	`
	productRows, err := r.pool.Query(ctx, productsQuery, productIDs)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query products for items: %w", err)
	}
	defer productRows.Close()

	productsByID := make(map[uuid.UUID]*product.Product)
	for productRows.Next() {
		var p product.Product
		if err := productRows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.IsAvailable,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan product for items: %w", err)
		}
		productsByID[p.ID] = &p
	}
	if err := productRows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating products for items: %w", err)
	}

	// Product rows removed out-of-band leave item.Product nil; the price
	// snapshot on the item itself is still intact.
	for orderID, items := range itemsByOrder {
		for i := range items {
			items[i].Product = productsByID[items[i].ProductID]
		}
		itemsByOrder[orderID] = items
	}

	return itemsByOrder, nil
}
