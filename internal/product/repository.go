package product

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasiliy-maslov/order-fulfillment/internal/db"
)

var ErrNotFound = errors.New("product not found")

type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	List(ctx context.Context) ([]Product, error)
	// GetByIDForUpdate reads a product row under an exclusive lock. The lock is
	// held until the transaction commits or rolls back.
	GetByIDForUpdate(ctx context.Context, tx db.Tx, id uuid.UUID) (*Product, error)
	// UpdateStock sets the absolute stock value and recomputes is_available
	// from it. Must be called with the row already locked via GetByIDForUpdate.
	UpdateStock(ctx context.Context, tx db.Tx, id uuid.UUID, stock int) error
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

func (r *postgresRepository) Create(ctx context.Context, p *Product) error {
	if p.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate product ID: %w", err)
		}
		p.ID = id
	}

	now := time.Now().UTC()
	p.IsAvailable = p.Stock > 0
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `
		INSERT INTO products (id, name, price, stock, is_available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query, p.ID, p.Name, p.Price, p.Stock, p.IsAvailable, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to insert product: %w", err)
	}

	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	query := `
		SELECT id, name, price, stock, is_available, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var p Product
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Price, &p.Stock, &p.IsAvailable, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product by id %s: %w", id, err)
	}

	return &p, nil
}

func (r *postgresRepository) List(ctx context.Context) ([]Product, error) {
	query := `
		SELECT id, name, price, stock, is_available, created_at, updated_at
		FROM products
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock, &p.IsAvailable, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating products: %w", err)
	}

	return products, nil
}

func (r *postgresRepository) GetByIDForUpdate(ctx context.Context, tx db.Tx, id uuid.UUID) (*Product, error) {
	query := `
		SELECT id, name, price, stock, is_available, created_at, updated_at
		FROM products
		WHERE id = $1
		FOR UPDATE
	`

	var p Product
	err := pgxFrom(tx).QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.Price, &p.Stock, &p.IsAvailable, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to lock product %s: %w", id, err)
	}

	return &p, nil
}

func (r *postgresRepository) UpdateStock(ctx context.Context, tx db.Tx, id uuid.UUID, stock int) error {
	// is_available is derived from stock in the same statement so the two can
	// never diverge at a commit point.
	query := `
		UPDATE products
		SET stock = $2, is_available = $2 > 0, updated_at = $3
		WHERE id = $1
	`

	cmdTag, err := pgxFrom(tx).Exec(ctx, query, id, stock, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("repository: failed to update stock for product %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}
