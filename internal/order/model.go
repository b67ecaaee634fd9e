package order

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/order-fulfillment/internal/product"
)

type OrderStatus string

const (
	// StatusPending is assigned on creation, once stock has been reserved.
	StatusPending    OrderStatus = "PENDING"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusPaid       OrderStatus = "PAID"
	StatusShipped    OrderStatus = "SHIPPED"
	StatusDelivered  OrderStatus = "DELIVERED"
	// StatusCancelled is terminal; reserved stock has been restored.
	StatusCancelled OrderStatus = "CANCELLED"
)

func (os OrderStatus) String() string {
	return string(os)
}

func (os OrderStatus) Valid() bool {
	switch os {
	case StatusPending, StatusProcessing, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// OrderItem is immutable once created. PricePerUnit snapshots the product
// price at order-creation time, so later price changes never alter the
// historical order value.
type OrderItem struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	OrderID      uuid.UUID        `json:"order_id" db:"order_id"`
	ProductID    uuid.UUID        `json:"product_id" db:"product_id"`
	Quantity     int              `json:"quantity" db:"quantity"`
	PricePerUnit float64          `json:"price_per_unit" db:"price_per_unit"`
	Product      *product.Product `json:"product,omitempty" db:"-"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
}

type Order struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	UserID      uuid.UUID   `json:"user_id" db:"user_id"`
	Status      OrderStatus `json:"status" db:"status"`
	OrderItems  []OrderItem `json:"order_items" db:"-"`
	TotalAmount float64     `json:"total_amount" db:"total_amount"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// LineInput is one requested order line as handed over by the transport layer.
type LineInput struct {
	ProductID uuid.UUID
	Quantity  int
}
