package product

import (
	"time"

	"github.com/gofrs/uuid"
)

// Product is an inventory row. IsAvailable is a cached derivation of
// Stock > 0 and is recomputed on every stock mutation, never set on its own.
type Product struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Price       float64   `json:"price" db:"price"`
	Stock       int       `json:"stock" db:"stock"`
	IsAvailable bool      `json:"is_available" db:"is_available"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}
