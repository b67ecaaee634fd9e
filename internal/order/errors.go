package order

import "errors"

// Referenced entity absent. Client-visible, not retryable.
var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrProductNotFound = errors.New("product not found")
	ErrUserNotFound    = errors.New("user not found")
)

// Request is well-formed but cannot be satisfied. Client-visible, not
// retryable; the wrapped message carries the reason.
var (
	ErrNoItems            = errors.New("order must contain at least one item")
	ErrInvalidQuantity    = errors.New("item quantity must be positive")
	ErrProductUnavailable = errors.New("product is not available")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrOrderNotPending    = errors.New("order is not pending")
	ErrOrderCancelled     = errors.New("order is cancelled")
	ErrInvalidStatus      = errors.New("invalid order status")
)

// ErrInternal is what callers see for storage or transaction faults. Detail is
// logged server-side and never leaks through this error.
var ErrInternal = errors.New("internal failure")

func IsNotFound(err error) bool {
	return errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrUserNotFound)
}

func IsInvalidRequest(err error) bool {
	return errors.Is(err, ErrNoItems) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrProductUnavailable) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrOrderNotPending) ||
		errors.Is(err, ErrOrderCancelled) ||
		errors.Is(err, ErrInvalidStatus)
}

func isDomain(err error) bool {
	return IsNotFound(err) || IsInvalidRequest(err)
}
