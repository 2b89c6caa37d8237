package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity was not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a unique constraint was violated.
	ErrAlreadyExists = errors.New("already exists")
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrOutOfStock indicates the product cannot cover the requested quantity.
	ErrOutOfStock = errors.New("not enough stock")
	// ErrAlreadyPaid is returned when an order is settled a second time.
	ErrAlreadyPaid = errors.New("order is already paid")
	// ErrPaymentVerification indicates the gateway capture did not match the order.
	ErrPaymentVerification = errors.New("payment verification failed")
	// ErrNotPaid is returned when delivering an order that has not been paid.
	ErrNotPaid = errors.New("order is not paid")
	// ErrAlreadyDelivered is returned when delivering an order a second time.
	ErrAlreadyDelivered = errors.New("order is already delivered")
	// ErrCartChanged indicates the cart no longer matches the lines an order
	// was built from.
	ErrCartChanged = errors.New("cart changed during checkout")
	// ErrUnauthenticated indicates there is no signed-in user where one is required.
	ErrUnauthenticated = errors.New("user is not authenticated")
)
