package services

import "errors"

// Validation and authorization errors surfaced to HTTP handlers. Handlers map
// these to status codes; anything else is treated as an internal error.
var (
	ErrEmptyCart           = errors.New("cart is empty")
	ErrInvalidAddress      = errors.New("shipping address is incomplete")
	ErrUnknownProduct      = errors.New("unknown or inactive product")
	ErrPriceMismatch       = errors.New("cart prices do not match the catalog")
	ErrUnauthorized        = errors.New("authentication required")
	ErrForbidden           = errors.New("not allowed")
	ErrOrderNotCancellable = errors.New("order can no longer be cancelled")
	ErrOrderNotResumable   = errors.New("order cannot be resumed")
	ErrOrderNotReturnable  = errors.New("order is not eligible for returns")
	ErrInvalidReturnItems  = errors.New("return items are invalid")
	ErrInvalidStatus       = errors.New("invalid order status")
	ErrInvalidEmail        = errors.New("invalid email address")
)
