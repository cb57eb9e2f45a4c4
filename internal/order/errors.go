package order

import "errors"

var (
	// Validation
	ErrEmptyOrderList  = errors.New("order list is empty")
	ErrInvalidQuantity = errors.New("quantity must be at least 1")

	// Not found
	ErrItemNotFound  = errors.New("item not found")
	ErrOrderNotFound = errors.New("order not found")

	// Authorization
	ErrNotOrderSeller      = errors.New("caller is not the seller of this order")
	ErrNotOrderParticipant = errors.New("caller is not a party to this order")

	// State / verification
	ErrOrderCompleted    = errors.New("order is already completed")
	ErrInvalidOTP        = errors.New("invalid otp")
	ErrTooManyAttempts   = errors.New("too many failed otp attempts, try again later")
	ErrInsufficientStock = errors.New("insufficient stock for one or more items")
)
