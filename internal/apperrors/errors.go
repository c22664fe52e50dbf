package apperrors

import (
	"errors"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrItemNotFound = errors.New("item not found")

	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrPurchaseDuplicate = errors.New("purchase already settled for this idempotency key")
	ErrPurchaseNotFound  = errors.New("purchase not found")
	ErrCreditInvalid     = errors.New("credit amount must be positive")

	ErrAttemptInFlight = errors.New("another purchase attempt is in flight")
	ErrTransient       = errors.New("transient error")
)
