package exception

import "errors"

// Order lifecycle errors.
var (
	ErrValidation             = errors.New("order: validation failed")
	ErrNotFound               = errors.New("order: not found")
	ErrInvalidStateTransition = errors.New("order: invalid state transition")
	ErrIdempotencyConflict    = errors.New("order: idempotency key reused with a different request payload")
	ErrConcurrentModification = errors.New("order: updated by another request")
)

// Validation reasons. Each is wrapped in a *ValidationError.
var (
	ErrSymbolRequired    = errors.New("symbol must be provided")
	ErrUnsupportedSymbol = errors.New("unsupported symbol")
	ErrMissingSide       = errors.New("order side must be provided")
	ErrInvalidQuantity   = errors.New("order quantity must be positive")
	ErrOrderTooLarge     = errors.New("order size exceeds max")
	ErrTooPrecise        = errors.New("order amounts allow at most 6 decimal places")
	ErrMissingLimitPrice = errors.New("limit orders require a positive price")
	ErrUnexpectedPrice   = errors.New("market orders must not include a price")
)

// ValidationError is a caller-fixable request error.
type ValidationError struct {
	Reason error
	Detail string
}

// Validation builds a *ValidationError for reason with an optional detail.
func Validation(reason error, detail string) *ValidationError {
	return &ValidationError{Reason: reason, Detail: detail}
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return e.Reason.Error()
	}
	return e.Reason.Error() + ": " + e.Detail
}

// Unwrap lets errors.Is match both ErrValidation and the reason.
func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Reason}
}
