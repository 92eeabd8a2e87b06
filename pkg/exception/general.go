package exception

import "errors"

// General errors
var (
	ErrNilInstance = errors.New("nil instance")
	ErrInternal    = errors.New("internal error")
)
