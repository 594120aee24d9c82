package ledger

import "errors"

var (
	ErrInvalidOwnerKind  = errors.New("invalid owner kind")
	ErrMissingCurrency   = errors.New("transaction currency is required")
	ErrMissingSecurity   = errors.New("security-related transaction requires a security ID")
	ErrNonPositiveShares = errors.New("share quantity must be positive")
)
