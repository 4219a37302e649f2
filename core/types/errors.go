package types

import "errors"

var (
	ErrUnknownKind      = errors.New("types: unknown transaction kind")
	ErrEmptyTransaction = errors.New("types: empty transaction")
	ErrNonFinite        = errors.New("types: non-finite number in transaction")
	ErrNegativeTime     = errors.New("types: negative block timestamp")
)
