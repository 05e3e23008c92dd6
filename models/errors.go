package models

import "errors"

// Sentinel errors for the crate ledger and the settlement engine.
// Business code wraps them with %w where extra context helps; the HTTP
// layer maps them to status codes with errors.Is.
var (
	ErrNotInitialized     = errors.New("stock account is not initialized")
	ErrAlreadyInitialized = errors.New("stock account is already initialized")
	ErrAlreadyResolved    = errors.New("conflict is already settled or closed")
	ErrInvalidQuantity    = errors.New("invalid quantity or amount")
	ErrExceedsRemaining   = errors.New("exceeds the conflict's outstanding balance")
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateOperation = errors.New("operation already applied for this idempotency key")
)
