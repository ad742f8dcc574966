package domain

import "errors"

// -----------------------------------------------------------------------------
// Domain Errors
// These errors represent domain-level failures and are used by the registry,
// the resolver and the dispatch engine to communicate error conditions.
// -----------------------------------------------------------------------------

// Registry errors
var (
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
	ErrRemoveProtectedEntity = errors.New("protected entity cannot be modified")
)

// Configuration errors
var (
	ErrValidation      = errors.New("validation error")
	ErrUnknownProvider = errors.New("unknown provider")
)

// Dispatch errors
var (
	ErrMissingAPIKey      = errors.New("missing api key")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRequestFailed      = errors.New("request failed")
	ErrNetwork            = errors.New("network error")
)

// Storage errors
var (
	ErrPersistence = errors.New("persistence error")
)
