package model

import "errors"

// Error kinds shared by the stores, the API and the client. Stores wrap them
// with detail; callers match with errors.Is. Anything else is a storage failure.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrDuplicateUsername  = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("catalog changed since it was read")
	ErrInsufficientStock  = errors.New("insufficient stock")
)
