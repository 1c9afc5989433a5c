package store

import "errors"

var (
	ErrInvalidUser     = errors.New("invalid user")
	ErrDuplicateEmail  = errors.New("email already registered")
	ErrUserNotFound    = errors.New("user not found")
	ErrProductNotFound = errors.New("product not found")
	ErrEmptyUpdate     = errors.New("no fields to update")
)
