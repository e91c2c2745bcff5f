package repository

import "errors"

var (
	// ErrNotFound is returned when a requested booking does not exist.
	ErrNotFound = errors.New("booking not found")
)
