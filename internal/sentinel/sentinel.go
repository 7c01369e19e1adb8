package sentinel

import "errors"

// Sentinel dependency errors. Stores and caches return these (optionally
// wrapped) so the gate and services translate them into domain errors once.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrExpired      = errors.New("expired")
	ErrUnavailable  = errors.New("unavailable")
)
