package repository

import "errors"

// ErrNotFound is returned when a record does not exist. Both the Postgres
// and in-memory implementations normalize lookup misses to this sentinel.
var ErrNotFound = errors.New("record not found")
