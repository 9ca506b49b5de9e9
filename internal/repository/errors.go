package repository

import "errors"

// ErrNotFound is returned when an id or filter resolves to no record.
// Backends translate their own sentinels (e.g. pgx.ErrNoRows) to this.
var ErrNotFound = errors.New("record not found")
