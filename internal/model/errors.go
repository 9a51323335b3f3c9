package model

import "errors"

// ErrNotFound is returned when a card identifier is not present in the store.
// Use errors.Is to check.
var ErrNotFound = errors.New("card not found")
