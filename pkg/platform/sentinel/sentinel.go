package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and services translate them into domain errors.
//
//   - ErrNotFound: no such row, or a cache entry older than the freshness cutoff
//   - ErrConflict: a unique key is already taken
//   - ErrInsufficient: an atomic decrement would take a balance below zero
//
// Input validation failures belong in pkg/domain-errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInsufficient = errors.New("insufficient balance")
)
