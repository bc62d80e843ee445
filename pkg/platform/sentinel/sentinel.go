package sentinel

import "errors"

// Sentinel errors for storage facts. Ledger backends and registries return these
// (optionally wrapped) and services translate them into coded domain errors.
//
//   - ErrNotFound: key is absent
//   - ErrAlreadyUsed: a write-once key already holds a value
//   - ErrConflict: a concurrent transaction touched the same keys first
//   - ErrInvalidState: stored value cannot be decoded into the expected shape
//   - ErrUnavailable: backend unreachable or closed
var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyUsed  = errors.New("already used")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
