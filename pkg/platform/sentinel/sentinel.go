package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Caches and transport layers return
// these (optionally wrapped) so the client can translate them into domain errors
// or fall back to another source.
//
//   - ErrNotFound: no entry is stored under the key
//   - ErrExpired: an entry exists but is older than its TTL
//   - ErrUnavailable: the backing store could not be reached
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrExpired     = errors.New("expired")
	ErrUnavailable = errors.New("unavailable")
)
