// Package schemacache stores snapshots of the service's validation schema.
//
// Schemas are only cached when the caller opts in by configuring a cache on
// the client. Misses are reported with sentinel.ErrNotFound, stale entries
// with sentinel.ErrExpired, and backend outages with sentinel.ErrUnavailable.
package schemacache
