// Package kv adapts the Redis client to the narrow key-value surface the
// sppgcore services depend on: expiring string values, bounded lists, sets,
// and pattern scans.
//
// The adapter normalizes errors into two sentinels, [ErrNotFound] and
// [ErrUnavailable], so the service layer can implement its degrade-and-log
// policy without importing the client package.
package kv
