package cachesync

import "errors"

var (
	// ErrCacheSyncDisabled is returned when publishing while cache sync commands are turned off.
	ErrCacheSyncDisabled = errors.New("cache sync commands are disabled")
	// ErrUnknownKind is returned for a command kind other than invalidate or update.
	ErrUnknownKind = errors.New("unknown cache sync command kind")
	// ErrEmptyKey is returned when a command names no cache key.
	ErrEmptyKey = errors.New("cache key must not be empty")
)
