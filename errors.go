package sppgcore

import "errors"

var (
	// ErrRedisRequired is returned by Build when no Redis client was supplied.
	ErrRedisRequired = errors.New("redis client is required")
	// ErrAlreadyBuilt is returned when Build is called twice on one builder.
	ErrAlreadyBuilt = errors.New("builder already built")
)
