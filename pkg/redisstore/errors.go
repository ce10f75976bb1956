package redisstore

import "errors"

var (
	// ErrFailedToParseRedisConnString indicates an invalid Redis connection URL.
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")

	// ErrRedisNotReady indicates that the Redis server did not become reachable
	// within the configured retry budget.
	ErrRedisNotReady = errors.New("redis not ready")

	// ErrNilClient indicates that the store was constructed without a client.
	ErrNilClient = errors.New("nil redis client")

	// ErrConcurrentUpdate indicates that an optimistic merge update kept losing
	// the WATCH race and ran out of retries.
	ErrConcurrentUpdate = errors.New("concurrent update conflict")
)
