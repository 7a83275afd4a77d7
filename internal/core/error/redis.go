package errx

import (
	"errors"

	"github.com/redis/go-redis/v9"
)

// WrapRedis maps Redis errors to the unified error type.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, redis.Nil) {
		return New(Storage, err, RedisNotFoundMessage)
	}

	return New(Storage, err, RedisErrorMessage)
}

// WrapStore maps SQLite errors to the unified error type.
func WrapStore(err error) error {
	if err == nil {
		return nil
	}
	return New(Storage, err, StoreErrorMessage)
}
