package database

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// Retry runs fn and, when it fails with a transient network or timeout error
// while ctx is still live, runs it exactly once more.
func Retry(ctx context.Context, fn func(ctx context.Context) error) error {
	err := fn(ctx)
	if err == nil || !IsTransient(err) || ctx.Err() != nil {
		return err
	}
	return fn(ctx)
}

// IsTransient reports whether err is worth a single immediate retry
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, mongo.ErrNoDocuments) {
		return false
	}
	return mongo.IsNetworkError(err) || mongo.IsTimeout(err)
}
