package repository

import (
	"context"
	"errors"

	"storefront/internal/domain"
)

// ConflictAttempts is how many times a write is tried before a version conflict is returned to the caller.
const ConflictAttempts = 3

// Retry runs fn again while it fails with domain.ErrConflict, at most attempts times in total.
func Retry(ctx context.Context, attempts int, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); !errors.Is(err, domain.ErrConflict) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return err
}
