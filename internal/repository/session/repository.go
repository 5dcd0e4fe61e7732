package session

import (
	"context"

	"storefront/internal/domain"
)

// Repository stores opaque bearer sessions.
type Repository interface {
	// Create returns domain.ErrAlreadyExists on a token collision.
	Create(ctx context.Context, s domain.Session) error
	Get(ctx context.Context, token string) (*domain.Session, error)
	Delete(ctx context.Context, token string) error
}
