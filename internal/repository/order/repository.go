package order

import (
	"context"

	"storefront/internal/domain"
)

// Repository is the append-only order log.
type Repository interface {
	// Append returns domain.ErrAlreadyExists when the order id is taken.
	Append(ctx context.Context, o domain.Order) error
	// ListByUser returns the user's orders, oldest first.
	ListByUser(ctx context.Context, email string) ([]domain.Order, error)
}
