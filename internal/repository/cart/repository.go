package cart

import (
	"context"

	"storefront/internal/domain"
)

// Repository stores per-customer carts and per-session pending items.
type Repository interface {
	// Get returns domain.ErrNotFound when the owner has never stored a cart.
	Get(ctx context.Context, owner string) (*domain.Cart, error)
	// Lock holds owner's cart until the surrounding transaction ends, so concurrent
	// writers for the same owner run one after another. It returns domain.ErrConflict
	// when the cart keeps disappearing under it.
	Lock(ctx context.Context, owner string) error
	// Save replaces the stored lines of cart.OwnerEmail, keeping line order.
	Save(ctx context.Context, cart domain.Cart) error
	Delete(ctx context.Context, owner string) error

	GetPending(ctx context.Context, sessionID string) (*domain.PendingItem, error)
	// SavePending replaces any pending item already held for sessionID.
	SavePending(ctx context.Context, sessionID string, item domain.PendingItem) error
	DeletePending(ctx context.Context, sessionID string) error
}
