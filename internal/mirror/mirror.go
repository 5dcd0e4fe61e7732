// Package mirror copies carts and contact messages to a remote Redis instance
// so other storefront front-ends can read them. The local store stays the source of truth.
package mirror

import (
	"context"
	"errors"

	"storefront/internal/domain"
)

// ErrDisabled is returned by mirrors that have no remote.
var ErrDisabled = errors.New("remote mirror disabled")

// Mirror is the remote side of the storefront.
type Mirror interface {
	PushCart(ctx context.Context, c domain.Cart) error
	PushContact(ctx context.Context, m domain.ContactMessage) error
}

// Noop is used when no remote is configured. It accepts carts and refuses contact messages
// so the contact form falls back to mail.
type Noop struct{}

var _ Mirror = Noop{}

func (Noop) PushCart(context.Context, domain.Cart) error { return nil }

func (Noop) PushContact(context.Context, domain.ContactMessage) error { return ErrDisabled }
