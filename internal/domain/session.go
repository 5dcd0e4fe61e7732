package domain

import "time"

// Session kinds.
const (
	SessionCustomer  = "customer"
	SessionAnonymous = "anonymous"
)

// Session binds an opaque bearer token to either a customer or a guest.
type Session struct {
	Token         string
	Kind          string
	CustomerEmail *string
	AnonymousID   *string
	ExpiresAt     time.Time
	CreatedAt     time.Time
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
