package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"storefront/internal/domain"
	"storefront/internal/repository/session"
	"storefront/internal/service/customer"
)

const tokenAttempts = 3

// Accounts registers and authenticates customers.
type Accounts interface {
	Register(ctx context.Context, in customer.RegisterInput) (*domain.Customer, error)
	Authenticate(ctx context.Context, email, password string) (*domain.Customer, error)
}

// PendingConsumer moves a guest's pending item into a customer cart.
type PendingConsumer interface {
	ConsumePending(ctx context.Context, sessionID, owner string) (*domain.PendingItem, error)
}

// Principal is whoever a bearer token belongs to. Exactly one of Email and AnonymousID is set.
type Principal struct {
	Token       string
	Email       string
	AnonymousID string
	ExpiresAt   time.Time
}

// Guest reports whether the principal is an anonymous session.
func (p Principal) Guest() bool { return p.Email == "" }

// SignedIn is the outcome of SignUp and SignIn.
type SignedIn struct {
	Customer  *domain.Customer
	Token     string
	ExpiresAt time.Time
	// Replayed is the pending item moved into the cart, if the guest session held one.
	Replayed *domain.PendingItem
}

// Service issues and resolves opaque bearer sessions.
type Service struct {
	sessions session.Repository
	accounts Accounts
	pending  PendingConsumer
	ttl      time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

func New(sessions session.Repository, accounts Accounts, pending PendingConsumer, ttl time.Duration, logger zerolog.Logger) *Service {
	return &Service{
		sessions: sessions,
		accounts: accounts,
		pending:  pending,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
	}
}

// Guest opens an anonymous session.
func (s *Service) Guest(ctx context.Context) (Principal, error) {
	anonID := uuid.NewString()
	sess, err := s.issue(ctx, domain.Session{Kind: domain.SessionAnonymous, AnonymousID: &anonID})
	if err != nil {
		return Principal{}, err
	}
	return principal(sess), nil
}

// SignUp registers a customer and signs them in. guestToken may be empty.
func (s *Service) SignUp(ctx context.Context, guestToken string, in customer.RegisterInput) (*SignedIn, error) {
	c, err := s.accounts.Register(ctx, in)
	if err != nil {
		return nil, err
	}
	return s.signIn(ctx, guestToken, c)
}

// SignIn authenticates a customer. guestToken may be empty.
func (s *Service) SignIn(ctx context.Context, guestToken, email, password string) (*SignedIn, error) {
	c, err := s.accounts.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.signIn(ctx, guestToken, c)
}

// Lookup resolves a bearer token. Unknown and expired tokens yield domain.ErrNotAuthenticated.
func (s *Service) Lookup(ctx context.Context, token string) (Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Principal{}, domain.ErrNotAuthenticated
	}
	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Principal{}, domain.ErrNotAuthenticated
		}
		return Principal{}, err
	}
	if sess.Expired(s.now()) {
		if err := s.sessions.Delete(ctx, token); err != nil && !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn().Err(err).Msg("expired session cleanup failed")
		}
		return Principal{}, domain.ErrNotAuthenticated
	}
	return principal(*sess), nil
}

// SignOut ends the session. Signing out an unknown token is not an error.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if err := s.sessions.Delete(ctx, token); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

func (s *Service) signIn(ctx context.Context, guestToken string, c *domain.Customer) (*SignedIn, error) {
	email := c.Email
	sess, err := s.issue(ctx, domain.Session{Kind: domain.SessionCustomer, CustomerEmail: &email})
	if err != nil {
		return nil, err
	}
	out := &SignedIn{Customer: c, Token: sess.Token, ExpiresAt: sess.ExpiresAt}

	guest, err := s.Lookup(ctx, guestToken)
	if err != nil || !guest.Guest() {
		return out, nil
	}
	item, err := s.pending.ConsumePending(ctx, guest.AnonymousID, email)
	if err != nil {
		s.logger.Warn().Err(err).Str("email", email).Msg("pending item replay failed")
		return out, nil
	}
	out.Replayed = item
	if err := s.SignOut(ctx, guest.Token); err != nil {
		s.logger.Warn().Err(err).Msg("guest session cleanup failed")
	}
	return out, nil
}

func (s *Service) issue(ctx context.Context, sess domain.Session) (domain.Session, error) {
	now := s.now()
	sess.CreatedAt = now
	sess.ExpiresAt = now.Add(s.ttl)
	for range tokenAttempts {
		token, err := randomToken()
		if err != nil {
			return domain.Session{}, fmt.Errorf("generate token: %w", err)
		}
		sess.Token = token
		err = s.sessions.Create(ctx, sess)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return domain.Session{}, err
		}
	}
	return domain.Session{}, fmt.Errorf("issue session: %w", domain.ErrConflict)
}

func principal(s domain.Session) Principal {
	p := Principal{Token: s.Token, ExpiresAt: s.ExpiresAt}
	if s.CustomerEmail != nil {
		p.Email = *s.CustomerEmail
	}
	if s.AnonymousID != nil {
		p.AnonymousID = *s.AnonymousID
	}
	return p
}
