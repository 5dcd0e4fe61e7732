package loyalty

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/repository"
	loyaltyrepo "storefront/internal/repository/loyalty"
)

const codeAttempts = 5

// Ledger applies earn, redeem and referral operations to loyalty accounts.
type Ledger struct {
	store  repository.Store
	logger zerolog.Logger
	now    func() time.Time
	codes  func(email string) (string, error)
}

func New(store repository.Store, logger zerolog.Logger) *Ledger {
	return &Ledger{
		store:  store,
		logger: logger,
		now:    time.Now,
		codes:  ReferralCode,
	}
}

// Load returns the account for email, creating and persisting a fresh Bronze account on first access.
func (l *Ledger) Load(ctx context.Context, email string) (*domain.LoyaltyAccount, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, domain.Invalid("email", "required")
	}
	return l.loadOrCreate(ctx, l.store.Repos().Loyalty, email)
}

// Earn credits amount at the current multiplier and returns the points added.
func (l *Ledger) Earn(ctx context.Context, email string, amount decimal.Decimal, reason string) (int64, error) {
	var added int64
	err := repository.Retry(ctx, repository.ConflictAttempts, func() error {
		return l.store.Run(ctx, func(r repository.Repos) error {
			var err error
			added, err = l.EarnWith(ctx, r, email, amount, reason)
			return err
		})
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// EarnWith performs Earn with repositories of a transaction the caller already holds.
func (l *Ledger) EarnWith(ctx context.Context, r repository.Repos, email string, amount decimal.Decimal, reason string) (int64, error) {
	if amount.IsNegative() {
		return 0, domain.Invalid("amount", "must not be negative")
	}
	acct, err := l.loadOrCreate(ctx, r.Loyalty, email)
	if err != nil {
		return 0, err
	}
	before := acct.Level
	added := acct.Earn(amount, reason)
	if _, err := r.Loyalty.Update(ctx, *acct); err != nil {
		return 0, fmt.Errorf("earn points: %w", err)
	}
	l.logger.Info().
		Str("email", email).
		Str("reason", reason).
		Int64("points_added", added).
		Int64("balance", acct.Points).
		Msg("points earned")
	if acct.Level != before {
		l.logger.Info().Str("email", email).Str("from", string(before)).Str("to", string(acct.Level)).Msg("level changed")
	}
	return added, nil
}

// Redeem spends points. It returns domain.ErrInsufficientPoints and changes nothing when the balance is too low.
func (l *Ledger) Redeem(ctx context.Context, email string, points int64) (*domain.LoyaltyAccount, error) {
	if points <= 0 {
		return nil, domain.Invalid("points", "must be positive")
	}
	var out *domain.LoyaltyAccount
	err := repository.Retry(ctx, repository.ConflictAttempts, func() error {
		return l.store.Run(ctx, func(r repository.Repos) error {
			acct, err := l.loadOrCreate(ctx, r.Loyalty, email)
			if err != nil {
				return err
			}
			if !acct.Redeem(points) {
				return fmt.Errorf("%w: %d more needed", domain.ErrInsufficientPoints, points-acct.Points)
			}
			out, err = r.Loyalty.Update(ctx, *acct)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	l.logger.Info().Str("email", email).Int64("points", points).Int64("balance", out.Points).Msg("points redeemed")
	return out, nil
}

// AddReferral records that referrer brought in referred and credits both accounts in one transaction.
// It returns false without changing anything when referred was already referred by anyone.
func (l *Ledger) AddReferral(ctx context.Context, referrer, referred string) (bool, error) {
	referrer = strings.TrimSpace(referrer)
	referred = strings.TrimSpace(referred)
	switch {
	case referrer == "":
		return false, domain.Invalid("referrer", "required")
	case referred == "":
		return false, domain.Invalid("email", "required")
	case referrer == referred:
		return false, domain.Invalid("email", "cannot refer yourself")
	}

	var added bool
	err := repository.Retry(ctx, repository.ConflictAttempts, func() error {
		added = false
		return l.store.Run(ctx, func(r repository.Repos) error {
			if _, err := r.Loyalty.FindReferrer(ctx, referred); err == nil {
				return nil
			} else if !errors.Is(err, domain.ErrNotFound) {
				return err
			}

			acct, err := l.loadOrCreate(ctx, r.Loyalty, referrer)
			if err != nil {
				return err
			}
			if !acct.AddReferral(referred) {
				return nil
			}
			if _, err := r.Loyalty.Update(ctx, *acct); err != nil {
				return fmt.Errorf("credit referrer: %w", err)
			}

			friend, err := l.loadOrCreate(ctx, r.Loyalty, referred)
			if err != nil {
				return err
			}
			friend.CreditReferred()
			if _, err := r.Loyalty.Update(ctx, *friend); err != nil {
				return fmt.Errorf("credit referred: %w", err)
			}
			added = true
			return nil
		})
	})
	if err != nil {
		return false, err
	}
	if added {
		l.logger.Info().Str("referrer", referrer).Str("referred", referred).Msg("referral recorded")
	}
	return added, nil
}

// AddReferralByCode resolves the referrer from a referral code and calls AddReferral.
func (l *Ledger) AddReferralByCode(ctx context.Context, code, referred string) (bool, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return false, domain.Invalid("referralCode", "required")
	}
	acct, err := l.store.Repos().Loyalty.GetByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, domain.Invalid("referralCode", "unknown code")
		}
		return false, err
	}
	return l.AddReferral(ctx, acct.Email, referred)
}

func (l *Ledger) loadOrCreate(ctx context.Context, repo loyaltyrepo.Repository, email string) (*domain.LoyaltyAccount, error) {
	acct, err := repo.Get(ctx, email)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	for i := 0; i < codeAttempts; i++ {
		code, err := l.codes(email)
		if err != nil {
			return nil, err
		}
		created, err := repo.Create(ctx, domain.NewLoyaltyAccount(email, code, l.now().UTC()))
		switch {
		case err == nil:
			l.logger.Debug().Str("email", email).Str("code", code).Msg("loyalty account created")
			return created, nil
		case errors.Is(err, loyaltyrepo.ErrCodeTaken):
			continue
		case errors.Is(err, domain.ErrAlreadyExists):
			return repo.Get(ctx, email)
		default:
			return nil, err
		}
	}
	return nil, errors.New("referral code collision")
}
