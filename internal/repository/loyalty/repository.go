package loyalty

import (
	"context"
	"errors"

	"storefront/internal/domain"
)

// ErrCodeTaken is returned by Create when the referral code collides with another account.
var ErrCodeTaken = errors.New("referral code taken")

// Repository persists loyalty accounts. Updates are compare-and-swap on Version.
type Repository interface {
	Get(ctx context.Context, email string) (*domain.LoyaltyAccount, error)
	GetByReferralCode(ctx context.Context, code string) (*domain.LoyaltyAccount, error)
	// FindReferrer returns the email of the account that referred email, or domain.ErrNotFound.
	FindReferrer(ctx context.Context, email string) (string, error)
	// Create stores a new account at version 1. It returns domain.ErrAlreadyExists when the email
	// already has an account and ErrCodeTaken on a referral code collision.
	Create(ctx context.Context, acct domain.LoyaltyAccount) (*domain.LoyaltyAccount, error)
	// Update writes acct if the stored version still equals acct.Version, otherwise domain.ErrConflict.
	// New entries in acct.Referrals are recorded; a referral already owned by another account is a conflict.
	Update(ctx context.Context, acct domain.LoyaltyAccount) (*domain.LoyaltyAccount, error)
}

// Validate rejects stored records that break the ledger invariants.
func Validate(acct domain.LoyaltyAccount) error {
	switch {
	case acct.Points < 0 || acct.TotalEarned < 0 || acct.TotalSpent < 0:
		return errors.New("negative balance")
	case acct.Points != acct.TotalEarned-acct.TotalSpent:
		return errors.New("points do not match earned minus spent")
	case acct.Level != domain.LevelFor(acct.Points):
		return errors.New("level does not match points")
	case acct.ReferralCode == "":
		return errors.New("missing referral code")
	}
	return nil
}
