package domain

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Level is a loyalty tier derived from the current point balance.
type Level string

const (
	LevelBronze Level = "Bronze"
	LevelArgent Level = "Argent"
	LevelOr     Level = "Or"
)

const (
	argentThreshold = 500
	orThreshold     = 1000

	// ReferrerBonus is credited to the account that made the referral.
	ReferrerBonus = 50
	// ReferredBonus is credited to the account that was referred.
	ReferredBonus = 30

	// ReasonPurchase marks an earn that counts as a completed purchase.
	ReasonPurchase = "purchase"
)

// LevelFor maps a point balance to its level. There is no hysteresis.
func LevelFor(points int64) Level {
	switch {
	case points >= orThreshold:
		return LevelOr
	case points >= argentThreshold:
		return LevelArgent
	default:
		return LevelBronze
	}
}

// Multiplier returns the earn multiplier applied while at level.
func (l Level) Multiplier() decimal.Decimal {
	switch l {
	case LevelOr:
		return decimal.NewFromInt(2)
	case LevelArgent:
		return decimal.NewFromFloat(1.5)
	default:
		return decimal.NewFromInt(1)
	}
}

// LoyaltyAccount is the per-user points ledger. Points always equal TotalEarned minus TotalSpent.
type LoyaltyAccount struct {
	Email               string    `json:"email"`
	Points              int64     `json:"points"`
	TotalEarned         int64     `json:"totalEarned"`
	TotalSpent          int64     `json:"totalSpent"`
	Level               Level     `json:"level"`
	Purchases           int       `json:"purchases"`
	ReferralCode        string    `json:"referralCode"`
	Referrals           []string  `json:"referrals"`
	ReferralBonusPoints int64     `json:"referralBonusPoints"`
	Version             int64     `json:"version"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// NewLoyaltyAccount returns a zero-balance Bronze account.
func NewLoyaltyAccount(email, referralCode string, now time.Time) LoyaltyAccount {
	return LoyaltyAccount{
		Email:        email,
		Level:        LevelBronze,
		ReferralCode: referralCode,
		Referrals:    []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Clone returns a deep copy.
func (a LoyaltyAccount) Clone() LoyaltyAccount {
	a.Referrals = slices.Clone(a.Referrals)
	if a.Referrals == nil {
		a.Referrals = []string{}
	}
	return a
}

// PointsFor computes the points an earn of amount would add at the current level, rounding half up.
func (a LoyaltyAccount) PointsFor(amount decimal.Decimal) int64 {
	return amount.Mul(a.Level.Multiplier()).Round(0).IntPart()
}

// Earn credits amount scaled by the multiplier of the level held before the earn and returns the points added.
// amount must not be negative.
func (a *LoyaltyAccount) Earn(amount decimal.Decimal, reason string) int64 {
	added := a.PointsFor(amount)
	a.credit(added)
	if reason == ReasonPurchase {
		a.Purchases++
	}
	return added
}

// Redeem spends points and reports whether the balance covered them. Nothing changes when it does not.
func (a *LoyaltyAccount) Redeem(points int64) bool {
	if points > a.Points {
		return false
	}
	a.Points -= points
	a.TotalSpent += points
	a.Level = LevelFor(a.Points)
	return true
}

// HasReferral reports whether email was already referred by this account.
func (a LoyaltyAccount) HasReferral(email string) bool {
	return slices.Contains(a.Referrals, email)
}

// AddReferral records email and credits the referrer bonus. It returns false and changes nothing for a repeat.
func (a *LoyaltyAccount) AddReferral(email string) bool {
	if a.HasReferral(email) {
		return false
	}
	a.Referrals = append(a.Referrals, email)
	a.ReferralBonusPoints += ReferrerBonus
	a.credit(ReferrerBonus)
	return true
}

// CreditReferred applies the welcome bonus for a referred account.
func (a *LoyaltyAccount) CreditReferred() {
	a.credit(ReferredBonus)
}

// Progress returns the next level and the points still missing to reach it. ok is false at the top level.
func (a LoyaltyAccount) Progress() (next Level, missing int64, ok bool) {
	switch a.Level {
	case LevelBronze:
		return LevelArgent, argentThreshold - a.Points, true
	case LevelArgent:
		return LevelOr, orThreshold - a.Points, true
	}
	return "", 0, false
}

func (a *LoyaltyAccount) credit(points int64) {
	a.Points += points
	a.TotalEarned += points
	a.Level = LevelFor(a.Points)
}
