package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFor(t *testing.T) {
	cases := []struct {
		points int64
		want   Level
	}{
		{0, LevelBronze},
		{499, LevelBronze},
		{500, LevelArgent},
		{999, LevelArgent},
		{1000, LevelOr},
		{25000, LevelOr},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, LevelFor(tc.points), "points=%d", tc.points)
	}
}

func TestEarn_BronzeUsesUnitMultiplier(t *testing.T) {
	acct := NewLoyaltyAccount("a@x.fr", "DAPA@X123456", time.Now())

	added := acct.Earn(decimal.NewFromInt(120), ReasonPurchase)

	assert.EqualValues(t, 120, added)
	assert.EqualValues(t, 120, acct.Points)
	assert.EqualValues(t, 120, acct.TotalEarned)
	assert.Equal(t, 1, acct.Purchases)
	assert.Equal(t, LevelBronze, acct.Level)
}

func TestEarn_UsesLevelBeforeEarn(t *testing.T) {
	acct := NewLoyaltyAccount("a@x.fr", "code", time.Now())
	acct.Earn(decimal.NewFromInt(490), "bonus")
	require.Equal(t, LevelBronze, acct.Level)

	// 490 + 20 crosses into Argent but the Bronze multiplier applies to this earn.
	added := acct.Earn(decimal.NewFromInt(20), ReasonPurchase)
	assert.EqualValues(t, 20, added)
	assert.Equal(t, LevelArgent, acct.Level)

	added = acct.Earn(decimal.NewFromInt(100), ReasonPurchase)
	assert.EqualValues(t, 150, added)
	assert.EqualValues(t, 660, acct.Points)
	assert.Equal(t, 2, acct.Purchases)
}

func TestEarn_OrDoublesAndRoundsHalfUp(t *testing.T) {
	acct := NewLoyaltyAccount("a@x.fr", "code", time.Now())
	acct.Earn(decimal.NewFromInt(1000), "bonus")
	require.Equal(t, LevelOr, acct.Level)
	assert.Equal(t, 0, acct.Purchases)

	assert.EqualValues(t, 25, acct.PointsFor(decimal.RequireFromString("12.25")))

	argent := NewLoyaltyAccount("b@x.fr", "code", time.Now())
	argent.Earn(decimal.NewFromInt(600), "bonus")
	assert.EqualValues(t, 2, argent.PointsFor(decimal.NewFromInt(1)))
}

func TestRedeem(t *testing.T) {
	acct := NewLoyaltyAccount("a@x.fr", "code", time.Now())
	acct.Earn(decimal.NewFromInt(600), "bonus")
	require.Equal(t, LevelArgent, acct.Level)

	assert.False(t, acct.Redeem(601))
	assert.EqualValues(t, 600, acct.Points)
	assert.EqualValues(t, 0, acct.TotalSpent)

	assert.True(t, acct.Redeem(200))
	assert.EqualValues(t, 400, acct.Points)
	assert.EqualValues(t, 200, acct.TotalSpent)
	assert.Equal(t, LevelBronze, acct.Level, "redeem demotes")
	assert.Equal(t, acct.TotalEarned-acct.TotalSpent, acct.Points)
}

func TestAddReferral(t *testing.T) {
	acct := NewLoyaltyAccount("a@x.fr", "code", time.Now())

	require.True(t, acct.AddReferral("b@x.fr"))
	assert.EqualValues(t, ReferrerBonus, acct.Points)
	assert.EqualValues(t, ReferrerBonus, acct.ReferralBonusPoints)
	assert.Equal(t, []string{"b@x.fr"}, acct.Referrals)

	before := acct.Clone()
	assert.False(t, acct.AddReferral("b@x.fr"))
	assert.Equal(t, before, acct)

	referred := NewLoyaltyAccount("b@x.fr", "code2", time.Now())
	referred.CreditReferred()
	assert.EqualValues(t, ReferredBonus, referred.Points)
	assert.EqualValues(t, ReferredBonus, referred.TotalEarned)
}

func TestProgress(t *testing.T) {
	acct := NewLoyaltyAccount("a@x.fr", "code", time.Now())
	acct.Earn(decimal.NewFromInt(120), "bonus")

	next, missing, ok := acct.Progress()
	assert.True(t, ok)
	assert.Equal(t, LevelArgent, next)
	assert.EqualValues(t, 380, missing)

	acct.Earn(decimal.NewFromInt(900), "bonus")
	_, _, ok = acct.Progress()
	assert.False(t, ok)
}
