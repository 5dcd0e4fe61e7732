package loyalty

import (
	"context"
	"errors"
	"slices"

	"github.com/jackc/pgx/v5"

	"storefront/internal/db"
	"storefront/internal/domain"
)

type postgresRepo struct {
	q db.Querier
}

func NewPostgres(q db.Querier) Repository {
	return &postgresRepo{q: q}
}

const accountColumns = `email, points, total_earned, total_spent, level, purchases, referral_code,
       referral_bonus_points, version, created_at, updated_at`

func (r *postgresRepo) Get(ctx context.Context, email string) (*domain.LoyaltyAccount, error) {
	const q = `SELECT ` + accountColumns + ` FROM loyalty_accounts WHERE email = $1`
	return r.load(ctx, r.q.QueryRow(ctx, q, email))
}

func (r *postgresRepo) GetByReferralCode(ctx context.Context, code string) (*domain.LoyaltyAccount, error) {
	const q = `SELECT ` + accountColumns + ` FROM loyalty_accounts WHERE referral_code = $1`
	return r.load(ctx, r.q.QueryRow(ctx, q, code))
}

func (r *postgresRepo) FindReferrer(ctx context.Context, email string) (string, error) {
	var referrer string
	err := r.q.QueryRow(ctx, `SELECT referrer_email FROM loyalty_referrals WHERE referred_email = $1`, email).Scan(&referrer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", domain.Persistence("loyalty.find_referrer", err)
	}
	return referrer, nil
}

func (r *postgresRepo) Create(ctx context.Context, acct domain.LoyaltyAccount) (*domain.LoyaltyAccount, error) {
	// ON CONFLICT keeps the surrounding transaction usable after a collision.
	const q = `
INSERT INTO loyalty_accounts (email, points, total_earned, total_spent, level, purchases, referral_code,
                              referral_bonus_points, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1, $9, $9)
ON CONFLICT DO NOTHING
RETURNING ` + accountColumns

	out, err := r.load(ctx, r.q.QueryRow(ctx, q,
		acct.Email, acct.Points, acct.TotalEarned, acct.TotalSpent, string(acct.Level), acct.Purchases,
		acct.ReferralCode, acct.ReferralBonusPoints, acct.CreatedAt,
	))
	if !errors.Is(err, domain.ErrNotFound) {
		return out, err
	}
	if _, getErr := r.Get(ctx, acct.Email); getErr == nil {
		return nil, domain.ErrAlreadyExists
	} else if !errors.Is(getErr, domain.ErrNotFound) {
		return nil, getErr
	}
	return nil, ErrCodeTaken
}

func (r *postgresRepo) Update(ctx context.Context, acct domain.LoyaltyAccount) (*domain.LoyaltyAccount, error) {
	const q = `
UPDATE loyalty_accounts
SET points = $3,
    total_earned = $4,
    total_spent = $5,
    level = $6,
    purchases = $7,
    referral_bonus_points = $8,
    version = version + 1,
    updated_at = now()
WHERE email = $1 AND version = $2
RETURNING version, updated_at
`
	out := acct.Clone()
	err := r.q.QueryRow(ctx, q,
		acct.Email, acct.Version, acct.Points, acct.TotalEarned, acct.TotalSpent, string(acct.Level),
		acct.Purchases, acct.ReferralBonusPoints,
	).Scan(&out.Version, &out.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrConflict
		}
		return nil, domain.Persistence("loyalty.update", err)
	}

	stored, err := r.referrals(ctx, acct.Email)
	if err != nil {
		return nil, err
	}
	for _, referred := range acct.Referrals {
		if slices.Contains(stored, referred) {
			continue
		}
		cmd, err := r.q.Exec(ctx, `
INSERT INTO loyalty_referrals (referrer_email, referred_email)
VALUES ($1, $2)
ON CONFLICT (referred_email) DO NOTHING
`, acct.Email, referred)
		if err != nil {
			return nil, domain.Persistence("loyalty.insert_referral", err)
		}
		if cmd.RowsAffected() == 0 {
			return nil, domain.ErrConflict
		}
	}
	return &out, nil
}

func (r *postgresRepo) load(ctx context.Context, row pgx.Row) (*domain.LoyaltyAccount, error) {
	var (
		acct  domain.LoyaltyAccount
		level string
	)
	err := row.Scan(
		&acct.Email,
		&acct.Points,
		&acct.TotalEarned,
		&acct.TotalSpent,
		&level,
		&acct.Purchases,
		&acct.ReferralCode,
		&acct.ReferralBonusPoints,
		&acct.Version,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.Persistence("loyalty.scan", err)
	}
	acct.Level = domain.Level(level)

	acct.Referrals, err = r.referrals(ctx, acct.Email)
	if err != nil {
		return nil, err
	}
	if err := Validate(acct); err != nil {
		return nil, &domain.PersistenceError{Op: "loyalty.decode " + acct.Email, Err: err}
	}
	return &acct, nil
}

func (r *postgresRepo) referrals(ctx context.Context, email string) ([]string, error) {
	rows, err := r.q.Query(ctx, `SELECT referred_email FROM loyalty_referrals WHERE referrer_email = $1 ORDER BY id`, email)
	if err != nil {
		return nil, domain.Persistence("loyalty.referrals", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var referred string
		if err := rows.Scan(&referred); err != nil {
			return nil, domain.Persistence("loyalty.referrals", err)
		}
		out = append(out, referred)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Persistence("loyalty.referrals", err)
	}
	return out, nil
}
