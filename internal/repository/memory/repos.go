package memory

import (
	"cmp"
	"context"
	"slices"

	"github.com/google/uuid"

	"storefront/internal/domain"
	"storefront/internal/repository/loyalty"
)

type customerRepo struct {
	s  *Store
	tx *state
}

func (r *customerRepo) Create(_ context.Context, c domain.Customer) (*domain.Customer, error) {
	var out domain.Customer
	err := r.s.with(r.tx, func(st *state) error {
		if _, exists := st.customers.get(c.Email); exists {
			return domain.ErrAlreadyExists
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = r.s.now().UTC()
		}
		st.customers.set(c.Email, c)
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *customerRepo) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	var out domain.Customer
	err := r.s.with(r.tx, func(st *state) error {
		c, ok := st.customers.get(email)
		if !ok {
			return domain.ErrNotFound
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type sessionRepo struct {
	s  *Store
	tx *state
}

func (r *sessionRepo) Create(_ context.Context, sess domain.Session) error {
	return r.s.with(r.tx, func(st *state) error {
		if _, exists := st.sessions.get(sess.Token); exists {
			return domain.ErrAlreadyExists
		}
		if sess.CreatedAt.IsZero() {
			sess.CreatedAt = r.s.now().UTC()
		}
		st.sessions.set(sess.Token, sess)
		return nil
	})
}

func (r *sessionRepo) Get(_ context.Context, token string) (*domain.Session, error) {
	var out domain.Session
	err := r.s.with(r.tx, func(st *state) error {
		sess, ok := st.sessions.get(token)
		if !ok {
			return domain.ErrNotFound
		}
		out = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *sessionRepo) Delete(_ context.Context, token string) error {
	return r.s.with(r.tx, func(st *state) error {
		if !st.sessions.delete(token) {
			return domain.ErrNotFound
		}
		return nil
	})
}

type loyaltyRepo struct {
	s  *Store
	tx *state
}

func (r *loyaltyRepo) Get(_ context.Context, email string) (*domain.LoyaltyAccount, error) {
	var out domain.LoyaltyAccount
	err := r.s.with(r.tx, func(st *state) error {
		acct, ok := st.loyalty.get(email)
		if !ok {
			return domain.ErrNotFound
		}
		out = acct.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return decoded(out)
}

func (r *loyaltyRepo) GetByReferralCode(_ context.Context, code string) (*domain.LoyaltyAccount, error) {
	var out domain.LoyaltyAccount
	err := r.s.with(r.tx, func(st *state) error {
		for _, acct := range st.loyalty.items {
			if acct.ReferralCode == code {
				out = acct.Clone()
				return nil
			}
		}
		return domain.ErrNotFound
	})
	if err != nil {
		return nil, err
	}
	return decoded(out)
}

func (r *loyaltyRepo) FindReferrer(_ context.Context, email string) (string, error) {
	var out string
	err := r.s.with(r.tx, func(st *state) error {
		referrer, ok := st.referrers[email]
		if !ok {
			return domain.ErrNotFound
		}
		out = referrer
		return nil
	})
	return out, err
}

func (r *loyaltyRepo) Create(_ context.Context, acct domain.LoyaltyAccount) (*domain.LoyaltyAccount, error) {
	var out domain.LoyaltyAccount
	err := r.s.with(r.tx, func(st *state) error {
		if _, exists := st.loyalty.get(acct.Email); exists {
			return domain.ErrAlreadyExists
		}
		for _, other := range st.loyalty.items {
			if other.ReferralCode == acct.ReferralCode {
				return loyalty.ErrCodeTaken
			}
		}
		out = acct.Clone()
		out.Version = 1
		if out.CreatedAt.IsZero() {
			out.CreatedAt = r.s.now().UTC()
		}
		out.UpdatedAt = out.CreatedAt
		st.loyalty.set(out.Email, out.Clone())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *loyaltyRepo) Update(_ context.Context, acct domain.LoyaltyAccount) (*domain.LoyaltyAccount, error) {
	var out domain.LoyaltyAccount
	err := r.s.with(r.tx, func(st *state) error {
		stored, ok := st.loyalty.get(acct.Email)
		if !ok || stored.Version != acct.Version {
			return domain.ErrConflict
		}
		for _, referred := range acct.Referrals {
			if owner, taken := st.referrers[referred]; taken && owner != acct.Email {
				return domain.ErrConflict
			}
		}
		for _, referred := range acct.Referrals {
			st.referrers[referred] = acct.Email
		}
		out = acct.Clone()
		out.Version++
		out.UpdatedAt = r.s.now().UTC()
		st.loyalty.set(out.Email, out.Clone())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func decoded(acct domain.LoyaltyAccount) (*domain.LoyaltyAccount, error) {
	if err := loyalty.Validate(acct); err != nil {
		return nil, &domain.PersistenceError{Op: "loyalty.decode " + acct.Email, Err: err}
	}
	return &acct, nil
}

type cartRepo struct {
	s  *Store
	tx *state
}

func (r *cartRepo) Get(_ context.Context, owner string) (*domain.Cart, error) {
	var out domain.Cart
	err := r.s.with(r.tx, func(st *state) error {
		c, ok := st.carts.get(owner)
		if !ok {
			return domain.ErrNotFound
		}
		out = c.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Lock is a no-op: Run already holds the store lock for the whole transaction.
func (r *cartRepo) Lock(context.Context, string) error {
	return nil
}

func (r *cartRepo) Save(_ context.Context, c domain.Cart) error {
	return r.s.with(r.tx, func(st *state) error {
		c = c.Clone()
		c.UpdatedAt = r.s.now().UTC()
		st.carts.set(c.OwnerEmail, c)
		return nil
	})
}

func (r *cartRepo) Delete(_ context.Context, owner string) error {
	return r.s.with(r.tx, func(st *state) error {
		st.carts.delete(owner)
		return nil
	})
}

func (r *cartRepo) GetPending(_ context.Context, sessionID string) (*domain.PendingItem, error) {
	var out domain.PendingItem
	err := r.s.with(r.tx, func(st *state) error {
		p, ok := st.pending.get(sessionID)
		if !ok {
			return domain.ErrNotFound
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *cartRepo) SavePending(_ context.Context, sessionID string, item domain.PendingItem) error {
	return r.s.with(r.tx, func(st *state) error {
		item.CreatedAt = r.s.now().UTC()
		st.pending.set(sessionID, item)
		return nil
	})
}

func (r *cartRepo) DeletePending(_ context.Context, sessionID string) error {
	return r.s.with(r.tx, func(st *state) error {
		st.pending.delete(sessionID)
		return nil
	})
}

type orderRepo struct {
	s  *Store
	tx *state
}

func (r *orderRepo) Append(_ context.Context, o domain.Order) error {
	return r.s.with(r.tx, func(st *state) error {
		if _, exists := st.orders.get(o.OrderID); exists {
			return domain.ErrAlreadyExists
		}
		st.orders.set(o.OrderID, cloneOrder(o))
		return nil
	})
}

func (r *orderRepo) ListByUser(_ context.Context, email string) ([]domain.Order, error) {
	out := []domain.Order{}
	err := r.s.with(r.tx, func(st *state) error {
		for _, o := range st.orders.list() {
			if o.UserEmail == email {
				out = append(out, cloneOrder(o))
			}
		}
		return nil
	})
	return out, err
}

type productRepo struct {
	s  *Store
	tx *state
}

func (r *productRepo) List(_ context.Context) ([]domain.Product, error) {
	var out []domain.Product
	err := r.s.with(r.tx, func(st *state) error {
		for _, p := range st.products.list() {
			out = append(out, cloneProduct(p))
		}
		return nil
	})
	slices.SortStableFunc(out, func(a, b domain.Product) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, err
}

func (r *productRepo) GetByID(_ context.Context, id string) (*domain.Product, error) {
	var out domain.Product
	err := r.s.with(r.tx, func(st *state) error {
		p, ok := st.products.get(id)
		if !ok {
			return domain.ErrNotFound
		}
		out = cloneProduct(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *productRepo) Upsert(_ context.Context, p domain.Product) (*domain.Product, bool, error) {
	var (
		out      domain.Product
		inserted bool
	)
	err := r.s.with(r.tx, func(st *state) error {
		for _, existing := range st.products.items {
			if existing.Key == p.Key {
				p.ID = existing.ID
				p.CreatedAt = existing.CreatedAt
				st.products.set(p.ID, cloneProduct(p))
				out = cloneProduct(p)
				return nil
			}
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = r.s.now().UTC()
		}
		st.products.set(p.ID, cloneProduct(p))
		out = cloneProduct(p)
		inserted = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &out, inserted, nil
}
