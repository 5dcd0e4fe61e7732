// Package memory is an in-process Store used by tests and by STORAGE_BACKEND=memory.
// Run serializes writers behind one mutex and works on a copy of the state, so a failing
// callback leaves nothing behind.
package memory

import (
	"context"
	"sync"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

// table keeps items keyed by id in insertion order.
type table[T any] struct {
	items map[string]T
	order []string
}

func newTable[T any]() table[T] {
	return table[T]{items: make(map[string]T)}
}

func (t *table[T]) get(id string) (T, bool) {
	v, ok := t.items[id]
	return v, ok
}

func (t *table[T]) set(id string, v T) {
	if _, exists := t.items[id]; !exists {
		t.order = append(t.order, id)
	}
	t.items[id] = v
}

func (t *table[T]) delete(id string) bool {
	if _, exists := t.items[id]; !exists {
		return false
	}
	delete(t.items, id)
	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

func (t *table[T]) list() []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.items[id])
	}
	return out
}

func (t table[T]) clone(cp func(T) T) table[T] {
	out := table[T]{items: make(map[string]T, len(t.items)), order: append([]string(nil), t.order...)}
	for k, v := range t.items {
		out.items[k] = cp(v)
	}
	return out
}

func same[T any](v T) T { return v }

type state struct {
	customers table[domain.Customer]
	sessions  table[domain.Session]
	loyalty   table[domain.LoyaltyAccount]
	referrers map[string]string // referred email -> referrer email
	carts     table[domain.Cart]
	pending   table[domain.PendingItem]
	orders    table[domain.Order]
	products  table[domain.Product]
}

func newState() *state {
	return &state{
		customers: newTable[domain.Customer](),
		sessions:  newTable[domain.Session](),
		loyalty:   newTable[domain.LoyaltyAccount](),
		referrers: make(map[string]string),
		carts:     newTable[domain.Cart](),
		pending:   newTable[domain.PendingItem](),
		orders:    newTable[domain.Order](),
		products:  newTable[domain.Product](),
	}
}

func (s *state) clone() *state {
	referrers := make(map[string]string, len(s.referrers))
	for k, v := range s.referrers {
		referrers[k] = v
	}
	return &state{
		customers: s.customers.clone(same[domain.Customer]),
		sessions:  s.sessions.clone(same[domain.Session]),
		loyalty:   s.loyalty.clone(domain.LoyaltyAccount.Clone),
		referrers: referrers,
		carts:     s.carts.clone(domain.Cart.Clone),
		pending:   s.pending.clone(same[domain.PendingItem]),
		orders:    s.orders.clone(cloneOrder),
		products:  s.products.clone(cloneProduct),
	}
}

// Store implements repository.Store in memory.
type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{state: newState(), now: time.Now}
}

// Repos returns repositories that lock the store per call. They must not be used inside Run.
func (s *Store) Repos() repository.Repos {
	return s.bind(nil)
}

func (s *Store) Run(ctx context.Context, fn func(repository.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(s.bind(work)); err != nil {
		return err
	}
	s.state = work
	return nil
}

// PutLoyaltyAccount stores acct verbatim, skipping version checks. It exists for fixtures.
func (s *Store) PutLoyaltyAccount(acct domain.LoyaltyAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.loyalty.set(acct.Email, acct.Clone())
	for _, referred := range acct.Referrals {
		s.state.referrers[referred] = acct.Email
	}
}

func (s *Store) bind(tx *state) repository.Repos {
	return repository.Repos{
		Customers: &customerRepo{s: s, tx: tx},
		Sessions:  &sessionRepo{s: s, tx: tx},
		Loyalty:   &loyaltyRepo{s: s, tx: tx},
		Carts:     &cartRepo{s: s, tx: tx},
		Orders:    &orderRepo{s: s, tx: tx},
		Products:  &productRepo{s: s, tx: tx},
	}
}

// with runs fn against the transaction state when there is one, otherwise against the live state under the lock.
func (s *Store) with(tx *state, fn func(*state) error) error {
	if tx != nil {
		return fn(tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.CartLine(nil), o.Items...)
	return o
}

func cloneProduct(p domain.Product) domain.Product {
	p.Images = append([]string(nil), p.Images...)
	return p
}
