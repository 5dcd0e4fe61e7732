package cart

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/repository"
	cartrepo "storefront/internal/repository/cart"
)

// Mirror receives a snapshot of the cart after every committed change.
type Mirror interface {
	PushCart(ctx context.Context, cart domain.Cart) error
}

// Service manages per-customer carts and the pending item of guest sessions.
type Service struct {
	store  repository.Store
	mirror Mirror
	logger zerolog.Logger
}

func New(store repository.Store, mirror Mirror, logger zerolog.Logger) *Service {
	return &Service{store: store, mirror: mirror, logger: logger}
}

// AddItemInput is a product variant to put in the cart.
type AddItemInput struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     Price  `json:"price"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity"`
}

func (in AddItemInput) line() (domain.CartLine, error) {
	qty := in.Quantity
	if qty == 0 {
		qty = 1
	}
	if strings.TrimSpace(in.ProductID) == "" {
		return domain.CartLine{}, domain.Invalid("productId", "required")
	}
	price, err := in.Price.decimal()
	if err != nil {
		return domain.CartLine{}, err
	}
	if qty < 0 {
		return domain.CartLine{}, domain.Invalid("quantity", "must be positive")
	}
	return domain.CartLine{
		ProductID: strings.TrimSpace(in.ProductID),
		Name:      strings.TrimSpace(in.Name),
		UnitPrice: price,
		Size:      in.Size,
		Color:     in.Color,
		Quantity:  qty,
	}, nil
}

// Get returns the owner's cart, empty when nothing was stored yet.
func (s *Service) Get(ctx context.Context, owner string) (*domain.Cart, error) {
	if owner == "" {
		return nil, domain.ErrNotAuthenticated
	}
	return load(ctx, s.store.Repos().Carts, owner)
}

// Total recomputes the cart total from its lines.
func (s *Service) Total(ctx context.Context, owner string) (decimal.Decimal, error) {
	c, err := s.Get(ctx, owner)
	if err != nil {
		return decimal.Zero, err
	}
	return c.Total(), nil
}

// Add merges the item into a line with the same product, size and color, or appends a new line.
func (s *Service) Add(ctx context.Context, owner string, in AddItemInput) (*domain.Cart, error) {
	l, err := in.line()
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, owner, func(c *domain.Cart) error {
		c.Add(l)
		return nil
	})
}

// Remove deletes the line at index, or returns domain.ErrOutOfRange.
func (s *Service) Remove(ctx context.Context, owner string, index int) (*domain.Cart, error) {
	return s.mutate(ctx, owner, func(c *domain.Cart) error {
		return c.Remove(index)
	})
}

// UpdateQuantity sets the quantity of the line at index. Zero or less removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, owner string, index, qty int) (*domain.Cart, error) {
	return s.mutate(ctx, owner, func(c *domain.Cart) error {
		return c.SetQuantity(index, qty)
	})
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, owner string) error {
	_, err := s.mutate(ctx, owner, func(c *domain.Cart) error {
		c.Clear()
		return nil
	})
	return err
}

// PendingInput is the item a guest picked before signing in.
type PendingInput struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Price     Price  `json:"price"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

// SavePending holds one item for a guest session, replacing any previous one.
func (s *Service) SavePending(ctx context.Context, sessionID string, in PendingInput) (*domain.PendingItem, error) {
	if sessionID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	l, err := AddItemInput{ProductID: in.ProductID, Name: in.Name, Price: in.Price, Size: in.Size, Color: in.Color}.line()
	if err != nil {
		return nil, err
	}
	item := domain.PendingItem{ProductID: l.ProductID, Name: l.Name, UnitPrice: l.UnitPrice, Size: l.Size, Color: l.Color}
	if err := s.store.Repos().Carts.SavePending(ctx, sessionID, item); err != nil {
		return nil, err
	}
	s.logger.Debug().Str("session", sessionID).Str("product", item.ProductID).Msg("pending item saved")
	return &item, nil
}

// ConsumePending moves the session's pending item into owner's cart with quantity 1 and forgets it.
// It returns nil when the session holds no pending item.
func (s *Service) ConsumePending(ctx context.Context, sessionID, owner string) (*domain.PendingItem, error) {
	if sessionID == "" {
		return nil, nil
	}
	if owner == "" {
		return nil, domain.ErrNotAuthenticated
	}
	var (
		consumed *domain.PendingItem
		out      domain.Cart
	)
	err := repository.Retry(ctx, repository.ConflictAttempts, func() error {
		return s.store.Run(ctx, func(r repository.Repos) error {
			item, err := r.Carts.GetPending(ctx, sessionID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return nil
				}
				return err
			}
			c, err := LoadWith(ctx, r, owner)
			if err != nil {
				return err
			}
			c.Add(item.Line())
			if err := r.Carts.Save(ctx, *c); err != nil {
				return err
			}
			if err := r.Carts.DeletePending(ctx, sessionID); err != nil {
				return err
			}
			consumed, out = item, *c
			return nil
		})
	})
	if err != nil || consumed == nil {
		return nil, err
	}
	s.logger.Info().Str("owner", owner).Str("product", consumed.ProductID).Msg("pending item added to cart")
	s.Mirror(ctx, out)
	return consumed, nil
}

// Mirror pushes cart to the remote mirror. Failures are logged and never returned.
func (s *Service) Mirror(ctx context.Context, c domain.Cart) {
	if s.mirror == nil {
		return
	}
	if err := s.mirror.PushCart(ctx, c); err != nil {
		s.logger.Warn().Err(err).Str("owner", c.OwnerEmail).Msg("cart mirror failed")
	}
}

func (s *Service) mutate(ctx context.Context, owner string, fn func(*domain.Cart) error) (*domain.Cart, error) {
	if owner == "" {
		return nil, domain.ErrNotAuthenticated
	}
	var out domain.Cart
	err := repository.Retry(ctx, repository.ConflictAttempts, func() error {
		return s.store.Run(ctx, func(r repository.Repos) error {
			c, err := LoadWith(ctx, r, owner)
			if err != nil {
				return err
			}
			if err := fn(c); err != nil {
				return err
			}
			if err := r.Carts.Save(ctx, *c); err != nil {
				return err
			}
			out = *c
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.Mirror(ctx, out)
	return &out, nil
}

// load treats a cart that was never stored as empty; any other failure is returned.
func load(ctx context.Context, repo cartrepo.Repository, owner string) (*domain.Cart, error) {
	c, err := repo.Get(ctx, owner)
	if err == nil {
		return c, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		empty := domain.NewCart(owner)
		return &empty, nil
	}
	return nil, err
}

// ClearWith empties owner's cart with repositories of a transaction the caller already holds.
func ClearWith(ctx context.Context, r repository.Repos, owner string) error {
	return r.Carts.Delete(ctx, owner)
}

// LoadWith locks and returns owner's cart with repositories of a transaction the caller
// already holds. The lock lasts until that transaction ends.
func LoadWith(ctx context.Context, r repository.Repos, owner string) (*domain.Cart, error) {
	if err := r.Carts.Lock(ctx, owner); err != nil {
		return nil, err
	}
	return load(ctx, r.Carts, owner)
}
