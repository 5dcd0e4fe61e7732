package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/service/cart"
	"storefront/internal/validation"
)

// Ledger credits purchase points inside a transaction the caller holds.
type Ledger interface {
	EarnWith(ctx context.Context, r repository.Repos, email string, amount decimal.Decimal, reason string) (int64, error)
}

// CartMirror pushes the emptied cart after a checkout.
type CartMirror interface {
	Mirror(ctx context.Context, c domain.Cart)
}

// Publisher announces completed orders.
type Publisher interface {
	OrderCompleted(ctx context.Context, o domain.Order, pointsAdded int64) error
}

// Shipping is the delivery address.
type Shipping struct {
	FullName   string `json:"fullName" validate:"notblank"`
	Address    string `json:"address" validate:"notblank"`
	City       string `json:"city" validate:"notblank"`
	PostalCode string `json:"postalCode" validate:"notblank"`
	Country    string `json:"country" validate:"notblank"`
}

// Payment holds mock card details. They are validated and never stored.
type Payment struct {
	CardHolder string `json:"cardHolder" validate:"notblank"`
	CardNumber string `json:"cardNumber" validate:"cardnumber"`
	Expiry     string `json:"expiry" validate:"notblank"`
	CVC        string `json:"cvc" validate:"notblank"`
}

type Input struct {
	Shipping Shipping `json:"shipping"`
	Payment  Payment  `json:"payment"`
}

type Result struct {
	Order       domain.Order `json:"order"`
	PointsAdded int64        `json:"pointsAdded"`
}

// Service turns a cart into an order and credits loyalty points.
type Service struct {
	store     repository.Store
	ledger    Ledger
	mirror    CartMirror
	publisher Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

func New(store repository.Store, ledger Ledger, mirror CartMirror, publisher Publisher, logger zerolog.Logger) *Service {
	return &Service{
		store:     store,
		ledger:    ledger,
		mirror:    mirror,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// Complete records the order, credits points and clears the cart in one transaction.
func (s *Service) Complete(ctx context.Context, email string, in Input) (*Result, error) {
	if email == "" {
		return nil, domain.ErrNotAuthenticated
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	var res Result
	err := repository.Retry(ctx, repository.ConflictAttempts, func() error {
		return s.store.Run(ctx, func(r repository.Repos) error {
			c, err := cart.LoadWith(ctx, r, email)
			if err != nil {
				return err
			}
			if len(c.Lines) == 0 {
				return domain.Invalid("cart", "is empty")
			}
			now := s.now().UTC()
			o := domain.Order{
				OrderID:   newOrderID(now),
				UserEmail: email,
				Items:     c.Clone().Lines,
				Total:     c.Total(),
				Status:    domain.OrderStatusCompleted,
				CreatedAt: now,
			}
			if err := r.Orders.Append(ctx, o); err != nil {
				return fmt.Errorf("append order: %w", err)
			}
			added, err := s.ledger.EarnWith(ctx, r, email, o.Total, domain.ReasonPurchase)
			if err != nil {
				return err
			}
			if err := cart.ClearWith(ctx, r, email); err != nil {
				return fmt.Errorf("clear cart: %w", err)
			}
			res = Result{Order: o, PointsAdded: added}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_id", res.Order.OrderID).
		Str("email", email).
		Str("total", res.Order.Total.StringFixed(2)).
		Int64("points_added", res.PointsAdded).
		Msg("order completed")

	if s.mirror != nil {
		s.mirror.Mirror(ctx, domain.NewCart(email))
	}
	if s.publisher != nil {
		if err := s.publisher.OrderCompleted(ctx, res.Order, res.PointsAdded); err != nil {
			s.logger.Warn().Err(err).Str("order_id", res.Order.OrderID).Msg("order event publish failed")
		}
	}
	return &res, nil
}

// Orders lists the customer's orders, oldest first.
func (s *Service) Orders(ctx context.Context, email string) ([]domain.Order, error) {
	if email == "" {
		return nil, domain.ErrNotAuthenticated
	}
	return s.store.Repos().Orders.ListByUser(ctx, email)
}

func newOrderID(now time.Time) string {
	return fmt.Sprintf("DAP-%d-%s", now.UnixMilli(), strings.ToUpper(uuid.NewString()[:8]))
}
