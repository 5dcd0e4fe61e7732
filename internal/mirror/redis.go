package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/internal/domain"
)

const contactListKey = "storefront:contact"

// Redis writes carts as JSON strings with a TTL and appends contact messages to a list.
type Redis struct {
	client  *redis.Client
	cartTTL time.Duration
}

var _ Mirror = (*Redis)(nil)

func NewRedis(client *redis.Client, cartTTL time.Duration) *Redis {
	return &Redis{client: client, cartTTL: cartTTL}
}

func cartKey(owner string) string {
	return fmt.Sprintf("storefront:cart:%s", owner)
}

type cartDoc struct {
	Owner     string            `json:"owner"`
	Lines     []domain.CartLine `json:"lines"`
	Total     string            `json:"total"`
	ItemCount int               `json:"itemCount"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// PushCart stores the cart snapshot. An empty cart deletes the key.
func (r *Redis) PushCart(ctx context.Context, c domain.Cart) error {
	key := cartKey(c.OwnerEmail)
	if len(c.Lines) == 0 {
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("mirror cart delete: %w", err)
		}
		return nil
	}
	payload, err := json.Marshal(cartDoc{
		Owner:     c.OwnerEmail,
		Lines:     c.Lines,
		Total:     c.Total().StringFixed(2),
		ItemCount: c.ItemCount(),
		UpdatedAt: c.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("mirror cart encode: %w", err)
	}
	if err := r.client.Set(ctx, key, payload, r.cartTTL).Err(); err != nil {
		return fmt.Errorf("mirror cart set: %w", err)
	}
	return nil
}

func (r *Redis) PushContact(ctx context.Context, m domain.ContactMessage) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("mirror contact encode: %w", err)
	}
	if err := r.client.RPush(ctx, contactListKey, payload).Err(); err != nil {
		return fmt.Errorf("mirror contact push: %w", err)
	}
	return nil
}

// Ping reports whether the remote is reachable.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
