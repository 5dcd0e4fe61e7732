package mirror

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"storefront/internal/domain"
)

// Async pushes carts in the background so requests never wait on the remote.
// Each owner has at most one push in flight; snapshots queued behind it collapse
// to the latest, so the remote always ends on the newest cart.
// Contact messages stay synchronous because the caller needs the outcome.
type Async struct {
	next    Mirror
	timeout time.Duration
	logger  zerolog.Logger
	wg      sync.WaitGroup

	mu      sync.Mutex
	latest  map[string]domain.Cart
	running map[string]bool
}

var _ Mirror = (*Async)(nil)

func NewAsync(next Mirror, timeout time.Duration, logger zerolog.Logger) *Async {
	return &Async{
		next:    next,
		timeout: timeout,
		logger:  logger,
		latest:  make(map[string]domain.Cart),
		running: make(map[string]bool),
	}
}

// PushCart always returns nil. Failures are logged.
func (a *Async) PushCart(ctx context.Context, c domain.Cart) error {
	owner := c.OwnerEmail
	a.mu.Lock()
	defer a.mu.Unlock()
	a.latest[owner] = c.Clone()
	if a.running[owner] {
		return nil
	}
	a.running[owner] = true
	a.wg.Add(1)
	go a.drain(context.WithoutCancel(ctx), owner)
	return nil
}

// drain pushes owner's latest snapshot until none is left.
func (a *Async) drain(ctx context.Context, owner string) {
	defer a.wg.Done()
	for {
		a.mu.Lock()
		c, ok := a.latest[owner]
		if !ok {
			delete(a.running, owner)
			a.mu.Unlock()
			return
		}
		delete(a.latest, owner)
		a.mu.Unlock()

		a.push(ctx, c)
	}
}

func (a *Async) push(ctx context.Context, c domain.Cart) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	if err := a.next.PushCart(ctx, c); err != nil {
		a.logger.Warn().Err(err).Str("owner", c.OwnerEmail).Msg("cart mirror failed")
	}
}

func (a *Async) PushContact(ctx context.Context, m domain.ContactMessage) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return a.next.PushContact(ctx, m)
}

// Wait blocks until in-flight pushes finish or ctx is done.
func (a *Async) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
