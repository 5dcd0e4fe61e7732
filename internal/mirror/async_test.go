package mirror

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/internal/domain"
)

type mirrorMock struct {
	mock.Mock
}

func (m *mirrorMock) PushCart(ctx context.Context, c domain.Cart) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mirrorMock) PushContact(ctx context.Context, msg domain.ContactMessage) error {
	return m.Called(ctx, msg).Error(0)
}

func TestAsync_PushCartDetachesFromRequest(t *testing.T) {
	next := &mirrorMock{}
	next.On("PushCart", mock.Anything, mock.MatchedBy(func(c domain.Cart) bool {
		return c.OwnerEmail == "a@x.fr" && len(c.Lines) == 1
	})).Return(errors.New("redis down")).Once()
	a := NewAsync(next, time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	c := domain.NewCart("a@x.fr")
	c.Add(domain.CartLine{ProductID: "1", UnitPrice: decimal.NewFromInt(10), Quantity: 1})
	require.NoError(t, a.PushCart(ctx, c))
	cancel()
	c.Clear()

	waitCtx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()
	require.NoError(t, a.Wait(waitCtx))
	next.AssertExpectations(t)
}

func TestAsync_PushContactReturnsOutcome(t *testing.T) {
	next := &mirrorMock{}
	next.On("PushContact", mock.Anything, mock.Anything).Return(ErrDisabled)
	a := NewAsync(next, time.Second, zerolog.Nop())

	err := a.PushContact(context.Background(), domain.ContactMessage{Name: "Marie"})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.PushCart(context.Background(), domain.NewCart("a@x.fr")))
	assert.ErrorIs(t, Noop{}.PushContact(context.Background(), domain.ContactMessage{}), ErrDisabled)
}

// gatedMirror blocks the first cart push until release is closed.
type gatedMirror struct {
	Noop
	started chan struct{}
	release chan struct{}

	mu     sync.Mutex
	pushed []domain.Cart
}

func (g *gatedMirror) PushCart(ctx context.Context, c domain.Cart) error {
	g.mu.Lock()
	first := len(g.pushed) == 0
	g.pushed = append(g.pushed, c)
	g.mu.Unlock()
	if first {
		close(g.started)
		<-g.release
	}
	return nil
}

func TestAsync_PushCartKeepsNewestSnapshotLast(t *testing.T) {
	next := &gatedMirror{started: make(chan struct{}), release: make(chan struct{})}
	a := NewAsync(next, time.Second, zerolog.Nop())
	ctx := context.Background()

	c := domain.NewCart("a@x.fr")
	c.Add(domain.CartLine{ProductID: "1", UnitPrice: decimal.NewFromInt(10), Quantity: 1})
	require.NoError(t, a.PushCart(ctx, c))
	<-next.started

	c.Add(domain.CartLine{ProductID: "2", UnitPrice: decimal.NewFromInt(5), Quantity: 1})
	require.NoError(t, a.PushCart(ctx, c))
	require.NoError(t, a.PushCart(ctx, domain.NewCart("a@x.fr")))
	close(next.release)

	waitCtx, done := context.WithTimeout(context.Background(), time.Second)
	defer done()
	require.NoError(t, a.Wait(waitCtx))

	next.mu.Lock()
	defer next.mu.Unlock()
	require.Len(t, next.pushed, 2, "queued snapshots collapse to the latest")
	assert.Len(t, next.pushed[0].Lines, 1)
	assert.Empty(t, next.pushed[1].Lines, "emptied cart must be the last push")
}
