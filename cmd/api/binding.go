package main

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wanterio/wanterio-backend/internal/session"
	"github.com/wanterio/wanterio-backend/pkg/enums"
	"github.com/wanterio/wanterio-backend/pkg/logger"
)

const attachTimeout = 10 * time.Second

type remoteCart interface {
	Attach(ctx context.Context, userID uuid.UUID) error
	Detach()
}

type sessionSource interface {
	Subscribe(fn func(session.Snapshot)) func()
}

// cartBinder attaches the cart to the signed-in user's remote snapshot and
// detaches it on sign-out. Snapshots are coalesced and applied in order by a
// single goroutine so session listeners never block on the datastore.
type cartBinder struct {
	cart remoteCart
	logg *logger.Logger

	mu      sync.Mutex
	latest  session.Snapshot
	pending bool
	wake    chan struct{}
	done    chan struct{}

	attached uuid.UUID
}

func bindCart(sessions sessionSource, cart remoteCart, logg *logger.Logger) (stop func()) {
	b := &cartBinder{
		cart: cart,
		logg: logg,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		b.loop()
	}()
	unsubscribe := sessions.Subscribe(b.observe)
	return func() {
		unsubscribe()
		close(b.done)
		<-exited
	}
}

func (b *cartBinder) observe(snap session.Snapshot) {
	b.mu.Lock()
	b.latest = snap
	b.pending = true
	b.mu.Unlock()
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *cartBinder) loop() {
	for {
		select {
		case <-b.done:
			return
		case <-b.wake:
		}
		b.mu.Lock()
		snap, pending := b.latest, b.pending
		b.pending = false
		b.mu.Unlock()
		if pending {
			b.apply(snap)
		}
	}
}

func (b *cartBinder) apply(snap session.Snapshot) {
	if snap.Authenticated() && snap.User != nil {
		if snap.User.ID == b.attached {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), attachTimeout)
		defer cancel()
		ctx = b.logg.WithUserID(ctx, snap.User.ID.String())
		if err := b.cart.Attach(ctx, snap.User.ID); err != nil {
			b.logg.Error(ctx, "failed to attach cart to user", err)
			return
		}
		b.attached = snap.User.ID
		return
	}
	if snap.State == enums.SessionStateResolving || b.attached == uuid.Nil {
		return
	}
	b.cart.Detach()
	b.attached = uuid.Nil
}

// navigator records where the session manager last routed the client.
type navigator struct {
	logg *logger.Logger

	mu   sync.Mutex
	path string
}

func newNavigator(logg *logger.Logger) *navigator {
	return &navigator{logg: logg, path: session.HomePath}
}

func (n *navigator) CurrentPath() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path
}

func (n *navigator) Navigate(path string) {
	n.mu.Lock()
	n.path = path
	n.mu.Unlock()
	n.logg.Info(n.logg.WithField(context.Background(), "path", path), "session navigated")
}
