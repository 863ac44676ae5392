package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wanterio/wanterio-backend/pkg/backend"
	"github.com/wanterio/wanterio-backend/pkg/logger"
	"github.com/wanterio/wanterio-backend/pkg/storage"
)

type fakeRemote struct {
	mu      sync.Mutex
	stored  map[uuid.UUID]backend.CartSnapshot
	saves   int
	loadErr error
	saveErr error
	block   bool
}

func (f *fakeRemote) SaveCartSnapshot(ctx context.Context, userID uuid.UUID, snapshot backend.CartSnapshot) error {
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.stored == nil {
		f.stored = map[uuid.UUID]backend.CartSnapshot{}
	}
	f.stored[userID] = snapshot
	f.saves++
	return nil
}

func (f *fakeRemote) LoadCartSnapshot(_ context.Context, userID uuid.UUID) (*backend.CartSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	snap, ok := f.stored[userID]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (f *fakeRemote) snapshot(userID uuid.UUID) (backend.CartSnapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.stored[userID]
	return snap, ok
}

func TestMutationsSyncAfterAttach(t *testing.T) {
	remote := &fakeRemote{}
	m := newTestManager(t, storage.NewMemoryStore(0), remote)
	userID := uuid.New()

	require.True(t, m.AddItem(medicine("before", "1", 10), 1))
	require.NoError(t, m.Attach(context.Background(), userID))
	require.True(t, m.AddItem(medicine("a", "2", 10), 2))
	m.Close()

	snap, ok := remote.snapshot(userID)
	require.True(t, ok)
	decoded := Decode(snap.Payload)
	require.False(t, decoded.Corrupt)
	assert.Len(t, decoded.Cart.Items, 2)
	assert.Equal(t, 3, decoded.Cart.ItemCount)
	assert.True(t, snap.LastUpdated.Equal(m.GetCart().LastUpdated))
}

func TestNoSyncWhileDetached(t *testing.T) {
	remote := &fakeRemote{}
	m := newTestManager(t, storage.NewMemoryStore(0), remote)
	userID := uuid.New()

	require.True(t, m.AddItem(medicine("a", "1", 10), 1))
	require.NoError(t, m.Attach(context.Background(), userID))
	m.Detach()
	m.ClearCart()
	m.Close()

	snap, ok := remote.snapshot(userID)
	if ok {
		assert.Len(t, Decode(snap.Payload).Cart.Items, 1)
	}
	assert.Len(t, m.GetCart().Items, 0)
}

func TestAttachPrefersNewerRemoteCart(t *testing.T) {
	userID := uuid.New()
	remoteCart := snapshotOf([]Item{{ID: "r", Name: "Remote", Price: decimal.RequireFromString("5"), StockQuantity: 9, Quantity: 2}}, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	payload, err := Encode(remoteCart)
	require.NoError(t, err)
	remote := &fakeRemote{stored: map[uuid.UUID]backend.CartSnapshot{
		userID: {Payload: payload, LastUpdated: remoteCart.LastUpdated},
	}}

	store := storage.NewMemoryStore(0)
	m := newTestManager(t, store, remote)
	require.True(t, m.AddItem(medicine("local", "1", 10), 1))

	var notified []Cart
	unsubscribe := m.Subscribe(func(c Cart) { notified = append(notified, c) })
	defer unsubscribe()

	require.NoError(t, m.Attach(context.Background(), userID))
	c := m.GetCart()
	require.Len(t, c.Items, 1)
	assert.Equal(t, "r", c.Items[0].ID)
	assertDecimal(t, "10", c.Total)
	require.Len(t, notified, 2)

	persisted, err := store.Get(context.Background(), StorageKey)
	require.NoError(t, err)
	assert.Equal(t, "r", Decode(persisted).Cart.Items[0].ID)
}

func TestAttachPushesNewerLocalCart(t *testing.T) {
	userID := uuid.New()
	stale, err := Encode(snapshotOf(nil, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	remote := &fakeRemote{stored: map[uuid.UUID]backend.CartSnapshot{
		userID: {Payload: stale, LastUpdated: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
	}}

	m := newTestManager(t, storage.NewMemoryStore(0), remote)
	require.True(t, m.AddItem(medicine("local", "1", 10), 4))
	require.NoError(t, m.Attach(context.Background(), userID))
	m.Close()

	snap, ok := remote.snapshot(userID)
	require.True(t, ok)
	assert.Equal(t, 4, Decode(snap.Payload).Cart.ItemCount)
}

func TestAttachLoadFailure(t *testing.T) {
	remote := &fakeRemote{loadErr: errors.New("boom")}
	m := newTestManager(t, storage.NewMemoryStore(0), remote)
	assert.Error(t, m.Attach(context.Background(), uuid.New()))

	remote = &fakeRemote{loadErr: backend.ErrNotConfigured}
	m = newTestManager(t, storage.NewMemoryStore(0), remote)
	assert.NoError(t, m.Attach(context.Background(), uuid.New()))
}

func TestSyncFailureDoesNotAffectMutations(t *testing.T) {
	remote := &fakeRemote{saveErr: errors.New("remote down")}
	m := newTestManager(t, storage.NewMemoryStore(0), remote)
	require.NoError(t, m.Attach(context.Background(), uuid.New()))

	assert.True(t, m.AddItem(medicine("a", "1", 10), 1))
	assert.True(t, m.UpdateQuantity("a", 5))
	m.Close()
	assert.Equal(t, 5, m.GetCart().ItemCount)
}

func TestHungRemoteIsBoundedByTimeout(t *testing.T) {
	remote := &fakeRemote{block: true}
	m := newTestManager(t, storage.NewMemoryStore(0), remote)
	require.NoError(t, m.Attach(context.Background(), uuid.New()))

	started := time.Now()
	assert.True(t, m.AddItem(medicine("a", "1", 10), 1))
	assert.Less(t, time.Since(started), 50*time.Millisecond)

	m.Close()
	assert.Less(t, time.Since(started), 2*time.Second)
}

func TestWorkerCoalescesPendingSnapshots(t *testing.T) {
	remote := &fakeRemote{}
	w := &syncWorker{remote: remote, timeout: time.Second, logg: logger.Nop(), wake: make(chan struct{}, 1), done: make(chan struct{})}
	userID := uuid.New()
	for i := 0; i < 5; i++ {
		w.enqueue(syncJob{userID: userID, snapshot: backend.CartSnapshot{Payload: string(rune('a' + i))}})
	}

	go w.run()
	w.close()

	snap, ok := remote.snapshot(userID)
	require.True(t, ok)
	assert.Equal(t, "e", snap.Payload)
	assert.Equal(t, 1, remote.saves)
}

func TestAttachNeverHandsOneAccountsCartToAnother(t *testing.T) {
	remote := &fakeRemote{}
	store := storage.NewMemoryStore(0)
	m := newTestManager(t, store, remote)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	require.NoError(t, m.Attach(ctx, alice))
	require.True(t, m.AddItem(medicine("oxy", "40", 10), 3))
	m.Detach()
	require.NoError(t, m.Attach(ctx, bob))
	m.Close()

	_, pushed := remote.snapshot(bob)
	assert.False(t, pushed)
	assert.Empty(t, m.GetCart().Items)
	owner, err := store.Get(ctx, OwnerKey)
	require.NoError(t, err)
	assert.Equal(t, bob.String(), owner)
}

func TestAttachAdoptsRemoteCartOfNewAccount(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	bobCart := snapshotOf([]Item{{ID: "b", Name: "Bob", Price: decimal.RequireFromString("2"), StockQuantity: 5, Quantity: 1}}, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))
	payload, err := Encode(bobCart)
	require.NoError(t, err)
	remote := &fakeRemote{stored: map[uuid.UUID]backend.CartSnapshot{
		bob: {Payload: payload, LastUpdated: bobCart.LastUpdated},
	}}

	store := storage.NewMemoryStore(0)
	m := newTestManager(t, store, remote)
	ctx := context.Background()
	require.NoError(t, m.Attach(ctx, alice))
	require.True(t, m.AddItem(medicine("a", "1", 10), 2))
	m.Detach()

	// A restart keeps the recorded owner alongside the cart.
	reloaded := newTestManager(t, store, remote)
	require.NoError(t, reloaded.Attach(ctx, bob))

	c := reloaded.GetCart()
	require.Len(t, c.Items, 1)
	assert.Equal(t, "b", c.Items[0].ID)
	m.Close()
	reloaded.Close()
	assert.Equal(t, payload, mustSnapshot(t, remote, bob).Payload)
}

func TestGuestCartMergesIntoFirstAccount(t *testing.T) {
	remote := &fakeRemote{}
	m := newTestManager(t, storage.NewMemoryStore(0), remote)
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()

	require.NoError(t, m.Attach(ctx, alice))
	require.True(t, m.AddItem(medicine("a", "1", 10), 1))
	m.Detach()
	m.ClearCart()
	require.True(t, m.AddItem(medicine("guest", "1", 10), 2))
	require.NoError(t, m.Attach(ctx, bob))
	m.Close()

	assert.Equal(t, 2, Decode(mustSnapshot(t, remote, bob).Payload).Cart.ItemCount)
}

func mustSnapshot(t *testing.T, remote *fakeRemote, userID uuid.UUID) backend.CartSnapshot {
	t.Helper()
	snap, ok := remote.snapshot(userID)
	require.True(t, ok)
	return snap
}
