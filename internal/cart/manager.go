package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wanterio/wanterio-backend/pkg/backend"
	"github.com/wanterio/wanterio-backend/pkg/logger"
	"github.com/wanterio/wanterio-backend/pkg/metrics"
	"github.com/wanterio/wanterio-backend/pkg/observer"
	"github.com/wanterio/wanterio-backend/pkg/storage"
)

const (
	opAdd          = "add"
	opUpdate       = "update_quantity"
	opRemove       = "remove"
	opClear        = "clear"
	opRefreshStock = "refresh_stock"
	opAttach       = "attach"
	opDeduct       = "deduct"

	defaultSyncTimeout = 10 * time.Second
)

// ManagerParams bundles the dependencies required to build a Manager.
// Remote is optional; without it the cart never leaves local storage.
type ManagerParams struct {
	Storage     storage.Store
	Remote      backend.CartSnapshots
	Logger      *logger.Logger
	Metrics     *metrics.CartMetrics
	Clock       func() time.Time
	SyncTimeout time.Duration
}

// Manager owns the cart state of one profile. It is safe for concurrent use.
//
// Mutations are serialized under mu. Notifications are delivered in mutation
// order: a mutation acquires notifyMu before releasing mu. Listeners must not
// mutate the cart synchronously; they may subscribe or unsubscribe.
type Manager struct {
	store   storage.Store
	remote  backend.CartSnapshots
	logg    *logger.Logger
	metrics *metrics.CartMetrics
	now     func() time.Time
	hub     *observer.Hub[observer.Revision[Cart]]
	worker  *syncWorker

	mu          sync.Mutex
	notifyMu    sync.Mutex
	items       []Item
	lastUpdated time.Time
	rev         uint64
	owner       *uuid.UUID

	// holder is the account the local lines were last bound to; uuid.Nil
	// marks a guest cart. It survives Detach so another account never
	// inherits the lines.
	holder uuid.UUID
	closed bool
}

// NewManager builds the cart manager and hydrates it from local storage.
func NewManager(params ManagerParams) (*Manager, error) {
	if params.Storage == nil {
		return nil, fmt.Errorf("cart storage is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	timeout := params.SyncTimeout
	if timeout <= 0 {
		timeout = defaultSyncTimeout
	}

	m := &Manager{
		store:   params.Storage,
		remote:  params.Remote,
		logg:    logg,
		metrics: params.Metrics,
		now:     now,
		hub:     observer.NewHub[observer.Revision[Cart]](),
		items:   []Item{},
	}
	if m.remote != nil {
		m.worker = newSyncWorker(m.remote, timeout, logg, params.Metrics)
	}
	m.hydrate(context.Background())
	return m, nil
}

func (m *Manager) hydrate(ctx context.Context) {
	payload, err := m.store.Get(ctx, StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		m.metrics.IncPersistFailure("load")
		m.logg.Error(ctx, "failed to load persisted cart", err)
		return
	}

	result := Decode(payload)
	switch {
	case result.Corrupt:
		m.logg.Warn(ctx, "persisted cart is unreadable; starting empty")
	case result.Dropped > 0:
		m.logg.Warn(m.logg.WithField(ctx, "dropped_items", result.Dropped), "dropped invalid items from persisted cart")
	}
	m.items = result.Cart.Items
	m.lastUpdated = result.Cart.LastUpdated
	m.metrics.SetItemCount(result.Cart.ItemCount)

	if raw, err := m.store.Get(ctx, OwnerKey); err == nil {
		if holder, err := uuid.Parse(raw); err == nil && len(m.items) > 0 {
			m.holder = holder
		}
	}
}

// AddItem adds quantity units of item. It returns false without mutating when
// quantity is not positive or the resulting quantity would exceed the item's
// stock. Adding an id already in the cart sums the quantities.
func (m *Manager) AddItem(item Item, quantity int) bool {
	if quantity <= 0 || strings.TrimSpace(item.ID) == "" || item.Price.IsNegative() || item.StockQuantity < 0 {
		m.metrics.ObserveMutation(opAdd, false)
		return false
	}

	m.mu.Lock()
	now := m.now().UTC()
	idx := indexOf(m.items, item.ID)
	if idx >= 0 {
		existing := m.items[idx]
		next := existing.Quantity + quantity
		if next > item.StockQuantity {
			m.mu.Unlock()
			m.metrics.ObserveMutation(opAdd, false)
			return false
		}
		existing.Quantity = next
		existing.StockQuantity = item.StockQuantity
		existing.UpdatedAt = now
		m.items[idx] = existing
	} else {
		if quantity > item.StockQuantity {
			m.mu.Unlock()
			m.metrics.ObserveMutation(opAdd, false)
			return false
		}
		item.Quantity = quantity
		item.CreatedAt = now
		item.UpdatedAt = now
		m.items = append(m.items, item)
	}
	m.commit(opAdd, now, true)
	return true
}

// UpdateQuantity sets the absolute quantity of a line. A quantity of zero or
// less removes the line, exactly like RemoveItem.
func (m *Manager) UpdateQuantity(id string, quantity int) bool {
	if quantity <= 0 {
		m.RemoveItem(id)
		return true
	}

	m.mu.Lock()
	idx := indexOf(m.items, id)
	if idx < 0 || quantity > m.items[idx].StockQuantity {
		m.mu.Unlock()
		m.metrics.ObserveMutation(opUpdate, false)
		return false
	}
	now := m.now().UTC()
	m.items[idx].Quantity = quantity
	m.items[idx].UpdatedAt = now
	m.commit(opUpdate, now, true)
	return true
}

// RemoveItem drops the line with the given id. Removing an absent id leaves
// the snapshot unchanged but still persists and notifies.
func (m *Manager) RemoveItem(id string) {
	m.mu.Lock()
	idx := indexOf(m.items, id)
	if idx < 0 {
		m.commit(opRemove, m.lastUpdated, false)
		return
	}
	m.items = append(m.items[:idx:idx], m.items[idx+1:]...)
	m.commit(opRemove, m.now().UTC(), true)
}

// ClearCart empties the cart.
func (m *Manager) ClearCart() {
	m.mu.Lock()
	m.items = []Item{}
	m.commit(opClear, m.now().UTC(), true)
}

// Deduct subtracts ordered quantities keyed by item id, dropping lines that
// reach zero. Units added after the order was priced stay in the cart.
func (m *Manager) Deduct(ordered map[string]int) {
	m.mu.Lock()
	changed := false
	kept := m.items[:0:0]
	for _, item := range m.items {
		if qty, ok := ordered[item.ID]; ok && qty > 0 {
			changed = true
			if item.Quantity <= qty {
				continue
			}
			item.Quantity -= qty
		}
		kept = append(kept, item)
	}
	if !changed {
		m.mu.Unlock()
		m.metrics.ObserveMutation(opDeduct, false)
		return
	}
	m.items = kept
	m.commit(opDeduct, m.now().UTC(), true)
}

// GetCart returns a copy of the current cart.
func (m *Manager) GetCart() Cart {
	m.mu.Lock()
	defer m.mu.Unlock()
	return snapshotOf(m.items, m.lastUpdated)
}

// Subscribe registers fn, calls it once with the current cart and then after
// every mutation. The returned function unsubscribes and is idempotent.
func (m *Manager) Subscribe(fn func(Cart)) func() {
	if fn == nil {
		return func() {}
	}
	deliver := observer.Monotonic(fn)
	m.mu.Lock()
	current := observer.Revision[Cart]{Value: snapshotOf(m.items, m.lastUpdated), Seq: m.rev}
	unsubscribe := m.hub.Subscribe(deliver)
	m.mu.Unlock()

	deliver(current)
	return unsubscribe
}

// ValidateStock checks every line against its last known stock snapshot.
// It does not refresh stock from the backend.
func (m *Manager) ValidateStock() StockValidation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return validateStock(m.items)
}

// RefreshStock overwrites stock snapshots with fresh levels keyed by item id
// and returns the resulting validation. Quantities are never changed; lines
// without a level keep their snapshot.
func (m *Manager) RefreshStock(levels map[string]int) StockValidation {
	m.mu.Lock()
	changed := false
	for i := range m.items {
		level, ok := levels[m.items[i].ID]
		if !ok {
			continue
		}
		if level < 0 {
			level = 0
		}
		if m.items[i].StockQuantity != level {
			m.items[i].StockQuantity = level
			changed = true
		}
	}
	result := validateStock(m.items)
	if !changed {
		m.mu.Unlock()
		return result
	}
	m.commit(opRefreshStock, m.now().UTC(), true)
	return result
}

// Attach binds the cart to userID's remote snapshot. The newer of the local
// and remote carts wins; later mutations are synced in the background. Lines
// held for a different account are never pushed: the remote cart replaces
// them, or the cart is emptied when userID has none.
func (m *Manager) Attach(ctx context.Context, userID uuid.UUID) error {
	if m.remote == nil {
		return nil
	}
	if userID == uuid.Nil {
		return fmt.Errorf("user id is required")
	}

	remote, err := m.remote.LoadCartSnapshot(ctx, userID)
	if err != nil {
		if backend.IsNotConfigured(err) {
			return nil
		}
		m.metrics.ObserveSync(metrics.SyncFailed, 0)
		return fmt.Errorf("load remote cart: %w", err)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	owner := userID
	m.owner = &owner

	if m.holder != uuid.Nil && m.holder != userID {
		m.logg.Info(m.logg.WithUserID(ctx, userID.String()), "dropping cart held for another account")
		m.setHolder(ctx, userID)
		items, at := []Item{}, m.now().UTC()
		if remote != nil {
			items, at = Decode(remote.Payload).Cart.Items, remote.LastUpdated
		}
		m.items = items
		m.commitLocal(opAttach, at)
		return nil
	}
	m.setHolder(ctx, userID)

	if remote != nil && remote.LastUpdated.After(m.lastUpdated) {
		result := Decode(remote.Payload)
		if result.Corrupt || result.Dropped > 0 {
			m.logg.Warn(m.logg.WithUserID(ctx, userID.String()), "remote cart snapshot needed repair")
		}
		m.items = result.Cart.Items
		m.commitLocal(opAttach, remote.LastUpdated)
		return nil
	}

	if remote == nil && len(m.items) == 0 {
		m.mu.Unlock()
		return nil
	}
	m.enqueueLocked()
	m.mu.Unlock()
	return nil
}

// Detach stops remote syncing. The local cart is kept and stays bound to the
// account it was attached to unless it is empty.
func (m *Manager) Detach() {
	m.mu.Lock()
	m.owner = nil
	if len(m.items) == 0 {
		m.setHolder(context.Background(), uuid.Nil)
	}
	m.mu.Unlock()
	if m.worker != nil {
		m.worker.discard()
	}
}

// Close flushes pending remote syncs and stops the sync worker.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()
	if m.worker != nil {
		m.worker.close()
	}
}

// commit must be called with mu held; it releases mu. It persists the cart,
// queues a remote sync when the state changed and notifies subscribers.
func (m *Manager) commit(op string, at time.Time, changed bool) {
	m.lastUpdated = at
	m.metrics.ObserveMutation(op, true)
	if changed {
		m.enqueueLocked()
	}
	m.commitLocal(op, at)
}

// commitLocal persists and notifies without touching remote sync. Called with
// mu held; releases it.
func (m *Manager) commitLocal(op string, at time.Time) {
	m.lastUpdated = at
	m.rev++
	snapshot := snapshotOf(m.items, m.lastUpdated)
	m.persist(snapshot, op)
	m.metrics.SetItemCount(snapshot.ItemCount)
	if m.owner == nil && len(m.items) == 0 {
		m.setHolder(context.Background(), uuid.Nil)
	}

	out := observer.Revision[Cart]{Value: snapshot, Seq: m.rev}
	m.notifyMu.Lock()
	m.mu.Unlock()
	defer m.notifyMu.Unlock()
	m.hub.Publish(out)
}

// setHolder records which account the local lines belong to. Called with mu
// held.
func (m *Manager) setHolder(ctx context.Context, holder uuid.UUID) {
	if m.holder == holder {
		return
	}
	m.holder = holder
	var err error
	if holder == uuid.Nil {
		err = m.store.Delete(ctx, OwnerKey)
	} else {
		err = m.store.Set(ctx, OwnerKey, holder.String())
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		m.metrics.IncPersistFailure("owner")
		m.logg.Error(ctx, "failed to persist cart owner", err)
	}
}

func (m *Manager) persist(snapshot Cart, op string) {
	ctx := m.logg.WithField(context.Background(), "op", op)
	payload, err := Encode(snapshot)
	if err != nil {
		m.metrics.IncPersistFailure("encode")
		m.logg.Error(ctx, "failed to encode cart", err)
		return
	}
	if err := m.store.Set(ctx, StorageKey, payload); err != nil {
		m.metrics.IncPersistFailure("save")
		m.logg.Error(ctx, "failed to persist cart", err)
	}
}

// enqueueLocked hands the current cart to the sync worker. Called with mu held.
func (m *Manager) enqueueLocked() {
	if m.worker == nil || m.owner == nil || m.closed {
		return
	}
	snapshot := snapshotOf(m.items, m.lastUpdated)
	payload, err := Encode(snapshot)
	if err != nil {
		m.logg.Error(context.Background(), "failed to encode cart for sync", err)
		return
	}
	m.worker.enqueue(syncJob{
		userID:   *m.owner,
		snapshot: backend.CartSnapshot{Payload: payload, LastUpdated: snapshot.LastUpdated},
	})
}
