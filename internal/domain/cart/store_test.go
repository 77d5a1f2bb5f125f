package cart

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockPersister struct {
	saved   map[string]Snapshot
	saveErr error
	loadErr error
	deleted []string
}

func newMockPersister() *mockPersister {
	return &mockPersister{saved: make(map[string]Snapshot)}
}

func (m *mockPersister) Save(_ context.Context, snap Snapshot) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved[snap.SessionID] = snap
	return nil
}

func (m *mockPersister) Load(_ context.Context, sessionID string) (*Snapshot, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	snap, ok := m.saved[sessionID]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (m *mockPersister) Delete(_ context.Context, sessionID string) error {
	m.deleted = append(m.deleted, sessionID)
	delete(m.saved, sessionID)
	return nil
}

func TestStore_AddReportsDuplicate(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMockPersister(), zap.NewNop())

	assert.Equal(t, OutcomeAdded, store.Add(ctx, "s1", "p1"))
	assert.Equal(t, OutcomeDuplicate, store.Add(ctx, "s1", "p1"))
	assert.Equal(t, OutcomeDuplicate, store.Add(ctx, "s1", "p1"))

	snap := store.Snapshot(ctx, "s1")
	require.Len(t, snap.Items, 1)
	assert.Equal(t, Item{ProductID: "p1", Quantity: 1}, snap.Items[0])
}

func TestStore_RemoveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMockPersister(), zap.NewNop())

	store.Add(ctx, "s1", "p1")
	store.Add(ctx, "s1", "p2")

	store.Remove(ctx, "s1", "p1")
	store.Remove(ctx, "s1", "p1")
	store.Remove(ctx, "s1", "missing")

	snap := store.Snapshot(ctx, "s1")
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "p2", snap.Items[0].ProductID)
}

func TestStore_SetQuantity(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMockPersister(), zap.NewNop())

	store.Add(ctx, "s1", "p1")
	store.SetQuantity(ctx, "s1", "p1", 4)
	store.SetQuantity(ctx, "s1", "absent", 9)

	snap := store.Snapshot(ctx, "s1")
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 4, snap.Items[0].Quantity)
}

func TestStore_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newMockPersister(), zap.NewNop())

	store.Add(ctx, "s1", "p1")
	store.Add(ctx, "s2", "p2")

	assert.Len(t, store.Snapshot(ctx, "s1").Items, 1)
	assert.Equal(t, "p2", store.Snapshot(ctx, "s2").Items[0].ProductID)
}

func TestStore_PersistFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	p := newMockPersister()
	p.saveErr = errors.New("connection reset")
	store := NewStore(p, zap.NewNop())

	assert.Equal(t, OutcomeAdded, store.Add(ctx, "s1", "p1"))
	store.SetQuantity(ctx, "s1", "p1", 3)

	snap := store.Snapshot(ctx, "s1")
	require.Len(t, snap.Items, 1)
	assert.Equal(t, 3, snap.Items[0].Quantity)
}

func TestStore_ReloadReplaysSnapshot(t *testing.T) {
	ctx := context.Background()
	p := newMockPersister()

	store := NewStore(p, zap.NewNop())
	store.Add(ctx, "s1", "p1")
	store.Add(ctx, "s1", "p2")
	store.SetQuantity(ctx, "s1", "p2", 5)

	// A fresh store simulates a process restart; state comes back from
	// the persisted snapshot in insertion order.
	reloaded := NewStore(p, zap.NewNop())
	snap := reloaded.Snapshot(ctx, "s1")
	require.Len(t, snap.Items, 2)
	assert.Equal(t, Item{ProductID: "p1", Quantity: 1}, snap.Items[0])
	assert.Equal(t, Item{ProductID: "p2", Quantity: 5}, snap.Items[1])
}

func TestStore_ClearEmptiesCartAndSnapshot(t *testing.T) {
	ctx := context.Background()
	p := newMockPersister()
	store := NewStore(p, zap.NewNop())

	store.Add(ctx, "s1", "p1")
	store.Clear(ctx, "s1")

	assert.Empty(t, store.Snapshot(ctx, "s1").Items)
	assert.Contains(t, p.deleted, "s1")
}
