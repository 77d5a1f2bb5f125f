package cart

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// sessionCart holds one session's items. Mutations to a session are
// serialized by its own mutex; unrelated sessions never contend.
type sessionCart struct {
	mu    sync.Mutex
	items []Item
	index map[string]int
}

func newSessionCart() *sessionCart {
	return &sessionCart{index: make(map[string]int)}
}

// Store keeps per-session carts in memory and mirrors every mutation to a
// Persister. The in-memory cart is the source of truth: a failed save is
// logged and the mutation stands.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*sessionCart

	persister Persister
	lg        *zap.Logger
}

// NewStore creates a Store backed by the given Persister.
func NewStore(persister Persister, lg *zap.Logger) *Store {
	return &Store{
		sessions:  make(map[string]*sessionCart),
		persister: persister,
		lg:        lg,
	}
}

// session returns the cart for sessionID, creating it on first use.
// When the session is not yet in memory the persisted snapshot, if any,
// is replayed so a reload reconstructs state exactly.
func (s *Store) session(ctx context.Context, sessionID string) *sessionCart {
	s.mu.RLock()
	sc, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return sc
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sc, ok = s.sessions[sessionID]; ok {
		return sc
	}

	sc = newSessionCart()
	if snap, err := s.persister.Load(ctx, sessionID); err != nil {
		s.lg.Warn("load cart snapshot",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	} else if snap != nil {
		for _, item := range snap.Items {
			if _, dup := sc.index[item.ProductID]; dup {
				continue
			}
			sc.index[item.ProductID] = len(sc.items)
			sc.items = append(sc.items, item)
		}
	}
	s.sessions[sessionID] = sc
	return sc
}

// Add inserts a CartItem with quantity 1 for the given product. Adding a
// product already in the cart is a no-op reporting OutcomeDuplicate.
func (s *Store) Add(ctx context.Context, sessionID, productID string) Outcome {
	sc := s.session(ctx, sessionID)
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if _, ok := sc.index[productID]; ok {
		return OutcomeDuplicate
	}
	sc.index[productID] = len(sc.items)
	sc.items = append(sc.items, Item{ProductID: productID, Quantity: 1})

	s.persist(ctx, sessionID, sc)
	return OutcomeAdded
}

// Remove deletes the item for the given product. Removing an absent
// product is a silent no-op.
func (s *Store) Remove(ctx context.Context, sessionID, productID string) {
	sc := s.session(ctx, sessionID)
	sc.mu.Lock()
	defer sc.mu.Unlock()

	i, ok := sc.index[productID]
	if !ok {
		return
	}
	sc.items = append(sc.items[:i], sc.items[i+1:]...)
	delete(sc.index, productID)
	for j := i; j < len(sc.items); j++ {
		sc.index[sc.items[j].ProductID] = j
	}

	s.persist(ctx, sessionID, sc)
}

// SetQuantity replaces the quantity for an existing item. It is a no-op
// when the product is not in the cart. Stock checks belong to checkout,
// not here.
func (s *Store) SetQuantity(ctx context.Context, sessionID, productID string, quantity int) {
	sc := s.session(ctx, sessionID)
	sc.mu.Lock()
	defer sc.mu.Unlock()

	i, ok := sc.index[productID]
	if !ok {
		return
	}
	sc.items[i].Quantity = quantity

	s.persist(ctx, sessionID, sc)
}

// Snapshot returns a copy of the session's cart in insertion order.
func (s *Store) Snapshot(ctx context.Context, sessionID string) Snapshot {
	sc := s.session(ctx, sessionID)
	sc.mu.Lock()
	defer sc.mu.Unlock()

	items := make([]Item, len(sc.items))
	copy(items, sc.items)
	return Snapshot{SessionID: sessionID, Items: items}
}

// Clear empties the session's cart and removes its persisted snapshot.
// Checkout calls this after a confirmed payment.
func (s *Store) Clear(ctx context.Context, sessionID string) {
	sc := s.session(ctx, sessionID)
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.items = nil
	sc.index = make(map[string]int)

	if err := s.persister.Delete(ctx, sessionID); err != nil {
		s.lg.Warn("delete cart snapshot",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
}

// persist saves the current items under the session's lock. Failures are
// logged and do not revert the mutation.
func (s *Store) persist(ctx context.Context, sessionID string, sc *sessionCart) {
	items := make([]Item, len(sc.items))
	copy(items, sc.items)

	if err := s.persister.Save(ctx, Snapshot{SessionID: sessionID, Items: items}); err != nil {
		s.lg.Warn("persist cart snapshot",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}
}
