package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/craftpc/storefront/internal/domain/cart"
)

const (
	saveCartSQL = `INSERT INTO cart_snapshots (session_id, items, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (session_id) DO UPDATE SET items = EXCLUDED.items, updated_at = now()`

	loadCartSQL = `SELECT items FROM cart_snapshots WHERE session_id = $1`

	deleteCartSQL = `DELETE FROM cart_snapshots WHERE session_id = $1`
)

var _ cart.Persister = (*CartRepository)(nil)

// CartRepository persists cart snapshots as JSONB keyed by session.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Save upserts the session's snapshot. Items are serialized in insertion
// order so a reload replays into an identical cart.
func (r *CartRepository) Save(ctx context.Context, snap cart.Snapshot) error {
	items, err := json.Marshal(snap.Items)
	if err != nil {
		return fmt.Errorf("marshaling cart items: %w", err)
	}
	if _, err := r.pool.Exec(ctx, saveCartSQL, snap.SessionID, items); err != nil {
		return fmt.Errorf("saving cart for session %q: %w", snap.SessionID, err)
	}
	return nil
}

// Load returns the persisted snapshot for a session, or nil when the
// session has none.
func (r *CartRepository) Load(ctx context.Context, sessionID string) (*cart.Snapshot, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx, loadCartSQL, sessionID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading cart for session %q: %w", sessionID, err)
	}

	snap := &cart.Snapshot{SessionID: sessionID}
	if err := json.Unmarshal(raw, &snap.Items); err != nil {
		return nil, fmt.Errorf("unmarshaling cart for session %q: %w", sessionID, err)
	}
	return snap, nil
}

// Delete removes the session's snapshot. Deleting an absent snapshot is
// not an error.
func (r *CartRepository) Delete(ctx context.Context, sessionID string) error {
	if _, err := r.pool.Exec(ctx, deleteCartSQL, sessionID); err != nil {
		return fmt.Errorf("deleting cart for session %q: %w", sessionID, err)
	}
	return nil
}
