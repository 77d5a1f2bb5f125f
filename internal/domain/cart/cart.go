package cart

import "context"

// Item is a single cart line: one product and its quantity.
// A cart holds at most one Item per product id.
type Item struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Snapshot is the serializable state of a session's cart. Items keep
// insertion order so a persisted snapshot replays into the same cart.
type Snapshot struct {
	SessionID string `json:"session_id"`
	Items     []Item `json:"items"`
}

// Outcome reports the result of an Add call. A duplicate add is not an
// error: the UI surfaces it as a notice while the cart stays unchanged.
type Outcome string

const (
	OutcomeAdded     Outcome = "added"
	OutcomeDuplicate Outcome = "duplicate"
)

// Persister stores cart snapshots so a session survives reloads.
// Persistence is best-effort: the store never rolls back an in-memory
// mutation because a save failed.
type Persister interface {
	Save(ctx context.Context, snap Snapshot) error
	Load(ctx context.Context, sessionID string) (*Snapshot, error)
	Delete(ctx context.Context, sessionID string) error
}
