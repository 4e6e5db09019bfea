package cartstore

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"sufra/models"
)

const (
	primaryKeyPrefix = "cart:"
	backupKeyPrefix  = "cart:backup:"

	// Session backups expire on their own if nobody comes back for them.
	backupTTL = 30 * time.Minute
)

// ErrInvalidImport reports an import blob missing the cart envelope keys.
var ErrInvalidImport = errors.New("cartstore: import payload is not a cart snapshot")

// Store owns one user's cart state. All mutations pass through Dispatch;
// every transition is persisted before the call returns. Reads are projections
// over the current snapshot.
type Store struct {
	mu      sync.Mutex
	storage Storage
	key     string
	state   models.CartState
	agg     *aggregates
}

// New returns an empty store for key without touching storage.
func New(storage Storage, key string) *Store {
	return &Store{storage: storage, key: key, state: emptyState()}
}

// Load reads the persisted snapshot for key, migrating old schema versions
// and falling back to a fresh empty cart when the blob is absent or
// unreadable. The session backup, if any, is drained as a side effect.
func Load(ctx context.Context, storage Storage, key string) *Store {
	s := New(storage, key)
	s.state = loadState(ctx, storage, key)
	s.drainBackup(ctx)
	return s
}

func loadState(ctx context.Context, storage Storage, key string) models.CartState {
	raw, err := storage.Get(ctx, primaryKeyPrefix+key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Println("cart: storage read failed:", err)
		}
		return emptyState()
	}
	return decodeState(raw)
}

// decodeState parses a stored snapshot. Version 1 blobs are reshaped into the
// current schema; unrecognized versions pass through unchanged.
func decodeState(raw []byte) models.CartState {
	var parsed models.CartState
	if err := json.Unmarshal(raw, &parsed); err != nil {
		log.Println("cart: failed to parse stored cart:", err)
		return emptyState()
	}
	if parsed.BranchCarts == nil {
		parsed.BranchCarts = map[int]models.BranchCart{}
	}
	if parsed.Version == 1 {
		return models.CartState{
			BranchCarts: parsed.BranchCarts,
			Version:     CurrentVersion,
		}
	}
	return parsed
}

// Dispatch applies an action and persists the resulting state.
func (s *Store) Dispatch(ctx context.Context, action Action) {
	s.mu.Lock()
	s.state = Reduce(s.state, action)
	s.agg = nil
	state := s.state
	s.mu.Unlock()

	s.persist(ctx, state)
}

func (s *Store) persist(ctx context.Context, state models.CartState) {
	raw, err := json.Marshal(state)
	if err != nil {
		log.Println("cart: failed to serialize cart:", err)
		return
	}
	if err := s.storage.Set(ctx, primaryKeyPrefix+s.key, raw, 0); err != nil {
		log.Println("cart: persist failed:", err)
	}
}

// State returns the current snapshot. Callers must treat it as read-only.
func (s *Store) State() models.CartState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SaveBackup writes the session-scoped backup snapshot. Invoked by the client
// on tab close so a crashed session leaves a trail.
func (s *Store) SaveBackup(ctx context.Context) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	raw, err := json.Marshal(state)
	if err != nil {
		log.Println("cart: failed to serialize backup:", err)
		return
	}
	if err := s.storage.Set(ctx, backupKeyPrefix+s.key, raw, backupTTL); err != nil {
		log.Println("cart: backup write failed:", err)
	}
}

// drainBackup reads and clears the session backup. The snapshot is discarded:
// applying it automatically would need a product decision on which copy wins.
func (s *Store) drainBackup(ctx context.Context) {
	raw, err := s.storage.Get(ctx, backupKeyPrefix+s.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Println("cart: backup read failed:", err)
		}
		return
	}
	if err := s.storage.Delete(ctx, backupKeyPrefix+s.key); err != nil {
		log.Println("cart: backup clear failed:", err)
	}
	_ = raw
}

// Export serializes the full cart state to a transportable string.
func (s *Store) Export() (string, error) {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	raw, err := json.Marshal(state)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// Import restores a previously exported snapshot via SyncCart. The blob is
// only checked for the cart envelope keys before being accepted.
func (s *Store) Import(ctx context.Context, data string) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &probe); err != nil {
		return ErrInvalidImport
	}
	if _, ok := probe["branchCarts"]; !ok {
		return ErrInvalidImport
	}
	if _, ok := probe["version"]; !ok {
		return ErrInvalidImport
	}

	var state models.CartState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return ErrInvalidImport
	}
	s.Dispatch(ctx, SyncCart{State: state})
	return nil
}
