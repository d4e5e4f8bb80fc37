package record

import (
	"context"
	"sort"
	"sync"
	"time"

	"kiss/internal/kisserrors"
	"kiss/internal/objectstore"
)

// Store is the record store capability the swarm coordinator and the RPC
// façade depend on, per spec §4.2. Implementations must be safe for
// concurrent use by multiple goroutines.
type Store interface {
	Put(ctx context.Context, r Record) error
	Get(ctx context.Context, key string) (Record, error)
	Remove(ctx context.Context, key string) error
	List(ctx context.Context) ([]string, error)
}

// ObjectStore is a Store backed by an objectstore.Backend, serializing
// records through the YAML envelope. It adds no locking of its own;
// concurrent use is as safe as the backend makes it (objectstore.Local does
// plain file reads and writes with no locking).
type ObjectStore struct {
	backend objectstore.Backend
}

// NewObjectStore wraps backend as a record Store.
func NewObjectStore(backend objectstore.Backend) *ObjectStore {
	return &ObjectStore{backend: backend}
}

func (s *ObjectStore) Put(ctx context.Context, r Record) error {
	data, err := MarshalEnvelope(r)
	if err != nil {
		return err
	}
	return s.backend.Put(ctx, r.Key, data)
}

func (s *ObjectStore) Get(ctx context.Context, key string) (Record, error) {
	data, err := s.backend.Get(ctx, key)
	if err != nil {
		return Record{}, err
	}
	return UnmarshalEnvelope(data)
}

func (s *ObjectStore) Remove(ctx context.Context, key string) error {
	return s.backend.Remove(ctx, key)
}

func (s *ObjectStore) List(ctx context.Context) ([]string, error) {
	return s.backend.List(ctx)
}

// BlockingAdapter bridges the asynchronous-friendly Store interface into the
// synchronous datastore interface go-libp2p-kad-dht's provider/record store
// expects, the Go counterpart of original_source/src/p2p/store.rs's
// block_on+Handle::spawn bridge. Because Go's goroutines make blocking calls
// cheap, the bridge is a direct call with a bounded timeout rather than a
// spawn-and-block dance.
type BlockingAdapter struct {
	store   Store
	timeout time.Duration
}

// NewBlockingAdapter wraps store with a per-call timeout.
func NewBlockingAdapter(store Store, timeout time.Duration) *BlockingAdapter {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &BlockingAdapter{store: store, timeout: timeout}
}

// Put stores r, blocking the caller until completion or timeout. Slow
// backends stall the swarm's event loop when called from it directly —
// spec §9 flags this as a known edge; keep backends fast or move the call
// off the swarm goroutine.
func (b *BlockingAdapter) Put(r Record) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	return b.store.Put(ctx, r)
}

// Get retrieves the record at key, blocking the caller until completion or
// timeout.
func (b *BlockingAdapter) Get(key string) (Record, error) {
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	return b.store.Get(ctx, key)
}

// MemoryStore is an in-memory Store test double, grounded on the shape of
// original_source/src/p2p/memorystore.rs's (commented-out) reference
// RecordStore implementation.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore returns an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (m *MemoryStore) Put(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.Key] = r
	return nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[key]
	if !ok {
		return Record{}, kisserrors.ErrRecordNotFound
	}
	return r, nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

func (m *MemoryStore) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.records))
	for k := range m.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
