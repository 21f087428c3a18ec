package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"sync"

	"github.com/ensembleai/ensemble/pkg/models"
)

// Store is the backing storage for the cache middleware.
type Store interface {
	// Get returns the cached response for a fingerprint, with found=false
	// on a miss.
	Get(ctx context.Context, key string) (resp *models.Response, found bool, err error)
	// Put stores a response under a fingerprint.
	Put(ctx context.Context, key string, resp *models.Response) error
}

// Cache short-circuits repeated invocations: on a fingerprint hit the
// cached response is returned without invoking downstream middleware or
// the agent; on a miss the downstream result is stored.
type Cache struct {
	store Store
}

// NewCache creates a cache middleware over the given store.
func NewCache(store Store) *Cache {
	return &Cache{store: store}
}

// Name identifies the middleware.
func (m *Cache) Name() string { return "cache" }

// Intercept looks up the invocation fingerprint before calling next.
// Store read/write failures degrade to a pass-through rather than failing
// the invocation.
func (m *Cache) Intercept(ctx context.Context, inv *Invocation, next Handler) (*models.Response, error) {
	key := Fingerprint(inv)

	if cached, found, err := m.store.Get(ctx, key); err == nil && found {
		return cached, nil
	}

	resp, err := next(ctx, inv)
	if err != nil {
		return nil, err
	}
	_ = m.store.Put(ctx, key, resp)
	return resp, nil
}

// Fingerprint derives the deterministic cache key for an invocation from
// the agent identity and its full input (message plus visible history).
func Fingerprint(inv *Invocation) string {
	h := sha256.New()
	writeField(h, inv.AgentName)
	writeField(h, inv.Message)
	if inv.Context != nil {
		writeField(h, inv.Context.Task)
		for _, msg := range inv.Context.History {
			writeField(h, string(msg.Role))
			writeField(h, msg.Name)
			writeField(h, msg.Content)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// writeField writes a length-prefixed field so adjacent fields cannot
// collide.
func writeField(w io.Writer, s string) {
	var lenBuf [8]byte
	n := len(s)
	for i := 0; i < 8; i++ {
		lenBuf[i] = byte(n >> (8 * i))
	}
	w.Write(lenBuf[:])
	io.WriteString(w, s)
}

// Verify Cache implements Middleware at compile time.
var _ Middleware = (*Cache)(nil)

// MemoryStore is an in-process Store backed by a map.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*models.Response
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*models.Response)}
}

// Get returns the cached response for a key.
func (s *MemoryStore) Get(ctx context.Context, key string) (*models.Response, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resp, found := s.entries[key]
	return resp, found, nil
}

// Put stores a response under a key.
func (s *MemoryStore) Put(ctx context.Context, key string, resp *models.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = resp
	return nil
}

// Len returns the number of cached entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Verify MemoryStore implements Store at compile time.
var _ Store = (*MemoryStore)(nil)
