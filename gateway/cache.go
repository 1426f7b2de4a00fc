package gateway

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultCacheCapacity is the entry-count bound for the gateway's
// query cache.
const DefaultCacheCapacity = 1024

// CachedResult is what a cache entry stores: the decoded rows a query
// produced, msgpack-encoded (package migrate's backup format uses the
// same library for the same reason: a compact, schema-less binary
// encoding for opaque byte payloads).
type CachedResult struct {
	Columns []string
	Rows    [][][]byte
}

// QueryCache is a read-through cache keyed by the SHA-256 of (SQL +
// parameter bytes + auth-context fingerprint). go-cache (a
// dependency of the example pack, see storj-storj's go.mod) supplies
// TTL expiry for free but has no bound on the number of live entries, so
// this type layers the same capacity-bounded LRU eviction
// pgconn.StatementCache uses for prepared statements on top of it: an
// intrusive list.List tracking recency next to go-cache's own map, kept
// in sync under one mutex. Misses never block concurrent hits because
// Get only takes the read side of go-cache's own internal lock; the LRU
// bookkeeping mutex is only briefly held to update recency, not across
// the miss path's (nonexistent) backing query.
type QueryCache struct {
	ttl time.Duration
	cap int

	store *cache.Cache

	mu      sync.Mutex
	ll      *list.List
	entries map[string]*list.Element
}

// NewQueryCache builds a cache holding at most capacity entries (0 means
// DefaultCacheCapacity), each expiring ttl after insertion.
func NewQueryCache(capacity int, ttl time.Duration) *QueryCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	return &QueryCache{
		ttl:     ttl,
		cap:     capacity,
		store:   cache.New(ttl, ttl*2),
		ll:      list.New(),
		entries: make(map[string]*list.Element, capacity),
	}
}

// Key computes the cache key for a query: SHA-256 over the SQL text,
// the parameter bytes in order, and an auth fingerprint, so two
// identical queries issued under different roles or claims never share
// a cached result.
func Key(sql string, params [][]byte, authFingerprint string) string {
	h := sha256.New()
	h.Write([]byte(sql))
	for _, p := range params {
		h.Write([]byte{0}) // separator so adjacent params can't collide
		h.Write(p)
	}
	h.Write([]byte{0})
	h.Write([]byte(authFingerprint))
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint derives the auth-context fingerprint Key's third argument
// expects from an AuthContext: role and tenant, since those are what a
// cached row set's visibility actually depends on (per-claim
// invalidation is out of scope; claims only affect filter injection,
// which already runs before a query reaches the cache).
func Fingerprint(auth AuthContext) string {
	return auth.Role + "\x00" + auth.TenantID
}

// Get returns the cached result for key, or (nil, false) on a miss
// (not present, or expired and already reaped by go-cache).
func (c *QueryCache) Get(key string) (*CachedResult, bool) {
	raw, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}

	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		c.ll.MoveToFront(el)
	}
	c.mu.Unlock()

	encoded := raw.([]byte)
	var result CachedResult
	if err := msgpack.Unmarshal(encoded, &result); err != nil {
		return nil, false
	}
	return &result, true
}

// Set inserts result under key, evicting the least-recently-used entry
// if the cache is already at capacity.
func (c *QueryCache) Set(key string, result CachedResult) error {
	encoded, err := msgpack.Marshal(result)
	if err != nil {
		return err
	}
	c.store.Set(key, encoded, c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.ll.MoveToFront(el)
		return nil
	}
	el := c.ll.PushFront(key)
	c.entries[key] = el

	if c.ll.Len() > c.cap {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			evictedKey := oldest.Value.(string)
			delete(c.entries, evictedKey)
			c.store.Delete(evictedKey)
		}
	}
	return nil
}

// Len reports the current number of live entries tracked by the LRU
// bound (may include entries go-cache has expired but not yet reaped).
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
