package pgconn

import (
	"container/list"
	"encoding/hex"
	"hash/fnv"
)

// StatementCache is a per-connection bounded LRU mapping the 64-bit hash
// of an encoded SQL statement's bytes to the server-side prepared
// statement name that was Parse'd for it (spec §3.5). Capacity is fixed;
// eviction drops the map/list entry only — the server keeps the prepared
// statement alive until the connection closes (spec §4.G: "evicted
// statements remain on the server ... acceptable server-side memory
// bound"), so eviction here never sends a Close message.
type StatementCache struct {
	capacity int
	ll       *list.List // front = most recently used
	entries  map[uint64]*list.Element
}

type cacheEntry struct {
	hash uint64
	name string
}

// NewStatementCache creates a cache holding at most capacity entries.
func NewStatementCache(capacity int) *StatementCache {
	return &StatementCache{
		capacity: capacity,
		ll:       list.New(),
		entries:  make(map[uint64]*list.Element, capacity),
	}
}

// HashSQL computes the 64-bit hash spec §3.5 keys the cache by. FNV-1a is
// stdlib and non-cryptographic, exactly the shape this key needs (cache
// keying, not security-sensitive); no hashing library appears anywhere in
// the example pack for this purpose.
func HashSQL(sql string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(sql))
	return h.Sum64()
}

// Lookup returns the cached statement name for hash, marking it
// most-recently-used, or ("", false) on a miss.
func (c *StatementCache) Lookup(hash uint64) (string, bool) {
	el, ok := c.entries[hash]
	if !ok {
		return "", false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*cacheEntry).name, true
}

// StatementName returns the deterministic "qail_<hex hash>" name spec
// §4.G names the Parse step a statement gets on a cache miss.
func StatementName(hash uint64) string {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(hash >> (56 - 8*i))
	}
	return "qail_" + hex.EncodeToString(buf[:])
}

// Insert records a newly Parse'd statement, evicting the least-recently
// used entry if the cache is already at capacity.
func (c *StatementCache) Insert(hash uint64, name string) {
	if el, ok := c.entries[hash]; ok {
		c.ll.MoveToFront(el)
		el.Value.(*cacheEntry).name = name
		return
	}
	el := c.ll.PushFront(&cacheEntry{hash: hash, name: name})
	c.entries[hash] = el

	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).hash)
		}
	}
}

// Len reports the current number of cached statements.
func (c *StatementCache) Len() int { return c.ll.Len() }
