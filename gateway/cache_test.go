package gateway

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryCacheSetGetRoundTrips(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	key := Key("get orders", nil, Fingerprint(AuthContext{Role: "customer"}))

	require.NoError(t, c.Set(key, CachedResult{Columns: []string{"id"}, Rows: [][][]byte{{[]byte("1")}}}))

	got, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, []string{"id"}, got.Columns)
	assert.Equal(t, [][][]byte{{[]byte("1")}}, got.Rows)
}

func TestQueryCacheMissReturnsFalse(t *testing.T) {
	c := NewQueryCache(10, time.Minute)
	_, ok := c.Get("nonexistent")
	assert.False(t, ok)
}

func TestQueryCacheEvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	c := NewQueryCache(2, time.Minute)

	require.NoError(t, c.Set("a", CachedResult{Columns: []string{"a"}}))
	require.NoError(t, c.Set("b", CachedResult{Columns: []string{"b"}}))

	_, _ = c.Get("a") // touch a so it's no longer the least recently used

	require.NoError(t, c.Set("c", CachedResult{Columns: []string{"c"}}))

	assert.Equal(t, 2, c.Len())
	_, aOK := c.Get("a")
	_, bOK := c.Get("b")
	_, cOK := c.Get("c")
	assert.True(t, aOK, "recently touched entry should survive eviction")
	assert.False(t, bOK, "least recently used entry should be evicted")
	assert.True(t, cOK)
}

func TestQueryCacheEntriesExpireByTTL(t *testing.T) {
	c := NewQueryCache(10, 20*time.Millisecond)
	require.NoError(t, c.Set("k", CachedResult{Columns: []string{"id"}}))

	_, ok := c.Get("k")
	require.True(t, ok)

	time.Sleep(60 * time.Millisecond)

	_, ok = c.Get("k")
	assert.False(t, ok, "entry should have expired")
}

func TestKeyDiffersByAuthFingerprint(t *testing.T) {
	k1 := Key("get orders", nil, Fingerprint(AuthContext{Role: "customer"}))
	k2 := Key("get orders", nil, Fingerprint(AuthContext{Role: "admin"}))
	assert.NotEqual(t, k1, k2)
}

func TestKeyDiffersByParams(t *testing.T) {
	k1 := Key("get orders", [][]byte{[]byte("1")}, "")
	k2 := Key("get orders", [][]byte{[]byte("2")}, "")
	assert.NotEqual(t, k1, k2)
}
