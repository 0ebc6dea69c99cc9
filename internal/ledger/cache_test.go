package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCacheMissVsTombstone(t *testing.T) {
	c := NewEntryCache(16)
	key := AccountKey([32]byte{1})

	_, found := c.GetCachedEntry(key)
	require.False(t, found, "absent key must report not-found, not a tombstone")

	c.PutCachedEntry(key, nil)
	frame, found := c.GetCachedEntry(key)
	require.True(t, found)
	require.Nil(t, frame)
	require.False(t, c.CachedEntryExists(key))
}

func TestCacheHitReturnsClone(t *testing.T) {
	c := NewEntryCache(16)
	key := AccountKey([32]byte{2})
	frame := NewAccountFrame(AccountEntry{AccountID: [32]byte{2}, Balance: 10})

	c.PutCachedEntry(key, frame)
	require.True(t, c.CachedEntryExists(key))

	got, found := c.GetCachedEntry(key)
	require.True(t, found)
	require.NotNil(t, got)

	mutated := got.Entry()
	mutated.Balance = 999
	got.SetEntry(mutated)

	again, _ := c.GetCachedEntry(key)
	require.Equal(t, int64(10), again.Entry().Balance)
}

func TestFlushRemovesEntry(t *testing.T) {
	c := NewEntryCache(16)
	key := AccountKey([32]byte{3})
	c.PutCachedEntry(key, NewAccountFrame(AccountEntry{AccountID: [32]byte{3}}))

	c.FlushCachedEntry(key)
	_, found := c.GetCachedEntry(key)
	require.False(t, found)
}
