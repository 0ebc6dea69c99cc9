package ledger

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// EntryCache is the process-wide mapping from a ledger key to either the
// latest frame or a tombstone (spec.md §4.2). It is an ordinary value handed
// to each Store alongside its Database rather than a package-level global
// (SPEC_FULL.md §9 design note: "one cache per database instance"),
// mirroring the teacher's hashicorp/golang-lru-backed LedgerCache
// (internal/core/ledger/manager/cache.go).
//
// A cache slot is one of three states:
//   - absent (LRU miss): caller must consult the Database.
//   - present with frame != nil: the last committed store for this key.
//   - present with frame == nil (tombstone): the key is known not to exist.
type EntryCache struct {
	entries *lru.Cache[Key, *cacheSlot]
}

type cacheSlot struct {
	frame *AccountFrame // nil means tombstone
}

// DefaultCacheSize bounds the number of distinct keys held in memory.
const DefaultCacheSize = 20000

// NewEntryCache constructs a cache with the given capacity. size <= 0
// falls back to DefaultCacheSize.
func NewEntryCache(size int) *EntryCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[Key, *cacheSlot](size)
	if err != nil {
		// size is always > 0 here, so lru.New cannot fail; guard anyway
		// rather than letting a construction-time error escape silently.
		panic("ledger: failed to construct entry cache: " + err.Error())
	}
	return &EntryCache{entries: c}
}

// CachedEntryExists returns true only when the cache holds a non-tombstone
// value for key (spec.md §4.3.3).
func (c *EntryCache) CachedEntryExists(key Key) bool {
	slot, ok := c.entries.Get(key)
	return ok && slot.frame != nil
}

// GetCachedEntry returns (frame, true) on a cache hit, where frame is nil
// if the cached value is a tombstone. found is false when the key is not
// cached at all, meaning the caller must consult the Database.
func (c *EntryCache) GetCachedEntry(key Key) (frame *AccountFrame, found bool) {
	slot, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	if slot.frame == nil {
		return nil, true
	}
	return slot.frame.Clone(), true
}

// PutCachedEntry caches frame as the latest committed value for key.
// Passing a nil frame caches a tombstone.
func (c *EntryCache) PutCachedEntry(key Key, frame *AccountFrame) {
	var cloned *AccountFrame
	if frame != nil {
		cloned = frame.Clone()
	}
	c.entries.Add(key, &cacheSlot{frame: cloned})
}

// FlushCachedEntry evicts key from the cache so the next read is forced
// to the Database. Every mutation path flushes before and after the
// mutation (spec.md §4.2): before, to serialise concurrent readers against
// stale state; after, because signer edits issue further SELECTs whose
// results must be re-cached fresh.
func (c *EntryCache) FlushCachedEntry(key Key) {
	c.entries.Remove(key)
}
