package overlay

import "sync"

// FloodRecord is the per-message bookkeeping the Flood Memoizer keeps: the
// message itself, the ledger it was first seen in, and the set of peers it
// has already been told to (spec.md §4.5).
type FloodRecord struct {
	Message     Message
	LedgerIndex uint32
	ToldPeers   map[string]struct{}
}

// FloodMemoizer is the Flood Memoizer (C5): a mapping from a 256-bit
// message index to its FloodRecord, grounded on the teacher's
// mutex-guarded map-of-bookkeeping pattern in
// internal/peermanagement/relay/slots.go (MessageTracker).
type FloodMemoizer struct {
	mu      sync.Mutex
	records map[[32]byte]*FloodRecord
}

// NewFloodMemoizer constructs an empty memoizer.
func NewFloodMemoizer() *FloodMemoizer {
	return &FloodMemoizer{records: make(map[[32]byte]*FloodRecord)}
}

// AddRecord replaces any existing entry for index with a fresh record whose
// ToldPeers is seeded with firstPeer (spec.md §4.5).
func (f *FloodMemoizer) AddRecord(index [32]byte, msg Message, ledgerIndex uint32, firstPeer string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[index] = &FloodRecord{
		Message:     msg,
		LedgerIndex: ledgerIndex,
		ToldPeers:   map[string]struct{}{firstPeer: {}},
	}
}

// Broadcast asks overlay to broadcast the recorded message for index,
// excluding every peer already in ToldPeers. No-op if index is absent.
func (f *FloodMemoizer) Broadcast(index [32]byte, overlayMgr OverlayManager) {
	f.mu.Lock()
	rec, ok := f.records[index]
	if !ok {
		f.mu.Unlock()
		return
	}
	exclude := make([]string, 0, len(rec.ToldPeers))
	for peerID := range rec.ToldPeers {
		exclude = append(exclude, peerID)
	}
	msg := rec.Message
	f.mu.Unlock()

	overlayMgr.BroadcastMessageExcept(msg, exclude)
}

// MarkTold records that peerID has now seen the message for index, so a
// later Broadcast excludes it too.
func (f *FloodMemoizer) MarkTold(index [32]byte, peerID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.records[index]; ok {
		rec.ToldPeers[peerID] = struct{}{}
	}
}

// ClearBelow erases every entry whose LedgerIndex < currentLedger
// (spec.md §4.5); called once per ledger close.
func (f *FloodMemoizer) ClearBelow(currentLedger uint32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for index, rec := range f.records {
		if rec.LedgerIndex < currentLedger {
			delete(f.records, index)
		}
	}
}

// Forget explicitly evicts one record by index, independent of the
// ledger-age sweep in ClearBelow — used when the Herder reports a message
// as permanently invalid. Not present in original_source's Floodgate.cpp
// (which only sweeps by ledger age); this is a harmless addition on top of
// spec.md §4.5, not a grounded supplement (see SPEC_FULL.md §5.8).
func (f *FloodMemoizer) Forget(index [32]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, index)
}

// Len reports the number of live records, used by the admin API's
// FloodStats (SPEC_FULL.md §5.9).
func (f *FloodMemoizer) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// Stats reports the record count and the oldest live LedgerIndex, for the
// admin API's FloodStats (SPEC_FULL.md §5.9). hasRecords is false when the
// memoizer is empty, in which case oldestLedger is meaningless.
func (f *FloodMemoizer) Stats() (records int, oldestLedger uint32, hasRecords bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	records = len(f.records)
	first := true
	for _, rec := range f.records {
		if first || rec.LedgerIndex < oldestLedger {
			oldestLedger = rec.LedgerIndex
			first = false
		}
	}
	return records, oldestLedger, records > 0
}
