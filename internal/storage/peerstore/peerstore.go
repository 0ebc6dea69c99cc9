// Package peerstore is the persistent (ip, port)-keyed peer-record backoff
// table C6 depends on for peer advertisement (spec.md §4.6.4) and backoff
// (§4.6.5). It is backed by a pebble LSM-tree, grounded on the teacher's
// PebbleBackend (internal/storage/nodestore/pebble.go), generalized from
// node storage to small fixed-shape peer records.
package peerstore

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/ugorji/go/codec"

	"github.com/stellarcore-go/ledger-overlay/internal/overlay"
)

var bincHandle = &codec.BincHandle{}

// Store is a pebble-backed overlay.PeerRecordStore.
type Store struct {
	mu sync.Mutex
	db *pebble.DB
}

// Open opens (creating if missing) a pebble database at path.
func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("peerstore: open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying pebble handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func recordKey(ip [4]byte, port uint32) []byte {
	key := make([]byte, 4+4)
	copy(key[:4], ip[:])
	key[4] = byte(port >> 24)
	key[5] = byte(port >> 16)
	key[6] = byte(port >> 8)
	key[7] = byte(port)
	return key
}

// wireRecord mirrors overlay.PeerRecord for binc encoding; kept separate so
// the storage encoding is insulated from the collaborator interface's Go
// type, matching the teacher's storage-vs-domain-type separation
// (nodestore.Node vs. the XDR ledger types it persists).
type wireRecord struct {
	IP            [4]byte
	Port          uint32
	NumFailures   uint32
	NextRetry     int64
	LastHandshake int64
}

func encodeRecord(rec overlay.PeerRecord) ([]byte, error) {
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, bincHandle)
	if err := enc.Encode(wireRecord(rec)); err != nil {
		return nil, fmt.Errorf("peerstore: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeRecord(data []byte) (overlay.PeerRecord, error) {
	var w wireRecord
	dec := codec.NewDecoder(bytes.NewReader(data), bincHandle)
	if err := dec.Decode(&w); err != nil {
		return overlay.PeerRecord{}, fmt.Errorf("peerstore: decode: %w", err)
	}
	return overlay.PeerRecord(w), nil
}

// Get looks up the record for (ip, port). found is false if no record exists.
func (s *Store) Get(ip [4]byte, port uint32) (overlay.PeerRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, closer, err := s.db.Get(recordKey(ip, port))
	if err == pebble.ErrNotFound {
		return overlay.PeerRecord{}, false, nil
	}
	if err != nil {
		return overlay.PeerRecord{}, false, fmt.Errorf("peerstore: get: %w", err)
	}
	defer closer.Close()

	rec, err := decodeRecord(value)
	if err != nil {
		return overlay.PeerRecord{}, false, err
	}
	return rec, true, nil
}

// Put inserts or replaces the record keyed by (rec.IP, rec.Port).
func (s *Store) Put(rec overlay.PeerRecord) error {
	encoded, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Set(recordKey(rec.IP, rec.Port), encoded, pebble.Sync); err != nil {
		return fmt.Errorf("peerstore: put: %w", err)
	}
	return nil
}

// TopByNextRetry returns up to limit records ordered by NextRetry ascending,
// for sendPeers (spec.md §4.6.4). Pebble iterates keys in byte order, which
// is (ip, port) order rather than NextRetry order, so this scans the full
// table and sorts in memory — acceptable given the table's expected size
// (a few hundred known peers, not millions).
func (s *Store) TopByNextRetry(limit int) ([]overlay.PeerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	iter := s.db.NewIter(nil)
	defer iter.Close()

	var records []overlay.PeerRecord
	for iter.First(); iter.Valid(); iter.Next() {
		rec, err := decodeRecord(iter.Value())
		if err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("peerstore: iterate: %w", err)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].NextRetry < records[j].NextRetry
	})

	if limit >= 0 && len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

var _ overlay.PeerRecordStore = (*Store)(nil)
