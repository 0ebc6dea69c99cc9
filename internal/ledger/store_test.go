package ledger_test

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/stellarcore-go/ledger-overlay/internal/ledger"
	"github.com/stellarcore-go/ledger-overlay/internal/storage/accountdb"
	"github.com/stellarcore-go/ledger-overlay/internal/storage/accountdb/sqlite"
)

type fakeLedgerManager struct{}

func (fakeLedgerManager) MinBalance(numSubEntries uint32) int64 { return 0 }
func (fakeLedgerManager) CurrentLedgerIndex() uint32            { return 7 }

type fakeDeltaSink struct {
	ledger  uint32
	added   []ledger.Key
	modded  []ledger.Key
	deleted []ledger.Key
}

func (f *fakeDeltaSink) CurrentLedger() uint32 { return f.ledger }
func (f *fakeDeltaSink) AddEntry(frame *ledger.AccountFrame) {
	f.added = append(f.added, frame.Key())
}
func (f *fakeDeltaSink) ModEntry(frame *ledger.AccountFrame) {
	f.modded = append(f.modded, frame.Key())
}
func (f *fakeDeltaSink) DeleteEntry(key ledger.Key) {
	f.deleted = append(f.deleted, key)
}

func newTestStore(t *testing.T) (*ledger.Store, accountdb.Database) {
	t.Helper()
	cfg := accountdb.SQLiteConfig(":memory:")
	db, err := sqlite.Open(context.Background(), cfg, prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := ledger.NewStore(db, ledger.NewEntryCache(0), nil)
	require.NoError(t, store.DropAll(context.Background()))
	return store, db
}

func accountID(b byte) [32]byte {
	var id [32]byte
	id[0] = b
	return id
}

func TestLoadMissingThenCreate(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	lm := fakeLedgerManager{}
	sink := &fakeDeltaSink{ledger: 5}

	id := accountID(1)
	frame, err := store.Load(ctx, id)
	require.NoError(t, err)
	require.True(t, frame.IsNew())
	require.Equal(t, int64(0), frame.Entry().GetBalanceAboveReserve(lm))

	entry := frame.Entry()
	entry.Balance = 1000
	entry.SeqNum = 1
	frame.SetEntry(entry)

	require.NoError(t, store.StoreAdd(ctx, frame, sink))
	require.Len(t, sink.added, 1)

	reloaded, err := store.Load(ctx, id)
	require.NoError(t, err)
	require.False(t, reloaded.IsNew())
	require.Equal(t, int64(1000), reloaded.Entry().Balance)
}

func TestStoreChangeOnUnpersistedFrameFails(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	sink := &fakeDeltaSink{ledger: 1}

	frame, err := store.Load(ctx, accountID(9))
	require.NoError(t, err)
	require.True(t, frame.IsNew())

	err = store.StoreChange(ctx, frame, nil, sink)
	require.ErrorIs(t, err, ledger.ErrAccountNotPersisted)
}

func TestSignerDiffShrinkAndGrow(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	sink := &fakeDeltaSink{ledger: 1}
	id := accountID(2)

	frame, err := store.Load(ctx, id)
	require.NoError(t, err)
	entry := frame.Entry()
	entry.Balance = 5000
	entry.NumSubEntries = 2
	entry.Signers = []ledger.Signer{
		{PubKey: accountID(10), Weight: 1},
		{PubKey: accountID(20), Weight: 1},
	}
	frame.SetEntry(entry)
	require.NoError(t, store.StoreAdd(ctx, frame, sink))

	// Grow: add a third signer, keep the first two (second changes weight).
	loaded, err := store.Load(ctx, id)
	require.NoError(t, err)
	oldSigners := loaded.Entry().Signers
	grown := loaded.Entry()
	grown.Signers = []ledger.Signer{
		{PubKey: accountID(10), Weight: 1},
		{PubKey: accountID(20), Weight: 5},
		{PubKey: accountID(30), Weight: 1},
	}
	loaded.SetEntry(grown)
	loaded.SetUpdateSigners(true)
	require.NoError(t, store.StoreChange(ctx, loaded, oldSigners, sink))

	afterGrow, err := store.Load(ctx, id)
	require.NoError(t, err)
	require.Len(t, afterGrow.Entry().Signers, 3)

	// Shrink: drop back to one signer.
	oldSigners = afterGrow.Entry().Signers
	shrunk := afterGrow.Entry()
	shrunk.Signers = []ledger.Signer{{PubKey: accountID(10), Weight: 1}}
	afterGrow.SetEntry(shrunk)
	afterGrow.SetUpdateSigners(true)
	require.NoError(t, store.StoreChange(ctx, afterGrow, oldSigners, sink))

	final, err := store.Load(ctx, id)
	require.NoError(t, err)
	require.Len(t, final.Entry().Signers, 1)
	require.Equal(t, accountID(10), final.Entry().Signers[0].PubKey)
}

func TestInflationOrderingWithTieBreak(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	sink := &fakeDeltaSink{ledger: 1}

	destA := accountID(0xA)
	destB := accountID(0xB)

	voters := []struct {
		id      byte
		balance int64
		dest    [32]byte
	}{
		{1, ledger.InflationMinVoteBalance, destA},
		{2, ledger.InflationMinVoteBalance, destB}, // ties with destA's vote total
		{3, ledger.InflationMinVoteBalance - 1, destA},
	}
	for _, v := range voters {
		frame, err := store.Load(ctx, accountID(v.id))
		require.NoError(t, err)
		entry := frame.Entry()
		entry.Balance = v.balance
		dest := v.dest
		entry.InflationDest = &dest
		frame.SetEntry(entry)
		require.NoError(t, store.StoreAdd(ctx, frame, sink))
	}

	var results []ledger.InflationVote
	err := store.ProcessForInflation(ctx, 10, func(v ledger.InflationVote) bool {
		results = append(results, v)
		return true
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	// destB (lexicographically greater) wins the tie at equal vote totals.
	require.Equal(t, destB, results[0].Destination)
	require.Equal(t, destA, results[1].Destination)

	var stopped []ledger.InflationVote
	err = store.ProcessForInflation(ctx, 10, func(v ledger.InflationVote) bool {
		stopped = append(stopped, v)
		return false
	})
	require.NoError(t, err)
	require.Len(t, stopped, 1)
}

func TestStoreDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	sink := &fakeDeltaSink{ledger: 1}
	id := accountID(77)

	frame, err := store.Load(ctx, id)
	require.NoError(t, err)
	entry := frame.Entry()
	entry.Balance = 100
	frame.SetEntry(entry)
	require.NoError(t, store.StoreAdd(ctx, frame, sink))

	require.NoError(t, store.StoreDelete(ctx, id, sink))
	require.NoError(t, store.StoreDelete(ctx, id, sink))

	exists, err := store.Exists(ctx, id)
	require.NoError(t, err)
	require.False(t, exists)
}

// TestLoadConcurrentCallsReturnConsistentFrame exercises the singleflight
// collapsing in Store.Load: many goroutines loading the same never-cached
// account concurrently must all see the same result and none may error.
func TestLoadConcurrentCallsReturnConsistentFrame(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	id := accountID(42)

	const callers = 16
	results := make(chan *ledger.AccountFrame, callers)
	errs := make(chan error, callers)

	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			frame, err := store.Load(ctx, id)
			results <- frame
			errs <- err
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	for frame := range results {
		require.True(t, frame.IsNew())
		require.Equal(t, id, frame.Entry().AccountID)
	}
}
