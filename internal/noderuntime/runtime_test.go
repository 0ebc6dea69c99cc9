package noderuntime_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stellarcore-go/ledger-overlay/internal/ledger"
	"github.com/stellarcore-go/ledger-overlay/internal/noderuntime"
	"github.com/stellarcore-go/ledger-overlay/internal/overlay"
)

func TestStandaloneLedgerManagerMinBalance(t *testing.T) {
	lm := noderuntime.NewStandaloneLedgerManager()
	require.Equal(t, noderuntime.BaseReserve, lm.MinBalance(0))
	require.Equal(t, noderuntime.BaseReserve+noderuntime.ReserveIncrement, lm.MinBalance(1))
	require.Equal(t, noderuntime.BaseReserve+3*noderuntime.ReserveIncrement, lm.MinBalance(3))
}

func TestStandaloneLedgerManagerAdvance(t *testing.T) {
	lm := noderuntime.NewStandaloneLedgerManager()
	require.EqualValues(t, 1, lm.CurrentLedgerIndex())
	require.EqualValues(t, 2, lm.Advance())
	require.EqualValues(t, 2, lm.CurrentLedgerIndex())
}

func TestImmediateDeltaSinkTracksCounts(t *testing.T) {
	lm := noderuntime.NewStandaloneLedgerManager()
	sink := noderuntime.NewImmediateDeltaSink(lm)
	require.EqualValues(t, 1, sink.CurrentLedger())

	frame := ledger.NewAccountFrame(ledger.AccountEntry{AccountID: [32]byte{1}})
	sink.AddEntry(frame)
	sink.AddEntry(frame)
	sink.ModEntry(frame)
	sink.DeleteEntry(frame.Key())

	added, updated, deleted := sink.Counts()
	require.Equal(t, 2, added)
	require.Equal(t, 1, updated)
	require.Equal(t, 1, deleted)
}

func TestNullHerderAlwaysReportsAbsent(t *testing.T) {
	var herder overlay.Herder = noderuntime.NullHerder{}
	ctx := context.Background()

	status, err := herder.RecvTransaction(ctx, []byte("envelope"))
	require.NoError(t, err)
	require.Equal(t, overlay.TxStatusRejected, status)

	_, ok := herder.GetTxSet(ctx, [32]byte{1})
	require.False(t, ok)

	_, ok = herder.GetQSet(ctx, [32]byte{2})
	require.False(t, ok)

	require.NoError(t, herder.RecvTxSet(ctx, [32]byte{3}, nil))
	require.NoError(t, herder.RecvSCPEnvelope(ctx, []byte("scp")))
	require.NoError(t, herder.RecvSCPQuorumSet(ctx, [32]byte{4}, []byte("qset")))

	// PeerDoesntHave has no observable state; it must simply not panic.
	herder.PeerDoesntHave("peer-1", overlay.TypeTxSet, [32]byte{5})
}
