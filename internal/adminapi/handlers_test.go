package adminapi_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stellarcore-go/ledger-overlay/internal/adminapi"
	"github.com/stellarcore-go/ledger-overlay/internal/overlay"
)

type fakeDirectory struct {
	peers []adminapi.PeerSummary
}

func (f fakeDirectory) Sessions() []adminapi.PeerSummary { return f.peers }

func TestListPeersReturnsDirectorySnapshot(t *testing.T) {
	dir := fakeDirectory{peers: []adminapi.PeerSummary{
		{ID: "peerA", State: "GOT_AUTH", Authenticated: true, Inbound: false, IP: "10.0.0.1"},
	}}
	srv, err := adminapi.NewServer(nil, dir, overlay.NewFloodMemoizer())
	require.NoError(t, err)

	resp, err := srv.ListPeers(context.Background(), &adminapi.ListPeersRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Peers, 1)
	require.Equal(t, "peerA", resp.Peers[0].ID)
}

func TestFloodStatsReportsOldestLedger(t *testing.T) {
	mem := overlay.NewFloodMemoizer()
	mem.AddRecord([32]byte{1}, overlay.Transaction{}, 10, "p")
	mem.AddRecord([32]byte{2}, overlay.Transaction{}, 5, "p")

	srv, err := adminapi.NewServer(nil, fakeDirectory{}, mem)
	require.NoError(t, err)

	resp, err := srv.FloodStats(context.Background(), &adminapi.FloodStatsRequest{})
	require.NoError(t, err)
	require.True(t, resp.HasRecords)
	require.Equal(t, 2, resp.Records)
	require.Equal(t, uint32(5), resp.OldestLedger)
}

func TestForceClearBelowSweepsFlood(t *testing.T) {
	mem := overlay.NewFloodMemoizer()
	mem.AddRecord([32]byte{1}, overlay.Transaction{}, 10, "p")

	srv, err := adminapi.NewServer(nil, fakeDirectory{}, mem)
	require.NoError(t, err)

	_, err = srv.ForceClearBelow(context.Background(), &adminapi.ForceClearBelowRequest{Ledger: 11})
	require.NoError(t, err)
	require.Equal(t, 0, mem.Len())
}
