package overlay_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stellarcore-go/ledger-overlay/internal/overlay"
)

type fakeOverlayManager struct {
	broadcast        []overlay.Message
	broadcastExclude [][]string
}

func (f *fakeOverlayManager) RecvFloodedMsg(overlay.Message, string) {}
func (f *fakeOverlayManager) BroadcastMessage(msg overlay.Message) {
	f.broadcast = append(f.broadcast, msg)
	f.broadcastExclude = append(f.broadcastExclude, nil)
}
func (f *fakeOverlayManager) BroadcastMessageExcept(msg overlay.Message, exclude []string) {
	f.broadcast = append(f.broadcast, msg)
	f.broadcastExclude = append(f.broadcastExclude, exclude)
}
func (f *fakeOverlayManager) IsPeerAccepted(string) bool { return true }
func (f *fakeOverlayManager) IsShuttingDown() bool       { return false }

func TestFloodAntiEcho(t *testing.T) {
	mem := overlay.NewFloodMemoizer()
	index := [32]byte{1}
	msg := overlay.Transaction{Envelope: []byte("tx")}

	mem.AddRecord(index, msg, 10, "peerA")

	mgr := &fakeOverlayManager{}
	mem.Broadcast(index, mgr)

	require.Len(t, mgr.broadcast, 1)
	require.Contains(t, mgr.broadcastExclude[0], "peerA")
}

func TestFloodClearBelowPreservesNewer(t *testing.T) {
	mem := overlay.NewFloodMemoizer()
	mem.AddRecord([32]byte{10}, overlay.Transaction{}, 10, "p")
	mem.AddRecord([32]byte{11}, overlay.Transaction{}, 11, "p")
	mem.AddRecord([32]byte{12}, overlay.Transaction{}, 12, "p")

	mem.ClearBelow(12)
	require.Equal(t, 1, mem.Len())
}

func TestFloodForgetRemovesOneRecord(t *testing.T) {
	mem := overlay.NewFloodMemoizer()
	mem.AddRecord([32]byte{1}, overlay.Transaction{}, 5, "p")
	mem.AddRecord([32]byte{2}, overlay.Transaction{}, 5, "p")

	mem.Forget([32]byte{1})
	require.Equal(t, 1, mem.Len())
}

func TestFloodMarkToldExcludesSubsequentPeers(t *testing.T) {
	mem := overlay.NewFloodMemoizer()
	index := [32]byte{7}
	mem.AddRecord(index, overlay.Transaction{}, 1, "peerA")
	mem.MarkTold(index, "peerB")

	mgr := &fakeOverlayManager{}
	mem.Broadcast(index, mgr)

	require.ElementsMatch(t, []string{"peerA", "peerB"}, mgr.broadcastExclude[0])
}
