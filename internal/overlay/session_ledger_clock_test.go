package overlay_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stellarcore-go/ledger-overlay/internal/cryptoutil"
	"github.com/stellarcore-go/ledger-overlay/internal/overlay"
)

type fakeLedgerClock struct {
	index uint32
}

func (c fakeLedgerClock) CurrentLedgerIndex() uint32 { return c.index }

// TestSessionStampsFloodRecordsWithLedgerClock verifies a flooded message
// is recorded under the session's real current ledger index rather than
// the constant 0 a session with no LedgerClock falls back to; otherwise
// the first ClearBelow(L) with any L>0 would wipe every record regardless
// of age (spec.md §4.5).
func TestSessionStampsFloodRecordsWithLedgerClock(t *testing.T) {
	localCfg, _ := newHandshakeConfig(t)
	_, remoteKP := newHandshakeConfig(t)

	tx := &fakeSender{}
	flood := overlay.NewFloodMemoizer()
	clock := fakeLedgerClock{index: 42}

	sess := overlay.NewSession(localCfg, true, tx, fakeHerder{}, fakeManager{accepted: true}, flood, newFakePeerStore(), clock, nil)
	require.NoError(t, sess.OnConnected())
	sentHello := tx.sent[0].(overlay.Hello)

	remoteNonce, err := cryptoutil.RandomNonce()
	require.NoError(t, err)
	remoteHello := overlay.Hello{
		LedgerVersion:  1,
		OverlayVersion: 1,
		NetworkID:      localCfg.NetworkID,
		ListeningPort:  11625,
		PeerID:         remoteKP.Public,
		Nonce:          remoteNonce,
	}
	require.NoError(t, sess.HandleMessage(remoteHello))

	goodAuth := overlay.SignAuth(remoteKP, remoteNonce, sentHello.Nonce)
	require.NoError(t, sess.HandleMessage(goodAuth))
	require.Equal(t, overlay.StateGotAuth, sess.State())

	require.NoError(t, sess.HandleMessage(overlay.Transaction{Envelope: []byte("tx")}))

	records, oldestLedger, hasRecords := flood.Stats()
	require.True(t, hasRecords)
	require.Equal(t, 1, records)
	require.Equal(t, clock.index, oldestLedger)
}
