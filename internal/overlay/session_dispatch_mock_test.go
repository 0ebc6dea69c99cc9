package overlay_test

import (
	"crypto/sha256"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/stellarcore-go/ledger-overlay/internal/cryptoutil"
	"github.com/stellarcore-go/ledger-overlay/internal/overlay"
	"github.com/stellarcore-go/ledger-overlay/internal/overlay/overlaymock"
)

// authenticatedSession drives a session through HELLO/AUTH up to GOT_AUTH so
// dispatch tests can exercise the post-handshake switch in HandleMessage
// without re-deriving the handshake in every test (mirrors
// TestSessionAuthBindsBothNonces's HELLO/AUTH sequence).
func authenticatedSession(t *testing.T, herder overlay.Herder) (*overlay.Session, *fakeSender) {
	t.Helper()
	return authenticatedSessionWithFlood(t, herder, overlay.NewFloodMemoizer())
}

// authenticatedSessionWithFlood is authenticatedSession with a caller-owned
// Flood Memoizer, so a test can inspect what dispatch recorded in it.
func authenticatedSessionWithFlood(t *testing.T, herder overlay.Herder, flood *overlay.FloodMemoizer) (*overlay.Session, *fakeSender) {
	t.Helper()
	localCfg, _ := newHandshakeConfig(t)
	_, remoteKP := newHandshakeConfig(t)

	tx := &fakeSender{}
	sess := overlay.NewSession(localCfg, true, tx, herder, fakeManager{accepted: true}, flood, newFakePeerStore(), nil, nil)
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

	return sess, tx
}

// TestSessionDispatchGetTxSetFound verifies GET_TX_SET dispatches to the
// Herder and relays its answer as a TX_SET reply.
func TestSessionDispatchGetTxSetFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockHerder := overlaymock.NewMockHerder(ctrl)

	hash := [32]byte{7, 7, 7}
	txs := [][]byte{[]byte("tx-a"), []byte("tx-b")}
	mockHerder.EXPECT().GetTxSet(gomock.Any(), hash).Return(txs, true)

	sess, tx := authenticatedSession(t, mockHerder)
	before := len(tx.sent)

	require.NoError(t, sess.HandleMessage(overlay.GetTxSet{Hash: hash}))

	require.Len(t, tx.sent, before+1)
	reply, ok := tx.sent[before].(overlay.TxSet)
	require.True(t, ok)
	require.Equal(t, hash, reply.Hash)
	require.Equal(t, txs, reply.Transactions)
}

// TestSessionDispatchGetTxSetMissing verifies a Herder miss on GET_TX_SET
// produces a DONT_HAVE reply rather than an error.
func TestSessionDispatchGetTxSetMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockHerder := overlaymock.NewMockHerder(ctrl)

	hash := [32]byte{9}
	mockHerder.EXPECT().GetTxSet(gomock.Any(), hash).Return(nil, false)

	sess, tx := authenticatedSession(t, mockHerder)
	before := len(tx.sent)

	require.NoError(t, sess.HandleMessage(overlay.GetTxSet{Hash: hash}))

	require.Len(t, tx.sent, before+1)
	reply, ok := tx.sent[before].(overlay.DontHave)
	require.True(t, ok)
	require.Equal(t, overlay.TypeTxSet, reply.RequestedType)
	require.Equal(t, hash, reply.ReqHash)
}

// TestSessionDispatchTransactionPendingFloods verifies a pending transaction
// is both handed to the Herder and queued in the flood memoizer for
// broadcast; the rejected case is TestSessionDispatchTransactionRejectedDoesNotFlood.
func TestSessionDispatchTransactionPendingFloods(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockHerder := overlaymock.NewMockHerder(ctrl)

	envelope := []byte("signed-tx-envelope")
	mockHerder.EXPECT().
		RecvTransaction(gomock.Any(), envelope).
		Return(overlay.TxStatusPending, nil)

	flood := overlay.NewFloodMemoizer()
	sess, _ := authenticatedSessionWithFlood(t, mockHerder, flood)
	require.NoError(t, sess.HandleMessage(overlay.Transaction{Envelope: envelope}))
	require.Equal(t, 1, flood.Len())
}

func TestSessionDispatchTransactionRejectedDoesNotFlood(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockHerder := overlaymock.NewMockHerder(ctrl)

	envelope := []byte("bad-envelope")
	mockHerder.EXPECT().
		RecvTransaction(gomock.Any(), envelope).
		Return(overlay.TxStatusRejected, nil)

	flood := overlay.NewFloodMemoizer()
	sess, _ := authenticatedSessionWithFlood(t, mockHerder, flood)
	require.NoError(t, sess.HandleMessage(overlay.Transaction{Envelope: envelope}))
	require.Equal(t, 0, flood.Len())
}

// TestSessionDispatchQSetHashesBeforeForwarding verifies SCP_QUORUMSET is
// forwarded to the Herder keyed by the hash of its encoded payload, not a
// caller-supplied hash.
func TestSessionDispatchQSetHashesBeforeForwarding(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockHerder := overlaymock.NewMockHerder(ctrl)

	encoded := []byte("quorum-set-bytes")
	wantHash := sha256.Sum256(encoded)
	mockHerder.EXPECT().RecvSCPQuorumSet(gomock.Any(), wantHash, encoded).Return(nil)

	sess, _ := authenticatedSession(t, mockHerder)
	require.NoError(t, sess.HandleMessage(overlay.SCPQuorumSet{Encoded: encoded}))
}

// TestSessionDispatchDontHaveNotifiesHerder verifies DONT_HAVE is routed to
// PeerDoesntHave rather than silently dropped.
func TestSessionDispatchDontHaveNotifiesHerder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	mockHerder := overlaymock.NewMockHerder(ctrl)

	hash := [32]byte{3, 1, 4}
	mockHerder.EXPECT().PeerDoesntHave(gomock.Any(), overlay.TypeTxSet, hash)

	sess, _ := authenticatedSession(t, mockHerder)
	require.NoError(t, sess.HandleMessage(overlay.DontHave{RequestedType: overlay.TypeTxSet, ReqHash: hash}))
}
