package overlay_test

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stellarcore-go/ledger-overlay/internal/cryptoutil"
	"github.com/stellarcore-go/ledger-overlay/internal/overlay"
)

func newManager(t *testing.T, networkID [32]byte) *overlay.Manager {
	t.Helper()
	kp, err := cryptoutil.GenerateKeyPair()
	require.NoError(t, err)
	cfg := overlay.HandshakeConfig{
		KeyPair:        kp,
		NetworkID:      networkID,
		LedgerVersion:  1,
		OverlayVersion: 1,
		VersionStr:     "test/1.0",
		ListeningPort:  11625,
	}
	return overlay.NewManager(cfg, fakeHerder{}, newFakePeerStore(), overlay.NewFloodMemoizer(), nil, nil)
}

func TestManagerCompletesLoopbackHandshake(t *testing.T) {
	networkID := [32]byte{7}
	listener := newManager(t, networkID)
	dialer := newManager(t, networkID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go listener.ListenAndServe(ctx, "127.0.0.1:0")

	// ListenAndServe binds asynchronously; retry the dial briefly.
	var lastErr error
	for i := 0; i < 50; i++ {
		addr := listener.Address()
		if addr != "" {
			lastErr = dialer.Connect(ctx, addr)
			if lastErr == nil {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, lastErr)

	require.Eventually(t, func() bool {
		peers := dialer.Sessions()
		return len(peers) == 1 && peers[0].Authenticated
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		peers := listener.Sessions()
		return len(peers) == 1 && peers[0].Authenticated
	}, 2*time.Second, 10*time.Millisecond)
}

func TestManagerRejectsNetworkMismatch(t *testing.T) {
	listener := newManager(t, [32]byte{1})
	dialer := newManager(t, [32]byte{2})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go listener.ListenAndServe(ctx, "127.0.0.1:0")

	var lastErr error
	for i := 0; i < 50; i++ {
		addr := listener.Address()
		if addr != "" {
			lastErr = dialer.Connect(ctx, addr)
			if lastErr == nil {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, lastErr)

	require.Never(t, func() bool {
		for _, p := range listener.Sessions() {
			if p.Authenticated {
				return true
			}
		}
		return false
	}, 300*time.Millisecond, 20*time.Millisecond)
}

// writeFrame/readFrame replicate FrameTransport's wire format (spec.md
// §4.7) for a raw, non-Session test client that drives a handshake by hand.
func writeFrame(conn net.Conn, msg overlay.Message) error {
	body, err := overlay.Marshal(msg)
	if err != nil {
		return err
	}
	frame := make([]byte, 4+2+len(body))
	binary.BigEndian.PutUint32(frame[0:4], uint32(len(body)+2))
	binary.BigEndian.PutUint16(frame[4:6], uint16(msg.Type()))
	copy(frame[6:], body)
	_, err = conn.Write(frame)
	return err
}

func readFrame(t *testing.T, conn net.Conn) (overlay.MessageType, []byte) {
	t.Helper()
	header := make([]byte, 6)
	_, err := io.ReadFull(conn, header)
	require.NoError(t, err)
	frameLen := binary.BigEndian.Uint32(header[0:4])
	msgType := overlay.MessageType(binary.BigEndian.Uint16(header[4:6]))
	body := make([]byte, frameLen-2)
	if len(body) > 0 {
		_, err = io.ReadFull(conn, body)
		require.NoError(t, err)
	}
	return msgType, body
}

// rawPeer is a bare TCP client that completes the HELLO/AUTH handshake by
// hand (no Session/Manager on this side) so a test can observe exactly what
// a Manager sends to one authenticated peer versus another.
type rawPeer struct {
	conn net.Conn
}

func dialRawPeer(t *testing.T, addr string, networkID [32]byte) *rawPeer {
	t.Helper()
	kp, err := cryptoutil.GenerateKeyPair()
	require.NoError(t, err)

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)

	cfg := overlay.HandshakeConfig{
		KeyPair:        kp,
		NetworkID:      networkID,
		LedgerVersion:  1,
		OverlayVersion: 1,
		VersionStr:     "rawpeer/1.0",
		ListeningPort:  11625,
	}
	nonce, err := cryptoutil.RandomNonce()
	require.NoError(t, err)
	require.NoError(t, writeFrame(conn, overlay.BuildHello(cfg, nonce)))

	helloType, helloBody := readFrame(t, conn)
	require.Equal(t, overlay.TypeHello, helloType)
	parsed, err := overlay.Unmarshal(helloType, helloBody)
	require.NoError(t, err)
	listenerHello := parsed.(overlay.Hello)

	require.NoError(t, writeFrame(conn, overlay.SignAuth(kp, nonce, listenerHello.Nonce)))

	authType, _ := readFrame(t, conn)
	require.Equal(t, overlay.TypeAuth, authType)
	peersType, _ := readFrame(t, conn)
	require.Equal(t, overlay.TypePeers, peersType)

	return &rawPeer{conn: conn}
}

// TestManagerBroadcastExcludesOriginatingPeer is the flood anti-echo
// invariant (spec.md §8) exercised through the real Manager/Session/
// FrameTransport stack: a TRANSACTION flooded by peer A must reach peer B
// but never bounce back to A.
func TestManagerBroadcastExcludesOriginatingPeer(t *testing.T) {
	networkID := [32]byte{9}
	listener := newManager(t, networkID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go listener.ListenAndServe(ctx, "127.0.0.1:0")

	var addr string
	require.Eventually(t, func() bool {
		addr = listener.Address()
		return addr != ""
	}, time.Second, 10*time.Millisecond)

	peerA := dialRawPeer(t, addr, networkID)
	defer peerA.conn.Close()
	peerB := dialRawPeer(t, addr, networkID)
	defer peerB.conn.Close()

	require.Eventually(t, func() bool {
		return len(listener.Sessions()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	envelope := []byte("tx-envelope")
	require.NoError(t, writeFrame(peerA.conn, overlay.Transaction{Envelope: envelope}))

	require.NoError(t, peerB.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	msgType, body := readFrame(t, peerB.conn)
	require.Equal(t, overlay.TypeTransaction, msgType)
	parsed, err := overlay.Unmarshal(msgType, body)
	require.NoError(t, err)
	require.Equal(t, envelope, parsed.(overlay.Transaction).Envelope)

	require.NoError(t, peerA.conn.SetReadDeadline(time.Now().Add(300*time.Millisecond)))
	header := make([]byte, 6)
	_, err = io.ReadFull(peerA.conn, header)
	require.Error(t, err, "originating peer must not receive its own flooded transaction back")
}
