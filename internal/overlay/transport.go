package overlay

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/stellarcore-go/ledger-overlay/internal/obslog"
)

const (
	// lengthPrefixSize is the 4-byte big-endian frame length prefix
	// (spec.md §4.7).
	lengthPrefixSize = 4

	// lengthTopBitMask clears the reserved top bit of the frame length.
	lengthTopBitMask = 0x7FFFFFFF

	// maxFrameSize bounds a single frame's body to guard against a
	// corrupt or hostile length prefix forcing an unbounded allocation.
	maxFrameSize = 64 * 1024 * 1024
)

// FrameTransport is the TCP Frame Transport (C7, spec.md §4.7): a
// length-prefixed framing layer over a net.Conn, with a FIFO outbound queue
// drained by a single writer goroutine and a read loop that decodes and
// dispatches inbound frames to a Session. Grounded on the teacher's
// readLoop/writeLoop split in internal/peermanagement/peer.go, generalized
// from its compressed XRPL header to this core's simpler 4-byte length
// prefix with a masked reserved top bit.
type FrameTransport struct {
	conn    net.Conn
	session *Session
	logger  obslog.Logger

	sendCh  chan []byte
	closeCh chan struct{}
	once    sync.Once
}

// NewFrameTransport wraps conn for one peer session. session.tx must be set
// to the returned transport (or a Sender wrapping it) before Run is called.
func NewFrameTransport(conn net.Conn, session *Session, logger obslog.Logger) *FrameTransport {
	if logger == nil {
		logger = obslog.NoOp{}
	}
	return &FrameTransport{
		conn:    conn,
		session: session,
		logger:  logger,
		sendCh:  make(chan []byte, 64),
		closeCh: make(chan struct{}),
	}
}

// Send marshals msg and queues the framed bytes for the write loop
// (spec.md §4.7, "FIFO queue of pre-marshalled byte buffers").
func (t *FrameTransport) Send(msg Message) error {
	body, err := Marshal(msg)
	if err != nil {
		return err
	}
	if uint32(len(body)) > maxFrameSize {
		return fmt.Errorf("overlay: outbound frame too large: %d bytes", len(body))
	}

	frame := make([]byte, lengthPrefixSize+2+len(body))
	binary.BigEndian.PutUint32(frame[0:4], uint32(len(body)+2)&lengthTopBitMask)
	binary.BigEndian.PutUint16(frame[4:6], uint16(msg.Type()))
	copy(frame[6:], body)

	select {
	case t.sendCh <- frame:
		return nil
	case <-t.closeCh:
		return ErrSessionClosed
	}
}

// Run drives both halves of the connection until a read error, write error,
// short frame, or parse error occurs, at which point the session transitions
// to CLOSING and the connection is torn down (spec.md §4.7).
func (t *FrameTransport) Run() error {
	errCh := make(chan error, 2)

	go func() { errCh <- t.readLoop() }()
	go func() { errCh <- t.writeLoop() }()

	err := <-errCh
	t.Close()
	return err
}

func (t *FrameTransport) readLoop() error {
	header := make([]byte, lengthPrefixSize+2)
	for {
		select {
		case <-t.closeCh:
			return nil
		default:
		}

		if _, err := io.ReadFull(t.conn, header); err != nil {
			t.session.Drop()
			return fmt.Errorf("overlay: read header: %w", err)
		}

		frameLen := binary.BigEndian.Uint32(header[0:4]) & lengthTopBitMask
		if frameLen < 2 {
			t.session.Drop()
			return fmt.Errorf("overlay: short frame: length %d", frameLen)
		}
		if frameLen > maxFrameSize {
			t.session.Drop()
			return fmt.Errorf("overlay: inbound frame too large: %d bytes", frameLen)
		}
		msgType := MessageType(binary.BigEndian.Uint16(header[4:6]))

		body := make([]byte, frameLen-2)
		if len(body) > 0 {
			if _, err := io.ReadFull(t.conn, body); err != nil {
				t.session.Drop()
				return fmt.Errorf("overlay: read body: %w", err)
			}
		}

		msg, err := Unmarshal(msgType, body)
		if err != nil {
			t.session.Drop()
			return fmt.Errorf("overlay: parse frame: %w", err)
		}

		if err := t.session.HandleMessage(msg); err != nil {
			t.logger.Warn("session dispatch error", "error", err)
			if t.session.State() == StateClosing {
				return err
			}
		}
	}
}

func (t *FrameTransport) writeLoop() error {
	for {
		select {
		case <-t.closeCh:
			return nil
		case frame := <-t.sendCh:
			if _, err := t.conn.Write(frame); err != nil {
				t.session.Drop()
				return fmt.Errorf("overlay: write: %w", err)
			}
		}
	}
}

// Close tears down the connection and abandons the outbound queue
// (spec.md §5, "Cancellation").
func (t *FrameTransport) Close() error {
	var err error
	t.once.Do(func() {
		close(t.closeCh)
		t.session.Drop()
		err = t.conn.Close()
	})
	return err
}
