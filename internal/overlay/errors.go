package overlay

import (
	"errors"
	"fmt"
)

// Sentinel errors for protocol violations (spec.md §7 kind 1: logged,
// session is dropped, never propagated to other peers).
var (
	ErrSelfConnection     = errors.New("overlay: self connection")
	ErrNetworkMismatch    = errors.New("overlay: network id mismatch")
	ErrInvalidPort        = errors.New("overlay: listening port out of range")
	ErrInvalidHandshake   = errors.New("overlay: invalid handshake message")
	ErrOutOfOrderAuth     = errors.New("overlay: auth received before hello")
	ErrInvalidSignature   = errors.New("overlay: invalid auth signature")
	ErrPreAuthMessageType = errors.New("overlay: message type not permitted before authentication")
	ErrSessionClosed      = errors.New("overlay: session is closing")
	ErrPrivateAddress     = errors.New("overlay: rejected private-range address")
)

// SessionError wraps a protocol violation with the session it occurred on,
// mirroring the teacher's PeerError/HandshakeError (internal/peermanagement/errors.go).
type SessionError struct {
	PeerID string
	Stage  string
	Err    error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s: %s: %v", e.PeerID, e.Stage, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// NewSessionError constructs a SessionError.
func NewSessionError(peerID, stage string, err error) *SessionError {
	return &SessionError{PeerID: peerID, Stage: stage, Err: err}
}
