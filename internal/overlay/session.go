package overlay

import (
	"context"
	"crypto/sha256"
	"sync"
	"time"

	"github.com/stellarcore-go/ledger-overlay/internal/codec/strkey"
	"github.com/stellarcore-go/ledger-overlay/internal/cryptoutil"
	"github.com/stellarcore-go/ledger-overlay/internal/obslog"
)

// SessionState is one state of the peer handshake state machine (spec.md §4.6.1).
type SessionState int

const (
	StateConnecting SessionState = iota
	StateConnected
	StateGotHello
	StateGotAuth
	StateClosing
)

func (s SessionState) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateGotHello:
		return "GOT_HELLO"
	case StateGotAuth:
		return "GOT_AUTH"
	case StateClosing:
		return "CLOSING"
	default:
		return "UNKNOWN"
	}
}

// Sender is the narrow outbound surface a Session needs from its transport
// (satisfied by *FrameTransport).
type Sender interface {
	Send(msg Message) error
}

// peerIDRegistrar is implemented by OverlayManager implementations that
// index sessions by peerID (*Manager does) so flood fan-out can exclude
// the originating peer by identity rather than by connection-local
// bookkeeping. Optional: fakes in tests may omit it.
type peerIDRegistrar interface {
	RegisterPeerID(peerID string, session *Session)
}

// Session is the Peer Session state machine and message dispatcher (C6,
// spec.md §4.6). It owns no socket directly; a FrameTransport drives it by
// calling HandleMessage for every inbound frame and Session replies through
// the attached Sender, mirroring the teacher's separation of Peer
// (state/identity) from its readLoop/writeLoop transport in
// internal/peermanagement/peer.go.
type Session struct {
	mu sync.Mutex

	peerID     string // "" until GOT_HELLO
	initiated  bool   // true if we dialed
	state      SessionState

	cfg HandshakeConfig

	sentNonce     [32]byte
	receivedNonce [32]byte
	remotePubKey  [32]byte

	tx      Sender
	herder  Herder
	overlay OverlayManager
	flood   *FloodMemoizer
	peers   PeerRecordStore
	clock   LedgerClock
	logger  obslog.Logger

	endpointIP   [4]byte
	endpointPort uint32
}

// NewSession constructs a Session for one peer connection. initiated is true
// when this side dialed the connection (outbound). clock may be nil in
// tests that don't exercise flood-record ledger stamping; currentLedgerHint
// falls back to 0 in that case.
func NewSession(cfg HandshakeConfig, initiated bool, tx Sender, herder Herder, overlayMgr OverlayManager, flood *FloodMemoizer, peers PeerRecordStore, clock LedgerClock, logger obslog.Logger) *Session {
	if logger == nil {
		logger = obslog.NoOp{}
	}
	initial := StateConnected
	if initiated {
		initial = StateConnecting
	}
	return &Session{
		initiated: initiated,
		state:     initial,
		cfg:       cfg,
		tx:        tx,
		herder:    herder,
		overlay:   overlayMgr,
		flood:     flood,
		peers:     peers,
		clock:     clock,
		logger:    logger,
	}
}

// State returns the current state under lock.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsConnected reports state ∉ {CONNECTING, CLOSING} (spec.md §4.6.1).
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != StateConnecting && s.state != StateClosing
}

// IsAuthenticated reports state == GOT_AUTH.
func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateGotAuth
}

// ShouldAbort reflects CLOSING or overlay-manager shutdown, gating all
// work-issuing operations (spec.md §5, "Cancellation").
func (s *Session) ShouldAbort() bool {
	s.mu.Lock()
	closing := s.state == StateClosing
	s.mu.Unlock()
	return closing || (s.overlay != nil && s.overlay.IsShuttingDown())
}

// Drop transitions the session to CLOSING immediately (spec.md §5).
func (s *Session) Drop() {
	s.mu.Lock()
	s.state = StateClosing
	s.mu.Unlock()
}

// OnConnected transitions CONNECTING -> CONNECTED on socket connect, and for
// an initiated session sends HELLO (spec.md §4.6.1).
func (s *Session) OnConnected() error {
	s.mu.Lock()
	if s.state != StateConnecting {
		s.mu.Unlock()
		return nil
	}
	s.state = StateConnected
	s.mu.Unlock()

	if s.initiated {
		return s.sendHello()
	}
	return nil
}

func (s *Session) sendHello() error {
	nonce, err := cryptoutil.RandomNonce()
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.sentNonce = nonce
	s.mu.Unlock()

	return s.tx.Send(BuildHello(s.cfg, nonce))
}

// HandleMessage dispatches one inbound message per the pre-auth gate
// (spec.md §4.6.1) and the dispatch table (spec.md §4.6.3). Protocol
// violations drop the session and return a *SessionError; they are never
// propagated to other peers (spec.md §7 kind 1).
func (s *Session) HandleMessage(msg Message) error {
	s.mu.Lock()
	state := s.state
	peerID := s.peerID
	s.mu.Unlock()

	if state == StateClosing {
		return NewSessionError(peerID, "dispatch", ErrSessionClosed)
	}

	if state != StateGotAuth {
		switch msg.Type() {
		case TypeHello, TypeAuth, TypePeers:
		default:
			s.Drop()
			return NewSessionError(peerID, "pre-auth-gate", ErrPreAuthMessageType)
		}
	}

	switch m := msg.(type) {
	case Hello:
		return s.handleHello(m)
	case Auth:
		return s.handleAuth(m)
	case DontHave:
		s.herder.PeerDoesntHave(peerID, m.RequestedType, m.ReqHash)
		return nil
	case GetPeers:
		return s.sendPeers()
	case Peers:
		return s.handlePeers(m)
	case GetTxSet:
		return s.handleGetTxSet(m)
	case TxSet:
		return s.herder.RecvTxSet(context.Background(), m.Hash, m.Transactions)
	case Transaction:
		return s.handleTransaction(m)
	case GetSCPQuorumSet:
		return s.handleGetQSet(m)
	case SCPQuorumSet:
		return s.handleQSet(m)
	case SCPMessage:
		return s.handleSCPMessage(m)
	case ErrorMsg:
		s.logger.Warn("peer reported error", "peer", peerID, "code", m.Code, "message", m.Message)
		return nil
	default:
		s.Drop()
		return NewSessionError(peerID, "dispatch", ErrInvalidHandshake)
	}
}

func (s *Session) handleHello(hello Hello) error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state != StateConnected && state != StateConnecting {
		s.Drop()
		return NewSessionError(s.peerID, "hello", ErrInvalidHandshake)
	}

	if err := ValidateHello(hello, s.cfg); err != nil {
		s.Drop()
		return NewSessionError(peerIDString(hello.PeerID), "hello", err)
	}

	peerID := peerIDString(hello.PeerID)

	s.mu.Lock()
	s.receivedNonce = hello.Nonce
	s.remotePubKey = hello.PeerID
	s.peerID = peerID
	s.endpointPort = uint32(hello.ListeningPort)
	s.state = StateGotHello
	s.mu.Unlock()

	if registrar, ok := s.overlay.(peerIDRegistrar); ok {
		registrar.RegisterPeerID(peerID, s)
	}

	if s.initiated {
		return s.sendAuth()
	}
	return s.sendHello()
}

func (s *Session) sendAuth() error {
	s.mu.Lock()
	sent, received := s.sentNonce, s.receivedNonce
	s.mu.Unlock()
	return s.tx.Send(SignAuth(s.cfg.KeyPair, sent, received))
}

func (s *Session) handleAuth(auth Auth) error {
	s.mu.Lock()
	state := s.state
	sent, received := s.sentNonce, s.receivedNonce
	remotePub := s.remotePubKey
	peerID := s.peerID
	initiated := s.initiated
	s.mu.Unlock()

	if state != StateGotHello {
		s.Drop()
		return NewSessionError(peerID, "auth", ErrOutOfOrderAuth)
	}

	if err := VerifyAuth(remotePub, auth, received, sent); err != nil {
		s.Drop()
		return NewSessionError(peerID, "auth", err)
	}

	accepted := s.overlay == nil || s.overlay.IsPeerAccepted(peerID)

	s.mu.Lock()
	s.state = StateGotAuth
	s.mu.Unlock()

	s.noteHandshakeSuccess()

	if !initiated {
		if accepted {
			if err := s.sendAuth(); err != nil {
				return err
			}
			if err := s.sendPeers(); err != nil {
				return err
			}
			return nil
		}
		_ = s.sendPeers()
		s.Drop()
		return nil
	}
	return nil
}

// noteHandshakeSuccess resets the per-peer backoff counter (spec.md §4.6.5).
func (s *Session) noteHandshakeSuccess() {
	if s.peers == nil {
		return
	}
	rec, _, err := s.peers.Get(s.endpointIP, s.endpointPort)
	if err != nil {
		s.logger.Warn("peer record lookup failed", "peer", s.peerID, "error", err)
		return
	}
	rec.IP = s.endpointIP
	rec.Port = s.endpointPort
	rec.NumFailures = 0
	rec.NextRetry = 0
	rec.LastHandshake = nowUnix()
	if err := s.peers.Put(rec); err != nil {
		s.logger.Warn("peer record update failed", "peer", s.peerID, "error", err)
	}
}

func (s *Session) handlePeers(p Peers) error {
	if s.peers == nil {
		return nil
	}
	for _, addr := range p.Addresses {
		if addr.Port == 0 || addr.Port > 65535 {
			continue
		}
		if IsPrivateAddress(addr.IP) {
			continue
		}
		if _, found, err := s.peers.Get(addr.IP, addr.Port); err == nil && !found {
			_ = s.peers.Put(PeerRecord{IP: addr.IP, Port: addr.Port, NumFailures: addr.NumFailures})
		}
	}
	return nil
}

// sendPeers queries the peer-record store for up to 50 peers ordered by
// next-retry ascending, drops private-range addresses, and emits PEERS
// (spec.md §4.6.4).
func (s *Session) sendPeers() error {
	if s.peers == nil {
		return s.tx.Send(Peers{})
	}
	records, err := s.peers.TopByNextRetry(50)
	if err != nil {
		return err
	}
	addrs := make([]PeerAddress, 0, len(records))
	for _, rec := range records {
		if IsPrivateAddress(rec.IP) {
			continue
		}
		addrs = append(addrs, PeerAddress{IP: rec.IP, Port: rec.Port, NumFailures: rec.NumFailures})
	}
	return s.tx.Send(Peers{Addresses: addrs})
}

func (s *Session) handleGetTxSet(m GetTxSet) error {
	if txs, ok := s.herder.GetTxSet(context.Background(), m.Hash); ok {
		return s.tx.Send(TxSet{Hash: m.Hash, Transactions: txs})
	}
	return s.tx.Send(DontHave{RequestedType: TypeTxSet, ReqHash: m.Hash})
}

func (s *Session) handleTransaction(m Transaction) error {
	status, err := s.herder.RecvTransaction(context.Background(), m.Envelope)
	if err != nil {
		return err
	}
	if status == TxStatusPending {
		index := sha256.Sum256(m.Envelope)
		s.flood.AddRecord(index, m, s.currentLedgerHint(), s.peerID)
		s.flood.Broadcast(index, s.overlay)
	}
	return nil
}

func (s *Session) handleGetQSet(m GetSCPQuorumSet) error {
	if q, ok := s.herder.GetQSet(context.Background(), m.Hash); ok {
		return s.tx.Send(SCPQuorumSet{Encoded: q})
	}
	return s.tx.Send(DontHave{RequestedType: TypeSCPQuorumSet, ReqHash: m.Hash})
}

func (s *Session) handleQSet(m SCPQuorumSet) error {
	hash := sha256.Sum256(m.Encoded)
	return s.herder.RecvSCPQuorumSet(context.Background(), hash, m.Encoded)
}

func (s *Session) handleSCPMessage(m SCPMessage) error {
	index := sha256.Sum256(m.Envelope)
	s.flood.AddRecord(index, m, s.currentLedgerHint(), s.peerID)
	s.flood.Broadcast(index, s.overlay)
	return s.herder.RecvSCPEnvelope(context.Background(), m.Envelope)
}

// currentLedgerHint returns the ledger index newly-flooded records should
// be stamped with (spec.md §4.5), read from the session's LedgerClock; 0
// if none was supplied (tests that don't exercise ClearBelow).
func (s *Session) currentLedgerHint() uint32 {
	if s.clock == nil {
		return 0
	}
	return s.clock.CurrentLedgerIndex()
}

// peerIDSnapshot returns the session's peerID under lock, or "" before
// GOT_HELLO.
func (s *Session) peerIDSnapshot() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.peerID
}

func peerIDString(pub [32]byte) string {
	return strkey.EncodeAccountID(pub)
}

func nowUnix() int64 { return time.Now().Unix() }
