package overlay

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/stellarcore-go/ledger-overlay/internal/obslog"
)

// PeerSummary is one row of the manager's session directory, consumed by
// the admin API's ListPeers (SPEC_FULL.md §5.9).
type PeerSummary struct {
	ID            string
	State         string
	Authenticated bool
	Inbound       bool
	IP            string
}

// sessionEntry pairs a Session with the transport driving it and the
// bookkeeping the directory needs without re-locking the session.
type sessionEntry struct {
	session   *Session
	transport *FrameTransport
	inbound   bool
	ip        string
}

// Manager is the peer-set-wide orchestrator (spec.md §6's OverlayManager):
// it accepts inbound connections, dials outbound ones, and fans flooded
// messages out across every authenticated session. Grounded on the
// teacher's Overlay type (internal/peermanagement/overlay.go) — same
// accept-loop/connect/broadcast/peer-map shape — generalized from its TLS
// HTTP-upgrade handshake and PeerID-keyed map to this core's nonce-signature
// handshake (C6) keyed by the strkey-encoded Stellar account ID.
type Manager struct {
	cfg    HandshakeConfig
	herder Herder
	peers  PeerRecordStore
	flood  *FloodMemoizer
	clock  LedgerClock
	logger obslog.Logger

	mu       sync.RWMutex
	sessions map[string]*sessionEntry

	listener     net.Listener
	shuttingDown atomic.Bool

	wg sync.WaitGroup
}

// NewManager constructs a Manager. herder and peers may be nil in tests that
// don't exercise their paths. clock may be nil; flood records then stamp
// LedgerIndex 0 (see Session.currentLedgerHint).
func NewManager(cfg HandshakeConfig, herder Herder, peers PeerRecordStore, flood *FloodMemoizer, clock LedgerClock, logger obslog.Logger) *Manager {
	if logger == nil {
		logger = obslog.NoOp{}
	}
	if flood == nil {
		flood = NewFloodMemoizer()
	}
	return &Manager{
		cfg:      cfg,
		herder:   herder,
		peers:    peers,
		flood:    flood,
		clock:    clock,
		logger:   logger,
		sessions: make(map[string]*sessionEntry),
	}
}

// Address returns the listener's bound address, or "" before ListenAndServe
// has bound one.
func (m *Manager) Address() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listener == nil {
		return ""
	}
	return m.listener.Addr().String()
}

// ListenAndServe accepts inbound connections on addr until ctx is cancelled.
func (m *Manager) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("overlay: listen %s: %w", addr, err)
	}
	m.mu.Lock()
	m.listener = listener
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		<-ctx.Done()
		listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			m.logger.Warn("accept failed", "error", err)
			continue
		}
		go m.handleInbound(conn)
	}
}

func (m *Manager) handleInbound(conn net.Conn) {
	session := NewSession(m.cfg, false, nil, m.herder, m, m.flood, m.peers, m.clock, m.logger)
	transport := NewFrameTransport(conn, session, m.logger)
	session.tx = transport

	ip, port := endpointOf(conn.RemoteAddr())
	session.endpointIP, session.endpointPort = ip, port

	entry := &sessionEntry{session: session, transport: transport, inbound: true, ip: conn.RemoteAddr().String()}
	m.trackPending(session, entry)

	if err := session.OnConnected(); err != nil {
		m.logger.Warn("inbound handshake failed", "error", err)
		transport.Close()
		return
	}
	m.runSession(session, transport)
}

// Connect dials addr and drives the outbound handshake (initiated=true,
// spec.md §4.6.1).
func (m *Manager) Connect(ctx context.Context, addr string) error {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("overlay: dial %s: %w", addr, err)
	}

	session := NewSession(m.cfg, true, nil, m.herder, m, m.flood, m.peers, m.clock, m.logger)
	transport := NewFrameTransport(conn, session, m.logger)
	session.tx = transport

	ip, port := endpointOf(conn.RemoteAddr())
	session.endpointIP, session.endpointPort = ip, port

	entry := &sessionEntry{session: session, transport: transport, inbound: false, ip: conn.RemoteAddr().String()}
	m.trackPending(session, entry)

	if err := session.OnConnected(); err != nil {
		transport.Close()
		return err
	}
	go m.runSession(session, transport)
	return nil
}

// trackPending registers a session under a temporary key (its local memory
// address) until the handshake completes and handleHello assigns a real
// peerID; runSession's cleanup and the directory walk both tolerate either
// key shape.
func (m *Manager) trackPending(session *Session, entry *sessionEntry) {
	m.mu.Lock()
	m.sessions[pendingKey(session)] = entry
	m.mu.Unlock()
}

func pendingKey(session *Session) string {
	return fmt.Sprintf("pending:%p", session)
}

// RegisterPeerID re-keys session's directory entry from its temporary
// pending key to its real peerID once the handshake's HELLO has been
// processed (spec.md §4.6.1 GOT_HELLO), matching the teacher's
// o.peers[peerID] indexing in internal/peermanagement/overlay.go. Without
// this, every session stays keyed under its pending address forever and
// flood fan-out can never exclude a peer by identity (BroadcastMessageExcept
// below). A second HELLO for an already-rekeyed session (state re-entry) is
// tolerated as a no-op rename.
func (m *Manager) RegisterPeerID(peerID string, session *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := pendingKey(session)
	entry, ok := m.sessions[key]
	if !ok {
		for k, e := range m.sessions {
			if e.session == session {
				key, entry, ok = k, e, true
				break
			}
		}
	}
	if !ok {
		return
	}
	delete(m.sessions, key)
	m.sessions[peerID] = entry
}

func (m *Manager) runSession(session *Session, transport *FrameTransport) {
	err := transport.Run()
	if err != nil {
		m.logger.Debug("session ended", "error", err)
	}
	m.mu.Lock()
	delete(m.sessions, pendingKey(session))
	if id := session.peerIDSnapshot(); id != "" {
		delete(m.sessions, id)
	}
	m.mu.Unlock()
}

// RecvFloodedMsg satisfies OverlayManager; routing a received flooded
// message into the Herder is the session's job (handleTransaction/
// handleSCPMessage), so this is a no-op hook for future cross-session
// bookkeeping.
func (m *Manager) RecvFloodedMsg(msg Message, fromPeerID string) {}

// BroadcastMessage sends msg to every authenticated session.
func (m *Manager) BroadcastMessage(msg Message) {
	m.BroadcastMessageExcept(msg, nil)
}

// BroadcastMessageExcept sends msg to every authenticated session not in
// exclude (spec.md §4.5, flood re-broadcast).
func (m *Manager) BroadcastMessageExcept(msg Message, exclude []string) {
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}

	m.mu.RLock()
	entries := make([]*sessionEntry, 0, len(m.sessions))
	for _, entry := range m.sessions {
		if skip[entry.session.peerIDSnapshot()] {
			continue
		}
		entries = append(entries, entry)
	}
	m.mu.RUnlock()

	for _, entry := range entries {
		if !entry.session.IsAuthenticated() {
			continue
		}
		if err := entry.transport.Send(msg); err != nil {
			m.logger.Warn("broadcast send failed", "error", err)
		}
	}
}

// IsPeerAccepted reports whether the overlay has room for another
// authenticated peer; this core places no hard cap, so it accepts every
// peer unless the manager is shutting down.
func (m *Manager) IsPeerAccepted(peerID string) bool { return !m.IsShuttingDown() }

// IsShuttingDown reports whether Stop has been called.
func (m *Manager) IsShuttingDown() bool { return m.shuttingDown.Load() }

// Stop marks the manager as shutting down and closes the listener; existing
// sessions drain via their own Drop/Close paths.
func (m *Manager) Stop() {
	m.shuttingDown.Store(true)
	m.mu.RLock()
	listener := m.listener
	m.mu.RUnlock()
	if listener != nil {
		listener.Close()
	}
	m.wg.Wait()
}

// Sessions returns a directory snapshot for the admin API (SPEC_FULL.md
// §5.9).
func (m *Manager) Sessions() []PeerSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]PeerSummary, 0, len(m.sessions))
	for key, entry := range m.sessions {
		id := key
		if entry.session.peerIDSnapshot() != "" {
			id = entry.session.peerIDSnapshot()
		}
		out = append(out, PeerSummary{
			ID:            id,
			State:         entry.session.State().String(),
			Authenticated: entry.session.IsAuthenticated(),
			Inbound:       entry.inbound,
			IP:            entry.ip,
		})
	}
	return out
}

func endpointOf(addr net.Addr) ([4]byte, uint32) {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok || tcpAddr.IP.To4() == nil {
		return [4]byte{}, 0
	}
	var ip [4]byte
	copy(ip[:], tcpAddr.IP.To4())
	return ip, uint32(tcpAddr.Port)
}
