package overlay

import "context"

// TxStatus reports the outcome of submitting a transaction to the Herder.
type TxStatus int

const (
	TxStatusUnknown TxStatus = iota
	TxStatusPending
	TxStatusDuplicate
	TxStatusRejected
)

// Herder is the consensus-facing collaborator (spec.md §6): it owns
// transaction sets, SCP quorum sets, and SCP envelopes. This core never
// implements it; it only consumes the interface.
type Herder interface {
	RecvTransaction(ctx context.Context, envelope []byte) (TxStatus, error)
	RecvTxSet(ctx context.Context, hash [32]byte, transactions [][]byte) error
	RecvSCPEnvelope(ctx context.Context, envelope []byte) error
	RecvSCPQuorumSet(ctx context.Context, hash [32]byte, encoded []byte) error
	GetTxSet(ctx context.Context, hash [32]byte) ([][]byte, bool)
	GetQSet(ctx context.Context, hash [32]byte) ([]byte, bool)
	PeerDoesntHave(peerID string, msgType MessageType, hash [32]byte)
}

// OverlayManager is the peer-set-wide collaborator (spec.md §6): it knows
// about every session and can fan a message out to some or all of them.
type OverlayManager interface {
	RecvFloodedMsg(msg Message, fromPeerID string)
	BroadcastMessage(msg Message)
	BroadcastMessageExcept(msg Message, exclude []string)
	IsPeerAccepted(peerID string) bool
	IsShuttingDown() bool
}

// LedgerClock supplies the ledger index a newly-flooded message should be
// stamped with (spec.md §4.5's FloodRecord.ledgerIndex), satisfied by
// ledger.LedgerManager.CurrentLedgerIndex without this package importing
// internal/ledger directly.
type LedgerClock interface {
	CurrentLedgerIndex() uint32
}

// PeerRecord is one row of the peer-record backoff table (spec.md §4.6.5).
type PeerRecord struct {
	IP            [4]byte
	Port          uint32
	NumFailures   uint32
	NextRetry     int64 // unix seconds
	LastHandshake int64 // unix seconds, 0 if never succeeded
}

// PeerRecordStore is the persistent (ip,port)-keyed backoff table C6
// depends on for peer advertisement (§4.6.4) and backoff (§4.6.5).
// internal/storage/peerstore provides the pebble-backed implementation.
type PeerRecordStore interface {
	Get(ip [4]byte, port uint32) (PeerRecord, bool, error)
	Put(rec PeerRecord) error
	// TopByNextRetry returns up to limit records ordered by NextRetry
	// ascending, for sendPeers (spec.md §4.6.4).
	TopByNextRetry(limit int) ([]PeerRecord, error)
}
