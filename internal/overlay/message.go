// Package overlay implements the Peer Overlay Handshake & Message Router:
// the wire message union, the Flood Memoizer (C5), the Peer Session state
// machine and dispatch (C6), and the TCP Frame Transport (C7), per
// spec.md §4.5-§4.7 and §6.
package overlay

// MessageType tags the variant of a StellarMessage, replacing the source's
// dynamic type-tag switch with an explicit enum and exhaustive handlers
// (spec.md §9, "Dynamic message dispatch").
type MessageType uint32

const (
	TypeErrorMsg MessageType = iota
	TypeHello
	TypeAuth
	TypeDontHave
	TypeGetPeers
	TypePeers
	TypeGetTxSet
	TypeTxSet
	TypeTransaction
	TypeGetSCPQuorumSet
	TypeSCPQuorumSet
	TypeSCPMessage
)

func (t MessageType) String() string {
	switch t {
	case TypeErrorMsg:
		return "ERROR_MSG"
	case TypeHello:
		return "HELLO"
	case TypeAuth:
		return "AUTH"
	case TypeDontHave:
		return "DONT_HAVE"
	case TypeGetPeers:
		return "GET_PEERS"
	case TypePeers:
		return "PEERS"
	case TypeGetTxSet:
		return "GET_TX_SET"
	case TypeTxSet:
		return "TX_SET"
	case TypeTransaction:
		return "TRANSACTION"
	case TypeGetSCPQuorumSet:
		return "GET_SCP_QUORUMSET"
	case TypeSCPQuorumSet:
		return "SCP_QUORUMSET"
	case TypeSCPMessage:
		return "SCP_MESSAGE"
	default:
		return "UNKNOWN"
	}
}

// Message is implemented by every StellarMessage variant.
type Message interface {
	Type() MessageType
}

// ErrorMsg carries a peer-reported error code and free-text message.
type ErrorMsg struct {
	Code    int32
	Message string
}

func (ErrorMsg) Type() MessageType { return TypeErrorMsg }

// Hello is the first message exchanged on every session, per spec.md §6.
type Hello struct {
	LedgerVersion  uint32
	OverlayVersion uint32
	VersionStr     string
	NetworkID      [32]byte
	ListeningPort  int32
	PeerID         [32]byte // sender's ed25519 public key
	Nonce          [32]byte
}

func (Hello) Type() MessageType { return TypeHello }

// Auth carries the ed25519 signature binding both sides' nonces (spec.md §4.6.2).
type Auth struct {
	Signature [64]byte
}

func (Auth) Type() MessageType { return TypeAuth }

// DontHave reports that the sender does not have the object a peer asked for.
type DontHave struct {
	RequestedType MessageType
	ReqHash       [32]byte
}

func (DontHave) Type() MessageType { return TypeDontHave }

// GetPeers requests a PEERS advertisement.
type GetPeers struct{}

func (GetPeers) Type() MessageType { return TypeGetPeers }

// PeerAddress is one entry of a PEERS message (spec.md §6).
type PeerAddress struct {
	IP          [4]byte
	Port        uint32
	NumFailures uint32
}

// Peers advertises known peer addresses.
type Peers struct {
	Addresses []PeerAddress
}

func (Peers) Type() MessageType { return TypePeers }

// GetTxSet requests a transaction set by hash.
type GetTxSet struct {
	Hash [32]byte
}

func (GetTxSet) Type() MessageType { return TypeGetTxSet }

// TxSet carries a transaction set's raw transaction envelopes.
type TxSet struct {
	Hash         [32]byte
	Transactions [][]byte
}

func (TxSet) Type() MessageType { return TypeTxSet }

// Transaction carries a single signed transaction envelope.
type Transaction struct {
	Envelope []byte
}

func (Transaction) Type() MessageType { return TypeTransaction }

// GetSCPQuorumSet requests a quorum set by hash.
type GetSCPQuorumSet struct {
	Hash [32]byte
}

func (GetSCPQuorumSet) Type() MessageType { return TypeGetSCPQuorumSet }

// SCPQuorumSet carries a raw-encoded quorum set.
type SCPQuorumSet struct {
	Encoded []byte
}

func (SCPQuorumSet) Type() MessageType { return TypeSCPQuorumSet }

// SCPMessage carries a raw-encoded SCP envelope.
type SCPMessage struct {
	Envelope []byte
}

func (SCPMessage) Type() MessageType { return TypeSCPMessage }
