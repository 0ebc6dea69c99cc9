package overlay

import (
	"net"

	"github.com/stellarcore-go/ledger-overlay/internal/cryptoutil"
)

// HandshakeConfig carries the identity this node presents during HELLO/AUTH
// and the values it validates the remote side against (spec.md §4.6.2).
type HandshakeConfig struct {
	KeyPair        cryptoutil.KeyPair
	NetworkID      [32]byte
	LedgerVersion  uint32
	OverlayVersion uint32
	VersionStr     string
	ListeningPort  int32
}

// BuildHello constructs this side's HELLO message.
func BuildHello(cfg HandshakeConfig, sentNonce [32]byte) Hello {
	return Hello{
		LedgerVersion:  cfg.LedgerVersion,
		OverlayVersion: cfg.OverlayVersion,
		VersionStr:     cfg.VersionStr,
		NetworkID:      cfg.NetworkID,
		ListeningPort:  cfg.ListeningPort,
		PeerID:         cfg.KeyPair.Public,
		Nonce:          sentNonce,
	}
}

// ValidateHello rejects HELLO messages per spec.md §4.6.2: self-connect,
// network mismatch, and out-of-range listening port.
func ValidateHello(hello Hello, cfg HandshakeConfig) error {
	if hello.PeerID == cfg.KeyPair.Public {
		return ErrSelfConnection
	}
	if hello.NetworkID != cfg.NetworkID {
		return ErrNetworkMismatch
	}
	if hello.ListeningPort <= 0 || hello.ListeningPort > 65535 {
		return ErrInvalidPort
	}
	return nil
}

// SignAuth signs sentNonce‖receivedNonce with this side's private key, the
// signer's own nonce first (spec.md §4.6.2).
func SignAuth(kp cryptoutil.KeyPair, sentNonce, receivedNonce [32]byte) Auth {
	payload := make([]byte, 0, 64)
	payload = append(payload, sentNonce[:]...)
	payload = append(payload, receivedNonce[:]...)
	return Auth{Signature: kp.Sign(payload)}
}

// VerifyAuth verifies an incoming AUTH signature. The verifier's own
// receivedNonce is the signer's sentNonce, and vice versa, so the
// verification payload is swapped relative to SignAuth's construction
// (spec.md §4.6.2: "Receiver verifies over receivedNonce‖sentNonce").
func VerifyAuth(remotePubKey [32]byte, auth Auth, receivedNonce, sentNonce [32]byte) error {
	payload := make([]byte, 0, 64)
	payload = append(payload, receivedNonce[:]...)
	payload = append(payload, sentNonce[:]...)
	if !cryptoutil.Verify(remotePubKey, payload, auth.Signature) {
		return ErrInvalidSignature
	}
	return nil
}

// IsPrivateAddress reports whether ip falls in an RFC1918 private range or
// the 127.0.0.0/8 loopback range, used by PEERS filtering (spec.md §4.6.3) and sendPeers (§4.6.4).
func IsPrivateAddress(ip [4]byte) bool {
	netIP := net.IPv4(ip[0], ip[1], ip[2], ip[3])
	for _, block := range privateBlocks {
		if block.Contains(netIP) {
			return true
		}
	}
	return false
}

var privateBlocks = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, block, err := net.ParseCIDR(c)
		if err != nil {
			panic("overlay: invalid private CIDR literal: " + err.Error())
		}
		out = append(out, block)
	}
	return out
}
