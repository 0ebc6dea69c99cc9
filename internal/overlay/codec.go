package overlay

import (
	"encoding/binary"
	"fmt"
)

// Marshal encodes a Message body (without the frame header) into its wire
// form. Field layout follows spec.md §6's EXTERNAL INTERFACES table; byte
// order is big-endian throughout, matching the frame length prefix.
func Marshal(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case ErrorMsg:
		buf := make([]byte, 4)
		binary.BigEndian.PutUint32(buf, uint32(m.Code))
		return appendString(buf, m.Message), nil
	case Hello:
		buf := make([]byte, 0, 4+4+32+4+32+32)
		buf = appendUint32(buf, m.LedgerVersion)
		buf = appendUint32(buf, m.OverlayVersion)
		buf = appendString(buf, m.VersionStr)
		buf = append(buf, m.NetworkID[:]...)
		buf = appendUint32(buf, uint32(m.ListeningPort))
		buf = append(buf, m.PeerID[:]...)
		buf = append(buf, m.Nonce[:]...)
		return buf, nil
	case Auth:
		return append([]byte{}, m.Signature[:]...), nil
	case DontHave:
		buf := make([]byte, 0, 36)
		buf = appendUint32(buf, uint32(m.RequestedType))
		buf = append(buf, m.ReqHash[:]...)
		return buf, nil
	case GetPeers:
		return nil, nil
	case Peers:
		buf := make([]byte, 0, 4+len(m.Addresses)*12)
		buf = appendUint32(buf, uint32(len(m.Addresses)))
		for _, a := range m.Addresses {
			buf = append(buf, a.IP[:]...)
			buf = appendUint32(buf, a.Port)
			buf = appendUint32(buf, a.NumFailures)
		}
		return buf, nil
	case GetTxSet:
		return append([]byte{}, m.Hash[:]...), nil
	case TxSet:
		buf := make([]byte, 0, 32+4)
		buf = append(buf, m.Hash[:]...)
		buf = appendUint32(buf, uint32(len(m.Transactions)))
		for _, tx := range m.Transactions {
			buf = appendBytes(buf, tx)
		}
		return buf, nil
	case Transaction:
		return appendBytes(nil, m.Envelope), nil
	case GetSCPQuorumSet:
		return append([]byte{}, m.Hash[:]...), nil
	case SCPQuorumSet:
		return appendBytes(nil, m.Encoded), nil
	case SCPMessage:
		return appendBytes(nil, m.Envelope), nil
	default:
		return nil, fmt.Errorf("overlay: marshal: unknown message type %T", msg)
	}
}

// Unmarshal decodes a message body of the given type.
func Unmarshal(msgType MessageType, payload []byte) (Message, error) {
	r := &reader{buf: payload}
	switch msgType {
	case TypeErrorMsg:
		code, err := r.uint32()
		if err != nil {
			return nil, err
		}
		s, err := r.string()
		if err != nil {
			return nil, err
		}
		return ErrorMsg{Code: int32(code), Message: s}, r.done()
	case TypeHello:
		var h Hello
		var err error
		if h.LedgerVersion, err = r.uint32(); err != nil {
			return nil, err
		}
		if h.OverlayVersion, err = r.uint32(); err != nil {
			return nil, err
		}
		if h.VersionStr, err = r.string(); err != nil {
			return nil, err
		}
		if err := r.fixed(h.NetworkID[:]); err != nil {
			return nil, err
		}
		port, err := r.uint32()
		if err != nil {
			return nil, err
		}
		h.ListeningPort = int32(port)
		if err := r.fixed(h.PeerID[:]); err != nil {
			return nil, err
		}
		if err := r.fixed(h.Nonce[:]); err != nil {
			return nil, err
		}
		return h, r.done()
	case TypeAuth:
		var a Auth
		if err := r.fixed(a.Signature[:]); err != nil {
			return nil, err
		}
		return a, r.done()
	case TypeDontHave:
		var d DontHave
		t, err := r.uint32()
		if err != nil {
			return nil, err
		}
		d.RequestedType = MessageType(t)
		if err := r.fixed(d.ReqHash[:]); err != nil {
			return nil, err
		}
		return d, r.done()
	case TypeGetPeers:
		return GetPeers{}, nil
	case TypePeers:
		n, err := r.uint32()
		if err != nil {
			return nil, err
		}
		addrs := make([]PeerAddress, 0, n)
		for i := uint32(0); i < n; i++ {
			var a PeerAddress
			if err := r.fixed(a.IP[:]); err != nil {
				return nil, err
			}
			if a.Port, err = r.uint32(); err != nil {
				return nil, err
			}
			if a.NumFailures, err = r.uint32(); err != nil {
				return nil, err
			}
			addrs = append(addrs, a)
		}
		return Peers{Addresses: addrs}, r.done()
	case TypeGetTxSet:
		var g GetTxSet
		if err := r.fixed(g.Hash[:]); err != nil {
			return nil, err
		}
		return g, r.done()
	case TypeTxSet:
		var t TxSet
		if err := r.fixed(t.Hash[:]); err != nil {
			return nil, err
		}
		n, err := r.uint32()
		if err != nil {
			return nil, err
		}
		t.Transactions = make([][]byte, 0, n)
		for i := uint32(0); i < n; i++ {
			b, err := r.bytes()
			if err != nil {
				return nil, err
			}
			t.Transactions = append(t.Transactions, b)
		}
		return t, r.done()
	case TypeTransaction:
		b, err := r.bytes()
		if err != nil {
			return nil, err
		}
		return Transaction{Envelope: b}, r.done()
	case TypeGetSCPQuorumSet:
		var g GetSCPQuorumSet
		if err := r.fixed(g.Hash[:]); err != nil {
			return nil, err
		}
		return g, r.done()
	case TypeSCPQuorumSet:
		b, err := r.bytes()
		if err != nil {
			return nil, err
		}
		return SCPQuorumSet{Encoded: b}, r.done()
	case TypeSCPMessage:
		b, err := r.bytes()
		if err != nil {
			return nil, err
		}
		return SCPMessage{Envelope: b}, r.done()
	default:
		return nil, fmt.Errorf("overlay: unmarshal: unknown message type %d", msgType)
	}
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendBytes(buf []byte, v []byte) []byte {
	buf = appendUint32(buf, uint32(len(v)))
	return append(buf, v...)
}

func appendString(buf []byte, v string) []byte {
	return appendBytes(buf, []byte(v))
}

// reader is a small cursor over a decode buffer, mirroring the teacher's
// DecodeHeader style of bounds-checked field extraction
// (internal/peermanagement/message/codec.go).
type reader struct {
	buf []byte
	pos int
}

func (r *reader) uint32() (uint32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, fmt.Errorf("overlay: truncated uint32 field")
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *reader) fixed(dst []byte) error {
	if r.pos+len(dst) > len(r.buf) {
		return fmt.Errorf("overlay: truncated fixed field of length %d", len(dst))
	}
	copy(dst, r.buf[r.pos:r.pos+len(dst)])
	r.pos += len(dst)
	return nil
}

func (r *reader) bytes() ([]byte, error) {
	n, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if r.pos+int(n) > len(r.buf) {
		return nil, fmt.Errorf("overlay: truncated variable field of length %d", n)
	}
	out := make([]byte, n)
	copy(out, r.buf[r.pos:r.pos+int(n)])
	r.pos += int(n)
	return out, nil
}

func (r *reader) string() (string, error) {
	b, err := r.bytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) done() error {
	if r.pos != len(r.buf) {
		return fmt.Errorf("overlay: trailing %d bytes after decode", len(r.buf)-r.pos)
	}
	return nil
}
