// Package noderuntime supplies the minimal standalone-mode defaults for
// the external collaborators spec.md §1 places out of scope (Herder,
// LedgerManager, Ledger Delta Sink): enough to run a single node end to
// end without a real consensus engine, mirroring the teacher's
// `standalone` server mode (internal/cli/server.go) that boots a ledger
// service against built-in genesis defaults rather than a live quorum.
package noderuntime

import (
	"context"
	"sync"

	"github.com/stellarcore-go/ledger-overlay/internal/ledger"
	"github.com/stellarcore-go/ledger-overlay/internal/overlay"
)

// BaseReserve and ReserveIncrement mirror the teacher's genesis fee
// defaults (genesis.DefaultFees.ReserveBase/ReserveIncrement), expressed
// in stroops the way spec.md §3's minimum-balance schedule requires.
const (
	BaseReserve      int64 = 5_000_000
	ReserveIncrement int64 = 1_000_000
)

// StandaloneLedgerManager implements ledger.LedgerManager with the fixed
// reserve schedule base + increment*numSubEntries and a ledger index that
// moves only when Advance is called. Grounded on spec.md §4.1's
// "getMinimumBalance" description and the teacher's genesis reserve
// defaults; there is no quorum here, so the ledger index is simply a
// monotone counter. Neither ImmediateDeltaSink nor the CLI's `run` command
// calls Advance, so a running node stays at ledger 1.
type StandaloneLedgerManager struct {
	mu     sync.Mutex
	ledger uint32
}

// NewStandaloneLedgerManager starts the ledger index at 1, matching the
// teacher's genesis ledger convention (ledger 1 is the genesis ledger).
func NewStandaloneLedgerManager() *StandaloneLedgerManager {
	return &StandaloneLedgerManager{ledger: 1}
}

func (m *StandaloneLedgerManager) MinBalance(numSubEntries uint32) int64 {
	return BaseReserve + ReserveIncrement*int64(numSubEntries)
}

func (m *StandaloneLedgerManager) CurrentLedgerIndex() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ledger
}

// Advance moves the ledger index forward by one and returns the new index
// (there is no ledger-close event without a real Herder).
func (m *StandaloneLedgerManager) Advance() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ledger++
	return m.ledger
}

// ImmediateDeltaSink implements ledger.DeltaSink by applying every entry
// notification immediately with no buffering or rollback support — the
// standalone-mode analogue of the teacher's ledger delta, appropriate only
// because there is no real consensus engine here to abort a ledger close
// mid-flight (spec.md §4.4: the store never depends on rollback directly).
type ImmediateDeltaSink struct {
	lm *StandaloneLedgerManager

	mu      sync.Mutex
	added   int
	updated int
	deleted int
}

func NewImmediateDeltaSink(lm *StandaloneLedgerManager) *ImmediateDeltaSink {
	return &ImmediateDeltaSink{lm: lm}
}

func (d *ImmediateDeltaSink) CurrentLedger() uint32 {
	return d.lm.CurrentLedgerIndex()
}

func (d *ImmediateDeltaSink) AddEntry(frame *ledger.AccountFrame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.added++
}

func (d *ImmediateDeltaSink) ModEntry(frame *ledger.AccountFrame) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.updated++
}

func (d *ImmediateDeltaSink) DeleteEntry(key ledger.Key) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deleted++
}

// Counts returns the number of adds/updates/deletes observed so far, for
// operator visibility (`stellarcored version`-style diagnostics).
func (d *ImmediateDeltaSink) Counts() (added, updated, deleted int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.added, d.updated, d.deleted
}

// NullHerder is a Herder that never has transactions, SCP state, or
// opinions: every GET_* lookup reports "don't have", every submission is
// rejected. It exists so the overlay can be exercised (handshake, flood,
// dispatch) without wiring a real consensus engine, which spec.md §1
// explicitly places out of scope.
type NullHerder struct{}

func (NullHerder) RecvTransaction(ctx context.Context, envelope []byte) (overlay.TxStatus, error) {
	return overlay.TxStatusRejected, nil
}

func (NullHerder) RecvTxSet(ctx context.Context, hash [32]byte, transactions [][]byte) error {
	return nil
}

func (NullHerder) RecvSCPEnvelope(ctx context.Context, envelope []byte) error { return nil }

func (NullHerder) RecvSCPQuorumSet(ctx context.Context, hash [32]byte, encoded []byte) error {
	return nil
}

func (NullHerder) GetTxSet(ctx context.Context, hash [32]byte) ([][]byte, bool) { return nil, false }

func (NullHerder) GetQSet(ctx context.Context, hash [32]byte) ([]byte, bool) { return nil, false }

func (NullHerder) PeerDoesntHave(peerID string, msgType overlay.MessageType, hash [32]byte) {}
