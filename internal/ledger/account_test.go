package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeLedgerManager struct {
	minBalance map[uint32]int64
	ledger     uint32
}

func (f *fakeLedgerManager) MinBalance(numSubEntries uint32) int64 {
	if v, ok := f.minBalance[numSubEntries]; ok {
		return v
	}
	return 0
}

func (f *fakeLedgerManager) CurrentLedgerIndex() uint32 { return f.ledger }

func TestReserveRaiseClamp(t *testing.T) {
	lm := &fakeLedgerManager{minBalance: map[uint32]int64{0: 50, 1: 200}}
	entry := AccountEntry{Balance: 100, NumSubEntries: 0}

	ok, err := entry.AddNumEntries(1, lm)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, uint32(0), entry.NumSubEntries)
	require.Equal(t, int64(50), entry.GetBalanceAboveReserve(lm))

	lm.minBalance[0] = 150
	require.Equal(t, int64(0), entry.GetBalanceAboveReserve(lm))
}

func TestAddNumEntriesRejectsNegative(t *testing.T) {
	lm := &fakeLedgerManager{minBalance: map[uint32]int64{}}
	entry := AccountEntry{NumSubEntries: 0}

	_, err := entry.AddNumEntries(-1, lm)
	require.ErrorIs(t, err, ErrInvalidAccountState)
}

func TestAddNumEntriesSucceeds(t *testing.T) {
	lm := &fakeLedgerManager{minBalance: map[uint32]int64{1: 100}}
	entry := AccountEntry{Balance: 200, NumSubEntries: 0}

	ok, err := entry.AddNumEntries(1, lm)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint32(1), entry.NumSubEntries)
}

func TestNormalizeSortsSigners(t *testing.T) {
	entry := AccountEntry{
		Signers: []Signer{
			{PubKey: [32]byte{3}, Weight: 1},
			{PubKey: [32]byte{1}, Weight: 1},
			{PubKey: [32]byte{2}, Weight: 1},
		},
	}
	entry.Normalize()

	require.Equal(t, [32]byte{1}, entry.Signers[0].PubKey)
	require.Equal(t, [32]byte{2}, entry.Signers[1].PubKey)
	require.Equal(t, [32]byte{3}, entry.Signers[2].PubKey)
}

func TestMakeAuthOnlyAccountIsNotPersistable(t *testing.T) {
	frame := MakeAuthOnlyAccount([32]byte{9})
	entry := frame.Entry()
	require.True(t, entry.IsAuthOnly())
}

func TestFrameCloneIndependentSigners(t *testing.T) {
	frame := NewAccountFrame(AccountEntry{
		Signers: []Signer{{PubKey: [32]byte{1}, Weight: 1}},
	})
	clone := frame.Clone()

	mutated := clone.Entry()
	mutated.Signers[0].Weight = 99
	clone.SetEntry(mutated)

	require.Equal(t, uint32(1), frame.Entry().Signers[0].Weight)
}
