package ledger

import (
	"errors"
	"math"
	"sort"
)

// Flag bits for AccountEntry.Flags. spec.md §3 names only bit 0; the
// revocable/immutable bits are carried from original_source/AccountFrame.cpp
// (SPEC_FULL.md §5.8) since they share the same field and cost nothing to
// expose as named predicates.
const (
	FlagAuthRequired  uint32 = 1 << 0
	FlagAuthRevocable uint32 = 1 << 1
	FlagAuthImmutable uint32 = 1 << 2
)

// DefaultThresholds is [master=1, low=0, medium=0, high=0], base64-encoded
// on disk as "AQAAAA==" (spec.md §3, §4.3.2).
var DefaultThresholds = Thresholds{1, 0, 0, 0}

// Thresholds is the 4-byte [master, low, medium, high] weight vector.
type Thresholds [4]byte

// Signer is a (publicKey, weight) tuple authorizing operations up to its
// weight. A weight of 0 is not a live signer (spec.md §3).
type Signer struct {
	PubKey [32]byte
	Weight uint32
}

// ErrInvalidAccountState is raised when an in-memory invariant is violated
// by a caller (spec.md §7, kind 3).
var ErrInvalidAccountState = errors.New("ledger: invalid account state")

// AccountEntry is the pure value object described in spec.md §3.
type AccountEntry struct {
	AccountID     [32]byte
	Balance       int64
	SeqNum        uint64
	NumSubEntries uint32
	InflationDest *[32]byte
	HomeDomain    string
	Thresholds    Thresholds
	Flags         uint32
	LastModified  uint32
	Signers       []Signer
}

// authOnlyBalance is the sentinel balance marking an object that must
// never be persisted (spec.md §3: "sentinel INT64_MIN marks a
// forbidden-to-save object").
const authOnlyBalance = math.MinInt64

// MakeAuthOnlyAccount returns an account usable only for signature
// validation: its balance sentinel prevents it from ever being stored
// (spec.md §4.1).
func MakeAuthOnlyAccount(id [32]byte) *AccountFrame {
	return &AccountFrame{
		entry: AccountEntry{
			AccountID:  id,
			Balance:    authOnlyBalance,
			Thresholds: DefaultThresholds,
		},
	}
}

// IsAuthOnly reports whether this entry carries the forbidden-to-save
// sentinel balance.
func (a *AccountEntry) IsAuthOnly() bool {
	return a.Balance == authOnlyBalance
}

// IsAuthRequired reports whether AUTH_REQUIRED is set.
func (a *AccountEntry) IsAuthRequired() bool { return a.Flags&FlagAuthRequired != 0 }

// IsAuthRevocable reports whether the revocable auth flag is set.
func (a *AccountEntry) IsAuthRevocable() bool { return a.Flags&FlagAuthRevocable != 0 }

// IsAuthImmutable reports whether the immutable auth flag is set.
func (a *AccountEntry) IsAuthImmutable() bool { return a.Flags&FlagAuthImmutable != 0 }

// GetMinimumBalance evaluates the reserve schedule live against the
// LedgerManager collaborator on every call; it is never cached, since a
// reserve raise must be observed immediately (SPEC_FULL.md §5.8,
// spec.md §8 boundary scenario 2).
func (a *AccountEntry) GetMinimumBalance(lm LedgerManager) int64 {
	return lm.MinBalance(a.NumSubEntries)
}

// GetBalanceAboveReserve returns balance minus the minimum balance,
// clamped to zero so a retroactive reserve raise never yields a negative
// result (spec.md §4.1, §8 boundary scenario 2).
func (a *AccountEntry) GetBalanceAboveReserve(lm LedgerManager) int64 {
	above := a.Balance - a.GetMinimumBalance(lm)
	if above < 0 {
		return 0
	}
	return above
}

// AddNumEntries adjusts NumSubEntries by delta, per spec.md §4.1:
//   - aborts with ErrInvalidAccountState if the result would be negative;
//   - returns (false, nil) without mutation if delta > 0 and balance is
//     insufficient for the new reserve;
//   - otherwise mutates NumSubEntries and returns (true, nil).
func (a *AccountEntry) AddNumEntries(delta int, lm LedgerManager) (bool, error) {
	next := int64(a.NumSubEntries) + int64(delta)
	if next < 0 {
		return false, ErrInvalidAccountState
	}

	if delta > 0 {
		required := lm.MinBalance(uint32(next))
		if a.Balance < required {
			return false, nil
		}
	}

	a.NumSubEntries = uint32(next)
	return true, nil
}

// Normalize sorts Signers by PubKey ascending. It MUST be called after any
// construction that populates Signers (spec.md §4.1).
func (a *AccountEntry) Normalize() {
	sort.Slice(a.Signers, func(i, j int) bool {
		return lessPubKey(a.Signers[i].PubKey, a.Signers[j].PubKey)
	})
}

func lessPubKey(x, y [32]byte) bool {
	for i := range x {
		if x[i] != y[i] {
			return x[i] < y[i]
		}
	}
	return false
}

// clone returns a deep copy of the entry, so that no two AccountFrame
// instances alias the same Signers backing array (SPEC_FULL.md §9 design
// note: "AccountFrame as sole owner... a copy constructor must rebuild any
// internal aliases").
func (a AccountEntry) clone() AccountEntry {
	out := a
	if a.InflationDest != nil {
		dest := *a.InflationDest
		out.InflationDest = &dest
	}
	if a.Signers != nil {
		out.Signers = make([]Signer, len(a.Signers))
		copy(out.Signers, a.Signers)
	}
	return out
}
