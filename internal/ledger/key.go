// Package ledger implements the Account Ledger Store: the in-memory
// Account Entity (C1), the process-wide Entry Cache (C2), the durable
// Account Store (C3), and the Ledger Delta Sink collaborator interface
// (C4), per spec.md §3-§4.
package ledger

import "encoding/hex"

// EntryType tags the variant a LedgerKey identifies. This core only ever
// constructs AccountEntryType keys (spec.md §1 Non-goals: multi-asset
// balances, i.e. trustlines/offers/other entry types are not modelled),
// but the tag is kept as a real enum so the type is a faithful "tagged
// variant identifying an entry by type" per spec.md §3.
type EntryType int

const (
	AccountEntryType EntryType = iota
	TrustLineEntryType
	OfferEntryType
	DataEntryType
)

// Key identifies a ledger entry. For accounts it carries the 32-byte
// ed25519 public key (spec.md §3: "For accounts, carries the account
// public key (32 bytes)").
type Key struct {
	Type      EntryType
	AccountID [32]byte
}

// AccountKey builds a Key for an account entry.
func AccountKey(accountID [32]byte) Key {
	return Key{Type: AccountEntryType, AccountID: accountID}
}

// String renders the key as a short hex tag, used for logging.
func (k Key) String() string {
	switch k.Type {
	case AccountEntryType:
		return "account/" + hex.EncodeToString(k.AccountID[:8])
	default:
		return "entry/" + hex.EncodeToString(k.AccountID[:8])
	}
}
