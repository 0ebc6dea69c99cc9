package ledger

// AccountFrame is the sole owner of an AccountEntry payload plus the two
// transient fields from spec.md §3 that never reach disk: IsNew (load
// found no row) and UpdateSigners (the signer list may differ from disk).
// Per SPEC_FULL.md §9 design note, callers get accessors rather than a
// long-lived pointer into the payload, and Clone() rebuilds internal
// aliases so no two frames share a Signers backing array.
type AccountFrame struct {
	entry         AccountEntry
	isNew         bool
	updateSigners bool
}

// NewAccountFrame wraps entry in a frame, normalizing its signer list.
func NewAccountFrame(entry AccountEntry) *AccountFrame {
	entry.Normalize()
	return &AccountFrame{entry: entry}
}

// Entry returns a deep copy of the wrapped AccountEntry. Callers mutate
// the copy and pass it back through SetEntry, never reaching into frame
// internals directly.
func (f *AccountFrame) Entry() AccountEntry {
	return f.entry.clone()
}

// SetEntry replaces the wrapped entry, re-normalizing its signers.
func (f *AccountFrame) SetEntry(entry AccountEntry) {
	entry.Normalize()
	f.entry = entry
}

// IsNew reports whether the load sentinel found no existing row.
func (f *AccountFrame) IsNew() bool { return f.isNew }

// SetNew marks/clears the new-account transient flag.
func (f *AccountFrame) SetNew(v bool) { f.isNew = v }

// UpdateSigners reports whether the in-memory signer list may differ from
// the disk-resident signers table.
func (f *AccountFrame) UpdateSigners() bool { return f.updateSigners }

// SetUpdateSigners marks/clears the signer-diff transient flag. Callers
// that mutate the Signers slice via Entry()/SetEntry() must set this to
// true before calling Store.StoreChange so it diffs the signers table.
func (f *AccountFrame) SetUpdateSigners(v bool) { f.updateSigners = v }

// Clone returns an independent frame with its own Signers backing array
// and its own transient flags.
func (f *AccountFrame) Clone() *AccountFrame {
	return &AccountFrame{
		entry:         f.entry.clone(),
		isNew:         f.isNew,
		updateSigners: f.updateSigners,
	}
}

// Key returns the ledger key identifying this account's entry.
func (f *AccountFrame) Key() Key {
	return AccountKey(f.entry.AccountID)
}
