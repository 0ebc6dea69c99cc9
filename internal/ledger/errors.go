package ledger

import "errors"

var (
	// ErrAccountUpdateFailed is the fatal error raised when a mutation
	// does not affect exactly one row (spec.md §4.3.4, §7 kind 2):
	// "Could not update data in SQL (account|signer|signer2|new signer)".
	ErrAccountUpdateFailed = errors.New("ledger: could not update data in SQL (account)")
	// ErrSignerUpdateFailed is the signer-table analogue of ErrAccountUpdateFailed.
	ErrSignerUpdateFailed = errors.New("ledger: could not update data in SQL (signer)")
	// ErrSignerInsertFailed covers a new-signer INSERT affecting zero rows.
	ErrSignerInsertFailed = errors.New("ledger: could not update data in SQL (new signer)")
	// ErrAccountNotPersisted is returned by StoreChange when called on a
	// frame whose load found no row and which has not been stored since (see Open Question in
	// spec.md §9 and DESIGN.md's resolution: StoreChange on a frame with
	// IsNew()==true is a caller bug, not an implicit insert).
	ErrAccountNotPersisted = errors.New("ledger: storeChange called on an account that was never persisted")
)
