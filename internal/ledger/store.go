package ledger

import (
	"context"
	"database/sql"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/stellarcore-go/ledger-overlay/internal/codec/strkey"
	"github.com/stellarcore-go/ledger-overlay/internal/obslog"
	"github.com/stellarcore-go/ledger-overlay/internal/storage/accountdb"
)

// InflationMinVoteBalance is the minimum balance an account needs to cast
// an inflation vote (spec.md §4.3.5, GLOSSARY "Inflation destination").
const InflationMinVoteBalance = 1_000_000_000

const loadQuery = `
SELECT accountid, balance, seqnum, numsubentries, inflationdest, homedomain, thresholds, flags, lastmodified, 0 AS isnew
FROM accounts WHERE accountid = ?
UNION ALL
SELECT ?, 0, 0, 0, NULL, NULL, 'AQAAAA==', 0, 0, 1
WHERE NOT EXISTS (SELECT 1 FROM accounts WHERE accountid = ?)
`

const existsQuery = `SELECT EXISTS(SELECT 1 FROM accounts WHERE accountid = ?)`

const signersQuery = `SELECT publickey, weight FROM signers WHERE accountid = ?`

const insertAccountStmt = `
INSERT INTO accounts (accountid, balance, seqnum, numsubentries, inflationdest, homedomain, thresholds, flags, lastmodified)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const updateAccountStmt = `
UPDATE accounts SET balance=?, seqnum=?, numsubentries=?, inflationdest=?, homedomain=?, thresholds=?, flags=?, lastmodified=?
WHERE accountid=?
`

const deleteAccountStmt = `DELETE FROM accounts WHERE accountid = ?`
const deleteSignersStmt = `DELETE FROM signers WHERE accountid = ?`
const deleteOneSignerStmt = `DELETE FROM signers WHERE accountid = ? AND publickey = ?`
const updateSignerStmt = `UPDATE signers SET weight = ? WHERE accountid = ? AND publickey = ?`
const insertSignerStmt = `INSERT INTO signers (accountid, publickey, weight) VALUES (?, ?, ?)`

const inflationQuery = `
SELECT SUM(balance) AS votes, inflationdest
FROM accounts
WHERE inflationdest IS NOT NULL AND balance >= ?
GROUP BY inflationdest
ORDER BY votes DESC, inflationdest DESC
LIMIT ?
`

const dropAllStmt = `
DROP INDEX IF EXISTS accountbalances;
DROP INDEX IF EXISTS signersaccount;
DROP TABLE IF EXISTS signers;
DROP TABLE IF EXISTS accounts;
CREATE TABLE accounts (
	accountid VARCHAR(56) PRIMARY KEY,
	balance BIGINT NOT NULL CHECK (balance >= 0),
	seqnum BIGINT NOT NULL,
	numsubentries INT NOT NULL CHECK (numsubentries >= 0),
	inflationdest VARCHAR(56) NULL,
	homedomain VARCHAR(32) NULL,
	thresholds TEXT NULL,
	flags INT NOT NULL,
	lastmodified INT NOT NULL
);
CREATE TABLE signers (
	accountid VARCHAR(56) NOT NULL,
	publickey VARCHAR(56) NOT NULL,
	weight INT NOT NULL,
	PRIMARY KEY (accountid, publickey)
);
CREATE INDEX signersaccount ON signers(accountid);
CREATE INDEX accountbalances ON accounts(balance) WHERE balance >= 1000000000;
`

// Store is the Account Store (C3): it loads, inserts, updates, and deletes
// accounts and their signers through the Database, enforcing the
// invariants of spec.md §3 and §4.3.
type Store struct {
	db     accountdb.Database
	cache  *EntryCache
	logger obslog.Logger

	// loadGroup collapses concurrent cold loads of the same account into a
	// single query: overlay sessions routinely ask the store about the same
	// counterparty account at once, and only the first caller should pay
	// for the round trip.
	loadGroup singleflight.Group
}

// NewStore constructs an account store over db, sharing cache (per
// SPEC_FULL.md §9: one cache per database instance, not a global).
func NewStore(db accountdb.Database, cache *EntryCache, logger obslog.Logger) *Store {
	if logger == nil {
		logger = obslog.NoOp{}
	}
	return &Store{db: db, cache: cache, logger: logger}
}

// Load implements the load protocol of spec.md §4.3.2. It returns
// (nil, nil) when the account is known absent (tombstone, hit or miss).
func (s *Store) Load(ctx context.Context, accountID [32]byte) (*AccountFrame, error) {
	key := AccountKey(accountID)

	if frame, found := s.cache.GetCachedEntry(key); found {
		return frame, nil
	}

	result, err, _ := s.loadGroup.Do(string(accountID[:]), func() (interface{}, error) {
		return s.loadFromDB(ctx, accountID, key)
	})
	if err != nil {
		return nil, err
	}
	frame, _ := result.(*AccountFrame)
	return frame, nil
}

// loadFromDB runs the actual query; called at most once per in-flight
// accountID regardless of how many Load callers are waiting on it.
func (s *Store) loadFromDB(ctx context.Context, accountID [32]byte, key Key) (*AccountFrame, error) {
	stop := s.db.SelectTimer().Start()
	defer stop()

	idStr := strkey.EncodeAccountID(accountID)
	stmt, err := s.db.Session().Prepare(ctx, loadQuery)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	row := stmt.QueryRow(ctx, idStr, idStr, idStr)

	var (
		rowAccountID                       string
		balance                            int64
		seqNum                             int64
		numSubEntries                      int64
		inflationDest, homeDomain, thresh  sql.NullString
		flags                              int64
		lastModified                       int64
		isNew                              int64
	)
	err = row.Scan(&rowAccountID, &balance, &seqNum, &numSubEntries, &inflationDest, &homeDomain, &thresh, &flags, &lastModified, &isNew)
	if err == sql.ErrNoRows {
		// The synthetic branch guarantees a row; this covers driver errors.
		s.cache.PutCachedEntry(key, nil)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: load account: %w", err)
	}

	entry := AccountEntry{
		AccountID:     accountID,
		Balance:       balance,
		SeqNum:        uint64(seqNum),
		NumSubEntries: uint32(numSubEntries),
		Flags:         uint32(flags),
		LastModified:  uint32(lastModified),
	}

	if thresh.Valid {
		decoded, err := base64.StdEncoding.DecodeString(thresh.String)
		if err != nil || len(decoded) != 4 {
			return nil, fmt.Errorf("ledger: decode thresholds: %w", err)
		}
		copy(entry.Thresholds[:], decoded)
	} else {
		entry.Thresholds = DefaultThresholds
	}

	if inflationDest.Valid && inflationDest.String != "" {
		dest, err := strkey.DecodeAccountID(inflationDest.String)
		if err != nil {
			return nil, fmt.Errorf("ledger: decode inflation dest: %w", err)
		}
		entry.InflationDest = &dest
	}

	if homeDomain.Valid {
		entry.HomeDomain = homeDomain.String
	}

	frame := NewAccountFrame(entry)
	frame.SetNew(isNew == 1)

	if entry.NumSubEntries > 0 {
		if err := s.loadSigners(ctx, frame); err != nil {
			return nil, err
		}
	}

	frame.SetUpdateSigners(false)
	s.cache.PutCachedEntry(key, frame)
	return frame, nil
}

func (s *Store) loadSigners(ctx context.Context, frame *AccountFrame) error {
	idStr := strkey.EncodeAccountID(frame.Entry().AccountID)
	stmt, err := s.db.Session().Prepare(ctx, signersQuery)
	if err != nil {
		return err
	}
	defer stmt.Close()

	rows, err := stmt.Query(ctx, idStr)
	if err != nil {
		return fmt.Errorf("ledger: load signers: %w", err)
	}
	defer rows.Close()

	entry := frame.Entry()
	for rows.Next() {
		var pubKeyStr string
		var weight int64
		if err := rows.Scan(&pubKeyStr, &weight); err != nil {
			return fmt.Errorf("ledger: scan signer: %w", err)
		}
		pubKey, err := strkey.DecodeAccountID(pubKeyStr)
		if err != nil {
			return fmt.Errorf("ledger: decode signer key: %w", err)
		}
		entry.Signers = append(entry.Signers, Signer{PubKey: pubKey, Weight: uint32(weight)})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	entry.Normalize()
	frame.SetEntry(entry)
	return nil
}

// Exists implements spec.md §4.3.3.
func (s *Store) Exists(ctx context.Context, accountID [32]byte) (bool, error) {
	key := AccountKey(accountID)
	if frame, found := s.cache.GetCachedEntry(key); found {
		return frame != nil, nil
	}

	stop := s.db.SelectTimer().Start()
	defer stop()

	stmt, err := s.db.Session().Prepare(ctx, existsQuery)
	if err != nil {
		return false, err
	}
	defer stmt.Close()

	var exists bool
	if err := stmt.QueryRow(ctx, strkey.EncodeAccountID(accountID)).Scan(&exists); err != nil {
		return false, fmt.Errorf("ledger: exists: %w", err)
	}
	return exists, nil
}

func encodeThresholds(t Thresholds) string {
	return base64.StdEncoding.EncodeToString(t[:])
}

func nullableStrkey(id *[32]byte) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: strkey.EncodeAccountID(*id), Valid: true}
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// StoreAdd implements the insert half of spec.md §4.3.4: it persists a
// frame that was loaded as new (IsNew()==true), writes its full signer
// list, flushes the cache both before and after, and notifies sink.
func (s *Store) StoreAdd(ctx context.Context, frame *AccountFrame, sink DeltaSink) error {
	key := frame.Key()
	s.cache.FlushCachedEntry(key)

	entry := frame.Entry()
	entry.LastModified = sink.CurrentLedger()

	stop := s.db.InsertTimer().Start()
	defer stop()

	stmt, err := s.db.Session().Prepare(ctx, insertAccountStmt)
	if err != nil {
		return err
	}
	defer stmt.Close()

	idStr := strkey.EncodeAccountID(entry.AccountID)
	res, err := stmt.Exec(ctx, idStr, entry.Balance, int64(entry.SeqNum), int64(entry.NumSubEntries),
		nullableStrkey(entry.InflationDest), nullableString(entry.HomeDomain), encodeThresholds(entry.Thresholds),
		int64(entry.Flags), int64(entry.LastModified))
	if err != nil {
		return fmt.Errorf("ledger: insert account: %w", err)
	}
	if n, err := res.AffectedRows(); err != nil || n != 1 {
		s.logger.Error("account insert affected unexpected row count", "account", idStr)
		return ErrAccountUpdateFailed
	}

	if len(entry.Signers) > 0 {
		if err := s.insertAllSigners(ctx, idStr, entry.Signers); err != nil {
			return err
		}
	}

	frame.SetEntry(entry)
	frame.SetNew(false)
	frame.SetUpdateSigners(false)
	sink.AddEntry(frame)
	s.cache.FlushCachedEntry(key)
	return nil
}

func (s *Store) insertAllSigners(ctx context.Context, accountIDStr string, signers []Signer) error {
	stmt, err := s.db.Session().Prepare(ctx, insertSignerStmt)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, signer := range signers {
		res, err := stmt.Exec(ctx, accountIDStr, strkey.EncodeAccountID(signer.PubKey), int64(signer.Weight))
		if err != nil {
			return fmt.Errorf("ledger: insert signer: %w", err)
		}
		if n, err := res.AffectedRows(); err != nil || n != 1 {
			return ErrSignerInsertFailed
		}
	}
	return nil
}

// StoreChange implements the update half of spec.md §4.3.4. It rejects
// frames that were never persisted (the Open Question resolution recorded
// in DESIGN.md: an update on an IsNew() frame is a caller bug, not an
// implicit insert). When UpdateSigners() is set, the signers table is
// reconciled against oldSigners, the previous signer list supplied by the
// caller; the signers table itself is not re-read. The cache is flushed
// before and after the write.
func (s *Store) StoreChange(ctx context.Context, frame *AccountFrame, oldSigners []Signer, sink DeltaSink) error {
	if frame.IsNew() {
		return ErrAccountNotPersisted
	}

	key := frame.Key()
	s.cache.FlushCachedEntry(key)

	entry := frame.Entry()
	entry.LastModified = sink.CurrentLedger()

	stop := s.db.UpdateTimer().Start()
	defer stop()

	idStr := strkey.EncodeAccountID(entry.AccountID)
	stmt, err := s.db.Session().Prepare(ctx, updateAccountStmt)
	if err != nil {
		return err
	}
	res, err := stmt.Exec(ctx, entry.Balance, int64(entry.SeqNum), int64(entry.NumSubEntries),
		nullableStrkey(entry.InflationDest), nullableString(entry.HomeDomain), encodeThresholds(entry.Thresholds),
		int64(entry.Flags), int64(entry.LastModified), idStr)
	stmt.Close()
	if err != nil {
		return fmt.Errorf("ledger: update account: %w", err)
	}
	if n, err := res.AffectedRows(); err != nil || n != 1 {
		s.logger.Error("account update affected unexpected row count", "account", idStr)
		return ErrAccountUpdateFailed
	}

	if frame.UpdateSigners() {
		if err := s.diffSigners(ctx, idStr, oldSigners, entry.Signers); err != nil {
			return err
		}
	}

	frame.SetEntry(entry)
	frame.SetUpdateSigners(false)
	sink.ModEntry(frame)
	s.cache.FlushCachedEntry(key)
	return nil
}

// diffSigners reconciles the signers table against the in-memory list,
// taking oldSigners as the current table contents. Both lists must be
// sorted by PubKey (as Normalize() leaves them), so a single merge pass
// over both (rather than a full delete-and-reinsert) identifies inserts,
// updates, and deletes.
func (s *Store) diffSigners(ctx context.Context, accountIDStr string, oldSigners, newSigners []Signer) error {
	insertStmt, err := s.db.Session().Prepare(ctx, insertSignerStmt)
	if err != nil {
		return err
	}
	defer insertStmt.Close()
	updateStmt, err := s.db.Session().Prepare(ctx, updateSignerStmt)
	if err != nil {
		return err
	}
	defer updateStmt.Close()
	deleteStmt, err := s.db.Session().Prepare(ctx, deleteOneSignerStmt)
	if err != nil {
		return err
	}
	defer deleteStmt.Close()

	i, j := 0, 0
	for i < len(oldSigners) || j < len(newSigners) {
		switch {
		case i >= len(oldSigners):
			// Tail of newSigners: all inserts.
			if err := execAffectingOne(ctx, insertStmt, ErrSignerInsertFailed,
				accountIDStr, strkey.EncodeAccountID(newSigners[j].PubKey), int64(newSigners[j].Weight)); err != nil {
				return err
			}
			j++
		case j >= len(newSigners):
			// Tail of oldSigners: all deletes.
			if err := execAffectingOne(ctx, deleteStmt, ErrSignerUpdateFailed,
				accountIDStr, strkey.EncodeAccountID(oldSigners[i].PubKey)); err != nil {
				return err
			}
			i++
		case oldSigners[i].PubKey == newSigners[j].PubKey:
			if oldSigners[i].Weight != newSigners[j].Weight {
				if err := execAffectingOne(ctx, updateStmt, ErrSignerUpdateFailed,
					int64(newSigners[j].Weight), accountIDStr, strkey.EncodeAccountID(newSigners[j].PubKey)); err != nil {
					return err
				}
			}
			i++
			j++
		case lessPubKey(oldSigners[i].PubKey, newSigners[j].PubKey):
			if err := execAffectingOne(ctx, deleteStmt, ErrSignerUpdateFailed,
				accountIDStr, strkey.EncodeAccountID(oldSigners[i].PubKey)); err != nil {
				return err
			}
			i++
		default:
			if err := execAffectingOne(ctx, insertStmt, ErrSignerInsertFailed,
				accountIDStr, strkey.EncodeAccountID(newSigners[j].PubKey), int64(newSigners[j].Weight)); err != nil {
				return err
			}
			j++
		}
	}
	return nil
}

func execAffectingOne(ctx context.Context, stmt accountdb.Statement, failErr error, args ...any) error {
	res, err := stmt.Exec(ctx, args...)
	if err != nil {
		return fmt.Errorf("ledger: signer diff: %w", err)
	}
	if n, err := res.AffectedRows(); err != nil || n != 1 {
		return failErr
	}
	return nil
}

// StoreDelete implements spec.md §4.3.4's delete path: idempotent removal
// of an account and its signers, flushing the cache before and after and
// notifying sink regardless of whether a row existed.
func (s *Store) StoreDelete(ctx context.Context, accountID [32]byte, sink DeltaSink) error {
	key := AccountKey(accountID)
	s.cache.FlushCachedEntry(key)

	stop := s.db.DeleteTimer().Start()
	defer stop()

	idStr := strkey.EncodeAccountID(accountID)

	signerStmt, err := s.db.Session().Prepare(ctx, deleteSignersStmt)
	if err != nil {
		return err
	}
	if _, err := signerStmt.Exec(ctx, idStr); err != nil {
		signerStmt.Close()
		return fmt.Errorf("ledger: delete signers: %w", err)
	}
	signerStmt.Close()

	accountStmt, err := s.db.Session().Prepare(ctx, deleteAccountStmt)
	if err != nil {
		return err
	}
	_, err = accountStmt.Exec(ctx, idStr)
	accountStmt.Close()
	if err != nil {
		return fmt.Errorf("ledger: delete account: %w", err)
	}

	sink.DeleteEntry(key)
	s.cache.FlushCachedEntry(key)
	return nil
}

// InflationVote is one row of the inflation vote tally (spec.md §4.3.5).
type InflationVote struct {
	Votes       int64
	Destination [32]byte
}

// InflationVisitor is called once per winning destination in descending
// vote order (ties broken by descending account ID); returning false stops
// enumeration early.
type InflationVisitor func(InflationVote) bool

// ProcessForInflation implements spec.md §4.3.5: sums balances grouped by
// inflation destination, restricted to voters at or above
// InflationMinVoteBalance, in "ORDER BY votes DESC, inflationdest DESC"
// order, invoking visitor until it returns false or maxWinners rows have
// been produced.
func (s *Store) ProcessForInflation(ctx context.Context, maxWinners int, visitor InflationVisitor) error {
	stop := s.db.SelectTimer().Start()
	defer stop()

	stmt, err := s.db.Session().Prepare(ctx, inflationQuery)
	if err != nil {
		return err
	}
	defer stmt.Close()

	rows, err := stmt.Query(ctx, int64(InflationMinVoteBalance), int64(maxWinners))
	if err != nil {
		return fmt.Errorf("ledger: process for inflation: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var votes int64
		var destStr string
		if err := rows.Scan(&votes, &destStr); err != nil {
			return fmt.Errorf("ledger: scan inflation row: %w", err)
		}
		dest, err := strkey.DecodeAccountID(destStr)
		if err != nil {
			return fmt.Errorf("ledger: decode inflation dest: %w", err)
		}
		if !visitor(InflationVote{Votes: votes, Destination: dest}) {
			return nil
		}
	}
	return rows.Err()
}

// DropAll implements spec.md §4.3.6: recreates the accounts and signers
// tables (and their indexes) from scratch. It is used by tests and by the
// `db reinit` command, never during normal operation.
func (s *Store) DropAll(ctx context.Context) error {
	for _, stmt := range splitStatements(dropAllStmt) {
		if _, err := s.db.Session().Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ledger: drop all: %w", err)
		}
	}
	return nil
}

func splitStatements(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
