package common

import (
	"bytes"
	"database/sql"
	"math/big"
	"text/template"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/vouchsafe/go-vouchsafe/claim"
)

// DB is the node's durable state: per-account sequence counters, the
// consumed-voucher record, role grants, the reward-token reference and the
// append-only event journal. It implements claim.Store.
type DB struct {
	dbh *sql.DB

	// prepared statements
	updateKV       *sql.Stmt
	selectKV       *sql.Stmt
	selectSeq      *sql.Stmt
	selectConsumed *sql.Stmt
	insertEvent    *sql.Stmt
}

var schema = `
	CREATE TABLE IF NOT EXISTS kv (
		key STRING PRIMARY KEY,
		value STRING,
		updatedAt STRING DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS sequences (
		account STRING PRIMARY KEY,
		seq INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS consumedVouchers (
		fingerprint STRING PRIMARY KEY,
		account STRING,
		createdAt STRING DEFAULT CURRENT_TIMESTAMP
	);
	CREATE TABLE IF NOT EXISTS roles (
		capability STRING,
		account STRING,
		PRIMARY KEY (capability, account)
	);
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind STRING,
		account STRING,
		amount STRING,
		createdAt STRING DEFAULT CURRENT_TIMESTAMP
	);
`

// EventRecord is a journaled event row.
type EventRecord struct {
	ID        int64
	Kind      string
	Account   ethcommon.Address
	Amount    *big.Int
	CreatedAt string
}

func InitDB(dbPath string) (*DB, error) {
	d := DB{}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		glog.Error("Unable to open DB ", dbPath, err)
		return nil, err
	}
	d.dbh = db
	schemaBuf := new(bytes.Buffer)
	tmpl := template.Must(template.New("schema").Parse(schema))
	tmpl.Execute(schemaBuf, nil)
	_, err = db.Exec(schemaBuf.String())
	if err != nil {
		glog.Error("Error initializing schema ", err)
		d.Close()
		return nil, err
	}

	stmts := []struct {
		target **sql.Stmt
		query  string
	}{
		{&d.updateKV, "INSERT OR REPLACE INTO kv(key, value, updatedAt) VALUES(?, ?, datetime())"},
		{&d.selectKV, "SELECT value FROM kv WHERE key=?"},
		{&d.selectSeq, "SELECT seq FROM sequences WHERE account=?"},
		{&d.selectConsumed, "SELECT count(*) FROM consumedVouchers WHERE fingerprint=?"},
		{&d.insertEvent, "INSERT INTO events(kind, account, amount) VALUES(?, ?, ?)"},
	}
	for _, s := range stmts {
		stmt, err := db.Prepare(s.query)
		if err != nil {
			glog.Error("Unable to prepare statement ", s.query, err)
			d.Close()
			return nil, err
		}
		*s.target = stmt
	}

	glog.V(DEBUG).Info("Initialized DB node")
	return &d, nil
}

func (db *DB) Close() {
	glog.V(DEBUG).Info("Closing DB")
	for _, stmt := range []*sql.Stmt{db.updateKV, db.selectKV, db.selectSeq, db.selectConsumed, db.insertEvent} {
		if stmt != nil {
			stmt.Close()
		}
	}
	if db.dbh != nil {
		db.dbh.Close()
	}
}

// Initialize seeds the role registry, reward token and chain id for a fresh
// deployment. It fails with claim.ErrAlreadyInitialized on any subsequent
// call for the same data directory.
func (db *DB) Initialize(pauser, upgrader, admin, token ethcommon.Address, chainID *big.Int) error {
	for _, addr := range []ethcommon.Address{pauser, upgrader, admin, token} {
		if (addr == ethcommon.Address{}) {
			return claim.ErrZeroAddress
		}
	}

	var initialized string
	err := db.selectKV.QueryRow("initialized").Scan(&initialized)
	if err == nil {
		return claim.ErrAlreadyInitialized
	}
	if err != sql.ErrNoRows {
		return err
	}

	tx, err := db.dbh.Begin()
	if err != nil {
		return err
	}
	seeds := []claim.RoleGrant{
		{Capability: claim.CapabilityPause, Account: pauser},
		{Capability: claim.CapabilityUpgrade, Account: upgrader},
		{Capability: claim.CapabilityAdmin, Account: admin},
	}
	for _, g := range seeds {
		if _, err := tx.Exec("INSERT INTO roles(capability, account) VALUES(?, ?)", g.Capability.String(), g.Account.Hex()); err != nil {
			tx.Rollback()
			return err
		}
	}
	kvs := [][2]string{
		{"rewardToken", token.Hex()},
		{"chainID", chainID.String()},
		{"initialized", "1"},
	}
	for _, kv := range kvs {
		if _, err := tx.Exec("INSERT OR REPLACE INTO kv(key, value, updatedAt) VALUES(?, ?, datetime())", kv[0], kv[1]); err != nil {
			tx.Rollback()
			return err
		}
	}

	glog.Infof("db: initialized pauser=%v upgrader=%v admin=%v token=%v chainID=%v", pauser.Hex(), upgrader.Hex(), admin.Hex(), token.Hex(), chainID)
	return tx.Commit()
}

// ExpectedSequence returns the next expected sequence number for an account.
func (db *DB) ExpectedSequence(account ethcommon.Address) (uint64, error) {
	var seq uint64
	err := db.selectSeq.QueryRow(account.Hex()).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return seq, nil
}

// IsConsumed checks if a voucher fingerprint has been recorded.
func (db *DB) IsConsumed(fp ethcommon.Hash) (bool, error) {
	var count int
	if err := db.selectConsumed.QueryRow(fp.Hex()).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// SettleClaim records a consumed fingerprint and advances the account's
// sequence counter in a single transaction that also covers settle: if
// settle fails the transaction is rolled back and nothing persists.
func (db *DB) SettleClaim(account ethcommon.Address, fp ethcommon.Hash, settle func() error) error {
	tx, err := db.dbh.Begin()
	if err != nil {
		return err
	}

	if _, err := tx.Exec("INSERT INTO consumedVouchers(fingerprint, account) VALUES(?, ?)", fp.Hex(), account.Hex()); err != nil {
		tx.Rollback()
		return err
	}
	_, err = tx.Exec(
		"INSERT INTO sequences(account, seq) VALUES(?, 1) ON CONFLICT(account) DO UPDATE SET seq=seq+1",
		account.Hex(),
	)
	if err != nil {
		tx.Rollback()
		return err
	}

	if err := settle(); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// SetToken persists the reward-token reference.
func (db *DB) SetToken(token ethcommon.Address) error {
	_, err := db.updateKV.Exec("rewardToken", token.Hex())
	return err
}

// Token returns the persisted reward-token reference.
func (db *DB) Token() (ethcommon.Address, error) {
	var value string
	err := db.selectKV.QueryRow("rewardToken").Scan(&value)
	if err == sql.ErrNoRows {
		return ethcommon.Address{}, nil
	}
	if err != nil {
		return ethcommon.Address{}, err
	}
	return ethcommon.HexToAddress(value), nil
}

// ChainID returns the chain id the data directory was initialized for.
func (db *DB) ChainID() (*big.Int, error) {
	var value string
	err := db.selectKV.QueryRow("chainID").Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return ParseBigInt(value)
}

// GrantRole persists a (capability, account) assignment.
func (db *DB) GrantRole(capability claim.Capability, account ethcommon.Address) error {
	_, err := db.dbh.Exec("INSERT OR IGNORE INTO roles(capability, account) VALUES(?, ?)", capability.String(), account.Hex())
	return err
}

// RevokeRole removes a persisted (capability, account) assignment.
func (db *DB) RevokeRole(capability claim.Capability, account ethcommon.Address) error {
	_, err := db.dbh.Exec("DELETE FROM roles WHERE capability=? AND account=?", capability.String(), account.Hex())
	return err
}

// LoadRoles returns all persisted role assignments.
func (db *DB) LoadRoles() ([]claim.RoleGrant, error) {
	rows, err := db.dbh.Query("SELECT capability, account FROM roles")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []claim.RoleGrant
	for rows.Next() {
		var name, account string
		if err := rows.Scan(&name, &account); err != nil {
			return nil, err
		}
		capability, err := claim.ParseCapability(name)
		if err != nil {
			return nil, errors.Wrap(err, "corrupt roles table")
		}
		grants = append(grants, claim.RoleGrant{Capability: capability, Account: ethcommon.HexToAddress(account)})
	}

	return grants, rows.Err()
}

// RecordEvent appends an event to the journal. Journal rows are never
// updated or deleted.
func (db *DB) RecordEvent(ev claim.Event) error {
	switch e := ev.(type) {
	case claim.RewardPaid:
		_, err := db.insertEvent.Exec(e.Kind(), e.Account.Hex(), e.Amount.String())
		return err
	case claim.TokenConfigured:
		_, err := db.insertEvent.Exec(e.Kind(), e.Token.Hex(), "")
		return err
	default:
		return errors.Errorf("unknown event kind %v", ev.Kind())
	}
}

// Events returns the journal in append order.
func (db *DB) Events() ([]EventRecord, error) {
	rows, err := db.dbh.Query("SELECT id, kind, account, amount, createdAt FROM events ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []EventRecord
	for rows.Next() {
		var rec EventRecord
		var account, amount string
		if err := rows.Scan(&rec.ID, &rec.Kind, &account, &amount, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Account = ethcommon.HexToAddress(account)
		if amount != "" {
			if rec.Amount, err = ParseBigInt(amount); err != nil {
				return nil, err
			}
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
