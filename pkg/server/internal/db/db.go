package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/vctt94/pokerreferee/pkg/contract"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrAccountNotFound is returned when no account matches a query.
	ErrAccountNotFound = errors.New("account not found")
	// ErrBadCredentials is returned when a password does not match.
	ErrBadCredentials = errors.New("invalid account credentials")
	// ErrInsufficientBalance is returned when a balance update would go
	// negative.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Account is a funding account. Balance is in the smallest currency unit.
type Account struct {
	Address      string
	Type         string
	Network      string
	Balance      contract.Amount
	PasswordHash []byte
}

// AccountQuery selects an account by address. Type and Network, when set,
// must match too.
type AccountQuery struct {
	Address  string
	Type     string
	Network  string
	Password string
}

// LedgerEntry is one recorded balance change.
type LedgerEntry struct {
	ID         int64
	Address    string
	Delta      contract.Amount
	Balance    contract.Amount
	Reason     string
	ContractID string
	CreatedAt  time.Time
}

// DB represents the database connection
type DB struct {
	*sql.DB
	bcryptCost int
}

// NewDB creates a new database connection
func NewDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer; balance transactions must not fail
	// with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{DB: db, bcryptCost: bcrypt.DefaultCost}, nil
}

// SetBcryptCost overrides the password hashing cost.
func (db *DB) SetBcryptCost(cost int) {
	db.bcryptCost = cost
}

// createTables creates the necessary database tables
func createTables(db *sql.DB) error {
	// Create accounts table
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			address TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			network TEXT NOT NULL,
			balance TEXT NOT NULL DEFAULT '0',
			password_hash BLOB NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	// Create ledger table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS ledger (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			address TEXT NOT NULL,
			delta TEXT NOT NULL,
			balance TEXT NOT NULL,
			reason TEXT NOT NULL,
			contract_id TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (address) REFERENCES accounts(address)
		)
	`)
	if err != nil {
		return err
	}

	// Create contracts table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS contracts (
			owner_pid TEXT NOT NULL,
			contract_id TEXT NOT NULL,
			invalid INTEGER NOT NULL DEFAULT 0,
			data BLOB NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (owner_pid, contract_id)
		)
	`)
	return err
}

func scanAccount(row interface{ Scan(...interface{}) error }) (*Account, error) {
	var (
		acct    Account
		balance string
	)
	err := row.Scan(&acct.Address, &acct.Type, &acct.Network, &balance, &acct.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read account: %v", err)
	}
	if acct.Balance, err = contract.ParseAmount(balance); err != nil {
		return nil, fmt.Errorf("corrupt balance for %s: %v", acct.Address, err)
	}
	return &acct, nil
}

// CreateAccount inserts a new account with a bcrypt hash of password.
func (db *DB) CreateAccount(ctx context.Context, acct *Account, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), db.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %v", err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO accounts (address, type, network, balance, password_hash)
		VALUES (?, ?, ?, ?, ?)
	`, acct.Address, acct.Type, acct.Network, acct.Balance.String(), hash)
	if err != nil {
		return fmt.Errorf("failed to create account %s: %v", acct.Address, err)
	}
	acct.PasswordHash = hash
	return nil
}

// GetAccount returns the account matching q. With checkCredentials the
// query password must match the stored hash.
func (db *DB) GetAccount(ctx context.Context, q AccountQuery, checkCredentials bool) (*Account, error) {
	acct, err := scanAccount(db.QueryRowContext(ctx, `
		SELECT address, type, network, balance, password_hash
		FROM accounts WHERE address = ?
	`, q.Address))
	if err != nil {
		return nil, err
	}
	if (q.Type != "" && q.Type != acct.Type) || (q.Network != "" && q.Network != acct.Network) {
		return nil, ErrAccountNotFound
	}
	if checkCredentials {
		if err := bcrypt.CompareHashAndPassword(acct.PasswordHash, []byte(q.Password)); err != nil {
			return nil, ErrBadCredentials
		}
	}
	return acct, nil
}

// SaveAccount stores the account's type, network and balance.
func (db *DB) SaveAccount(ctx context.Context, acct *Account) error {
	res, err := db.ExecContext(ctx, `
		UPDATE accounts SET type = ?, network = ?, balance = ? WHERE address = ?
	`, acct.Type, acct.Network, acct.Balance.String(), acct.Address)
	if err != nil {
		return fmt.Errorf("failed to save account %s: %v", acct.Address, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// UpdateAccountBalance adds delta to the account balance and records the
// change in the ledger, in one transaction. A result below zero is rejected
// with ErrInsufficientBalance.
func (db *DB) UpdateAccountBalance(ctx context.Context, address string, delta contract.Amount, reason, contractID string) (*Account, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	acct, err := scanAccount(tx.QueryRowContext(ctx, `
		SELECT address, type, network, balance, password_hash
		FROM accounts WHERE address = ?
	`, address))
	if err != nil {
		return nil, err
	}

	balance := acct.Balance.Add(delta)
	if balance.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s has %s, needs %s", ErrInsufficientBalance,
			address, acct.Balance, delta.Neg())
	}

	// Update account balance
	if _, err := tx.ExecContext(ctx, `UPDATE accounts SET balance = ? WHERE address = ?`,
		balance.String(), address); err != nil {
		return nil, err
	}

	// Record ledger entry
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO ledger (address, delta, balance, reason, contract_id)
		VALUES (?, ?, ?, ?, ?)
	`, address, delta.String(), balance.String(), reason, contractID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	acct.Balance = balance
	return acct, nil
}

// Ledger returns the balance changes of address, oldest first.
func (db *DB) Ledger(ctx context.Context, address string) ([]LedgerEntry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, address, delta, balance, reason, COALESCE(contract_id, ''), created_at
		FROM ledger WHERE address = ? ORDER BY id
	`, address)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var (
			e              LedgerEntry
			delta, balance string
		)
		if err := rows.Scan(&e.ID, &e.Address, &delta, &balance, &e.Reason, &e.ContractID, &e.CreatedAt); err != nil {
			return nil, err
		}
		if e.Delta, err = contract.ParseAmount(delta); err != nil {
			return nil, err
		}
		if e.Balance, err = contract.ParseAmount(balance); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SaveContract stores a CBOR snapshot of c, replacing any previous one.
func (db *DB) SaveContract(ctx context.Context, c *contract.Contract) error {
	data, err := cbor.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode contract %s: %v", c.ContractID, err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO contracts (owner_pid, contract_id, invalid, data, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(owner_pid, contract_id) DO UPDATE SET
			invalid = excluded.invalid,
			data = excluded.data,
			updated_at = excluded.updated_at
	`, c.OwnerPID, c.ContractID, c.Invalid, data)
	return err
}

// LoadContracts decodes the stored contracts. Terminated contracts are
// skipped unless includeInvalid is set.
func (db *DB) LoadContracts(ctx context.Context, includeInvalid bool) ([]*contract.Contract, error) {
	q := `SELECT data FROM contracts WHERE invalid = 0 ORDER BY owner_pid, contract_id`
	if includeInvalid {
		q = `SELECT data FROM contracts ORDER BY owner_pid, contract_id`
	}
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*contract.Contract
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var c contract.Contract
		if err := cbor.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("failed to decode contract: %v", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}
