package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vctt94/pokerreferee/pkg/contract"
	"github.com/vctt94/pokerreferee/pkg/server/internal/db"
)

// Account and AccountQuery are the account store's types.
type (
	Account      = db.Account
	AccountQuery = db.AccountQuery
)

// Database defines the interface for database operations
type Database interface {
	// GetAccount returns the account matching q, checking the password
	// when checkCredentials is set.
	GetAccount(ctx context.Context, q AccountQuery, checkCredentials bool) (*Account, error)
	// CreateAccount inserts a new account.
	CreateAccount(ctx context.Context, acct *Account, password string) error
	// SaveAccount stores the account's currency and balance.
	SaveAccount(ctx context.Context, acct *Account) error
	// UpdateAccountBalance atomically adds delta to the balance, failing
	// with ErrInsufficientBalance if the result would be negative.
	UpdateAccountBalance(ctx context.Context, address string, delta contract.Amount, reason, contractID string) (*Account, error)

	// Contract snapshots
	SaveContract(ctx context.Context, c *contract.Contract) error
	LoadContracts(ctx context.Context, includeInvalid bool) ([]*contract.Contract, error)

	// Close closes the database connection
	Close() error
}

// NewDatabase creates a new database connection
func NewDatabase(dbPath string) (Database, error) {
	// Ensure the directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %v", err)
	}

	// Create the database
	return db.NewDB(dbPath)
}

// loadContracts restores the live contracts saved by a previous run.
func (s *Server) loadContracts(ctx context.Context) error {
	contracts, err := s.db.LoadContracts(ctx, false)
	if err != nil {
		return fmt.Errorf("failed to load contracts: %v", err)
	}
	for _, c := range contracts {
		if err := s.contracts.Create(c, 0, nil); err != nil {
			s.dbLog.Warnf("Skipping stored contract %s/%s: %v", c.OwnerPID, c.ContractID, err)
			continue
		}
	}
	s.dbLog.Infof("Restored %d contracts", len(contracts))
	return nil
}

func (s *Server) saveMutex(key string) *sync.Mutex {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	mtx, ok := s.saveMutexes[key]
	if !ok {
		mtx = &sync.Mutex{}
		s.saveMutexes[key] = mtx
	}
	return mtx
}

// saveContractAsync persists the contract in the background. Saves of one
// contract are serialized and always write its state at save time.
func (s *Server) saveContractAsync(ref ContractRef, reason string) {
	s.saveWg.Add(1)
	go func() {
		defer s.saveWg.Done()
		mtx := s.saveMutex(ref.key())
		mtx.Lock()
		defer mtx.Unlock()

		snap, err := s.contracts.Get(ref)
		if err != nil {
			s.dbLog.Errorf("Failed to snapshot contract %s (%s): %v", ref.key(), reason, err)
			return
		}
		if err := s.db.SaveContract(context.Background(), snap); err != nil {
			s.dbLog.Errorf("Failed to save contract %s (%s): %v", ref.key(), reason, err)
			return
		}
		s.dbLog.Tracef("Saved contract %s (%s)", ref.key(), reason)
	}()
}
