package server

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/vctt94/pokerreferee/pkg/contract"
)

var (
	ErrContractExists = errors.New("contract already exists")
	ErrContractLimit  = errors.New("open contract limit reached")
)

type contractEntry struct {
	mu sync.Mutex
	c  *contract.Contract
}

// ContractStore holds the live contracts keyed by owner and contract ID.
// Every action on a contract runs under that contract's own lock.
type ContractStore struct {
	mu        sync.RWMutex
	contracts map[string]map[string]*contractEntry

	// create serializes the quota check with the insert.
	create sync.Mutex
}

func NewContractStore() *ContractStore {
	return &ContractStore{contracts: make(map[string]map[string]*contractEntry)}
}

func (s *ContractStore) entry(ref ContractRef) (*contractEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.contracts[ref.OwnerPID][ref.ContractID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrContractNotFound, ref.key())
	}
	return e, nil
}

// Create inserts c and runs fn on it before any other action can see it.
// When limit is positive, c is refused while its owner already holds more
// than limit live contracts.
func (s *ContractStore) Create(c *contract.Contract, limit int, fn func(*contract.Contract) error) error {
	e := &contractEntry{c: c}
	e.mu.Lock()
	defer e.mu.Unlock()

	s.create.Lock()
	if limit > 0 {
		if n := s.OpenCount(c.OwnerPID); n > limit {
			s.create.Unlock()
			return fmt.Errorf("%w: %s holds %d", ErrContractLimit, c.OwnerPID, n)
		}
	}
	s.mu.Lock()
	owned := s.contracts[c.OwnerPID]
	if owned == nil {
		owned = make(map[string]*contractEntry)
		s.contracts[c.OwnerPID] = owned
	}
	if _, ok := owned[c.ContractID]; ok {
		s.mu.Unlock()
		s.create.Unlock()
		return fmt.Errorf("%w: %s/%s", ErrContractExists, c.OwnerPID, c.ContractID)
	}
	owned[c.ContractID] = e
	s.mu.Unlock()
	s.create.Unlock()

	if fn == nil {
		return nil
	}
	return fn(c)
}

// With runs fn on the contract under its lock.
func (s *ContractStore) With(ref ContractRef, fn func(*contract.Contract) error) error {
	e, err := s.entry(ref)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.c)
}

// Get returns a copy of the contract.
func (s *ContractStore) Get(ref ContractRef) (*contract.Contract, error) {
	var cp *contract.Contract
	err := s.With(ref, func(c *contract.Contract) error {
		var err error
		cp, err = c.Clone()
		return err
	})
	return cp, err
}

// ByOwner returns copies of every contract owned by ownerPID, ordered by ID.
func (s *ContractStore) ByOwner(ownerPID string) []*contract.Contract {
	var out []*contract.Contract
	for _, ref := range s.refs(ownerPID) {
		if c, err := s.Get(ref); err == nil {
			out = append(out, c)
		}
	}
	return out
}

// OpenCount returns how many of ownerPID's contracts are still live.
func (s *ContractStore) OpenCount(ownerPID string) int {
	n := 0
	for _, ref := range s.refs(ownerPID) {
		s.With(ref, func(c *contract.Contract) error {
			if !c.Invalid {
				n++
			}
			return nil
		})
	}
	return n
}

// Live returns the references of every contract that is not invalid.
func (s *ContractStore) Live() []ContractRef {
	var out []ContractRef
	for _, ref := range s.refs("") {
		s.With(ref, func(c *contract.Contract) error {
			if !c.Invalid {
				out = append(out, ref)
			}
			return nil
		})
	}
	return out
}

// refs lists the stored references, all of them when ownerPID is empty.
func (s *ContractStore) refs(ownerPID string) []ContractRef {
	s.mu.RLock()
	var out []ContractRef
	for owner, owned := range s.contracts {
		if ownerPID != "" && owner != ownerPID {
			continue
		}
		for id := range owned {
			out = append(out, ContractRef{OwnerPID: owner, ContractID: id})
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].OwnerPID != out[j].OwnerPID {
			return out[i].OwnerPID < out[j].OwnerPID
		}
		return out[i].ContractID < out[j].ContractID
	})
	return out
}
