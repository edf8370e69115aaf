package claim

import (
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Store is an interface which describes an object capable of persisting the
// claim authorization service's state: per-account sequence counters, the
// consumed-voucher record, role grants and the reward-token reference.
type Store interface {
	// ExpectedSequence returns the next expected sequence number for an
	// account, starting at 0 for unseen accounts
	ExpectedSequence(account ethcommon.Address) (uint64, error)

	// IsConsumed checks if a voucher fingerprint is present in the
	// consumed-voucher record
	IsConsumed(fp ethcommon.Hash) (bool, error)

	// SettleClaim atomically inserts the fingerprint into the
	// consumed-voucher record, advances the account's sequence counter by
	// exactly 1 and runs settle. If settle returns an error nothing is
	// persisted
	SettleClaim(account ethcommon.Address, fp ethcommon.Hash, settle func() error) error

	// SetToken persists the reward-token reference
	SetToken(token ethcommon.Address) error

	// RecordEvent appends an event to the durable journal. Journal entries
	// are never revised or deleted
	RecordEvent(ev Event) error

	// GrantRole persists a (capability, account) assignment
	GrantRole(capability Capability, account ethcommon.Address) error

	// RevokeRole removes a persisted (capability, account) assignment
	RevokeRole(capability Capability, account ethcommon.Address) error
}

// MemoryStore is an in-memory Store used in tests and for nodes run without
// a data directory.
type MemoryStore struct {
	mu        sync.RWMutex
	sequences map[ethcommon.Address]uint64
	consumed  map[ethcommon.Hash]bool
	token     ethcommon.Address
	roles     []RoleGrant
	events    []Event
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sequences: make(map[ethcommon.Address]uint64),
		consumed:  make(map[ethcommon.Hash]bool),
	}
}

func (s *MemoryStore) ExpectedSequence(account ethcommon.Address) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sequences[account], nil
}

func (s *MemoryStore) IsConsumed(fp ethcommon.Hash) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.consumed[fp], nil
}

func (s *MemoryStore) SettleClaim(account ethcommon.Address, fp ethcommon.Hash, settle func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := settle(); err != nil {
		return err
	}

	s.consumed[fp] = true
	s.sequences[account]++

	return nil
}

func (s *MemoryStore) SetToken(token ethcommon.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token

	return nil
}

// Token returns the last persisted reward-token reference.
func (s *MemoryStore) Token() ethcommon.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

func (s *MemoryStore) RecordEvent(ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, ev)

	return nil
}

// Events returns the journal in append order.
func (s *MemoryStore) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]Event(nil), s.events...)
}

func (s *MemoryStore) GrantRole(capability Capability, account ethcommon.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.roles = append(s.roles, RoleGrant{Capability: capability, Account: account})

	return nil
}

func (s *MemoryStore) RevokeRole(capability Capability, account ethcommon.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	grants := s.roles[:0]
	for _, g := range s.roles {
		if g.Capability != capability || g.Account != account {
			grants = append(grants, g)
		}
	}
	s.roles = grants

	return nil
}
