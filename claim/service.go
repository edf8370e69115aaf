package claim

import (
	"math/big"
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Service is the claim authorization engine. It orchestrates the role
// registry, operational gate, sequence ledger, consumed-voucher record and
// voucher verifier to decide whether a claim is admissible, and on success
// instructs the external ledger to release funds from the pool.
//
// All state-mutating operations execute with exclusive access to the full
// service state; read-only queries may be served concurrently and always
// observe the most recently completed mutation.
type Service struct {
	mu sync.RWMutex

	roles    *RoleRegistry
	gate     *Gate
	verifier Verifier
	store    Store
	ledger   Ledger
	feed     *EventFeed

	chainID *big.Int
	token   ethcommon.Address
}

// NewService creates a claim authorization service. The initial reward token
// must be non-zero.
func NewService(roles *RoleRegistry, gate *Gate, verifier Verifier, store Store, ledger Ledger, feed *EventFeed, chainID *big.Int, token ethcommon.Address) (*Service, error) {
	if (token == ethcommon.Address{}) {
		return nil, ErrZeroAddress
	}

	return &Service{
		roles:    roles,
		gate:     gate,
		verifier: verifier,
		store:    store,
		ledger:   ledger,
		feed:     feed,
		chainID:  new(big.Int).Set(chainID),
		token:    token,
	}, nil
}

// Claim authorizes a one-time claim of amount by caller at sequence position
// seq, backed by the issuer signature sig. On success the external ledger
// releases amount from the pool to caller, the voucher fingerprint is
// recorded as consumed, the caller's sequence counter advances by exactly 1
// and a RewardPaid event is emitted. Any failure leaves no state behind.
//
// The caller identity must come from the calling channel's authentication,
// never from request data.
func (s *Service) Claim(caller ethcommon.Address, amount *big.Int, seq uint64, sig []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount == nil || amount.Sign() < 0 {
		return errors.Wrapf(ErrInvalidAmount, "account=%x amount=%v", caller, amount)
	}

	if !s.gate.IsActive() {
		return ErrSuspended
	}

	expected, err := s.store.ExpectedSequence(caller)
	if err != nil {
		return err
	}
	// The position check precedes the consumed check, so a settled claim
	// resubmitted as-is reports its stale position; reuse surfaces when a
	// consumed voucher is presented at the live position
	if seq != expected {
		return errors.Wrapf(ErrInvalidSequence, "account=%x seq=%d expected=%d", caller, seq, expected)
	}

	fp := Fingerprint(sig)
	consumed, err := s.store.IsConsumed(fp)
	if err != nil {
		return err
	}
	if consumed {
		return errors.Wrapf(ErrVoucherReused, "account=%x fingerprint=%x", caller, fp)
	}

	valid, err := s.verifier.Verify(caller, amount, seq, s.chainID, sig)
	if err != nil {
		return err
	}
	if !valid {
		return errors.Wrapf(ErrInvalidVoucher, "account=%x seq=%d", caller, seq)
	}

	// The transfer and the consumed/sequence updates persist together or
	// not at all
	err = s.store.SettleClaim(caller, fp, func() error {
		return s.ledger.Transfer(s.token, caller, amount)
	})
	if err != nil {
		glog.Errorf("error settling claim account=%x amount=%v seq=%d err=%v", caller, amount, seq, err)
		return err
	}

	glog.Infof("reward paid account=%x amount=%v seq=%d", caller, amount, seq)
	s.emit(RewardPaid{Account: caller, Amount: amount})

	return nil
}

// emit journals an event durably before fanning it out to subscribers. The
// journal write happens in the mutation path so the record cannot be lost to
// a slow subscriber; a journal failure is logged, not propagated, since the
// operation it records has already settled.
func (s *Service) emit(ev Event) {
	if err := s.store.RecordEvent(ev); err != nil {
		glog.Errorf("error journaling event kind=%v err=%v", ev.Kind(), err)
	}
	s.feed.Publish(ev)
}

// ConfigureToken replaces the reward-token reference. The caller must hold
// CapabilityAdmin; reconfiguring to the current value is rejected as
// redundant.
func (s *Service) ConfigureToken(caller, token ethcommon.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.roles.HasCapability(CapabilityAdmin, caller) {
		return &UnauthorizedError{Caller: caller, Capability: CapabilityAdmin}
	}
	if (token == ethcommon.Address{}) {
		return ErrZeroAddress
	}
	if token == s.token {
		return errors.Wrapf(ErrAlreadyConfigured, "token=%x", token)
	}

	if err := s.store.SetToken(token); err != nil {
		return err
	}
	s.token = token

	glog.Infof("reward token configured token=%x caller=%x", token, caller)
	s.emit(TokenConfigured{Token: token})

	return nil
}

// AuthorizeUpgrade gates the decision to swap the executable logic. The
// caller must hold CapabilityUpgrade; the swap mechanism itself belongs to
// the host runtime.
func (s *Service) AuthorizeUpgrade(caller, newImplementation ethcommon.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.roles.HasCapability(CapabilityUpgrade, caller) {
		return &UnauthorizedError{Caller: caller, Capability: CapabilityUpgrade}
	}

	glog.Infof("upgrade authorized caller=%x implementation=%x", caller, newImplementation)

	return nil
}

// Suspend halts admission of state-changing claim operations.
func (s *Service) Suspend(caller ethcommon.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.gate.Suspend(caller)
}

// Resume restores admission of state-changing claim operations.
func (s *Service) Resume(caller ethcommon.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.gate.Resume(caller)
}

// Grant entitles account to capability and persists the assignment.
func (s *Service) Grant(caller ethcommon.Address, capability Capability, account ethcommon.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.roles.Grant(caller, capability, account); err != nil {
		return err
	}

	return s.store.GrantRole(capability, account)
}

// Revoke removes account's entitlement to capability and the persisted
// assignment.
func (s *Service) Revoke(caller ethcommon.Address, capability Capability, account ethcommon.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.roles.Revoke(caller, capability, account); err != nil {
		return err
	}

	return s.store.RevokeRole(capability, account)
}

// ExpectedSequence returns the next expected sequence number for account.
func (s *Service) ExpectedSequence(account ethcommon.Address) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.store.ExpectedSequence(account)
}

// IsVoucherConsumed checks if a voucher signature has been used by a
// successful claim.
func (s *Service) IsVoucherConsumed(sig []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.store.IsConsumed(Fingerprint(sig))
}

// IsActive reports whether the operational gate admits claims.
func (s *Service) IsActive() bool {
	return s.gate.IsActive()
}

// CurrentToken returns the configured reward-token reference.
func (s *Service) CurrentToken() ethcommon.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

// HasCapability reports whether account holds capability.
func (s *Service) HasCapability(capability Capability, account ethcommon.Address) bool {
	return s.roles.HasCapability(capability, account)
}

// ChainID returns the network identifier the service verifies vouchers
// against.
func (s *Service) ChainID() *big.Int {
	return new(big.Int).Set(s.chainID)
}
