package claim

import (
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Capability is a named permission grantable to accounts. The set of
// capabilities is closed.
type Capability int

const (
	// CapabilityPause permits flipping the operational gate
	CapabilityPause Capability = iota

	// CapabilityUpgrade permits authorizing a logic upgrade
	CapabilityUpgrade

	// CapabilityAdmin permits administrative configuration, including
	// granting and revoking capabilities
	CapabilityAdmin
)

func (c Capability) String() string {
	switch c {
	case CapabilityPause:
		return "PAUSE"
	case CapabilityUpgrade:
		return "UPGRADE"
	case CapabilityAdmin:
		return "ADMIN"
	default:
		return "UNKNOWN"
	}
}

// ParseCapability converts a capability name to its Capability value.
func ParseCapability(name string) (Capability, error) {
	switch name {
	case "PAUSE":
		return CapabilityPause, nil
	case "UPGRADE":
		return CapabilityUpgrade, nil
	case "ADMIN":
		return CapabilityAdmin, nil
	default:
		return 0, errors.Errorf("unknown capability %q", name)
	}
}

// RoleGrant is a single (capability, account) assignment. Used to load a
// registry from persisted state.
type RoleGrant struct {
	Capability Capability
	Account    ethcommon.Address
}

// RoleRegistry holds the set of accounts entitled to each capability.
// Grants and revocations are gated on the caller holding CapabilityAdmin.
type RoleRegistry struct {
	mu     sync.RWMutex
	grants map[Capability]map[ethcommon.Address]bool
}

// NewRoleRegistry creates a registry seeded with exactly one account per
// capability. Seed accounts must be non-zero.
func NewRoleRegistry(pauser, upgrader, admin ethcommon.Address) (*RoleRegistry, error) {
	for _, addr := range []ethcommon.Address{pauser, upgrader, admin} {
		if (addr == ethcommon.Address{}) {
			return nil, ErrZeroAddress
		}
	}

	return NewRoleRegistryFromGrants([]RoleGrant{
		{CapabilityPause, pauser},
		{CapabilityUpgrade, upgrader},
		{CapabilityAdmin, admin},
	}), nil
}

// NewRoleRegistryFromGrants creates a registry holding a previously
// persisted set of grants.
func NewRoleRegistryFromGrants(grants []RoleGrant) *RoleRegistry {
	r := &RoleRegistry{
		grants: make(map[Capability]map[ethcommon.Address]bool),
	}
	for _, g := range grants {
		if r.grants[g.Capability] == nil {
			r.grants[g.Capability] = make(map[ethcommon.Address]bool)
		}
		r.grants[g.Capability][g.Account] = true
	}

	return r
}

// Grant entitles account to capability. The caller must hold CapabilityAdmin.
func (r *RoleRegistry) Grant(caller ethcommon.Address, capability Capability, account ethcommon.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.hasCapability(CapabilityAdmin, caller) {
		return &UnauthorizedError{Caller: caller, Capability: CapabilityAdmin}
	}

	if r.grants[capability] == nil {
		r.grants[capability] = make(map[ethcommon.Address]bool)
	}
	r.grants[capability][account] = true

	return nil
}

// Revoke removes account's entitlement to capability. The caller must hold
// CapabilityAdmin.
func (r *RoleRegistry) Revoke(caller ethcommon.Address, capability Capability, account ethcommon.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.hasCapability(CapabilityAdmin, caller) {
		return &UnauthorizedError{Caller: caller, Capability: CapabilityAdmin}
	}

	delete(r.grants[capability], account)

	return nil
}

// HasCapability reports whether account holds capability.
func (r *RoleRegistry) HasCapability(capability Capability, account ethcommon.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.hasCapability(capability, account)
}

func (r *RoleRegistry) hasCapability(capability Capability, account ethcommon.Address) bool {
	return r.grants[capability][account]
}
