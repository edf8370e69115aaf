package claim

import (
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"
)

// Gate is the two-state operational switch consulted before any
// balance-affecting operation. It starts active; only accounts holding
// CapabilityPause may flip it, and no-op transitions are rejected.
type Gate struct {
	mu        sync.RWMutex
	suspended bool
	roles     *RoleRegistry
}

// NewGate creates a gate in the active state.
func NewGate(roles *RoleRegistry) *Gate {
	return &Gate{roles: roles}
}

// Suspend transitions the gate from active to suspended.
func (g *Gate) Suspend(caller ethcommon.Address) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.roles.HasCapability(CapabilityPause, caller) {
		return &UnauthorizedError{Caller: caller, Capability: CapabilityPause}
	}

	if g.suspended {
		return ErrAlreadySuspended
	}

	g.suspended = true
	glog.Infof("gate suspended caller=%x", caller)

	return nil
}

// Resume transitions the gate from suspended to active.
func (g *Gate) Resume(caller ethcommon.Address) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.roles.HasCapability(CapabilityPause, caller) {
		return &UnauthorizedError{Caller: caller, Capability: CapabilityPause}
	}

	if !g.suspended {
		return ErrNotSuspended
	}

	g.suspended = false
	glog.Infof("gate resumed caller=%x", caller)

	return nil
}

// IsActive reports whether state-changing claim operations are admissible.
func (g *Gate) IsActive() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return !g.suspended
}
