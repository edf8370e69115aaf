package claim

import (
	"fmt"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// Sentinel errors for the closed failure taxonomy of the claim
// authorization service. Callers distinguish causes with errors.Is;
// call sites wrap these with additional detail.
var (
	// ErrSuspended is returned when a state-changing operation is blocked
	// by the operational gate
	ErrSuspended = errors.New("system suspended")

	// ErrAlreadySuspended is returned when suspending an already suspended system
	ErrAlreadySuspended = errors.New("already suspended")

	// ErrNotSuspended is returned when resuming a system that is active
	ErrNotSuspended = errors.New("not suspended")

	// ErrInvalidSequence is returned when a claim's sequence number does not
	// equal the account's next expected sequence
	ErrInvalidSequence = errors.New("invalid sequence")

	// ErrVoucherReused is returned when a voucher fingerprint is already
	// present in the consumed-voucher record
	ErrVoucherReused = errors.New("voucher already consumed")

	// ErrInvalidVoucher is returned when signature verification fails for a claim
	ErrInvalidVoucher = errors.New("invalid voucher signature")

	// ErrInvalidAmount is returned when a claim's amount is missing or
	// negative. The voucher digest encodes the amount's magnitude, so a
	// negative amount can never correspond to an issued voucher
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrWrongNetwork is returned when a voucher's chain id does not equal
	// the verifier's configured chain id
	ErrWrongNetwork = errors.New("wrong network")

	// ErrAlreadyConfigured is returned when reconfiguring the reward token
	// to its current value
	ErrAlreadyConfigured = errors.New("token already configured")

	// ErrZeroAddress is returned when a required address argument is the zero address
	ErrZeroAddress = errors.New("zero address")

	// ErrAlreadyInitialized is returned when initializing a deployed instance twice
	ErrAlreadyInitialized = errors.New("already initialized")

	// ErrInsufficientBalance is propagated verbatim from the external ledger
	// when the pooled balance cannot cover a claim
	ErrInsufficientBalance = errors.New("insufficient pool balance")
)

// UnauthorizedError is returned when a caller attempts a capability-gated
// operation without holding the required capability.
type UnauthorizedError struct {
	Caller     ethcommon.Address
	Capability Capability
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized caller=%x missing capability=%v", e.Caller, e.Capability)
}
