package claim

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Ledger is an interface which serves as an abstraction over the external
// fungible-token ledger holding the pooled balance. The claim authorization
// service never mints or burns; it only moves funds out of its own pool.
type Ledger interface {
	// Transfer moves amount of token from the pooled balance to an account.
	// It returns ErrInsufficientBalance if the pool cannot cover amount
	Transfer(token, to ethcommon.Address, amount *big.Int) error

	// BalanceOf returns the token balance held by an account
	BalanceOf(token, account ethcommon.Address) (*big.Int, error)
}
