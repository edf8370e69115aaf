package eth

import (
	"math/big"
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/vouchsafe/go-vouchsafe/claim"
	"github.com/vouchsafe/go-vouchsafe/common"
)

// InMemoryLedger is a fungible-token ledger holding per-token account
// balances, with a designated pool account funded at startup. It stands in
// for the external ledger collaborator and implements claim.Ledger. Transfers
// only move funds; nothing is minted or burned after funding.
type InMemoryLedger struct {
	mu       sync.RWMutex
	pool     ethcommon.Address
	balances map[ethcommon.Address]map[ethcommon.Address]*big.Int
}

// NewInMemoryLedger creates a ledger with an empty pool account.
func NewInMemoryLedger(pool ethcommon.Address) *InMemoryLedger {
	return &InMemoryLedger{
		pool:     pool,
		balances: make(map[ethcommon.Address]map[ethcommon.Address]*big.Int),
	}
}

// Fund credits the pool account with amount of token.
func (l *InMemoryLedger) Fund(token ethcommon.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.credit(token, l.pool, amount)
}

// Transfer moves amount of token from the pool to an account. It returns
// claim.ErrInsufficientBalance if the pool cannot cover amount.
func (l *InMemoryLedger) Transfer(token, to ethcommon.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount == nil || amount.Sign() < 0 {
		return errors.Wrapf(claim.ErrInvalidAmount, "amount=%v", amount)
	}

	poolBalance := l.balance(token, l.pool)
	if poolBalance.Cmp(amount) < 0 {
		return errors.Wrapf(claim.ErrInsufficientBalance, "pool=%v amount=%v", poolBalance, amount)
	}

	poolBalance.Sub(poolBalance, amount)
	l.credit(token, to, amount)

	glog.V(common.DEBUG).Infof("ledger transfer token=%x to=%x amount=%v", token, to, amount)

	return nil
}

// BalanceOf returns the token balance held by an account.
func (l *InMemoryLedger) BalanceOf(token, account ethcommon.Address) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return new(big.Int).Set(l.balance(token, account)), nil
}

func (l *InMemoryLedger) balance(token, account ethcommon.Address) *big.Int {
	if l.balances[token] == nil {
		l.balances[token] = make(map[ethcommon.Address]*big.Int)
	}
	if l.balances[token][account] == nil {
		l.balances[token][account] = new(big.Int)
	}

	return l.balances[token][account]
}

func (l *InMemoryLedger) credit(token, account ethcommon.Address, amount *big.Int) {
	b := l.balance(token, account)
	b.Add(b, amount)
}
