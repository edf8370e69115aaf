package claim

import (
	"math/big"
	"math/rand"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

type stubVerifier struct {
	verifyResult bool
	verifyErr    error
}

func (v *stubVerifier) SetVerifyResult(verifyResult bool) {
	v.verifyResult = verifyResult
}

func (v *stubVerifier) Verify(account ethcommon.Address, amount *big.Int, seq uint64, chainID *big.Int, sig []byte) (bool, error) {
	return v.verifyResult, v.verifyErr
}

type stubLedger struct {
	pool     *big.Int
	balances map[ethcommon.Address]*big.Int

	transferErr error
}

func newStubLedger(pool *big.Int) *stubLedger {
	return &stubLedger{
		pool:     new(big.Int).Set(pool),
		balances: make(map[ethcommon.Address]*big.Int),
	}
}

func (l *stubLedger) Transfer(token, to ethcommon.Address, amount *big.Int) error {
	if l.transferErr != nil {
		return l.transferErr
	}

	if l.pool.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	l.pool.Sub(l.pool, amount)
	if l.balances[to] == nil {
		l.balances[to] = new(big.Int)
	}
	l.balances[to].Add(l.balances[to], amount)

	return nil
}

func (l *stubLedger) BalanceOf(token, account ethcommon.Address) (*big.Int, error) {
	if b, ok := l.balances[account]; ok {
		return new(big.Int).Set(b), nil
	}

	return big.NewInt(0), nil
}

type stubStore struct {
	*MemoryStore

	expectedSequenceErr error
	isConsumedErr       error
	settleErr           error
	recordEventErr      error
}

func newStubStore() *stubStore {
	return &stubStore{MemoryStore: NewMemoryStore()}
}

func (s *stubStore) ExpectedSequence(account ethcommon.Address) (uint64, error) {
	if s.expectedSequenceErr != nil {
		return 0, s.expectedSequenceErr
	}

	return s.MemoryStore.ExpectedSequence(account)
}

func (s *stubStore) IsConsumed(fp ethcommon.Hash) (bool, error) {
	if s.isConsumedErr != nil {
		return false, s.isConsumedErr
	}

	return s.MemoryStore.IsConsumed(fp)
}

func (s *stubStore) SettleClaim(account ethcommon.Address, fp ethcommon.Hash, settle func() error) error {
	if s.settleErr != nil {
		return s.settleErr
	}

	return s.MemoryStore.SettleClaim(account, fp, settle)
}

func (s *stubStore) RecordEvent(ev Event) error {
	if s.recordEventErr != nil {
		return s.recordEventErr
	}

	return s.MemoryStore.RecordEvent(ev)
}

// RandAddress returns a random ETH address
func RandAddress() ethcommon.Address {
	return ethcommon.BytesToAddress(RandBytes(addressSize))
}

// RandBytes returns a slice of random bytes with the size specified by the caller
func RandBytes(size uint) []byte {
	x := make([]byte, size)
	for i := 0; i < len(x); i++ {
		x[i] = byte(rand.Uint32())
	}

	return x
}
