package claim

import (
	"crypto/ecdsa"
	"errors"
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	service *Service
	ledger  *stubLedger
	store   *stubStore
	events  <-chan Event

	privKey *ecdsa.PrivateKey
	account ethcommon.Address

	pauser   ethcommon.Address
	upgrader ethcommon.Address
	admin    ethcommon.Address
	token    ethcommon.Address
	chainID  *big.Int
}

func newServiceFixture(t *testing.T, poolBalance *big.Int) *serviceFixture {
	privKey, err := crypto.GenerateKey()
	require.Nil(t, err)

	f := &serviceFixture{
		ledger:   newStubLedger(poolBalance),
		store:    newStubStore(),
		privKey:  privKey,
		account:  crypto.PubkeyToAddress(privKey.PublicKey),
		pauser:   RandAddress(),
		upgrader: RandAddress(),
		admin:    RandAddress(),
		token:    RandAddress(),
		chainID:  big.NewInt(31337),
	}

	roles, err := NewRoleRegistry(f.pauser, f.upgrader, f.admin)
	require.Nil(t, err)

	feed := NewEventFeed()
	f.events = feed.Subscribe()

	f.service, err = NewService(roles, NewGate(roles), NewVerifier(f.chainID), f.store, f.ledger, feed, f.chainID, f.token)
	require.Nil(t, err)

	return f
}

func (f *serviceFixture) signVoucher(t *testing.T, amount *big.Int, seq uint64) []byte {
	return issuerSign(t, f.privKey, &Voucher{
		Account: f.account,
		Amount:  amount,
		Seq:     seq,
		ChainID: f.chainID,
	})
}

func TestNewService_ZeroToken(t *testing.T) {
	roles, err := NewRoleRegistry(RandAddress(), RandAddress(), RandAddress())
	require.Nil(t, err)

	_, err = NewService(roles, NewGate(roles), NewVerifier(big.NewInt(1)), NewMemoryStore(), newStubLedger(big.NewInt(0)), NewEventFeed(), big.NewInt(1), ethcommon.Address{})
	assert.ErrorIs(t, err, ErrZeroAddress)
}

func TestClaim(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	f := newServiceFixture(t, big.NewInt(1000))
	amount := big.NewInt(100)
	sig := f.signVoucher(t, amount, 0)

	require.Nil(f.service.Claim(f.account, amount, 0, sig))

	// Sequence advanced by exactly 1
	seq, err := f.service.ExpectedSequence(f.account)
	assert.Nil(err)
	assert.Equal(uint64(1), seq)

	// Voucher recorded as consumed
	consumed, err := f.service.IsVoucherConsumed(sig)
	assert.Nil(err)
	assert.True(consumed)

	// Pool reduced, claimant credited
	assert.Equal(big.NewInt(900), f.ledger.pool)
	balance, err := f.ledger.BalanceOf(f.token, f.account)
	assert.Nil(err)
	assert.Equal(amount, balance)

	// RewardPaid emitted
	ev := <-f.events
	paid, ok := ev.(RewardPaid)
	require.True(ok)
	assert.Equal(f.account, paid.Account)
	assert.Equal(amount, paid.Amount)

	// The event is journaled in the mutation path, not via a subscriber
	journal := f.store.Events()
	require.Len(journal, 1)
	assert.Equal(paid, journal[0])
}

func TestClaim_NegativeAmount(t *testing.T) {
	assert := assert.New(t)

	f := newServiceFixture(t, big.NewInt(1000))
	amount := big.NewInt(100)
	sig := f.signVoucher(t, amount, 0)

	// A valid signature over +100 must not authorize a claim of -100: the
	// digest encodes only the amount's magnitude
	err := f.service.Claim(f.account, big.NewInt(-100), 0, sig)
	assert.ErrorIs(err, ErrInvalidAmount)

	err = f.service.Claim(f.account, nil, 0, sig)
	assert.ErrorIs(err, ErrInvalidAmount)

	// No state change: pool intact, claimant untouched, voucher unconsumed
	assert.Equal(big.NewInt(1000), f.ledger.pool)
	balance, _ := f.ledger.BalanceOf(f.token, f.account)
	assert.Equal(big.NewInt(0), balance)
	seq, _ := f.service.ExpectedSequence(f.account)
	assert.Equal(uint64(0), seq)
	consumed, _ := f.service.IsVoucherConsumed(sig)
	assert.False(consumed)

	// The voucher still settles at its face value
	assert.Nil(f.service.Claim(f.account, amount, 0, sig))
}

func TestClaim_JournalError(t *testing.T) {
	assert := assert.New(t)

	f := newServiceFixture(t, big.NewInt(1000))
	amount := big.NewInt(100)
	sig := f.signVoucher(t, amount, 0)

	// A journal failure after settlement does not fail the claim
	f.store.recordEventErr = errors.New("journal error")
	assert.Nil(f.service.Claim(f.account, amount, 0, sig))

	ev := <-f.events
	_, ok := ev.(RewardPaid)
	assert.True(ok)
}

func TestClaim_Replay(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	f := newServiceFixture(t, big.NewInt(1000))
	amount := big.NewInt(100)
	sig := f.signVoucher(t, amount, 0)

	require.Nil(f.service.Claim(f.account, amount, 0, sig))

	// Resubmitting the identical voucher always fails, regardless of the
	// sequence number presented
	err := f.service.Claim(f.account, amount, 1, sig)
	assert.ErrorIs(err, ErrVoucherReused)

	// No state change from the rejected claim
	seq, _ := f.service.ExpectedSequence(f.account)
	assert.Equal(uint64(1), seq)
	assert.Equal(big.NewInt(900), f.ledger.pool)
}

func TestClaim_InvalidSequence(t *testing.T) {
	assert := assert.New(t)

	f := newServiceFixture(t, big.NewInt(1000))
	amount := big.NewInt(100)
	sig := f.signVoucher(t, amount, 5)

	// expectedSequence is 0; a claim at 5 is out of order even with a
	// valid voucher for that position
	err := f.service.Claim(f.account, amount, 5, sig)
	assert.ErrorIs(err, ErrInvalidSequence)

	seq, _ := f.service.ExpectedSequence(f.account)
	assert.Equal(uint64(0), seq)

	consumed, _ := f.service.IsVoucherConsumed(sig)
	assert.False(consumed)
}

func TestClaim_InvalidVoucher(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	f := newServiceFixture(t, big.NewInt(1000))
	amount := big.NewInt(100)

	// Signed by a key other than the claimant's issuer-approved identity
	otherKey, err := crypto.GenerateKey()
	require.Nil(err)
	sig := issuerSign(t, otherKey, &Voucher{
		Account: f.account,
		Amount:  amount,
		Seq:     0,
		ChainID: f.chainID,
	})

	err = f.service.Claim(f.account, amount, 0, sig)
	assert.ErrorIs(err, ErrInvalidVoucher)

	consumed, _ := f.service.IsVoucherConsumed(sig)
	assert.False(consumed)
	seq, _ := f.service.ExpectedSequence(f.account)
	assert.Equal(uint64(0), seq)
}

func TestClaim_Suspended(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	f := newServiceFixture(t, big.NewInt(1000))
	amount := big.NewInt(100)
	sig := f.signVoucher(t, amount, 0)

	require.Nil(f.service.Suspend(f.pauser))

	// A valid voucher is still rejected while suspended
	err := f.service.Claim(f.account, amount, 0, sig)
	assert.ErrorIs(err, ErrSuspended)

	// Resume restores normal admission
	require.Nil(f.service.Resume(f.pauser))
	assert.Nil(f.service.Claim(f.account, amount, 0, sig))
}

func TestClaim_InsufficientBalance(t *testing.T) {
	assert := assert.New(t)

	f := newServiceFixture(t, big.NewInt(0))
	amount := big.NewInt(100)
	sig := f.signVoucher(t, amount, 0)

	// A structurally valid claim against an empty pool rolls back fully
	err := f.service.Claim(f.account, amount, 0, sig)
	assert.ErrorIs(err, ErrInsufficientBalance)

	seq, _ := f.service.ExpectedSequence(f.account)
	assert.Equal(uint64(0), seq)
	consumed, _ := f.service.IsVoucherConsumed(sig)
	assert.False(consumed)

	// The same voucher succeeds once the pool is funded
	f.ledger.pool = big.NewInt(100)
	assert.Nil(f.service.Claim(f.account, amount, 0, sig))
}

func TestClaim_Sequential(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	f := newServiceFixture(t, big.NewInt(1000))

	for seq := uint64(0); seq < 3; seq++ {
		amount := big.NewInt(int64(100 + seq))
		sig := f.signVoucher(t, amount, seq)
		require.Nil(f.service.Claim(f.account, amount, seq, sig))
	}

	seq, _ := f.service.ExpectedSequence(f.account)
	assert.Equal(uint64(3), seq)
	assert.Equal(big.NewInt(697), f.ledger.pool)
}

func TestConfigureToken(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	f := newServiceFixture(t, big.NewInt(0))
	newToken := RandAddress()

	// Requires admin
	err := f.service.ConfigureToken(f.pauser, newToken)
	var unauthErr *UnauthorizedError
	require.ErrorAs(err, &unauthErr)
	assert.Equal(CapabilityAdmin, unauthErr.Capability)

	// Zero address rejected
	assert.ErrorIs(f.service.ConfigureToken(f.admin, ethcommon.Address{}), ErrZeroAddress)

	// Reconfiguration to the current value rejected as redundant
	assert.ErrorIs(f.service.ConfigureToken(f.admin, f.token), ErrAlreadyConfigured)

	require.Nil(f.service.ConfigureToken(f.admin, newToken))
	assert.Equal(newToken, f.service.CurrentToken())
	assert.Equal(newToken, f.store.Token())

	ev := <-f.events
	configured, ok := ev.(TokenConfigured)
	require.True(ok)
	assert.Equal(newToken, configured.Token)

	journal := f.store.Events()
	require.Len(journal, 1)
	assert.Equal(configured, journal[0])

	// Second call with the same address now fails
	assert.ErrorIs(f.service.ConfigureToken(f.admin, newToken), ErrAlreadyConfigured)
}

func TestAuthorizeUpgrade(t *testing.T) {
	assert := assert.New(t)

	f := newServiceFixture(t, big.NewInt(0))
	newImpl := RandAddress()

	err := f.service.AuthorizeUpgrade(f.admin, newImpl)
	var unauthErr *UnauthorizedError
	require.ErrorAs(t, err, &unauthErr)
	assert.Equal(CapabilityUpgrade, unauthErr.Capability)

	assert.Nil(f.service.AuthorizeUpgrade(f.upgrader, newImpl))
}

func TestServiceGrantRevoke(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	f := newServiceFixture(t, big.NewInt(0))
	account := RandAddress()

	require.Nil(f.service.Grant(f.admin, CapabilityPause, account))
	assert.True(f.service.HasCapability(CapabilityPause, account))
	// Grant persisted
	assert.Len(f.store.roles, 1)

	require.Nil(f.service.Revoke(f.admin, CapabilityPause, account))
	assert.False(f.service.HasCapability(CapabilityPause, account))
	assert.Len(f.store.roles, 0)
}

func TestClaim_StoreErrors(t *testing.T) {
	assert := assert.New(t)

	f := newServiceFixture(t, big.NewInt(1000))
	amount := big.NewInt(100)
	sig := f.signVoucher(t, amount, 0)

	storeErr := errors.New("store error")

	f.store.expectedSequenceErr = storeErr
	assert.ErrorIs(f.service.Claim(f.account, amount, 0, sig), storeErr)
	f.store.expectedSequenceErr = nil

	f.store.isConsumedErr = storeErr
	assert.ErrorIs(f.service.Claim(f.account, amount, 0, sig), storeErr)
	f.store.isConsumedErr = nil

	f.store.settleErr = storeErr
	assert.ErrorIs(f.service.Claim(f.account, amount, 0, sig), storeErr)
	f.store.settleErr = nil

	assert.Nil(f.service.Claim(f.account, amount, 0, sig))
}
