package claim

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVoucherDigest(t *testing.T) {
	assert := assert.New(t)

	v := &Voucher{
		Account: RandAddress(),
		Amount:  big.NewInt(100),
		Seq:     0,
		ChainID: big.NewInt(31337),
	}

	// Identical inputs produce identical digests
	assert.Equal(v.Digest(), v.Digest())

	// Every field is bound by the digest
	changed := *v
	changed.Account = RandAddress()
	assert.NotEqual(v.Digest(), changed.Digest())

	changed = *v
	changed.Amount = big.NewInt(101)
	assert.NotEqual(v.Digest(), changed.Digest())

	changed = *v
	changed.Seq = 1
	assert.NotEqual(v.Digest(), changed.Digest())

	changed = *v
	changed.ChainID = big.NewInt(1)
	assert.NotEqual(v.Digest(), changed.Digest())
}

func TestVoucherDigest_Flatten(t *testing.T) {
	v := &Voucher{
		Account: RandAddress(),
		Amount:  big.NewInt(100),
		Seq:     7,
		ChainID: big.NewInt(31337),
	}

	flat := v.flatten()

	assert := assert.New(t)
	assert.Equal(addressSize+3*uint256Size, len(flat))
	assert.Equal(v.Account.Bytes(), flat[:addressSize])
	// amount, seq and chainID are left-padded 32 byte words in order
	assert.Equal(big.NewInt(100).Bytes(), flat[addressSize+uint256Size-1:addressSize+uint256Size])
	assert.Equal(byte(7), flat[addressSize+2*uint256Size-1])
}

func TestFingerprint(t *testing.T) {
	assert := assert.New(t)

	sig := RandBytes(65)
	assert.Equal(Fingerprint(sig), Fingerprint(sig))
	assert.NotEqual(Fingerprint(sig), Fingerprint(RandBytes(65)))
}
