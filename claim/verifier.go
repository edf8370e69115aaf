package claim

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	vcrypto "github.com/vouchsafe/go-vouchsafe/crypto"
)

// Verifier is an interface which describes an object capable of verifying
// voucher signatures produced by the off-line issuer.
type Verifier interface {
	// Verify checks if sig is a valid issuer signature over the voucher
	// (account, amount, seq, chainID). It returns ErrWrongNetwork if
	// chainID does not equal the verifier's configured chain id; any other
	// verification failure is reported as false, not an error
	Verify(account ethcommon.Address, amount *big.Int, seq uint64, chainID *big.Int, sig []byte) (bool, error)
}

// voucherVerifier is a stateless implementation of the Verifier interface.
// Identical inputs always produce identical output and it is safe for
// concurrent use.
type voucherVerifier struct {
	chainID *big.Int
}

// NewVerifier returns a verifier bound to a chain id.
func NewVerifier(chainID *big.Int) Verifier {
	return &voucherVerifier{chainID: new(big.Int).Set(chainID)}
}

func (v *voucherVerifier) Verify(account ethcommon.Address, amount *big.Int, seq uint64, chainID *big.Int, sig []byte) (bool, error) {
	if chainID.Cmp(v.chainID) != 0 {
		return false, errors.Wrapf(ErrWrongNetwork, "chainID=%v expected=%v", chainID, v.chainID)
	}

	voucher := &Voucher{
		Account: account,
		Amount:  amount,
		Seq:     seq,
		ChainID: chainID,
	}

	return vcrypto.VerifySig(account, voucher.Digest().Bytes(), sig), nil
}
