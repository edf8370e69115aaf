package claim

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Constants for byte sizes of Solidity types
const (
	addressSize = 20
	uint256Size = 32
)

// Voucher is an off-line-issued authorization for a specific account to
// claim a specific amount at a specific sequence position on a specific
// network. The issuer signs the voucher digest out of band and the claimant
// presents the signature to the claim authorization service.
type Voucher struct {
	// Account is the ETH address entitled to claim the amount
	Account ethcommon.Address

	// Amount is the number of reward tokens released on a successful claim
	Amount *big.Int

	// Seq is the account's sequence position the voucher is bound to.
	// The service accepts a voucher only at the exact next expected
	// position for the account
	Seq uint64

	// ChainID binds the voucher to one deployment instance and prevents
	// a voucher signed for one network from being replayed on another
	ChainID *big.Int
}

// Digest returns the keccak-256 hash of the voucher's fields as tightly
// packed arguments as described in the Solidity documentation
// See: https://solidity.readthedocs.io/en/v0.4.25/units-and-global-variables.html#mathematical-and-cryptographic-functions
func (v *Voucher) Digest() ethcommon.Hash {
	return crypto.Keccak256Hash(v.flatten())
}

func (v *Voucher) flatten() []byte {
	buf := make([]byte, addressSize+uint256Size+uint256Size+uint256Size)
	i := copy(buf[0:], v.Account.Bytes())
	i += copy(buf[i:], ethcommon.LeftPadBytes(v.Amount.Bytes(), uint256Size))
	i += copy(buf[i:], ethcommon.LeftPadBytes(new(big.Int).SetUint64(v.Seq).Bytes(), uint256Size))
	i += copy(buf[i:], ethcommon.LeftPadBytes(v.ChainID.Bytes(), uint256Size))

	return buf
}

// Fingerprint returns the collision-resistant digest of a voucher signature
// used as the replay-detection key in the consumed-voucher record.
func Fingerprint(sig []byte) ethcommon.Hash {
	return crypto.Keccak256Hash(sig)
}
