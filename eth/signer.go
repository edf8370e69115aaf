package eth

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/accounts"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/vouchsafe/go-vouchsafe/claim"
)

// VoucherSigner is the off-line issuer's side of the protocol: it produces
// voucher signatures that the claim authorization service verifies. Vouchers
// are signed with the personal-message prefix so the node never needs the
// issuer's key.
type VoucherSigner struct {
	privKey *ecdsa.PrivateKey
	account ethcommon.Address
}

// NewVoucherSigner creates a signer from a hex-encoded secp256k1 private key.
func NewVoucherSigner(hexKey string) (*VoucherSigner, error) {
	privKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, errors.Wrap(err, "invalid issuer key")
	}

	return &VoucherSigner{
		privKey: privKey,
		account: crypto.PubkeyToAddress(privKey.PublicKey),
	}, nil
}

// NewVoucherSignerFromKey creates a signer from an in-memory key.
func NewVoucherSignerFromKey(privKey *ecdsa.PrivateKey) *VoucherSigner {
	return &VoucherSigner{
		privKey: privKey,
		account: crypto.PubkeyToAddress(privKey.PublicKey),
	}
}

// Account returns the ETH address vouchers from this signer verify against.
func (s *VoucherSigner) Account() ethcommon.Address {
	return s.account
}

// Sign produces a personal_sign signature over the voucher digest with the
// v value in the 27/28 convention expected during verification.
func (s *VoucherSigner) Sign(v *claim.Voucher) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(v.Digest().Bytes()), s.privKey)
	if err != nil {
		return nil, err
	}

	// crypto.Sign returns a recovery id of 0/1
	sig[64] += 27

	return sig, nil
}
