// vouchsafe-sign is the off-line issuer tool: it signs a voucher binding an
// amount and sequence position to the signer's account on one network, and
// prints the tuple a claimant submits to the node.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/golang/glog"

	"github.com/vouchsafe/go-vouchsafe/claim"
	"github.com/vouchsafe/go-vouchsafe/common"
	"github.com/vouchsafe/go-vouchsafe/eth"
)

func main() {
	key := flag.String("key", "", "Hex-encoded secp256k1 private key of the issuer")
	amount := flag.String("amount", "", "Amount the voucher authorizes")
	seq := flag.Uint64("seq", 0, "Sequence position the voucher is bound to")
	chainID := flag.Int64("chainID", 31337, "Network identifier the voucher is bound to")

	flag.Parse()

	if *key == "" || *amount == "" {
		glog.Fatal("-key and -amount are required")
	}

	signer, err := eth.NewVoucherSigner(*key)
	if err != nil {
		glog.Fatalf("error creating signer: %v", err)
	}

	value, err := common.ParseBigInt(*amount)
	if err != nil {
		glog.Fatalf("invalid -amount: %v", err)
	}

	voucher := &claim.Voucher{
		Account: signer.Account(),
		Amount:  value,
		Seq:     *seq,
		ChainID: big.NewInt(*chainID),
	}

	sig, err := signer.Sign(voucher)
	if err != nil {
		glog.Fatalf("error signing voucher: %v", err)
	}

	out, err := json.MarshalIndent(map[string]string{
		"account": voucher.Account.Hex(),
		"amount":  voucher.Amount.String(),
		"seq":     fmt.Sprint(voucher.Seq),
		"chainID": voucher.ChainID.String(),
		"sig":     hexutil.Encode(sig),
	}, "", "  ")
	if err != nil {
		glog.Fatal(err)
	}

	fmt.Println(string(out))
}
