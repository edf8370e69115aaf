package common

import (
	"fmt"
	"math/big"
)

// Verbosity levels for glog
const (
	SHORT = 4
	DEBUG = 6
)

var ErrParseBigInt = fmt.Errorf("failed to parse big integer")

func ParseBigInt(num string) (*big.Int, error) {
	bigNum := new(big.Int)
	_, ok := bigNum.SetString(num, 10)

	if !ok {
		return nil, ErrParseBigInt
	}

	return bigNum, nil
}
