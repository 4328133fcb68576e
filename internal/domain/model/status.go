package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SubscriptionStatus is a read-only snapshot of on-chain values shown next to
// the action buttons. Balance and Allowance are nil when no account is known.
type SubscriptionStatus struct {
	SubscriptionAddress common.Address
	TokenAddress        common.Address
	Account             common.Address
	InitialPrice        *big.Int
	Balance             *big.Int
	Allowance           *big.Int
	ReadOnly            bool // true when no signer is configured
}

// HasAccount reports whether the snapshot includes account-specific values.
func (s SubscriptionStatus) HasAccount() bool {
	return s.Account != (common.Address{})
}

// FormatTokenAmount renders a base-unit amount as a decimal token string,
// trimming trailing zeros ("90000000000000000000" -> "90"). amount is a
// uint256 value and never negative.
func FormatTokenAmount(amount *big.Int) string {
	if amount == nil {
		return "-"
	}
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(TokenDecimals), nil)
	whole, frac := new(big.Int).QuoRem(amount, unit, new(big.Int))
	if frac.Sign() == 0 {
		return whole.String()
	}
	fs := frac.String()
	for len(fs) < TokenDecimals {
		fs = "0" + fs
	}
	for len(fs) > 0 && fs[len(fs)-1] == '0' {
		fs = fs[:len(fs)-1]
	}
	return whole.String() + "." + fs
}
