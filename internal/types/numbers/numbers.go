package numbers

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// TokenDecimals is the number of decimals of the staked token.
const TokenDecimals int32 = 18

// ScaleTokenAmount converts a raw on-chain amount into whole tokens without losing precision.
func ScaleTokenAmount(amount *big.Int, decimals int32) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, -decimals)
}

// FormatTokenAmount renders a raw amount as whole tokens rounded to the given number of places.
func FormatTokenAmount(amount *big.Int, decimals int32, places int32) string {
	return ScaleTokenAmount(amount, decimals).StringFixed(places)
}

// ParseAmount parses a base-10 integer amount.
func ParseAmount(amountStr string) (*big.Int, error) {
	d, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, err
	}
	if !d.IsInteger() {
		return nil, fmt.Errorf("amount '%s' is not an integer", amountStr)
	}
	return d.BigInt(), nil
}
