package chain

import (
	"math/big"
	"strings"

	warderr "github.com/Warder-Sonic/warder-wallet/pkg/errors"
)

// NativeDecimals is the decimal precision of the native currency (wei).
const NativeDecimals = 18

// FormatUnits formats an integer amount in the smallest unit as a decimal
// string with the given number of decimals. Trailing zeros after the
// decimal point are trimmed, but at least one fractional digit is kept
// for non-integer values.
func FormatUnits(amount *big.Int, decimals int) string {
	if amount == nil {
		return "0"
	}

	neg := amount.Sign() < 0
	str := new(big.Int).Abs(amount).String()

	for len(str) <= decimals {
		str = "0" + str
	}

	decimalPos := len(str) - decimals
	result := str[:decimalPos] + "." + str[decimalPos:]

	// Trim trailing zeros but always keep one fractional digit,
	// matching ethers.formatEther ("1.0", not "1").
	for len(result) > 1 && result[len(result)-1] == '0' && result[len(result)-2] != '.' {
		result = result[:len(result)-1]
	}

	if neg {
		result = "-" + result
	}
	return result
}

// FormatWei formats a wei amount as a decimal native-currency string.
func FormatWei(amount *big.Int) string {
	return FormatUnits(amount, NativeDecimals)
}

// ParseUnits parses a decimal string into an integer amount in the
// smallest unit with the given number of decimals.
func ParseUnits(s string, decimals int) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, warderr.ErrInvalidAmount
	}

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > decimals {
		return nil, warderr.WithDetails(warderr.ErrInvalidAmount, map[string]string{
			"amount":       s,
			"max_decimals": big.NewInt(int64(decimals)).String(),
		})
	}

	frac += strings.Repeat("0", decimals-len(frac))

	value, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok {
		return nil, warderr.WithDetails(warderr.ErrInvalidAmount, map[string]string{
			"amount": s,
		})
	}

	if neg {
		value.Neg(value)
	}
	return value, nil
}

// ParseWei parses a decimal native-currency string into wei.
func ParseWei(s string) (*big.Int, error) {
	return ParseUnits(s, NativeDecimals)
}
