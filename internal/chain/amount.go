package chain

import (
	"math/big"
	"strings"

	"github.com/walletflow/backend/internal/apperr"
)

const etherDecimals = 18

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(etherDecimals), nil)

// ParseEther converts a positive decimal ether amount ("0.001") into wei
// exactly. The conversion is pure integer digit shifting; no floating point
// is involved anywhere on this path, so there is no rounding drift.
func ParseEther(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, apperr.BadRequest("amount is required")
	}
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		return nil, apperr.BadRequest("amount must be an unsigned decimal, got %q", s)
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return nil, apperr.BadRequest("amount %q is not a decimal number", s)
	}
	if len(frac) > etherDecimals {
		return nil, apperr.BadRequest("amount %q has more than %d decimal places", s, etherDecimals)
	}

	wei, ok := new(big.Int).SetString(whole+frac+strings.Repeat("0", etherDecimals-len(frac)), 10)
	if !ok {
		return nil, apperr.BadRequest("amount %q is not a decimal number", s)
	}
	if wei.Sign() <= 0 {
		return nil, apperr.BadRequest("amount must be greater than zero")
	}
	return wei, nil
}

// FormatEther renders a wei value as a decimal ether string with trailing
// zeros trimmed, again without floating point.
func FormatEther(wei *big.Int) string {
	quo, rem := new(big.Int).QuoRem(wei, weiPerEther, new(big.Int))
	if rem.Sign() == 0 {
		return quo.String()
	}

	frac := rem.String()
	frac = strings.Repeat("0", etherDecimals-len(frac)) + frac
	frac = strings.TrimRight(frac, "0")
	return quo.String() + "." + frac
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
