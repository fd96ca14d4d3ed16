package chain

import (
	"fmt"
	"math/big"
	"strings"
)

const etherDecimals = 18

var weiPerEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(etherDecimals), nil)

// Ether returns n whole tokens in wei (18 decimals).
func Ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), weiPerEther)
}

// FormatEther renders wei as a decimal token amount, always with at least one
// fractional digit ("10.0", "0.5", "1.000000000000000001").
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0.0"
	}
	neg := wei.Sign() < 0
	abs := new(big.Int).Abs(wei)
	whole, frac := new(big.Int).QuoRem(abs, weiPerEther, new(big.Int))

	fs := fmt.Sprintf("%018s", frac.String())
	fs = strings.TrimRight(fs, "0")
	if fs == "" {
		fs = "0"
	}
	out := whole.String() + "." + fs
	if neg {
		out = "-" + out
	}
	return out
}

// ParseEther parses a non-negative decimal token amount into wei.
func ParseEther(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("parse ether: empty amount")
	}
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > etherDecimals {
		return nil, fmt.Errorf("parse ether %q: too many decimals", s)
	}
	w, ok := new(big.Int).SetString(whole, 10)
	if !ok || w.Sign() < 0 {
		return nil, fmt.Errorf("parse ether %q: invalid amount", s)
	}
	wei := new(big.Int).Mul(w, weiPerEther)
	if frac != "" {
		f, ok := new(big.Int).SetString(frac+strings.Repeat("0", etherDecimals-len(frac)), 10)
		if !ok || f.Sign() < 0 {
			return nil, fmt.Errorf("parse ether %q: invalid amount", s)
		}
		wei.Add(wei, f)
	}
	return wei, nil
}
