package deposit

import (
	"fmt"
	"math/big"
	"strings"
)

const nearDecimals = 24

var (
	// OneNEAR is 10^24 yoctoNEAR.
	OneNEAR = new(big.Int).Exp(big.NewInt(10), big.NewInt(nearDecimals), nil)
	// StorageCostPerByte is the protocol storage price, 10^19 yoctoNEAR per byte.
	StorageCostPerByte = new(big.Int).Exp(big.NewInt(10), big.NewInt(19), nil)
)

// ParseAmount parses a non-negative amount. Bare integers are yoctoNEAR;
// a "NEAR" suffix accepts up to 24 fractional digits ("0.01 NEAR").
func ParseAmount(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if near, ok := strings.CutSuffix(s, "NEAR"); ok {
		return parseNEAR(strings.TrimSpace(near))
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return v, nil
}

func parseNEAR(s string) (*big.Int, error) {
	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > nearDecimals {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidAmount, s, nearDecimals)
	}
	digits := whole + frac + strings.Repeat("0", nearDecimals-len(frac))
	v, ok := new(big.Int).SetString(digits, 10)
	if !ok || v.Sign() < 0 || strings.ContainsAny(frac, "+-") {
		return nil, fmt.Errorf("%w: %q NEAR", ErrInvalidAmount, s)
	}
	return v, nil
}

// FormatNEAR renders a yoctoNEAR amount as a decimal NEAR string.
func FormatNEAR(v *big.Int) string {
	if v == nil {
		return "0 NEAR"
	}
	sign := ""
	abs := new(big.Int).Set(v)
	if abs.Sign() < 0 {
		sign = "-"
		abs.Neg(abs)
	}
	whole, frac := new(big.Int).QuoRem(abs, OneNEAR, new(big.Int))
	if frac.Sign() == 0 {
		return fmt.Sprintf("%s%s NEAR", sign, whole.String())
	}
	fracStr := frac.String()
	fracStr = strings.Repeat("0", nearDecimals-len(fracStr)) + fracStr
	return fmt.Sprintf("%s%s.%s NEAR", sign, whole.String(), strings.TrimRight(fracStr, "0"))
}

func cost(bytes int64, price *big.Int) *big.Int {
	if bytes <= 0 || price == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(big.NewInt(bytes), price)
}

// shortfall returns required-paid clamped at zero.
func shortfall(required, paid *big.Int) *big.Int {
	out := new(big.Int).Set(required)
	if paid != nil {
		out.Sub(out, paid)
	}
	if out.Sign() < 0 {
		out.SetInt64(0)
	}
	return out
}

func maxAmount(a, b *big.Int) *big.Int {
	if b != nil && a.Cmp(b) < 0 {
		return new(big.Int).Set(b)
	}
	return new(big.Int).Set(a)
}

func clone(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}
