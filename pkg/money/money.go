// Package money provides the fixed-point numeric types shared by the
// accounting core. Absolute quantities never leave the integer domain:
// monetary amounts are stored as cents and share quantities with eight
// implied decimal digits. Only dimensionless ratios (returns, rates of
// return) are represented as float64, and that conversion happens in the
// performance calculators, not here.
package money

import (
	"fmt"
	"math/big"
	"strings"
)

const (
	// CentScale is the number of base units per currency unit (2 implied decimals).
	CentScale = 100

	// ShareScale is the number of base units per share (8 implied decimals).
	ShareScale = 100_000_000

	// RateScale is the scaling factor for prices and FX rates (8 implied decimals).
	RateScale = 100_000_000
)

// Cents is a monetary amount with 2 implied decimal digits.
type Cents int64

// Shares is a share quantity with 8 implied decimal digits.
type Shares int64

// MulDivRound computes a*num/den with a big.Int intermediate and rounds the
// result half away from zero. All proportional division in the lot engine,
// the cost basis query and currency conversion goes through this function so
// the rounding behaviour is identical everywhere.
func MulDivRound(a, num, den int64) int64 {
	if den == 0 {
		return 0
	}

	product := new(big.Int).Mul(big.NewInt(a), big.NewInt(num))
	divisor := big.NewInt(den)

	quo, rem := new(big.Int).QuoRem(product, divisor, new(big.Int))

	// Round half away from zero: |rem|*2 >= |den| bumps the quotient.
	rem.Abs(rem).Lsh(rem, 1)
	if rem.CmpAbs(divisor) >= 0 {
		if (product.Sign() < 0) != (den < 0) {
			quo.Sub(quo, big.NewInt(1))
		} else {
			quo.Add(quo, big.NewInt(1))
		}
	}

	return quo.Int64()
}

// ProportionalCents returns total scaled by part/whole, rounded half away
// from zero. It is the "remaining/original × amount" primitive the lot
// engine uses when consuming a slice of a lot.
func ProportionalCents(total Cents, part, whole Shares) Cents {
	if whole == 0 {
		return 0
	}
	return Cents(MulDivRound(int64(total), int64(part), int64(whole)))
}

// ValueCents prices a share quantity. The price carries 8 implied decimals
// per currency unit, so the combined denominator is ShareScale*RateScale/CentScale.
func ValueCents(shares Shares, price int64) Cents {
	// shares/1e8 * price/1e8 currency units = cents / 1e2
	const den = int64(ShareScale) * int64(RateScale) / int64(CentScale)
	return Cents(MulDivRound(int64(shares), price, den))
}

// ConvertCents applies an FX rate with 8 implied decimals to an amount.
func ConvertCents(amount Cents, rate int64) Cents {
	return Cents(MulDivRound(int64(amount), rate, RateScale))
}

// String renders the amount as a plain decimal, e.g. 12345 -> "123.45".
func (c Cents) String() string {
	return formatScaled(int64(c), 2)
}

// Float returns the amount in currency units as a float64. Meant for
// ratio calculations only; never feed the result back into lot accounting.
func (c Cents) Float() float64 {
	return float64(c) / CentScale
}

// String renders the quantity as a plain decimal with trailing zeros trimmed.
func (s Shares) String() string {
	return formatScaled(int64(s), 8)
}

// ParseCents parses a decimal string into cents. Excess fractional digits
// are rejected rather than silently truncated.
func ParseCents(text string) (Cents, error) {
	v, err := parseScaled(text, 2)
	if err != nil {
		return 0, err
	}
	return Cents(v), nil
}

// ParseShares parses a decimal string into an 8-decimal share quantity.
func ParseShares(text string) (Shares, error) {
	v, err := parseScaled(text, 8)
	if err != nil {
		return 0, err
	}
	return Shares(v), nil
}

func formatScaled(v int64, decimals int) string {
	neg := v < 0
	digits := fmt.Sprintf("%d", abs64(v))
	for len(digits) <= decimals {
		digits = "0" + digits
	}

	pos := len(digits) - decimals
	out := digits[:pos] + "." + digits[pos:]
	out = strings.TrimRight(out, "0")
	out = strings.TrimSuffix(out, ".")
	if neg && out != "0" {
		out = "-" + out
	}
	return out
}

func parseScaled(text string, decimals int) (int64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("empty amount")
	}

	neg := false
	switch text[0] {
	case '-':
		neg = true
		text = text[1:]
	case '+':
		text = text[1:]
	}

	intPart, decPart, _ := strings.Cut(text, ".")
	if intPart == "" {
		intPart = "0"
	}
	if len(decPart) > decimals {
		return 0, fmt.Errorf("amount %q has more than %d decimal digits", text, decimals)
	}
	decPart += strings.Repeat("0", decimals-len(decPart))

	combined := strings.TrimLeft(intPart+decPart, "0")
	if combined == "" {
		combined = "0"
	}

	var v int64
	if _, err := fmt.Sscanf(combined, "%d", &v); err != nil {
		return 0, fmt.Errorf("invalid amount %q", text)
	}
	if neg {
		v = -v
	}
	return v, nil
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
