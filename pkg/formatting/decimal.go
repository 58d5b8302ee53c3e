package formatting

import (
	"math"
	"math/big"
	"strconv"
	"strings"
)

const decimalPrec = 256

var half = big.NewFloat(0.5)

// Fixed formats v with exactly places digits after the decimal point.
//
// Rounding is applied to the exact binary value of v, with ties going away
// from zero. 1.005 is stored as 1.00499999999999989... and therefore
// formats as "1.00" at two places, while 0.0625 formats as "0.063" at three.
// A value that rounds to zero is always written without a sign.
func Fixed(v float64, places int) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	if places < 0 {
		places = 0
	}

	n := scaledRound(math.Abs(v), places)

	digits := n.String()
	if len(digits) <= places {
		digits = strings.Repeat("0", places-len(digits)+1) + digits
	}

	var b strings.Builder
	if v < 0 && n.Sign() != 0 {
		b.WriteByte('-')
	}

	split := len(digits) - places
	b.WriteString(digits[:split])
	if places > 0 {
		b.WriteByte('.')
		b.WriteString(digits[split:])
	}

	return b.String()
}

// Round rounds v to places decimals using the same rule as Fixed.
// Negative zero is normalized to zero.
func Round(v float64, places int) float64 {
	r, err := strconv.ParseFloat(Fixed(v, places), 64)
	if err != nil {
		return v
	}
	if r == 0 {
		return 0
	}
	return r
}

func scaledRound(abs float64, places int) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(places)), nil)

	x := new(big.Float).SetPrec(decimalPrec).SetFloat64(abs)
	x.Mul(x, new(big.Float).SetPrec(decimalPrec).SetInt(scale))

	n, _ := x.Int(nil)
	frac := new(big.Float).SetPrec(decimalPrec).Sub(x, new(big.Float).SetPrec(decimalPrec).SetInt(n))

	if frac.Cmp(half) >= 0 {
		n.Add(n, big.NewInt(1))
	}

	return n
}
