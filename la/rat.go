package la

import "math/big"

// Floor returns the largest integer not greater than x, as a rational.
func Floor(x *big.Rat) *big.Rat {
	// big.Int.Div rounds toward negative infinity for a positive
	// divisor, and big.Rat keeps its denominator positive.
	q := new(big.Int).Div(x.Num(), x.Denom())
	return new(big.Rat).SetInt(q)
}

// Ceil returns the smallest integer not less than x, as a rational.
func Ceil(x *big.Rat) *big.Rat {
	neg := new(big.Rat).Neg(x)
	f := Floor(neg)
	return f.Neg(f)
}

// Frac returns x - Floor(x), which lies in [0, 1).
func Frac(x *big.Rat) *big.Rat {
	f := Floor(x)
	return f.Sub(x, f)
}

// IntDistance returns the distance from x to its nearest integer, a
// value in [0, 1/2].
func IntDistance(x *big.Rat) *big.Rat {
	f := Frac(x)
	rest := new(big.Rat).SetInt64(1)
	rest.Sub(rest, f)
	if f.Cmp(rest) <= 0 {
		return f
	}
	return rest
}
