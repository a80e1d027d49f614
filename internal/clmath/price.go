package clmath

import "github.com/holiman/uint256"

// QuoteToBase values a quote (asset1) amount in base (asset0) units:
// amount * sqrtP^2 / 2^128.
func QuoteToBase(amount, sqrtPrice *uint256.Int) (*uint256.Int, error) {
	t, err := MulDiv(amount, sqrtPrice, Q64)
	if err != nil {
		return nil, err
	}
	return MulDiv(t, sqrtPrice, Q64)
}

// BaseToQuote values a base (asset0) amount in quote (asset1) units:
// amount * 2^128 / sqrtP^2.
func BaseToQuote(amount, sqrtPrice *uint256.Int) (*uint256.Int, error) {
	t, err := MulDiv(amount, Q64, sqrtPrice)
	if err != nil {
		return nil, err
	}
	return MulDiv(t, Q64, sqrtPrice)
}
