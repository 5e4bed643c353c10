package combine

import "math/big"

// Weighted pairs a normalized price with its source weight.
type Weighted struct {
	Value  *big.Int
	Weight *big.Int
}

// WeightedMean returns sum(value*weight) / sum(weight) with truncating
// integer division. Entries with a nil or non-positive weight contribute
// nothing; if nothing contributes, ErrZeroWeight is returned.
func WeightedMean(pairs []Weighted) (*big.Int, error) {
	if len(pairs) == 0 {
		return nil, ErrNoValues
	}

	num := new(big.Int)
	den := new(big.Int)
	for _, p := range pairs {
		if p.Value == nil || p.Weight == nil || p.Weight.Sign() <= 0 {
			continue
		}
		num.Add(num, new(big.Int).Mul(p.Value, p.Weight))
		den.Add(den, p.Weight)
	}

	if den.Sign() == 0 {
		return nil, ErrZeroWeight
	}
	return num.Quo(num, den), nil
}
