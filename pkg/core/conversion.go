package core

import (
	"errors"
	"fmt"
	"math"
)

const (
	// Avogadro is the Avogadro constant in mol^-1.
	Avogadro = 6.022e23

	// DefaultTotalProteinContent is the average total protein content across
	// NCI60 cell lines, in g per gDCW.
	DefaultTotalProteinContent = 0.505717472
)

// ErrNothingToNormalize is returned when a collection has no mass to scale.
var ErrNothingToNormalize = errors.New("no mass to normalize")

// PPMToGrams converts an abundance in ppm and a molecular weight in Dalton to
// a mass proxy on a molar fraction basis.
func PPMToGrams(ppm, molecularWeight float64) float64 {
	relativeAbundance := ppm / 1e6
	return (relativeAbundance / Avogadro) * molecularWeight
}

// Normalize scales values so they sum to total. It needs the whole collection.
func Normalize(values []float64, total float64) ([]float64, error) {
	if len(values) == 0 {
		return nil, ErrNothingToNormalize
	}

	sum := 0.0
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, fmt.Errorf("value %d is not a finite non-negative mass: %v", i, v)
		}
		sum += v
	}
	if sum <= 0 || math.IsInf(sum, 0) {
		return nil, fmt.Errorf("%w: sum is %v", ErrNothingToNormalize, sum)
	}

	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v / sum) * total
	}
	return out, nil
}
