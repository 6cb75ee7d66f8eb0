package core

import (
	"errors"
	"math"
	"testing"
)

func TestPPMToGrams(t *testing.T) {
	if got := PPMToGrams(0, 50000); got != 0 {
		t.Errorf("PPMToGrams(0, mw) = %v, want 0", got)
	}

	want := (459.0 / 1e6 / 6.022e23) * 106874
	got := PPMToGrams(459, 106874)
	if math.Abs(got-want) > 1e-30 {
		t.Errorf("PPMToGrams(459, 106874) = %g, want %g", got, want)
	}

	for _, ppm := range []float64{1e-6, 0.5, 459, 1e6} {
		for _, mw := range []float64{1, 110.1, 50000, 3.8e6} {
			g := PPMToGrams(ppm, mw)
			if !(g > 0) || math.IsInf(g, 0) {
				t.Errorf("PPMToGrams(%v, %v) = %v, want positive finite", ppm, mw, g)
			}
		}
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		total  float64
	}{
		{"two equal", []float64{1, 1}, 1.0},
		{"default content", []float64{5e-23, 1.2e-22, 3e-24, 7.7e-21}, DefaultTotalProteinContent},
		{"single value", []float64{42}, 0.3},
		{"with zero", []float64{0, 2, 6}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.values, tt.total)
			if err != nil {
				t.Fatalf("Normalize() error = %v", err)
			}
			if len(got) != len(tt.values) {
				t.Fatalf("Normalize() returned %d values, want %d", len(got), len(tt.values))
			}
			sum := 0.0
			for _, v := range got {
				sum += v
			}
			if math.Abs(sum-tt.total) > 1e-6 {
				t.Errorf("sum of normalized values = %v, want %v", sum, tt.total)
			}
		})
	}
}

func TestNormalizeErrors(t *testing.T) {
	if _, err := Normalize(nil, 1); !errors.Is(err, ErrNothingToNormalize) {
		t.Errorf("empty: got %v, want ErrNothingToNormalize", err)
	}
	if _, err := Normalize([]float64{0, 0}, 1); !errors.Is(err, ErrNothingToNormalize) {
		t.Errorf("zero sum: got %v, want ErrNothingToNormalize", err)
	}
	if _, err := Normalize([]float64{1, math.NaN()}, 1); err == nil {
		t.Error("NaN value: expected error")
	}
	if _, err := Normalize([]float64{1, -1}, 1); err == nil {
		t.Error("negative value: expected error")
	}
}
