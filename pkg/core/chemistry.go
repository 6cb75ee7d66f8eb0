// Package core provides the protein record model, molecular weight chemistry
// and unit conversion
package core

import (
	"errors"
	"fmt"
	"strings"
)

// Atomic masses (monoisotopic)
const (
	MassH  = 1.0078250321
	MassC  = 12.0000000000
	MassN  = 14.0030740052
	MassO  = 15.9949146221
	MassS  = 31.9720706900
	MassSe = 79.9165218
)

// Atomic weights (IUPAC average)
const (
	AvgMassH  = 1.00794
	AvgMassC  = 12.0107
	AvgMassN  = 14.0067
	AvgMassO  = 15.9994
	AvgMassS  = 32.065
	AvgMassSe = 78.96
)

// MassType selects which atomic mass table a weight is computed with.
type MassType int

const (
	Average MassType = iota
	Monoisotopic
)

func (m MassType) String() string {
	if m == Monoisotopic {
		return "monoisotopic"
	}
	return "average"
}

// ParseMassType parses "average" or "monoisotopic".
func ParseMassType(s string) (MassType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "average", "avg":
		return Average, nil
	case "monoisotopic", "mono":
		return Monoisotopic, nil
	}
	return Average, fmt.Errorf("unknown mass type %q, must be average or monoisotopic", s)
}

// AminoAcidComposition stores elemental composition
type AminoAcidComposition struct {
	C, H, N, O, S, Se int
}

func (c *AminoAcidComposition) add(o AminoAcidComposition) {
	c.C += o.C
	c.H += o.H
	c.N += o.N
	c.O += o.O
	c.S += o.S
	c.Se += o.Se
}

// Mass returns the mass of the composition using the given table.
func (c AminoAcidComposition) Mass(t MassType) float64 {
	if t == Monoisotopic {
		return float64(c.C)*MassC +
			float64(c.H)*MassH +
			float64(c.N)*MassN +
			float64(c.O)*MassO +
			float64(c.S)*MassS +
			float64(c.Se)*MassSe
	}
	return float64(c.C)*AvgMassC +
		float64(c.H)*AvgMassH +
		float64(c.N)*AvgMassN +
		float64(c.O)*AvgMassO +
		float64(c.S)*AvgMassS +
		float64(c.Se)*AvgMassSe
}

// Water is added once per chain for the free termini.
var Water = AminoAcidComposition{H: 2, O: 1}

// AminoAcidResidues maps amino acid one-letter codes to residue (in-chain) composition
var AminoAcidResidues = map[rune]AminoAcidComposition{
	'A': {C: 3, H: 5, N: 1, O: 1},
	'R': {C: 6, H: 12, N: 4, O: 1},
	'N': {C: 4, H: 6, N: 2, O: 2},
	'D': {C: 4, H: 5, N: 1, O: 3},
	'C': {C: 3, H: 5, N: 1, O: 1, S: 1},
	'E': {C: 5, H: 7, N: 1, O: 3},
	'Q': {C: 5, H: 8, N: 2, O: 2},
	'G': {C: 2, H: 3, N: 1, O: 1},
	'H': {C: 6, H: 7, N: 3, O: 1},
	'I': {C: 6, H: 11, N: 1, O: 1},
	'L': {C: 6, H: 11, N: 1, O: 1},
	'K': {C: 6, H: 12, N: 2, O: 1},
	'M': {C: 5, H: 9, N: 1, O: 1, S: 1},
	'F': {C: 9, H: 9, N: 1, O: 1},
	'P': {C: 5, H: 7, N: 1, O: 1},
	'S': {C: 3, H: 5, N: 1, O: 2},
	'T': {C: 4, H: 7, N: 1, O: 2},
	'W': {C: 11, H: 10, N: 2, O: 1},
	'Y': {C: 9, H: 9, N: 1, O: 2},
	'V': {C: 5, H: 9, N: 1, O: 1},
	'U': {C: 3, H: 5, N: 1, O: 1, Se: 1},
	'O': {C: 12, H: 19, N: 3, O: 2},
}

// ErrEmptySequence is returned when a weight is requested for an empty sequence.
var ErrEmptySequence = errors.New("empty amino acid sequence")

// SequenceError reports a residue the weight calculation cannot handle.
type SequenceError struct {
	Residue  rune
	Position int // 1-based
}

func (e *SequenceError) Error() string {
	return fmt.Sprintf("invalid residue %q at position %d", e.Residue, e.Position)
}

// NormalizeSequence upper-cases a sequence and strips whitespace and a terminal stop.
func NormalizeSequence(sequence string) string {
	seq := strings.ToUpper(strings.Join(strings.Fields(sequence), ""))
	return strings.TrimSuffix(seq, "*")
}

// SequenceComposition returns the elemental composition of the full chain, water included.
func SequenceComposition(sequence string) (AminoAcidComposition, error) {
	seq := NormalizeSequence(sequence)
	if seq == "" {
		return AminoAcidComposition{}, ErrEmptySequence
	}

	comp := Water
	pos := 0
	for _, aa := range seq {
		pos++
		aaComp, ok := AminoAcidResidues[aa]
		if !ok {
			return AminoAcidComposition{}, &SequenceError{Residue: aa, Position: pos}
		}
		comp.add(aaComp)
	}

	return comp, nil
}

// SequenceMolecularWeight computes the molecular weight in Dalton of a protein sequence.
func SequenceMolecularWeight(sequence string, t MassType) (float64, error) {
	comp, err := SequenceComposition(sequence)
	if err != nil {
		return 0, err
	}
	return comp.Mass(t), nil
}
