package core

import (
	"fmt"
	"math"
	"strings"
)

// State tracks how far molecular weight resolution got for a protein.
type State int

const (
	Unresolved State = iota
	AccessionResolved
	SequenceResolved
	WeightResolved
	Absent
	Imputed
)

var stateNames = map[State]string{
	Unresolved:        "unresolved",
	AccessionResolved: "accession-resolved",
	SequenceResolved:  "sequence-resolved",
	WeightResolved:    "weight-resolved",
	Absent:            "absent",
	Imputed:           "imputed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further resolution will happen.
func (s State) Terminal() bool {
	return s == WeightResolved || s == Absent || s == Imputed
}

// Protein is one measured protein, enriched in place as its weight is resolved.
type Protein struct {
	ID              string   // Primary identifier (ENSPID)
	Accession       string   // UniProtKB accession, "" if unmapped
	MolecularWeight *float64 // Dalton, nil if absent
	Abundance       *float64 // ppm, nil if not measured

	State  State
	Source string // Strategy that produced MolecularWeight
}

// NewProtein creates an unresolved protein record.
func NewProtein(id string) *Protein {
	return &Protein{ID: id, State: Unresolved}
}

// HasWeight reports whether a molecular weight is present.
func (p *Protein) HasWeight() bool {
	return p.MolecularWeight != nil
}

// SetWeight records a resolved weight and the strategy that produced it.
func (p *Protein) SetWeight(mw float64, source string) {
	p.MolecularWeight = &mw
	p.Source = source
	p.State = WeightResolved
}

// Weight returns the molecular weight, or 0 and false if absent.
func (p *Protein) Weight() (float64, bool) {
	if p.MolecularWeight == nil {
		return 0, false
	}
	return *p.MolecularWeight, true
}

// ValidationError represents an error found during protein validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Validate checks that a protein is fit for conversion.
func (p *Protein) Validate() error {
	var errs []string

	if p.ID == "" {
		errs = append(errs, "identifier is required")
	}
	if p.MolecularWeight == nil {
		errs = append(errs, "molecular weight is absent")
	} else if mw := *p.MolecularWeight; math.IsNaN(mw) || math.IsInf(mw, 0) || mw <= 0 {
		errs = append(errs, fmt.Sprintf("molecular weight must be positive, got %v", mw))
	}
	if p.Abundance == nil {
		errs = append(errs, "abundance is absent")
	} else if a := *p.Abundance; math.IsNaN(a) || math.IsInf(a, 0) || a < 0 {
		errs = append(errs, fmt.Sprintf("abundance must be non-negative, got %v", a))
	}

	if len(errs) > 0 {
		return &ValidationError{
			Field:   p.Name(),
			Message: strings.Join(errs, "; "),
		}
	}

	return nil
}

// Name returns the protein name in format "ENSPID/Accession"
func (p *Protein) Name() string {
	if p.Accession == "" {
		return p.ID
	}
	return fmt.Sprintf("%s/%s", p.ID, p.Accession)
}

// UniqueIDs de-duplicates identifiers keeping the order of first appearance.
func UniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Measurement is one parsed input row.
type Measurement struct {
	ExternalID string  // Identifier as written in the source file
	ID         string  // Primary identifier with any species prefix removed
	Abundance  float64 // ppm
	Line       int     // 1-based source line, 0 if unknown
}
