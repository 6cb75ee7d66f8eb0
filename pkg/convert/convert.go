// Package convert turns weight-annotated proteins into mass fractions per gram
// of dry cell weight.
//
// Conversion is two-phase: a molar-fraction mass proxy is computed for every
// convertible protein, then the whole collection is normalized so the masses
// sum to the total protein content.
package convert

import (
	"errors"
	"fmt"
	"math"

	"github.com/ChrisMcGann/ppmconc/pkg/core"
)

var (
	// ErrUnresolvedWeight is returned in strict mode when a protein has no
	// molecular weight.
	ErrUnresolvedWeight = errors.New("unresolved molecular weight")

	// ErrEmptyCollection is returned when no protein can be converted.
	ErrEmptyCollection = errors.New("no convertible proteins")
)

// Options controls conversion.
type Options struct {
	TotalProteinContent float64 // g per gDCW
	Strict              bool    // Fail instead of excluding unconvertible proteins
}

// DefaultOptions returns the default conversion options.
func DefaultOptions() Options {
	return Options{TotalProteinContent: core.DefaultTotalProteinContent}
}

// Row is one line of the output table.
type Row struct {
	ENSPID          string  `csv:"ENSPID" db:"ENSPID"`
	UniProtID       string  `csv:"UniProtID" db:"UniProtID"`
	MolecularWeight float64 `csv:"MolecularWeight" db:"MolecularWeight"`
	Abundance       float64 `csv:"Abundance" db:"Abundance"`
	Mass            float64 `csv:"Mass_g_per_gDCW" db:"Mass"`

	// Source is stored in SQLite output only; rows read back from CSV or
	// TSV leave it empty.
	Source string `csv:"-" db:"WeightSource"`
}

// Result is a converted collection.
type Result struct {
	Rows     []Row
	Excluded []string // Identifiers left out, in input order
}

// TotalMass returns the sum of the Mass column.
func (r *Result) TotalMass() float64 {
	total := 0.0
	for _, row := range r.Rows {
		total += row.Mass
	}
	return total
}

// Convert converts proteins in order. Proteins without a weight or a valid
// abundance are excluded, unless opts.Strict is set.
func Convert(proteins []*core.Protein, opts Options) (*Result, error) {
	total := opts.TotalProteinContent
	if math.IsNaN(total) || math.IsInf(total, 0) || total <= 0 {
		return nil, fmt.Errorf("total protein content must be positive, got %v", total)
	}

	res := &Result{}
	var proxies []float64

	for _, p := range proteins {
		if err := p.Validate(); err != nil {
			if opts.Strict {
				if !p.HasWeight() {
					return nil, fmt.Errorf("%w: %s", ErrUnresolvedWeight, p.Name())
				}
				return nil, err
			}
			res.Excluded = append(res.Excluded, p.ID)
			continue
		}

		mw, abundance := *p.MolecularWeight, *p.Abundance
		proxies = append(proxies, core.PPMToGrams(abundance, mw))
		res.Rows = append(res.Rows, Row{
			ENSPID:          p.ID,
			UniProtID:       p.Accession,
			MolecularWeight: mw,
			Abundance:       abundance,
			Source:          p.Source,
		})
	}

	if len(res.Rows) == 0 {
		return nil, ErrEmptyCollection
	}

	masses, err := core.Normalize(proxies, total)
	if err != nil {
		if errors.Is(err, core.ErrNothingToNormalize) {
			return nil, fmt.Errorf("%w: %v", ErrEmptyCollection, err)
		}
		return nil, fmt.Errorf("failed to normalize masses: %w", err)
	}
	for i := range res.Rows {
		res.Rows[i].Mass = masses[i]
	}

	return res, nil
}

// AttachAbundances sets each protein's abundance from the measurements. The
// first measurement of an identifier wins; later ones are returned as
// duplicates.
func AttachAbundances(proteins []*core.Protein, measurements []*core.Measurement) (duplicates []*core.Measurement) {
	byID := make(map[string]*core.Protein, len(proteins))
	for _, p := range proteins {
		byID[p.ID] = p
	}

	for _, m := range measurements {
		p, ok := byID[m.ID]
		if !ok {
			continue
		}
		if p.Abundance != nil {
			duplicates = append(duplicates, m)
			continue
		}
		a := m.Abundance
		p.Abundance = &a
	}
	return duplicates
}

// IDs returns the primary identifiers of measurements in input order.
func IDs(measurements []*core.Measurement) []string {
	ids := make([]string, len(measurements))
	for i, m := range measurements {
		ids[i] = m.ID
	}
	return ids
}
