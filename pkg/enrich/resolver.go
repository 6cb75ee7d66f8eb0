package enrich

import (
	"context"

	"github.com/ChrisMcGann/ppmconc/pkg/core"
)

// Mapper resolves primary identifiers to cross-reference accessions.
// Unmatched identifiers are absent from the returned map.
type Mapper interface {
	MapIDs(ctx context.Context, ids []string) (map[string]string, error)
}

// WeightFetcher looks up a precomputed molecular weight by accession.
type WeightFetcher interface {
	MolecularWeight(ctx context.Context, accession string) (float64, bool, error)
}

// SequenceFetcher looks up an amino acid sequence by primary identifier.
type SequenceFetcher interface {
	Sequence(ctx context.Context, id string, species int) (string, bool, error)
}

// Result is the outcome of one resolution attempt.
type Result struct {
	Found  bool
	Weight float64

	// Err is set when a lookup succeeded but its data could not be turned
	// into a weight. The chain moves on to the next resolver.
	Err error
}

// Found returns a result carrying a weight.
func Found(weight float64) Result {
	return Result{Found: true, Weight: weight}
}

// NotFound is the result of an attempt that produced no weight.
var NotFound = Result{}

// Resolver is one step of the weight resolution chain. A returned error is
// fatal to the run; a missing weight is reported as NotFound.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, p *core.Protein) (Result, error)
}

// UniProtWeight takes the weight stored on the protein's UniProtKB entry.
type UniProtWeight struct {
	Fetcher WeightFetcher
}

func (r *UniProtWeight) Name() string { return "uniprot" }

func (r *UniProtWeight) Resolve(ctx context.Context, p *core.Protein) (Result, error) {
	if p.Accession == "" {
		return NotFound, nil
	}

	mw, found, err := r.Fetcher.MolecularWeight(ctx, p.Accession)
	if err != nil {
		return NotFound, err
	}
	if !found {
		return NotFound, nil
	}
	return Found(mw), nil
}

// SequenceWeight computes the weight from the protein's sequence.
type SequenceWeight struct {
	Fetcher  SequenceFetcher
	Species  int
	MassType core.MassType
}

func (r *SequenceWeight) Name() string { return "sequence" }

func (r *SequenceWeight) Resolve(ctx context.Context, p *core.Protein) (Result, error) {
	seq, found, err := r.Fetcher.Sequence(ctx, p.ID, r.Species)
	if err != nil {
		return NotFound, err
	}
	if !found {
		return NotFound, nil
	}
	p.State = core.SequenceResolved

	mw, err := core.SequenceMolecularWeight(seq, r.MassType)
	if err != nil {
		return Result{Err: err}, nil
	}
	return Found(mw), nil
}

// DefaultResolvers returns the standard chain: UniProtKB entry weight, then
// sequence-derived weight.
func DefaultResolvers(weights WeightFetcher, sequences SequenceFetcher, species int, massType core.MassType) []Resolver {
	return []Resolver{
		&UniProtWeight{Fetcher: weights},
		&SequenceWeight{Fetcher: sequences, Species: species, MassType: massType},
	}
}

// ResolverNames lists the chain order, for logging.
func ResolverNames(resolvers []Resolver) []string {
	names := make([]string, len(resolvers))
	for i, r := range resolvers {
		names[i] = r.Name()
	}
	return names
}
