// Package enrich resolves molecular weights for a set of protein identifiers.
//
// Each unique identifier is first mapped to a UniProtKB accession (once, for
// the whole set). Its weight is then resolved by walking an ordered chain of
// resolvers until one finds a weight; proteins that exhaust the chain keep an
// absent weight unless an imputation strategy fills it afterwards.
package enrich

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/ChrisMcGann/ppmconc/pkg/core"
	"github.com/ChrisMcGann/ppmconc/pkg/filter"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Options configures a Pipeline.
type Options struct {
	Resolvers []Resolver
	Workers   int // Concurrent resolutions, minimum 1
	Fill      filter.FillStrategy

	// OnResolved is called once per protein after its chain finished. It may
	// be called from several goroutines when Workers > 1.
	OnResolved func(p *core.Protein)
}

// Stats summarizes a run.
type Stats struct {
	Unique         int
	Mapped         int
	BySource       map[string]int
	Absent         int
	Imputed        int
	FillValue      float64
	SequenceErrors int
}

// Pipeline orchestrates accession mapping, weight resolution and imputation.
type Pipeline struct {
	mapper     Mapper
	resolvers  []Resolver
	workers    int
	filter     filter.Config
	onResolved func(p *core.Protein)
	log        *logrus.Entry

	sequenceErrors atomic.Int64
}

// New creates a pipeline. A nil mapper skips accession mapping.
func New(mapper Mapper, opts Options) *Pipeline {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	return &Pipeline{
		mapper:     mapper,
		resolvers:  opts.Resolvers,
		workers:    workers,
		filter:     filter.Config{Fill: opts.Fill},
		onResolved: opts.OnResolved,
		log:        logrus.WithField("component", "enrich"),
	}
}

// Run resolves weights for ids. Duplicates are processed once; the result
// follows the order of first appearance. Any resolver error aborts the run.
func (p *Pipeline) Run(ctx context.Context, ids []string) ([]*core.Protein, Stats, error) {
	p.sequenceErrors.Store(0)

	unique := core.UniqueIDs(ids)
	stats := Stats{Unique: len(unique), BySource: make(map[string]int)}

	mapping := map[string]string{}
	if p.mapper != nil && len(unique) > 0 {
		p.log.Infof("Mapping %d identifiers to accessions", len(unique))
		m, err := p.mapper.MapIDs(ctx, unique)
		if err != nil {
			return nil, stats, fmt.Errorf("failed to map identifiers: %w", err)
		}
		mapping = m
	}

	proteins := make([]*core.Protein, len(unique))
	for i, id := range unique {
		pr := core.NewProtein(id)
		if acc, ok := mapping[id]; ok && acc != "" {
			pr.Accession = acc
			pr.State = core.AccessionResolved
			stats.Mapped++
		}
		proteins[i] = pr
	}
	p.log.Infof("Mapped %d of %d identifiers; resolving weights via %s",
		stats.Mapped, stats.Unique, strings.Join(ResolverNames(p.resolvers), " -> "))

	// Each goroutine only touches its own protein
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, pr := range proteins {
		if gctx.Err() != nil {
			break
		}
		pr := pr
		g.Go(func() error {
			if err := p.resolve(gctx, pr); err != nil {
				return fmt.Errorf("failed to resolve %s: %w", pr.ID, err)
			}
			if p.onResolved != nil {
				p.onResolved(pr)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}
	if err := ctx.Err(); err != nil {
		return nil, stats, err
	}

	for _, pr := range proteins {
		if pr.HasWeight() {
			stats.BySource[pr.Source]++
		}
	}

	filled, err := p.filter.Apply(proteins)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to impute missing weights: %w", err)
	}
	stats.Imputed = filled.Imputed
	stats.FillValue = filled.FillValue
	if filled.Imputed > 0 {
		p.log.Infof("Imputed %d missing weights with %s %.2f Da", filled.Imputed, p.filter.Fill, filled.FillValue)
	}

	for _, pr := range proteins {
		if !pr.HasWeight() {
			stats.Absent++
		}
	}
	stats.SequenceErrors = int(p.sequenceErrors.Load())

	return proteins, stats, nil
}

// resolve walks the resolver chain for one protein.
func (p *Pipeline) resolve(ctx context.Context, pr *core.Protein) error {
	for _, r := range p.resolvers {
		res, err := r.Resolve(ctx, pr)
		if err != nil {
			return fmt.Errorf("%s: %w", r.Name(), err)
		}
		if res.Err != nil {
			p.sequenceErrors.Add(1)
			p.log.Warnf("%s: %s could not compute a weight: %v", pr.Name(), r.Name(), res.Err)
		}
		if res.Found {
			pr.SetWeight(res.Weight, r.Name())
			return nil
		}
	}

	pr.State = core.Absent
	p.log.Debugf("%s: no molecular weight found", pr.Name())
	return nil
}
