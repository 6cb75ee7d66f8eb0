package convert

import (
	"sort"

	"github.com/montanaflynn/stats"
)

// Summary describes a converted table.
type Summary struct {
	Rows      int
	TotalMass float64

	WeightMean   float64
	WeightMedian float64
	WeightMin    float64
	WeightMax    float64

	Sources []SourceCount // Sorted by count, descending
}

// SourceCount is the number of rows whose weight came from one strategy.
type SourceCount struct {
	Source string
	Count  int
}

// Summarize computes descriptive statistics over rows.
func Summarize(rows []Row) (Summary, error) {
	s := Summary{Rows: len(rows)}
	if len(rows) == 0 {
		return s, nil
	}

	weights := make(stats.Float64Data, len(rows))
	masses := make(stats.Float64Data, len(rows))
	counts := map[string]int{}
	for i, r := range rows {
		weights[i] = r.MolecularWeight
		masses[i] = r.Mass
		source := r.Source
		if source == "" {
			source = "unknown"
		}
		counts[source]++
	}

	var err error
	if s.TotalMass, err = masses.Sum(); err != nil {
		return s, err
	}
	if s.WeightMean, err = weights.Mean(); err != nil {
		return s, err
	}
	if s.WeightMedian, err = weights.Median(); err != nil {
		return s, err
	}
	if s.WeightMin, err = weights.Min(); err != nil {
		return s, err
	}
	if s.WeightMax, err = weights.Max(); err != nil {
		return s, err
	}

	for source, n := range counts {
		s.Sources = append(s.Sources, SourceCount{Source: source, Count: n})
	}
	sort.Slice(s.Sources, func(i, j int) bool {
		if s.Sources[i].Count != s.Sources[j].Count {
			return s.Sources[i].Count > s.Sources[j].Count
		}
		return s.Sources[i].Source < s.Sources[j].Source
	})

	return s, nil
}
