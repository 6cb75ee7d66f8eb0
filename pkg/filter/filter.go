// Package filter provides missing-weight imputation
package filter

import (
	"fmt"
	"strings"

	"github.com/ChrisMcGann/ppmconc/pkg/core"
	"github.com/montanaflynn/stats"
)

// FillStrategy selects how absent molecular weights are imputed.
type FillStrategy string

const (
	FillNone   FillStrategy = ""
	FillMean   FillStrategy = "mean"
	FillMedian FillStrategy = "median"
)

// ParseFillStrategy parses a --fill-missing value.
func ParseFillStrategy(s string) (FillStrategy, error) {
	switch FillStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case FillNone, "none":
		return FillNone, nil
	case FillMean:
		return FillMean, nil
	case FillMedian:
		return FillMedian, nil
	}
	return FillNone, fmt.Errorf("invalid fill strategy '%s', must be mean, median or none", s)
}

// Config holds filtering configuration
type Config struct {
	Fill FillStrategy // Imputation for absent weights (FillNone = leave absent)
}

// Stats describes what Apply changed.
type Stats struct {
	Resolved  int     // Proteins that had a weight before imputation
	Imputed   int     // Proteins whose absent weight was filled
	FillValue float64 // Statistic used for filling, 0 if none
}

// Apply imputes absent molecular weights. The statistic is computed over the
// weights present before imputation; present weights are never changed.
func (c *Config) Apply(proteins []*core.Protein) (Stats, error) {
	var st Stats
	if c.Fill == FillNone {
		for _, p := range proteins {
			if p.HasWeight() {
				st.Resolved++
			}
		}
		return st, nil
	}

	var weights stats.Float64Data
	for _, p := range proteins {
		if mw, ok := p.Weight(); ok {
			weights = append(weights, mw)
		}
	}
	st.Resolved = len(weights)

	// Nothing to derive a value from; absent stays absent
	if len(weights) == 0 {
		return st, nil
	}

	value, err := c.fillValue(weights)
	if err != nil {
		return st, err
	}
	st.FillValue = value

	source := "imputed:" + string(c.Fill)
	for _, p := range proteins {
		if p.HasWeight() {
			continue
		}
		mw := value
		p.MolecularWeight = &mw
		p.Source = source
		p.State = core.Imputed
		st.Imputed++
	}

	return st, nil
}

func (c *Config) fillValue(weights stats.Float64Data) (float64, error) {
	switch c.Fill {
	case FillMean:
		return weights.Mean()
	case FillMedian:
		return weights.Median()
	}
	return 0, fmt.Errorf("invalid fill strategy '%s'", c.Fill)
}
