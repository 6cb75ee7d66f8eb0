package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/ChrisMcGann/ppmconc/pkg/convert"
	"github.com/ChrisMcGann/ppmconc/pkg/writer"
	"github.com/ChrisMcGann/ppmconc/pkg/writer/sqlite"
	"github.com/spf13/cobra"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <output>",
	Short: "Summarize a converted table",
	Long: `Print summary statistics about a converted table (CSV, TSV or SQLite) including
protein count, total mass, molecular weight range and, for SQLite, weight sources.`,
	Args: cobra.ExactArgs(1),
	RunE: runSummarize,
}

func runSummarize(cmd *cobra.Command, args []string) error {
	path := args[0]

	rows, err := writer.Read(path)
	if err != nil {
		return err
	}

	s, err := convert.Summarize(rows)
	if err != nil {
		return fmt.Errorf("failed to summarize: %w", err)
	}

	kind := writer.KindFromPath(path)
	fmt.Printf("File: %s (%s)\n", path, kind)
	if kind == writer.SQLite {
		if h, err := sqlite.ReadHeader(path); err == nil {
			fmt.Printf("Created: %s from %s\n", h.CreationDate, h.InputFile)
			fmt.Printf("Species: %d, total protein content: %g g/gDCW, mass type: %s\n", h.Species, h.TotalProteinContent, h.MassType)
			if h.FillMissing != "" {
				fmt.Printf("Fill missing: %s\n", h.FillMissing)
			}
		}
		if ids, err := sqlite.ReadUnresolved(path); err == nil && len(ids) > 0 {
			fmt.Printf("Unresolved: %d proteins\n", len(ids))
		}
	}

	fmt.Printf("Proteins: %d\n", s.Rows)
	if s.Rows == 0 {
		return nil
	}
	fmt.Printf("Total mass: %.6f g/gDCW\n", s.TotalMass)
	fmt.Printf("Molecular weight: mean %.1f, median %.1f, min %.1f, max %.1f Da\n",
		s.WeightMean, s.WeightMedian, s.WeightMin, s.WeightMax)
	printSources(os.Stdout, kind, s.Sources)

	return nil
}

// printSources lists weight sources. Delimited tables do not carry them.
func printSources(w io.Writer, kind writer.Kind, sources []convert.SourceCount) {
	if kind != writer.SQLite {
		fmt.Fprintln(w, "Weight sources: stored in SQLite output only")
		return
	}
	for _, src := range sources {
		fmt.Fprintf(w, "  %-16s %d\n", src.Source, src.Count)
	}
}
