package cmd

import (
	"fmt"
	"math"

	"github.com/ChrisMcGann/ppmconc/pkg/core"
	"github.com/ChrisMcGann/ppmconc/pkg/reader"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func init() {
	validateCmd.Flags().IntVar(&species, "species", 9606, "NCBI taxon id of the proteome")
	validateCmd.Flags().StringVarP(&inputFormat, "from", "f", "auto", "Input format: auto, paxdb, tsv")
}

var validateCmd = &cobra.Command{
	Use:   "validate <input>",
	Short: "Validate input file format and contents",
	Long:  `Validate that an input file is a supported abundance table and report its row counts.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

// ValidationReport summarizes an input table.
type ValidationReport struct {
	Format     reader.Format
	Compressed bool
	Rows       int
	Unique     int
	Duplicates int
	Negative   int // Rows with a negative or non-finite abundance
}

// OK reports whether the table can be converted as is.
func (r *ValidationReport) OK() bool {
	return r.Rows > 0 && r.Negative == 0
}

func validateFile(path string, opts reader.Options) (*ValidationReport, error) {
	in, err := reader.Open(path, opts)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	rows, err := in.ReadAll()
	if err != nil {
		return nil, err
	}

	report := &ValidationReport{
		Format:     in.Format,
		Compressed: in.Compressed,
		Rows:       len(rows),
	}

	ids := make([]string, len(rows))
	for i, m := range rows {
		ids[i] = m.ID
		if math.IsNaN(m.Abundance) || math.IsInf(m.Abundance, 0) || m.Abundance < 0 {
			report.Negative++
		}
	}
	report.Unique = len(core.UniqueIDs(ids))
	report.Duplicates = report.Rows - report.Unique

	return report, nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	format, err := reader.ParseFormat(inputFormat)
	if err != nil {
		return err
	}

	report, err := validateFile(args[0], reader.Options{Format: format, Species: species})
	if err != nil {
		return err
	}

	fmt.Printf("File: %s\n", args[0])
	fmt.Printf("Format: %s", report.Format)
	if report.Compressed {
		fmt.Printf(" (gzip)")
	}
	fmt.Println()
	fmt.Printf("Rows: %d\n", report.Rows)
	fmt.Printf("Unique identifiers: %d\n", report.Unique)
	if report.Duplicates > 0 {
		fmt.Printf("Duplicate rows: %d (first occurrence is used)\n", report.Duplicates)
	}
	if report.Negative > 0 {
		fmt.Printf("Invalid abundances: %d\n", report.Negative)
	}

	if !report.OK() {
		color.Red("INVALID")
		return &reader.FormatError{Shape: report.Format.String(), Reason: "table has no usable rows or invalid abundances"}
	}
	color.Green("OK")
	return nil
}
