package cmd

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ChrisMcGann/ppmconc/pkg/convert"
	"github.com/ChrisMcGann/ppmconc/pkg/core"
	"github.com/ChrisMcGann/ppmconc/pkg/enrich"
	"github.com/ChrisMcGann/ppmconc/pkg/filter"
	"github.com/ChrisMcGann/ppmconc/pkg/reader"
	"github.com/ChrisMcGann/ppmconc/pkg/remote"
	"github.com/ChrisMcGann/ppmconc/pkg/writer"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Flags for convert command
	species             int
	fillMissing         string
	totalProteinContent float64
	inputFormat         string
	massType            string
	batchSize           int
	batchDelay          time.Duration
	workers             int
	timeout             time.Duration
	retries             int
	ratePerSecond       float64
	uniprotURL          string
	ensemblURL          string
	strict              bool
	showProgress        bool
)

func init() {
	convertCmd.Flags().IntVar(&species, "species", 9606, "NCBI taxon id of the proteome")
	convertCmd.Flags().StringVar(&fillMissing, "fill-missing", "", "Impute missing molecular weights: mean, median (default: leave missing)")
	convertCmd.Flags().Float64Var(&totalProteinContent, "total-protein-content", core.DefaultTotalProteinContent, "Total protein content in g/gDCW")
	convertCmd.Flags().StringVarP(&inputFormat, "from", "f", "auto", "Input format: auto, paxdb, tsv")
	convertCmd.Flags().StringVar(&massType, "mass-type", "average", "Mass type for sequence-derived weights: average, monoisotopic")
	convertCmd.Flags().IntVar(&batchSize, "batch-size", 500, "Identifiers per UniProt mapping job")
	convertCmd.Flags().DurationVar(&batchDelay, "batch-delay", time.Second, "Pause between UniProt mapping jobs")
	convertCmd.Flags().IntVar(&workers, "workers", 1, "Concurrent weight lookups")
	convertCmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Timeout per remote request")
	convertCmd.Flags().IntVar(&retries, "retries", 3, "Retries per remote request after transient failures")
	convertCmd.Flags().Float64Var(&ratePerSecond, "rate", 10, "Maximum requests per second per remote service (0 = unlimited)")
	convertCmd.Flags().StringVar(&uniprotURL, "uniprot-url", remote.DefaultUniProtURL, "UniProt REST base URL")
	convertCmd.Flags().StringVar(&ensemblURL, "ensembl-url", remote.DefaultEnsemblURL, "Ensembl REST base URL")
	convertCmd.Flags().BoolVar(&strict, "strict", false, "Fail when a protein has no molecular weight instead of excluding it")
	convertCmd.Flags().BoolVar(&showProgress, "progress", false, "Show a progress bar while resolving weights")
}

var convertCmd = &cobra.Command{
	Use:   "convert <input> <output>",
	Short: "Convert a ppm abundance table to g/gDCW",
	Long: `Convert a proteome abundance table in ppm to mass concentrations in g/gDCW.

The input is either a PAXdb file (comment header, "<species>.<ENSPID><TAB><abundance>"
rows) or a delimited table with ENSPID and abundance columns; gzip input is accepted.
The output type follows the extension: .csv (default), .tsv/.txt or .db/.sqlite.

Examples:
  # Convert a human PAXdb dataset with default settings
  ppmconc convert 9606-WHOLE_ORGANISM-integrated.txt out.csv

  # Fill missing weights with the median and write SQLite
  ppmconc convert abundances.tsv out.db --fill-missing median

  # Mouse proteome, custom total protein content, progress bar
  ppmconc convert 10090-paxdb.txt.gz out.tsv --species 10090 --total-protein-content 0.55 --progress`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func runConvert(cmd *cobra.Command, args []string) error {
	inputFile, outputFile := args[0], args[1]

	format, err := reader.ParseFormat(inputFormat)
	if err != nil {
		return err
	}
	fill, err := filter.ParseFillStrategy(fillMissing)
	if err != nil {
		return err
	}
	mt, err := core.ParseMassType(massType)
	if err != nil {
		return err
	}
	if totalProteinContent <= 0 {
		return fmt.Errorf("total protein content must be positive, got %v", totalProteinContent)
	}

	// Validate input file exists
	if _, err := os.Stat(inputFile); os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", inputFile)
	}

	in, err := reader.Open(inputFile, reader.Options{Format: format, Species: species})
	if err != nil {
		return err
	}
	measurements, err := in.ReadAll()
	in.Close()
	if err != nil {
		return err
	}

	ids := convert.IDs(measurements)
	unique := core.UniqueIDs(ids)

	fmt.Printf("Converting %s to %s...\n", inputFile, outputFile)
	fmt.Printf("Format: %s\n", in.Format)
	fmt.Printf("Species: %d\n", species)
	fmt.Printf("Proteins: %d (%d rows)\n", len(unique), len(measurements))
	if fill != filter.FillNone {
		fmt.Printf("Fill missing: %s\n", fill)
	}

	cfg := remote.DefaultConfig()
	cfg.Timeout = timeout
	cfg.MaxRetries = retries
	cfg.RatePerSecond = ratePerSecond

	client := &http.Client{}
	uniprot := remote.NewUniProt(uniprotURL, client, cfg)
	uniprot.BatchSize = batchSize
	uniprot.BatchDelay = batchDelay
	ensembl := remote.NewEnsembl(ensemblURL, client, cfg)

	resolvers := enrich.DefaultResolvers(uniprot, ensembl, species, mt)
	bar := newProgress(showProgress, len(unique))
	pipeline := enrich.New(uniprot, enrich.Options{
		Resolvers:  resolvers,
		Workers:    workers,
		Fill:       fill,
		OnResolved: bar.Increment,
	})

	proteins, stats, err := pipeline.Run(cmd.Context(), ids)
	bar.Finish()
	if err != nil {
		return fmt.Errorf("failed to resolve molecular weights: %w", err)
	}

	for _, dup := range convert.AttachAbundances(proteins, measurements) {
		logrus.Warnf("line %d: duplicate identifier %s, keeping first occurrence", dup.Line, dup.ID)
	}

	res, err := convert.Convert(proteins, convert.Options{
		TotalProteinContent: totalProteinContent,
		Strict:              strict,
	})
	if err != nil {
		return fmt.Errorf("failed to convert: %w", err)
	}
	for _, id := range res.Excluded {
		logrus.Warnf("%s: no molecular weight, excluded from output", id)
	}

	info := writer.RunInfo{
		InputFile:           filepath.Base(inputFile),
		Species:             species,
		TotalProteinContent: totalProteinContent,
		FillMissing:         string(fill),
		MassType:            mt.String(),
	}
	if err := writer.Write(outputFile, res, info); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	fmt.Printf("\nConversion complete!\n")
	fmt.Printf("Processed: %d proteins\n", stats.Unique)
	fmt.Printf("Mapped to UniProtKB: %d\n", stats.Mapped)
	for _, r := range enrich.ResolverNames(resolvers) {
		fmt.Printf("Weights from %s: %d\n", r, stats.BySource[r])
	}
	if stats.Imputed > 0 {
		fmt.Printf("Imputed: %d (%s %.2f Da)\n", stats.Imputed, fill, stats.FillValue)
	}
	if stats.SequenceErrors > 0 {
		fmt.Printf("Invalid sequences: %d\n", stats.SequenceErrors)
	}
	if len(res.Excluded) > 0 {
		fmt.Printf("Excluded: %d proteins (no molecular weight)\n", len(res.Excluded))
	}
	fmt.Printf("Total mass: %.6f g/gDCW\n", res.TotalMass())
	fmt.Printf("Output: %s (%s)\n", outputFile, writer.KindFromPath(outputFile))

	return nil
}
