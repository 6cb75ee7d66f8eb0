// Package cmd provides CLI command implementations
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	logLevel string
	noColor  bool
)

var rootCmd = &cobra.Command{
	Use:   "ppmconc",
	Short: "ppmconc - Proteome ppm to g/gDCW conversion tool",
	Long: `ppmconc converts proteome abundance tables (ppm, PAXdb style) into absolute
mass concentrations per gram of dry cell weight.

Each Ensembl protein identifier is mapped to a UniProtKB accession, its molecular
weight is taken from UniProtKB or computed from the Ensembl sequence, and the
resulting mass fractions are normalized to the total protein content.`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging()
	},
}

// Execute runs the root command. An interrupt cancels the running command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(summarizeCmd)

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

func setupLogging() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level '%s': %w", logLevel, err)
	}

	if noColor {
		color.NoColor = true
	}

	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		DisableColors:    color.NoColor,
		FullTimestamp:    true,
		DisableTimestamp: level < logrus.DebugLevel,
	})

	return nil
}
