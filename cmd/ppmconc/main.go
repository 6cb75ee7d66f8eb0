// ppmconc - proteome abundance to mass concentration conversion tool
package main

import (
	"fmt"
	"os"

	"github.com/ChrisMcGann/ppmconc/cmd/ppmconc/cmd"
	"github.com/fatih/color"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("Error:"), err)
		os.Exit(cmd.ExitCode(err))
	}
}
