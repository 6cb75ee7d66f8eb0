package cmd

import (
	"errors"

	"github.com/ChrisMcGann/ppmconc/pkg/convert"
	"github.com/ChrisMcGann/ppmconc/pkg/core"
	"github.com/ChrisMcGann/ppmconc/pkg/reader"
	"github.com/ChrisMcGann/ppmconc/pkg/remote"
)

// Process exit codes
const (
	ExitFailure     = 1
	ExitFormat      = 2
	ExitTransport   = 3
	ExitComputation = 4
)

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	var (
		fe *reader.FormatError
		te *remote.TransportError
		se *core.SequenceError
		ve *core.ValidationError
	)

	switch {
	case err == nil:
		return 0
	case errors.As(err, &fe):
		return ExitFormat
	case errors.As(err, &te):
		return ExitTransport
	case errors.Is(err, convert.ErrUnresolvedWeight),
		errors.Is(err, convert.ErrEmptyCollection),
		errors.Is(err, core.ErrEmptySequence),
		errors.As(err, &se),
		errors.As(err, &ve):
		return ExitComputation
	}
	return ExitFailure
}
