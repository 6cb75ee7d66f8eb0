package cmd

import (
	"os"

	"github.com/ChrisMcGann/ppmconc/pkg/core"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// progress shows weight resolution progress on stderr. The zero value is a
// no-op.
type progress struct {
	p   *mpb.Progress
	bar *mpb.Bar
}

func newProgress(enabled bool, total int) *progress {
	if !enabled || total == 0 {
		return &progress{}
	}

	p := mpb.New(mpb.WithOutput(os.Stderr), mpb.WithWidth(50))
	bar := p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name("Resolving weights "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WC{W: 5}),
			decor.Name(" "),
			decor.AverageETA(decor.ET_STYLE_GO),
		),
	)
	return &progress{p: p, bar: bar}
}

// Increment is safe for concurrent use.
func (pr *progress) Increment(*core.Protein) {
	if pr.bar != nil {
		pr.bar.Increment()
	}
}

// Finish waits for the bar to render. An unfinished bar is aborted first,
// otherwise Wait would block.
func (pr *progress) Finish() {
	if pr.p == nil {
		return
	}
	if !pr.bar.Completed() {
		pr.bar.Abort(false)
	}
	pr.p.Wait()
}
