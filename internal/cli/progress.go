package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// progressReporter draws a file progress bar. Extraction workers report
// concurrently, so updates are serialized.
type progressReporter struct {
	mu    sync.Mutex
	out   io.Writer
	quiet bool
	bar   *progressbar.ProgressBar
}

func newProgressReporter(out io.Writer, quiet bool) *progressReporter {
	return &progressReporter{out: out, quiet: quiet}
}

// Update matches indexer.Config.Progress
func (p *progressReporter) Update(done, total int) {
	if p.quiet {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("Extracting files"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files/s"),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionOnCompletion(func() {
				fmt.Fprintln(p.out)
			}),
		)
	}
	_ = p.bar.Set(done)
}

// Finish completes the bar if one was drawn
func (p *progressReporter) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}
