package main

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	domain "github.com/bryanwahyu/phiguard/internal/domain/scans"
)

// progressSink renders run progress: a bar on a terminal, one line per file
// otherwise.
type progressSink struct {
	mu          sync.Mutex
	w           io.Writer
	interactive bool
	bar         *progressbar.ProgressBar
}

func newProgressSink(w io.Writer) *progressSink {
	return &progressSink{w: w, interactive: isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (p *progressSink) Update(pr domain.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.interactive {
		fmt.Fprintf(p.w, "[%d/%d] %3d%% %s\n", pr.Current, pr.Total, pr.Percentage, pr.FileName)
		return
	}
	if p.bar == nil {
		p.bar = progressbar.NewOptions(pr.Total,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowBytes(false),
			progressbar.OptionSetWidth(24),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "█",
				SaucerHead:    "█",
				SaucerPadding: "░",
				BarStart:      "[",
				BarEnd:        "]",
			}),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	p.bar.Describe(pr.FileName)
	_ = p.bar.Set(pr.Current - 1)
}

func (p *progressSink) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}
