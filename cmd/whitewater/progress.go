package main

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"

	"whitewater/internal/encoder"
)

// progressReporter renders encoder progress as a terminal bar. The bar is
// created on the first update, once the frame estimate is known.
type progressReporter struct {
	w     io.Writer
	label string
	bar   *progressbar.ProgressBar
}

func newProgressReporter(w io.Writer, input string) *progressReporter {
	return &progressReporter{w: w, label: filepath.Base(input)}
}

func (p *progressReporter) update(pr encoder.Progress) {
	done := pr.Frame + 1
	if p.bar == nil {
		max := pr.Estimated
		if max <= 0 {
			max = -1
		}
		p.bar = progressbar.NewOptions(max,
			progressbar.OptionSetWriter(p.w),
			progressbar.OptionSetDescription(p.label),
			progressbar.OptionSetItsString("frames"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
	}
	if max := p.bar.GetMax(); max > 0 && done > max {
		p.bar.ChangeMax(done)
	}
	p.bar.Describe(fmt.Sprintf("%s (%d tiles)", p.label, pr.TotalTiles))
	_ = p.bar.Set(done)
}

func (p *progressReporter) finish() {
	if p == nil || p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	_ = p.bar.Clear()
}
