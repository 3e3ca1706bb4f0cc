// Package progress renders a spinner over stderr describing the dedup
// coordinator's running totals (spec §6): directories scanned, files
// hashed, links made. The task graph's final size isn't known until the
// run drains, so the bar never switches out of indeterminate mode.
package progress

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// redrawInterval throttles spinner redraws so a fast-draining run doesn't
// spend more time repainting stderr than scanning.
const redrawInterval = 50 * time.Millisecond

// dotSpinner is progressbar's spinner style index; chosen for a narrow
// terminal footprint since the description text it sits next to is the
// part that actually carries information.
const dotSpinner = 14

// Bar reports a dedup run's progress as a single line on stderr. Every
// method is a safe no-op when the bar was constructed disabled
// (--no-progress), so callers never need to branch on it.
type Bar struct {
	bar *progressbar.ProgressBar
}

// New builds a run's progress bar. total<0 selects spinner mode, which is
// what Coordinator.WithProgress always passes since the number of files a
// scan will eventually turn up isn't known in advance; total>=0 gives a
// determinate bar for callers that do know a count ahead of time.
func New(enabled bool, total int64) *Bar {
	if !enabled {
		return &Bar{}
	}

	opts := []progressbar.Option{
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionThrottle(redrawInterval),
		progressbar.OptionClearOnFinish(),
	}

	if total < 0 {
		opts = append(opts,
			progressbar.OptionSpinnerType(dotSpinner),
			progressbar.OptionSetElapsedTime(false),
		)
		return &Bar{bar: progressbar.NewOptions(-1, opts...)}
	}

	opts = append(opts, progressbar.OptionSetWidth(40))
	return &Bar{bar: progressbar.NewOptions64(total, opts...)}
}

// Set moves the bar's count to an absolute value. It does not check the
// bar's mode, so a spinner-mode bar's count is updated too.
func (b *Bar) Set(n uint64) {
	if b.bar != nil {
		_ = b.bar.Set64(int64(n))
	}
}

// Describe replaces the text next to the spinner with s's current rendering.
// Callers pass a fmt.Stringer (rather than a pre-rendered string) because
// the coordinator recomputes scanned/hashed/links counts on every tick.
func (b *Bar) Describe(s fmt.Stringer) {
	if b.bar != nil {
		b.bar.Describe(s.String())
	}
}

// Finish clears the spinner and prints s's final rendering as a completed
// line, so the run's closing totals survive after the bar itself is erased.
func (b *Bar) Finish(s fmt.Stringer) {
	if b.bar != nil {
		_ = b.bar.Finish()
		fmt.Fprintln(os.Stderr, "✔ "+s.String())
	}
}
