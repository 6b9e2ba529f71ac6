package internal

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/muxfetch/muxfetch/internal/utils"
)

const progressBarWidth = 20

// progressReporter serializes snapshots from both streams into the
// line-oriented stdout protocol the parent process scrapes:
//
//	Video: [=====>              ] 37.42% at 1.23 MB/s ETA: 45s
//
// One line per tick per stream; the two streams' percentages stay independent
// (any weighting into an overall figure is the parent's job).
type progressReporter struct {
	mu  sync.Mutex
	out io.Writer
}

func newProgressReporter(out io.Writer) *progressReporter {
	return &progressReporter{out: out}
}

func (r *progressReporter) Report(snapshot utils.ProgressSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "%s: [%s] %.2f%% at %s/s ETA: %s\n",
		snapshot.Kind,
		renderBar(snapshot.Percent, progressBarWidth),
		snapshot.Percent,
		utils.FormatBytes(uint64(snapshot.BytesPerSecond)),
		snapshot.ETA,
	)
}

func renderBar(percent float64, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent / 100 * float64(width))
	bar := strings.Repeat("=", filled)
	if filled < width {
		bar += ">"
		bar += strings.Repeat(" ", width-filled-1)
	}
	return bar
}
