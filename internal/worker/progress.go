package worker

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	barWidth = 24
	// redraws closer together than this are skipped unless the batch is done
	printInterval = 100 * time.Millisecond
)

// Snapshot is a point-in-time view of a Progress.
type Snapshot struct {
	Completed int
	Total     int
	Failed    int
	Elapsed   time.Duration
	// Rate is completed items per second.
	Rate float64
	// ETA is zero until the first item completes.
	ETA time.Duration
}

// Progress tracks a batch of route analyses and redraws a single status line
// on a terminal.
type Progress struct {
	mu        sync.Mutex
	output    io.Writer
	unit      string
	enabled   bool
	start     time.Time
	lastPrint time.Time

	total     int
	completed int
	failed    int
}

// NewProgress creates a tracker counting total items of unit. A disabled
// tracker still counts but never writes.
func NewProgress(total int, unit string, enabled bool) *Progress {
	if unit == "" {
		unit = "items"
	}
	return &Progress{
		output:  os.Stderr,
		unit:    unit,
		enabled: enabled,
		start:   time.Now(),
		total:   total,
	}
}

// Update records the pool's counters and redraws when due.
func (p *Progress) Update(completed, total, failed int) {
	p.mu.Lock()
	p.completed, p.total, p.failed = completed, total, failed
	due := p.enabled && (completed >= total || time.Since(p.lastPrint) >= printInterval)
	if due {
		p.lastPrint = time.Now()
	}
	p.mu.Unlock()

	if due {
		p.Print()
	}
}

// Callback adapts Update to a ProgressFunc.
func (p *Progress) Callback() ProgressFunc {
	return p.Update
}

// Snapshot returns the current counters with derived rate and ETA.
func (p *Progress) Snapshot() Snapshot {
	p.mu.Lock()
	s := Snapshot{
		Completed: p.completed,
		Total:     p.total,
		Failed:    p.failed,
		Elapsed:   time.Since(p.start),
	}
	p.mu.Unlock()

	if secs := s.Elapsed.Seconds(); secs > 0 {
		s.Rate = float64(s.Completed) / secs
	}
	if s.Rate > 0 && s.Completed < s.Total {
		s.ETA = time.Duration(float64(s.Total-s.Completed) / s.Rate * float64(time.Second))
	}
	return s
}

// Print redraws the status line, e.g.
//
//	routes  5/10 [############            ]  50%  1 failed  2.5/s  eta 2s
func (p *Progress) Print() {
	s := p.Snapshot()

	var fraction float64
	if s.Total > 0 {
		fraction = float64(s.Completed) / float64(s.Total)
	}
	filled := min(int(fraction*barWidth), barWidth)

	var b strings.Builder
	fmt.Fprintf(&b, "\r%s %2d/%d [%s%s] %3.0f%%",
		p.unit, s.Completed, s.Total,
		strings.Repeat("#", filled), strings.Repeat(" ", barWidth-filled), fraction*100)
	if s.Failed > 0 {
		fmt.Fprintf(&b, "  %d failed", s.Failed)
	}
	fmt.Fprintf(&b, "  %.1f/s", s.Rate)
	switch {
	case s.Completed >= s.Total:
		fmt.Fprintf(&b, "  done in %s", formatDuration(s.Elapsed))
	case s.ETA > 0:
		fmt.Fprintf(&b, "  eta %s", formatDuration(s.ETA))
	}
	// clear leftovers of a longer previous line
	b.WriteString("\033[K")

	fmt.Fprint(p.output, b.String())
}

// Done draws the final line and ends it.
func (p *Progress) Done() {
	if !p.enabled {
		return
	}
	p.Print()
	fmt.Fprintln(p.output)
}

// Summary describes the finished batch for the log.
func (p *Progress) Summary() string {
	s := p.Snapshot()
	return fmt.Sprintf("Analyzed %d of %d %s, %d failed, in %s (%.1f %s/s)",
		s.Completed-s.Failed, s.Total, p.unit, s.Failed, formatDuration(s.Elapsed), s.Rate, p.unit)
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.0fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
}
