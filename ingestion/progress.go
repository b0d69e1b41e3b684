package ingestion

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ProgressTracker reports how many records a long-running job has handled.
// It is safe for concurrent use by pool workers.
type ProgressTracker struct {
	mu           sync.Mutex
	writer       io.Writer
	label        string
	total        int
	done         int
	interval     int
	lastReported int
	startTime    time.Time
	started      bool
}

// NewProgressTracker creates a tracker that writes to w every interval
// records. A nil writer discards output.
func NewProgressTracker(w io.Writer, label string, total, interval int) *ProgressTracker {
	if w == nil {
		w = io.Discard
	}
	if interval < 1 {
		interval = 1
	}
	return &ProgressTracker{writer: w, label: label, total: total, interval: interval}
}

// Start resets the counters and the clock.
func (p *ProgressTracker) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.startTime = time.Now()
	p.started = true
	p.done = 0
	p.lastReported = 0
}

// Add records n more completed items, capped at the total.
func (p *ProgressTracker) Add(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return
	}
	p.done = min(p.done+n, p.total)
	if p.done-p.lastReported >= p.interval {
		p.report()
		p.lastReported = p.done
	}
}

// Done returns the number of completed items.
func (p *ProgressTracker) Done() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Finish prints the final line and returns the elapsed time.
func (p *ProgressTracker) Finish() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return 0
	}
	p.report()
	fmt.Fprintln(p.writer)
	p.started = false
	return time.Since(p.startTime)
}

// report must be called with the lock held.
func (p *ProgressTracker) report() {
	elapsed := time.Since(p.startTime).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(p.done) / elapsed
	}
	percentage := 100.0
	if p.total > 0 {
		percentage = float64(p.done) / float64(p.total) * 100.0
	}
	fmt.Fprintf(p.writer, "\r%s: %d/%d (%.1f%%) - %.1f equipment/s",
		p.label, p.done, p.total, percentage, rate)
}
