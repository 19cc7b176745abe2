// Package stats computes time-windowed metrics over the entry stream for
// the dashboard and health endpoints.
package stats

import (
	"context"
	"sync"
	"time"

	"github.com/alexsavio/cor-cli/internal/model"
)

// epsWindow is the sliding window used for the lines-per-second rate.
const epsWindow = 5 * time.Second

// Snapshot is a point-in-time view of the collected metrics.
type Snapshot struct {
	Uptime      string           `json:"uptime"`
	TotalLines  int64            `json:"total_lines"`
	LPS         float64          `json:"lps"`
	LevelCounts map[string]int64 `json:"level_counts"`
	Dropped     int64            `json:"dropped"`
	Sources     int              `json:"sources"`
}

// Collector subscribes to the hub and maintains running metrics.
type Collector struct {
	mu          sync.RWMutex
	started     time.Time
	total       int64
	levelCounts map[string]int64
	window      []time.Time
	dropped     func() int64
	sources     func() int
	entries     <-chan model.Entry
}

// New creates a Collector reading from a hub subscriber channel. droppedFn
// and sourcesFn provide live values from the hub and the input side.
func New(entries <-chan model.Entry, droppedFn func() int64, sourcesFn func() int) *Collector {
	return &Collector{
		started:     time.Now(),
		levelCounts: make(map[string]int64),
		dropped:     droppedFn,
		sources:     sourcesFn,
		entries:     entries,
	}
}

// Snapshot returns the current metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	counts := make(map[string]int64, len(c.levelCounts))
	for k, v := range c.levelCounts {
		counts[k] = v
	}

	cutoff := time.Now().Add(-epsWindow)
	var recent int
	for _, t := range c.window {
		if t.After(cutoff) {
			recent++
		}
	}

	return Snapshot{
		Uptime:      time.Since(c.started).Truncate(time.Second).String(),
		TotalLines:  c.total,
		LPS:         float64(recent) / epsWindow.Seconds(),
		LevelCounts: counts,
		Dropped:     c.dropped(),
		Sources:     c.sources(),
	}
}

// Start consumes entries until the context is cancelled or the channel
// closes, pruning the rate window as it goes.
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-c.entries:
			if !ok {
				return
			}
			c.record(entry)
		case <-ticker.C:
			c.prune()
		}
	}
}

func (c *Collector) record(entry model.Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	label := entry.Level
	if label == "" {
		label = "unknown"
	}
	c.levelCounts[label]++
	c.window = append(c.window, time.Now())
}

func (c *Collector) prune() {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-epsWindow)
	i := 0
	for _, t := range c.window {
		if t.After(cutoff) {
			c.window[i] = t
			i++
		}
	}
	c.window = c.window[:i]
}
