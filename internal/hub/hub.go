// Package hub fans classified entries out to multiple subscribers.
package hub

import (
	"context"
	"log"
	"sync"

	"github.com/alexsavio/cor-cli/internal/config"
	"github.com/alexsavio/cor-cli/internal/model"
	"github.com/alexsavio/cor-cli/internal/parser"
)

const subscriberBuffer = 1024

// Hub reads raw lines, classifies them, and broadcasts the resulting
// entries to every subscriber. Slow subscribers lose entries rather than
// stalling the stream.
type Hub struct {
	cfg         *config.Config
	input       <-chan model.RawLine
	mu          sync.RWMutex
	subscribers []chan model.Entry
	dropped     int64
}

// New creates a Hub reading from the input channel. The config drives
// classification the same way it drives terminal rendering.
func New(input <-chan model.RawLine, cfg *config.Config) *Hub {
	return &Hub{
		cfg:   cfg,
		input: input,
	}
}

// Subscribe returns a buffered channel receiving every classified entry.
// Each subscriber gets its own copy of the stream.
func (h *Hub) Subscribe() <-chan model.Entry {
	ch := make(chan model.Entry, subscriberBuffer)
	h.mu.Lock()
	h.subscribers = append(h.subscribers, ch)
	h.mu.Unlock()
	return ch
}

// Dropped returns the total entries dropped across all slow subscribers.
func (h *Hub) Dropped() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Start reads, classifies, and broadcasts until the context is cancelled or
// the input channel closes. Subscriber channels are closed on return.
func (h *Hub) Start(ctx context.Context) {
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-h.input:
			if !ok {
				return
			}
			h.broadcast(h.classify(raw))
		}
	}
}

// classify turns a raw line into its wire-form entry. Unstructured lines
// carry only the raw text and source.
func (h *Hub) classify(raw model.RawLine) model.Entry {
	entry := model.Entry{Source: raw.Source, Raw: raw.Text}

	line := parser.Parse(raw.Text, h.cfg)
	if line.Record == nil {
		return entry
	}

	rec := line.Record
	if rec.Timestamp != nil {
		entry.Timestamp = rec.Timestamp.Format(h.cfg.TimestampLayout)
	}
	entry.Level = rec.Level.Label()
	if rec.Message != nil {
		entry.Message = *rec.Message
	}
	if len(rec.Extra) > 0 {
		entry.Fields = make(map[string]string, len(rec.Extra))
		for _, f := range rec.Extra {
			entry.Fields[f.Key] = parser.ValueString(f.Value)
		}
	}
	return entry
}

func (h *Hub) broadcast(entry model.Entry) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers {
		select {
		case ch <- entry:
		default:
			h.dropped++
			log.Printf("hub: dropped entry for slow subscriber (total: %d)", h.dropped)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = nil
}
