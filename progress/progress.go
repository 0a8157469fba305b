// Package progress turns image pull progress messages into per-layer indicators.
package progress

import (
	"sync"
)

// Terminal layer statuses reported by the engine. Once a layer reaches one of them its
// indicator is finalized.
const (
	StatusDownloadComplete = "Download complete"
	StatusPullComplete     = "Pull complete"
	StatusAlreadyExists    = "Already exists"
)

// Event is one progress message for a single layer.
type Event struct {
	LayerID string
	Status  string
	Current int64
	Total   int64
}

// IsTerminal reports whether status finalizes a layer.
func IsTerminal(status string) bool {
	switch status {
	case StatusDownloadComplete, StatusPullComplete, StatusAlreadyExists:
		return true
	default:
		return false
	}
}

// Indicator renders the progress of one layer.
type Indicator interface {
	Update(status string, current, total int64)
	Finish(status string)
}

// Display creates indicators and releases them all on Close.
type Display interface {
	Indicator(layerID string) Indicator
	Close()
}

// Reporter routes events to one indicator per layer.
type Reporter struct {
	mu         sync.Mutex
	display    Display
	indicators map[string]Indicator
	finished   map[string]bool
}

// NewReporter creates a reporter drawing on display.
func NewReporter(display Display) *Reporter {
	return &Reporter{
		display:    display,
		indicators: make(map[string]Indicator),
		finished:   make(map[string]bool),
	}
}

// Report applies one event. Events without a layer ID are ignored, and a layer's indicator
// is finalized exactly once, on the first terminal status seen for it.
func (r *Reporter) Report(e Event) {
	if e.LayerID == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.finished[e.LayerID] {
		return
	}

	indicator, ok := r.indicators[e.LayerID]
	if !ok {
		indicator = r.display.Indicator(e.LayerID)
		r.indicators[e.LayerID] = indicator
	}

	if IsTerminal(e.Status) {
		indicator.Finish(e.Status)
		r.finished[e.LayerID] = true
		return
	}
	indicator.Update(e.Status, e.Current, e.Total)
}

// Close releases the display.
func (r *Reporter) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.display.Close()
}

// Discard is a Display that renders nothing.
type Discard struct{}

func (Discard) Indicator(string) Indicator { return discardIndicator{} }
func (Discard) Close()                     {}

type discardIndicator struct{}

func (discardIndicator) Update(string, int64, int64) {}
func (discardIndicator) Finish(string)               {}
