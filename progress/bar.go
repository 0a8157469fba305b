package progress

import (
	"fmt"
	"io"
	"time"

	pretty "github.com/jedib0t/go-pretty/v6/progress"
)

// BarDisplay draws one progress bar per layer on an interactive terminal.
type BarDisplay struct {
	writer pretty.Writer
}

// NewBarDisplay starts rendering bars to out.
func NewBarDisplay(out io.Writer) *BarDisplay {
	w := pretty.NewWriter()
	w.SetOutputWriter(out)
	w.SetAutoStop(false)
	w.SetTrackerLength(30)
	w.SetUpdateFrequency(100 * time.Millisecond)
	w.Style().Visibility.ETA = false
	w.Style().Visibility.Time = false

	go w.Render()
	for !w.IsRenderInProgress() {
		time.Sleep(time.Millisecond)
	}

	return &BarDisplay{writer: w}
}

func (b *BarDisplay) Indicator(layerID string) Indicator {
	tracker := &pretty.Tracker{
		Message: layerID,
		Units:   pretty.UnitsBytes,
	}
	b.writer.AppendTracker(tracker)
	return &barIndicator{layerID: layerID, tracker: tracker}
}

// Close stops rendering and waits for the final frame.
func (b *BarDisplay) Close() {
	b.writer.Stop()
	for b.writer.IsRenderInProgress() {
		time.Sleep(10 * time.Millisecond)
	}
}

type barIndicator struct {
	layerID string
	tracker *pretty.Tracker
}

func (i *barIndicator) Update(status string, current, total int64) {
	i.tracker.UpdateMessage(fmt.Sprintf("%s: %s", i.layerID, status))
	if total > 0 {
		i.tracker.UpdateTotal(total)
	}
	i.tracker.SetValue(current)
}

func (i *barIndicator) Finish(status string) {
	i.tracker.UpdateMessage(fmt.Sprintf("%s: %s", i.layerID, status))
	i.tracker.MarkAsDone()
}
