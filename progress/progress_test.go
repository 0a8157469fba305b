package progress

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingIndicator struct {
	updates  []string
	finishes []string
}

func (r *recordingIndicator) Update(status string, _, _ int64) {
	r.updates = append(r.updates, status)
}

func (r *recordingIndicator) Finish(status string) {
	r.finishes = append(r.finishes, status)
}

type recordingDisplay struct {
	indicators map[string]*recordingIndicator
	created    []string
	closed     bool
}

func newRecordingDisplay() *recordingDisplay {
	return &recordingDisplay{indicators: make(map[string]*recordingIndicator)}
}

func (d *recordingDisplay) Indicator(layerID string) Indicator {
	i := &recordingIndicator{}
	d.indicators[layerID] = i
	d.created = append(d.created, layerID)
	return i
}

func (d *recordingDisplay) Close() {
	d.closed = true
}

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{status: "Download complete", want: true},
		{status: "Pull complete", want: true},
		{status: "Already exists", want: true},
		{status: "Downloading", want: false},
		{status: "Extracting", want: false},
		{status: "Waiting", want: false},
		{status: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTerminal(tt.status))
		})
	}
}

func TestReporter_FinalizesExactlyOnce(t *testing.T) {
	display := newRecordingDisplay()
	reporter := NewReporter(display)

	reporter.Report(Event{Status: "Pulling from mayo-dayo/app"})
	reporter.Report(Event{LayerID: "aaa", Status: "Waiting"})
	reporter.Report(Event{LayerID: "aaa", Status: "Downloading", Current: 10, Total: 100})
	reporter.Report(Event{LayerID: "aaa", Status: "Download complete"})
	reporter.Report(Event{LayerID: "aaa", Status: "Extracting", Current: 50, Total: 100})
	reporter.Report(Event{LayerID: "aaa", Status: "Pull complete"})
	reporter.Report(Event{LayerID: "bbb", Status: "Already exists"})
	reporter.Close()

	assert.Equal(t, []string{"aaa", "bbb"}, display.created)

	aaa := display.indicators["aaa"]
	assert.Equal(t, []string{"Waiting", "Downloading"}, aaa.updates)
	assert.Equal(t, []string{"Download complete"}, aaa.finishes)

	bbb := display.indicators["bbb"]
	assert.Empty(t, bbb.updates)
	assert.Equal(t, []string{"Already exists"}, bbb.finishes)

	assert.True(t, display.closed)
}

func TestReporter_IgnoresEventsWithoutLayer(t *testing.T) {
	display := newRecordingDisplay()
	reporter := NewReporter(display)

	reporter.Report(Event{Status: "Digest: sha256:0123"})
	reporter.Report(Event{Status: "Status: Downloaded newer image"})

	assert.Empty(t, display.created)
}

func TestLogDisplay(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.InfoLevel)

	reporter := NewReporter(NewLogDisplay(logger))
	reporter.Report(Event{LayerID: "aaa", Status: "Downloading", Current: 1, Total: 10})
	reporter.Report(Event{LayerID: "aaa", Status: "Downloading", Current: 5, Total: 10})
	reporter.Report(Event{LayerID: "aaa", Status: "Pull complete"})
	reporter.Close()

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), `"layer":"aaa"`)
	assert.Contains(t, string(lines[0]), `"message":"Downloading"`)
	assert.Contains(t, string(lines[1]), `"message":"Pull complete"`)
}

func TestBarDisplay(t *testing.T) {
	var buf bytes.Buffer
	display := NewBarDisplay(&buf)

	reporter := NewReporter(display)
	reporter.Report(Event{LayerID: "aaa", Status: "Downloading", Current: 512, Total: 1024})
	reporter.Report(Event{LayerID: "aaa", Status: "Pull complete"})
	reporter.Close()

	assert.False(t, display.writer.IsRenderInProgress())
}

func TestDiscard(t *testing.T) {
	reporter := NewReporter(Discard{})
	reporter.Report(Event{LayerID: "aaa", Status: "Downloading"})
	reporter.Report(Event{LayerID: "aaa", Status: "Pull complete"})
	reporter.Close()
}
