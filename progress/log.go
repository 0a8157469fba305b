package progress

import (
	"github.com/rs/zerolog"
)

// LogDisplay reports layer milestones as log lines. Used when output is not a terminal.
type LogDisplay struct {
	logger zerolog.Logger
}

// NewLogDisplay creates a display writing to logger.
func NewLogDisplay(logger zerolog.Logger) *LogDisplay {
	return &LogDisplay{logger: logger}
}

func (l *LogDisplay) Indicator(layerID string) Indicator {
	return &logIndicator{logger: l.logger.With().Str("layer", layerID).Logger()}
}

func (l *LogDisplay) Close() {}

type logIndicator struct {
	logger zerolog.Logger
	status string
}

// Update logs status transitions only; byte counters are debug output.
func (i *logIndicator) Update(status string, current, total int64) {
	if status != i.status {
		i.status = status
		i.logger.Info().Msg(status)
		return
	}
	i.logger.Debug().Int64("current", current).Int64("total", total).Msg(status)
}

func (i *logIndicator) Finish(status string) {
	i.logger.Info().Msg(status)
}
