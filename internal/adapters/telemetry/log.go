package telemetry

import (
	"context"

	"github.com/dkeye/roomrelay/internal/core"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogSink writes notices as structured warnings.
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink() *LogSink {
	return &LogSink{logger: log.With().Str("module", "abuse").Logger()}
}

func (s *LogSink) Publish(_ context.Context, n core.Notice) error {
	s.logger.Warn().
		Str("reason", n.Reason).
		Str("addr", n.Address).
		Str("identity", n.Identity).
		Str("room", string(n.RoomID)).
		Str("type", n.Type).
		Int("count", n.Count).
		Time("at", n.At).
		Msg("abuse notice")
	return nil
}
