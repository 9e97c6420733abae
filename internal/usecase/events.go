package usecase

import (
	"go.uber.org/zap"

	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/entity"
)

// EventSink receives one timing event per orchestrated request
type EventSink interface {
	Record(event entity.RequestEvent)
}

// LogSink writes request events to a zap logger
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a LogSink
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.With(zap.String("component", "orchestrator"))}
}

// Record implements EventSink
func (s *LogSink) Record(event entity.RequestEvent) {
	fields := []zap.Field{
		zap.String("endpoint", event.Endpoint),
		zap.String("client", event.Client),
		zap.String("request_id", event.RequestID),
		zap.Time("start", event.Start),
		zap.Duration("duration", event.Duration),
		zap.String("outcome", event.Outcome),
	}

	if event.Outcome == entity.OutcomeOK {
		s.logger.Info("request completed", fields...)
		return
	}
	s.logger.Warn("request failed", fields...)
}

// MultiSink fans an event out to every sink in order
type MultiSink []EventSink

// Record implements EventSink
func (m MultiSink) Record(event entity.RequestEvent) {
	for _, sink := range m {
		if sink != nil {
			sink.Record(event)
		}
	}
}

type nopSink struct{}

func (nopSink) Record(entity.RequestEvent) {}
