package scheduler

import (
	"context"

	domain "github.com/oshokin/alarm-groups/internal/domain/alarm"
	"github.com/oshokin/alarm-groups/internal/logger"
)

// EventSink receives the structured side effects of the engine.
// Implementations must be safe for concurrent use and must not call back into
// the engine: inserted, changed and expired events are emitted while the
// registry is locked, so they precede every event the change causes.
type EventSink interface {
	Emit(ctx context.Context, event domain.Event)
}

// LogSink writes every event as a structured log line.
type LogSink struct{}

// Emit logs the event at info level using the logger from the context.
func (LogSink) Emit(ctx context.Context, event domain.Event) {
	logger.InfoKV(ctx, event.Kind.Describe(), event.Fields()...)
}
