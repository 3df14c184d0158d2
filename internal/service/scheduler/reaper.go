package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap/zapcore"

	domain "github.com/oshokin/alarm-groups/internal/domain/alarm"
	"github.com/oshokin/alarm-groups/internal/logger"
)

// reap removes expired alarms once per reaper period.
func (e *Engine) reap(ctx context.Context) {
	ctx = logger.WithName(ctx, "reaper")

	ticker := time.NewTicker(e.reaperPeriod)
	defer ticker.Stop()

	for {
		e.reapExpired(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// reapExpired removes every alarm past its deadline, one per lock acquisition,
// in id order, and returns how many were removed.
func (e *Engine) reapExpired(ctx context.Context) int {
	removed := 0

	for {
		now := e.now()

		_, ok := e.registry.ReapExpiredWith(now, func(a *domain.Alarm) {
			e.sink.Emit(ctx, domain.AlarmEvent(domain.EventExpired, a, now))
		})
		if !ok {
			break
		}

		removed++
	}

	if logger.FromContext(ctx).Level().Enabled(zapcore.DebugLevel) {
		for _, a := range e.registry.List() {
			logger.DebugKV(ctx, "Alarm pending",
				"alarm_id", a.ID,
				"group_id", a.GroupID,
				"interval", a.Interval.String(),
				"message", a.Message,
			)
		}
	}

	return removed
}
