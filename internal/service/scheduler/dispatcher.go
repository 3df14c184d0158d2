package scheduler

import (
	"context"
	"time"

	domain "github.com/oshokin/alarm-groups/internal/domain/alarm"
	"github.com/oshokin/alarm-groups/internal/logger"
	"github.com/oshokin/alarm-groups/internal/registry"
)

// dispatch waits for registry changes or the earliest deadline and hands every
// pending alarm to its group worker. The timeout is recomputed on every wake.
func (e *Engine) dispatch(ctx context.Context) {
	logCtx := logger.WithName(ctx, "dispatcher")
	workerCtx := logger.WithName(ctx, "display")

	for {
		var (
			timer   *time.Timer
			timeout <-chan time.Time
		)

		// A deadline already in the past is the reaper's job; its removal wakes us.
		if wait, ok := e.untilEarliestDeadline(); ok && wait > 0 {
			timer = time.NewTimer(wait)
			timeout = timer.C
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}

			return
		case <-e.registry.Notify():
		case <-timeout:
			logger.Debug(logCtx, "Earliest deadline reached")
		}

		if timer != nil {
			timer.Stop()
		}

		for _, n := range e.registry.TakePending() {
			e.assign(logCtx, workerCtx, n)
		}
	}
}

// assign hands the notified alarm to the worker of its current group,
// creating the worker when the group has none.
func (e *Engine) assign(ctx, workerCtx context.Context, n registry.Notification) {
	a, ok := e.registry.Snapshot(n.AlarmID)
	if !ok {
		logger.DebugKV(ctx, "Alarm left the registry before dispatch", "alarm_id", n.AlarmID)

		return
	}

	w, created := e.workers.assign(
		a.GroupID,
		a.ID,
		func() *worker {
			return newWorker(e, a.GroupID)
		},
		func(w *worker) {
			e.wg.Go(func() {
				w.run(workerCtx)
			})
		},
	)

	kind := domain.EventWorkerNotified
	if created {
		kind = domain.EventWorkerCreated
	}

	event := domain.AlarmEvent(kind, a, e.now())
	event.WorkerID = w.id
	e.sink.Emit(ctx, event)
}

// untilEarliestDeadline returns the time left until the earliest deadline.
func (e *Engine) untilEarliestDeadline() (time.Duration, bool) {
	deadline, ok := e.registry.FindEarliestDeadline()
	if !ok {
		return 0, false
	}

	return deadline.Sub(e.now()), true
}
