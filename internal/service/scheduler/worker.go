package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"

	domain "github.com/oshokin/alarm-groups/internal/domain/alarm"
	"github.com/oshokin/alarm-groups/internal/logger"
)

// worker displays the alarms of one group until none are left.
type worker struct {
	// id identifies the worker in events.
	id string
	// groupID is the group this worker serves.
	groupID int
	// served is the set of alarm ids handed to the worker, guarded by workerTable.mu.
	served map[int]struct{}

	// engine gives access to the registry, the worker table and the sink.
	engine *Engine
	// started is set after the first display; only the worker goroutine touches it.
	started bool
	// known holds the last displayed snapshot per alarm; only the worker goroutine touches it.
	known map[int]*domain.Alarm
}

func newWorker(e *Engine, groupID int) *worker {
	return &worker{
		id:      uuid.NewString(),
		groupID: groupID,
		served:  make(map[int]struct{}),
		engine:  e,
		known:   make(map[int]*domain.Alarm),
	}
}

// run performs display passes every display period and returns once the
// served-set is empty after a pass or the context is canceled.
func (w *worker) run(ctx context.Context) {
	ctx = logger.WithName(ctx, "display")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.engine.workers.retire(w)
			logger.DebugKV(ctx, "Display thread canceled", "worker_id", w.id, "group_id", w.groupID)

			return
		case <-timer.C:
		}

		for _, alarmID := range w.engine.workers.served(w) {
			w.display(ctx, alarmID)
		}

		if w.engine.workers.retireIfIdle(w) {
			w.emit(ctx, domain.Event{
				Kind:    domain.EventWorkerExited,
				GroupID: w.groupID,
				At:      w.engine.now(),
			})

			return
		}

		timer.Reset(w.engine.displayPeriod)
	}
}

// display revalidates one alarm against the registry and prints it when it
// still belongs to the worker's group.
func (w *worker) display(ctx context.Context, alarmID int) {
	a, ok := w.engine.registry.Snapshot(alarmID)
	now := w.engine.now()

	if !ok || a.GroupID != w.groupID {
		current, dropped := w.engine.workers.dropIfStale(w, alarmID, w.engine.registry)
		if dropped {
			w.stopped(ctx, alarmID, current, now)

			return
		}

		// Handed back to this group before the worker let go of it.
		a = current
	}

	if !w.started {
		w.started = true

		kind := domain.EventDisplayStarted
		if a.Changed {
			kind = domain.EventDisplayTakenOver
		}

		w.emitAlarm(ctx, kind, a, now)
	}

	var seenRevision uint64
	if previous, seen := w.known[alarmID]; seen {
		seenRevision = previous.Revision
	}

	if a.Revision > seenRevision {
		w.emitAlarm(ctx, domain.EventMessageChanged, a, now)
	}

	w.known[alarmID] = a
	w.emitAlarm(ctx, domain.EventPrinted, a, now)
}

// stopped reports why the alarm left the served-set; current is nil when the
// alarm is gone from the registry.
func (w *worker) stopped(ctx context.Context, alarmID int, current *domain.Alarm, now time.Time) {
	last := w.known[alarmID]
	delete(w.known, alarmID)

	switch {
	case current != nil:
		w.emitAlarm(ctx, domain.EventStoppedGroupChanged, current, now)
	case last != nil:
		w.emitAlarm(ctx, domain.EventStoppedRemoved, last, now)
	default:
		w.emit(ctx, domain.Event{Kind: domain.EventStoppedRemoved, AlarmID: alarmID, GroupID: w.groupID, At: now})
	}
}

func (w *worker) emitAlarm(ctx context.Context, kind domain.EventKind, a *domain.Alarm, now time.Time) {
	w.emit(ctx, domain.AlarmEvent(kind, a, now))
}

func (w *worker) emit(ctx context.Context, event domain.Event) {
	event.WorkerID = w.id
	w.engine.sink.Emit(ctx, event)
}
