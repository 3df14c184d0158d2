package scheduler

import (
	"context"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/alarm-groups/internal/domain/alarm"
)

// recorder is an EventSink that keeps every event for assertions.
type recorder struct {
	// events holds emitted events in emission order.
	events []domain.Event
	// mu protects events.
	mu sync.Mutex
}

// Emit stores the event.
func (r *recorder) Emit(_ context.Context, event domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
}

// of returns the events of the given kind, optionally limited to one alarm id.
func (r *recorder) of(kind domain.EventKind, alarmID ...int) []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []domain.Event

	for _, e := range r.events {
		if e.Kind != kind {
			continue
		}

		if len(alarmID) > 0 && e.AlarmID != alarmID[0] {
			continue
		}

		result = append(result, e)
	}

	return result
}

// forGroup returns the events of the given kind reported for a group.
func (r *recorder) forGroup(kind domain.EventKind, groupID int) []domain.Event {
	var result []domain.Event

	for _, e := range r.of(kind) {
		if e.GroupID == groupID {
			result = append(result, e)
		}
	}

	return result
}

func request(id, group, seconds int, message string) *domain.Request {
	return &domain.Request{
		ID:              id,
		GroupID:         group,
		IntervalSeconds: seconds,
		Message:         message,
	}
}

// startEngine runs an engine inside the current synctest bubble and returns a stop function.
func startEngine(t *testing.T, opts ...Option) (*Engine, *recorder, func()) {
	t.Helper()

	rec := new(recorder)
	e := New(append(opts, WithSink(rec))...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- e.Run(ctx)
	}()

	synctest.Wait()

	return e, rec, func() {
		cancel()
		require.NoError(t, <-done)
	}
}

// TestEngine_ExpiredAlarmIsReaped covers insertion, expiry and the worker noticing the removal.
func TestEngine_ExpiredAlarmIsReaped(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		e, rec, stop := startEngine(t)
		defer stop()

		_, err := e.InsertAlarm(context.Background(), request(1, 10, 12, "A"))
		require.NoError(t, err)

		synctest.Wait()

		require.Len(t, rec.of(domain.EventInserted, 1), 1)
		require.Len(t, rec.of(domain.EventWorkerCreated, 1), 1)
		require.Len(t, rec.of(domain.EventDisplayStarted, 1), 1)

		time.Sleep(12 * time.Second)
		synctest.Wait()

		expired := rec.of(domain.EventExpired, 1)
		require.Len(t, expired, 1)
		require.Empty(t, e.ListAlarms(context.Background()))

		// The worker notices on its next pass and exits.
		time.Sleep(5 * time.Second)
		synctest.Wait()

		require.Len(t, rec.of(domain.EventStoppedRemoved, 1), 1)
		require.Len(t, rec.forGroup(domain.EventWorkerExited, 10), 1)
		require.Empty(t, e.ActiveGroups())

		for _, printed := range rec.of(domain.EventPrinted, 1) {
			require.True(t, printed.At.Before(expired[0].At))
		}
	})
}

// TestEngine_SameGroupSharesWorker verifies the second alarm of a group is handed to the existing worker.
func TestEngine_SameGroupSharesWorker(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		e, rec, stop := startEngine(t)
		defer stop()

		_, err := e.InsertAlarm(context.Background(), request(2, 20, 60, "B"))
		require.NoError(t, err)
		_, err = e.InsertAlarm(context.Background(), request(3, 20, 60, "C"))
		require.NoError(t, err)

		synctest.Wait()

		created := rec.of(domain.EventWorkerCreated)
		notified := rec.of(domain.EventWorkerNotified)

		require.Len(t, created, 1)
		require.Len(t, notified, 1)
		require.Equal(t, 2, created[0].AlarmID)
		require.Equal(t, 3, notified[0].AlarmID)
		require.Equal(t, created[0].WorkerID, notified[0].WorkerID)

		time.Sleep(6 * time.Second)
		synctest.Wait()

		for _, id := range []int{2, 3} {
			printed := rec.of(domain.EventPrinted, id)
			require.NotEmpty(t, printed)

			for _, p := range printed {
				require.Equal(t, created[0].WorkerID, p.WorkerID)
			}
		}

		require.Equal(t, []int{20}, e.ActiveGroups())
	})
}

// TestEngine_MessageChangeBanner checks the changed banner appears once and the old message never returns.
func TestEngine_MessageChangeBanner(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		e, rec, stop := startEngine(t)
		defer stop()

		_, err := e.InsertAlarm(context.Background(), request(4, 30, 60, "D"))
		require.NoError(t, err)

		synctest.Wait()

		_, err = e.UpdateAlarm(context.Background(), request(4, 30, 60, "D2"))
		require.NoError(t, err)

		time.Sleep(16 * time.Second)
		synctest.Wait()

		require.Len(t, rec.of(domain.EventChanged, 4), 1)

		banners := rec.of(domain.EventMessageChanged, 4)
		require.Len(t, banners, 1)
		require.Equal(t, "D2", banners[0].Message)

		printed := rec.of(domain.EventPrinted, 4)
		require.Len(t, printed, 4)
		require.Equal(t, "D", printed[0].Message)

		for _, p := range printed[1:] {
			require.Equal(t, "D2", p.Message)
		}

		// The update did not reassign the alarm, so no dispatch happened.
		require.Len(t, rec.of(domain.EventWorkerCreated), 1)
		require.Empty(t, rec.of(domain.EventWorkerNotified))
	})
}

// TestEngine_UpdateUnknownAlarm ensures unknown ids are rejected without side effects.
func TestEngine_UpdateUnknownAlarm(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		e, rec, stop := startEngine(t)
		defer stop()

		_, err := e.UpdateAlarm(context.Background(), request(999, 1, 10, "x"))
		require.ErrorIs(t, err, domain.ErrNotFound)

		synctest.Wait()

		require.Empty(t, e.ListAlarms(context.Background()))
		require.Len(t, rec.of(domain.EventUpdateRejected, 999), 1)
		require.Empty(t, rec.of(domain.EventWorkerCreated))
		require.Empty(t, e.ActiveGroups())
	})
}

// TestEngine_GroupChangeHandsOver documents that a group change dispatches the
// alarm to the new group immediately and the old worker lets go of it.
func TestEngine_GroupChangeHandsOver(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		e, rec, stop := startEngine(t)
		defer stop()

		_, err := e.InsertAlarm(context.Background(), request(5, 40, 60, "E"))
		require.NoError(t, err)

		synctest.Wait()

		_, err = e.UpdateAlarm(context.Background(), request(5, 41, 60, "E"))
		require.NoError(t, err)

		synctest.Wait()

		require.Len(t, rec.forGroup(domain.EventWorkerCreated, 40), 1)
		require.Len(t, rec.forGroup(domain.EventWorkerCreated, 41), 1)
		require.Equal(t, []int{40, 41}, e.ActiveGroups())
		require.Len(t, rec.of(domain.EventDisplayTakenOver, 5), 1)

		time.Sleep(6 * time.Second)
		synctest.Wait()

		stopped := rec.of(domain.EventStoppedGroupChanged, 5)
		require.Len(t, stopped, 1)

		oldWorker := rec.forGroup(domain.EventWorkerCreated, 40)[0].WorkerID
		newWorker := rec.forGroup(domain.EventWorkerCreated, 41)[0].WorkerID

		require.Equal(t, oldWorker, stopped[0].WorkerID)
		require.Len(t, rec.forGroup(domain.EventWorkerExited, 40), 1)
		require.Equal(t, []int{41}, e.ActiveGroups())

		last := rec.of(domain.EventPrinted, 5)
		require.Equal(t, newWorker, last[len(last)-1].WorkerID)
		require.Equal(t, 41, last[len(last)-1].GroupID)
	})
}

// TestEngine_WorkerIsNotReused verifies a follow-up alarm after worker exit spawns a new worker.
func TestEngine_WorkerIsNotReused(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		e, rec, stop := startEngine(t)
		defer stop()

		_, err := e.InsertAlarm(context.Background(), request(6, 50, 3, "F"))
		require.NoError(t, err)

		time.Sleep(6 * time.Second)
		synctest.Wait()

		require.Len(t, rec.forGroup(domain.EventWorkerExited, 50), 1)
		require.Empty(t, e.ActiveGroups())

		_, err = e.InsertAlarm(context.Background(), request(7, 50, 60, "G"))
		require.NoError(t, err)

		synctest.Wait()

		created := rec.forGroup(domain.EventWorkerCreated, 50)
		require.Len(t, created, 2)
		require.NotEqual(t, created[0].WorkerID, created[1].WorkerID)
		require.Empty(t, rec.of(domain.EventWorkerNotified))
	})
}

// TestEngine_BurstCreatesOneWorker races inserts into a new group and checks a single worker serves them.
func TestEngine_BurstCreatesOneWorker(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		e, rec, stop := startEngine(t)
		defer stop()

		const burst = 20

		var wg sync.WaitGroup
		for id := 1; id <= burst; id++ {
			wg.Go(func() {
				_, err := e.InsertAlarm(context.Background(), request(id, 60, 60, "burst"))
				if err != nil {
					t.Errorf("insert %d: %v", id, err)
				}
			})
		}

		wg.Wait()
		synctest.Wait()

		require.Len(t, rec.of(domain.EventWorkerCreated), 1)
		require.Len(t, rec.of(domain.EventWorkerNotified), burst-1)
		require.Equal(t, []int{60}, e.ActiveGroups())
	})
}

// TestEngine_InsertBeforeRun checks requests accepted before Run are dispatched once it starts.
func TestEngine_InsertBeforeRun(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		rec := new(recorder)
		e := New(WithSink(rec))

		_, err := e.InsertAlarm(context.Background(), request(8, 70, 60, "H"))
		require.NoError(t, err)
		_, err = e.InsertAlarm(context.Background(), request(8, 70, 60, "again"))
		require.ErrorIs(t, err, domain.ErrDuplicateID)

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)

		go func() {
			done <- e.Run(ctx)
		}()

		synctest.Wait()

		require.ErrorIs(t, e.Run(ctx), ErrAlreadyRunning)
		require.Len(t, rec.of(domain.EventWorkerCreated, 8), 1)

		cancel()
		require.NoError(t, <-done)
		require.Empty(t, e.ActiveGroups())
	})
}

// TestEngine_RejectsOutOfRangeInterval ensures invalid requests never reach the registry.
func TestEngine_RejectsOutOfRangeInterval(t *testing.T) {
	t.Parallel()

	var (
		e   = New(WithSink(new(recorder)))
		ctx = context.Background()
	)

	_, err := e.InsertAlarm(ctx, request(1, 1, -5, "x"))
	require.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = e.InsertAlarm(ctx, request(1, 1, 10_000_000_000, "x"))
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
	require.Empty(t, e.ListAlarms(ctx))

	_, err = e.InsertAlarm(ctx, request(1, 1, 60, "x"))
	require.NoError(t, err)

	_, err = e.UpdateAlarm(ctx, request(1, 1, domain.MaxIntervalSeconds+1, "x"))
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
	require.Equal(t, time.Minute, e.ListAlarms(ctx)[0].Interval)
}

// TestEngine_UntilEarliestDeadline checks the dispatcher timeout follows the nearest deadline.
func TestEngine_UntilEarliestDeadline(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_000, 0)
	e := New(WithSink(new(recorder)), WithClock(func() time.Time { return now }))

	_, ok := e.untilEarliestDeadline()
	require.False(t, ok)

	_, err := e.InsertAlarm(context.Background(), request(1, 1, 60, "late"))
	require.NoError(t, err)

	wait, ok := e.untilEarliestDeadline()
	require.True(t, ok)
	require.Equal(t, 60*time.Second, wait)

	// An earlier alarm lowers the bound.
	_, err = e.InsertAlarm(context.Background(), request(2, 1, 5, "soon"))
	require.NoError(t, err)

	wait, ok = e.untilEarliestDeadline()
	require.True(t, ok)
	require.Equal(t, 5*time.Second, wait)
}

// TestEngine_GroupChangeAndBack moves an alarm to another group and back before
// either worker's next pass: the original worker keeps it, the interim worker
// lets go once and exits.
func TestEngine_GroupChangeAndBack(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		e, rec, stop := startEngine(t)
		defer stop()

		ctx := context.Background()

		_, err := e.InsertAlarm(ctx, request(5, 40, 60, "E"))
		require.NoError(t, err)

		synctest.Wait()

		_, err = e.UpdateAlarm(ctx, request(5, 41, 60, "E"))
		require.NoError(t, err)

		synctest.Wait()

		_, err = e.UpdateAlarm(ctx, request(5, 40, 60, "E back"))
		require.NoError(t, err)

		synctest.Wait()

		original := rec.forGroup(domain.EventWorkerCreated, 40)
		interim := rec.forGroup(domain.EventWorkerCreated, 41)

		require.Len(t, original, 1)
		require.Len(t, interim, 1)

		notified := rec.forGroup(domain.EventWorkerNotified, 40)
		require.Len(t, notified, 1)
		require.Equal(t, original[0].WorkerID, notified[0].WorkerID)

		time.Sleep(16 * time.Second)
		synctest.Wait()

		stopped := rec.of(domain.EventStoppedGroupChanged, 5)
		require.Len(t, stopped, 1)
		require.Equal(t, interim[0].WorkerID, stopped[0].WorkerID)

		require.Len(t, rec.forGroup(domain.EventWorkerExited, 41), 1)
		require.Empty(t, rec.forGroup(domain.EventWorkerExited, 40))
		require.Equal(t, []int{40}, e.ActiveGroups())

		last := rec.of(domain.EventPrinted, 5)
		require.Equal(t, original[0].WorkerID, last[len(last)-1].WorkerID)
		require.Equal(t, "E back", last[len(last)-1].Message)
	})
}

// TestEngine_GroupChangeJoinsRunningWorker moves an alarm into a group that
// already has a worker: the worker is notified, not created, and the old
// worker lets go exactly once.
func TestEngine_GroupChangeJoinsRunningWorker(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		e, rec, stop := startEngine(t)
		defer stop()

		ctx := context.Background()

		_, err := e.InsertAlarm(ctx, request(5, 40, 60, "E"))
		require.NoError(t, err)
		_, err = e.InsertAlarm(ctx, request(6, 41, 60, "F"))
		require.NoError(t, err)

		synctest.Wait()

		_, err = e.UpdateAlarm(ctx, request(5, 41, 60, "E"))
		require.NoError(t, err)

		synctest.Wait()

		require.Len(t, rec.of(domain.EventWorkerCreated), 2)

		target := rec.forGroup(domain.EventWorkerCreated, 41)[0].WorkerID
		source := rec.forGroup(domain.EventWorkerCreated, 40)[0].WorkerID

		notified := rec.of(domain.EventWorkerNotified, 5)
		require.Len(t, notified, 1)
		require.Equal(t, 41, notified[0].GroupID)
		require.Equal(t, target, notified[0].WorkerID)

		time.Sleep(21 * time.Second)
		synctest.Wait()

		stopped := rec.of(domain.EventStoppedGroupChanged, 5)
		require.Len(t, stopped, 1)
		require.Equal(t, source, stopped[0].WorkerID)
		require.Len(t, rec.forGroup(domain.EventWorkerExited, 40), 1)
		require.Equal(t, []int{41}, e.ActiveGroups())

		for _, p := range rec.of(domain.EventPrinted, 5) {
			if p.GroupID == 41 {
				require.Equal(t, target, p.WorkerID)
			}
		}

		require.Len(t, rec.of(domain.EventWorkerCreated), 2)
	})
}

// TestEngine_RegistryEventsComeFirst checks that inserted, changed and expired
// are recorded before the dispatcher and workers react to them.
func TestEngine_RegistryEventsComeFirst(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		e, rec, stop := startEngine(t)
		defer stop()

		const burst = 10

		var wg sync.WaitGroup
		for id := 1; id <= burst; id++ {
			wg.Go(func() {
				_, err := e.InsertAlarm(context.Background(), request(id, id%3, 1, "burst"))
				if err != nil {
					t.Errorf("insert %d: %v", id, err)
				}

				_, err = e.UpdateAlarm(context.Background(), request(id, id%3+10, 1, "moved"))
				if err != nil {
					t.Errorf("update %d: %v", id, err)
				}
			})
		}

		wg.Wait()
		time.Sleep(7 * time.Second)
		synctest.Wait()

		rec.mu.Lock()
		defer rec.mu.Unlock()

		var (
			first   = make(map[int]domain.EventKind)
			expired = make(map[int]bool)
		)

		for _, event := range rec.events {
			if event.AlarmID == 0 {
				continue
			}

			if _, seen := first[event.AlarmID]; !seen {
				first[event.AlarmID] = event.Kind
			}

			switch event.Kind {
			case domain.EventExpired:
				expired[event.AlarmID] = true
			case domain.EventStoppedRemoved:
				require.True(t, expired[event.AlarmID], "alarm %d stopped before expiry", event.AlarmID)
			}
		}

		require.Len(t, first, burst)
		require.Len(t, expired, burst)

		for id, kind := range first {
			require.Equal(t, domain.EventInserted, kind, "alarm %d", id)
		}
	})
}

// TestEngine_InjectedClockStampsOnly runs with a frozen clock: timestamps and
// deadlines come from it while waits keep running on the runtime clock.
func TestEngine_InjectedClockStampsOnly(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		frozen := time.Unix(1_000, 0)

		e, rec, stop := startEngine(t, WithClock(func() time.Time { return frozen }))
		defer stop()

		a, err := e.InsertAlarm(context.Background(), request(1, 10, 60, "A"))
		require.NoError(t, err)
		require.Equal(t, frozen.Add(time.Minute), a.Deadline)

		synctest.Wait()

		time.Sleep(11 * time.Second)
		synctest.Wait()

		printed := rec.of(domain.EventPrinted, 1)
		require.Len(t, printed, 3)

		for _, p := range printed {
			require.Equal(t, frozen, p.At)
		}

		// Frozen time never reaches the deadline.
		require.Empty(t, rec.of(domain.EventExpired))
		require.Len(t, e.ListAlarms(context.Background()), 1)
	})
}
