package scheduler

import (
	"maps"
	"slices"
	"sync"

	domain "github.com/oshokin/alarm-groups/internal/domain/alarm"
	"github.com/oshokin/alarm-groups/internal/registry"
)

// workerTable maps group ids to their running worker.
// Its mutex also guards the served-set of every worker, so handing an alarm to
// a worker, the worker letting go of it and the worker deciding to exit can
// never interleave. Lock order: table, then registry.
type workerTable struct {
	// byGroup holds the running worker of each active group.
	byGroup map[int]*worker
	// mu protects byGroup and the served-sets of the workers in it.
	mu sync.Mutex
}

func newWorkerTable() *workerTable {
	return &workerTable{
		byGroup: make(map[int]*worker),
	}
}

// assign hands alarmID to the worker of groupID. When the group has no worker,
// spawn builds one seeded with the alarm, and start is called while the table
// is still locked so no second worker can appear for the group.
// It reports whether a new worker was created.
func (t *workerTable) assign(groupID, alarmID int, spawn func() *worker, start func(*worker)) (*worker, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if w, ok := t.byGroup[groupID]; ok {
		w.served[alarmID] = struct{}{}

		return w, false
	}

	w := spawn()
	w.served[alarmID] = struct{}{}
	t.byGroup[groupID] = w

	start(w)

	return w, true
}

// served returns the alarm ids currently served by w in ascending order.
func (t *workerTable) served(w *worker) []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return slices.Sorted(maps.Keys(w.served))
}

// dropIfStale re-reads the alarm and removes it from the served-set of w only
// when it is gone or belongs to another group. The re-read and the removal
// share the table lock with assign, so an alarm handed back to w in between
// is kept. It returns the fresh snapshot (nil when gone) and whether it dropped.
func (t *workerTable) dropIfStale(w *worker, alarmID int, reg *registry.Registry) (*domain.Alarm, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := reg.Snapshot(alarmID)
	if ok && a.GroupID == w.groupID {
		return a, false
	}

	delete(w.served, alarmID)

	return a, true
}

// retireIfIdle unregisters w when its served-set is empty and reports whether it did.
// A retired worker is never handed alarms again.
func (t *workerTable) retireIfIdle(w *worker) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(w.served) > 0 {
		return false
	}

	t.unregister(w)

	return true
}

// retire unregisters w regardless of its served-set.
func (t *workerTable) retire(w *worker) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.unregister(w)
}

// groups returns the groups that currently have a worker, ascending.
func (t *workerTable) groups() []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return slices.Sorted(maps.Keys(t.byGroup))
}

// unregister removes w from the table. Callers must hold mu.
func (t *workerTable) unregister(w *worker) {
	if current, ok := t.byGroup[w.groupID]; ok && current == w {
		delete(t.byGroup, w.groupID)
	}
}
