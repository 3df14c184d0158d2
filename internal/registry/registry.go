package registry

import (
	"fmt"
	"sync"
	"time"

	rbt "github.com/emirpasic/gods/v2/trees/redblacktree"

	domain "github.com/oshokin/alarm-groups/internal/domain/alarm"
)

// Notification tells the dispatcher that an alarm needs a group worker.
type Notification struct {
	// AlarmID is the alarm to assign.
	AlarmID int
	// GroupID is the group the alarm had when the notification was queued.
	GroupID int
}

// Registry is the shared alarm list, sorted by id.
type Registry struct {
	// alarms maps id to alarm, kept ordered by the red-black tree.
	alarms *rbt.Tree[int, *domain.Alarm]
	// pending holds notifications not yet taken by the dispatcher.
	pending []Notification
	// notify is a coalescing wake signal for goroutines waiting on changes.
	notify chan struct{}
	// mu protects alarms and pending.
	mu sync.RWMutex
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		alarms: rbt.New[int, *domain.Alarm](),
		notify: make(chan struct{}, 1),
	}
}

// CommitFunc observes a change while the registry is still locked.
// It receives a copy of the alarm and must not call back into the registry.
type CommitFunc func(a *domain.Alarm)

// Insert registers a new alarm received at now.
// It fails with domain.ErrDuplicateID when the id is already registered.
func (r *Registry) Insert(req *domain.Request, now time.Time) (*domain.Alarm, error) {
	return r.InsertWith(req, now, nil)
}

// InsertWith is Insert with a commit hook. onCommit runs after the alarm is
// stored and before any waiter can observe it, so whatever it records comes
// first for this alarm.
func (r *Registry) InsertWith(req *domain.Request, now time.Time, onCommit CommitFunc) (*domain.Alarm, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, found := r.alarms.Get(req.ID); found {
		return nil, fmt.Errorf("insert alarm %d: %w", req.ID, domain.ErrDuplicateID)
	}

	a := domain.NewAlarm(req, now)
	r.alarms.Put(a.ID, a)
	commit(onCommit, a)

	r.pending = append(r.pending, Notification{AlarmID: a.ID, GroupID: a.GroupID})
	r.signal()

	return a.Clone(), nil
}

// Update overwrites the group, interval and message of a registered alarm.
// It fails with domain.ErrNotFound when the id is not registered.
// A group change queues a dispatch notification for the new group.
func (r *Registry) Update(req *domain.Request, now time.Time) (*domain.Alarm, error) {
	return r.UpdateWith(req, now, nil)
}

// UpdateWith is Update with a commit hook run before any waiter is woken.
func (r *Registry) UpdateWith(req *domain.Request, now time.Time, onCommit CommitFunc) (*domain.Alarm, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, found := r.alarms.Get(req.ID)
	if !found {
		return nil, fmt.Errorf("update alarm %d: %w", req.ID, domain.ErrNotFound)
	}

	previousGroup := a.GroupID
	a.Apply(req, now)
	commit(onCommit, a)

	if a.GroupID != previousGroup {
		r.pending = append(r.pending, Notification{AlarmID: a.ID, GroupID: a.GroupID})
	}

	r.signal()

	return a.Clone(), nil
}

// Remove deletes the alarm with the given id.
// It reports whether an alarm was removed; a missing id is not an error.
func (r *Registry) Remove(id int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, found := r.alarms.Get(id); !found {
		return false
	}

	r.alarms.Remove(id)
	r.signal()

	return true
}

// ReapExpired removes and returns the first alarm, in id order, whose deadline
// has passed at now. Lookup and removal happen under one lock so a concurrent
// update cannot be lost.
func (r *Registry) ReapExpired(now time.Time) (*domain.Alarm, bool) {
	return r.ReapExpiredWith(now, nil)
}

// ReapExpiredWith is ReapExpired with a commit hook run before any waiter is woken.
func (r *Registry) ReapExpiredWith(now time.Time, onCommit CommitFunc) (*domain.Alarm, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, found := r.firstExpired(now)
	if !found {
		return nil, false
	}

	r.alarms.Remove(a.ID)
	commit(onCommit, a)
	r.signal()

	return a, true
}

// FindExpired returns the first alarm, in id order, whose deadline has passed at now.
func (r *Registry) FindExpired(now time.Time) (*domain.Alarm, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, found := r.firstExpired(now)
	if !found {
		return nil, false
	}

	return a.Clone(), true
}

// FindEarliestDeadline returns the smallest deadline among live alarms.
func (r *Registry) FindEarliestDeadline() (time.Time, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		earliest time.Time
		found    bool
	)

	for _, a := range r.alarms.Values() {
		if !found || a.Deadline.Before(earliest) {
			earliest = a.Deadline
			found = true
		}
	}

	return earliest, found
}

// Contains reports whether the id is registered.
func (r *Registry) Contains(id int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, found := r.alarms.Get(id)

	return found
}

// Snapshot returns a copy of the alarm with the given id.
func (r *Registry) Snapshot(id int) (*domain.Alarm, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, found := r.alarms.Get(id)
	if !found {
		return nil, false
	}

	return a.Clone(), true
}

// List returns copies of all live alarms in id order.
func (r *Registry) List() []*domain.Alarm {
	r.mu.RLock()
	defer r.mu.RUnlock()

	values := r.alarms.Values()
	result := make([]*domain.Alarm, 0, len(values))

	for _, a := range values {
		result = append(result, a.Clone())
	}

	return result
}

// Len returns the number of live alarms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.alarms.Size()
}

// Notify returns the wake channel. A receive means the registry changed since
// the last receive; waiters must re-read the state they depend on.
func (r *Registry) Notify() <-chan struct{} {
	return r.notify
}

// TakePending returns and clears the queued dispatch notifications in arrival order.
func (r *Registry) TakePending() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	taken := r.pending
	r.pending = nil

	return taken
}

// firstExpired scans in id order. Callers must hold mu.
func (r *Registry) firstExpired(now time.Time) (*domain.Alarm, bool) {
	it := r.alarms.Iterator()
	for it.Next() {
		if a := it.Value(); a.Expired(now) {
			return a, true
		}
	}

	return nil, false
}

// commit hands a copy of a to onCommit when set. Callers must hold mu.
func commit(onCommit CommitFunc, a *domain.Alarm) {
	if onCommit != nil {
		onCommit(a.Clone())
	}
}

// signal wakes one waiter without blocking. Callers must hold mu.
func (r *Registry) signal() {
	select {
	case r.notify <- struct{}{}:
	default:
	}
}
