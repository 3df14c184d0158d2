package registry

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/alarm-groups/internal/domain/alarm"
)

var epoch = time.Unix(1_700_000_000, 0)

func request(id, group, seconds int, message string) *domain.Request {
	return &domain.Request{
		ID:              id,
		GroupID:         group,
		IntervalSeconds: seconds,
		Message:         message,
	}
}

// TestInsert_RejectsDuplicates verifies duplicate ids fail and leave the original untouched.
func TestInsert_RejectsDuplicates(t *testing.T) {
	t.Parallel()

	r := New()

	_, err := r.Insert(request(1, 10, 10, "A"), epoch)
	require.NoError(t, err)

	_, err = r.Insert(request(1, 99, 1, "other"), epoch.Add(time.Second))
	require.ErrorIs(t, err, domain.ErrDuplicateID)

	got, ok := r.Snapshot(1)
	require.True(t, ok)
	require.Equal(t, 10, got.GroupID)
	require.Equal(t, "A", got.Message)
	require.Equal(t, epoch.Add(10*time.Second), got.Deadline)
	require.Equal(t, 1, r.Len())
}

// TestInsert_KeepsIDOrder checks that listing is sorted by id whatever the insert order.
func TestInsert_KeepsIDOrder(t *testing.T) {
	t.Parallel()

	r := New()
	for _, id := range []int{5, 1, 9, 3} {
		_, err := r.Insert(request(id, 1, 60, "m"), epoch)
		require.NoError(t, err)
	}

	ids := make([]int, 0, 4)
	for _, a := range r.List() {
		ids = append(ids, a.ID)
	}

	require.Equal(t, []int{1, 3, 5, 9}, ids)
}

// TestUpdate_RecomputesDeadline asserts deadline == T+S after an update at T.
func TestUpdate_RecomputesDeadline(t *testing.T) {
	t.Parallel()

	r := New()
	_, err := r.Insert(request(4, 30, 60, "D"), epoch)
	require.NoError(t, err)

	at := epoch.Add(50 * time.Second)
	updated, err := r.Update(request(4, 30, 5, "D2"), at)
	require.NoError(t, err)
	require.Equal(t, 4, updated.ID)
	require.Equal(t, at.Add(5*time.Second), updated.Deadline)
	require.True(t, updated.Changed)

	got, ok := r.Snapshot(4)
	require.True(t, ok)
	require.Equal(t, "D2", got.Message)
	require.Equal(t, at.Add(5*time.Second), got.Deadline)
}

// TestUpdate_NotFound ensures unknown ids are rejected without state change.
func TestUpdate_NotFound(t *testing.T) {
	t.Parallel()

	r := New()

	_, err := r.Update(request(999, 1, 1, "x"), epoch)
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Zero(t, r.Len())
	require.Empty(t, r.TakePending())
}

// TestPendingNotifications covers which mutations queue dispatch work.
func TestPendingNotifications(t *testing.T) {
	t.Parallel()

	r := New()

	_, err := r.Insert(request(2, 20, 60, "B"), epoch)
	require.NoError(t, err)
	_, err = r.Insert(request(3, 20, 60, "C"), epoch)
	require.NoError(t, err)

	require.Equal(t, []Notification{{AlarmID: 2, GroupID: 20}, {AlarmID: 3, GroupID: 20}}, r.TakePending())
	require.Empty(t, r.TakePending())

	// Same group: no dispatch needed.
	_, err = r.Update(request(2, 20, 60, "B2"), epoch)
	require.NoError(t, err)
	require.Empty(t, r.TakePending())

	// Group change: the new group needs a worker.
	_, err = r.Update(request(3, 21, 60, "C"), epoch)
	require.NoError(t, err)
	require.Equal(t, []Notification{{AlarmID: 3, GroupID: 21}}, r.TakePending())
}

// TestNotify_Coalesces verifies the wake channel never blocks writers.
func TestNotify_Coalesces(t *testing.T) {
	t.Parallel()

	r := New()
	for id := 1; id <= 3; id++ {
		_, err := r.Insert(request(id, 1, 60, "m"), epoch)
		require.NoError(t, err)
	}

	select {
	case <-r.Notify():
	default:
		t.Fatal("expected a pending wake signal")
	}

	select {
	case <-r.Notify():
		t.Fatal("wake signals must coalesce")
	default:
	}
}

// TestRemove_Tolerant checks that removing a missing id is a no-op.
func TestRemove_Tolerant(t *testing.T) {
	t.Parallel()

	r := New()
	_, err := r.Insert(request(1, 1, 1, "m"), epoch)
	require.NoError(t, err)

	require.True(t, r.Remove(1))
	require.False(t, r.Remove(1))
	require.False(t, r.Contains(1))
}

// TestDeadlineQueries covers earliest-deadline and expiry scans.
func TestDeadlineQueries(t *testing.T) {
	t.Parallel()

	r := New()

	_, ok := r.FindEarliestDeadline()
	require.False(t, ok)

	_, err := r.Insert(request(1, 1, 30, "a"), epoch)
	require.NoError(t, err)
	_, err = r.Insert(request(2, 1, 10, "b"), epoch)
	require.NoError(t, err)
	_, err = r.Insert(request(3, 1, 10, "c"), epoch)
	require.NoError(t, err)

	earliest, ok := r.FindEarliestDeadline()
	require.True(t, ok)
	require.Equal(t, epoch.Add(10*time.Second), earliest)

	_, ok = r.FindExpired(epoch.Add(9 * time.Second))
	require.False(t, ok)

	// First expired in id order.
	expired, ok := r.FindExpired(epoch.Add(10 * time.Second))
	require.True(t, ok)
	require.Equal(t, 2, expired.ID)
	require.True(t, r.Contains(2))

	reaped, ok := r.ReapExpired(epoch.Add(10 * time.Second))
	require.True(t, ok)
	require.Equal(t, 2, reaped.ID)
	require.False(t, r.Contains(2))

	reaped, ok = r.ReapExpired(epoch.Add(10 * time.Second))
	require.True(t, ok)
	require.Equal(t, 3, reaped.ID)

	_, ok = r.ReapExpired(epoch.Add(10 * time.Second))
	require.False(t, ok)
	require.Equal(t, 1, r.Len())
}

// TestSnapshot_IsCopy ensures callers cannot mutate registry state through snapshots.
func TestSnapshot_IsCopy(t *testing.T) {
	t.Parallel()

	r := New()
	_, err := r.Insert(request(1, 1, 1, "m"), epoch)
	require.NoError(t, err)

	snap, ok := r.Snapshot(1)
	require.True(t, ok)

	snap.Message = "mutated"

	again, _ := r.Snapshot(1)
	require.Equal(t, "m", again.Message)
}

// TestConcurrentInserts_Unique races inserts of the same ids and checks exactly one wins per id.
func TestConcurrentInserts_Unique(t *testing.T) {
	t.Parallel()

	const (
		writers = 8
		ids     = 50
	)

	var (
		r    = New()
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins = make(map[int]int, ids)
	)

	for range writers {
		wg.Go(func() {
			for id := 1; id <= ids; id++ {
				if _, err := r.Insert(request(id, id%3, 60, "m"), epoch); err == nil {
					mu.Lock()
					wins[id]++
					mu.Unlock()
				} else if !errors.Is(err, domain.ErrDuplicateID) {
					t.Errorf("insert %d: unexpected error %v", id, err)
				}
			}
		})
	}

	wg.Wait()

	require.Equal(t, ids, r.Len())
	require.Len(t, r.TakePending(), ids)

	for id := 1; id <= ids; id++ {
		require.Equal(t, 1, wins[id], "id %d", id)
	}
}

// TestCommitHooks_RunBeforeWake checks every hook sees the committed alarm
// before the change is queued for the dispatcher or signalled.
func TestCommitHooks_RunBeforeWake(t *testing.T) {
	t.Parallel()

	r := New()

	var seen []int

	observe := func(want int) CommitFunc {
		return func(a *domain.Alarm) {
			require.Equal(t, want, a.GroupID)
			require.Empty(t, r.pending)
			require.Empty(t, r.notify)

			seen = append(seen, a.ID)
		}
	}

	_, err := r.InsertWith(request(1, 10, 0, "A"), epoch, observe(10))
	require.NoError(t, err)
	require.Len(t, r.TakePending(), 1)
	<-r.Notify()

	_, err = r.UpdateWith(request(1, 11, 0, "A2"), epoch, observe(11))
	require.NoError(t, err)
	require.Len(t, r.TakePending(), 1)
	<-r.Notify()

	_, ok := r.ReapExpiredWith(epoch, observe(11))
	require.True(t, ok)
	require.Equal(t, []int{1, 1, 1}, seen)

	// Rejected requests never reach the hook.
	_, err = r.UpdateWith(request(1, 12, 0, "gone"), epoch, observe(12))
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.Len(t, seen, 3)
}
