package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	domain "github.com/oshokin/alarm-groups/internal/domain/alarm"
	"github.com/oshokin/alarm-groups/internal/logger"
	"github.com/oshokin/alarm-groups/internal/registry"
)

const (
	// DefaultDisplayPeriod is the pause between two display passes of a group worker.
	DefaultDisplayPeriod = 5 * time.Second
	// DefaultReaperPeriod is the pause between two expiry scans.
	DefaultReaperPeriod = time.Second
)

// ErrAlreadyRunning is returned when Run is called on a running engine.
var ErrAlreadyRunning = errors.New("engine is already running")

// Engine owns the registry and the background goroutines serving it.
type Engine struct {
	// registry is the shared alarm list.
	registry *registry.Registry
	// workers maps groups to their display worker.
	workers *workerTable
	// sink receives every event.
	sink EventSink
	// now returns the current time.
	now func() time.Time

	// displayPeriod is the pause between display passes.
	displayPeriod time.Duration
	// reaperPeriod is the pause between expiry scans.
	reaperPeriod time.Duration

	// wg tracks running group workers.
	wg sync.WaitGroup
	// running guards against concurrent Run calls.
	running atomic.Bool
}

// Option configures engine behaviour.
type Option func(*Engine)

// WithDisplayPeriod sets the pause between display passes.
func WithDisplayPeriod(period time.Duration) Option {
	return func(e *Engine) {
		if period > 0 {
			e.displayPeriod = period
		}
	}
}

// WithReaperPeriod sets the pause between expiry scans.
func WithReaperPeriod(period time.Duration) Option {
	return func(e *Engine) {
		if period > 0 {
			e.reaperPeriod = period
		}
	}
}

// WithSink replaces the default log sink.
func WithSink(sink EventSink) Option {
	return func(e *Engine) {
		if sink != nil {
			e.sink = sink
		}
	}
}

// WithClock replaces time.Now for timestamps and deadlines.
// Waits (display period, reaper period, the dispatcher's deadline timer) always
// run on the runtime clock; the dispatcher only reads the injected clock to size
// its next wait, so a frozen clock makes it re-check once per computed wait.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an engine with an empty registry.
func New(opts ...Option) *Engine {
	e := &Engine{
		registry:      registry.New(),
		workers:       newWorkerTable(),
		sink:          LogSink{},
		now:           time.Now,
		displayPeriod: DefaultDisplayPeriod,
		reaperPeriod:  DefaultReaperPeriod,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Run starts the dispatcher and the reaper and blocks until ctx is canceled
// and every goroutine, group workers included, has returned.
// Requests accepted before Run are dispatched as soon as it starts.
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer e.running.Store(false)

	ctx = logger.WithName(ctx, "scheduler")

	logger.InfoKV(ctx, "Alarm engine started",
		"display_period", e.displayPeriod.String(),
		"reaper_period", e.reaperPeriod.String(),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		e.dispatch(gctx)
		return nil
	})

	g.Go(func() error {
		e.reap(gctx)
		return nil
	})

	err := g.Wait()

	// The dispatcher has returned, so no worker can be spawned past this point.
	e.wg.Wait()

	logger.Info(ctx, "Alarm engine stopped")

	return err
}

// InsertAlarm registers a new alarm and wakes the dispatcher.
// It returns domain.ErrDuplicateID when the id is already registered.
func (e *Engine) InsertAlarm(ctx context.Context, req *domain.Request) (*domain.Alarm, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("insert alarm %d: %w", req.ID, err)
	}

	a, err := e.registry.InsertWith(req, e.now(), func(a *domain.Alarm) {
		e.sink.Emit(ctx, domain.AlarmEvent(domain.EventInserted, a, a.UpdatedAt))
	})
	if err != nil {
		logger.WarnKV(ctx, "Alarm rejected", "alarm_id", req.ID, "actor", req.Actor.String(), "error", err)

		return nil, err
	}

	return a, nil
}

// UpdateAlarm changes the group, interval and message of a registered alarm.
// It returns domain.ErrNotFound when the id is unknown.
func (e *Engine) UpdateAlarm(ctx context.Context, req *domain.Request) (*domain.Alarm, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("update alarm %d: %w", req.ID, err)
	}

	a, err := e.registry.UpdateWith(req, e.now(), func(a *domain.Alarm) {
		e.sink.Emit(ctx, domain.AlarmEvent(domain.EventChanged, a, a.UpdatedAt))
	})
	if err != nil {
		e.sink.Emit(ctx, domain.Event{
			Kind:    domain.EventUpdateRejected,
			AlarmID: req.ID,
			GroupID: req.GroupID,
			At:      e.now(),
			Message: domain.TruncateMessage(req.Message),
		})

		return nil, err
	}

	return a, nil
}

// ListAlarms returns copies of the live alarms in id order.
func (e *Engine) ListAlarms(_ context.Context) []*domain.Alarm {
	return e.registry.List()
}

// ActiveGroups returns the groups that currently have a display worker.
func (e *Engine) ActiveGroups() []int {
	return e.workers.groups()
}
