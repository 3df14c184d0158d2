package watcher

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/oshokin/alarm-groups/internal/config"
	domain "github.com/oshokin/alarm-groups/internal/domain/alarm"
	"github.com/oshokin/alarm-groups/internal/logger"
	"github.com/oshokin/alarm-groups/internal/service/common"
)

// Options controls the polling behavior and configuration.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file.
	ConfigPath string
	// ServerAddress provides an optional gRPC server address override.
	ServerAddress string
	// PollInterval defines the interval between two listings.
	PollInterval time.Duration
	// Once prints a single listing and returns.
	Once bool
	// Out receives the listings, defaults to stdout.
	Out io.Writer
}

// Lister is the subset of the scheduler client used to read alarms.
type Lister interface {
	ListAlarms(ctx context.Context) ([]*domain.Alarm, error)
}

// DefaultPollInterval defines the fixed polling interval.
const DefaultPollInterval = 5 * time.Second

// Run lists the scheduler's alarms once or keeps polling until ctx is canceled.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "alarm-ctl")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}

	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return fmt.Errorf("dial server: %w", err)
	}

	defer func() {
		_ = client.Close()
	}()

	if opts.Once {
		alarms, listErr := client.ListAlarms(ctx)
		if listErr != nil {
			return listErr
		}

		return Render(opts.Out, alarms)
	}

	logger.InfoKV(ctx, "Polling alarms", "server_address", serverAddress, "interval", opts.PollInterval.String())

	return Watch(ctx, client, opts.Out, opts.PollInterval)
}

// Watch polls lister every interval, renders each listing and logs alarms
// that appeared, changed or disappeared since the previous poll.
// Failed polls are logged and retried on the next tick.
func Watch(ctx context.Context, lister Lister, out io.Writer, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var seen map[int]*domain.Alarm

	for {
		alarms, err := lister.ListAlarms(ctx)
		if err != nil {
			logger.ErrorKV(ctx, "List alarms failed", "error", err)
		} else {
			seen = report(ctx, seen, alarms)

			if err = Render(out, alarms); err != nil {
				return err
			}
		}

		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")
			return nil
		case <-ticker.C:
		}
	}
}

// report logs the difference between two listings and returns the new index.
func report(ctx context.Context, previous map[int]*domain.Alarm, alarms []*domain.Alarm) map[int]*domain.Alarm {
	current := make(map[int]*domain.Alarm, len(alarms))

	for _, a := range alarms {
		current[a.ID] = a

		before, ok := previous[a.ID]

		switch {
		case previous == nil:
		case !ok:
			logger.InfoKV(ctx, "Alarm appeared", "alarm_id", a.ID, "group_id", a.GroupID)
		case before.Revision != a.Revision:
			logger.InfoKV(ctx, "Alarm changed", "alarm_id", a.ID, "group_id", a.GroupID, "revision", a.Revision)
		}
	}

	for id, a := range previous {
		if _, ok := current[id]; !ok {
			logger.InfoKV(ctx, "Alarm gone", "alarm_id", id, "group_id", a.GroupID)
		}
	}

	return current
}

// Render writes one line per alarm in the order given.
func Render(out io.Writer, alarms []*domain.Alarm) error {
	if len(alarms) == 0 {
		_, err := fmt.Fprintln(out, "No alarms")
		return err
	}

	for _, a := range alarms {
		_, err := fmt.Fprintf(out, "Alarm(%d) Group(%d) every %s until %s: %s\n",
			a.ID,
			a.GroupID,
			a.Interval,
			a.Deadline.Local().Format(time.DateTime),
			a.Message,
		)
		if err != nil {
			return err
		}
	}

	return nil
}
