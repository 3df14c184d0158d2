package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/alarm-groups/internal/config"
	domain "github.com/oshokin/alarm-groups/internal/domain/alarm"
	"github.com/oshokin/alarm-groups/internal/logger"
	"github.com/oshokin/alarm-groups/internal/service/common"
)

// Options configures a single alarm request.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides server address from config when specified.
	ServerAddress string

	// Request is the alarm to start or change.
	Request domain.Request

	// Change sends an update instead of an insert.
	Change bool

	// Attempts caps delivery attempts while the scheduler is unavailable, zero means unlimited.
	Attempts int
}

// Sender is the subset of the scheduler client used to push requests.
type Sender interface {
	InsertAlarm(ctx context.Context, req *domain.Request) (*domain.Alarm, error)
	UpdateAlarm(ctx context.Context, req *domain.Request) (*domain.Alarm, error)
}

// defaultPushInterval defines retry delay when the scheduler is unreachable.
const defaultPushInterval = 1 * time.Second

// ErrGaveUp is returned when every allowed attempt hit an unavailable scheduler.
var ErrGaveUp = errors.New("scheduler stayed unavailable")

// Run loads settings, dials the scheduler and pushes the request.
func Run(ctx context.Context, opts *Options) (*domain.Alarm, error) {
	ctx = logger.WithName(ctx, "alarm-ctl")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	// Identify current user and hostname for the scheduler's audit log.
	actor, err := common.DetectActor()
	if err != nil {
		return nil, err
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return nil, err
	}

	defer func() {
		_ = client.Close()
	}()

	req := opts.Request
	req.Actor = actor

	logger.InfoKV(ctx, "Pushing alarm request",
		"server_address", serverAddress,
		"alarm_id", req.ID,
		"change", opts.Change,
	)

	return Push(ctx, client, &req, opts.Change, opts.Attempts, defaultPushInterval)
}

// Push sends req and retries every interval while the scheduler is unavailable.
// Rejections such as duplicate or unknown ids are returned at once.
func Push(
	ctx context.Context,
	sender Sender,
	req *domain.Request,
	change bool,
	attempts int,
	interval time.Duration,
) (*domain.Alarm, error) {
	send := sender.InsertAlarm
	if change {
		send = sender.UpdateAlarm
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		a, err := send(ctx, req)
		if err == nil {
			logger.InfoKV(ctx, "Alarm accepted",
				"alarm_id", a.ID,
				"group_id", a.GroupID,
				"interval", a.Interval.String(),
				"deadline", a.Deadline.Format(time.RFC3339),
			)

			return a, nil
		}

		if !errors.Is(err, common.ErrUnavailable) {
			return nil, err
		}

		logger.WarnKV(ctx, "Scheduler unavailable, retrying", "attempt", attempt, "error", err)

		if attempts > 0 && attempt >= attempts {
			return nil, fmt.Errorf("%w after %d attempts: %w", ErrGaveUp, attempt, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
