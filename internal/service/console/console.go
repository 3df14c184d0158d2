package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	domain "github.com/oshokin/alarm-groups/internal/domain/alarm"
	"github.com/oshokin/alarm-groups/internal/logger"
)

// Prompt is printed before every command.
const Prompt = "Alarm> "

// Target abstracts the engine operations the console depends on.
type Target interface {
	InsertAlarm(ctx context.Context, req *domain.Request) (*domain.Alarm, error)
	UpdateAlarm(ctx context.Context, req *domain.Request) (*domain.Alarm, error)
	ListAlarms(ctx context.Context) []*domain.Alarm
}

// Run reads commands from in until EOF or cancellation and reports outcomes to out.
// It returns nil at EOF.
func Run(ctx context.Context, in io.Reader, out io.Writer, target Target) error {
	ctx = logger.WithName(ctx, "console")

	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}

		readErr <- scanner.Err()
	}()

	for {
		_, _ = fmt.Fprint(out, Prompt)

		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				_, _ = fmt.Fprintln(out)

				return readError(readErr)
			}

			if line == "" {
				continue
			}

			execute(ctx, out, target, line)
		}
	}
}

// execute parses and runs one line.
func execute(ctx context.Context, out io.Writer, target Target, line string) {
	cmd, err := Parse(line)
	if err != nil {
		logger.DebugKV(ctx, "Malformed command", "line", line)
		_, _ = fmt.Fprintln(out, "Invalid alarm request")

		return
	}

	switch cmd.Kind {
	case KindStart:
		if _, err = target.InsertAlarm(ctx, cmd.Request); err != nil {
			report(out, cmd.Request.ID, err)
		}
	case KindChange:
		if _, err = target.UpdateAlarm(ctx, cmd.Request); err != nil {
			report(out, cmd.Request.ID, err)
		}
	case KindList:
		list(out, target.ListAlarms(ctx))
	}
}

// report prints a rejected request in operator terms.
func report(out io.Writer, id int, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		_, _ = fmt.Fprintf(out, "No alarm with id: %d\n", id)
	case errors.Is(err, domain.ErrDuplicateID):
		_, _ = fmt.Fprintf(out, "Alarm(%d) already exists\n", id)
	default:
		_, _ = fmt.Fprintf(out, "Alarm(%d) rejected: %v\n", id, err)
	}
}

// list prints the registered alarms.
func list(out io.Writer, alarms []*domain.Alarm) {
	_, _ = fmt.Fprintln(out, "Alarms:")

	for _, a := range alarms {
		_, _ = fmt.Fprintf(out, "Alarm(%d): Group(%d) %d %s\n",
			a.ID, a.GroupID, int(a.Interval.Seconds()), a.Message)
	}
}

func readError(readErr <-chan error) error {
	select {
	case err := <-readErr:
		if err != nil {
			return fmt.Errorf("read commands: %w", err)
		}
	default:
	}

	return nil
}
