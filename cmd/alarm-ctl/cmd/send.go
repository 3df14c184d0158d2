package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	domain "github.com/oshokin/alarm-groups/internal/domain/alarm"
	"github.com/oshokin/alarm-groups/internal/service/client"
)

// newSendCommand builds the start or change subcommand.
func newSendCommand(change bool) *cobra.Command {
	var attempts int

	use, short := "start", "Start a new alarm."
	if change {
		use, short = "change", "Change the group, interval and message of an alarm."
	}

	cmd := &cobra.Command{
		Use:   use + " <id> <group> <seconds> <message...>",
		Short: short,
		Args:  cobra.MinimumNArgs(4), //nolint:mnd // id, group, seconds and at least one message word.
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := parseRequest(args)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			a, err := client.Run(ctx, &client.Options{
				ConfigPath:    configPath,
				ServerAddress: serverAddress,
				Request:       *req,
				Change:        change,
				Attempts:      attempts,
			})
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Alarm(%d) accepted for Group(%d)\n", a.ID, a.GroupID)

			return nil
		},
	}

	cmd.Flags().IntVarP(&attempts, "attempts", "a", 0, "give up after this many attempts while unavailable, 0 retries forever")

	return cmd
}

// parseRequest reads id, group, seconds and the message words.
func parseRequest(args []string) (*domain.Request, error) {
	var numbers [3]int

	for i, name := range []string{"id", "group", "seconds"} {
		n, err := strconv.Atoi(args[i])
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q", domain.ErrInvalidRequest, name, args[i])
		}

		numbers[i] = n
	}

	req := &domain.Request{
		ID:              numbers[0],
		GroupID:         numbers[1],
		IntervalSeconds: numbers[2],
		Message:         strings.Join(args[3:], " "),
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	return req, nil
}
