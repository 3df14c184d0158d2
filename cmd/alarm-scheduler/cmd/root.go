package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-groups/internal/config"
	"github.com/oshokin/alarm-groups/internal/service/server"
	"github.com/oshokin/alarm-groups/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// noConsole disables the interactive console.
	noConsole bool
	// allowMultiple skips the single-instance guard.
	allowMultiple bool

	// rootCmd represents the base command for running the scheduler.
	rootCmd = &cobra.Command{
		Use:   "alarm-scheduler [listen-address]",
		Short: "Run the group alarm scheduler.",
		Long: `Starts the alarm scheduler with its console and gRPC intakes.

Alarms are grouped: every group gets one display worker that prints the group's
alarms periodically until they expire or move to another group.

The console reads commands from standard input:
  Start_Alarm(<id>): Group(<group>) <seconds> <message>
  Change_Alarm(<id>): Group(<group>) <seconds> <message>
  List_Alarms

End of input stops the scheduler. Only the port from server_addr is used for
listening unless a listen address is passed as argument (e.g., :9090, 0.0.0.0:8080).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			return server.Run(ctx, &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				NoConsole:     noConsole,
				AllowMultiple: allowMultiple,
			})
		},
	}
)

// Execute runs the alarm-scheduler CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().BoolVar(&noConsole, "no-console", false, "run without the stdin console until signaled")
	rootCmd.Flags().BoolVar(&allowMultiple, "allow-multiple", false, "skip the single-instance check")
}
