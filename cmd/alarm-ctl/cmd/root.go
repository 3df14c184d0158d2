package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-groups/internal/config"
	"github.com/oshokin/alarm-groups/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// serverAddress overrides the scheduler address from the config.
	serverAddress string

	// rootCmd represents the base command for talking to a scheduler.
	rootCmd = &cobra.Command{
		Use:   "alarm-ctl",
		Short: "Start, change and list alarms on a running scheduler.",
		Long: `Talks to a running alarm-scheduler over gRPC.

The scheduler address is taken from server_addr in the configuration file unless
--server is given. Requests carry the current username and hostname.`,
		SilenceUsage: true,
	}
)

// Execute runs the alarm-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&serverAddress, "server", "s", "", "scheduler address, overrides config")

	rootCmd.AddCommand(newSendCommand(false), newSendCommand(true), newListCommand(), newWatchCommand())
}
