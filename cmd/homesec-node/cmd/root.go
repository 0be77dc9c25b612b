package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sweeney/homesec-node/internal/app"
	"github.com/sweeney/homesec-node/internal/config"
	"github.com/sweeney/homesec-node/internal/logger"
	"github.com/sweeney/homesec-node/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides the level from the configuration file.
	logLevel string

	// rootCmd groups the node's commands.
	rootCmd = &cobra.Command{
		Use:          "homesec-node",
		Short:        "Home security front board.",
		SilenceUsage: true,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the front board control loop on real hardware.",
		Long: `Runs the front board control loop on real hardware.

Bytes from the mobile app are answered when they are commands (a/x arm and
disarm, t/s/l/e sensor queries, ? help) and forwarded to the camera bridge
otherwise. Bytes from the camera bridge are relayed back to the app.
The push-button toggles the system on and off.

Settings are read from the configuration file; if the default file does not
exist, built-in defaults are used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(cmd.Context(), options(cmd))
		},
	}

	consoleCmd = &cobra.Command{
		Use:   "console [command...]",
		Short: "Run the control loop against simulated hardware.",
		Long: `Starts the control loop with an in-memory button, LEDs, sensors and serial
links, and an interactive shell to operate them. Given arguments, runs that
single shell command and exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Console(cmd.Context(), options(cmd), args)
		},
	}

	printStateCmd = &cobra.Command{
		Use:   "print-state",
		Short: "Read the button and sensors once and exit.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.PrintState(cmd.Context(), options(cmd), cmd.OutOrStdout())
		},
	}
)

func options(cmd *cobra.Command) *app.Options {
	return &app.Options{
		ConfigPath:     configPath,
		ConfigExplicit: cmd.Flags().Changed("config"),
		LogLevel:       logLevel,
	}
}

// Execute runs the homesec-node CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		logger.Sync()
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVarP(&logLevel, "log-level", "l", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(runCmd, consoleCmd, printStateCmd)
}
