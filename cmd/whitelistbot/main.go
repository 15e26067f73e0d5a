package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"tysmp/whitelist/internal/config"
	"tysmp/whitelist/internal/logging"
)

const programName = "whitelistbot"

// Set at build time with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "devel"
	commit  = ""
)

var (
	globalFlags = struct {
		debug bool
	}{}
	configFile string
)

func versionString() string {
	if commit == "" {
		return version
	}
	return fmt.Sprintf("%s (commit %s)", version, commit)
}

// commonRun builds the process logger from cfg and tunes GOMAXPROCS.
func commonRun(cfg *config.Config) *slog.Logger {
	level := cfg.LogLevel
	if globalFlags.debug {
		level = "debug"
	}
	logger := logging.New(os.Stdout, level, cfg.LogFormat)
	slog.SetDefault(logger)
	_, err := maxprocs.Set(maxprocs.Logger(func(format string, v ...any) {
		logger.Info(fmt.Sprintf(format, v...), "component", programName)
	}))
	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
	logger.Info("version: "+versionString(), "component", programName)
	return logger
}

func main() {
	rootCmd := &cobra.Command{
		Use:   programName,
		Short: "Discord whitelist application bot for a Minecraft server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serveRun(cmd, args)
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().
		BoolVarP(&globalFlags.debug, "debug", "D", false, "enable debug logging")
	rootCmd.PersistentFlags().
		StringVar(&configFile, "config", "", "path to config file")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	}

	rootCmd.AddCommand(serveCommand())
	rootCmd.AddCommand(settingsCommand())
	rootCmd.AddCommand(versionCommand())

	if err := rootCmd.Execute(); err != nil {
		// cobra has already printed the error
		os.Exit(1)
	}
}

func versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), programName, versionString())
		},
	}
}
