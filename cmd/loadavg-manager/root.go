package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/adamgunderson/FMOS-LoadAvgCheck-Manager/internal/config"
	"github.com/adamgunderson/FMOS-LoadAvgCheck-Manager/internal/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Flags.
	noLog   bool
	noWait  bool
	verbose bool
	quiet   bool

	// managerCfg is resolved once per invocation before any command runs.
	managerCfg *models.ManagerConfig
)

var rootCmd = &cobra.Command{
	Use:   "loadavg-manager",
	Short: "Manages the LoadAvgCheck health check around FMOS backups",
	Long: `loadavg-manager toggles the FMOS LoadAvgCheck health check around the
scheduled backup window so backup load spikes do not raise alerts:
  - a crontab entry disables the check five minutes before the backup
  - the FMOS post-backup hook re-enables it afterwards

Credentials for the control-panel API are stored beside the executable or
taken from FMOS_API_USER / FMOS_API_PASS.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(noLog, noWait)
		if err != nil {
			return err
		}
		managerCfg = cfg
		setupLogging(cfg)
		return nil
	},
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noLog, "no-log", false, "disable the log file for this execution (also NO_LOG=1)")
	rootCmd.PersistentFlags().BoolVar(&noWait, "no-wait", false, "skip the 15 minute wait when enabling (also NO_WAIT=1)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "enable quiet mode (errors only)")

	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(credentialsCmd)
}

// setupLogging configures zerolog with a console sink and, unless
// suppressed, an append-only file sink beside the executable.
func setupLogging(cfg *models.ManagerConfig) {
	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "2006-01-02 15:04:05"}
	console.FormatLevel = func(i interface{}) string {
		if s, ok := i.(string); ok {
			return strings.ToUpper(s)
		}
		return ""
	}

	var out zerolog.LevelWriter = zerolog.MultiLevelWriter(console)
	if !cfg.NoLog {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "WARNING: could not open log file: %v\n", err)
		} else {
			fileSink := zerolog.ConsoleWriter{Out: f, TimeFormat: "2006-01-02 15:04:05", NoColor: true}
			out = zerolog.MultiLevelWriter(console, fileSink)
		}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()

	switch {
	case quiet:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case verbose:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

// commandContext returns a context canceled on SIGINT/SIGTERM. Commands
// interrupted this way exit with code 130.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	}()

	return ctx, cancel
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
