package main

import (
	"github.com/adamgunderson/FMOS-LoadAvgCheck-Manager/internal/services/manager"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove all configurations and enable the check",
	Long: `Remove the crontab entry, clear the post-backup hook, delete the stored
credentials and re-enable the check immediately. Every step is
best-effort so the system ends up enabled and unconfigured even when
individual steps fail.`,
	RunE: runCleanup,
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	return manager.New(log.Logger, *managerCfg).Cleanup(ctx)
}
