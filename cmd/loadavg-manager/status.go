package main

import (
	"github.com/adamgunderson/FMOS-LoadAvgCheck-Manager/internal/services/manager"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current configuration status",
	Long: `Show a read-only report: health-check state, credential source, backup
schedule, crontab entry (with an out-of-sync warning), post-backup hook
and logging destination. Never fails; sections degrade when the API is
unreachable.`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	manager.New(log.Logger, *managerCfg).Status(ctx)
	return nil
}
