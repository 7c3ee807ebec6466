package main

import (
	"github.com/adamgunderson/FMOS-LoadAvgCheck-Manager/internal/services/health"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable the LoadAvgCheck health check",
	Long: `Disable the LoadAvgCheck health check by adding it to the appliance
ignore list. Re-syncs the crontab entry first when the backup schedule
has changed. This is the command the cron entry invokes before the
backup window.`,
	RunE: runDisable,
}

func runDisable(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	return health.New(log.Logger, *managerCfg).Disable(ctx)
}
