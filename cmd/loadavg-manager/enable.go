package main

import (
	"github.com/adamgunderson/FMOS-LoadAvgCheck-Manager/internal/services/health"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable the LoadAvgCheck health check",
	Long: `Enable the LoadAvgCheck health check by removing it from the appliance
ignore list. Waits 15 minutes first so the post-backup load average can
settle; skip the wait with --no-wait or NO_WAIT=1. This is the command
the post-backup hook invokes.`,
	RunE: runEnable,
}

func runEnable(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	return health.New(log.Logger, *managerCfg).Enable(ctx, !managerCfg.NoWait)
}
