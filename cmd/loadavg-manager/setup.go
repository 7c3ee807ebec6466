package main

import (
	"github.com/adamgunderson/FMOS-LoadAvgCheck-Manager/internal/services/manager"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure the cronjob and post-backup execution",
	Long: `Run the full setup: prompt for API credentials when none are stored,
configure the post-backup hook to re-enable the check, install the
pre-backup crontab entry and print the resulting status.`,
	RunE: runSetup,
}

func runSetup(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	return manager.New(log.Logger, *managerCfg).Setup(ctx)
}
