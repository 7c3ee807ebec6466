package main

import (
	"github.com/adamgunderson/FMOS-LoadAvgCheck-Manager/internal/services/manager"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Update the stored API credentials",
	Long: `Prompt for control-panel API credentials, validate them with a live
login and store them beside the executable. The stored encoding is
reversible, not encrypted; prefer FMOS_API_USER / FMOS_API_PASS when the
environment can provide them.`,
	RunE: runCredentials,
}

func runCredentials(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	return manager.New(log.Logger, *managerCfg).UpdateCredentials(ctx)
}
