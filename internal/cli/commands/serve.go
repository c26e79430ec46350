package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	lucent "github.com/lucent-admin/lucent"
	"github.com/lucent-admin/lucent/internal/config"
)

// NewServeCommand creates the serve command. It boots a panel from
// lucent.yml; resources come from the embedding application, so a bare
// serve exposes only authentication until resources are registered.
func NewServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the admin panel",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger, err := zap.NewProduction()
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logger.Sync()

			panel, err := lucent.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("build panel: %w", err)
			}

			color.Green("Lucent listening on %s", cfg.Server.Address())
			return panel.Run()
		},
	}
}
