package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/vnfstack/cmd/vnfstack/handlers"
)

// Status returns the status command.
func Status() *cobra.Command {
	var envPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of the environment's resources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Status(cmd.Context(), envPath)
		},
	}

	addEnvFlag(cmd, &envPath)
	return cmd
}
