package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/vnfstack/cmd/vnfstack/handlers"
)

// Validate returns the validate command.
func Validate() *cobra.Command {
	var envPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check an environment file without contacting the cloud",
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.Validate(envPath)
		},
	}

	addEnvFlag(cmd, &envPath)
	return cmd
}
