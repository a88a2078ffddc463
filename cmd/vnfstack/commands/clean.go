package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/vnfstack/cmd/vnfstack/handlers"
)

// Clean returns the clean command.
func Clean() *cobra.Command {
	var (
		envPath     string
		cleanImages bool
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the environment's resources",
		Long: `Clean removes the resources of the environment in dependency order:
  - Instances with their floating IPs and ports
  - Keypairs
  - Routers, subnets and networks
  - Images and downloaded image files (only with --clean-image)

A failure is reported and the remaining resources are still removed.

Example:
  vnfstack clean -e lab.yaml --clean-image`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Clean(cmd.Context(), envPath, cleanImages)
		},
	}

	addEnvFlag(cmd, &envPath)
	cmd.Flags().BoolVar(&cleanImages, "clean-image", false, "Also delete images and their local copies")

	return cmd
}
