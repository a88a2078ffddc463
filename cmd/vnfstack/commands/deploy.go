package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/vnfstack/cmd/vnfstack/handlers"
)

// Deploy returns the deploy command.
func Deploy() *cobra.Command {
	var (
		envPath       string
		skipPlaybooks bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Create the environment and configure its instances",
		Long: `Deploy creates every resource of the environment that does not exist yet.

Resources are created in order:
  - Images (downloaded and uploaded when missing)
  - Networks, subnets and routers
  - Keypairs (generated when the key files do not exist)
  - Instances with their ports and floating IPs

Once the instances accept SSH sessions the NIC playbook and the configured
Ansible playbooks are run. Existing resources are reused, so deploy can be
repeated after a failure.

Example:
  vnfstack deploy -e lab.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Deploy(cmd.Context(), envPath, skipPlaybooks)
		},
	}

	addEnvFlag(cmd, &envPath)
	cmd.Flags().BoolVar(&skipPlaybooks, "skip-playbooks", false, "Create resources without running any playbook")

	return cmd
}
