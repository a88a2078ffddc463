package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/vnfstack/cmd/vnfstack/handlers"
)

// Exec returns the exec command.
func Exec() *cobra.Command {
	var envPath string

	cmd := &cobra.Command{
		Use:   "exec INSTANCE -- COMMAND [ARGS...]",
		Short: "Run a command on an instance over SSH",
		Long: `Exec runs a command on an instance as its sudo user, using the
instance's keypair and the environment's SSH proxy.

Example:
  vnfstack exec -e lab.yaml vnf-1 -- ip -o addr show`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return handlers.Exec(cmd.Context(), envPath, args[0], args[1:])
		},
	}

	addEnvFlag(cmd, &envPath)
	return cmd
}
