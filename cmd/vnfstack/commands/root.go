// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/vnfstack/cmd/vnfstack/handlers"
)

// Root returns the root command for the vnfstack CLI.
func Root() *cobra.Command {
	var settings handlers.Settings

	cmd := &cobra.Command{
		Use:           "vnfstack",
		Short:         "Provision VNF environments on OpenStack or Hetzner Cloud",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			handlers.Configure(settings)
		},
	}

	cmd.PersistentFlags().BoolVarP(&settings.Verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&settings.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file when the command finishes")

	cmd.AddCommand(Deploy())
	cmd.AddCommand(Clean())
	cmd.AddCommand(Status())
	cmd.AddCommand(Validate())
	cmd.AddCommand(Exec())
	cmd.AddCommand(Version())

	return cmd
}

// addEnvFlag binds the environment file flag shared by most commands.
func addEnvFlag(cmd *cobra.Command, path *string) {
	cmd.Flags().StringVarP(path, "env", "e", "", "Path to environment file (required)")
	_ = cmd.MarkFlagRequired("env")
}
