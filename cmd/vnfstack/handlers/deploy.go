package handlers

import (
	"context"
	"fmt"
	"log"

	"github.com/imamik/vnfstack/internal/provisioning"
	"github.com/imamik/vnfstack/internal/provisioning/compute"
	"github.com/imamik/vnfstack/internal/provisioning/image"
	"github.com/imamik/vnfstack/internal/provisioning/keypair"
	"github.com/imamik/vnfstack/internal/provisioning/network"
	"github.com/imamik/vnfstack/internal/provisioning/playbook"
)

// newDeployPhases returns the deploy pipeline in execution order.
var newDeployPhases = func(skipPlaybooks bool) []provisioning.Phase {
	phases := []provisioning.Phase{
		provisioning.NewValidationPhase(skipPlaybooks),
		image.NewProvisioner(),
		network.NewProvisioner(),
		keypair.NewProvisioner(),
		compute.NewProvisioner(),
	}
	if !skipPlaybooks {
		phases = append(phases, playbook.NewProvisioner())
	}
	return phases
}

// Deploy handles the deploy command.
//
// It creates every resource of the environment that does not exist yet and
// then runs the configured playbooks. Resources created before a failure are
// left in place; clean removes them.
func Deploy(ctx context.Context, configPath string, skipPlaybooks bool) error {
	defer flushMetrics()

	pCtx, err := setup(ctx, configPath)
	if err != nil {
		return err
	}

	log.Printf("Deploying environment %s (run %s)", pCtx.Config.Name, pCtx.RunID)
	if err := provisioning.NewPipeline(newDeployPhases(skipPlaybooks)...).Run(pCtx); err != nil {
		return fmt.Errorf("deploy failed: %w", err)
	}

	log.Printf("Environment %s deployed", pCtx.Config.Name)
	return nil
}
