package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/vnfstack/internal/provisioning"
	"github.com/imamik/vnfstack/internal/provisioning/destroy"
)

// newDestroyProvisioner creates the teardown phase.
var newDestroyProvisioner = func(cleanImages bool) provisioning.Phase {
	return destroy.NewProvisioner(cleanImages)
}

// Clean handles the clean command.
//
// It removes instances, keypairs and networks of the environment, and the
// images too when cleanImages is set. Every resource is attempted even when
// an earlier one fails.
func Clean(ctx context.Context, configPath string, cleanImages bool) error {
	defer flushMetrics()

	pCtx, err := setup(ctx, configPath)
	if err != nil {
		return err
	}

	if err := newDestroyProvisioner(cleanImages).Provision(pCtx); err != nil {
		return fmt.Errorf("clean failed: %w", err)
	}
	return nil
}
