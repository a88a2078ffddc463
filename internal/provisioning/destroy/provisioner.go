package destroy

import (
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/imamik/vnfstack/internal/provisioning"
	"github.com/imamik/vnfstack/internal/provisioning/compute"
	"github.com/imamik/vnfstack/internal/provisioning/image"
	"github.com/imamik/vnfstack/internal/provisioning/keypair"
	"github.com/imamik/vnfstack/internal/provisioning/network"
)

// Cleaner removes what a phase created.
type Cleaner interface {
	Clean(ctx *provisioning.Context) error
}

// Provisioner handles environment destruction.
type Provisioner struct {
	// CleanImages also deletes the images and their local copies.
	CleanImages bool

	// Steps overrides the default teardown order.
	Steps []Cleaner
}

// NewProvisioner creates a new destroy provisioner.
func NewProvisioner(cleanImages bool) *Provisioner {
	return &Provisioner{CleanImages: cleanImages}
}

// Name implements the provisioning.Phase interface.
func (p *Provisioner) Name() string {
	return "destroy"
}

func (p *Provisioner) steps() []Cleaner {
	if p.Steps != nil {
		return p.Steps
	}
	steps := []Cleaner{
		compute.NewProvisioner(),
		keypair.NewProvisioner(),
		network.NewProvisioner(),
	}
	if p.CleanImages {
		steps = append(steps, image.NewProvisioner())
	}
	return steps
}

// Provision destroys the environment. A failing step does not stop the
// following ones.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	ctx.Observer.Printf("[destroy] Destroying environment %s", ctx.Config.Name)

	var errs []error
	for _, step := range p.steps() {
		if err := step.Clean(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := utilerrors.NewAggregate(errs); err != nil {
		ctx.Observer.Printf("[destroy] Environment %s destroyed with %d failed steps", ctx.Config.Name, len(errs))
		return err
	}

	ctx.Observer.Printf("[destroy] Environment %s destroyed", ctx.Config.Name)
	return nil
}
