package compute

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/imamik/vnfstack/internal/cloud"
	"github.com/imamik/vnfstack/internal/config"
	"github.com/imamik/vnfstack/internal/provisioning"
	"github.com/imamik/vnfstack/internal/provisioning/instance"
)

const phase = "compute"

// Provisioner handles instance provisioning.
type Provisioner struct{}

// NewProvisioner creates a new compute provisioner.
func NewProvisioner() *Provisioner {
	return &Provisioner{}
}

// Name implements the provisioning.Phase interface.
func (p *Provisioner) Name() string {
	return phase
}

// Provision implements the provisioning.Phase interface. It stops at the
// first instance that cannot be brought to ACTIVE.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	for i, ic := range ctx.Config.Instances {
		ctx.Observer.Progress(phase, i+1, len(ctx.Config.Instances))
		if err := p.provisionInstance(ctx, ic); err != nil {
			provisioning.LogResourceFailed(ctx.Observer, phase, "instance", ic.Name, err)
			return err
		}
	}
	return nil
}

func (p *Provisioner) provisionInstance(ctx *provisioning.Context, ic config.InstanceConfig) error {
	spec, err := BuildSpec(ctx, ic)
	if err != nil {
		return err
	}

	provisioning.LogResourceCreating(ctx.Observer, phase, "instance", ic.Name)
	h, err := ctx.Controller().Create(ctx, spec)
	if h != nil {
		ctx.State.Instances[ic.Name] = h
	}
	if err != nil {
		return fmt.Errorf("failed to provision instance %s: %w", ic.Name, err)
	}

	if !h.Existing() {
		provisioning.LogResourceCreated(ctx.Observer, phase, "instance", ic.Name, h.ID())
		return nil
	}

	provisioning.LogResourceExists(ctx.Observer, phase, "instance", ic.Name, h.ID())
	if h.Status() == cloud.StatusActive {
		return nil
	}
	// An existing instance may still be booting from an earlier run.
	ok, err := ctx.Controller().WaitActive(ctx, h, true)
	if err != nil {
		return fmt.Errorf("failed waiting for instance %s: %w", ic.Name, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s after %v", instance.ErrBootTimeout, ic.Name, ctx.Timeouts.Boot)
	}
	return nil
}

// Lookup returns the handle of the configured instance, from the state when
// this run created it and from the provider otherwise.
func Lookup(ctx *provisioning.Context, ic config.InstanceConfig) (*instance.Handle, error) {
	if h, ok := ctx.State.Instance(ic.Name); ok {
		return h, nil
	}
	return ctx.Controller().Lookup(ctx, lookupSpec(ic))
}

// Inspect looks up every configured instance without changing anything.
func Inspect(ctx *provisioning.Context) ([]*instance.Handle, error) {
	handles := make([]*instance.Handle, 0, len(ctx.Config.Instances))
	for _, ic := range ctx.Config.Instances {
		h, err := Lookup(ctx, ic)
		if err != nil {
			return nil, err
		}
		handles = append(handles, h)
	}
	return handles, nil
}

// Clean destroys the configured instances in reverse order together with
// their floating IPs and ports. Every instance is attempted.
func (p *Provisioner) Clean(ctx *provisioning.Context) error {
	var errs []error
	instances := ctx.Config.Instances
	for i := len(instances) - 1; i >= 0; i-- {
		ic := instances[i]
		h, err := Lookup(ctx, ic)
		if err != nil {
			provisioning.LogResourceFailed(ctx.Observer, phase, "instance", ic.Name, err)
			errs = append(errs, err)
			continue
		}

		provisioning.LogResourceDeleting(ctx.Observer, phase, "instance", ic.Name)
		if err := ctx.Controller().Destroy(ctx, h); err != nil {
			provisioning.LogResourceFailed(ctx.Observer, phase, "instance", ic.Name, err)
			errs = append(errs, err)
			continue
		}
		delete(ctx.State.Instances, ic.Name)
		provisioning.LogResourceDeleted(ctx.Observer, phase, "instance", ic.Name)
	}
	return utilerrors.NewAggregate(errs)
}
