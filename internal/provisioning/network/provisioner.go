package network

import (
	"fmt"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/imamik/vnfstack/internal/cloud"
	"github.com/imamik/vnfstack/internal/config"
	"github.com/imamik/vnfstack/internal/provisioning"
	"github.com/imamik/vnfstack/internal/util/ptr"
)

const phase = "network"

// Provisioner ensures the configured networks exist.
type Provisioner struct{}

// NewProvisioner creates a new network provisioner.
func NewProvisioner() *Provisioner {
	return &Provisioner{}
}

// Name implements the provisioning.Phase interface.
func (p *Provisioner) Name() string {
	return phase
}

// Provision implements the provisioning.Phase interface.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	for i, nc := range ctx.Config.Networks {
		ctx.Observer.Progress(phase, i+1, len(ctx.Config.Networks))

		existing, err := ctx.Provider.FindNetwork(ctx, nc.Name)
		if err != nil {
			return fmt.Errorf("failed to look up network %s: %w", nc.Name, err)
		}
		if existing == nil {
			provisioning.LogResourceCreating(ctx.Observer, phase, "network", nc.Name)
		}

		// EnsureNetwork also completes a partially created network.
		n, err := ctx.Provider.EnsureNetwork(ctx, Spec(nc))
		if err != nil {
			return fmt.Errorf("failed to ensure network %s: %w", nc.Name, err)
		}
		ctx.State.Networks[nc.Name] = n

		if existing != nil {
			provisioning.LogResourceExists(ctx.Observer, phase, "network", nc.Name, n.ID)
		} else {
			provisioning.LogResourceCreated(ctx.Observer, phase, "network", nc.Name, n.ID)
		}
	}
	return nil
}

// Clean tears the configured networks down in reverse order. A failure is
// reported and the remaining networks are still attempted.
func (p *Provisioner) Clean(ctx *provisioning.Context) error {
	var errs []error
	nets := ctx.Config.Networks
	for i := len(nets) - 1; i >= 0; i-- {
		nc := nets[i]
		provisioning.LogResourceDeleting(ctx.Observer, phase, "network", nc.Name)
		if err := ctx.Provider.TeardownNetwork(ctx, Spec(nc)); err != nil && !cloud.IsNotFound(err) {
			provisioning.LogResourceFailed(ctx.Observer, phase, "network", nc.Name, err)
			errs = append(errs, fmt.Errorf("failed to tear down network %s: %w", nc.Name, err))
			continue
		}
		delete(ctx.State.Networks, nc.Name)
		provisioning.LogResourceDeleted(ctx.Observer, phase, "network", nc.Name)
	}
	return utilerrors.NewAggregate(errs)
}

// Spec converts a network configuration into a provider network spec.
// DHCP is enabled unless the configuration turns it off.
func Spec(nc config.NetworkConfig) cloud.NetworkSpec {
	sub := nc.Subnet
	dhcp := sub.EnableDHCP
	if dhcp == nil {
		dhcp = ptr.To(true)
	}

	spec := cloud.NetworkSpec{
		Name: nc.Name,
		Subnet: cloud.SubnetSpec{
			Name:           sub.Name,
			CIDR:           sub.CIDR,
			IPVersion:      sub.IPVersion,
			GatewayIP:      sub.GatewayIP,
			DNSNameservers: sub.DNSNameservers,
			EnableDHCP:     dhcp,
		},
	}
	for _, pool := range sub.AllocationPools {
		spec.Subnet.AllocationPools = append(spec.Subnet.AllocationPools, cloud.AllocationPool{
			Start: pool.Start,
			End:   pool.End,
		})
	}
	if r := nc.Router; r != nil {
		spec.Router = &cloud.RouterSpec{Name: r.Name, ExternalNetwork: r.ExternalGateway}
	}
	return spec
}
