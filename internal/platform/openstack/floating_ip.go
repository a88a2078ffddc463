package openstack

import (
	"context"
	"strings"
	"time"

	"github.com/gophercloud/gophercloud/openstack/networking/v2/extensions/layer3/floatingips"
	networkutils "github.com/gophercloud/utils/openstack/networking/v2/networks"

	"github.com/imamik/vnfstack/internal/cloud"
	"github.com/imamik/vnfstack/internal/util/labels"
)

// Floating IP tags need a Neutron extension that is not always enabled, so
// the owning instance is kept in the description.
const instanceDescriptionPrefix = labels.KeyInstance + "="

// AllocateFloatingIP allocates an address on the external network named pool
// and records instance in its description.
func (c *RealClient) AllocateFloatingIP(ctx context.Context, pool, instance string) (_ *cloud.FloatingIP, err error) {
	defer c.observe("allocate_floating_ip", time.Now(), &err)
	if err := canceled(ctx, "allocate floating ip", pool); err != nil {
		return nil, err
	}

	networkID, err := networkutils.IDFromName(c.network, pool)
	if err != nil {
		return nil, classify("resolve external network", pool, err)
	}

	opts := floatingips.CreateOpts{FloatingNetworkID: networkID}
	if instance != "" {
		opts.Description = instanceDescriptionPrefix + instance
	}
	fip, err := floatingips.Create(c.network, opts).Extract()
	if err != nil {
		return nil, classify("allocate floating ip", pool, err)
	}
	out := toFloatingIP(fip)
	out.Pool = pool
	return out, nil
}

// BindFloatingIP associates the address with target.PortID and, when given,
// target.FixedIP on that port.
func (c *RealClient) BindFloatingIP(ctx context.Context, id string, target cloud.BindTarget) (err error) {
	defer c.observe("bind_floating_ip", time.Now(), &err)
	if err := canceled(ctx, "bind floating ip", id); err != nil {
		return err
	}

	portID := target.PortID
	_, err = floatingips.Update(c.network, id, floatingips.UpdateOpts{
		PortID:  &portID,
		FixedIP: target.FixedIP,
	}).Extract()
	return classify("bind floating ip", id, err)
}

// UnbindFloatingIP disassociates the address from its port.
func (c *RealClient) UnbindFloatingIP(ctx context.Context, id string) (err error) {
	defer c.observe("unbind_floating_ip", time.Now(), &err)
	if err := canceled(ctx, "unbind floating ip", id); err != nil {
		return err
	}

	none := ""
	_, err = floatingips.Update(c.network, id, floatingips.UpdateOpts{PortID: &none}).Extract()
	return classify("unbind floating ip", id, err)
}

// DeleteFloatingIP releases the address.
func (c *RealClient) DeleteFloatingIP(ctx context.Context, id string) (err error) {
	defer c.observe("delete_floating_ip", time.Now(), &err)
	if err := canceled(ctx, "delete floating ip", id); err != nil {
		return err
	}

	return classify("delete floating ip", id, floatingips.Delete(c.network, id).ExtractErr())
}

// ListFloatingIPs returns every floating IP visible to the project.
func (c *RealClient) ListFloatingIPs(ctx context.Context) (_ []cloud.FloatingIP, err error) {
	defer c.observe("list_floating_ips", time.Now(), &err)
	if err := canceled(ctx, "list floating ips", ""); err != nil {
		return nil, err
	}

	pages, err := floatingips.List(c.network, floatingips.ListOpts{}).AllPages()
	if err != nil {
		return nil, classify("list floating ips", "", err)
	}
	all, err := floatingips.ExtractFloatingIPs(pages)
	if err != nil {
		return nil, classify("list floating ips", "", err)
	}
	out := make([]cloud.FloatingIP, 0, len(all))
	for i := range all {
		out = append(out, *toFloatingIP(&all[i]))
	}
	return out, nil
}

func toFloatingIP(f *floatingips.FloatingIP) *cloud.FloatingIP {
	return &cloud.FloatingIP{
		ID:       f.ID,
		Address:  f.FloatingIP,
		Pool:     f.FloatingNetworkID,
		PortID:   f.PortID,
		FixedIP:  f.FixedIP,
		Instance: instanceFromDescription(f.Description),
	}
}

func instanceFromDescription(desc string) string {
	name, ok := strings.CutPrefix(desc, instanceDescriptionPrefix)
	if !ok {
		return ""
	}
	return name
}
