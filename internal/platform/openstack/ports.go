package openstack

import (
	"context"
	"time"

	"github.com/gophercloud/gophercloud/openstack/networking/v2/ports"

	"github.com/imamik/vnfstack/internal/cloud"
)

// FindPort returns the port with the given name, or nil.
func (c *RealClient) FindPort(ctx context.Context, name string) (_ *cloud.Port, err error) {
	defer c.observe("find_port", time.Now(), &err)
	if err := canceled(ctx, "find port", name); err != nil {
		return nil, err
	}

	pages, err := ports.List(c.network, ports.ListOpts{Name: name}).AllPages()
	if err != nil {
		return nil, classify("find port", name, err)
	}
	all, err := ports.ExtractPorts(pages)
	if err != nil {
		return nil, classify("find port", name, err)
	}
	for i := range all {
		if all[i].Name == name {
			return toPort(&all[i]), nil
		}
	}
	return nil, nil
}

// CreatePort creates a port on the network, with a fixed IP when one is given.
func (c *RealClient) CreatePort(ctx context.Context, opts cloud.PortCreateOpts) (_ *cloud.Port, err error) {
	defer c.observe("create_port", time.Now(), &err)
	if err := canceled(ctx, "create port", opts.Name); err != nil {
		return nil, err
	}

	createOpts := ports.CreateOpts{
		Name:      opts.Name,
		NetworkID: opts.NetworkID,
	}
	if opts.FixedIP != "" {
		createOpts.FixedIPs = []ports.IP{{IPAddress: opts.FixedIP}}
	}

	port, err := ports.Create(c.network, createOpts).Extract()
	if err != nil {
		return nil, classify("create port", opts.Name, err)
	}
	return toPort(port), nil
}

// DeletePort deletes the port with the given ID.
func (c *RealClient) DeletePort(ctx context.Context, id string) (err error) {
	defer c.observe("delete_port", time.Now(), &err)
	if err := canceled(ctx, "delete port", id); err != nil {
		return err
	}

	return classify("delete port", id, ports.Delete(c.network, id).ExtractErr())
}

func toPort(p *ports.Port) *cloud.Port {
	out := &cloud.Port{
		ID:         p.ID,
		Name:       p.Name,
		NetworkID:  p.NetworkID,
		MACAddress: p.MACAddress,
		DeviceID:   p.DeviceID,
	}
	for _, ip := range p.FixedIPs {
		out.FixedIPs = append(out.FixedIPs, ip.IPAddress)
	}
	return out
}
