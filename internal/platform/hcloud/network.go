package hcloud

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/vnfstack/internal/cloud"
)

// EnsureNetwork ensures the network and its subnet exist. The subnet range
// doubles as the network range. Routers are implicit in Hetzner Cloud, so
// spec.Router is ignored.
func (c *RealClient) EnsureNetwork(ctx context.Context, spec cloud.NetworkSpec) (_ *cloud.Network, err error) {
	defer c.observe("ensure_network", time.Now(), &err)

	ipRange := spec.Subnet.CIDR
	_, ipNet, err := net.ParseCIDR(ipRange)
	if err != nil {
		return nil, cloud.NewError(cloud.KindFatal, "ensure network", spec.Name, fmt.Errorf("invalid subnet ip range: %w", err))
	}
	if spec.Router != nil {
		log.Printf("[hcloud] Network %s: routers are implicit, ignoring router %s", spec.Name, spec.Router.Name)
	}

	sameRange := func(n *hcloud.Network) error {
		if n.IPRange != nil && !n.IPRange.Contains(ipNet.IP) {
			return cloud.NewError(cloud.KindConflict, "ensure network", spec.Name,
				fmt.Errorf("network exists with IP range %s which does not contain %s", n.IPRange, ipRange))
		}
		return nil
	}
	network, err := ensure(ctx, c, "network", spec.Name, c.client.Network.Get, sameRange,
		func(ctx context.Context) (*hcloud.Network, *hcloud.Action, error) {
			n, _, err := c.client.Network.Create(ctx, hcloud.NetworkCreateOpts{
				Name:    spec.Name,
				IPRange: ipNet,
				Labels:  c.resourceLabels(nil),
			})
			return n, nil, err
		})
	if err != nil {
		return nil, err
	}

	if err := c.ensureSubnet(ctx, network, ipNet); err != nil {
		return nil, classify("ensure subnet", spec.Subnet.Name, err)
	}

	return &cloud.Network{
		ID:       formatID(network.ID),
		Name:     network.Name,
		SubnetID: ipNet.String(),
		CIDR:     ipNet.String(),
	}, nil
}

// ensureSubnet ensures that a cloud subnet with the given range exists in the network.
func (c *RealClient) ensureSubnet(ctx context.Context, network *hcloud.Network, ipNet *net.IPNet) error {
	for _, subnet := range network.Subnets {
		if subnet.IPRange != nil && subnet.IPRange.String() == ipNet.String() {
			return nil
		}
	}

	action, _, err := c.client.Network.AddSubnet(ctx, network, hcloud.NetworkAddSubnetOpts{
		Subnet: hcloud.NetworkSubnet{
			Type:        hcloud.NetworkSubnetTypeCloud,
			IPRange:     ipNet,
			NetworkZone: hcloud.NetworkZone(c.networkZone),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to add subnet: %w", err)
	}

	if err := waitForActions(ctx, c.client, action); err != nil {
		return fmt.Errorf("failed to wait for subnet creation: %w", err)
	}
	return nil
}

// FindNetwork returns the network with the given name, or nil.
func (c *RealClient) FindNetwork(ctx context.Context, name string) (_ *cloud.Network, err error) {
	defer c.observe("find_network", time.Now(), &err)

	network, _, err := c.client.Network.Get(ctx, name)
	if err != nil {
		return nil, classify("find network", name, err)
	}
	if network == nil {
		return nil, nil
	}

	out := &cloud.Network{ID: formatID(network.ID), Name: network.Name}
	if network.IPRange != nil {
		out.CIDR = network.IPRange.String()
	}
	if len(network.Subnets) > 0 && network.Subnets[0].IPRange != nil {
		out.SubnetID = network.Subnets[0].IPRange.String()
	}
	return out, nil
}

// TeardownNetwork deletes the network. Subnets go with it.
func (c *RealClient) TeardownNetwork(ctx context.Context, spec cloud.NetworkSpec) (err error) {
	defer c.observe("teardown_network", time.Now(), &err)

	return deleteIfExists(ctx, c, "network", spec.Name, c.client.Network.Get, c.client.Network.Delete)
}

// attachment is the decoded form of a virtual port ID.
type attachment struct {
	networkID int64
	ip        string
}

// Virtual port IDs have the form "<network id>/<ip>"; the ip may be empty.
func encodePortID(networkID int64, ip string) string {
	return formatID(networkID) + "/" + ip
}

func decodePortID(id string) (attachment, error) {
	netID, ip, ok := strings.Cut(id, "/")
	if !ok {
		return attachment{}, fmt.Errorf("malformed port id %q", id)
	}
	n, err := strconv.ParseInt(netID, 10, 64)
	if err != nil {
		return attachment{}, fmt.Errorf("malformed port id %q: %w", id, err)
	}
	return attachment{networkID: n, ip: ip}, nil
}

// FindPort always reports no port: virtual ports do not exist remotely.
func (c *RealClient) FindPort(context.Context, string) (*cloud.Port, error) {
	return nil, nil
}

// CreatePort validates the network and returns a virtual port.
func (c *RealClient) CreatePort(ctx context.Context, opts cloud.PortCreateOpts) (_ *cloud.Port, err error) {
	defer c.observe("create_port", time.Now(), &err)

	netID, err := parseID("create port", opts.NetworkID)
	if err != nil {
		return nil, err
	}
	network, _, err := c.client.Network.GetByID(ctx, netID)
	if err != nil {
		return nil, classify("create port", opts.Name, err)
	}
	if network == nil {
		return nil, cloud.NotFound("get network", opts.NetworkID)
	}
	if opts.FixedIP != "" {
		ip := net.ParseIP(opts.FixedIP)
		if ip == nil || (network.IPRange != nil && !network.IPRange.Contains(ip)) {
			return nil, cloud.NewError(cloud.KindFatal, "create port", opts.Name,
				fmt.Errorf("fixed ip %q is not inside network %s", opts.FixedIP, network.Name))
		}
	}

	port := &cloud.Port{
		ID:        encodePortID(netID, opts.FixedIP),
		Name:      opts.Name,
		NetworkID: opts.NetworkID,
	}
	if opts.FixedIP != "" {
		port.FixedIPs = []string{opts.FixedIP}
	}
	return port, nil
}

// DeletePort is a no-op: the attachment is released with its server.
func (c *RealClient) DeletePort(context.Context, string) error {
	return nil
}
