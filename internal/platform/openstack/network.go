package openstack

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/extensions/layer3/routers"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/networks"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/ports"
	"github.com/gophercloud/gophercloud/openstack/networking/v2/subnets"
	networkutils "github.com/gophercloud/utils/openstack/networking/v2/networks"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/imamik/vnfstack/internal/cloud"
)

// EnsureNetwork ensures the network, its subnet and, when requested, a router
// with an interface on the subnet. Existing resources are reused by name.
func (c *RealClient) EnsureNetwork(ctx context.Context, spec cloud.NetworkSpec) (_ *cloud.Network, err error) {
	defer c.observe("ensure_network", time.Now(), &err)
	if err := canceled(ctx, "ensure network", spec.Name); err != nil {
		return nil, err
	}

	network, err := c.findNetwork(spec.Name)
	if err != nil {
		return nil, classify("find network", spec.Name, err)
	}
	if network == nil {
		log.Printf("[openstack] Creating network %s", spec.Name)
		network, err = networks.Create(c.network, networks.CreateOpts{
			Name:         spec.Name,
			AdminStateUp: gophercloud.Enabled,
		}).Extract()
		if err != nil {
			return nil, classify("create network", spec.Name, err)
		}
	}

	subnet, err := c.ensureSubnet(network.ID, spec.Subnet)
	if err != nil {
		return nil, err
	}

	out := &cloud.Network{
		ID:       network.ID,
		Name:     network.Name,
		SubnetID: subnet.ID,
		CIDR:     subnet.CIDR,
	}

	if spec.Router != nil {
		router, err := c.ensureRouter(*spec.Router)
		if err != nil {
			return nil, err
		}
		if err := c.ensureRouterInterface(router.ID, network.ID, subnet.ID); err != nil {
			return nil, err
		}
		out.RouterID = router.ID
	}
	return out, nil
}

func (c *RealClient) findNetwork(name string) (*networks.Network, error) {
	pages, err := networks.List(c.network, networks.ListOpts{Name: name}).AllPages()
	if err != nil {
		return nil, err
	}
	all, err := networks.ExtractNetworks(pages)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Name == name {
			return &all[i], nil
		}
	}
	return nil, nil
}

func (c *RealClient) findSubnet(networkID, name string) (*subnets.Subnet, error) {
	pages, err := subnets.List(c.network, subnets.ListOpts{NetworkID: networkID, Name: name}).AllPages()
	if err != nil {
		return nil, err
	}
	all, err := subnets.ExtractSubnets(pages)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Name == name {
			return &all[i], nil
		}
	}
	return nil, nil
}

func (c *RealClient) ensureSubnet(networkID string, spec cloud.SubnetSpec) (*subnets.Subnet, error) {
	subnet, err := c.findSubnet(networkID, spec.Name)
	if err != nil {
		return nil, classify("find subnet", spec.Name, err)
	}
	if subnet != nil {
		if subnet.CIDR != spec.CIDR {
			return nil, cloud.NewError(cloud.KindConflict, "ensure subnet", spec.Name,
				fmt.Errorf("subnet exists with cidr %s, want %s", subnet.CIDR, spec.CIDR))
		}
		return subnet, nil
	}

	opts := subnets.CreateOpts{
		NetworkID:      networkID,
		Name:           spec.Name,
		CIDR:           spec.CIDR,
		IPVersion:      gophercloud.IPVersion(spec.IPVersion),
		DNSNameservers: spec.DNSNameservers,
		EnableDHCP:     spec.EnableDHCP,
	}
	if spec.GatewayIP != "" {
		gateway := spec.GatewayIP
		opts.GatewayIP = &gateway
	}
	for _, p := range spec.AllocationPools {
		opts.AllocationPools = append(opts.AllocationPools, subnets.AllocationPool{Start: p.Start, End: p.End})
	}

	log.Printf("[openstack] Creating subnet %s (%s)", spec.Name, spec.CIDR)
	subnet, err = subnets.Create(c.network, opts).Extract()
	if err != nil {
		return nil, classify("create subnet", spec.Name, err)
	}
	return subnet, nil
}

func (c *RealClient) findRouter(name string) (*routers.Router, error) {
	pages, err := routers.List(c.network, routers.ListOpts{Name: name}).AllPages()
	if err != nil {
		return nil, err
	}
	all, err := routers.ExtractRouters(pages)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Name == name {
			return &all[i], nil
		}
	}
	return nil, nil
}

func (c *RealClient) ensureRouter(spec cloud.RouterSpec) (*routers.Router, error) {
	router, err := c.findRouter(spec.Name)
	if err != nil {
		return nil, classify("find router", spec.Name, err)
	}
	if router != nil {
		return router, nil
	}

	opts := routers.CreateOpts{Name: spec.Name}
	if spec.ExternalNetwork != "" {
		extID, err := networkutils.IDFromName(c.network, spec.ExternalNetwork)
		if err != nil {
			return nil, classify("resolve external network", spec.ExternalNetwork, err)
		}
		opts.GatewayInfo = &routers.GatewayInfo{NetworkID: extID}
	}

	log.Printf("[openstack] Creating router %s", spec.Name)
	router, err = routers.Create(c.network, opts).Extract()
	if err != nil {
		return nil, classify("create router", spec.Name, err)
	}
	return router, nil
}

// ensureRouterInterface adds an interface on subnetID unless the router
// already has a port on the network.
func (c *RealClient) ensureRouterInterface(routerID, networkID, subnetID string) error {
	pages, err := ports.List(c.network, ports.ListOpts{DeviceID: routerID, NetworkID: networkID}).AllPages()
	if err != nil {
		return classify("list router ports", routerID, err)
	}
	existing, err := ports.ExtractPorts(pages)
	if err != nil {
		return classify("list router ports", routerID, err)
	}
	for _, p := range existing {
		for _, ip := range p.FixedIPs {
			if ip.SubnetID == subnetID {
				return nil
			}
		}
	}

	_, err = routers.AddInterface(c.network, routerID, routers.AddInterfaceOpts{SubnetID: subnetID}).Extract()
	return classify("add router interface", routerID, err)
}

// FindNetwork returns the network with the given name, or nil.
func (c *RealClient) FindNetwork(ctx context.Context, name string) (_ *cloud.Network, err error) {
	defer c.observe("find_network", time.Now(), &err)
	if err := canceled(ctx, "find network", name); err != nil {
		return nil, err
	}

	network, err := c.findNetwork(name)
	if err != nil {
		return nil, classify("find network", name, err)
	}
	if network == nil {
		return nil, nil
	}

	out := &cloud.Network{ID: network.ID, Name: network.Name}
	if len(network.Subnets) > 0 {
		out.SubnetID = network.Subnets[0]
		subnet, err := subnets.Get(c.network, out.SubnetID).Extract()
		if err != nil {
			return nil, classify("get subnet", out.SubnetID, err)
		}
		out.CIDR = subnet.CIDR
	}
	return out, nil
}

// TeardownNetwork removes the router interface, router, subnet and network in
// that order. Every step is attempted; failures are logged and returned
// together. Missing resources are skipped.
func (c *RealClient) TeardownNetwork(ctx context.Context, spec cloud.NetworkSpec) (err error) {
	defer c.observe("teardown_network", time.Now(), &err)
	if err := canceled(ctx, "teardown network", spec.Name); err != nil {
		return err
	}

	var errs []error
	record := func(e error) {
		if e != nil && !isNotFound(e) {
			log.Printf("[openstack] Teardown of network %s: %v", spec.Name, e)
			errs = append(errs, e)
		}
	}

	network, err := c.findNetwork(spec.Name)
	if err != nil {
		return classify("find network", spec.Name, err)
	}
	var subnet *subnets.Subnet
	if network != nil {
		subnet, err = c.findSubnet(network.ID, spec.Subnet.Name)
		record(classify("find subnet", spec.Subnet.Name, err))
	}

	if spec.Router != nil {
		router, err := c.findRouter(spec.Router.Name)
		record(classify("find router", spec.Router.Name, err))
		if router != nil {
			if subnet != nil {
				_, err := routers.RemoveInterface(c.network, router.ID, routers.RemoveInterfaceOpts{SubnetID: subnet.ID}).Extract()
				record(classify("remove router interface", router.ID, err))
			}
			record(classify("delete router", spec.Router.Name, routers.Delete(c.network, router.ID).ExtractErr()))
		}
	}

	if subnet != nil {
		record(classify("delete subnet", spec.Subnet.Name, subnets.Delete(c.network, subnet.ID).ExtractErr()))
	}
	if network != nil {
		record(classify("delete network", spec.Name, networks.Delete(c.network, network.ID).ExtractErr()))
	}

	return utilerrors.NewAggregate(errs)
}
