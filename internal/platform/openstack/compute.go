package openstack

import (
	"context"
	"regexp"
	"sort"
	"time"

	"github.com/gophercloud/gophercloud/openstack/compute/v2/extensions/keypairs"
	"github.com/gophercloud/gophercloud/openstack/compute/v2/servers"
	flavorutils "github.com/gophercloud/utils/openstack/compute/v2/flavors"

	"github.com/imamik/vnfstack/internal/cloud"
)

// FindServer returns the server with exactly the given name, or nil.
func (c *RealClient) FindServer(ctx context.Context, name string) (_ *cloud.Server, err error) {
	defer c.observe("find_server", time.Now(), &err)
	if err := canceled(ctx, "find server", name); err != nil {
		return nil, err
	}

	// Nova treats the name filter as a regular expression.
	pages, err := servers.List(c.compute, servers.ListOpts{Name: "^" + regexp.QuoteMeta(name) + "$"}).AllPages()
	if err != nil {
		return nil, classify("find server", name, err)
	}
	all, err := servers.ExtractServers(pages)
	if err != nil {
		return nil, classify("find server", name, err)
	}
	for i := range all {
		if all[i].Name == name {
			return toServer(&all[i]), nil
		}
	}
	return nil, nil
}

// GetServer returns the server with the given ID.
func (c *RealClient) GetServer(ctx context.Context, id string) (_ *cloud.Server, err error) {
	defer c.observe("get_server", time.Now(), &err)
	if err := canceled(ctx, "get server", id); err != nil {
		return nil, err
	}

	server, err := servers.Get(c.compute, id).Extract()
	if err != nil {
		return nil, classify("get server", id, err)
	}
	return toServer(server), nil
}

// CreateServer boots a server with the given ports as NICs. Flavor and image
// are resolved from names to IDs first.
func (c *RealClient) CreateServer(ctx context.Context, opts cloud.ServerCreateOpts) (_ *cloud.Server, err error) {
	defer c.observe("create_server", time.Now(), &err)
	if err := canceled(ctx, "create server", opts.Name); err != nil {
		return nil, err
	}

	flavorID, err := flavorutils.IDFromName(c.compute, opts.Flavor)
	if err != nil {
		return nil, classify("resolve flavor", opts.Flavor, err)
	}
	imageID, err := c.resolveImageID(ctx, opts.Image)
	if err != nil {
		return nil, err
	}

	networks := make([]servers.Network, 0, len(opts.Ports))
	for _, p := range opts.Ports {
		networks = append(networks, servers.Network{Port: p.ID})
	}

	var createOpts servers.CreateOptsBuilder = servers.CreateOpts{
		Name:      opts.Name,
		FlavorRef: flavorID,
		ImageRef:  imageID,
		Networks:  networks,
		UserData:  []byte(opts.UserData),
		Metadata:  c.resourceLabels(opts.Labels),
	}
	if opts.KeyName != "" {
		createOpts = keypairs.CreateOptsExt{
			CreateOptsBuilder: createOpts,
			KeyName:           opts.KeyName,
		}
	}

	server, err := servers.Create(c.compute, createOpts).Extract()
	if err != nil {
		return nil, classify("create server", opts.Name, err)
	}

	out := toServer(server)
	out.Name = opts.Name
	return out, nil
}

// resolveImageID looks up a glance image by name; unknown names are NotFound.
func (c *RealClient) resolveImageID(ctx context.Context, name string) (string, error) {
	image, err := c.FindImage(ctx, name)
	if err != nil {
		return "", err
	}
	if image == nil {
		return "", cloud.NotFound("resolve image", name)
	}
	return image.ID, nil
}

// DeleteServer requests deletion of the server with the given ID.
func (c *RealClient) DeleteServer(ctx context.Context, id string) (err error) {
	defer c.observe("delete_server", time.Now(), &err)
	if err := canceled(ctx, "delete server", id); err != nil {
		return err
	}

	return classify("delete server", id, servers.Delete(c.compute, id).ExtractErr())
}

// serverStatus maps nova states onto the lifecycle states. Everything that is
// neither settled nor failed counts as PENDING.
func serverStatus(raw string) cloud.ServerStatus {
	switch raw {
	case "ACTIVE":
		return cloud.StatusActive
	case "ERROR":
		return cloud.StatusError
	case "DELETED", "SOFT_DELETED":
		return cloud.StatusDeleted
	default:
		return cloud.StatusPending
	}
}

func toServer(s *servers.Server) *cloud.Server {
	return &cloud.Server{
		ID:        s.ID,
		Name:      s.Name,
		Status:    serverStatus(s.Status),
		RawStatus: s.Status,
		Addresses: serverAddresses(s.Addresses),
	}
}

// serverAddresses flattens nova's per-network address lists, ordered by
// network name.
func serverAddresses(addresses map[string]interface{}) []string {
	names := make([]string, 0, len(addresses))
	for name := range addresses {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []string
	for _, name := range names {
		entries, ok := addresses[name].([]interface{})
		if !ok {
			continue
		}
		for _, e := range entries {
			entry, ok := e.(map[string]interface{})
			if !ok {
				continue
			}
			if addr, ok := entry["addr"].(string); ok && addr != "" {
				out = append(out, addr)
			}
		}
	}
	return out
}

