package hcloud

import (
	"context"
	"fmt"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/vnfstack/internal/cloud"
	"github.com/imamik/vnfstack/internal/util/labels"
)

// AllocateFloatingIP creates an IPv4 floating IP labelled with instance. The
// pool names its home location; unknown pools fall back to the client
// location.
func (c *RealClient) AllocateFloatingIP(ctx context.Context, pool, instance string) (_ *cloud.FloatingIP, err error) {
	defer c.observe("allocate_floating_ip", time.Now(), &err)

	loc, _, err := c.client.Location.Get(ctx, pool)
	if err != nil {
		return nil, classify("allocate floating ip", pool, err)
	}
	if loc == nil {
		if loc, err = c.resolveLocation(ctx, c.location); err != nil {
			return nil, classify("allocate floating ip", pool, err)
		}
	}
	if loc == nil {
		return nil, cloud.NewError(cloud.KindFatal, "allocate floating ip", pool,
			fmt.Errorf("pool %q is not a location and no default location is configured", pool))
	}

	var extra map[string]string
	if instance != "" {
		extra = map[string]string{labels.KeyInstance: labels.Sanitize(instance)}
	}
	res, _, err := c.client.FloatingIP.Create(ctx, hcloud.FloatingIPCreateOpts{
		Type:         hcloud.FloatingIPTypeIPv4,
		HomeLocation: loc,
		Labels:       c.resourceLabels(extra),
	})
	if err != nil {
		return nil, classify("allocate floating ip", pool, err)
	}
	if err := waitForActions(ctx, c.client, res.Action); err != nil {
		return nil, classify("allocate floating ip", pool, err)
	}
	return toFloatingIP(res.FloatingIP), nil
}

// BindFloatingIP assigns the floating IP to target.ServerID.
func (c *RealClient) BindFloatingIP(ctx context.Context, id string, target cloud.BindTarget) (err error) {
	defer c.observe("bind_floating_ip", time.Now(), &err)

	fid, err := parseID("bind floating ip", id)
	if err != nil {
		return err
	}
	sid, err := parseID("bind floating ip", target.ServerID)
	if err != nil {
		return err
	}

	action, _, err := c.client.FloatingIP.Assign(ctx, &hcloud.FloatingIP{ID: fid}, &hcloud.Server{ID: sid})
	if err != nil {
		return classify("bind floating ip", id, err)
	}
	return classify("bind floating ip", id, waitForActions(ctx, c.client, action))
}

// UnbindFloatingIP unassigns the floating IP.
func (c *RealClient) UnbindFloatingIP(ctx context.Context, id string) (err error) {
	defer c.observe("unbind_floating_ip", time.Now(), &err)

	fid, err := parseID("unbind floating ip", id)
	if err != nil {
		return err
	}
	action, _, err := c.client.FloatingIP.Unassign(ctx, &hcloud.FloatingIP{ID: fid})
	if err != nil {
		return classify("unbind floating ip", id, err)
	}
	return classify("unbind floating ip", id, waitForActions(ctx, c.client, action))
}

// DeleteFloatingIP deletes the floating IP with the given ID.
func (c *RealClient) DeleteFloatingIP(ctx context.Context, id string) (err error) {
	defer c.observe("delete_floating_ip", time.Now(), &err)

	return deleteIfExists(ctx, c, "floating IP", id, c.client.FloatingIP.Get, c.client.FloatingIP.Delete)
}

// ListFloatingIPs returns every floating IP of the project.
func (c *RealClient) ListFloatingIPs(ctx context.Context) (_ []cloud.FloatingIP, err error) {
	defer c.observe("list_floating_ips", time.Now(), &err)

	fips, err := c.client.FloatingIP.All(ctx)
	if err != nil {
		return nil, classify("list floating ips", "", err)
	}
	out := make([]cloud.FloatingIP, 0, len(fips))
	for _, f := range fips {
		out = append(out, *toFloatingIP(f))
	}
	return out, nil
}

func toFloatingIP(f *hcloud.FloatingIP) *cloud.FloatingIP {
	out := &cloud.FloatingIP{ID: formatID(f.ID), Instance: f.Labels[labels.KeyInstance]}
	if f.IP != nil {
		out.Address = f.IP.String()
	}
	if f.HomeLocation != nil {
		out.Pool = f.HomeLocation.Name
	}
	if f.Server != nil {
		out.ServerID = formatID(f.Server.ID)
	}
	return out
}
