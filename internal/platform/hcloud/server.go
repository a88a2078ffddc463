package hcloud

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/vnfstack/internal/cloud"
	"github.com/imamik/vnfstack/internal/util/retry"
)

// FindServer returns the server with the given name, or nil.
func (c *RealClient) FindServer(ctx context.Context, name string) (_ *cloud.Server, err error) {
	defer c.observe("find_server", time.Now(), &err)

	server, _, err := c.client.Server.GetByName(ctx, name)
	if err != nil {
		return nil, classify("find server", name, err)
	}
	if server == nil {
		return nil, nil
	}
	return toServer(server), nil
}

// GetServer returns the server with the given ID.
func (c *RealClient) GetServer(ctx context.Context, id string) (_ *cloud.Server, err error) {
	defer c.observe("get_server", time.Now(), &err)

	sid, err := parseID("get server", id)
	if err != nil {
		return nil, err
	}
	server, _, err := c.client.Server.GetByID(ctx, sid)
	if err != nil {
		return nil, classify("get server", id, err)
	}
	if server == nil {
		return nil, cloud.NotFound("get server", id)
	}
	return toServer(server), nil
}

// CreateServer creates a stopped server, joins it to the networks of its
// ports and powers it on. The returned server is PENDING.
func (c *RealClient) CreateServer(ctx context.Context, opts cloud.ServerCreateOpts) (_ *cloud.Server, err error) {
	defer c.observe("create_server", time.Now(), &err)

	attachments := make([]attachment, 0, len(opts.Ports))
	for _, p := range opts.Ports {
		a, err := decodePortID(p.ID)
		if err != nil {
			return nil, cloud.NewError(cloud.KindFatal, "create server", opts.Name, err)
		}
		attachments = append(attachments, a)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Boot)
	defer cancel()

	createOpts, err := c.buildServerCreateOpts(ctx, opts)
	if err != nil {
		return nil, classify("create server", opts.Name, err)
	}

	result, err := c.createServerWithRetry(ctx, createOpts)
	if err != nil {
		return nil, classify("create server", opts.Name, err)
	}

	// From here on the server exists and is returned with any error.
	srv := toServer(result.Server)
	for _, a := range attachments {
		if err := c.attach(ctx, result.Server, a); err != nil {
			return srv, classify("create server", opts.Name, err)
		}
	}
	action, _, err := c.client.Server.Poweron(ctx, result.Server)
	if err == nil {
		err = waitForActions(ctx, c.client, action)
	}
	if err != nil {
		return srv, classify("create server", opts.Name, fmt.Errorf("failed to power on server: %w", err))
	}

	srv.Status = cloud.StatusPending
	return srv, nil
}

// buildServerCreateOpts resolves the flavor, image, key and location of
// opts. The server is created stopped so its networks can be joined first.
func (c *RealClient) buildServerCreateOpts(ctx context.Context, opts cloud.ServerCreateOpts) (hcloud.ServerCreateOpts, error) {
	out := hcloud.ServerCreateOpts{
		Name:             opts.Name,
		Labels:           c.resourceLabels(opts.Labels),
		UserData:         opts.UserData,
		StartAfterCreate: hcloud.Ptr(false),
	}

	var err error
	if out.ServerType, err = resolveNamed(ctx, "server type", opts.Flavor, c.client.ServerType.Get); err != nil {
		return out, err
	}
	if out.Image, err = c.resolveImage(ctx, opts.Image); err != nil {
		return out, err
	}
	if opts.KeyName != "" {
		key, err := resolveNamed(ctx, "ssh key", opts.KeyName, c.client.SSHKey.Get)
		if err != nil {
			return out, err
		}
		out.SSHKeys = []*hcloud.SSHKey{key}
	}
	if out.Location, err = c.resolveLocation(ctx, c.location); err != nil {
		return out, err
	}
	return out, nil
}

// createServerWithRetry creates a server with exponential backoff retry logic.
func (c *RealClient) createServerWithRetry(ctx context.Context, opts hcloud.ServerCreateOpts) (hcloud.ServerCreateResult, error) {
	var result hcloud.ServerCreateResult

	err := retry.WithExponentialBackoff(ctx, func() error {
		res, _, err := c.client.Server.Create(ctx, opts)
		if err != nil {
			if isInvalidParameter(err) {
				return retry.Fatal(err)
			}
			return err
		}
		result = res
		return nil
	}, retry.WithMaxRetries(c.timeouts.RetryMaxAttempts), retry.WithInitialDelay(c.timeouts.RetryInitialDelay))

	if err != nil {
		return result, fmt.Errorf("failed to create server: %w", err)
	}

	if err := waitForActions(ctx, c.client, result.Action); err != nil {
		return result, fmt.Errorf("failed to wait for server creation: %w", err)
	}

	return result, nil
}

// attach joins server to the network of a virtual port. Freshly created
// networks may reject attachments for a short while, so failures other than
// invalid input are retried.
func (c *RealClient) attach(ctx context.Context, server *hcloud.Server, a attachment) error {
	opts := hcloud.ServerAttachToNetworkOpts{Network: &hcloud.Network{ID: a.networkID}}
	if a.ip != "" {
		if opts.IP = net.ParseIP(a.ip); opts.IP == nil {
			return fmt.Errorf("invalid private ip: %s", a.ip)
		}
	}

	err := retry.WithExponentialBackoff(ctx, func() error {
		action, _, err := c.client.Server.AttachToNetwork(ctx, server, opts)
		if isHCloudErrorCode(err, hcloud.ErrorCodeInvalidInput, hcloud.ErrorCodeNotFound) {
			return retry.Fatal(err)
		}
		if err != nil {
			return err
		}
		return waitForActions(ctx, c.client, action)
	}, retry.WithMaxRetries(c.timeouts.RetryMaxAttempts), retry.WithInitialDelay(c.timeouts.RetryInitialDelay))
	if err != nil {
		return fmt.Errorf("failed to attach server to network %d: %w", a.networkID, err)
	}
	return nil
}

// DeleteServer requests deletion of the server with the given ID. It does
// not wait for the deletion to finish.
func (c *RealClient) DeleteServer(ctx context.Context, id string) (err error) {
	defer c.observe("delete_server", time.Now(), &err)

	sid, err := parseID("delete server", id)
	if err != nil {
		return err
	}
	_, _, err = c.client.Server.DeleteWithResult(ctx, &hcloud.Server{ID: sid})
	return classify("delete server", id, err)
}

// toServer converts an hcloud server. Hetzner Cloud has no error state;
// everything except running is reported as PENDING.
func toServer(s *hcloud.Server) *cloud.Server {
	out := &cloud.Server{
		ID:        formatID(s.ID),
		Name:      s.Name,
		RawStatus: string(s.Status),
		Status:    cloud.StatusPending,
	}
	if s.Status == hcloud.ServerStatusRunning {
		out.Status = cloud.StatusActive
	}
	if ip := s.PublicNet.IPv4.IP; ip != nil {
		out.Addresses = append(out.Addresses, ip.String())
	}
	for _, pn := range s.PrivateNet {
		if pn.IP != nil {
			out.Addresses = append(out.Addresses, pn.IP.String())
		}
	}
	return out
}
