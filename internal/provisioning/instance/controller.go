package instance

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/vnfstack/internal/cloud"
	"github.com/imamik/vnfstack/internal/config"
	"github.com/imamik/vnfstack/internal/metrics"
	"github.com/imamik/vnfstack/internal/util/labels"
	"github.com/imamik/vnfstack/internal/util/poll"
)

// Cloud is the part of a provider the controller needs.
type Cloud interface {
	cloud.Compute
	cloud.Networking
}

// Prober checks whether an address accepts an authenticated SSH session.
type Prober interface {
	Probe(ctx context.Context, address, user string, privateKey []byte) bool
}

// ProbeFunc adapts a function to Prober.
type ProbeFunc func(ctx context.Context, address, user string, privateKey []byte) bool

// Probe implements Prober.
func (f ProbeFunc) Probe(ctx context.Context, address, user string, privateKey []byte) bool {
	return f(ctx, address, user, privateKey)
}

// Settings configures a Controller.
type Settings struct {
	// Timeouts defaults to config.LoadTimeouts().
	Timeouts *config.Timeouts
	Logger   logr.Logger

	// OnTransition is called for every observed status change.
	OnTransition func(name string, from, to cloud.ServerStatus)
}

// Controller creates, waits for and destroys instances.
type Controller struct {
	cloud    Cloud
	prober   Prober
	timeouts *config.Timeouts
	log      logr.Logger
	notify   func(name string, from, to cloud.ServerStatus)
	attacher *Attacher
}

// NewController returns a controller operating on c.
func NewController(c Cloud, prober Prober, settings Settings) *Controller {
	t := settings.Timeouts
	if t == nil {
		t = config.LoadTimeouts()
	}
	return &Controller{
		cloud:    c,
		prober:   prober,
		timeouts: t,
		log:      settings.Logger,
		notify:   settings.OnTransition,
		attacher: NewAttacher(c, t.FloatingIP, t.PollInterval, settings.Logger),
	}
}

// Lookup resolves what already exists for spec: the instance, its ports
// and its floating IP. The returned handle has an empty ID when no instance
// with the spec's name exists.
func (c *Controller) Lookup(ctx context.Context, spec Spec) (*Handle, error) {
	h := newHandle(spec)

	srv, err := c.cloud.FindServer(ctx, spec.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up instance %s: %w", spec.Name, err)
	}
	for i, ps := range spec.Ports {
		port, err := c.cloud.FindPort(ctx, ps.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to look up port %s: %w", ps.Name, err)
		}
		h.ports[i] = port
	}
	if srv != nil {
		if err := h.setID(srv.ID); err != nil {
			return nil, err
		}
		h.existing = true
		h.status = srv.Status
		h.addresses = srv.Addresses
	}

	if err := c.recoverFloatingIP(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// recoverFloatingIP finds the address bound to the instance or one of its
// ports. Failing that, an unbound address allocated for the instance is
// taken, which is what a bind that ran out of retries leaves behind.
func (c *Controller) recoverFloatingIP(ctx context.Context, h *Handle) error {
	if h.spec.FloatingIP == nil && h.id == "" {
		return nil
	}
	portIDs := make(map[string]bool)
	for _, p := range h.Ports() {
		portIDs[p.ID] = true
	}

	fips, err := c.cloud.ListFloatingIPs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list floating ips: %w", err)
	}
	owner := labels.Sanitize(h.Name())
	var unbound *cloud.FloatingIP
	for i := range fips {
		f := fips[i]
		if (h.id != "" && f.ServerID == h.id) || (f.PortID != "" && portIDs[f.PortID]) {
			h.floatingIP = &f
			return nil
		}
		if unbound == nil && !f.Bound() && f.Instance != "" && labels.Sanitize(f.Instance) == owner {
			unbound = &f
		}
	}
	h.floatingIP = unbound
	return nil
}

// Create returns a handle for spec, creating the instance when none with
// the same name exists. An existing instance is returned as is, without
// polling. A new instance is polled until ACTIVE and then gets its floating
// IP. On failure after the create call the handle is returned together with
// the error so the caller can destroy it.
func (c *Controller) Create(ctx context.Context, spec Spec) (*Handle, error) {
	log := c.log.WithValues("instance", spec.Name)

	h, err := c.Lookup(ctx, spec)
	if err != nil {
		return nil, err
	}
	if h.existing {
		log.Info("instance already exists", "id", h.id, "status", string(h.status))
		return h, c.rebind(ctx, h)
	}

	if err := c.ensurePorts(ctx, h); err != nil {
		return h, err
	}

	log.Info("creating instance", "flavor", spec.Flavor, "image", spec.Image)
	srv, err := c.cloud.CreateServer(ctx, cloud.ServerCreateOpts{
		Name:     spec.Name,
		Flavor:   spec.Flavor,
		Image:    spec.Image,
		Ports:    h.Ports(),
		KeyName:  spec.KeyName,
		UserData: spec.UserData,
		Labels:   spec.Labels,
	})
	if srv != nil {
		if err := h.setID(srv.ID); err != nil {
			return h, err
		}
		c.observe(h, srv)
	}
	if err != nil {
		return h, fmt.Errorf("failed to create instance %s: %w", spec.Name, err)
	}

	ok, err := c.WaitActive(ctx, h, true)
	if err != nil {
		return h, err
	}
	if !ok {
		return h, fmt.Errorf("%w: %s after %v", ErrBootTimeout, spec.Name, c.timeouts.Boot)
	}

	if req := spec.FloatingIP; req != nil && !h.floatingIP.Bound() {
		port, found := h.Port(req.Port)
		if !found {
			return h, fmt.Errorf("instance %s: floating ip port %q is not attached", spec.Name, req.Port)
		}
		if h.floatingIP != nil {
			// left unbound by an earlier run
			return h, c.attacher.Bind(ctx, h, *port, h.floatingIP)
		}
		fip, err := c.attacher.Attach(ctx, h, *port, req.Pool)
		if fip != nil {
			h.floatingIP = fip
		}
		if err != nil {
			return h, err
		}
	}

	return h, nil
}

// rebind retries binding an unbound floating IP left on an existing ACTIVE
// instance by an earlier run.
func (c *Controller) rebind(ctx context.Context, h *Handle) error {
	req, fip := h.spec.FloatingIP, h.floatingIP
	if req == nil || fip == nil || fip.Bound() || h.status != cloud.StatusActive {
		return nil
	}
	port, found := h.Port(req.Port)
	if !found {
		return nil
	}
	c.log.Info("binding unbound floating ip", "instance", h.Name(), "address", fip.Address)
	return c.attacher.Bind(ctx, h, *port, fip)
}

func (c *Controller) ensurePorts(ctx context.Context, h *Handle) error {
	for i, ps := range h.spec.Ports {
		if h.ports[i] != nil {
			continue
		}
		network, err := c.cloud.FindNetwork(ctx, ps.Network)
		if err != nil {
			return fmt.Errorf("failed to look up network %s: %w", ps.Network, err)
		}
		if network == nil {
			return fmt.Errorf("port %s: %w", ps.Name, cloud.NotFound("find network", ps.Network))
		}
		port, err := c.cloud.CreatePort(ctx, cloud.PortCreateOpts{
			Name:      ps.Name,
			NetworkID: network.ID,
			FixedIP:   ps.IP,
		})
		if err != nil {
			return fmt.Errorf("failed to create port %s: %w", ps.Name, err)
		}
		c.log.V(1).Info("created port", "instance", h.Name(), "port", ps.Name, "id", port.ID, "ip", port.FirstIP())
		h.ports[i] = port
	}
	return nil
}

// observe records srv on h and reports status changes.
func (c *Controller) observe(h *Handle, srv *cloud.Server) {
	h.addresses = srv.Addresses
	c.setStatus(h, srv.Status, srv.RawStatus)
}

func (c *Controller) setStatus(h *Handle, status cloud.ServerStatus, raw string) {
	if status == h.status {
		return
	}
	from := h.status
	h.status = status
	c.log.Info("instance status changed", "instance", h.Name(), "from", string(from), "to", string(status), "raw", raw)
	metrics.RecordTransition(status)
	if c.notify != nil {
		c.notify(h.Name(), from, status)
	}
}

// WaitActive polls until the instance is ACTIVE. ERROR aborts immediately
// with ErrInstanceFailed. A timeout returns (false, nil). With block false
// the instance is checked once.
func (c *Controller) WaitActive(ctx context.Context, h *Handle, block bool) (bool, error) {
	if h.id == "" {
		return false, fmt.Errorf("instance %s has no remote id", h.Name())
	}

	start := time.Now()
	ok, err := poll.Until(ctx, func(ctx context.Context) (bool, error) {
		srv, err := c.cloud.GetServer(ctx, h.id)
		if err != nil {
			return false, err
		}
		c.observe(h, srv)

		switch srv.Status {
		case cloud.StatusActive:
			return true, nil
		case cloud.StatusError:
			return false, poll.Abort(fmt.Errorf("%w: %s (%s)", ErrInstanceFailed, h.Name(), srv.RawStatus))
		case cloud.StatusDeleted:
			return false, poll.Abort(fmt.Errorf("instance %s was deleted while waiting for ACTIVE", h.Name()))
		}
		return false, nil
	}, c.pollOptions("instance-active", c.timeouts.Boot, block))

	if ok {
		metrics.ObserveBoot(time.Since(start))
	}
	return ok, err
}

// WaitDeleted polls until the instance is DELETED or no longer found.
func (c *Controller) WaitDeleted(ctx context.Context, h *Handle, block bool) (bool, error) {
	if h.id == "" {
		return true, nil
	}

	return poll.Until(ctx, func(ctx context.Context) (bool, error) {
		srv, err := c.cloud.GetServer(ctx, h.id)
		if cloud.IsNotFound(err) {
			c.setStatus(h, cloud.StatusDeleted, "not found")
			return true, nil
		}
		if err != nil {
			return false, err
		}
		c.observe(h, srv)
		return srv.Status == cloud.StatusDeleted, nil
	}, c.pollOptions("instance-deleted", c.timeouts.Delete, block))
}

// WaitReachable polls until the instance accepts an SSH session. The
// instance must be ACTIVE.
func (c *Controller) WaitReachable(ctx context.Context, h *Handle, block bool) (bool, error) {
	if h.status != cloud.StatusActive {
		return false, fmt.Errorf("instance %s is %s, not ACTIVE", h.Name(), h.status)
	}
	login := h.spec.Login
	if login == nil {
		return false, fmt.Errorf("instance %s has no login configured", h.Name())
	}
	if c.prober == nil {
		return false, fmt.Errorf("no reachability prober configured")
	}
	addr := h.Address()
	if addr == "" {
		return false, fmt.Errorf("instance %s has no address", h.Name())
	}

	start := time.Now()
	ok, err := poll.Until(ctx, func(ctx context.Context) (bool, error) {
		return c.prober.Probe(ctx, addr, login.User, login.PrivateKey), nil
	}, c.pollOptions("instance-reachable", c.timeouts.SSH, block))

	if ok {
		metrics.ObserveReachable(time.Since(start))
		c.log.Info("instance reachable", "instance", h.Name(), "address", addr)
	}
	return ok, err
}

// Destroy deletes the instance and releases its floating IP and ports.
// Individual failures are logged and do not stop the remaining steps. The
// handle's ID is cleared once the deletion is confirmed; otherwise the ports
// are kept and ErrDeleteTimeout is returned.
func (c *Controller) Destroy(ctx context.Context, h *Handle) error {
	log := c.log.WithValues("instance", h.Name())

	confirmed := true
	var waitErr error
	if h.id != "" {
		log.Info("deleting instance", "id", h.id)
		if err := c.cloud.DeleteServer(ctx, h.id); err != nil && !cloud.IsNotFound(err) {
			log.Error(err, "delete request failed")
		}
		confirmed, waitErr = c.WaitDeleted(ctx, h, true)
		if waitErr != nil {
			log.Error(waitErr, "waiting for deletion failed")
		}
		if confirmed {
			h.id = ""
			log.Info("instance deleted")
		}
	}

	c.releaseFloatingIP(ctx, h, log)

	switch {
	case waitErr != nil:
		return fmt.Errorf("failed to confirm deletion of instance %s: %w", h.Name(), waitErr)
	case !confirmed:
		log.Info("keeping ports of undeleted instance")
		return fmt.Errorf("%w: %s after %v", ErrDeleteTimeout, h.Name(), c.timeouts.Delete)
	}

	c.releasePorts(ctx, h, log)
	return nil
}

func (c *Controller) releaseFloatingIP(ctx context.Context, h *Handle, log logr.Logger) {
	f := h.floatingIP
	if f == nil {
		return
	}
	if f.Bound() {
		if err := c.cloud.UnbindFloatingIP(ctx, f.ID); err != nil && !cloud.IsNotFound(err) {
			log.Error(err, "failed to unbind floating ip", "address", f.Address)
		}
	}
	if err := c.cloud.DeleteFloatingIP(ctx, f.ID); err != nil && !cloud.IsNotFound(err) {
		log.Error(err, "failed to release floating ip", "address", f.Address)
		return
	}
	log.Info("released floating ip", "address", f.Address)
	h.floatingIP = nil
}

func (c *Controller) releasePorts(ctx context.Context, h *Handle, log logr.Logger) {
	for i, p := range h.ports {
		if p == nil {
			continue
		}
		if err := c.cloud.DeletePort(ctx, p.ID); err != nil && !cloud.IsNotFound(err) {
			log.Error(err, "failed to delete port", "port", p.Name)
			continue
		}
		log.V(1).Info("deleted port", "port", p.Name)
		h.ports[i] = nil
	}
}

func (c *Controller) pollOptions(name string, timeout time.Duration, block bool) poll.Options {
	return poll.Options{
		Name:     name,
		Timeout:  timeout,
		Interval: c.timeouts.PollInterval,
		Block:    block,
		Logger:   c.log,
	}
}
