package instance

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/vnfstack/internal/cloud"
	"github.com/imamik/vnfstack/internal/metrics"
	"github.com/imamik/vnfstack/internal/util/retry"
)

// Attacher allocates floating IPs and binds them to instance ports.
type Attacher struct {
	net      cloud.Networking
	timeout  time.Duration
	interval time.Duration
	log      logr.Logger
}

// NewAttacher returns an attacher that retries binding every interval for
// up to timeout.
func NewAttacher(n cloud.Networking, timeout, interval time.Duration, log logr.Logger) *Attacher {
	return &Attacher{net: n, timeout: timeout, interval: interval, log: log}
}

// Attach allocates an address from pool for the instance and binds it to
// port's first fixed IP. When every bind attempt fails the unbound address
// is returned without an error; it stays tagged with the instance so Destroy
// can still release it. Only allocation errors and cancellation are
// returned.
func (a *Attacher) Attach(ctx context.Context, h *Handle, port cloud.Port, pool string) (*cloud.FloatingIP, error) {
	fip, err := a.net.AllocateFloatingIP(ctx, pool, h.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to allocate floating ip from %s: %w", pool, err)
	}
	a.log.Info("allocated floating ip", "instance", h.Name(), "address", fip.Address, "pool", pool)
	return fip, a.Bind(ctx, h, port, fip)
}

// Bind binds fip to port's first fixed IP. Binding fails while the port is
// not yet visible to the control plane, so it is retried timeout/interval
// times. On success the binding is recorded on fip. Giving up is logged, not
// returned; only cancellation is.
func (a *Attacher) Bind(ctx context.Context, h *Handle, port cloud.Port, fip *cloud.FloatingIP) error {
	log := a.log.WithValues("instance", h.Name(), "port", port.Name)

	target := cloud.BindTarget{ServerID: h.ID(), PortID: port.ID, FixedIP: port.FirstIP()}
	retries := 1
	if a.interval > 0 && a.timeout > a.interval {
		retries = int(a.timeout / a.interval)
	}

	err := retry.WithExponentialBackoff(ctx, func() error {
		err := a.net.BindFloatingIP(ctx, fip.ID, target)
		metrics.RecordBindAttempt(err == nil)
		return err
	},
		retry.WithMaxRetries(retries),
		retry.WithConstantDelay(a.interval),
		retry.WithOnRetry(func(attempt int, err error) {
			log.Info("floating ip bind failed, retrying", "attempt", attempt, "address", fip.Address, "error", err.Error())
		}),
	)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Info("giving up binding floating ip", "address", fip.Address, "attempts", retries+1, "error", err.Error())
		return nil
	}

	fip.ServerID = target.ServerID
	fip.PortID = target.PortID
	fip.FixedIP = target.FixedIP
	log.Info("bound floating ip", "address", fip.Address, "fixed_ip", target.FixedIP)
	return nil
}
