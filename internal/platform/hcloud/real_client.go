package hcloud

import (
	"strconv"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/vnfstack/internal/cloud"
	"github.com/imamik/vnfstack/internal/config"
	"github.com/imamik/vnfstack/internal/metrics"
)

// ProviderName identifies this backend in logs and metrics.
const ProviderName = "hcloud"

// RealClient implements cloud.Provider using the Hetzner Cloud API.
type RealClient struct {
	client      *hcloud.Client
	timeouts    *config.Timeouts
	location    string
	networkZone string
	labels      map[string]string
}

var _ cloud.Provider = (*RealClient)(nil)

// ClientOption configures a RealClient.
type ClientOption func(*RealClient)

// WithTimeouts sets custom timeouts for the client.
func WithTimeouts(t *config.Timeouts) ClientOption {
	return func(c *RealClient) {
		c.timeouts = t
	}
}

// WithHCloudClient sets a custom hcloud client (useful for testing).
func WithHCloudClient(hc *hcloud.Client) ClientOption {
	return func(c *RealClient) {
		c.client = hc
	}
}

// WithLocation sets the location servers and floating IPs are created in.
func WithLocation(location string) ClientOption {
	return func(c *RealClient) {
		c.location = location
	}
}

// WithNetworkZone sets the zone new subnets are created in.
func WithNetworkZone(zone string) ClientOption {
	return func(c *RealClient) {
		c.networkZone = zone
	}
}

// WithLabels sets labels applied to every resource the client creates.
func WithLabels(labels map[string]string) ClientOption {
	return func(c *RealClient) {
		c.labels = labels
	}
}

// NewRealClient creates a new RealClient with optional configuration.
func NewRealClient(token string, opts ...ClientOption) *RealClient {
	c := &RealClient{
		client:      hcloud.NewClient(hcloud.WithToken(token), hcloud.WithApplication("vnfstack", "")),
		timeouts:    config.LoadTimeouts(),
		networkZone: "eu-central",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements cloud.Provider.
func (c *RealClient) Name() string { return ProviderName }

// observe records an API call. Use as: defer c.observe("op", time.Now(), &err).
func (c *RealClient) observe(op string, start time.Time, err *error) {
	metrics.RecordAPICall(ProviderName, op, *err, time.Since(start))
}

// resourceLabels merges the client labels with extra.
func (c *RealClient) resourceLabels(extra map[string]string) map[string]string {
	out := make(map[string]string, len(c.labels)+len(extra))
	for k, v := range c.labels {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// parseID converts a provider ID into an hcloud ID. Malformed IDs cannot
// exist remotely and are reported as NotFound.
func parseID(op, id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0, cloud.NewError(cloud.KindNotFound, op, id, err)
	}
	return n, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
