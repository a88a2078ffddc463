package openstack

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gophercloud/gophercloud"
	"github.com/gophercloud/gophercloud/openstack"
	"github.com/gophercloud/utils/openstack/clientconfig"

	"github.com/imamik/vnfstack/internal/cloud"
	"github.com/imamik/vnfstack/internal/config"
	"github.com/imamik/vnfstack/internal/metrics"
)

// ProviderName identifies this backend in logs and metrics.
const ProviderName = "openstack"

// RealClient implements cloud.Provider against an OpenStack cloud.
type RealClient struct {
	compute  *gophercloud.ServiceClient
	network  *gophercloud.ServiceClient
	image    *gophercloud.ServiceClient
	timeouts *config.Timeouts
	labels   map[string]string
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

// WithLabels sets metadata applied to every server the client creates.
func WithLabels(labels map[string]string) ClientOption {
	return func(c *RealClient) {
		c.labels = labels
	}
}

// NewRealClient authenticates with the given connection settings and returns
// a client bound to the compute, network and image endpoints of its region.
func NewRealClient(conn config.ConnectionConfig, opts ...ClientOption) (*RealClient, error) {
	provider, region, err := authenticate(conn)
	if err != nil {
		return nil, err
	}

	eo := gophercloud.EndpointOpts{Region: region}
	compute, err := openstack.NewComputeV2(provider, eo)
	if err != nil {
		return nil, fmt.Errorf("failed to create compute client: %w", err)
	}
	network, err := openstack.NewNetworkV2(provider, eo)
	if err != nil {
		return nil, fmt.Errorf("failed to create network client: %w", err)
	}
	image, err := openstack.NewImageServiceV2(provider, eo)
	if err != nil {
		return nil, fmt.Errorf("failed to create image client: %w", err)
	}
	return NewFromServiceClients(compute, network, image, opts...), nil
}

// NewFromServiceClients builds a client from already authenticated service
// clients.
func NewFromServiceClients(compute, network, image *gophercloud.ServiceClient, opts ...ClientOption) *RealClient {
	c := &RealClient{
		compute:  compute,
		network:  network,
		image:    image,
		timeouts: config.LoadTimeouts(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements cloud.Provider.
func (c *RealClient) Name() string { return ProviderName }

// authenticate returns an authenticated provider client and the region to use.
// A clouds.yaml entry, when named, replaces the explicit credentials.
func authenticate(conn config.ConnectionConfig) (*gophercloud.ProviderClient, string, error) {
	if conn.Cloud != "" {
		clientOpts := &clientconfig.ClientOpts{Cloud: conn.Cloud, RegionName: conn.Region}
		provider, err := clientconfig.AuthenticatedClient(clientOpts)
		if err != nil {
			return nil, "", fmt.Errorf("failed to authenticate with cloud %q: %w", conn.Cloud, err)
		}
		region := conn.Region
		if region == "" {
			entry, err := clientconfig.GetCloudFromYAML(clientOpts)
			if err != nil {
				return nil, "", fmt.Errorf("failed to read cloud %q: %w", conn.Cloud, err)
			}
			region = entry.RegionName
		}
		return provider, region, nil
	}

	authOpts := gophercloud.AuthOptions{
		IdentityEndpoint: conn.AuthURL,
		Username:         conn.Username,
		Password:         conn.Password,
		DomainName:       conn.UserDomain,
		TenantName:       conn.Project(),
		AllowReauth:      true,
	}
	if conn.ProjectDomain != "" {
		authOpts.Scope = &gophercloud.AuthScope{
			ProjectName: conn.Project(),
			DomainName:  conn.ProjectDomain,
		}
	}

	provider, err := openstack.NewClient(authOpts.IdentityEndpoint)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create identity client: %w", err)
	}
	provider.HTTPClient, err = httpClient(conn)
	if err != nil {
		return nil, "", err
	}
	if err := openstack.Authenticate(provider, authOpts); err != nil {
		return nil, "", fmt.Errorf("failed to authenticate with %s: %w", conn.AuthURL, err)
	}
	return provider, conn.Region, nil
}

// httpClient builds the HTTP client used for every API request.
func httpClient(conn config.ConnectionConfig) (http.Client, error) {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}

	if conn.HTTPProxy != "" {
		proxyURL, err := url.Parse("http://" + conn.HTTPProxy)
		if err != nil {
			return http.Client{}, fmt.Errorf("invalid http proxy %q: %w", conn.HTTPProxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	if conn.CACert != "" || conn.Insecure {
		tlsConfig := &tls.Config{InsecureSkipVerify: conn.Insecure} //nolint:gosec
		if conn.CACert != "" {
			pem, err := os.ReadFile(conn.CACert)
			if err != nil {
				return http.Client{}, fmt.Errorf("failed to read CA certificate: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return http.Client{}, errors.New("no certificates found in CA bundle " + conn.CACert)
			}
			tlsConfig.RootCAs = pool
		}
		transport.TLSClientConfig = tlsConfig
	}

	return http.Client{Transport: transport}, nil
}

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

// canceled returns a Fatal error when ctx is already done, nil otherwise.
func canceled(ctx context.Context, op, resource string) error {
	return cloud.NewError(cloud.KindFatal, op, resource, ctx.Err())
}
