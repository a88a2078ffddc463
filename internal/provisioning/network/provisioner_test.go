package network

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/vnfstack/internal/cloud"
	"github.com/imamik/vnfstack/internal/config"
	"github.com/imamik/vnfstack/internal/provisioning"
	testutil "github.com/imamik/vnfstack/internal/testing"
)

func TestSpec(t *testing.T) {
	t.Parallel()
	off := false

	tests := []struct {
		name string
		in   config.NetworkConfig
		want cloud.NetworkSpec
	}{
		{
			name: "defaults to dhcp without router",
			in: config.NetworkConfig{
				Name:   "mgmt",
				Subnet: config.SubnetConfig{Name: "mgmt-subnet", CIDR: "10.0.1.0/24", IPVersion: 4},
			},
			want: cloud.NetworkSpec{
				Name:   "mgmt",
				Subnet: cloud.SubnetSpec{Name: "mgmt-subnet", CIDR: "10.0.1.0/24", IPVersion: 4, EnableDHCP: boolPtr(true)},
			},
		},
		{
			name: "full",
			in: config.NetworkConfig{
				Name: "data",
				Subnet: config.SubnetConfig{
					Name:            "data-subnet",
					CIDR:            "192.168.10.0/24",
					IPVersion:       4,
					GatewayIP:       "192.168.10.1",
					DNSNameservers:  []string{"8.8.8.8"},
					EnableDHCP:      &off,
					AllocationPools: []config.AllocationPoolConfig{{Start: "192.168.10.100", End: "192.168.10.200"}},
				},
				Router: &config.RouterConfig{Name: "data-router", ExternalGateway: "external"},
			},
			want: cloud.NetworkSpec{
				Name: "data",
				Subnet: cloud.SubnetSpec{
					Name:            "data-subnet",
					CIDR:            "192.168.10.0/24",
					IPVersion:       4,
					GatewayIP:       "192.168.10.1",
					DNSNameservers:  []string{"8.8.8.8"},
					EnableDHCP:      boolPtr(false),
					AllocationPools: []cloud.AllocationPool{{Start: "192.168.10.100", End: "192.168.10.200"}},
				},
				Router: &cloud.RouterSpec{Name: "data-router", ExternalNetwork: "external"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Spec(tt.in))
		})
	}
}

func boolPtr(b bool) *bool { return &b }

func TestProvision(t *testing.T) {
	t.Parallel()
	fx := testutil.NewFixture()
	existing := fx.Provider.AddNetwork("mgmt")
	cfg := testutil.NewConfigBuilder().
		WithNetwork("mgmt", "10.0.1.0/24").
		WithNetwork("data", "10.0.2.0/24").
		Build()
	ctx := fx.Context(t, cfg)

	require.NoError(t, NewProvisioner().Provision(ctx))

	require.Len(t, ctx.State.Networks, 2)
	assert.Equal(t, existing.ID, ctx.State.Networks["mgmt"].ID)
	assert.Equal(t, "10.0.2.0/24", ctx.State.Networks["data"].CIDR)
	assert.Equal(t, []string{"mgmt"}, fx.Observer.Resources(provisioning.EventResourceExists))
	assert.Equal(t, []string{"data"}, fx.Observer.Resources(provisioning.EventResourceCreated))
}

func TestProvision_Error(t *testing.T) {
	t.Parallel()
	fx := testutil.NewFixture()
	fx.Provider.Fail("EnsureNetwork", errors.New("quota exceeded"))
	ctx := fx.Context(t, testutil.NewConfigBuilder().WithNetwork("mgmt", "10.0.1.0/24").Build())

	err := NewProvisioner().Provision(ctx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Empty(t, ctx.State.Networks)
}

func TestClean_ReverseOrderAndContinue(t *testing.T) {
	t.Parallel()
	fx := testutil.NewFixture()
	fx.Provider.AddNetwork("mgmt")
	fx.Provider.AddNetwork("data")
	cfg := testutil.NewConfigBuilder().
		WithNetwork("mgmt", "10.0.1.0/24").
		WithNetwork("data", "10.0.2.0/24").
		Build()
	ctx := fx.Context(t, cfg)

	require.NoError(t, NewProvisioner().Clean(ctx))

	assert.Equal(t, []string{"data", "mgmt"}, fx.Observer.Resources(provisioning.EventResourceDeleted))
	_, ok := fx.Provider.Network("mgmt")
	assert.False(t, ok)
}

func TestClean_AggregatesFailures(t *testing.T) {
	t.Parallel()
	fx := testutil.NewFixture()
	fx.Provider.Fail("TeardownNetwork", errors.New("port still in use"))
	cfg := testutil.NewConfigBuilder().
		WithNetwork("mgmt", "10.0.1.0/24").
		WithNetwork("data", "10.0.2.0/24").
		Build()
	ctx := fx.Context(t, cfg)

	err := NewProvisioner().Clean(ctx)

	require.Error(t, err)
	assert.Equal(t, 2, fx.Provider.Calls("TeardownNetwork"), "every network is attempted")
	assert.Contains(t, err.Error(), "data")
	assert.Contains(t, err.Error(), "mgmt")
}
