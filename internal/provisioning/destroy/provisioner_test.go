package destroy

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/vnfstack/internal/cloud"
	"github.com/imamik/vnfstack/internal/config"
	"github.com/imamik/vnfstack/internal/provisioning"
	testutil "github.com/imamik/vnfstack/internal/testing"
)

type cleanerFunc func(ctx *provisioning.Context) error

func (f cleanerFunc) Clean(ctx *provisioning.Context) error { return f(ctx) }

func TestProvisionerName(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "destroy", NewProvisioner(false).Name())
}

func TestProvision_Order(t *testing.T) {
	t.Parallel()
	fx := testutil.NewFixture()
	ctx := fx.Context(t, testutil.NewConfigBuilder().Build())

	var order []string
	step := func(name string, err error) Cleaner {
		return cleanerFunc(func(*provisioning.Context) error {
			order = append(order, name)
			return err
		})
	}
	p := &Provisioner{Steps: []Cleaner{
		step("instances", nil),
		step("keypairs", errors.New("keypair api down")),
		step("networks", errors.New("network in use")),
		step("images", nil),
	}}

	err := p.Provision(ctx)

	require.Error(t, err)
	assert.Equal(t, []string{"instances", "keypairs", "networks", "images"}, order)
	assert.Contains(t, err.Error(), "keypair api down")
	assert.Contains(t, err.Error(), "network in use")
}

func TestProvision_TearsDownEnvironment(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	fx := testutil.NewFixture()
	mgmt := fx.Provider.AddNetwork("mgmt")
	fx.Provider.AddKeypair(cloud.Keypair{Name: "ops"})
	fx.Provider.AddImage(cloud.Image{Name: "centos7"})
	fx.Provider.AddServer(cloud.Server{Name: "vnf-1"})
	fx.Provider.AddPort(cloud.Port{Name: "vnf-1-mgmt", NetworkID: mgmt.ID})

	cfg := testutil.NewConfigBuilder().
		WithImage(config.ImageConfig{Name: "centos7", LocalDownloadPath: dir}).
		WithNetwork("mgmt", "10.0.1.0/24").
		WithKeypair("ops", filepath.Join(dir, "ops.pub"), filepath.Join(dir, "ops")).
		WithInstance(config.InstanceConfig{
			Name:  "vnf-1",
			Ports: []config.PortConfig{{Name: "vnf-1-mgmt", NetworkName: "mgmt"}},
		}).
		Build()
	ctx := fx.Context(t, cfg)

	require.NoError(t, NewProvisioner(false).Provision(ctx))

	servers, ports, _ := fx.Provider.Counts()
	assert.Zero(t, servers)
	assert.Zero(t, ports)
	_, ok := fx.Provider.Keypair("ops")
	assert.False(t, ok)
	_, ok = fx.Provider.Network("mgmt")
	assert.False(t, ok)
	_, ok = fx.Provider.Image("centos7")
	assert.True(t, ok, "images are kept unless requested")

	require.NoError(t, NewProvisioner(true).Provision(ctx))
	_, ok = fx.Provider.Image("centos7")
	assert.False(t, ok)
}

func TestProvision_ContinuesAfterFailure(t *testing.T) {
	t.Parallel()
	fx := testutil.NewFixture()
	fx.Provider.AddServer(cloud.Server{Name: "vnf-1"})
	fx.Provider.AddKeypair(cloud.Keypair{Name: "ops"})
	fx.Provider.Fail("FindServer", cloud.NewError(cloud.KindTransient, "find server", "vnf-1", assert.AnError))
	cfg := testutil.NewConfigBuilder().
		WithKeypair("ops", "", "").
		WithInstance(config.InstanceConfig{Name: "vnf-1"}).
		Build()
	ctx := fx.Context(t, cfg)

	err := NewProvisioner(false).Provision(ctx)

	require.Error(t, err)
	_, ok := fx.Provider.Keypair("ops")
	assert.False(t, ok, "keypairs are removed even though the instance lookup failed")
	assert.Equal(t, []string{"vnf-1"}, fx.Observer.Resources(provisioning.EventResourceFailed))
}
