package playbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/vnfstack/internal/config"
	"github.com/imamik/vnfstack/internal/provisioning"
	testutil "github.com/imamik/vnfstack/internal/testing"
)

func TestStateResolver_Credentials(t *testing.T) {
	t.Parallel()
	cfg := testutil.NewConfigBuilder().Build()
	cfg.OpenStack.Connection = config.ConnectionConfig{
		Username:   "admin",
		Password:   "secret",
		AuthURL:    "https://keystone:5000/v3",
		TenantName: "legacy",
	}
	r := &stateResolver{cfg: cfg, state: provisioning.NewState()}

	tests := []struct {
		field config.CredentialField
		want  string
	}{
		{config.CredUsername, "admin"},
		{config.CredPassword, "secret"},
		{config.CredAuthURL, "https://keystone:5000/v3"},
		{config.CredProject, "legacy"},
	}
	for _, tt := range tests {
		got, err := r.Credential(tt.field)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.field)
	}

	_, err := r.Credential("token")
	assert.Error(t, err)

	cfg.Provider = config.ProviderHCloud
	_, err = r.Credential(config.CredUsername)
	assert.Error(t, err)
}

func TestStateResolver_MissingInstance(t *testing.T) {
	t.Parallel()
	r := &stateResolver{cfg: testutil.NewConfigBuilder().Build(), state: provisioning.NewState()}

	_, err := r.FloatingIP("vnf-1")
	assert.Error(t, err)
	_, err = r.PortAttr("vnf-1", "p", config.PortAttrIP)
	assert.Error(t, err)
}

func TestStateResolver_Ports(t *testing.T) {
	t.Parallel()
	e := newEnv(t)
	cfg := e.builder.Build()
	cfg.Instances[0].FloatingIP = nil
	ctx := e.provision(t, cfg)
	r := &stateResolver{cfg: cfg, state: ctx.State}

	ip, err := r.PortAttr("vnf-1", "vnf-1-mgmt", config.PortAttrIP)
	require.NoError(t, err)
	assert.Equal(t, "10.0.1.10", ip)

	mac, err := r.PortAttr("vnf-1", "vnf-1-mgmt", config.PortAttrMAC)
	require.NoError(t, err)
	assert.NotEmpty(t, mac)

	_, err = r.PortAttr("vnf-1", "nope", config.PortAttrIP)
	assert.Error(t, err)

	_, err = r.FloatingIP("vnf-1")
	assert.ErrorContains(t, err, "has no floating ip")
}
