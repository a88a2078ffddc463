package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/vnfstack/internal/cloud"
	"github.com/imamik/vnfstack/internal/cloud/fake"
	"github.com/imamik/vnfstack/internal/config"
	"github.com/imamik/vnfstack/internal/platform/ssh"
	"github.com/imamik/vnfstack/internal/provisioning"
	"github.com/imamik/vnfstack/internal/provisioning/instance"
	testutil "github.com/imamik/vnfstack/internal/testing"
)

// harness swaps the factory variables for fakes and restores them when the
// test ends.
type harness struct {
	cfg      *config.Config
	provider *fake.Provider
	observer *testutil.RecordingObserver
	runID    string
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	h := &harness{cfg: cfg, provider: fake.New(), observer: &testutil.RecordingObserver{}}

	origLoad, origProvider, origProber, origObserver := loadConfig, newProvider, newProber, newObserver
	origMetrics, origSettings := writeMetrics, settings
	t.Cleanup(func() {
		loadConfig, newProvider, newProber, newObserver = origLoad, origProvider, origProber, origObserver
		writeMetrics, settings = origMetrics, origSettings
	})

	loadConfig = func(string) (*config.Config, error) { return h.cfg, nil }
	newProvider = func(_ *config.Config, runID string) (cloud.Provider, error) {
		h.runID = runID
		return h.provider, nil
	}
	newProber = func(*config.Config, logr.Logger) instance.Prober { return testutil.NewReachableProber() }
	newObserver = func() provisioning.Observer { return h.observer }
	return h
}

func deployConfig() *config.Config {
	cfg := testutil.NewConfigBuilder().
		WithName("lab").
		WithNetwork("mgmt", "10.0.1.0/24").
		WithInstance(config.InstanceConfig{
			Name:      "vnf-1",
			Flavor:    "m1.small",
			ImageName: "centos7",
			Ports:     []config.PortConfig{{Name: "vnf-1-mgmt", NetworkName: "mgmt", IP: "10.0.1.10"}},
		}).
		Build()
	cfg.Timeouts.Boot = time.Second
	cfg.Timeouts.PollInterval = 5 * time.Millisecond
	return cfg
}

func TestDeploy(t *testing.T) {
	h := newHarness(t, deployConfig())

	require.NoError(t, Deploy(context.Background(), "lab.yaml", true))

	servers, ports, _ := h.provider.Counts()
	assert.Equal(t, 1, servers)
	assert.Equal(t, 1, ports)
	_, ok := h.provider.Network("mgmt")
	assert.True(t, ok)
	assert.NotEmpty(t, h.runID)
	assert.Contains(t, h.observer.Resources(provisioning.EventResourceCreated), "vnf-1")
}

func TestDeploy_PhaseOrder(t *testing.T) {
	newHarness(t, deployConfig())

	names := func(phases []provisioning.Phase) []string {
		var out []string
		for _, p := range phases {
			out = append(out, p.Name())
		}
		return out
	}
	assert.Equal(t, []string{"validation", "image", "network", "keypair", "compute", "playbook"}, names(newDeployPhases(false)))
	assert.Equal(t, []string{"validation", "image", "network", "keypair", "compute"}, names(newDeployPhases(true)))
}

func TestDeploy_Failure(t *testing.T) {
	h := newHarness(t, deployConfig())
	h.provider.Fail("CreateServer", cloud.NewError(cloud.KindFatal, "create server", "vnf-1", errors.New("quota exceeded")))

	err := Deploy(context.Background(), "lab.yaml", true)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "deploy failed")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestDeploy_ConfigError(t *testing.T) {
	newHarness(t, deployConfig())
	loadConfig = func(string) (*config.Config, error) { return nil, errors.New("bad yaml") }

	err := Deploy(context.Background(), "lab.yaml", true)
	assert.EqualError(t, err, "bad yaml")
}

func TestDeploy_ProviderError(t *testing.T) {
	newHarness(t, deployConfig())
	newProvider = func(*config.Config, string) (cloud.Provider, error) { return nil, errors.New("auth failed") }

	err := Deploy(context.Background(), "lab.yaml", true)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to openstack")
}

func TestDeploy_WritesMetrics(t *testing.T) {
	newHarness(t, deployConfig())
	var written string
	writeMetrics = func(path string) error {
		written = path
		return nil
	}
	Configure(Settings{MetricsFile: "/tmp/vnfstack.prom"})

	require.NoError(t, Deploy(context.Background(), "lab.yaml", true))
	assert.Equal(t, "/tmp/vnfstack.prom", written)
}

func TestClean(t *testing.T) {
	h := newHarness(t, deployConfig())
	require.NoError(t, Deploy(context.Background(), "lab.yaml", true))

	require.NoError(t, Clean(context.Background(), "lab.yaml", false))

	servers, ports, _ := h.provider.Counts()
	assert.Zero(t, servers)
	assert.Zero(t, ports)
	_, ok := h.provider.Network("mgmt")
	assert.False(t, ok)
}

func TestClean_Failure(t *testing.T) {
	newHarness(t, deployConfig())
	orig := newDestroyProvisioner
	t.Cleanup(func() { newDestroyProvisioner = orig })
	newDestroyProvisioner = func(bool) provisioning.Phase { return failingPhase{} }

	err := Clean(context.Background(), "lab.yaml", true)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "clean failed")
}

type failingPhase struct{}

func (failingPhase) Name() string                         { return "failing" }
func (failingPhase) Provision(*provisioning.Context) error { return assert.AnError }

func TestStatus(t *testing.T) {
	h := newHarness(t, deployConfig())
	require.NoError(t, Deploy(context.Background(), "lab.yaml", true))
	h.cfg.Keypairs = []config.KeypairConfig{{Name: "ops"}}

	var buf bytes.Buffer
	orig := statusOutput
	t.Cleanup(func() { statusOutput = orig })
	statusOutput = &buf

	require.NoError(t, Status(context.Background(), "lab.yaml"))

	out := buf.String()
	assert.Contains(t, out, "vnf-1")
	assert.Contains(t, out, "ACTIVE")
	assert.Contains(t, out, "10.0.1.10")
	assert.Contains(t, out, "mgmt")
	assert.Contains(t, out, statusAbsent, "the keypair was never registered")
	assert.Equal(t, 1, h.provider.Calls("CreateServer"), "status does not create anything")
}

func TestRenderStatus(t *testing.T) {
	t.Parallel()
	rows := []ResourceStatus{
		{Kind: "instance", Name: "vnf-1", Status: "ACTIVE", ID: "srv-1", Address: "10.0.1.10", FloatingIP: "192.0.2.10"},
		{Kind: "instance", Name: "vnf-2", Status: statusAbsent},
	}

	plain := renderStatus("lab", rows, false)
	assert.Contains(t, plain, "environment lab")
	assert.Contains(t, plain, "192.0.2.10")
	assert.Contains(t, plain, "vnf-2")
	assert.NotContains(t, plain, "\x1b[", "no escape codes without a terminal")

	styled := renderStatus("lab", rows, true)
	assert.Contains(t, styled, "vnfstack status: lab")
	assert.Contains(t, styled, "srv-1")
}

func TestValidate(t *testing.T) {
	newHarness(t, deployConfig())
	var buf bytes.Buffer
	orig := validateOutput
	t.Cleanup(func() { validateOutput = orig })
	validateOutput = &buf

	require.NoError(t, Validate("lab.yaml"))

	out := buf.String()
	assert.Contains(t, out, "lab.yaml is valid")
	assert.Contains(t, out, "networks:    mgmt")
	assert.Contains(t, out, "instances:   vnf-1")
	assert.Contains(t, out, "images:      -")
}

type execStub struct {
	command string
	output  string
	err     error
}

func (s *execStub) Execute(_ context.Context, command string) (string, error) {
	s.command = command
	return s.output, s.err
}

func TestExec(t *testing.T) {
	dir := t.TempDir()
	priv := testutil.WriteFile(t, dir, "ops", "PRIVATE")
	cfg := deployConfig()
	cfg.Keypairs = []config.KeypairConfig{{Name: "ops", PublicFilepath: filepath.Join(dir, "ops.pub"), PrivateFilepath: priv}}
	cfg.Instances[0].KeypairName = "ops"
	cfg.Instances[0].SudoUser = "centos"
	cfg.SSH.Proxy = "proxy:3128"
	h := newHarness(t, cfg)
	h.provider.AddServer(cloud.Server{Name: "vnf-1", Addresses: []string{"10.0.1.10"}})

	stub := &execStub{output: "eth0 eth1\n"}
	var got ssh.Config
	var buf bytes.Buffer
	origExec, origOut := newRemoteExecutor, execOutput
	t.Cleanup(func() { newRemoteExecutor, execOutput = origExec, origOut })
	newRemoteExecutor = func(c ssh.Config) (RemoteExecutor, error) {
		got = c
		return stub, nil
	}
	execOutput = &buf

	require.NoError(t, Exec(context.Background(), "lab.yaml", "vnf-1", []string{"ls", "/sys/class/net"}))

	assert.Equal(t, "ls /sys/class/net", stub.command)
	assert.Equal(t, "eth0 eth1\n", buf.String())
	assert.Equal(t, "10.0.1.10", got.Host)
	assert.Equal(t, "centos", got.User)
	assert.Equal(t, []byte("PRIVATE"), got.PrivateKey)
	assert.Equal(t, "proxy:3128", got.Proxy)

	stub.err = &ssh.CommandError{Command: "echo 'a b'", Host: "10.0.1.10", ExitStatus: 3}
	err := Exec(context.Background(), "lab.yaml", "vnf-1", []string{"echo", "a b"})
	require.Error(t, err)
	assert.Equal(t, "echo 'a b'", stub.command, "arguments keep their quoting")
	assert.Equal(t, 3, ExitCode(err))
}

func TestExitCode(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", want: 0},
		{name: "plain error", err: errors.New("boom"), want: 1},
		{name: "remote exit status", err: fmt.Errorf("exec on vnf-1 failed: %w", &ssh.CommandError{ExitStatus: 4}), want: 4},
		{name: "no exit status", err: &ssh.CommandError{ExitStatus: -1, Err: errors.New("signal")}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestExec_Errors(t *testing.T) {
	cfg := deployConfig()
	newHarness(t, cfg)

	err := Exec(context.Background(), "lab.yaml", "other", []string{"true"})
	assert.ErrorContains(t, err, "not part of environment lab")

	err = Exec(context.Background(), "lab.yaml", "vnf-1", []string{"true"})
	assert.ErrorContains(t, err, "has no sudo_user")
}
