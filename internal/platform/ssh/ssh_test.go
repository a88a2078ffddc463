package ssh

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/vnfstack/internal/util/keygen"
)

func testKey(t *testing.T) *keygen.KeyPair {
	t.Helper()
	kp, err := keygen.GenerateRSAKeyPair(2048, "test")
	require.NoError(t, err)
	return kp
}

func TestNewClient_RejectsIncompleteConfig(t *testing.T) {
	t.Parallel()
	key := testKey(t).PrivateKey

	cases := map[string]struct {
		cfg  Config
		want string
	}{
		"empty":   {Config{}, "missing host, user, private key"},
		"no host": {Config{User: "centos", PrivateKey: key}, "missing host"},
		"no user": {Config{Host: "10.0.1.10", PrivateKey: key}, "missing user"},
		"no key":  {Config{Host: "10.0.1.10", User: "centos"}, "missing private key"},
		"bad key": {Config{Host: "10.0.1.10", User: "centos", PrivateKey: []byte("x")}, "failed to parse private key"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := NewClient(tc.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}

	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, ErrIncompleteConfig)
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()
	key := testKey(t).PrivateKey

	c, err := NewClient(Config{Host: "10.0.1.10", User: "centos", PrivateKey: key})
	require.NoError(t, err)
	assert.Equal(t, "10.0.1.10:22", c.addr)
	assert.Equal(t, connectRetries, c.retries)
	assert.Equal(t, connectBackoff, c.backoff)
	assert.Equal(t, dialTimeout, c.config.Timeout)
	assert.NotNil(t, c.config.HostKeyCallback)

	c, err = NewClient(Config{
		Host:        "fd00::10",
		Port:        2222,
		User:        "centos",
		PrivateKey:  key,
		Proxy:       "proxy.example.com:3128",
		DialTimeout: 5 * time.Second,
		MaxRetries:  10,
		RetryDelay:  2 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "[fd00::10]:2222", c.addr)
	assert.Equal(t, "proxy.example.com:3128", c.proxy)
	assert.Equal(t, 10, c.retries)
	assert.Equal(t, 2*time.Second, c.backoff)
	assert.Equal(t, 5*time.Second, c.config.Timeout)
}

func TestExecute(t *testing.T) {
	t.Parallel()
	kp := testKey(t)
	host, port := startSSHServer(t, kp.PublicKey)

	c, err := NewClient(Config{Host: host, Port: port, User: "centos", PrivateKey: kp.PrivateKey, MaxRetries: 1, RetryDelay: 10 * time.Millisecond})
	require.NoError(t, err)

	out, err := c.Execute(context.Background(), "ip link show eth1")
	require.NoError(t, err)
	assert.Equal(t, "ran: ip link show eth1", out)
}

func TestExecute_NonZeroExit(t *testing.T) {
	t.Parallel()
	kp := testKey(t)
	host, port := startSSHServer(t, kp.PublicKey)

	c, err := NewClient(Config{Host: host, Port: port, User: "centos", PrivateKey: kp.PrivateKey, MaxRetries: 1, RetryDelay: 10 * time.Millisecond})
	require.NoError(t, err)

	out, err := c.Execute(context.Background(), "exit 3")

	assert.Equal(t, "ran: exit 3", out, "output is kept")
	var cmdErr *CommandError
	require.ErrorAs(t, err, &cmdErr)
	assert.Equal(t, 3, cmdErr.ExitStatus)
	assert.Equal(t, "exit 3", cmdErr.Command)
	assert.Contains(t, err.Error(), "exited with status 3")
}

func TestExecute_ThroughProxy(t *testing.T) {
	t.Parallel()
	kp := testKey(t)
	host, port := startSSHServer(t, kp.PublicKey)
	proxy := startConnectProxy(t, true)

	c, err := NewClient(Config{
		Host:       host,
		Port:       port,
		User:       "centos",
		PrivateKey: kp.PrivateKey,
		Proxy:      proxy.addr,
		MaxRetries: 1,
		RetryDelay: 10 * time.Millisecond,
	})
	require.NoError(t, err)

	out, err := c.Execute(context.Background(), "true")
	require.NoError(t, err)
	assert.Equal(t, "ran: true", out)
	assert.Equal(t, int32(1), proxy.hits.Load())
}

func TestExecute_CanceledWhileConnecting(t *testing.T) {
	t.Parallel()
	kp := testKey(t)

	c, err := NewClient(Config{
		Host:        "127.0.0.1",
		Port:        closedPort(t),
		User:        "centos",
		PrivateKey:  kp.PrivateKey,
		MaxRetries:  3,
		RetryDelay:  100 * time.Millisecond,
		DialTimeout: 100 * time.Millisecond,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err = c.Execute(ctx, "echo test")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Less(t, time.Since(start), time.Second)
}
