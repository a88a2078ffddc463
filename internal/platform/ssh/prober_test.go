package ssh

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
)

func TestProber_Probe(t *testing.T) {
	t.Parallel()
	keyPair := testKey(t)
	other := testKey(t)
	host, port := startSSHServer(t, keyPair.PublicKey)

	p := &Prober{Port: port, DialTimeout: time.Second, Logger: logr.Discard()}
	ctx := context.Background()

	assert.True(t, p.Probe(ctx, host, "centos", keyPair.PrivateKey))
	assert.False(t, p.Probe(ctx, host, "centos", other.PrivateKey), "wrong key")
	assert.False(t, p.Probe(ctx, host, "centos", []byte("not a key")))
}

func TestProber_Unreachable(t *testing.T) {
	t.Parallel()
	keyPair := testKey(t)

	p := &Prober{Port: closedPort(t), DialTimeout: 200 * time.Millisecond}
	assert.False(t, p.Probe(context.Background(), "127.0.0.1", "centos", keyPair.PrivateKey))
}

func TestProber_Proxy(t *testing.T) {
	t.Parallel()
	keyPair := testKey(t)
	host, port := startSSHServer(t, keyPair.PublicKey)

	allowed := startConnectProxy(t, true)
	p := &Prober{Port: port, Proxy: allowed.addr, DialTimeout: time.Second}
	assert.True(t, p.Probe(context.Background(), host, "centos", keyPair.PrivateKey))
	assert.Equal(t, int32(1), allowed.hits.Load())

	denied := startConnectProxy(t, false)
	p.Proxy = denied.addr
	assert.False(t, p.Probe(context.Background(), host, "centos", keyPair.PrivateKey))
	assert.Equal(t, int32(1), denied.hits.Load())
}
