package instance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/vnfstack/internal/cloud"
	"github.com/imamik/vnfstack/internal/cloud/fake"
)

func attachTarget(t *testing.T) (*Handle, cloud.Port) {
	t.Helper()
	h := newHandle(Spec{Name: "web-1"})
	require.NoError(t, h.setID("srv-1"))
	return h, cloud.Port{ID: "port-1", Name: "web-1-mgmt", FixedIPs: []string{"10.0.1.10"}}
}

func TestAttach_RetriesUntilBound(t *testing.T) {
	t.Parallel()
	p := fake.New()
	p.BindFailures = 2
	interval := 20 * time.Millisecond
	a := NewAttacher(p, time.Second, interval, logr.Discard())
	h, port := attachTarget(t)

	start := time.Now()
	fip, err := a.Attach(context.Background(), h, port, "external")
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.NotNil(t, fip)
	assert.True(t, fip.Bound())
	assert.Equal(t, "10.0.1.10", fip.FixedIP)
	assert.Equal(t, 3, p.Calls("BindFloatingIP"), "two failures, bound on the third attempt")
	assert.GreaterOrEqual(t, elapsed, 2*interval)

	stored, ok := p.FloatingIP(fip.ID)
	require.True(t, ok)
	assert.Equal(t, "port-1", stored.PortID)
}

func TestAttach_ExhaustionReturnsUnboundAddress(t *testing.T) {
	t.Parallel()
	p := fake.New()
	p.BindFailures = 1000
	a := NewAttacher(p, 50*time.Millisecond, 10*time.Millisecond, logr.Discard())
	h, port := attachTarget(t)

	fip, err := a.Attach(context.Background(), h, port, "external")

	require.NoError(t, err)
	require.NotNil(t, fip)
	assert.False(t, fip.Bound())
	assert.GreaterOrEqual(t, p.Calls("BindFloatingIP"), 5, "at least timeout/interval retries")

	stored, ok := p.FloatingIP(fip.ID)
	require.True(t, ok)
	assert.Equal(t, "web-1", stored.Instance, "unbound address keeps its owner")
}

func TestAttach_AllocationError(t *testing.T) {
	t.Parallel()
	p := fake.New()
	boom := errors.New("quota exceeded")
	p.Fail("AllocateFloatingIP", boom)
	a := NewAttacher(p, 50*time.Millisecond, 10*time.Millisecond, logr.Discard())
	h, port := attachTarget(t)

	fip, err := a.Attach(context.Background(), h, port, "external")

	assert.Nil(t, fip)
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, p.Calls("BindFloatingIP"))
}

func TestAttach_ContextCancelled(t *testing.T) {
	t.Parallel()
	p := fake.New()
	p.BindFailures = 1000
	a := NewAttacher(p, time.Minute, 10*time.Millisecond, logr.Discard())
	h, port := attachTarget(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	fip, err := a.Attach(ctx, h, port, "external")
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, fip, "the allocated address is returned for release")
}
