package provisioning

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/vnfstack/internal/cloud/fake"
	"github.com/imamik/vnfstack/internal/config"
	"github.com/imamik/vnfstack/internal/provisioning/instance"
	"github.com/imamik/vnfstack/internal/util/labels"
)

func TestNewState(t *testing.T) {
	t.Parallel()
	state := NewState()

	require.NotNil(t, state)
	assert.NotNil(t, state.Images)
	assert.NotNil(t, state.Networks)
	assert.NotNil(t, state.Keypairs)
	assert.NotNil(t, state.Instances)
	assert.Empty(t, state.CreatedImages)

	_, ok := state.Instance("web-1")
	assert.False(t, ok)

	state.Instances["web-1"] = nil
	_, ok = state.Instance("web-1")
	assert.False(t, ok, "nil handles are not returned")
}

func TestNewContext(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{Name: "lab"}
	provider := fake.New()

	ctx := NewContext(context.Background(), cfg, provider, nil)

	require.NotNil(t, ctx)
	assert.Equal(t, cfg, ctx.Config)
	assert.Equal(t, provider, ctx.Provider)
	assert.NotNil(t, ctx.State)
	assert.NotNil(t, ctx.Observer)
	assert.NotNil(t, ctx.Timeouts)
	assert.NotEmpty(t, ctx.RunID)
}

func TestNewContext_Options(t *testing.T) {
	t.Parallel()
	observer := newEventSink()
	timeouts := &config.Timeouts{Boot: time.Second, PollInterval: 10 * time.Millisecond}

	ctx := NewContext(context.Background(), &config.Config{Name: "lab"}, fake.New(), nil,
		WithObserver(observer),
		WithRunID("run-1"),
		WithTimeouts(timeouts),
	)

	assert.Same(t, observer, ctx.Observer)
	assert.Equal(t, "run-1", ctx.RunID)
	assert.Same(t, timeouts, ctx.Timeouts)
}

func TestNewRunID_Unique(t *testing.T) {
	t.Parallel()
	assert.NotEqual(t, NewRunID(), NewRunID())
}

func TestContext_Labels(t *testing.T) {
	t.Parallel()
	ctx := NewContext(context.Background(), &config.Config{Name: "lab"}, fake.New(), nil, WithRunID("run-1"))

	got := ctx.Labels()

	assert.Equal(t, "lab", got[labels.KeyEnvironment])
	assert.Equal(t, "run-1", got[labels.KeyRunID])
}

func TestContext_ControllerIsCached(t *testing.T) {
	t.Parallel()
	ctx := NewContext(context.Background(), &config.Config{Name: "lab"}, fake.New(), nil)

	first := ctx.Controller()
	require.NotNil(t, first)
	assert.Same(t, first, ctx.Controller())
}

func TestContext_ControllerReportsTransitions(t *testing.T) {
	t.Parallel()
	observer := newEventSink()
	provider := fake.New()
	provider.AddNetwork("mgmt")
	ctx := NewContext(context.Background(), &config.Config{Name: "lab"}, provider, nil,
		WithObserver(observer),
		WithTimeouts(&config.Timeouts{Boot: time.Second, Delete: time.Second, PollInterval: 5 * time.Millisecond}),
	)

	_, err := ctx.Controller().Create(ctx, instance.Spec{
		Name:  "web-1",
		Image: "ubuntu",
		Ports: []instance.PortSpec{{Name: "web-1-mgmt", Network: "mgmt"}},
	})
	require.NoError(t, err)

	var transitions []string
	for _, e := range observer.events {
		if e.Type == EventInstanceStatus {
			transitions = append(transitions, e.Message)
		}
	}
	assert.Equal(t, []string{"NONE -> PENDING", "PENDING -> ACTIVE"}, transitions)
}
