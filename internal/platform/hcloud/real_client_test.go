package hcloud

import (
	"testing"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/vnfstack/internal/config"
)

func TestNewRealClient_Defaults(t *testing.T) {
	t.Parallel()
	client := NewRealClient("test-token")

	assert.NotNil(t, client.client)
	assert.NotNil(t, client.timeouts)
	assert.Equal(t, "eu-central", client.networkZone)
	assert.Equal(t, ProviderName, client.Name())
}

func TestNewRealClient_Options(t *testing.T) {
	t.Parallel()
	customTimeouts := &config.Timeouts{Boot: 30 * time.Second}
	hc := hcloud.NewClient(hcloud.WithToken("other"))

	client := NewRealClient("test-token",
		WithTimeouts(customTimeouts),
		WithHCloudClient(hc),
		WithLocation("hel1"),
		WithNetworkZone("us-east"),
		WithLabels(map[string]string{"a": "b"}),
	)

	assert.Same(t, customTimeouts, client.timeouts)
	assert.Same(t, hc, client.client)
	assert.Equal(t, "hel1", client.location)
	assert.Equal(t, "us-east", client.networkZone)
}

func TestResourceLabels(t *testing.T) {
	t.Parallel()
	client := NewRealClient("t", WithLabels(map[string]string{"env": "lab", "x": "1"}))

	got := client.resourceLabels(map[string]string{"x": "2", "y": "3"})
	assert.Equal(t, map[string]string{"env": "lab", "x": "2", "y": "3"}, got)
	assert.Equal(t, "1", client.labels["x"], "client labels are not modified")
}

func TestParseID(t *testing.T) {
	t.Parallel()

	id, err := parseID("op", "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "42", formatID(id))

	_, err = parseID("op", "web-1")
	require.Error(t, err)
}

func TestDecodePortID(t *testing.T) {
	t.Parallel()

	a, err := decodePortID(encodePortID(7, ""))
	require.NoError(t, err)
	assert.Equal(t, attachment{networkID: 7}, a)

	_, err = decodePortID("7")
	assert.Error(t, err)
	_, err = decodePortID("x/10.0.0.1")
	assert.Error(t, err)
}
