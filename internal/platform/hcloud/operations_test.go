package hcloud

import (
	"context"
	"errors"
	"testing"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/vnfstack/internal/cloud"
)

// offlineClient has test timeouts and no API client; only usable where no
// action is waited for.
func offlineClient() *RealClient {
	return &RealClient{timeouts: testTimeouts()}
}

func found[R any](r *R) lookup[R] {
	return func(context.Context, string) (*R, *hcloud.Response, error) { return r, nil, nil }
}

func failing[R any](err error) lookup[R] {
	return func(context.Context, string) (*R, *hcloud.Response, error) { return nil, nil, err }
}

func mustNotDelete[R any](t *testing.T) remove[R] {
	return func(context.Context, *R) (*hcloud.Response, error) {
		t.Error("delete must not be called")
		return nil, nil
	}
}

func TestDeleteIfExists(t *testing.T) {
	t.Parallel()

	t.Run("deletes the found resource", func(t *testing.T) {
		t.Parallel()
		key := &hcloud.SSHKey{ID: 1, Name: "vnf-kp"}
		var deleted *hcloud.SSHKey
		err := deleteIfExists(context.Background(), offlineClient(), "ssh key", "vnf-kp", found(key),
			func(_ context.Context, k *hcloud.SSHKey) (*hcloud.Response, error) {
				deleted = k
				return nil, nil
			})
		require.NoError(t, err)
		assert.Same(t, key, deleted)
	})

	t.Run("missing resource", func(t *testing.T) {
		t.Parallel()
		err := deleteIfExists(context.Background(), offlineClient(), "ssh key", "vnf-kp",
			found[hcloud.SSHKey](nil), mustNotDelete[hcloud.SSHKey](t))
		require.NoError(t, err)
	})

	t.Run("lookup reports not found", func(t *testing.T) {
		t.Parallel()
		err := deleteIfExists(context.Background(), offlineClient(), "ssh key", "vnf-kp",
			failing[hcloud.SSHKey](apiError(hcloud.ErrorCodeNotFound)), mustNotDelete[hcloud.SSHKey](t))
		require.NoError(t, err)
	})

	t.Run("gone during delete", func(t *testing.T) {
		t.Parallel()
		err := deleteIfExists(context.Background(), offlineClient(), "ssh key", "vnf-kp", found(&hcloud.SSHKey{ID: 1}),
			func(context.Context, *hcloud.SSHKey) (*hcloud.Response, error) {
				return nil, apiError(hcloud.ErrorCodeNotFound)
			})
		require.NoError(t, err)
	})

	t.Run("lookup error is fatal", func(t *testing.T) {
		t.Parallel()
		err := deleteIfExists(context.Background(), offlineClient(), "ssh key", "vnf-kp",
			failing[hcloud.SSHKey](errors.New("API error")), mustNotDelete[hcloud.SSHKey](t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to get ssh key: API error")
		assert.True(t, cloud.IsFatal(err))
	})
}

func TestDeleteIfExists_RetriesLocked(t *testing.T) {
	t.Parallel()

	for _, code := range []hcloud.ErrorCode{
		hcloud.ErrorCodeLocked,
		hcloud.ErrorCodeConflict,
		hcloud.ErrorCodeResourceLocked,
		hcloud.ErrorCodeResourceUnavailable,
	} {
		t.Run(string(code), func(t *testing.T) {
			t.Parallel()
			attempts := 0
			err := deleteIfExists(context.Background(), offlineClient(), "network", "mgmt", found(&hcloud.Network{ID: 1}),
				func(context.Context, *hcloud.Network) (*hcloud.Response, error) {
					attempts++
					if attempts == 1 {
						return nil, apiError(code)
					}
					return nil, nil
				})
			require.NoError(t, err)
			assert.Equal(t, 2, attempts)
		})
	}
}

func TestDeleteIfExists_LockedExhausted(t *testing.T) {
	t.Parallel()

	err := deleteIfExists(context.Background(), offlineClient(), "network", "mgmt", found(&hcloud.Network{ID: 1}),
		func(context.Context, *hcloud.Network) (*hcloud.Response, error) {
			return nil, apiError(hcloud.ErrorCodeLocked)
		})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "operation failed after")
	assert.True(t, cloud.IsConflict(err))
}

func TestEnsure(t *testing.T) {
	t.Parallel()
	noCreate := func(t *testing.T) func(context.Context) (*hcloud.Network, *hcloud.Action, error) {
		return func(context.Context) (*hcloud.Network, *hcloud.Action, error) {
			t.Error("create must not be called")
			return nil, nil, nil
		}
	}

	t.Run("creates when missing", func(t *testing.T) {
		t.Parallel()
		created := &hcloud.Network{ID: 1, Name: "mgmt"}
		got, err := ensure(context.Background(), offlineClient(), "network", "mgmt", found[hcloud.Network](nil), nil,
			func(context.Context) (*hcloud.Network, *hcloud.Action, error) { return created, nil, nil })
		require.NoError(t, err)
		assert.Same(t, created, got)
	})

	t.Run("returns existing after check", func(t *testing.T) {
		t.Parallel()
		existing := &hcloud.Network{ID: 42, Name: "mgmt"}
		checked := false
		got, err := ensure(context.Background(), offlineClient(), "network", "mgmt", found(existing),
			func(*hcloud.Network) error { checked = true; return nil },
			noCreate(t))
		require.NoError(t, err)
		assert.Same(t, existing, got)
		assert.True(t, checked)
	})

	t.Run("check rejects existing", func(t *testing.T) {
		t.Parallel()
		_, err := ensure(context.Background(), offlineClient(), "network", "mgmt", found(&hcloud.Network{ID: 42}),
			func(*hcloud.Network) error { return errors.New("different ip range") },
			noCreate(t))
		assert.EqualError(t, err, "different ip range")
	})

	t.Run("create error keeps its kind", func(t *testing.T) {
		t.Parallel()
		_, err := ensure(context.Background(), offlineClient(), "network", "mgmt", found[hcloud.Network](nil), nil,
			func(context.Context) (*hcloud.Network, *hcloud.Action, error) {
				return nil, nil, apiError(hcloud.ErrorCodeRateLimitExceeded)
			})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create network")
		assert.True(t, cloud.IsTransient(err))
	})
}

func TestEnsure_FailedAction(t *testing.T) {
	t.Parallel()
	ts := newTestServer()
	defer ts.close()

	// Finished actions are reported without polling the API.
	failed := &hcloud.Action{ID: 10, Status: hcloud.ActionStatusError, ErrorCode: "no_space", ErrorMessage: "location is full"}
	_, err := ensure(context.Background(), ts.realClient(), "floating ip", "fip", found[hcloud.FloatingIP](nil), nil,
		func(context.Context) (*hcloud.FloatingIP, *hcloud.Action, error) {
			return &hcloud.FloatingIP{ID: 7}, failed, nil
		})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to wait for floating ip creation")
	assert.Contains(t, err.Error(), "location is full")
}

func TestWaitForActions_NothingPending(t *testing.T) {
	t.Parallel()
	// nil client: no action means no API call
	require.NoError(t, waitForActions(context.Background(), nil))
	require.NoError(t, waitForActions(context.Background(), nil, nil, nil))
}

func TestResolveNamed(t *testing.T) {
	t.Parallel()

	st := &hcloud.ServerType{ID: 3, Name: "cx22"}
	got, err := resolveNamed(context.Background(), "server type", "cx22", found(st))
	require.NoError(t, err)
	assert.Same(t, st, got)

	_, err = resolveNamed(context.Background(), "server type", "cx99", found[hcloud.ServerType](nil))
	assert.True(t, cloud.IsNotFound(err))

	_, err = resolveNamed(context.Background(), "server type", "cx22", failing[hcloud.ServerType](errors.New("boom")))
	assert.EqualError(t, err, "failed to get server type cx22: boom")
}
