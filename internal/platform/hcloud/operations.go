package hcloud

import (
	"context"
	"fmt"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/vnfstack/internal/util/retry"
)

// lookup fetches a resource by name or ID. A nil resource without error
// means it does not exist.
type lookup[R any] func(ctx context.Context, key string) (*R, *hcloud.Response, error)

// remove deletes a resource previously returned by a lookup.
type remove[R any] func(ctx context.Context, r *R) (*hcloud.Response, error)

// deleteIfExists deletes the resource found under key. A missing resource is
// a success and a locked one is retried until the delete timeout expires.
func deleteIfExists[R any](ctx context.Context, c *RealClient, kind, key string, get lookup[R], del remove[R]) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.Delete)
	defer cancel()

	err := retry.WithExponentialBackoff(ctx, func() error {
		r, _, err := get(ctx, key)
		switch {
		case isHCloudErrorCode(err, hcloud.ErrorCodeNotFound):
			return nil
		case err != nil:
			return retry.Fatal(fmt.Errorf("failed to get %s: %w", kind, err))
		case r == nil:
			return nil
		}

		_, err = del(ctx, r)
		if err == nil || isHCloudErrorCode(err, hcloud.ErrorCodeNotFound) {
			return nil
		}
		if isResourceLocked(err) {
			return err
		}
		return retry.Fatal(err)
	},
		retry.WithMaxRetries(c.timeouts.RetryMaxAttempts),
		retry.WithInitialDelay(c.timeouts.RetryInitialDelay))

	return classify("delete "+kind, key, err)
}

// ensure returns the resource named name, creating it when the lookup finds
// nothing. check, when set, rejects an existing resource that differs from
// the wanted one. create returns the action to wait for, if any.
func ensure[R any](
	ctx context.Context,
	c *RealClient,
	kind, name string,
	get lookup[R],
	check func(*R) error,
	create func(ctx context.Context) (*R, *hcloud.Action, error),
) (*R, error) {
	existing, _, err := get(ctx, name)
	if err != nil {
		return nil, classify("get "+kind, name, fmt.Errorf("failed to get %s: %w", kind, err))
	}
	if existing != nil {
		if check == nil {
			return existing, nil
		}
		if err := check(existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	created, action, err := create(ctx)
	if err != nil {
		return nil, classify("create "+kind, name, fmt.Errorf("failed to create %s: %w", kind, err))
	}
	if err := waitForActions(ctx, c.client, action); err != nil {
		return nil, classify("create "+kind, name, fmt.Errorf("failed to wait for %s creation: %w", kind, err))
	}
	return created, nil
}

// waitForActions blocks until every non-nil action has finished.
func waitForActions(ctx context.Context, client *hcloud.Client, actions ...*hcloud.Action) error {
	var pending []*hcloud.Action
	for _, a := range actions {
		if a != nil {
			pending = append(pending, a)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	return client.Action.WaitFor(ctx, pending...)
}
