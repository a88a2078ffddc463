package hcloud

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-logr/logr"
	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/vnfstack/internal/cloud"
	"github.com/imamik/vnfstack/internal/util/poll"
)

// imagePollInterval is how often a pending image is re-read.
const imagePollInterval = 5 * time.Second

// resolveNamed returns the resource called name or a not-found error.
func resolveNamed[R any](ctx context.Context, kind, name string, get lookup[R]) (*R, error) {
	r, _, err := get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s %s: %w", kind, name, err)
	}
	if r == nil {
		return nil, cloud.NotFound("get "+kind, name)
	}
	return r, nil
}

// resolveLocation is like resolveNamed but an empty name resolves to no
// location, leaving the choice to the API.
func (c *RealClient) resolveLocation(ctx context.Context, name string) (*hcloud.Location, error) {
	if name == "" {
		return nil, nil
	}
	return resolveNamed(ctx, "location", name, c.client.Location.Get)
}

// resolveImage returns the named image once it is available.
func (c *RealClient) resolveImage(ctx context.Context, name string) (*hcloud.Image, error) {
	image, err := resolveNamed(ctx, "image", name, c.client.Image.Get) //nolint:staticcheck
	if err != nil {
		return nil, err
	}
	if image.Status == hcloud.ImageStatusAvailable {
		return image, nil
	}
	return image, c.awaitImage(ctx, image)
}

func (c *RealClient) awaitImage(ctx context.Context, image *hcloud.Image) error {
	id := formatID(image.ID)
	log.Printf("[hcloud] Image %s (%s) is %s, waiting for it to become available...", image.Name, id, image.Status)

	ok, err := poll.Until(ctx, func(ctx context.Context) (bool, error) {
		current, _, err := c.client.Image.GetByID(ctx, image.ID)
		switch {
		case err != nil:
			return false, classify("get image", id, err)
		case current == nil:
			return false, poll.Abort(cloud.NotFound("get image", id))
		}
		return current.Status == hcloud.ImageStatusAvailable, nil
	}, poll.Options{
		Name:     "image_available",
		Timeout:  c.timeouts.ImageWait,
		Interval: imagePollInterval,
		Block:    true,
		Logger:   logr.Discard(),
	})
	if err != nil {
		return fmt.Errorf("failed to get image status: %w", err)
	}
	if !ok {
		return cloud.NewError(cloud.KindTransient, "wait for image", id,
			fmt.Errorf("image still %s after %v", image.Status, c.timeouts.ImageWait))
	}
	return nil
}
