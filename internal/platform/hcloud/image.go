package hcloud

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/vnfstack/internal/cloud"
)

// errImageUpload is returned by CreateImage.
var errImageUpload = errors.New("Hetzner Cloud does not support uploading images")

// FindImage returns the image with the given name, or nil.
func (c *RealClient) FindImage(ctx context.Context, name string) (_ *cloud.Image, err error) {
	defer c.observe("find_image", time.Now(), &err)

	image, _, err := c.client.Image.Get(ctx, name) //nolint:staticcheck
	if err != nil {
		return nil, classify("find image", name, err)
	}
	if image == nil {
		return nil, nil
	}
	return toImage(image), nil
}

// GetImage returns the image with the given ID.
func (c *RealClient) GetImage(ctx context.Context, id string) (_ *cloud.Image, err error) {
	defer c.observe("get_image", time.Now(), &err)

	iid, err := parseID("get image", id)
	if err != nil {
		return nil, err
	}
	image, _, err := c.client.Image.GetByID(ctx, iid)
	if err != nil {
		return nil, classify("get image", id, err)
	}
	if image == nil {
		return nil, cloud.NotFound("get image", id)
	}
	return toImage(image), nil
}

// CreateImage always fails with a Fatal error.
func (c *RealClient) CreateImage(_ context.Context, opts cloud.ImageCreateOpts, _ io.Reader) (*cloud.Image, error) {
	return nil, cloud.NewError(cloud.KindFatal, "create image", opts.Name, errImageUpload)
}

// DeleteImage deletes the image with the given ID.
func (c *RealClient) DeleteImage(ctx context.Context, id string) (err error) {
	defer c.observe("delete_image", time.Now(), &err)

	byID := func(ctx context.Context, id string) (*hcloud.Image, *hcloud.Response, error) {
		iid, err := parseID("get image", id)
		if err != nil {
			return nil, nil, err
		}
		return c.client.Image.GetByID(ctx, iid)
	}
	return deleteIfExists(ctx, c, "image", id, byID, c.client.Image.Delete)
}

func toImage(i *hcloud.Image) *cloud.Image {
	out := &cloud.Image{ID: formatID(i.ID), Name: i.Name, Status: string(i.Status)}
	if out.Name == "" {
		out.Name = i.Description
	}
	if i.Status == hcloud.ImageStatusAvailable {
		out.Status = cloud.ImageStatusActive
	}
	return out
}
