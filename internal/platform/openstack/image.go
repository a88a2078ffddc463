package openstack

import (
	"context"
	"io"
	"time"

	"github.com/gophercloud/gophercloud/openstack/imageservice/v2/imagedata"
	"github.com/gophercloud/gophercloud/openstack/imageservice/v2/images"

	"github.com/imamik/vnfstack/internal/cloud"
)

// FindImage returns the image with the given name, or nil.
func (c *RealClient) FindImage(ctx context.Context, name string) (_ *cloud.Image, err error) {
	defer c.observe("find_image", time.Now(), &err)
	if err := canceled(ctx, "find image", name); err != nil {
		return nil, err
	}

	pages, err := images.List(c.image, images.ListOpts{Name: name}).AllPages()
	if err != nil {
		return nil, classify("find image", name, err)
	}
	all, err := images.ExtractImages(pages)
	if err != nil {
		return nil, classify("find image", name, err)
	}
	for i := range all {
		if all[i].Name == name {
			return toImage(&all[i]), nil
		}
	}
	return nil, nil
}

// GetImage returns the image with the given ID.
func (c *RealClient) GetImage(ctx context.Context, id string) (_ *cloud.Image, err error) {
	defer c.observe("get_image", time.Now(), &err)
	if err := canceled(ctx, "get image", id); err != nil {
		return nil, err
	}

	image, err := images.Get(c.image, id).Extract()
	if err != nil {
		return nil, classify("get image", id, err)
	}
	return toImage(image), nil
}

// CreateImage registers an image and uploads data into it. Glance imports the
// data asynchronously; callers wait for ImageStatusActive.
func (c *RealClient) CreateImage(ctx context.Context, opts cloud.ImageCreateOpts, data io.Reader) (_ *cloud.Image, err error) {
	defer c.observe("create_image", time.Now(), &err)
	if err := canceled(ctx, "create image", opts.Name); err != nil {
		return nil, err
	}

	visibility := images.ImageVisibilityPrivate
	if opts.Public {
		visibility = images.ImageVisibilityPublic
	}
	image, err := images.Create(c.image, images.CreateOpts{
		Name:            opts.Name,
		DiskFormat:      opts.DiskFormat,
		ContainerFormat: opts.ContainerFormat,
		Visibility:      &visibility,
	}).Extract()
	if err != nil {
		return nil, classify("create image", opts.Name, err)
	}

	if err := imagedata.Upload(c.image, image.ID, data).ExtractErr(); err != nil {
		return nil, classify("upload image", opts.Name, err)
	}
	return toImage(image), nil
}

// DeleteImage deletes the image with the given ID.
func (c *RealClient) DeleteImage(ctx context.Context, id string) (err error) {
	defer c.observe("delete_image", time.Now(), &err)
	if err := canceled(ctx, "delete image", id); err != nil {
		return err
	}

	return classify("delete image", id, images.Delete(c.image, id).ExtractErr())
}

func toImage(i *images.Image) *cloud.Image {
	return &cloud.Image{ID: i.ID, Name: i.Name, Status: string(i.Status)}
}
