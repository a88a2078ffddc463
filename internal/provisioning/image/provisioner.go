package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/imamik/vnfstack/internal/cloud"
	"github.com/imamik/vnfstack/internal/config"
	"github.com/imamik/vnfstack/internal/platform/s3"
	"github.com/imamik/vnfstack/internal/provisioning"
	"github.com/imamik/vnfstack/internal/util/naming"
	"github.com/imamik/vnfstack/internal/util/poll"
)

const phase = "image"

// Image states that end the wait for an uploaded image.
const (
	statusKilled  = "killed"
	statusDeleted = "deleted"
)

// ObjectStore downloads s3:// image sources.
type ObjectStore interface {
	Download(ctx context.Context, obj s3.Object, w io.Writer) (int64, error)
}

// Provisioner ensures the configured images exist.
type Provisioner struct {
	// HTTPClient downloads http(s):// sources. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// NewObjectStore opens the object store on first use. Defaults to s3.NewClient.
	NewObjectStore func(ctx context.Context, cfg config.ObjectStoreConfig) (ObjectStore, error)

	store ObjectStore
}

// NewProvisioner creates a new image provisioner.
func NewProvisioner() *Provisioner {
	return &Provisioner{}
}

// Name implements the provisioning.Phase interface.
func (p *Provisioner) Name() string {
	return phase
}

// Provision implements the provisioning.Phase interface.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	for i, img := range ctx.Config.Images {
		ctx.Observer.Progress(phase, i+1, len(ctx.Config.Images))
		if err := p.ensure(ctx, img); err != nil {
			return err
		}
	}
	return nil
}

func (p *Provisioner) ensure(ctx *provisioning.Context, img config.ImageConfig) error {
	existing, err := ctx.Provider.FindImage(ctx, img.Name)
	if err != nil {
		return fmt.Errorf("failed to look up image %s: %w", img.Name, err)
	}
	if existing != nil {
		provisioning.LogResourceExists(ctx.Observer, phase, "image", img.Name, existing.ID)
		ctx.State.Images[img.Name] = existing
		return nil
	}

	path, err := p.fetch(ctx, img)
	if err != nil {
		return err
	}

	provisioning.LogResourceCreating(ctx.Observer, phase, "image", img.Name)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open image file: %w", err)
	}
	defer f.Close()

	created, err := ctx.Provider.CreateImage(ctx, cloud.ImageCreateOpts{
		Name:            img.Name,
		DiskFormat:      img.Format,
		ContainerFormat: img.ContainerFormat,
		Public:          img.Public,
	}, f)
	if err != nil {
		return fmt.Errorf("failed to upload image %s: %w", img.Name, err)
	}
	ctx.State.CreatedImages = append(ctx.State.CreatedImages, img.Name)
	ctx.State.Images[img.Name] = created

	active, err := waitActive(ctx, created)
	if err != nil {
		return err
	}
	ctx.State.Images[img.Name] = active
	provisioning.LogResourceCreated(ctx.Observer, phase, "image", img.Name, active.ID)
	return nil
}

// waitActive polls the uploaded image until it is active.
func waitActive(ctx *provisioning.Context, img *cloud.Image) (*cloud.Image, error) {
	if img.Status == cloud.ImageStatusActive {
		return img, nil
	}

	current := img
	ok, err := poll.Until(ctx, func(c context.Context) (bool, error) {
		got, err := ctx.Provider.GetImage(c, img.ID)
		if err != nil {
			return false, err
		}
		current = got
		switch got.Status {
		case cloud.ImageStatusActive:
			return true, nil
		case statusKilled, statusDeleted:
			return false, poll.Abort(fmt.Errorf("image %s entered status %s", img.Name, got.Status))
		}
		return false, nil
	}, poll.Options{
		Name:     "image-active",
		Timeout:  ctx.Timeouts.ImageWait,
		Interval: ctx.Timeouts.PollInterval,
		Block:    true,
		Logger:   ctx.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed waiting for image %s: %w", img.Name, err)
	}
	if !ok {
		return nil, fmt.Errorf("image %s is still %s after %v", img.Name, current.Status, ctx.Timeouts.ImageWait)
	}
	return current, nil
}

// LocalPath is where the file of img is kept.
func LocalPath(img config.ImageConfig) string {
	return filepath.Join(img.LocalDownloadPath, naming.ImageFile(img.Name, img.Format))
}

// Clean deletes the configured images and their downloaded files. The
// download directory is removed once it is empty.
func (p *Provisioner) Clean(ctx *provisioning.Context) error {
	var errs []error
	for _, img := range ctx.Config.Images {
		if err := clean(ctx, img); err != nil {
			provisioning.LogResourceFailed(ctx.Observer, phase, "image", img.Name, err)
			errs = append(errs, err)
		}
	}
	return utilerrors.NewAggregate(errs)
}

func clean(ctx *provisioning.Context, img config.ImageConfig) error {
	existing, err := ctx.Provider.FindImage(ctx, img.Name)
	if err != nil {
		return fmt.Errorf("failed to look up image %s: %w", img.Name, err)
	}
	if existing != nil {
		provisioning.LogResourceDeleting(ctx.Observer, phase, "image", img.Name)
		if err := ctx.Provider.DeleteImage(ctx, existing.ID); err != nil && !cloud.IsNotFound(err) {
			return fmt.Errorf("failed to delete image %s: %w", img.Name, err)
		}
		provisioning.LogResourceDeleted(ctx.Observer, phase, "image", img.Name)
	}

	path := LocalPath(img)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove image file: %w", err)
	}
	// Fails harmlessly while other files remain.
	_ = os.Remove(img.LocalDownloadPath)
	return nil
}
