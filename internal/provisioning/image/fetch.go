package image

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/imamik/vnfstack/internal/cloud"
	"github.com/imamik/vnfstack/internal/config"
	"github.com/imamik/vnfstack/internal/platform/s3"
	"github.com/imamik/vnfstack/internal/provisioning"
	"github.com/imamik/vnfstack/internal/util/naming"
	"github.com/imamik/vnfstack/internal/util/retry"
)

// fetch returns the local path of the image file, downloading it first when
// no local copy exists.
func (p *Provisioner) fetch(ctx *provisioning.Context, img config.ImageConfig) (string, error) {
	path := LocalPath(img)
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		ctx.Observer.Printf("[%s] Using local file %s for image %s", phase, path, img.Name)
		return path, nil
	}
	if img.DownloadURL == "" {
		return "", fmt.Errorf("image %s does not exist remotely, has no local file %s and no download_url", img.Name, path)
	}

	if err := os.MkdirAll(img.LocalDownloadPath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}
	tmp, err := os.CreateTemp(img.LocalDownloadPath, naming.DownloadPattern(img.Name))
	if err != nil {
		return "", fmt.Errorf("failed to create download file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	ctx.Observer.Printf("[%s] Downloading %s from %s", phase, img.Name, img.DownloadURL)
	var n int64
	err = retry.WithExponentialBackoff(ctx, func() error {
		if err := rewind(tmp); err != nil {
			return retry.Fatal(err)
		}
		var err error
		n, err = p.download(ctx, img.DownloadURL, tmp, ctx.Config.ObjectStore)
		return err
	},
		retry.WithMaxRetries(max(ctx.Timeouts.RetryMaxAttempts-1, 0)),
		retry.WithInitialDelay(ctx.Timeouts.RetryInitialDelay),
		retry.WithOnRetry(func(attempt int, err error) {
			ctx.Logger.Info("retrying image download", "image", img.Name, "attempt", attempt, "error", err.Error())
		}),
	)
	if err != nil {
		return "", fmt.Errorf("failed to download image %s: %w", img.Name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move image file into place: %w", err)
	}
	ctx.Observer.Printf("[%s] Downloaded %s (%d bytes)", phase, path, n)
	return path, nil
}

func rewind(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	_, err := f.Seek(0, io.SeekStart)
	return err
}

// download copies the source into w. Errors that cannot succeed on retry
// are marked with retry.Fatal.
func (p *Provisioner) download(ctx context.Context, source string, w io.Writer, store config.ObjectStoreConfig) (int64, error) {
	u, err := url.Parse(source)
	if err != nil {
		return 0, retry.Fatal(fmt.Errorf("invalid download_url: %w", err))
	}

	switch u.Scheme {
	case "http", "https":
		return p.downloadHTTP(ctx, source, w)
	case "s3":
		obj, err := s3.ParseURL(source)
		if err != nil {
			return 0, retry.Fatal(err)
		}
		client, err := p.objectStore(ctx, store)
		if err != nil {
			return 0, retry.Fatal(err)
		}
		n, err := client.Download(ctx, obj, w)
		if err != nil && !cloud.IsTransient(err) {
			return n, retry.Fatal(err)
		}
		return n, err
	default:
		return 0, retry.Fatal(fmt.Errorf("unsupported download_url scheme %q", u.Scheme))
	}
}

func (p *Provisioner) downloadHTTP(ctx context.Context, source string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source, nil)
	if err != nil {
		return 0, retry.Fatal(err)
	}
	client := p.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return 0, retry.Fatal(err)
		}
		return 0, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return 0, fmt.Errorf("GET %s: %s", source, resp.Status)
	default:
		return 0, retry.Fatal(fmt.Errorf("GET %s: %s", source, resp.Status))
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("GET %s: %w", source, err)
	}
	return n, nil
}

func (p *Provisioner) objectStore(ctx context.Context, cfg config.ObjectStoreConfig) (ObjectStore, error) {
	if p.store != nil {
		return p.store, nil
	}
	open := p.NewObjectStore
	if open == nil {
		open = func(ctx context.Context, cfg config.ObjectStoreConfig) (ObjectStore, error) {
			return s3.NewClient(ctx, cfg)
		}
	}
	store, err := open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open object store: %w", err)
	}
	p.store = store
	return store, nil
}
