package hcloud

import (
	"context"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/imamik/vnfstack/internal/cloud"
)

// FindKeypair returns the SSH key with the given name, or nil.
func (c *RealClient) FindKeypair(ctx context.Context, name string) (_ *cloud.Keypair, err error) {
	defer c.observe("find_keypair", time.Now(), &err)

	key, _, err := c.client.SSHKey.GetByName(ctx, name)
	if err != nil {
		return nil, classify("find keypair", name, err)
	}
	if key == nil {
		return nil, nil
	}
	return toKeypair(key), nil
}

// CreateKeypair registers a public key.
func (c *RealClient) CreateKeypair(ctx context.Context, name, publicKey string) (_ *cloud.Keypair, err error) {
	defer c.observe("create_keypair", time.Now(), &err)

	key, _, err := c.client.SSHKey.Create(ctx, hcloud.SSHKeyCreateOpts{
		Name:      name,
		PublicKey: publicKey,
		Labels:    c.resourceLabels(nil),
	})
	if err != nil {
		if isHCloudErrorCode(err, hcloud.ErrorCodeUniquenessError) {
			return nil, cloud.NewError(cloud.KindConflict, "create keypair", name, err)
		}
		return nil, classify("create keypair", name, err)
	}
	return toKeypair(key), nil
}

// DeleteKeypair deletes the SSH key with the given name.
func (c *RealClient) DeleteKeypair(ctx context.Context, name string) (err error) {
	defer c.observe("delete_keypair", time.Now(), &err)

	return deleteIfExists(ctx, c, "ssh key", name, c.client.SSHKey.Get, c.client.SSHKey.Delete)
}

func toKeypair(k *hcloud.SSHKey) *cloud.Keypair {
	return &cloud.Keypair{Name: k.Name, Fingerprint: k.Fingerprint, PublicKey: k.PublicKey}
}
