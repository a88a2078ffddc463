package openstack

import (
	"context"
	"time"

	"github.com/gophercloud/gophercloud/openstack/compute/v2/extensions/keypairs"

	"github.com/imamik/vnfstack/internal/cloud"
)

// FindKeypair returns the keypair with the given name, or nil.
func (c *RealClient) FindKeypair(ctx context.Context, name string) (_ *cloud.Keypair, err error) {
	defer c.observe("find_keypair", time.Now(), &err)
	if err := canceled(ctx, "find keypair", name); err != nil {
		return nil, err
	}

	kp, err := keypairs.Get(c.compute, name).Extract()
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, classify("find keypair", name, err)
	}
	return toKeypair(kp), nil
}

// CreateKeypair registers publicKey under name.
func (c *RealClient) CreateKeypair(ctx context.Context, name, publicKey string) (_ *cloud.Keypair, err error) {
	defer c.observe("create_keypair", time.Now(), &err)
	if err := canceled(ctx, "create keypair", name); err != nil {
		return nil, err
	}

	kp, err := keypairs.Create(c.compute, keypairs.CreateOpts{Name: name, PublicKey: publicKey}).Extract()
	if err != nil {
		return nil, classify("create keypair", name, err)
	}
	return toKeypair(kp), nil
}

// DeleteKeypair deletes the keypair with the given name. A missing keypair
// is not an error.
func (c *RealClient) DeleteKeypair(ctx context.Context, name string) (err error) {
	defer c.observe("delete_keypair", time.Now(), &err)
	if err := canceled(ctx, "delete keypair", name); err != nil {
		return err
	}

	err = keypairs.Delete(c.compute, name).ExtractErr()
	if isNotFound(err) {
		return nil
	}
	return classify("delete keypair", name, err)
}

func toKeypair(kp *keypairs.KeyPair) *cloud.Keypair {
	return &cloud.Keypair{Name: kp.Name, Fingerprint: kp.Fingerprint, PublicKey: kp.PublicKey}
}
