package keypair

import (
	"errors"
	"fmt"
	"os"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/imamik/vnfstack/internal/cloud"
	"github.com/imamik/vnfstack/internal/config"
	"github.com/imamik/vnfstack/internal/provisioning"
	"github.com/imamik/vnfstack/internal/util/keygen"
)

const phase = "keypair"

// Provisioner ensures the configured keypairs exist.
type Provisioner struct {
	// Bits is the size of generated RSA keys. Defaults to keygen.DefaultBits.
	Bits int
}

// NewProvisioner creates a new keypair provisioner.
func NewProvisioner() *Provisioner {
	return &Provisioner{Bits: keygen.DefaultBits}
}

// Name implements the provisioning.Phase interface.
func (p *Provisioner) Name() string {
	return phase
}

// Provision implements the provisioning.Phase interface.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	for _, kc := range ctx.Config.Keypairs {
		rec, err := p.ensure(ctx, kc)
		if err != nil {
			return err
		}
		ctx.State.Keypairs[kc.Name] = rec
	}
	return nil
}

func (p *Provisioner) ensure(ctx *provisioning.Context, kc config.KeypairConfig) (*provisioning.KeypairRecord, error) {
	rec := &provisioning.KeypairRecord{
		PublicKeyPath:  kc.PublicFilepath,
		PrivateKeyPath: kc.PrivateFilepath,
	}

	existing, err := ctx.Provider.FindKeypair(ctx, kc.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to look up keypair %s: %w", kc.Name, err)
	}
	if existing != nil {
		provisioning.LogResourceExists(ctx.Observer, phase, "keypair", kc.Name, existing.Fingerprint)
		warnOnMismatch(ctx, kc, existing)
		rec.Keypair = existing
		return rec, nil
	}

	publicKey, generated, err := p.publicKey(kc)
	if err != nil {
		return nil, err
	}
	rec.Generated = generated
	if generated {
		ctx.Observer.Printf("[%s] Generated key pair %s", phase, kc.PublicFilepath)
	}

	provisioning.LogResourceCreating(ctx.Observer, phase, "keypair", kc.Name)
	kp, err := ctx.Provider.CreateKeypair(ctx, kc.Name, publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create keypair %s: %w", kc.Name, err)
	}
	rec.Keypair = kp
	rec.Created = true
	provisioning.LogResourceCreated(ctx.Observer, phase, "keypair", kc.Name, kp.Fingerprint)
	return rec, nil
}

// warnOnMismatch reports a registered keypair that holds another key than
// the local public key file. Instances would then reject the local private
// key, but the keypair is still reused.
func warnOnMismatch(ctx *provisioning.Context, kc config.KeypairConfig, remote *cloud.Keypair) {
	if remote.PublicKey == "" || kc.PublicFilepath == "" {
		return
	}
	local, err := keygen.ReadPublicKey(kc.PublicFilepath)
	if err != nil {
		return
	}
	if same, err := keygen.SameKey(local, remote.PublicKey); err != nil || same {
		return
	}
	ctx.Observer.Event(provisioning.Event{
		Type:     provisioning.EventValidationWarning,
		Phase:    phase,
		Resource: kc.Name,
		Message:  fmt.Sprintf("registered keypair differs from %s", kc.PublicFilepath),
	})
}

// publicKey returns the public key of kc, generating a key pair when the
// public key file does not exist. An existing private key is never
// overwritten.
func (p *Provisioner) publicKey(kc config.KeypairConfig) (string, bool, error) {
	_, err := os.Stat(kc.PublicFilepath)
	switch {
	case err == nil:
		key, err := keygen.ReadPublicKey(kc.PublicFilepath)
		return key, false, err
	case !errors.Is(err, os.ErrNotExist):
		return "", false, fmt.Errorf("failed to stat public key: %w", err)
	}

	if _, err := os.Stat(kc.PrivateFilepath); err == nil {
		return "", false, fmt.Errorf("keypair %s: public key %s is missing but private key %s exists",
			kc.Name, kc.PublicFilepath, kc.PrivateFilepath)
	}

	bits := p.Bits
	if bits == 0 {
		bits = keygen.DefaultBits
	}
	kp, err := keygen.GenerateRSAKeyPair(bits, "vnfstack-"+kc.Name)
	if err != nil {
		return "", false, err
	}
	if err := kp.Write(kc.PublicFilepath, kc.PrivateFilepath); err != nil {
		return "", false, err
	}
	return string(kp.PublicKey), true, nil
}

// Clean deletes the configured keypairs from the provider. Local key files
// are kept so a later deploy registers the same keys.
func (p *Provisioner) Clean(ctx *provisioning.Context) error {
	var errs []error
	for _, kc := range ctx.Config.Keypairs {
		provisioning.LogResourceDeleting(ctx.Observer, phase, "keypair", kc.Name)
		if err := ctx.Provider.DeleteKeypair(ctx, kc.Name); err != nil && !cloud.IsNotFound(err) {
			provisioning.LogResourceFailed(ctx.Observer, phase, "keypair", kc.Name, err)
			errs = append(errs, fmt.Errorf("failed to delete keypair %s: %w", kc.Name, err))
			continue
		}
		delete(ctx.State.Keypairs, kc.Name)
		provisioning.LogResourceDeleted(ctx.Observer, phase, "keypair", kc.Name)
	}
	return utilerrors.NewAggregate(errs)
}

// PrivateKey reads the private key of the named keypair. It returns nil
// without error when the environment does not manage the keypair.
func PrivateKey(cfg *config.Config, name string) ([]byte, error) {
	kc, ok := cfg.Keypair(name)
	if !ok || kc.PrivateFilepath == "" {
		return nil, nil
	}
	// #nosec G304
	data, err := os.ReadFile(kc.PrivateFilepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key of keypair %s: %w", name, err)
	}
	return data, nil
}
