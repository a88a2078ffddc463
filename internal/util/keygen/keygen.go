package keygen

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"
)

// DefaultBits is the key size used for generated keypairs.
const DefaultBits = 2048

// KeyPair is a generated key pair, ready to be written to disk.
type KeyPair struct {
	// PrivateKey is PEM in the OpenSSH private key format.
	PrivateKey []byte
	// PublicKey is an authorized_keys line.
	PublicKey []byte
}

// GenerateRSAKeyPair generates an RSA key pair of the given size. A non-empty
// comment is embedded in both halves.
func GenerateRSAKeyPair(bits int, comment string) (*KeyPair, error) {
	if bits < 1024 {
		return nil, fmt.Errorf("rsa key size %d is too small", bits)
	}
	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA private key: %w", err)
	}

	block, err := ssh.MarshalPrivateKey(key, comment)
	if err != nil {
		return nil, fmt.Errorf("failed to encode private key: %w", err)
	}
	pub, err := ssh.NewPublicKey(&key.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create SSH public key: %w", err)
	}

	line := bytes.TrimSuffix(ssh.MarshalAuthorizedKey(pub), []byte("\n"))
	if comment != "" {
		line = append(line, ' ')
		line = append(line, comment...)
	}
	return &KeyPair{
		PrivateKey: pem.EncodeToMemory(block),
		PublicKey:  append(line, '\n'),
	}, nil
}

// Write stores the key pair, creating parent directories. The private key
// is created with mode 0600 and an existing one is never replaced. An empty
// path skips that half.
func (kp *KeyPair) Write(publicPath, privatePath string) error {
	if privatePath != "" {
		if err := create(privatePath, kp.PrivateKey, 0o600, os.O_EXCL); err != nil {
			return fmt.Errorf("failed to write private key: %w", err)
		}
	}
	if publicPath != "" {
		if err := create(publicPath, kp.PublicKey, 0o644, os.O_TRUNC); err != nil {
			return fmt.Errorf("failed to write public key: %w", err)
		}
	}
	return nil
}

func create(path string, data []byte, mode os.FileMode, flag int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	// #nosec G304
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|flag, mode)
	if err != nil {
		return err
	}
	_, err = f.Write(data)
	return errors.Join(err, f.Close())
}

// ReadPublicKey returns the trimmed authorized_keys line stored at path.
func ReadPublicKey(path string) (string, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read public key: %w", err)
	}
	if _, _, _, _, err := ssh.ParseAuthorizedKey(data); err != nil {
		return "", fmt.Errorf("invalid public key %s: %w", path, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Fingerprint returns the SHA256 fingerprint of an authorized_keys line.
func Fingerprint(publicKey []byte) (string, error) {
	key, _, _, _, err := ssh.ParseAuthorizedKey(publicKey)
	if err != nil {
		return "", fmt.Errorf("failed to parse public key: %w", err)
	}
	return ssh.FingerprintSHA256(key), nil
}

// SameKey reports whether two authorized_keys lines hold the same key.
// Comments and options are ignored.
func SameKey(a, b string) (bool, error) {
	ka, _, _, _, err := ssh.ParseAuthorizedKey([]byte(a))
	if err != nil {
		return false, err
	}
	kb, _, _, _, err := ssh.ParseAuthorizedKey([]byte(b))
	if err != nil {
		return false, err
	}
	return bytes.Equal(ka.Marshal(), kb.Marshal()), nil
}
