// Package keygen creates and persists RSA key pairs for SSH keypairs that
// do not exist yet.
//
// Private keys use the OpenSSH PEM format; public keys use the OpenSSH
// authorized_keys format accepted by both Nova and Hetzner Cloud.
package keygen
