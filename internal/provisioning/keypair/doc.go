// Package keypair registers the environment's SSH keypairs.
//
// A keypair already registered under its name is reused. Otherwise the
// public key is read from public_filepath, or a fresh RSA key pair is
// written to public_filepath and private_filepath first.
package keypair
