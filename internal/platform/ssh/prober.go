package ssh

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"golang.org/x/crypto/ssh"
)

// Prober checks whether an instance accepts SSH logins.
type Prober struct {
	// Port defaults to 22.
	Port int
	// Proxy is an HTTP CONNECT proxy as host:port. Empty dials directly.
	Proxy string
	// DialTimeout bounds the TCP dial and the handshake. Defaults to 10s.
	DialTimeout time.Duration

	HostKeyCallback ssh.HostKeyCallback
	Logger          logr.Logger
}

// Probe opens an authenticated session to address and closes it again. It
// returns true once the handshake and a session open succeed; any failure
// returns false so the caller can poll again.
func (p *Prober) Probe(ctx context.Context, address, user string, privateKey []byte) bool {
	log := p.Logger.WithValues("address", address, "user", user)

	signer, err := ssh.ParsePrivateKey(privateKey)
	if err != nil {
		log.Error(err, "cannot parse private key")
		return false
	}

	addr := net.JoinHostPort(address, strconv.Itoa(orDefault(p.Port, sshPort)))
	client, err := open(ctx, addr, p.Proxy, &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeys(p.HostKeyCallback),
		Timeout:         orDefault(p.DialTimeout, dialTimeout),
	})
	if err != nil {
		log.V(1).Info("ssh not reachable", "error", err.Error())
		return false
	}
	defer func() { _ = client.Close() }()

	session, err := client.NewSession()
	if err != nil {
		log.V(1).Info("ssh session refused", "error", err.Error())
		return false
	}
	_ = session.Close()

	log.V(1).Info("ssh reachable")
	return true
}
