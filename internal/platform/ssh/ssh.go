package ssh

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/imamik/vnfstack/internal/util/retry"
)

const (
	sshPort        = 22
	dialTimeout    = 10 * time.Second
	connectRetries = 60
	connectBackoff = 5 * time.Second
	backoffCap     = 10 * time.Second
)

// ErrIncompleteConfig is returned by NewClient when a required field is unset.
var ErrIncompleteConfig = errors.New("incomplete ssh config")

// Config describes how to reach an instance for remote commands. Zero
// values of the optional fields select defaults.
type Config struct {
	Host       string
	Port       int
	User       string
	PrivateKey []byte

	// Proxy is an HTTP CONNECT proxy as host:port. Empty dials directly.
	Proxy string

	// DialTimeout bounds the TCP dial and the handshake of each attempt.
	DialTimeout time.Duration

	// MaxRetries and RetryDelay control how often a failed dial is retried
	// and how long the first pause is. The pause doubles up to 10s.
	MaxRetries int
	RetryDelay time.Duration

	// HostKeyCallback defaults to accepting any host key; instances are
	// freshly booted and their keys are not known in advance.
	HostKeyCallback ssh.HostKeyCallback
}

func (c Config) missing() []string {
	var fields []string
	if c.Host == "" {
		fields = append(fields, "host")
	}
	if c.User == "" {
		fields = append(fields, "user")
	}
	if len(c.PrivateKey) == 0 {
		fields = append(fields, "private key")
	}
	return fields
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

func hostKeys(cb ssh.HostKeyCallback) ssh.HostKeyCallback {
	if cb == nil {
		return ssh.InsecureIgnoreHostKey() //nolint:gosec
	}
	return cb
}

// CommandError is a remote command that ran but did not succeed.
type CommandError struct {
	Command string
	Host    string
	// ExitStatus is -1 when the command ended without one, e.g. on a signal.
	ExitStatus int
	Err        error
}

func (e *CommandError) Error() string {
	if e.ExitStatus >= 0 {
		return fmt.Sprintf("%q on %s exited with status %d", e.Command, e.Host, e.ExitStatus)
	}
	return fmt.Sprintf("%q on %s failed: %v", e.Command, e.Host, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }

// Client runs commands on one instance. Every Execute opens its own
// connection.
type Client struct {
	addr    string
	proxy   string
	retries int
	backoff time.Duration
	config  *ssh.ClientConfig
}

// NewClient validates cfg and parses its private key.
func NewClient(cfg Config) (*Client, error) {
	if missing := cfg.missing(); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrIncompleteConfig, strings.Join(missing, ", "))
	}
	signer, err := ssh.ParsePrivateKey(cfg.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &Client{
		addr:    net.JoinHostPort(cfg.Host, strconv.Itoa(orDefault(cfg.Port, sshPort))),
		proxy:   cfg.Proxy,
		retries: orDefault(cfg.MaxRetries, connectRetries),
		backoff: orDefault(cfg.RetryDelay, connectBackoff),
		config: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
			HostKeyCallback: hostKeys(cfg.HostKeyCallback),
			Timeout:         orDefault(cfg.DialTimeout, dialTimeout),
		},
	}, nil
}

// Execute runs command and returns its combined stdout and stderr. The
// output is returned even when the command fails; a non-zero exit is
// reported as a *CommandError.
func (c *Client) Execute(ctx context.Context, command string) (string, error) {
	conn, err := c.connect(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = conn.Close() }()

	session, err := conn.NewSession()
	if err != nil {
		return "", fmt.Errorf("failed to open session on %s: %w", c.addr, err)
	}
	defer func() { _ = session.Close() }()

	out, err := session.CombinedOutput(command)
	if err == nil {
		return string(out), nil
	}
	cmdErr := &CommandError{Command: command, Host: c.addr, ExitStatus: -1, Err: err}
	var exit *ssh.ExitError
	if errors.As(err, &exit) {
		cmdErr.ExitStatus = exit.ExitStatus()
	}
	return string(out), cmdErr
}

// connect dials until the instance accepts the login, the retries run out
// or ctx ends.
func (c *Client) connect(ctx context.Context) (*ssh.Client, error) {
	var conn *ssh.Client
	err := retry.WithExponentialBackoff(ctx, func() error {
		var err error
		conn, err = open(ctx, c.addr, c.proxy, c.config)
		return err
	},
		retry.WithMaxRetries(c.retries),
		retry.WithInitialDelay(c.backoff),
		retry.WithMaxDelay(backoffCap),
		retry.WithJitter(0.1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.addr, err)
	}
	return conn, nil
}

// open performs the TCP dial and the SSH handshake.
func open(ctx context.Context, addr, proxy string, config *ssh.ClientConfig) (*ssh.Client, error) {
	conn, err := dial(ctx, addr, proxy, config.Timeout)
	if err != nil {
		return nil, err
	}
	if config.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(config.Timeout))
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	_ = conn.SetDeadline(time.Time{})
	return ssh.NewClient(sshConn, chans, reqs), nil
}
