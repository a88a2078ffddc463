package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/kballard/go-shellquote"

	"github.com/imamik/vnfstack/internal/platform/ssh"
	"github.com/imamik/vnfstack/internal/provisioning/compute"
	"github.com/imamik/vnfstack/internal/provisioning/keypair"
)

// RemoteExecutor runs commands on an instance.
type RemoteExecutor interface {
	Execute(ctx context.Context, command string) (string, error)
}

var (
	// newRemoteExecutor opens an SSH command client.
	newRemoteExecutor = func(cfg ssh.Config) (RemoteExecutor, error) {
		c, err := ssh.NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	}

	// execOutput is where exec prints the remote output; replaced in tests.
	execOutput io.Writer = os.Stdout
)

// Exec handles the exec command. It runs command on the named instance as
// its sudo user, using the instance keypair and the environment's proxy.
// Arguments are quoted for the remote shell. A non-zero remote exit status
// is returned as a *ssh.CommandError; see ExitCode.
func Exec(ctx context.Context, configPath, name string, command []string) error {
	defer flushMetrics()

	pCtx, err := setup(ctx, configPath)
	if err != nil {
		return err
	}

	ic, ok := pCtx.Config.Instance(name)
	if !ok {
		return fmt.Errorf("instance %s is not part of environment %s", name, pCtx.Config.Name)
	}
	if ic.SudoUser == "" {
		return fmt.Errorf("instance %s has no sudo_user", name)
	}
	key, err := keypair.PrivateKey(pCtx.Config, ic.KeypairName)
	if err != nil {
		return err
	}
	if key == nil {
		return fmt.Errorf("instance %s has no keypair with a private key", name)
	}

	h, err := compute.Lookup(pCtx, ic)
	if err != nil {
		return err
	}
	if !h.Existing() {
		return fmt.Errorf("instance %s does not exist", name)
	}
	addr := h.Address()
	if addr == "" {
		return fmt.Errorf("instance %s has no address", name)
	}

	client, err := newRemoteExecutor(ssh.Config{
		Host:       addr,
		Port:       pCtx.Config.SSH.Port,
		User:       ic.SudoUser,
		PrivateKey: key,
		Proxy:      pCtx.Config.SSH.Proxy,
		MaxRetries: pCtx.Timeouts.RetryMaxAttempts,
		RetryDelay: pCtx.Timeouts.RetryInitialDelay,
	})
	if err != nil {
		return fmt.Errorf("failed to create ssh client: %w", err)
	}

	out, err := client.Execute(ctx, shellquote.Join(command...))
	fmt.Fprint(execOutput, out)
	if err != nil {
		return fmt.Errorf("exec on %s failed: %w", name, err)
	}
	return nil
}

// ExitCode maps err to a process exit code: 0 for nil, the remote exit
// status for a failed remote command, 1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var cmdErr *ssh.CommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitStatus > 0 {
		return cmdErr.ExitStatus
	}
	return 1
}
