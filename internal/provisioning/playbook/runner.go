package playbook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Invocation is one ansible-playbook run.
type Invocation struct {
	Playbook  string
	Inventory string

	// User and PrivateKey are the defaults for hosts without their own.
	User       string
	PrivateKey string

	// Proxy is an HTTP CONNECT proxy (host:port) for the SSH connections.
	Proxy string

	ExtraVars map[string]string
}

// Runner runs playbooks.
type Runner interface {
	Run(ctx context.Context, inv Invocation) error
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, inv Invocation) error

// Run implements Runner.
func (f RunnerFunc) Run(ctx context.Context, inv Invocation) error {
	return f(ctx, inv)
}

// ExecRunner runs the ansible-playbook binary.
type ExecRunner struct {
	// Binary defaults to "ansible-playbook" looked up in PATH.
	Binary string
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner returns a runner that streams ansible output to stdout and
// stderr.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{Binary: "ansible-playbook", Stdout: os.Stdout, Stderr: os.Stderr}
}

// Args returns the command line arguments for inv.
func Args(inv Invocation) ([]string, error) {
	args := []string{"-i", inv.Inventory}
	if inv.User != "" {
		args = append(args, "-u", inv.User)
	}
	if inv.PrivateKey != "" {
		args = append(args, "--private-key", inv.PrivateKey)
	}
	if inv.Proxy != "" {
		args = append(args, fmt.Sprintf(`--ssh-common-args=-o ProxyCommand="nc -X connect -x %s %%h %%p"`, inv.Proxy))
	}
	if len(inv.ExtraVars) > 0 {
		vars, err := json.Marshal(inv.ExtraVars)
		if err != nil {
			return nil, fmt.Errorf("failed to encode extra vars: %w", err)
		}
		args = append(args, "--extra-vars", string(vars))
	}
	return append(args, inv.Playbook), nil
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, inv Invocation) error {
	args, err := Args(inv)
	if err != nil {
		return err
	}
	bin := r.Binary
	if bin == "" {
		bin = "ansible-playbook"
	}

	// #nosec G204
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Env = append(os.Environ(), "ANSIBLE_HOST_KEY_CHECKING=False")
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ansible-playbook %s failed: %w", inv.Playbook, err)
	}
	return nil
}
