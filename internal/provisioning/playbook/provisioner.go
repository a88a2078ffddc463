package playbook

import (
	"fmt"
	"os"

	"github.com/imamik/vnfstack/internal/config"
	"github.com/imamik/vnfstack/internal/provisioning"
	"github.com/imamik/vnfstack/internal/provisioning/instance"
	"github.com/imamik/vnfstack/internal/util/naming"
)

const phase = "playbook"

// Provisioner applies the NIC playbook and the configured playbooks.
type Provisioner struct {
	// Runner defaults to NewExecRunner().
	Runner Runner

	reachable map[string]bool
}

// NewProvisioner creates a new playbook provisioner.
func NewProvisioner() *Provisioner {
	return &Provisioner{Runner: NewExecRunner()}
}

// Name implements the provisioning.Phase interface.
func (p *Provisioner) Name() string {
	return phase
}

// Provision implements the provisioning.Phase interface.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	if p.Runner == nil {
		p.Runner = NewExecRunner()
	}
	p.reachable = make(map[string]bool)

	if ctx.Config.NICPlaybook != "" {
		for _, ic := range ctx.Config.Instances {
			if len(ic.Ports) < 2 {
				continue
			}
			if err := p.configureNICs(ctx, ic); err != nil {
				return err
			}
		}
	}

	for i, pb := range ctx.Config.Ansible {
		ctx.Observer.Progress(phase, i+1, len(ctx.Config.Ansible))
		if err := p.runPlaybook(ctx, pb); err != nil {
			return err
		}
	}
	return nil
}

// configureNICs applies the NIC playbook once per secondary port of ic.
func (p *Provisioner) configureNICs(ctx *provisioning.Context, ic config.InstanceConfig) error {
	h, ok := ctx.State.Instance(ic.Name)
	if !ok {
		return fmt.Errorf("instance %s has not been provisioned", ic.Name)
	}

	for i := 1; i < len(ic.Ports); i++ {
		pc := ic.Ports[i]
		ip := pc.IP
		if port, found := h.Port(pc.Name); found && port.FirstIP() != "" {
			ip = port.FirstIP()
		}
		if ip == "" {
			ctx.Observer.Printf("[%s] Skipping %s of %s: no fixed ip", phase, naming.NIC(i), ic.Name)
			continue
		}

		ctx.Observer.Printf("[%s] Configuring %s (%s) on %s", phase, naming.NIC(i), ip, ic.Name)
		err := p.run(ctx, ctx.Config.NICPlaybook, []string{ic.Name}, map[string]string{
			"nic_name": naming.NIC(i),
			"nic_ip":   ip,
		})
		if err != nil {
			return fmt.Errorf("failed to configure %s on %s: %w", naming.NIC(i), ic.Name, err)
		}
	}
	return nil
}

func (p *Provisioner) runPlaybook(ctx *provisioning.Context, pb config.PlaybookConfig) error {
	vars, err := pb.Variables.Resolve(&stateResolver{cfg: ctx.Config, state: ctx.State})
	if err != nil {
		return fmt.Errorf("playbook %s: %w", pb.PlaybookLocation, err)
	}

	ctx.Observer.Printf("[%s] Running %s on %v", phase, pb.PlaybookLocation, pb.Hosts)
	if err := p.run(ctx, pb.PlaybookLocation, pb.Hosts, vars); err != nil {
		return fmt.Errorf("playbook %s: %w", pb.PlaybookLocation, err)
	}
	return nil
}

// run waits for the hosts to be reachable and runs the playbook on them.
func (p *Provisioner) run(ctx *provisioning.Context, playbook string, names []string, vars map[string]string) error {
	if _, err := os.Stat(playbook); err != nil {
		return fmt.Errorf("playbook not found: %w", err)
	}

	hosts := make([]Host, 0, len(names))
	for _, name := range names {
		host, err := p.host(ctx, name)
		if err != nil {
			return err
		}
		hosts = append(hosts, host)
	}
	if len(hosts) == 0 {
		return fmt.Errorf("no hosts")
	}

	inventory, err := writeInventory(ctx.Config.Name, hosts, ctx.Config.SSH.Port)
	if err != nil {
		return err
	}
	defer os.Remove(inventory)

	return p.Runner.Run(ctx, Invocation{
		Playbook:   playbook,
		Inventory:  inventory,
		User:       hosts[0].User,
		PrivateKey: hosts[0].PrivateKey,
		Proxy:      ctx.Config.SSH.Proxy,
		ExtraVars:  vars,
	})
}

// host waits until the named instance is reachable and returns its
// inventory entry.
func (p *Provisioner) host(ctx *provisioning.Context, name string) (Host, error) {
	h, ok := ctx.State.Instance(name)
	if !ok {
		return Host{}, fmt.Errorf("instance %s has not been provisioned", name)
	}
	ic, _ := ctx.Config.Instance(name)
	kc, _ := ctx.Config.Keypair(ic.KeypairName)
	if kc.PrivateFilepath != "" {
		if _, err := os.Stat(kc.PrivateFilepath); err != nil {
			return Host{}, fmt.Errorf("private key of %s: %w", name, err)
		}
	}

	if !p.reachable[name] {
		ok, err := ctx.Controller().WaitReachable(ctx, h, true)
		if err != nil {
			return Host{}, err
		}
		if !ok {
			return Host{}, fmt.Errorf("%w: %s at %s after %v", instance.ErrUnreachable, name, h.Address(), ctx.Timeouts.SSH)
		}
		p.reachable[name] = true
	}

	return Host{
		Name:       name,
		Address:    h.Address(),
		User:       ic.SudoUser,
		PrivateKey: kc.PrivateFilepath,
	}, nil
}
