package testing

import (
	"maps"
	"slices"

	"github.com/imamik/vnfstack/internal/config"
)

// ConfigBuilder provides a fluent interface for constructing test configs.
// Each method returns a new builder (immutable) for chaining.
type ConfigBuilder struct {
	cfg config.Config
}

// NewConfigBuilder creates a new ConfigBuilder with sensible defaults.
func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{
		cfg: config.Config{
			Name:     "test-env",
			Provider: config.ProviderOpenStack,
			SSH:      config.SSHConfig{Port: 22},
		},
	}
}

// WithName sets the environment name.
func (b *ConfigBuilder) WithName(name string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Name = name
	return newBuilder
}

// WithImage adds an image.
func (b *ConfigBuilder) WithImage(img config.ImageConfig) *ConfigBuilder {
	newBuilder := b.clone()
	if img.Format == "" {
		img.Format = "qcow2"
	}
	if img.ContainerFormat == "" {
		img.ContainerFormat = "bare"
	}
	newBuilder.cfg.Images = append(newBuilder.cfg.Images, img)
	return newBuilder
}

// WithNetwork adds a network with a single subnet.
func (b *ConfigBuilder) WithNetwork(name, cidr string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Networks = append(newBuilder.cfg.Networks, config.NetworkConfig{
		Name: name,
		Subnet: config.SubnetConfig{
			Name:      name + "-subnet",
			CIDR:      cidr,
			IPVersion: 4,
		},
	})
	return newBuilder
}

// WithKeypair adds a keypair.
func (b *ConfigBuilder) WithKeypair(name, publicPath, privatePath string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Keypairs = append(newBuilder.cfg.Keypairs, config.KeypairConfig{
		Name:            name,
		PublicFilepath:  publicPath,
		PrivateFilepath: privatePath,
	})
	return newBuilder
}

// WithInstance adds an instance.
func (b *ConfigBuilder) WithInstance(inst config.InstanceConfig) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Instances = append(newBuilder.cfg.Instances, cloneInstance(inst))
	return newBuilder
}

// WithPlaybook adds a playbook applied to hosts.
func (b *ConfigBuilder) WithPlaybook(location string, hosts []string, vars config.Variables) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Ansible = append(newBuilder.cfg.Ansible, config.PlaybookConfig{
		PlaybookLocation: location,
		Hosts:            slices.Clone(hosts),
		Variables:        maps.Clone(vars),
	})
	return newBuilder
}

// WithNICPlaybook sets the playbook that configures secondary interfaces.
func (b *ConfigBuilder) WithNICPlaybook(location string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.NICPlaybook = location
	return newBuilder
}

// WithSSHProxy sets the HTTP CONNECT proxy used to reach instances.
func (b *ConfigBuilder) WithSSHProxy(proxy string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.SSH.Proxy = proxy
	return newBuilder
}

// Build returns the constructed config.
func (b *ConfigBuilder) Build() *config.Config {
	return &b.clone().cfg
}

// clone creates a deep copy of the builder for immutability.
func (b *ConfigBuilder) clone() *ConfigBuilder {
	newCfg := b.cfg
	newCfg.Images = slices.Clone(b.cfg.Images)
	newCfg.Networks = slices.Clone(b.cfg.Networks)
	newCfg.Keypairs = slices.Clone(b.cfg.Keypairs)
	if len(b.cfg.Instances) > 0 {
		newCfg.Instances = make([]config.InstanceConfig, len(b.cfg.Instances))
		for i, inst := range b.cfg.Instances {
			newCfg.Instances[i] = cloneInstance(inst)
		}
	}
	newCfg.Ansible = slices.Clone(b.cfg.Ansible)
	return &ConfigBuilder{cfg: newCfg}
}

// cloneInstance creates a deep copy of an InstanceConfig.
func cloneInstance(inst config.InstanceConfig) config.InstanceConfig {
	cloned := inst
	cloned.Ports = slices.Clone(inst.Ports)
	if inst.FloatingIP != nil {
		fip := *inst.FloatingIP
		cloned.FloatingIP = &fip
	}
	return cloned
}
