package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// Validate checks the configuration for common errors and returns a detailed error if validation fails.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}

	if err := c.validateProvider(); err != nil {
		return fmt.Errorf("provider validation failed: %w", err)
	}
	if err := c.validateSSH(); err != nil {
		return fmt.Errorf("ssh validation failed: %w", err)
	}
	if err := c.validateImages(); err != nil {
		return fmt.Errorf("image validation failed: %w", err)
	}
	if err := c.validateNetworks(); err != nil {
		return fmt.Errorf("network validation failed: %w", err)
	}
	if err := c.validateKeypairs(); err != nil {
		return fmt.Errorf("keypair validation failed: %w", err)
	}
	if err := c.validateInstances(); err != nil {
		return fmt.Errorf("instance validation failed: %w", err)
	}
	if err := c.validatePlaybooks(); err != nil {
		return fmt.Errorf("ansible validation failed: %w", err)
	}
	if err := c.Timeouts.validate(); err != nil {
		return fmt.Errorf("timeouts validation failed: %w", err)
	}

	return nil
}

func (c *Config) validateProvider() error {
	switch c.Provider {
	case ProviderOpenStack:
		conn := c.OpenStack.Connection
		if conn.Cloud != "" {
			return nil
		}
		if conn.AuthURL == "" {
			return fmt.Errorf("openstack.connection.auth_url is required")
		}
		if conn.Username == "" {
			return fmt.Errorf("openstack.connection.username is required")
		}
		if conn.Password == "" {
			return fmt.Errorf("openstack.connection.password is required")
		}
		if conn.Project() == "" {
			return fmt.Errorf("openstack.connection.project_name is required")
		}
		if conn.HTTPProxy != "" {
			if _, _, err := net.SplitHostPort(conn.HTTPProxy); err != nil {
				return fmt.Errorf("openstack.connection.http_proxy must be host:port: %w", err)
			}
		}
	case ProviderHCloud:
		if c.HCloud.Token == "" {
			return fmt.Errorf("hcloud.token is required")
		}
		if c.HCloud.Location == "" {
			return fmt.Errorf("hcloud.location is required")
		}
	default:
		return fmt.Errorf("unsupported provider %q (want %s or %s)", c.Provider, ProviderOpenStack, ProviderHCloud)
	}
	return nil
}

func (c *Config) validateSSH() error {
	if c.SSH.Proxy != "" {
		if _, _, err := net.SplitHostPort(c.SSH.Proxy); err != nil {
			return fmt.Errorf("proxy must be host:port: %w", err)
		}
	}
	if c.SSH.Port < 1 || c.SSH.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.SSH.Port)
	}
	return nil
}

func (c *Config) validateImages() error {
	seen := make(map[string]bool)
	for i, img := range c.Images {
		if img.Name == "" {
			return fmt.Errorf("images[%d]: name is required", i)
		}
		if seen[img.Name] {
			return fmt.Errorf("duplicate image name %q", img.Name)
		}
		seen[img.Name] = true

		if img.DownloadURL == "" {
			continue
		}
		u, err := url.Parse(img.DownloadURL)
		if err != nil {
			return fmt.Errorf("image %q: invalid download_url: %w", img.Name, err)
		}
		switch u.Scheme {
		case "http", "https":
		case "s3":
			if u.Host == "" || strings.Trim(u.Path, "/") == "" {
				return fmt.Errorf("image %q: download_url must look like s3://bucket/key", img.Name)
			}
		default:
			return fmt.Errorf("image %q: unsupported download_url scheme %q", img.Name, u.Scheme)
		}
	}
	return nil
}

func (c *Config) validateNetworks() error {
	seen := make(map[string]bool)
	for i, n := range c.Networks {
		if n.Name == "" {
			return fmt.Errorf("networks[%d]: name is required", i)
		}
		if seen[n.Name] {
			return fmt.Errorf("duplicate network name %q", n.Name)
		}
		seen[n.Name] = true

		if err := n.Subnet.validate(); err != nil {
			return fmt.Errorf("network %q: %w", n.Name, err)
		}
		if n.Router != nil && n.Router.Name == "" {
			return fmt.Errorf("network %q: router name is required", n.Name)
		}
	}
	return nil
}

func (s SubnetConfig) validate() error {
	if s.CIDR == "" {
		return fmt.Errorf("subnet cidr is required")
	}
	ip, ipNet, err := net.ParseCIDR(s.CIDR)
	if err != nil {
		return fmt.Errorf("invalid subnet cidr %q: %w", s.CIDR, err)
	}

	switch s.IPVersion {
	case 4:
		if ip.To4() == nil {
			return fmt.Errorf("subnet cidr %q is not IPv4", s.CIDR)
		}
	case 6:
		if ip.To4() != nil {
			return fmt.Errorf("subnet cidr %q is not IPv6", s.CIDR)
		}
	default:
		return fmt.Errorf("unsupported ip_version %d", s.IPVersion)
	}

	if s.GatewayIP != "" {
		if gw := net.ParseIP(s.GatewayIP); gw == nil || !ipNet.Contains(gw) {
			return fmt.Errorf("gateway_ip %q is not inside %s", s.GatewayIP, s.CIDR)
		}
	}
	for _, pool := range s.AllocationPools {
		for _, addr := range []string{pool.Start, pool.End} {
			if ip := net.ParseIP(addr); ip == nil || !ipNet.Contains(ip) {
				return fmt.Errorf("allocation pool address %q is not inside %s", addr, s.CIDR)
			}
		}
	}
	return nil
}

func (c *Config) validateKeypairs() error {
	seen := make(map[string]bool)
	for i, kp := range c.Keypairs {
		if kp.Name == "" {
			return fmt.Errorf("keypairs[%d]: name is required", i)
		}
		if seen[kp.Name] {
			return fmt.Errorf("duplicate keypair name %q", kp.Name)
		}
		seen[kp.Name] = true
		if kp.PublicFilepath == "" || kp.PrivateFilepath == "" {
			return fmt.Errorf("keypair %q: public_filepath and private_filepath are required", kp.Name)
		}
	}
	return nil
}

func (c *Config) validateInstances() error {
	seen := make(map[string]bool)
	ports := make(map[string]bool)
	for i, inst := range c.Instances {
		if inst.Name == "" {
			return fmt.Errorf("instances[%d]: name is required", i)
		}
		if seen[inst.Name] {
			return fmt.Errorf("duplicate instance name %q", inst.Name)
		}
		seen[inst.Name] = true

		if inst.Flavor == "" {
			return fmt.Errorf("instance %q: flavor is required", inst.Name)
		}
		if inst.ImageName == "" {
			return fmt.Errorf("instance %q: image_name is required", inst.Name)
		}
		if inst.Userdata != "" && inst.UserdataFile != "" {
			return fmt.Errorf("instance %q: userdata and userdata_file are mutually exclusive", inst.Name)
		}
		if len(inst.Ports) == 0 {
			return fmt.Errorf("instance %q: at least one port is required", inst.Name)
		}

		for _, p := range inst.Ports {
			if p.Name == "" || p.NetworkName == "" {
				return fmt.Errorf("instance %q: port name and network_name are required", inst.Name)
			}
			if ports[p.Name] {
				return fmt.Errorf("instance %q: duplicate port name %q", inst.Name, p.Name)
			}
			ports[p.Name] = true
			if p.IP != "" && net.ParseIP(p.IP) == nil {
				return fmt.Errorf("instance %q: port %q has invalid ip %q", inst.Name, p.Name, p.IP)
			}
		}

		if fip := inst.FloatingIP; fip != nil {
			if _, ok := inst.Port(fip.PortName); !ok {
				return fmt.Errorf("instance %q: floating_ip.port_name %q is not one of its ports", inst.Name, fip.PortName)
			}
			if fip.ExtNet == "" {
				return fmt.Errorf("instance %q: floating_ip.ext_net is required", inst.Name)
			}
		}
	}
	return nil
}

func (c *Config) validatePlaybooks() error {
	for i, pb := range c.Ansible {
		if pb.PlaybookLocation == "" {
			return fmt.Errorf("ansible[%d]: playbook_location is required", i)
		}
		if len(pb.Hosts) == 0 {
			return fmt.Errorf("ansible[%d]: at least one host is required", i)
		}
		for _, host := range pb.Hosts {
			if _, ok := c.Instance(host); !ok {
				return fmt.Errorf("ansible[%d]: host %q is not a configured instance", i, host)
			}
		}
		for _, name := range pb.Variables.Names() {
			if err := c.validateVariable(pb.Variables[name]); err != nil {
				return fmt.Errorf("ansible[%d]: variable %q: %w", i, name, err)
			}
		}
	}
	return nil
}

func (c *Config) validateVariable(v Variable) error {
	for _, vm := range v.Instances() {
		if _, ok := c.Instance(vm); !ok {
			return fmt.Errorf("instance %q is not configured", vm)
		}
	}

	switch v := v.(type) {
	case VMAttrVar:
		inst, _ := c.Instance(v.VM)
		if inst.FloatingIP == nil {
			return fmt.Errorf("instance %q has no floating_ip", v.VM)
		}
	case PortVar:
		inst, _ := c.Instance(v.VM)
		if _, ok := inst.Port(v.Port); !ok {
			return fmt.Errorf("instance %q has no port %q", v.VM, v.Port)
		}
	case CredsVar:
		if c.Provider != ProviderOpenStack {
			return fmt.Errorf("os_creds variables require the %s provider", ProviderOpenStack)
		}
	}
	return nil
}

func (o TimeoutOverrides) validate() error {
	for name, d := range map[string]time.Duration{
		"boot":          o.Boot,
		"delete":        o.Delete,
		"ssh":           o.SSH,
		"floating_ip":   o.FloatingIP,
		"poll_interval": o.PollInterval,
		"image_wait":    o.ImageWait,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}
