package playbook

import (
	"fmt"

	"github.com/imamik/vnfstack/internal/config"
	"github.com/imamik/vnfstack/internal/provisioning"
)

// stateResolver resolves playbook variables against the provisioned state.
type stateResolver struct {
	cfg   *config.Config
	state *provisioning.State
}

var _ config.Resolver = (*stateResolver)(nil)

func (r *stateResolver) FloatingIP(vm string) (string, error) {
	h, ok := r.state.Instance(vm)
	if !ok {
		return "", fmt.Errorf("instance %s has not been provisioned", vm)
	}
	fip := h.FloatingIP()
	if fip == nil || fip.Address == "" {
		return "", fmt.Errorf("instance %s has no floating ip", vm)
	}
	return fip.Address, nil
}

func (r *stateResolver) PortAttr(vm, port string, attr config.PortAttribute) (string, error) {
	h, ok := r.state.Instance(vm)
	if !ok {
		return "", fmt.Errorf("instance %s has not been provisioned", vm)
	}
	p, ok := h.Port(port)
	if !ok {
		return "", fmt.Errorf("instance %s has no port %s", vm, port)
	}

	switch attr {
	case config.PortAttrMAC:
		if p.MACAddress == "" {
			return "", fmt.Errorf("port %s has no mac address", port)
		}
		return p.MACAddress, nil
	case config.PortAttrIP:
		if ip := p.FirstIP(); ip != "" {
			return ip, nil
		}
		return "", fmt.Errorf("port %s has no fixed ip", port)
	}
	return "", fmt.Errorf("unsupported port attribute %q", attr)
}

func (r *stateResolver) Credential(field config.CredentialField) (string, error) {
	if r.cfg.Provider != config.ProviderOpenStack {
		return "", fmt.Errorf("credential %s is only available for the openstack provider", field)
	}
	conn := r.cfg.OpenStack.Connection
	switch field {
	case config.CredUsername:
		return conn.Username, nil
	case config.CredPassword:
		return conn.Password, nil
	case config.CredAuthURL:
		return conn.AuthURL, nil
	case config.CredProject:
		return conn.Project(), nil
	}
	return "", fmt.Errorf("unsupported credential %q", field)
}
