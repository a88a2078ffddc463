package instance

import (
	"fmt"

	"github.com/imamik/vnfstack/internal/cloud"
)

// Handle is the controller's record of one instance.
type Handle struct {
	spec Spec

	id        string
	status    cloud.ServerStatus
	addresses []string
	existing  bool

	// ports holds the resolved attachment points in spec order. Entries are
	// nil when the backend has no port resource to look up.
	ports      []*cloud.Port
	floatingIP *cloud.FloatingIP
}

func newHandle(spec Spec) *Handle {
	return &Handle{spec: spec, ports: make([]*cloud.Port, len(spec.Ports))}
}

// Name returns the instance name.
func (h *Handle) Name() string { return h.spec.Name }

// Spec returns the spec the handle was created from.
func (h *Handle) Spec() Spec { return h.spec }

// ID returns the remote identifier, or "" when the instance does not exist.
func (h *Handle) ID() string { return h.id }

// Status returns the last observed lifecycle state.
func (h *Handle) Status() cloud.ServerStatus { return h.status }

// Existing reports whether the instance was found rather than created.
func (h *Handle) Existing() bool { return h.existing }

// FloatingIP returns the floating IP held by the instance, or nil.
func (h *Handle) FloatingIP() *cloud.FloatingIP { return h.floatingIP }

// Addresses returns the addresses last reported by the control plane.
func (h *Handle) Addresses() []string { return append([]string(nil), h.addresses...) }

// Port returns the resolved port with the given spec name.
func (h *Handle) Port(name string) (*cloud.Port, bool) {
	for i, p := range h.spec.Ports {
		if p.Name == name && h.ports[i] != nil {
			cp := *h.ports[i]
			return &cp, true
		}
	}
	return nil, false
}

// Ports returns the resolved ports in spec order, skipping unresolved ones.
func (h *Handle) Ports() []cloud.Port {
	var out []cloud.Port
	for _, p := range h.ports {
		if p != nil {
			out = append(out, *p)
		}
	}
	return out
}

// Address returns the address used to reach the instance: the floating IP
// when one is bound, else the first fixed IP of the primary port, else the
// first reported address.
func (h *Handle) Address() string {
	if h.floatingIP != nil && h.floatingIP.Bound() {
		return h.floatingIP.Address
	}
	if len(h.ports) > 0 && h.ports[0] != nil {
		if ip := h.ports[0].FirstIP(); ip != "" {
			return ip
		}
	}
	if len(h.addresses) > 0 {
		return h.addresses[0]
	}
	return ""
}

func (h *Handle) setID(id string) error {
	if h.id != "" && h.id != id {
		return fmt.Errorf("instance %s already has id %s, refusing to reassign to %s", h.Name(), h.id, id)
	}
	h.id = id
	return nil
}
