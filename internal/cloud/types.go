package cloud

import (
	"context"
	"io"
)

// ServerStatus is the lifecycle state of a compute instance as reported by
// the control plane.
type ServerStatus string

// Lifecycle states. Backends map their native status strings onto these.
const (
	StatusPending ServerStatus = "PENDING"
	StatusActive  ServerStatus = "ACTIVE"
	StatusError   ServerStatus = "ERROR"
	StatusDeleted ServerStatus = "DELETED"
)

// Server is a compute instance.
type Server struct {
	ID     string
	Name   string
	Status ServerStatus
	// RawStatus is the backend's own status string (e.g. BUILD, starting).
	RawStatus string
	Addresses []string
}

// Port is a virtual NIC binding an instance to a network.
type Port struct {
	ID         string
	Name       string
	NetworkID  string
	MACAddress string
	FixedIPs   []string
	DeviceID   string
}

// FirstIP returns the first fixed address of the port, or "".
func (p Port) FirstIP() string {
	if len(p.FixedIPs) == 0 {
		return ""
	}
	return p.FixedIPs[0]
}

// PortCreateOpts describes a port to create. FixedIP is optional.
type PortCreateOpts struct {
	Name      string
	NetworkID string
	FixedIP   string
}

// Network is an L2 network together with its subnet and optional router.
type Network struct {
	ID       string
	Name     string
	SubnetID string
	RouterID string
	CIDR     string
}

// NetworkSpec describes a network, its subnet and optional router.
type NetworkSpec struct {
	Name   string
	Subnet SubnetSpec
	Router *RouterSpec
}

// SubnetSpec describes a subnet.
type SubnetSpec struct {
	Name            string
	CIDR            string
	IPVersion       int
	GatewayIP       string
	DNSNameservers  []string
	EnableDHCP      *bool
	AllocationPools []AllocationPool
}

// AllocationPool is an inclusive address range handed out by DHCP.
type AllocationPool struct {
	Start string
	End   string
}

// RouterSpec describes a router attached to the subnet. ExternalNetwork names
// the network used as external gateway and may be empty.
type RouterSpec struct {
	Name            string
	ExternalNetwork string
}

// FloatingIP is a publicly routable address.
type FloatingIP struct {
	ID      string
	Address string
	Pool    string
	// PortID and FixedIP describe the current binding; both are empty when unbound.
	PortID  string
	FixedIP string
	// ServerID is set by backends that bind addresses to servers rather than ports.
	ServerID string
	// Instance is the instance the address was allocated for. It survives an
	// unbound address so a later run can still release it.
	Instance string
}

// Bound reports whether the address is currently bound.
func (f *FloatingIP) Bound() bool {
	return f != nil && (f.PortID != "" || f.ServerID != "")
}

// BindTarget is the interface address a floating IP is bound to.
type BindTarget struct {
	ServerID string
	PortID   string
	FixedIP  string
}

// Keypair is a registered SSH public key.
type Keypair struct {
	Name        string
	Fingerprint string
	PublicKey   string
}

// ImageStatusActive is the Image.Status of an image that can be booted.
const ImageStatusActive = "active"

// Image is a bootable disk image.
type Image struct {
	ID     string
	Name   string
	Status string
}

// ImageCreateOpts describes an image to register.
type ImageCreateOpts struct {
	Name            string
	DiskFormat      string
	ContainerFormat string
	Public          bool
}

// ServerCreateOpts describes a server to create. Ports must already exist.
type ServerCreateOpts struct {
	Name     string
	Flavor   string
	Image    string
	Ports    []Port
	KeyName  string
	UserData string
	// Labels become server metadata (OpenStack) or labels (Hetzner Cloud).
	Labels map[string]string
}

// Compute manages servers. CreateServer returns the server together with
// the error when it was created but could not be set up.
type Compute interface {
	FindServer(ctx context.Context, name string) (*Server, error)
	CreateServer(ctx context.Context, opts ServerCreateOpts) (*Server, error)
	GetServer(ctx context.Context, id string) (*Server, error)
	DeleteServer(ctx context.Context, id string) error
}

// Networking manages networks, ports and floating IPs.
type Networking interface {
	EnsureNetwork(ctx context.Context, spec NetworkSpec) (*Network, error)
	FindNetwork(ctx context.Context, name string) (*Network, error)
	TeardownNetwork(ctx context.Context, spec NetworkSpec) error

	FindPort(ctx context.Context, name string) (*Port, error)
	CreatePort(ctx context.Context, opts PortCreateOpts) (*Port, error)
	DeletePort(ctx context.Context, id string) error

	AllocateFloatingIP(ctx context.Context, pool, instance string) (*FloatingIP, error)
	BindFloatingIP(ctx context.Context, id string, target BindTarget) error
	UnbindFloatingIP(ctx context.Context, id string) error
	DeleteFloatingIP(ctx context.Context, id string) error
	ListFloatingIPs(ctx context.Context) ([]FloatingIP, error)
}

// Images manages disk images.
type Images interface {
	FindImage(ctx context.Context, name string) (*Image, error)
	CreateImage(ctx context.Context, opts ImageCreateOpts, data io.Reader) (*Image, error)
	GetImage(ctx context.Context, id string) (*Image, error)
	DeleteImage(ctx context.Context, id string) error
}

// Keypairs manages SSH keypairs.
type Keypairs interface {
	FindKeypair(ctx context.Context, name string) (*Keypair, error)
	CreateKeypair(ctx context.Context, name, publicKey string) (*Keypair, error)
	DeleteKeypair(ctx context.Context, name string) error
}

// Provider is a complete control-plane backend.
type Provider interface {
	Compute
	Networking
	Images
	Keypairs

	// Name identifies the backend, e.g. "openstack".
	Name() string
}
