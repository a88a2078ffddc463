package instance

// Spec describes an instance to create. It is not modified by the controller.
type Spec struct {
	// Name is unique within the project and is used for idempotent lookup.
	Name   string
	Flavor string
	Image  string

	// Ports are attached in order; the first becomes the primary NIC.
	Ports []PortSpec

	KeyName  string
	UserData string

	// FloatingIP is optional.
	FloatingIP *FloatingIPRequest

	// Login is used for reachability probes. Without it the instance cannot
	// be probed.
	Login *Login

	// Labels are merged into the provider-level resource labels.
	Labels map[string]string
}

// PortSpec is an attachment point. An existing port with the same name is
// reused, otherwise one is created on Network with the optional fixed IP.
type PortSpec struct {
	Name    string
	Network string
	IP      string
}

// FloatingIPRequest names the port a floating IP is bound to and the
// external network it is allocated from.
type FloatingIPRequest struct {
	Port string
	Pool string
}

// Login holds the credentials used to open an SSH session.
type Login struct {
	User       string
	PrivateKey []byte
}
