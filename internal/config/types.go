package config

// Supported control-plane backends.
const (
	ProviderOpenStack = "openstack"
	ProviderHCloud    = "hcloud"
)

// Config is a parsed environment file.
type Config struct {
	// Name identifies the environment. It defaults to the file name without
	// extension and ends up in the metadata of every created resource.
	Name     string `yaml:"name"`
	Provider string `yaml:"provider"`

	OpenStack OpenStackConfig `yaml:"openstack"`
	HCloud    HCloudConfig    `yaml:"hcloud"`
	SSH       SSHConfig       `yaml:"ssh"`
	// ObjectStore is used for images whose download_url is an s3:// URL.
	ObjectStore ObjectStoreConfig `yaml:"object_store"`

	Images    []ImageConfig    `yaml:"images"`
	Networks  []NetworkConfig  `yaml:"networks"`
	Keypairs  []KeypairConfig  `yaml:"keypairs"`
	Instances []InstanceConfig `yaml:"instances"`

	// NICPlaybook configures secondary interfaces of multi-port instances.
	NICPlaybook string           `yaml:"nic_playbook"`
	Ansible     []PlaybookConfig `yaml:"ansible"`

	Timeouts TimeoutOverrides `yaml:"timeouts"`
}

// OpenStackConfig holds the OpenStack connection settings.
type OpenStackConfig struct {
	Connection ConnectionConfig `yaml:"connection"`
}

// ConnectionConfig holds OpenStack credentials. When Cloud is set the named
// clouds.yaml entry is used and the remaining credential fields are ignored.
type ConnectionConfig struct {
	Username      string `yaml:"username"`
	Password      string `yaml:"password"`
	AuthURL       string `yaml:"auth_url"`
	ProjectName   string `yaml:"project_name"`
	TenantName    string `yaml:"tenant_name"`
	UserDomain    string `yaml:"user_domain"`
	ProjectDomain string `yaml:"project_domain"`
	Region        string `yaml:"region"`
	HTTPProxy     string `yaml:"http_proxy"`
	CACert        string `yaml:"cacert"`
	Insecure      bool   `yaml:"insecure"`
	Cloud         string `yaml:"cloud"`
}

// Project returns the project name, falling back to the legacy tenant name.
func (c ConnectionConfig) Project() string {
	if c.ProjectName != "" {
		return c.ProjectName
	}
	return c.TenantName
}

// HCloudConfig holds the Hetzner Cloud settings.
type HCloudConfig struct {
	Token       string `yaml:"token"`
	Location    string `yaml:"location"`
	NetworkZone string `yaml:"network_zone"`
}

// SSHConfig controls how instances are reached over SSH.
type SSHConfig struct {
	// Proxy is an HTTP CONNECT proxy as host:port.
	Proxy string `yaml:"proxy"`
	Port  int    `yaml:"port"`
}

// ObjectStoreConfig holds S3 settings. Omitted credentials fall back to the
// AWS SDK default chain.
type ObjectStoreConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PathStyle bool   `yaml:"path_style"`
}

// ImageConfig describes an image to register.
type ImageConfig struct {
	Name              string `yaml:"name"`
	Format            string `yaml:"format"`
	ContainerFormat   string `yaml:"container_format"`
	DownloadURL       string `yaml:"download_url"`
	LocalDownloadPath string `yaml:"local_download_path"`
	ImageUser         string `yaml:"image_user"`
	Public            bool   `yaml:"public"`
}

// NetworkConfig describes a network with its subnet and optional router.
type NetworkConfig struct {
	Name   string        `yaml:"name"`
	Subnet SubnetConfig  `yaml:"subnet"`
	Router *RouterConfig `yaml:"router"`
}

// SubnetConfig describes a subnet.
type SubnetConfig struct {
	Name            string                 `yaml:"name"`
	CIDR            string                 `yaml:"cidr"`
	IPVersion       int                    `yaml:"ip_version"`
	GatewayIP       string                 `yaml:"gateway_ip"`
	DNSNameservers  []string               `yaml:"dns_nameservers"`
	EnableDHCP      *bool                  `yaml:"enable_dhcp"`
	AllocationPools []AllocationPoolConfig `yaml:"allocation_pools"`
}

// AllocationPoolConfig is an inclusive DHCP range.
type AllocationPoolConfig struct {
	Start string `yaml:"start"`
	End   string `yaml:"end"`
}

// RouterConfig describes a router. ExternalGateway names an external network.
type RouterConfig struct {
	Name            string `yaml:"name"`
	ExternalGateway string `yaml:"external_gateway"`
}

// KeypairConfig describes an SSH keypair. When the public key file does not
// exist a new RSA key pair is generated into both paths.
type KeypairConfig struct {
	Name            string `yaml:"name"`
	PublicFilepath  string `yaml:"public_filepath"`
	PrivateFilepath string `yaml:"private_filepath"`
}

// InstanceConfig describes a VM instance.
type InstanceConfig struct {
	Name         string            `yaml:"name"`
	Flavor       string            `yaml:"flavor"`
	ImageName    string            `yaml:"image_name"`
	KeypairName  string            `yaml:"keypair_name"`
	SudoUser     string            `yaml:"sudo_user"`
	Userdata     string            `yaml:"userdata"`
	UserdataFile string            `yaml:"userdata_file"`
	Ports        []PortConfig      `yaml:"ports"`
	FloatingIP   *FloatingIPConfig `yaml:"floating_ip"`
}

// Port returns the named port configuration.
func (i InstanceConfig) Port(name string) (PortConfig, bool) {
	for _, p := range i.Ports {
		if p.Name == name {
			return p, true
		}
	}
	return PortConfig{}, false
}

// PortConfig describes an attachment point. IP is optional.
type PortConfig struct {
	Name        string `yaml:"name"`
	NetworkName string `yaml:"network_name"`
	IP          string `yaml:"ip"`
}

// FloatingIPConfig requests a floating IP for one of the instance's ports.
type FloatingIPConfig struct {
	PortName string `yaml:"port_name"`
	ExtNet   string `yaml:"ext_net"`
}

// PlaybookConfig describes a playbook applied to a set of instances.
type PlaybookConfig struct {
	PlaybookLocation string    `yaml:"playbook_location"`
	Hosts            []string  `yaml:"hosts"`
	Variables        Variables `yaml:"variables"`
}

// Image returns the named image configuration.
func (c *Config) Image(name string) (ImageConfig, bool) {
	for _, img := range c.Images {
		if img.Name == name {
			return img, true
		}
	}
	return ImageConfig{}, false
}

// Keypair returns the named keypair configuration.
func (c *Config) Keypair(name string) (KeypairConfig, bool) {
	for _, kp := range c.Keypairs {
		if kp.Name == name {
			return kp, true
		}
	}
	return KeypairConfig{}, false
}

// Instance returns the named instance configuration.
func (c *Config) Instance(name string) (InstanceConfig, bool) {
	for _, inst := range c.Instances {
		if inst.Name == name {
			return inst, true
		}
	}
	return InstanceConfig{}, false
}
