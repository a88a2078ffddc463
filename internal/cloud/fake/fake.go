// Package fake provides an in-memory cloud.Provider for tests.
//
// Server status transitions are scripted with StatusSequence, deletion lag
// with DeleteLag, and failures are injected per method with Fail.
package fake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/imamik/vnfstack/internal/cloud"
)

// Provider is an in-memory cloud.Provider.
type Provider struct {
	// StatusSequence is replayed by GetServer for every server created through
	// CreateServer; the last element repeats. Empty means ACTIVE immediately.
	StatusSequence []cloud.ServerStatus

	// DeleteLag is the number of GetServer calls that still return a deleted
	// server before it disappears.
	DeleteLag int

	// KeepDeleted makes deleted servers report DELETED instead of vanishing.
	KeepDeleted bool

	// SetupError, when set, is returned by CreateServer together with the
	// server it created.
	SetupError error

	// BindFailures is the number of BindFloatingIP calls that fail with a
	// conflict before binding succeeds.
	BindFailures int

	// ImageStatusSequence is replayed by GetImage for every image created
	// through CreateImage; the last element repeats. Empty means active.
	ImageStatusSequence []string

	mu       sync.Mutex
	nextID   int
	servers  map[string]*cloud.Server
	sequence map[string][]cloud.ServerStatus
	deleting map[string]int
	ports    map[string]*cloud.Port
	networks map[string]*cloud.Network
	fips     map[string]*cloud.FloatingIP
	keypairs map[string]*cloud.Keypair
	images   map[string]*cloud.Image
	imageSeq map[string][]string
	errs     map[string]error
	calls    map[string]int
}

var _ cloud.Provider = (*Provider)(nil)

// New returns an empty provider.
func New() *Provider {
	return &Provider{
		servers:  make(map[string]*cloud.Server),
		sequence: make(map[string][]cloud.ServerStatus),
		deleting: make(map[string]int),
		ports:    make(map[string]*cloud.Port),
		networks: make(map[string]*cloud.Network),
		fips:     make(map[string]*cloud.FloatingIP),
		keypairs: make(map[string]*cloud.Keypair),
		images:   make(map[string]*cloud.Image),
		imageSeq: make(map[string][]string),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
	}
}

// Name implements cloud.Provider.
func (p *Provider) Name() string { return "fake" }

// Fail makes every subsequent call to method return err. A nil err clears it.
func (p *Provider) Fail(method string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.errs, method)
		return
	}
	p.errs[method] = err
}

// Calls returns how often method was invoked.
func (p *Provider) Calls(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[method]
}

// AddServer registers a pre-existing server and returns its ID.
func (p *Provider) AddServer(s cloud.Server) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s.ID == "" {
		s.ID = p.id("srv")
	}
	if s.Status == "" {
		s.Status = cloud.StatusActive
	}
	p.servers[s.ID] = &s
	return s.ID
}

// AddNetwork registers a network and returns it.
func (p *Provider) AddNetwork(name string) *cloud.Network {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := &cloud.Network{ID: p.id("net"), Name: name, SubnetID: p.id("subnet"), CIDR: "10.0.0.0/24"}
	p.networks[name] = n
	return n
}

// AddPort registers a pre-existing port and returns it.
func (p *Provider) AddPort(port cloud.Port) *cloud.Port {
	p.mu.Lock()
	defer p.mu.Unlock()
	if port.ID == "" {
		port.ID = p.id("port")
	}
	p.ports[port.ID] = &port
	return &port
}

// AddFloatingIP registers a pre-existing floating IP and returns its ID.
func (p *Provider) AddFloatingIP(f cloud.FloatingIP) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if f.ID == "" {
		f.ID = p.id("fip")
	}
	p.fips[f.ID] = &f
	return f.ID
}

// AddImage registers a pre-existing image and returns its ID.
func (p *Provider) AddImage(img cloud.Image) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if img.ID == "" {
		img.ID = p.id("img")
	}
	if img.Status == "" {
		img.Status = cloud.ImageStatusActive
	}
	p.images[img.ID] = &img
	return img.ID
}

// AddKeypair registers a pre-existing keypair.
func (p *Provider) AddKeypair(k cloud.Keypair) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keypairs[k.Name] = &k
}

// Server returns a copy of the server with the given ID.
func (p *Provider) Server(id string) (cloud.Server, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.servers[id]
	if !ok {
		return cloud.Server{}, false
	}
	return *s, true
}

// Port returns a copy of the port with the given ID.
func (p *Provider) Port(id string) (cloud.Port, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	port, ok := p.ports[id]
	if !ok {
		return cloud.Port{}, false
	}
	return *port, true
}

// FloatingIP returns a copy of the floating IP with the given ID.
func (p *Provider) FloatingIP(id string) (cloud.FloatingIP, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	f, ok := p.fips[id]
	if !ok {
		return cloud.FloatingIP{}, false
	}
	return *f, true
}

// Counts reports how many servers, ports and floating IPs exist.
func (p *Provider) Counts() (servers, ports, fips int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.servers), len(p.ports), len(p.fips)
}

// Keypair returns the keypair with the given name.
func (p *Provider) Keypair(name string) (cloud.Keypair, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	k, ok := p.keypairs[name]
	if !ok {
		return cloud.Keypair{}, false
	}
	return *k, true
}

// Image returns the image with the given name.
func (p *Provider) Image(name string) (cloud.Image, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, img := range p.images {
		if img.Name == name {
			return *img, true
		}
	}
	return cloud.Image{}, false
}

// Network returns the network with the given name.
func (p *Provider) Network(name string) (cloud.Network, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.networks[name]
	if !ok {
		return cloud.Network{}, false
	}
	return *n, true
}

// call records an invocation and returns the injected error, if any.
// Callers must hold p.mu.
func (p *Provider) call(method string) error {
	p.calls[method]++
	return p.errs[method]
}

func (p *Provider) id(prefix string) string {
	p.nextID++
	return fmt.Sprintf("%s-%d", prefix, p.nextID)
}

// FindServer implements cloud.Compute.
func (p *Provider) FindServer(_ context.Context, name string) (*cloud.Server, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call("FindServer"); err != nil {
		return nil, err
	}
	for _, s := range p.servers {
		if s.Name == name {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

// CreateServer implements cloud.Compute.
func (p *Provider) CreateServer(_ context.Context, opts cloud.ServerCreateOpts) (*cloud.Server, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call("CreateServer"); err != nil {
		return nil, err
	}
	s := &cloud.Server{ID: p.id("srv"), Name: opts.Name, Status: cloud.StatusPending, RawStatus: "BUILD"}
	for _, port := range opts.Ports {
		stored, ok := p.ports[port.ID]
		if !ok {
			return nil, cloud.NotFound("create server", "port/"+port.ID)
		}
		stored.DeviceID = s.ID
		s.Addresses = append(s.Addresses, stored.FixedIPs...)
	}
	p.servers[s.ID] = s
	p.sequence[s.ID] = append([]cloud.ServerStatus(nil), p.StatusSequence...)
	cp := *s
	return &cp, p.SetupError
}

// GetServer implements cloud.Compute.
func (p *Provider) GetServer(_ context.Context, id string) (*cloud.Server, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call("GetServer"); err != nil {
		return nil, err
	}
	s, ok := p.servers[id]
	if !ok {
		return nil, cloud.NotFound("get server", id)
	}

	if lag, deleting := p.deleting[id]; deleting {
		if lag > 0 {
			p.deleting[id] = lag - 1
			cp := *s
			return &cp, nil
		}
		if p.KeepDeleted {
			s.Status = cloud.StatusDeleted
			cp := *s
			return &cp, nil
		}
		delete(p.servers, id)
		delete(p.deleting, id)
		return nil, cloud.NotFound("get server", id)
	}

	if seq, scripted := p.sequence[id]; scripted {
		switch {
		case len(seq) == 0:
			s.Status = cloud.StatusActive
		case len(seq) == 1:
			s.Status = seq[0]
		default:
			s.Status = seq[0]
			p.sequence[id] = seq[1:]
		}
	}
	cp := *s
	return &cp, nil
}

// DeleteServer implements cloud.Compute.
func (p *Provider) DeleteServer(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call("DeleteServer"); err != nil {
		return err
	}
	if _, ok := p.servers[id]; !ok {
		return cloud.NotFound("delete server", id)
	}
	p.deleting[id] = p.DeleteLag
	return nil
}

// EnsureNetwork implements cloud.Networking.
func (p *Provider) EnsureNetwork(_ context.Context, spec cloud.NetworkSpec) (*cloud.Network, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call("EnsureNetwork"); err != nil {
		return nil, err
	}
	if n, ok := p.networks[spec.Name]; ok {
		cp := *n
		return &cp, nil
	}
	n := &cloud.Network{ID: p.id("net"), Name: spec.Name, SubnetID: p.id("subnet"), CIDR: spec.Subnet.CIDR}
	if spec.Router != nil {
		n.RouterID = p.id("router")
	}
	p.networks[spec.Name] = n
	cp := *n
	return &cp, nil
}

// FindNetwork implements cloud.Networking.
func (p *Provider) FindNetwork(_ context.Context, name string) (*cloud.Network, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call("FindNetwork"); err != nil {
		return nil, err
	}
	n, ok := p.networks[name]
	if !ok {
		return nil, nil
	}
	cp := *n
	return &cp, nil
}

// TeardownNetwork implements cloud.Networking.
func (p *Provider) TeardownNetwork(_ context.Context, spec cloud.NetworkSpec) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call("TeardownNetwork"); err != nil {
		return err
	}
	delete(p.networks, spec.Name)
	return nil
}

// FindPort implements cloud.Networking.
func (p *Provider) FindPort(_ context.Context, name string) (*cloud.Port, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call("FindPort"); err != nil {
		return nil, err
	}
	for _, port := range p.ports {
		if port.Name == name {
			cp := *port
			return &cp, nil
		}
	}
	return nil, nil
}

// CreatePort implements cloud.Networking.
func (p *Provider) CreatePort(_ context.Context, opts cloud.PortCreateOpts) (*cloud.Port, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call("CreatePort"); err != nil {
		return nil, err
	}
	found := false
	for _, n := range p.networks {
		if n.ID == opts.NetworkID {
			found = true
			break
		}
	}
	if !found {
		return nil, cloud.NotFound("create port", "network/"+opts.NetworkID)
	}
	port := &cloud.Port{
		ID:        p.id("port"),
		Name:      opts.Name,
		NetworkID: opts.NetworkID,
	}
	port.MACAddress = fmt.Sprintf("fa:16:3e:00:00:%02x", p.nextID%256)
	ip := opts.FixedIP
	if ip == "" {
		ip = fmt.Sprintf("10.0.0.%d", 10+p.nextID%240)
	}
	port.FixedIPs = []string{ip}
	p.ports[port.ID] = port
	cp := *port
	return &cp, nil
}

// DeletePort implements cloud.Networking.
func (p *Provider) DeletePort(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call("DeletePort"); err != nil {
		return err
	}
	if _, ok := p.ports[id]; !ok {
		return cloud.NotFound("delete port", id)
	}
	delete(p.ports, id)
	return nil
}

// AllocateFloatingIP implements cloud.Networking.
func (p *Provider) AllocateFloatingIP(_ context.Context, pool, instance string) (*cloud.FloatingIP, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call("AllocateFloatingIP"); err != nil {
		return nil, err
	}
	f := &cloud.FloatingIP{ID: p.id("fip"), Pool: pool, Instance: instance}
	f.Address = fmt.Sprintf("203.0.113.%d", p.nextID%250+1)
	p.fips[f.ID] = f
	cp := *f
	return &cp, nil
}

// BindFloatingIP implements cloud.Networking.
func (p *Provider) BindFloatingIP(_ context.Context, id string, target cloud.BindTarget) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call("BindFloatingIP"); err != nil {
		return err
	}
	if p.BindFailures > 0 {
		p.BindFailures--
		return cloud.NewError(cloud.KindConflict, "bind floating ip", id,
			errors.New("port has no fixed ip visible yet"))
	}
	f, ok := p.fips[id]
	if !ok {
		return cloud.NotFound("bind floating ip", id)
	}
	f.PortID = target.PortID
	f.FixedIP = target.FixedIP
	f.ServerID = target.ServerID
	return nil
}

// UnbindFloatingIP implements cloud.Networking.
func (p *Provider) UnbindFloatingIP(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call("UnbindFloatingIP"); err != nil {
		return err
	}
	f, ok := p.fips[id]
	if !ok {
		return cloud.NotFound("unbind floating ip", id)
	}
	f.PortID, f.FixedIP, f.ServerID = "", "", ""
	return nil
}

// DeleteFloatingIP implements cloud.Networking.
func (p *Provider) DeleteFloatingIP(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call("DeleteFloatingIP"); err != nil {
		return err
	}
	if _, ok := p.fips[id]; !ok {
		return cloud.NotFound("delete floating ip", id)
	}
	delete(p.fips, id)
	return nil
}

// ListFloatingIPs implements cloud.Networking.
func (p *Provider) ListFloatingIPs(_ context.Context) ([]cloud.FloatingIP, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call("ListFloatingIPs"); err != nil {
		return nil, err
	}
	out := make([]cloud.FloatingIP, 0, len(p.fips))
	for _, f := range p.fips {
		out = append(out, *f)
	}
	return out, nil
}

// FindImage implements cloud.Images.
func (p *Provider) FindImage(_ context.Context, name string) (*cloud.Image, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call("FindImage"); err != nil {
		return nil, err
	}
	for _, img := range p.images {
		if img.Name == name {
			cp := *img
			return &cp, nil
		}
	}
	return nil, nil
}

// CreateImage implements cloud.Images. The data is drained.
func (p *Provider) CreateImage(_ context.Context, opts cloud.ImageCreateOpts, data io.Reader) (*cloud.Image, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call("CreateImage"); err != nil {
		return nil, err
	}
	if _, err := io.Copy(io.Discard, data); err != nil {
		return nil, err
	}
	img := &cloud.Image{ID: p.id("img"), Name: opts.Name, Status: cloud.ImageStatusActive}
	if len(p.ImageStatusSequence) > 0 {
		img.Status = "queued"
		p.imageSeq[img.ID] = append([]string(nil), p.ImageStatusSequence...)
	}
	p.images[img.ID] = img
	cp := *img
	return &cp, nil
}

// GetImage implements cloud.Images.
func (p *Provider) GetImage(_ context.Context, id string) (*cloud.Image, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call("GetImage"); err != nil {
		return nil, err
	}
	img, ok := p.images[id]
	if !ok {
		return nil, cloud.NotFound("get image", id)
	}
	if seq := p.imageSeq[id]; len(seq) > 0 {
		img.Status = seq[0]
		if len(seq) > 1 {
			p.imageSeq[id] = seq[1:]
		}
	}
	cp := *img
	return &cp, nil
}

// DeleteImage implements cloud.Images.
func (p *Provider) DeleteImage(_ context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call("DeleteImage"); err != nil {
		return err
	}
	if _, ok := p.images[id]; !ok {
		return cloud.NotFound("delete image", id)
	}
	delete(p.images, id)
	return nil
}

// FindKeypair implements cloud.Keypairs.
func (p *Provider) FindKeypair(_ context.Context, name string) (*cloud.Keypair, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call("FindKeypair"); err != nil {
		return nil, err
	}
	k, ok := p.keypairs[name]
	if !ok {
		return nil, nil
	}
	cp := *k
	return &cp, nil
}

// CreateKeypair implements cloud.Keypairs.
func (p *Provider) CreateKeypair(_ context.Context, name, publicKey string) (*cloud.Keypair, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call("CreateKeypair"); err != nil {
		return nil, err
	}
	if _, ok := p.keypairs[name]; ok {
		return nil, cloud.NewError(cloud.KindConflict, "create keypair", name, errors.New("already exists"))
	}
	k := &cloud.Keypair{Name: name, PublicKey: publicKey, Fingerprint: fmt.Sprintf("fp-%s", name)}
	p.keypairs[name] = k
	cp := *k
	return &cp, nil
}

// DeleteKeypair implements cloud.Keypairs.
func (p *Provider) DeleteKeypair(_ context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call("DeleteKeypair"); err != nil {
		return err
	}
	if _, ok := p.keypairs[name]; !ok {
		return cloud.NotFound("delete keypair", name)
	}
	delete(p.keypairs, name)
	return nil
}
