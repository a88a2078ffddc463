package config

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Variable types accepted in a playbook's variables block.
const (
	VarTypeString  = "string"
	VarTypeVMAttr  = "vm-attr"
	VarTypeOSCreds = "os_creds"
	VarTypePort    = "port"
)

// VMAttribute is an instance attribute a vm-attr variable can reference.
type VMAttribute string

// Supported instance attributes.
const (
	VMAttrFloatingIP VMAttribute = "floating_ip"
)

// CredentialField is a connection credential an os_creds variable can reference.
type CredentialField string

// Supported credential fields.
const (
	CredUsername CredentialField = "username"
	CredPassword CredentialField = "password"
	CredAuthURL  CredentialField = "auth_url"
	CredProject  CredentialField = "project_name"
)

// PortAttribute is a port attribute a port variable can reference.
type PortAttribute string

// Supported port attributes.
const (
	PortAttrMAC PortAttribute = "mac_address"
	PortAttrIP  PortAttribute = "ip_address"
)

// Resolver supplies the runtime values variables refer to.
type Resolver interface {
	FloatingIP(vm string) (string, error)
	PortAttr(vm, port string, attr PortAttribute) (string, error)
	Credential(field CredentialField) (string, error)
}

// Variable is a playbook substitution variable.
type Variable interface {
	Resolve(r Resolver) (string, error)
	// Instances lists the instances the variable refers to.
	Instances() []string
}

// StringVar is a literal value.
type StringVar struct {
	Value string
}

// Resolve returns the literal value.
func (v StringVar) Resolve(Resolver) (string, error) { return v.Value, nil }

// Instances returns nil.
func (v StringVar) Instances() []string { return nil }

// VMAttrVar references an attribute of an instance.
type VMAttrVar struct {
	VM   string
	Attr VMAttribute
}

// Resolve looks the attribute up through r.
func (v VMAttrVar) Resolve(r Resolver) (string, error) {
	return r.FloatingIP(v.VM)
}

// Instances returns the referenced instance.
func (v VMAttrVar) Instances() []string { return []string{v.VM} }

// CredsVar references a connection credential.
type CredsVar struct {
	Field CredentialField
}

// Resolve looks the credential up through r.
func (v CredsVar) Resolve(r Resolver) (string, error) {
	return r.Credential(v.Field)
}

// Instances returns nil.
func (v CredsVar) Instances() []string { return nil }

// PortVar references an attribute of one of an instance's ports.
type PortVar struct {
	VM   string
	Port string
	Attr PortAttribute
}

// Resolve looks the port attribute up through r.
func (v PortVar) Resolve(r Resolver) (string, error) {
	return r.PortAttr(v.VM, v.Port, v.Attr)
}

// Instances returns the referenced instance.
func (v PortVar) Instances() []string { return []string{v.VM} }

// Variables maps variable names to their definitions.
type Variables map[string]Variable

// rawVariable is the on-disk shape of every variable type.
type rawVariable struct {
	Type      string `yaml:"type"`
	Value     string `yaml:"value"`
	VMName    string `yaml:"vm_name"`
	PortName  string `yaml:"port_name"`
	PortValue string `yaml:"port_value"`
}

// UnmarshalYAML decodes each entry into its concrete Variable type.
func (vs *Variables) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string]rawVariable
	if err := node.Decode(&raw); err != nil {
		return err
	}

	out := make(Variables, len(raw))
	for name, rv := range raw {
		v, err := rv.variable()
		if err != nil {
			return fmt.Errorf("variable %q: %w", name, err)
		}
		out[name] = v
	}
	*vs = out
	return nil
}

func (rv rawVariable) variable() (Variable, error) {
	switch rv.Type {
	case VarTypeString:
		return StringVar{Value: rv.Value}, nil

	case VarTypeVMAttr:
		if rv.VMName == "" {
			return nil, fmt.Errorf("vm_name is required")
		}
		if VMAttribute(rv.Value) != VMAttrFloatingIP {
			return nil, fmt.Errorf("unsupported vm-attr value %q", rv.Value)
		}
		return VMAttrVar{VM: rv.VMName, Attr: VMAttribute(rv.Value)}, nil

	case VarTypeOSCreds:
		field := CredentialField(rv.Value)
		if field == "tenant_name" {
			field = CredProject
		}
		switch field {
		case CredUsername, CredPassword, CredAuthURL, CredProject:
			return CredsVar{Field: field}, nil
		}
		return nil, fmt.Errorf("unsupported os_creds value %q", rv.Value)

	case VarTypePort:
		if rv.VMName == "" || rv.PortName == "" {
			return nil, fmt.Errorf("vm_name and port_name are required")
		}
		attr := PortAttribute(rv.PortValue)
		if attr != PortAttrMAC && attr != PortAttrIP {
			return nil, fmt.Errorf("unsupported port_value %q", rv.PortValue)
		}
		return PortVar{VM: rv.VMName, Port: rv.PortName, Attr: attr}, nil

	case "":
		return nil, fmt.Errorf("type is required")
	}
	return nil, fmt.Errorf("unknown type %q", rv.Type)
}

// Resolve resolves every variable through r.
func (vs Variables) Resolve(r Resolver) (map[string]string, error) {
	out := make(map[string]string, len(vs))
	for _, name := range vs.Names() {
		val, err := vs[name].Resolve(r)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve variable %q: %w", name, err)
		}
		out[name] = val
	}
	return out, nil
}

// Names returns the variable names in sorted order.
func (vs Variables) Names() []string {
	names := make([]string, 0, len(vs))
	for name := range vs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
