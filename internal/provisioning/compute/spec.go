package compute

import (
	"fmt"
	"os"

	"github.com/imamik/vnfstack/internal/config"
	"github.com/imamik/vnfstack/internal/provisioning"
	"github.com/imamik/vnfstack/internal/provisioning/instance"
	"github.com/imamik/vnfstack/internal/provisioning/keypair"
	"github.com/imamik/vnfstack/internal/util/labels"
)

// lookupSpec returns the parts of the instance spec needed to find an
// instance and its attachments. No local files are read.
func lookupSpec(ic config.InstanceConfig) instance.Spec {
	spec := instance.Spec{
		Name:    ic.Name,
		Flavor:  ic.Flavor,
		Image:   ic.ImageName,
		KeyName: ic.KeypairName,
	}
	for _, pc := range ic.Ports {
		spec.Ports = append(spec.Ports, instance.PortSpec{Name: pc.Name, Network: pc.NetworkName, IP: pc.IP})
	}
	if fip := ic.FloatingIP; fip != nil {
		spec.FloatingIP = &instance.FloatingIPRequest{Port: fip.PortName, Pool: fip.ExtNet}
	}
	return spec
}

// BuildSpec returns the full instance spec for ic: user data, login and
// resource labels included.
func BuildSpec(ctx *provisioning.Context, ic config.InstanceConfig) (instance.Spec, error) {
	spec := lookupSpec(ic)

	spec.UserData = ic.Userdata
	if ic.UserdataFile != "" {
		// #nosec G304
		data, err := os.ReadFile(ic.UserdataFile)
		if err != nil {
			return instance.Spec{}, fmt.Errorf("instance %s: failed to read userdata_file: %w", ic.Name, err)
		}
		spec.UserData = string(data)
	}

	if ic.SudoUser != "" {
		key, err := keypair.PrivateKey(ctx.Config, ic.KeypairName)
		if err != nil {
			return instance.Spec{}, fmt.Errorf("instance %s: %w", ic.Name, err)
		}
		if key != nil {
			spec.Login = &instance.Login{User: ic.SudoUser, PrivateKey: key}
		}
	}

	spec.Labels = labels.NewLabelBuilder(ctx.Config.Name).
		WithRunID(ctx.RunID).
		WithInstance(ic.Name).
		Build()
	return spec, nil
}
