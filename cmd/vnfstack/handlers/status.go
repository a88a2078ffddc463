package handlers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/imamik/vnfstack/internal/cloud"
	"github.com/imamik/vnfstack/internal/provisioning"
	"github.com/imamik/vnfstack/internal/provisioning/compute"
)

// statusOutput is where status renders; replaced in tests.
var statusOutput io.Writer = os.Stdout

// ResourceStatus is one row of the status report.
type ResourceStatus struct {
	Kind       string
	Name       string
	Status     string
	ID         string
	Address    string
	FloatingIP string
}

const statusAbsent = "absent"

// Status handles the status command.
//
// It looks up every configured resource without changing anything and
// prints one row per resource.
func Status(ctx context.Context, configPath string) error {
	defer flushMetrics()

	pCtx, err := setup(ctx, configPath)
	if err != nil {
		return err
	}

	rows, err := collectStatus(pCtx)
	if err != nil {
		return err
	}

	fmt.Fprint(statusOutput, renderStatus(pCtx.Config.Name, rows, isInteractiveTTY()))
	return nil
}

func collectStatus(ctx *provisioning.Context) ([]ResourceStatus, error) {
	var rows []ResourceStatus

	for _, img := range ctx.Config.Images {
		found, err := ctx.Provider.FindImage(ctx, img.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to look up image %s: %w", img.Name, err)
		}
		row := ResourceStatus{Kind: "image", Name: img.Name, Status: statusAbsent}
		if found != nil {
			row.Status, row.ID = found.Status, found.ID
		}
		rows = append(rows, row)
	}

	for _, nc := range ctx.Config.Networks {
		found, err := ctx.Provider.FindNetwork(ctx, nc.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to look up network %s: %w", nc.Name, err)
		}
		row := ResourceStatus{Kind: "network", Name: nc.Name, Status: statusAbsent}
		if found != nil {
			row.Status, row.ID, row.Address = "present", found.ID, found.CIDR
		}
		rows = append(rows, row)
	}

	for _, kc := range ctx.Config.Keypairs {
		found, err := ctx.Provider.FindKeypair(ctx, kc.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to look up keypair %s: %w", kc.Name, err)
		}
		row := ResourceStatus{Kind: "keypair", Name: kc.Name, Status: statusAbsent}
		if found != nil {
			row.Status, row.ID = "present", found.Fingerprint
		}
		rows = append(rows, row)
	}

	handles, err := compute.Inspect(ctx)
	if err != nil {
		return nil, err
	}
	for _, h := range handles {
		row := ResourceStatus{Kind: "instance", Name: h.Name(), Status: statusAbsent}
		if h.Existing() {
			row.Status, row.ID, row.Address = string(h.Status()), h.ID(), firstAddress(h.Ports(), h.Addresses())
		}
		if fip := h.FloatingIP(); fip != nil {
			row.FloatingIP = fip.Address
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func firstAddress(ports []cloud.Port, addresses []string) string {
	for _, p := range ports {
		if ip := p.FirstIP(); ip != "" {
			return ip
		}
	}
	if len(addresses) > 0 {
		return addresses[0]
	}
	return ""
}

func isInteractiveTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}
