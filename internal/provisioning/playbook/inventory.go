package playbook

import (
	"fmt"
	"os"
	"strings"

	"github.com/imamik/vnfstack/internal/util/naming"
)

// Host is one inventory entry.
type Host struct {
	Name       string
	Address    string
	User       string
	PrivateKey string
}

// RenderInventory renders hosts as an INI inventory with a single [all]
// group.
func RenderInventory(hosts []Host, port int) string {
	var b strings.Builder
	b.WriteString("[all]\n")
	for _, h := range hosts {
		fmt.Fprintf(&b, "%s ansible_host=%s", h.Name, h.Address)
		if h.User != "" {
			fmt.Fprintf(&b, " ansible_user=%s", h.User)
		}
		if h.PrivateKey != "" {
			fmt.Fprintf(&b, " ansible_ssh_private_key_file=%s", h.PrivateKey)
		}
		b.WriteString("\n")
	}
	if port > 0 {
		fmt.Fprintf(&b, "\n[all:vars]\nansible_port=%d\n", port)
	}
	return b.String()
}

// writeInventory writes the inventory to a temporary file and returns its
// path. The caller removes it.
func writeInventory(environment string, hosts []Host, port int) (string, error) {
	f, err := os.CreateTemp("", naming.InventoryPattern(environment))
	if err != nil {
		return "", fmt.Errorf("failed to create inventory: %w", err)
	}
	if _, err := f.WriteString(RenderInventory(hosts, port)); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to write inventory: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("failed to write inventory: %w", err)
	}
	return f.Name(), nil
}
