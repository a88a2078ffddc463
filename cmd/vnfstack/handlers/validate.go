package handlers

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/imamik/vnfstack/internal/config"
)

// validateOutput is where validate reports; replaced in tests.
var validateOutput io.Writer = os.Stdout

// Validate handles the validate command. It loads the environment file
// without contacting the control plane and prints a summary.
func Validate(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	fmt.Fprintf(validateOutput, "%s is valid\n", configPath)
	fmt.Fprintf(validateOutput, "  environment: %s\n", cfg.Name)
	fmt.Fprintf(validateOutput, "  provider:    %s\n", cfg.Provider)
	fmt.Fprintf(validateOutput, "  images:      %s\n", list(names(cfg.Images, func(i config.ImageConfig) string { return i.Name })))
	fmt.Fprintf(validateOutput, "  networks:    %s\n", list(names(cfg.Networks, func(n config.NetworkConfig) string { return n.Name })))
	fmt.Fprintf(validateOutput, "  keypairs:    %s\n", list(names(cfg.Keypairs, func(k config.KeypairConfig) string { return k.Name })))
	fmt.Fprintf(validateOutput, "  instances:   %s\n", list(names(cfg.Instances, func(i config.InstanceConfig) string { return i.Name })))
	fmt.Fprintf(validateOutput, "  playbooks:   %d\n", len(cfg.Ansible))
	return nil
}

func names[T any](items []T, name func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, name(it))
	}
	return out
}

func list(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
