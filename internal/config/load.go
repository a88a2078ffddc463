package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultImageDownloadPath is where downloaded image files are kept.
const DefaultImageDownloadPath = "/tmp/vnfstack/images"

// Load reads, defaults and validates an environment file.
func Load(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := decode(data)
	if err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		base := filepath.Base(path)
		cfg.Name = strings.TrimSuffix(base, filepath.Ext(base))
	}

	return finish(cfg)
}

// LoadFromBytes parses, defaults and validates an environment document.
// The environment name must be set in the document.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg, err := decode(data)
	if err != nil {
		return nil, err
	}
	return finish(cfg)
}

func decode(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("config is empty")
		}
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}
	return &cfg, nil
}

func finish(cfg *Config) (*Config, error) {
	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderOpenStack
	}
	if c.SSH.Port == 0 {
		c.SSH.Port = 22
	}
	if c.HCloud.NetworkZone == "" {
		c.HCloud.NetworkZone = "eu-central"
	}

	for i := range c.Images {
		img := &c.Images[i]
		if img.Format == "" {
			img.Format = "qcow2"
		}
		if img.ContainerFormat == "" {
			img.ContainerFormat = "bare"
		}
		if img.LocalDownloadPath == "" {
			img.LocalDownloadPath = DefaultImageDownloadPath
		}
	}

	for i := range c.Networks {
		sub := &c.Networks[i].Subnet
		if sub.IPVersion == 0 {
			sub.IPVersion = 4
		}
		if sub.Name == "" {
			sub.Name = c.Networks[i].Name + "-subnet"
		}
	}

	// Instances without an explicit user log in as their image's default user.
	for i := range c.Instances {
		inst := &c.Instances[i]
		if inst.SudoUser != "" {
			continue
		}
		if img, ok := c.Image(inst.ImageName); ok {
			inst.SudoUser = img.ImageUser
		}
	}
}

// applyEnv fills omitted credentials from the standard OpenStack and
// Hetzner Cloud environment variables.
func (c *Config) applyEnv() {
	conn := &c.OpenStack.Connection
	if conn.Cloud == "" && conn.AuthURL == "" && conn.Username == "" {
		conn.Cloud = os.Getenv("OS_CLOUD")
	}
	if conn.Cloud == "" {
		fromEnv(&conn.Username, "OS_USERNAME")
		fromEnv(&conn.Password, "OS_PASSWORD")
		fromEnv(&conn.AuthURL, "OS_AUTH_URL")
		if conn.Project() == "" {
			fromEnv(&conn.ProjectName, "OS_PROJECT_NAME")
			fromEnv(&conn.ProjectName, "OS_TENANT_NAME")
		}
		fromEnv(&conn.UserDomain, "OS_USER_DOMAIN_NAME")
		fromEnv(&conn.ProjectDomain, "OS_PROJECT_DOMAIN_NAME")
		fromEnv(&conn.Region, "OS_REGION_NAME")
		fromEnv(&conn.CACert, "OS_CACERT")
	}

	fromEnv(&c.HCloud.Token, "HCLOUD_TOKEN")

	fromEnv(&c.ObjectStore.Endpoint, "AWS_ENDPOINT_URL_S3")
	fromEnv(&c.ObjectStore.Region, "AWS_REGION")
}

func fromEnv(dst *string, key string) {
	if *dst == "" {
		*dst = os.Getenv(key)
	}
}
