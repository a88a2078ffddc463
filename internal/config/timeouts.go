package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timeout values.
// These values can be customized via environment variables.
type Timeouts struct {
	Boot              time.Duration // Timeout for an instance to become ACTIVE
	Delete            time.Duration // Timeout for an instance deletion to be confirmed
	SSH               time.Duration // Timeout for an instance to accept SSH sessions
	FloatingIP        time.Duration // Timeout for binding a floating IP to a port
	PollInterval      time.Duration // Spacing between status checks
	ImageWait         time.Duration // Timeout for an uploaded image to become active
	RetryMaxAttempts  int           // Maximum number of retry attempts
	RetryInitialDelay time.Duration // Initial delay between retries
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set, invalid or not positive, a default
// value is used.
//
// Environment Variables:
//   - VNFSTACK_TIMEOUT_BOOT (default: 20m)
//   - VNFSTACK_TIMEOUT_DELETE (default: 10m)
//   - VNFSTACK_TIMEOUT_SSH (default: 2m)
//   - VNFSTACK_TIMEOUT_FLOATING_IP (default: 30s)
//   - VNFSTACK_POLL_INTERVAL (default: 3s)
//   - VNFSTACK_TIMEOUT_IMAGE_WAIT (default: 10m)
//   - VNFSTACK_RETRY_MAX_ATTEMPTS (default: 5)
//   - VNFSTACK_RETRY_INITIAL_DELAY (default: 1s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Boot:              parseDuration("VNFSTACK_TIMEOUT_BOOT", 1200*time.Second),
		Delete:            parseDuration("VNFSTACK_TIMEOUT_DELETE", 600*time.Second),
		SSH:               parseDuration("VNFSTACK_TIMEOUT_SSH", 120*time.Second),
		FloatingIP:        parseDuration("VNFSTACK_TIMEOUT_FLOATING_IP", 30*time.Second),
		PollInterval:      parseDuration("VNFSTACK_POLL_INTERVAL", 3*time.Second),
		ImageWait:         parseDuration("VNFSTACK_TIMEOUT_IMAGE_WAIT", 10*time.Minute),
		RetryMaxAttempts:  parseInt("VNFSTACK_RETRY_MAX_ATTEMPTS", 5),
		RetryInitialDelay: parseDuration("VNFSTACK_RETRY_INITIAL_DELAY", 1*time.Second),
	}
}

// TimeoutOverrides is the timeouts block of an environment file.
// Zero values leave the corresponding timeout untouched.
type TimeoutOverrides struct {
	Boot         time.Duration `yaml:"boot"`
	Delete       time.Duration `yaml:"delete"`
	SSH          time.Duration `yaml:"ssh"`
	FloatingIP   time.Duration `yaml:"floating_ip"`
	PollInterval time.Duration `yaml:"poll_interval"`
	ImageWait    time.Duration `yaml:"image_wait"`
}

// Apply returns a copy of t with the non-zero overrides applied.
func (o TimeoutOverrides) Apply(t *Timeouts) *Timeouts {
	out := *t
	set := func(dst *time.Duration, v time.Duration) {
		if v > 0 {
			*dst = v
		}
	}
	set(&out.Boot, o.Boot)
	set(&out.Delete, o.Delete)
	set(&out.SSH, o.SSH)
	set(&out.FloatingIP, o.FloatingIP)
	set(&out.PollInterval, o.PollInterval)
	set(&out.ImageWait, o.ImageWait)
	return &out
}

// EffectiveTimeouts returns the effective timeouts for this environment: the
// environment-variable policy with the file's timeouts block applied on top.
func (c *Config) EffectiveTimeouts() *Timeouts {
	return c.Timeouts.Apply(LoadTimeouts())
}

// envOr parses the environment variable name with parse. Unset, unparsable
// and non-positive values yield def.
func envOr[T int | time.Duration](name string, def T, parse func(string) (T, error)) T {
	raw, ok := os.LookupEnv(name)
	if !ok || raw == "" {
		return def
	}
	v, err := parse(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func parseDuration(name string, def time.Duration) time.Duration {
	return envOr(name, def, time.ParseDuration)
}

func parseInt(name string, def int) int {
	return envOr(name, def, strconv.Atoi)
}
