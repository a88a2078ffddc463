package testing

import (
	"testing"
	"time"

	"github.com/imamik/vnfstack/internal/cloud/fake"
	"github.com/imamik/vnfstack/internal/config"
	"github.com/imamik/vnfstack/internal/provisioning"
	"github.com/imamik/vnfstack/internal/provisioning/instance"
)

// Fixture bundles the fakes a phase test runs against.
type Fixture struct {
	Provider *fake.Provider
	Observer *RecordingObserver
	Prober   instance.Prober
	Timeouts *config.Timeouts
}

// NewFixture creates a fixture with an empty fake provider, a prober that
// reports every address reachable and millisecond timeouts.
func NewFixture() *Fixture {
	return &Fixture{
		Provider: fake.New(),
		Observer: &RecordingObserver{},
		Prober:   NewReachableProber(),
		Timeouts: FastTimeouts(),
	}
}

// FastTimeouts returns timeouts suitable for tests against the fake provider.
func FastTimeouts() *config.Timeouts {
	return &config.Timeouts{
		Boot:              time.Second,
		Delete:            time.Second,
		SSH:               200 * time.Millisecond,
		FloatingIP:        100 * time.Millisecond,
		PollInterval:      5 * time.Millisecond,
		ImageWait:         time.Second,
		RetryMaxAttempts:  3,
		RetryInitialDelay: time.Millisecond,
	}
}

// Context returns a provisioning context for cfg bound to the fixture.
func (f *Fixture) Context(t *testing.T, cfg *config.Config, opts ...provisioning.ContextOption) *provisioning.Context {
	t.Helper()
	base := []provisioning.ContextOption{
		provisioning.WithObserver(f.Observer),
		provisioning.WithTimeouts(f.Timeouts),
		provisioning.WithRunID("test-run"),
	}
	return provisioning.NewContext(TestContext(t), cfg, f.Provider, f.Prober, append(base, opts...)...)
}
