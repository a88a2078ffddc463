// Package testing provides test utilities, builders, and fixtures for the
// provisioning phases.
//
//   - ConfigBuilder: Fluent builder for environment configurations
//   - Fixture: fake provider, recording observer and fast timeouts wired
//     into a provisioning.Context
//   - MockProber: testify mock for SSH reachability
//
// Usage:
//
//	cfg := testing.NewConfigBuilder().
//	    WithNetwork("mgmt", "10.0.1.0/24").
//	    WithInstance(config.InstanceConfig{Name: "web-1"}).
//	    Build()
//
//	fx := testing.NewFixture()
//	ctx := fx.Context(t, cfg)
package testing
