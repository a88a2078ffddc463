// Package provisioning provides shared types and orchestration for deploying
// and cleaning an environment.
//
// # Subpackages
//
//   - image/: image lookup, download and upload
//   - network/: networks, subnets and routers
//   - keypair/: SSH keypair registration and generation
//   - compute/: instance creation through the instance controller
//   - instance/: lifecycle of a single instance
//   - playbook/: Ansible inventory rendering and playbook execution
//   - destroy/: best-effort cleanup in reverse dependency order
//
// # Core Types
//
// Context carries configuration, state, the cloud provider, the prober and
// the observer. Phase defines a provisioning step with Name() and
// Provision() methods. State accumulates what each phase found or created.
package provisioning
