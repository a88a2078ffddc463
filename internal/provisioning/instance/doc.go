// Package instance drives the lifecycle of a single VM instance.
//
// A [Controller] creates an instance idempotently (an instance that already
// exists under the requested name is adopted without a second create call),
// waits for the control plane to report it ACTIVE, binds a floating IP
// through the [Attacher], and waits until the guest accepts SSH logins.
// [Controller.Destroy] deletes the instance best-effort and releases the
// floating IP and ports it holds.
//
// A [Handle] records what the controller learned about one instance. Only
// the controller that produced a handle mutates it, and its remote ID is set
// at most once: it is cleared only after the control plane confirms the
// deletion.
package instance
