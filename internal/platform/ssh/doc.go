// Package ssh opens authenticated SSH sessions to provisioned instances.
//
// Prober answers a single question: can we log in right now? Client runs
// commands and retries the connection while the guest is still booting.
// Both can tunnel the TCP leg through an HTTP CONNECT proxy given as
// host:port, the way corkscrew does.
package ssh
