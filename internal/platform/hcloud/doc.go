// Package hcloud implements cloud.Provider on top of the Hetzner Cloud API.
//
// Deletes of every resource type go through deleteIfExists: a resource that
// is already gone counts as deleted and a locked one is retried.
//
// # Mapping onto the provider contract
//
// Hetzner Cloud has no port resource. Ports are virtual: CreatePort records
// the network and optional fixed IP in the port ID, and CreateServer realises
// the attachment by joining the server to each network before powering it on.
// Floating IPs are assigned to servers rather than ports, so BindFloatingIP
// only uses the target's ServerID. Images can be looked up and deleted but
// not uploaded.
//
// API errors are translated into cloud.Error kinds once, in classify.
package hcloud
