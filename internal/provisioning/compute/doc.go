// Package compute creates the environment's VM instances through the
// instance controller and destroys them again.
//
// Instances are handled one at a time in configuration order. Each handle
// is recorded in the provisioning state as soon as it exists, also when the
// instance later fails, so that clean can find it.
package compute
