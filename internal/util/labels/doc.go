// Package labels builds the metadata attached to provisioned resources.
//
// Keys use the vnfstack.io prefix. Every resource carries the environment
// name and the ID of the run that created it, so a later clean or status
// run can tell its own resources from foreign ones.
package labels
