// Package openstack implements cloud.Provider on top of gophercloud.
//
// Compute requests go to nova, networks, ports and floating IPs to neutron,
// images to glance v2. Keypairs use the nova os-keypairs extension.
//
// gophercloud v0.12 requests carry no context; every operation checks the
// context before issuing its first request instead.
package openstack
