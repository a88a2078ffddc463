// Package destroy tears an environment down.
//
// Resources are removed in dependency order: instances with their ports and
// floating IPs first, then keypairs and networks, and finally the images
// when requested. Teardown is best effort; every step runs and the failures
// are reported together.
package destroy
