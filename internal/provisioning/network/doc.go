// Package network creates the environment's networks, each with its subnet
// and optional router, and tears them down again.
package network
