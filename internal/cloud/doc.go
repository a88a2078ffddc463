// Package cloud defines the provider-neutral control-plane contract used by
// the provisioning code.
//
// Backends (OpenStack, Hetzner Cloud) implement Provider and translate their
// SDK errors into *Error values once, at the boundary. Callers then branch on
// the error Kind instead of inspecting SDK-specific types or messages:
//
//	srv, err := provider.GetServer(ctx, id)
//	switch {
//	case cloud.IsNotFound(err):
//	    // already gone
//	case cloud.IsTransient(err):
//	    // try again later
//	case err != nil:
//	    return err
//	}
//
// Lookups by name return (nil, nil) when the resource does not exist.
// Lookups by ID return a NotFound error.
package cloud
