// Package naming provides the names vnfstack derives for local files and
// guest interfaces.
//
// Remote resources keep the names given in the environment file; only
// artifacts the environment does not name explicitly are derived here.
package naming
