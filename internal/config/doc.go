// Package config loads and validates vnfstack environment files.
//
// An environment file is a YAML document describing the control plane
// credentials together with the images, networks, keypairs and instances
// to provision and the playbooks to apply afterwards. [Load] reads a file,
// fills defaults and credentials from the process environment, and
// validates the result. Playbook variables are decoded into concrete
// [Variable] implementations at load time.
//
// [LoadTimeouts] returns the polling and retry policy, overridable from
// environment variables and from the file's timeouts block.
package config
