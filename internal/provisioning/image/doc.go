// Package image registers the disk images an environment boots from.
//
// An image that already exists remotely under its configured name is
// reused. Otherwise the image file is taken from local_download_path, or
// downloaded there first from an http(s):// or s3:// download_url, then
// uploaded and polled until the image service reports it active.
package image
