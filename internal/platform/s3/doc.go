// Package s3 downloads image files from S3-compatible object storage.
//
// Images whose download_url has the form s3://bucket/key are streamed
// through this client into the local download directory before upload.
package s3
