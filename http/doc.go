// Package http exposes the file sharing service over HTTP. Routes are
// mounted under /files; when the configured object store can open blobs
// locally they are additionally served under /blobs/.
package http
