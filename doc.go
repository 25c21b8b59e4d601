// Package filedrop provides the core of a small file-sharing service:
// clients upload files or shared text snippets, blobs land in an object
// store, and a relational file_metadata table drives listing, starring,
// download resolution, and admin deletion.
//
// # Key Components
//
//   - ShareService: orchestrates writes and reads across the two stores
//   - MetadataRepo: interface for the file_metadata table (PostgreSQL, SQLite)
//   - ObjectStore: interface for blob storage (filesystem, S3-compatible)
//   - Authorizer: admin authorization seam, implemented by StaticSecret
//
// # Schema tolerance
//
// Deployments do not always run the full file_metadata schema; older tables
// may lack the starred, text-share, storage-key, or soft-delete columns, and
// the upload timestamp column has gone by two names. Each repo probes the
// actual column set once at connect time and exposes it as a Capabilities
// descriptor; the service and the repos shape their statements from that
// descriptor instead of rediscovering missing columns through failed queries.
//
// # Consistency
//
// The two stores are never updated transactionally. Uploads compensate a
// failed metadata insert by deleting the just-written blob; deletes mark
// rows pending-delete before touching blob storage so an interrupted delete
// can be repaired later by ShareService.Reconcile. Concurrent writes to the
// same filename remain last-writer-wins in each store independently.
//
// See the http package for the REST surface and the database/objectstore
// packages for the storage backends.
package filedrop
