// Package publish provides the building blocks a deployment script needs to
// push files to object storage fronted by a CDN.
//
// It exposes four independent operations that share nothing but a storage
// handle:
//
//   - credentials.Resolve obtains ambient credentials once per process.
//   - Detector compares local bytes with the remote object's ETag.
//   - Publisher uploads bytes with an inferred content type.
//   - Invalidator asks the CDN to purge cached paths.
//
// None of them calls another; the caller decides whether a detected change
// warrants a publish and whether a publish warrants an invalidation.
// Backends for the ObjectStore and CDN interfaces live in the storage and
// cdn subpackages.
//
// Fingerprints
//
// A fingerprint is computed the way S3 computes ETags for objects written by
// the managed uploader: a plain MD5 for single-part uploads and an MD5 of the
// concatenated part digests suffixed with "-N" for multipart uploads. Objects
// encrypted with SSE-KMS carry ETags that are not content digests, so they
// always compare as changed.
package publish
