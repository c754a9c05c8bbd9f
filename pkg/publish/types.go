package publish

import (
	"errors"
	"fmt"
	"time"
)

// Credentials holds a resolved access key pair.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// Source names the provider in the chain that produced the keys.
	Source string

	CanExpire bool
	Expires   time.Time
}

// HasKeys reports whether both halves of the key pair are present.
func (c Credentials) HasKeys() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// String never includes the secret key or the session token.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{AccessKeyID: %s, Source: %s}", c.AccessKeyID, c.Source)
}

// ObjectRef identifies a remote object.
type ObjectRef struct {
	Bucket string
	Key    string
}

// Validate checks that both the bucket and the key are set.
func (r ObjectRef) Validate() error {
	if r.Bucket == "" {
		return errors.New("bucket is required")
	}
	if r.Key == "" {
		return errors.New("key is required")
	}
	return nil
}

func (r ObjectRef) String() string {
	return r.Bucket + "/" + r.Key
}

// Fingerprint is an unquoted S3-style ETag computed from local bytes.
type Fingerprint string

// Quoted returns the fingerprint in the form S3 reports in the ETag header.
func (f Fingerprint) Quoted() string {
	return `"` + string(f) + `"`
}

// ObjectMeta is the metadata returned by a HEAD lookup.
type ObjectMeta struct {
	Ref ObjectRef

	// ETag is kept verbatim, quotes included.
	ETag         string
	ContentType  string
	Size         int64
	LastModified time.Time
	VersionID    string
}

// DetectResult reports whether a remote object exists and whether the local
// bytes need to be uploaded over it.
type DetectResult struct {
	Exists      bool
	NeedsUpload bool
	RemoteETag  string
	Fingerprint Fingerprint
}

// AccessPolicy is a canned ACL applied on upload.
type AccessPolicy string

// Canned ACLs understood by S3.
const (
	ACLPrivate                AccessPolicy = "private"
	ACLPublicRead             AccessPolicy = "public-read"
	ACLPublicReadWrite        AccessPolicy = "public-read-write"
	ACLAuthenticatedRead      AccessPolicy = "authenticated-read"
	ACLBucketOwnerRead        AccessPolicy = "bucket-owner-read"
	ACLBucketOwnerFullControl AccessPolicy = "bucket-owner-full-control"
)

// DefaultAccessPolicy is applied when PublishOptions leaves AccessPolicy empty.
const DefaultAccessPolicy = ACLPublicRead

// Valid reports whether p is one of the known canned ACLs.
func (p AccessPolicy) Valid() bool {
	switch p {
	case ACLPrivate, ACLPublicRead, ACLPublicReadWrite, ACLAuthenticatedRead,
		ACLBucketOwnerRead, ACLBucketOwnerFullControl:
		return true
	}
	return false
}

// Encryption is a server-side encryption mode.
type Encryption string

// Server-side encryption modes.
const (
	EncryptionNone   Encryption = ""
	EncryptionAES256 Encryption = "AES256"
	EncryptionKMS    Encryption = "aws:kms"
)

// Valid reports whether e is a supported encryption mode.
func (e Encryption) Valid() bool {
	switch e {
	case EncryptionNone, EncryptionAES256, EncryptionKMS:
		return true
	}
	return false
}

// PublishOptions controls how an object is stored.
type PublishOptions struct {
	AccessPolicy AccessPolicy
	Encryption   Encryption
	KMSKeyID     string // only used with EncryptionKMS
	CacheControl string
}

// PutParams is what a Publisher hands to an ObjectStore.
type PutParams struct {
	Ref          ObjectRef
	Body         []byte
	ContentType  string
	AccessPolicy AccessPolicy
	Encryption   Encryption
	KMSKeyID     string
	CacheControl string
}

// UploadOutcome describes a stored object.
type UploadOutcome struct {
	Ref       ObjectRef
	Location  string
	ETag      string
	VersionID string
}

// InvalidationRequest is a batch of paths submitted to a CDN distribution.
type InvalidationRequest struct {
	DistributionID  string
	Paths           []string
	CallerReference string
}

// InvalidationAck confirms that the CDN accepted an invalidation. The purge
// itself completes asynchronously.
type InvalidationAck struct {
	ID              string
	Status          string
	Location        string
	CallerReference string
	CreateTime      time.Time
	Paths           []string
}
