package publish

import "context"

// ObjectStore is the subset of an object storage API the publish helpers use.
type ObjectStore interface {
	// HeadObject returns the object's metadata. A missing object yields an
	// error matching ErrObjectNotFound; any other failure must not.
	HeadObject(ctx context.Context, ref ObjectRef) (*ObjectMeta, error)

	// PutObject stores params.Body under params.Ref, replacing any
	// existing object.
	PutObject(ctx context.Context, params PutParams) (*UploadOutcome, error)
}

// CDN submits cache invalidations to a distribution.
type CDN interface {
	CreateInvalidation(ctx context.Context, req InvalidationRequest) (*InvalidationAck, error)
}

// Recorder receives per-operation outcomes. metrics.Metrics implements it.
type Recorder interface {
	ObserveOperation(operation string, err error, seconds float64)
	AddUploadedBytes(n int)
}
