package publish

import (
	"context"
	"fmt"
	"time"
)

// Detector decides whether local bytes differ from a remote object.
type Detector struct {
	store ObjectStore
	opts  options
}

// NewDetector creates a Detector over store.
func NewDetector(store ObjectStore, opts ...Option) *Detector {
	return &Detector{store: store, opts: applyOptions(opts)}
}

// Detect looks up ref and compares its ETag with the fingerprint of data.
// A missing object is reported as {Exists: false, NeedsUpload: true} with a
// nil error. Other lookup failures are returned wrapped in ErrLookupFailed
// unless the Detector was built WithLenientLookup.
func (d *Detector) Detect(ctx context.Context, ref ObjectRef, data []byte) (result DetectResult, err error) {
	start := time.Now()
	defer func() { d.opts.observe("detect", start, err) }()

	if verr := ref.Validate(); verr != nil {
		return DetectResult{}, opError("detect", ref, ErrInvalidRequest, verr)
	}

	meta, err := d.store.HeadObject(ctx, ref)
	if err != nil {
		if IsNotFound(err) {
			d.opts.logger.Debug("object absent, upload needed", "bucket", ref.Bucket, "key", ref.Key)
			return DetectResult{Exists: false, NeedsUpload: true}, nil
		}
		if d.opts.lenient {
			d.opts.logger.Warn("lookup failed, treating object as absent", "bucket", ref.Bucket, "key", ref.Key, "err", err)
			return DetectResult{Exists: false, NeedsUpload: true}, nil
		}
		d.opts.logger.Error("Failed to look up object", "bucket", ref.Bucket, "key", ref.Key, "err", err)
		return DetectResult{}, opError("detect", ref, ErrLookupFailed, err)
	}

	fp := ComputeFingerprint(data, d.opts.partSize)
	result = DetectResult{
		Exists:      true,
		NeedsUpload: fp.Quoted() != meta.ETag,
		RemoteETag:  meta.ETag,
		Fingerprint: fp,
	}
	d.opts.logger.Debug("compared fingerprint", "bucket", ref.Bucket, "key", ref.Key,
		"local", fp.Quoted(), "remote", meta.ETag, "needs_upload", result.NeedsUpload)
	return result, nil
}

// NeedsUpdate reports whether ref exists and differs from data. An absent
// object is not an update and yields false.
func (d *Detector) NeedsUpdate(ctx context.Context, ref ObjectRef, data []byte) (bool, error) {
	result, err := d.Detect(ctx, ref, data)
	if err != nil {
		return false, fmt.Errorf("check update: %w", err)
	}
	return result.Exists && result.NeedsUpload, nil
}
