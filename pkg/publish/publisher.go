package publish

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Publisher uploads bytes to an ObjectStore. It does not consult the
// Detector; callers publish only when an upload is warranted.
type Publisher struct {
	store ObjectStore
	opts  options
}

// NewPublisher creates a Publisher over store.
func NewPublisher(store ObjectStore, opts ...Option) *Publisher {
	return &Publisher{store: store, opts: applyOptions(opts)}
}

// Publish stores data under ref, fully replacing any existing object. The
// content type is inferred from the key before anything is sent; keys
// without a known extension fail with ErrUnknownContentType. The access
// policy defaults to public-read and encryption is omitted unless set.
func (p *Publisher) Publish(ctx context.Context, ref ObjectRef, data []byte, po PublishOptions) (outcome *UploadOutcome, err error) {
	start := time.Now()
	defer func() { p.opts.observe("publish", start, err) }()

	params, err := buildPutParams(ref, data, po)
	if err != nil {
		return nil, err
	}

	outcome, err = p.store.PutObject(ctx, params)
	if err != nil {
		p.opts.logger.Error("Failed to upload object", "bucket", ref.Bucket, "key", ref.Key, "err", err)
		return nil, opError("publish", ref, ErrUploadFailed, err)
	}
	if p.opts.recorder != nil {
		p.opts.recorder.AddUploadedBytes(len(data))
	}

	p.opts.logger.Info("uploaded object", "bucket", ref.Bucket, "key", ref.Key,
		"content_type", params.ContentType, "acl", string(params.AccessPolicy),
		"size", len(data), "etag", outcome.ETag)
	return outcome, nil
}

func buildPutParams(ref ObjectRef, data []byte, po PublishOptions) (PutParams, error) {
	if err := ref.Validate(); err != nil {
		return PutParams{}, opError("publish", ref, ErrInvalidRequest, err)
	}

	contentType, err := inferContentType(ref.Key)
	if err != nil {
		return PutParams{}, opError("publish", ref, ErrUnknownContentType, err)
	}

	acl := po.AccessPolicy
	if acl == "" {
		acl = DefaultAccessPolicy
	}
	if !acl.Valid() {
		return PutParams{}, opError("publish", ref, ErrInvalidRequest, fmt.Errorf("unsupported access policy %q", acl))
	}
	if !po.Encryption.Valid() {
		return PutParams{}, opError("publish", ref, ErrInvalidRequest, fmt.Errorf("unsupported encryption %q", po.Encryption))
	}
	if po.KMSKeyID != "" && po.Encryption != EncryptionKMS {
		return PutParams{}, opError("publish", ref, ErrInvalidRequest, errors.New("kms key id requires aws:kms encryption"))
	}

	return PutParams{
		Ref:          ref,
		Body:         data,
		ContentType:  contentType,
		AccessPolicy: acl,
		Encryption:   po.Encryption,
		KMSKeyID:     po.KMSKeyID,
		CacheControl: po.CacheControl,
	}, nil
}
