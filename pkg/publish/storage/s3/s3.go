package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/tendant/simple-publish/pkg/publish"
	"github.com/tendant/simple-publish/pkg/publish/credentials"
)

// Config options for the S3 backend
type Config struct {
	Region       string               // AWS region (default: us-east-1)
	Credentials  *publish.Credentials // Resolved credentials; nil uses the default chain
	Endpoint     string               // Optional custom endpoint for S3-compatible services
	UsePathStyle bool                 // Use path-style addressing (default: false)

	// Managed uploader options
	PartSize    int64 // Multipart part size in bytes (default: publish.DefaultPartSize)
	Concurrency int   // Parts uploaded in parallel per object (default: manager default)
}

// HeadAPI is the part of the S3 client used for metadata lookups.
type HeadAPI interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// Uploader is the part of the managed uploader used for puts.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// Backend is an S3 implementation of the publish.ObjectStore interface
type Backend struct {
	client   HeadAPI
	uploader Uploader
	config   Config
}

// New creates a new S3 storage backend. Requests are not retried; every
// fault reaches the caller on first occurrence.
func New(ctx context.Context, config Config) (*Backend, error) {
	if config.Region == "" {
		config.Region = credentials.DefaultRegion
	}
	if config.PartSize == 0 {
		config.PartSize = publish.DefaultPartSize
	}
	if config.PartSize < manager.MinUploadPartSize {
		return nil, fmt.Errorf("part size %d is below the minimum of %d bytes", config.PartSize, manager.MinUploadPartSize)
	}

	awsCfg, err := credentials.LoadConfig(ctx, config.Region, config.Credentials)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.Retryer = aws.NopRetryer{}
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = config.UsePathStyle
		}
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = config.PartSize
		if config.Concurrency > 0 {
			u.Concurrency = config.Concurrency
		}
	})

	return NewWithClients(client, uploader, config), nil
}

// NewWithClients assembles a backend from existing clients.
func NewWithClients(client HeadAPI, uploader Uploader, config Config) *Backend {
	if config.PartSize == 0 {
		config.PartSize = publish.DefaultPartSize
	}
	return &Backend{client: client, uploader: uploader, config: config}
}

// PartSize is the part size uploads are split with.
func (b *Backend) PartSize() int64 {
	return b.config.PartSize
}

// HeadObject retrieves metadata for an object in S3
func (b *Backend) HeadObject(ctx context.Context, ref publish.ObjectRef) (*publish.ObjectMeta, error) {
	result, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("head %s: %w", ref, publish.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to get object metadata: %w", err)
	}

	meta := &publish.ObjectMeta{
		Ref:          ref,
		ETag:         aws.ToString(result.ETag),
		ContentType:  aws.ToString(result.ContentType),
		Size:         aws.ToInt64(result.ContentLength),
		LastModified: aws.ToTime(result.LastModified),
		VersionID:    aws.ToString(result.VersionId),
	}
	return meta, nil
}

// PutObject uploads content to S3 through the managed uploader
func (b *Backend) PutObject(ctx context.Context, params publish.PutParams) (*publish.UploadOutcome, error) {
	// A seekable body lets the uploader size it up front, so the single-part
	// versus multipart choice matches publish.ComputeFingerprint.
	input := &s3.PutObjectInput{
		Bucket:      aws.String(params.Ref.Bucket),
		Key:         aws.String(params.Ref.Key),
		Body:        bytes.NewReader(params.Body),
		ContentType: aws.String(params.ContentType),
	}
	if params.AccessPolicy != "" {
		input.ACL = types.ObjectCannedACL(params.AccessPolicy)
	}
	if params.CacheControl != "" {
		input.CacheControl = aws.String(params.CacheControl)
	}

	switch params.Encryption {
	case publish.EncryptionAES256:
		input.ServerSideEncryption = types.ServerSideEncryptionAes256
	case publish.EncryptionKMS:
		input.ServerSideEncryption = types.ServerSideEncryptionAwsKms
		if params.KMSKeyID != "" {
			input.SSEKMSKeyId = aws.String(params.KMSKeyID)
		}
	}

	result, err := b.uploader.Upload(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	return &publish.UploadOutcome{
		Ref:       params.Ref,
		Location:  result.Location,
		ETag:      aws.ToString(result.ETag),
		VersionID: aws.ToString(result.VersionID),
	}, nil
}

// IsNotFound reports whether err is S3's answer for a missing object. HEAD
// responses have no body, so the 404 status is the only reliable signal.
func IsNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
		return true
	}
	return false
}
