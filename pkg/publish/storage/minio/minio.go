// Package minio implements publish.ObjectStore on the MinIO client for
// S3-compatible endpoints that are not AWS.
package minio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/encrypt"
	"github.com/tendant/simple-publish/pkg/publish"
)

// Config options for the MinIO backend
type Config struct {
	Endpoint    string               // host:port, or a URL whose scheme sets UseSSL
	Region      string               // Optional region
	Credentials *publish.Credentials // Required; MinIO has no ambient chain here
	UseSSL      bool
	PartSize    int64 // Multipart part size in bytes (default: publish.DefaultPartSize)
}

// API is the part of *minio.Client the backend uses.
type API interface {
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Backend is a MinIO implementation of the publish.ObjectStore interface
type Backend struct {
	client   API
	partSize int64
}

// New creates a MinIO backend.
func New(config Config) (*Backend, error) {
	if config.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	if config.Credentials == nil || !config.Credentials.HasKeys() {
		return nil, errors.New("credentials are required")
	}

	host, secure, err := splitEndpoint(config.Endpoint, config.UseSSL)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(host, &minio.Options{
		Creds: miniocreds.NewStaticV4(config.Credentials.AccessKeyID,
			config.Credentials.SecretAccessKey, config.Credentials.SessionToken),
		Secure:     secure,
		Region:     config.Region,
		MaxRetries: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}

	return NewWithClient(client, config.PartSize), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client API, partSize int64) *Backend {
	if partSize <= 0 {
		partSize = publish.DefaultPartSize
	}
	return &Backend{client: client, partSize: partSize}
}

func splitEndpoint(endpoint string, useSSL bool) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		return endpoint, useSSL, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid endpoint %q: missing host", endpoint)
	}
	return u.Host, u.Scheme == "https", nil
}

// HeadObject stats an object. MinIO strips the quotes from ETags, so they
// are restored to match what S3 reports.
func (b *Backend) HeadObject(ctx context.Context, ref publish.ObjectRef) (*publish.ObjectMeta, error) {
	info, err := b.client.StatObject(ctx, ref.Bucket, ref.Key, minio.StatObjectOptions{})
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("stat %s: %w", ref, publish.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to stat object %s: %w", ref, err)
	}

	return &publish.ObjectMeta{
		Ref:          ref,
		ETag:         quote(info.ETag),
		ContentType:  info.ContentType,
		Size:         info.Size,
		LastModified: info.LastModified,
		VersionID:    info.VersionID,
	}, nil
}

// PutObject uploads content. The canned ACL travels as an x-amz-acl header.
func (b *Backend) PutObject(ctx context.Context, params publish.PutParams) (*publish.UploadOutcome, error) {
	opts := minio.PutObjectOptions{
		ContentType:  params.ContentType,
		CacheControl: params.CacheControl,
		PartSize:     b.partSizeFor(int64(len(params.Body))),
	}
	if params.AccessPolicy != "" {
		opts.UserMetadata = map[string]string{"x-amz-acl": string(params.AccessPolicy)}
	}

	switch params.Encryption {
	case publish.EncryptionAES256:
		opts.ServerSideEncryption = encrypt.NewSSE()
	case publish.EncryptionKMS:
		sse, err := encrypt.NewSSEKMS(params.KMSKeyID, nil)
		if err != nil {
			return nil, fmt.Errorf("invalid kms configuration: %w", err)
		}
		opts.ServerSideEncryption = sse
	}

	info, err := b.client.PutObject(ctx, params.Ref.Bucket, params.Ref.Key,
		bytes.NewReader(params.Body), int64(len(params.Body)), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to upload to MinIO: %w", err)
	}

	return &publish.UploadOutcome{
		Ref:       params.Ref,
		Location:  info.Location,
		ETag:      quote(info.ETag),
		VersionID: info.VersionID,
	}, nil
}

// partSizeFor grows the configured part size for very large bodies. minio-go
// rejects a fixed size that would need more than 10000 parts.
func (b *Backend) partSizeFor(size int64) uint64 {
	return uint64(publish.EffectivePartSize(size, b.partSize))
}

// IsNotFound reports whether err is MinIO's answer for a missing object.
func IsNotFound(err error) bool {
	var resp minio.ErrorResponse
	if !errors.As(err, &resp) {
		return false
	}
	switch resp.Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return resp.StatusCode == http.StatusNotFound && resp.Code != "NoSuchBucket"
}

func quote(etag string) string {
	if etag == "" || strings.HasPrefix(etag, `"`) {
		return etag
	}
	return `"` + etag + `"`
}
