package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/tendant/simple-publish/pkg/publish"
	cfcdn "github.com/tendant/simple-publish/pkg/publish/cdn/cloudfront"
	memorycdn "github.com/tendant/simple-publish/pkg/publish/cdn/memory"
	"github.com/tendant/simple-publish/pkg/publish/credentials"
	memorystorage "github.com/tendant/simple-publish/pkg/publish/storage/memory"
	miniostorage "github.com/tendant/simple-publish/pkg/publish/storage/minio"
	s3storage "github.com/tendant/simple-publish/pkg/publish/storage/s3"
)

// Store backend types
const (
	StoreS3     = "s3"
	StoreMinio  = "minio"
	StoreMemory = "memory"
)

// CDN backend types
const (
	CDNNone       = "none"
	CDNCloudFront = "cloudfront"
	CDNMemory     = "memory"
)

// Option applies configuration to a Config instance.
type Option func(*Config) error

// Load constructs a Config by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*Config, error) {
	cfg, err := Parse(opts...)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Parse applies the options on top of the defaults without validating the
// result. Commands that only need credentials use it so a missing bucket is
// not an error.
func Parse(opts ...Option) (*Config, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

func defaults() Config {
	return Config{
		Store:        StoreS3,
		Region:       credentials.DefaultRegion,
		UseSSL:       true,
		AccessPolicy: publish.DefaultAccessPolicy,
		PartSize:     publish.DefaultPartSize,
		Concurrency:  4,
	}
}

// Config describes where files are published and how.
type Config struct {
	// Storage
	Store        string // "s3", "minio", "memory"
	Bucket       string
	Region       string
	Profile      string // shared config profile for credential resolution
	Endpoint     string // custom endpoint for S3-compatible services
	UsePathStyle bool
	UseSSL       bool

	// Static credentials; when empty the ambient chain is used
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// CDN
	CDN            string // "cloudfront", "memory", "none"; empty picks cloudfront when DistributionID is set
	DistributionID string

	// Upload options
	AccessPolicy publish.AccessPolicy
	Encryption   publish.Encryption
	KMSKeyID     string
	CacheControl string
	PartSize     int64

	// Orchestration
	Concurrency   int
	LenientLookup bool
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Store {
	case StoreS3, StoreMemory:
	case StoreMinio:
		if c.Endpoint == "" {
			return errors.New("endpoint is required when using minio")
		}
	default:
		return fmt.Errorf("unsupported store type: %s", c.Store)
	}

	if c.Bucket == "" {
		return errors.New("bucket is required")
	}

	switch c.cdnType() {
	case CDNNone, CDNMemory:
	case CDNCloudFront:
		if c.DistributionID == "" {
			return errors.New("distribution_id is required when using cloudfront")
		}
	default:
		return fmt.Errorf("unsupported cdn type: %s", c.CDN)
	}

	if c.AccessPolicy != "" && !c.AccessPolicy.Valid() {
		return fmt.Errorf("unsupported access policy: %s", c.AccessPolicy)
	}
	if !c.Encryption.Valid() {
		return fmt.Errorf("unsupported encryption: %s", c.Encryption)
	}
	if c.KMSKeyID != "" && c.Encryption != publish.EncryptionKMS {
		return errors.New("sse_kms_key_id requires aws:kms encryption")
	}
	if c.PartSize < publish.MinPartSize {
		return fmt.Errorf("part size must be at least %d bytes", publish.MinPartSize)
	}
	if c.Concurrency < 1 {
		return errors.New("concurrency must be at least 1")
	}
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return errors.New("access_key_id and secret_access_key must be set together")
	}

	return nil
}

func (c *Config) cdnType() string {
	if c.CDN != "" {
		return c.CDN
	}
	if c.DistributionID != "" {
		return CDNCloudFront
	}
	return CDNNone
}

// HasCDN reports whether invalidations can be issued.
func (c *Config) HasCDN() bool {
	return c.cdnType() != CDNNone
}

// PublishOptions returns the upload options carried by the configuration.
func (c *Config) PublishOptions() publish.PublishOptions {
	return publish.PublishOptions{
		AccessPolicy: c.AccessPolicy,
		Encryption:   c.Encryption,
		KMSKeyID:     c.KMSKeyID,
		CacheControl: c.CacheControl,
	}
}

// CoreOptions returns the publish options derived from the configuration.
func (c *Config) CoreOptions() []publish.Option {
	opts := []publish.Option{publish.WithPartSize(c.PartSize)}
	if c.LenientLookup {
		opts = append(opts, publish.WithLenientLookup())
	}
	return opts
}

// needsCredentials reports whether any configured backend talks to AWS-style APIs.
func (c *Config) needsCredentials() bool {
	return c.Store != StoreMemory || c.cdnType() == CDNCloudFront
}

// ResolveCredentials returns the static keys when configured, otherwise it
// resolves the ambient chain once. In-memory setups need no credentials and
// get nil.
func (c *Config) ResolveCredentials(ctx context.Context) (*publish.Credentials, error) {
	if !c.needsCredentials() {
		return nil, nil
	}
	creds, err := c.Credentials(ctx)
	if err != nil {
		return nil, err
	}
	return &creds, nil
}

// Credentials returns the static keys when configured, otherwise the keys
// found by the ambient chain for the configured region and profile.
func (c *Config) Credentials(ctx context.Context) (publish.Credentials, error) {
	if c.AccessKeyID != "" {
		return publish.Credentials{
			AccessKeyID:     c.AccessKeyID,
			SecretAccessKey: c.SecretAccessKey,
			SessionToken:    c.SessionToken,
			Source:          "config",
		}, nil
	}

	return credentials.Resolve(ctx, credentials.WithRegion(c.Region), credentials.WithProfile(c.Profile))
}

// BuildStore creates the configured ObjectStore.
func (c *Config) BuildStore(ctx context.Context, creds *publish.Credentials) (publish.ObjectStore, error) {
	switch c.Store {
	case StoreMemory:
		return memorystorage.NewWithPartSize(c.PartSize), nil

	case StoreS3:
		return s3storage.New(ctx, s3storage.Config{
			Region:       c.Region,
			Credentials:  creds,
			Endpoint:     c.Endpoint,
			UsePathStyle: c.UsePathStyle,
			PartSize:     c.PartSize,
		})

	case StoreMinio:
		return miniostorage.New(miniostorage.Config{
			Endpoint:    c.Endpoint,
			Region:      c.Region,
			Credentials: creds,
			UseSSL:      c.UseSSL,
			PartSize:    c.PartSize,
		})

	default:
		return nil, fmt.Errorf("unsupported store type: %s", c.Store)
	}
}

// BuildCDN creates the configured CDN, or nil when none is configured.
func (c *Config) BuildCDN(ctx context.Context, creds *publish.Credentials) (publish.CDN, error) {
	switch c.cdnType() {
	case CDNNone:
		return nil, nil
	case CDNMemory:
		return memorycdn.New(), nil
	case CDNCloudFront:
		return cfcdn.New(ctx, cfcdn.Config{Credentials: creds})
	default:
		return nil, fmt.Errorf("unsupported cdn type: %s", c.CDN)
	}
}
