package config

import (
	"fmt"

	"github.com/tendant/simple-publish/pkg/publish"
)

// WithStore selects the storage backend and bucket
func WithStore(storeType, bucket string) Option {
	return func(c *Config) error {
		if storeType != "" {
			c.Store = storeType
		}
		if bucket == "" {
			return fmt.Errorf("bucket cannot be empty")
		}
		c.Bucket = bucket
		return nil
	}
}

// WithBucket sets the target bucket
func WithBucket(bucket string) Option {
	return func(c *Config) error {
		if bucket == "" {
			return fmt.Errorf("bucket cannot be empty")
		}
		c.Bucket = bucket
		return nil
	}
}

// WithRegion sets the AWS region
func WithRegion(region string) Option {
	return func(c *Config) error {
		if region == "" {
			return fmt.Errorf("region cannot be empty")
		}
		c.Region = region
		return nil
	}
}

// WithProfile selects a shared config profile for credential resolution
func WithProfile(profile string) Option {
	return func(c *Config) error {
		c.Profile = profile
		return nil
	}
}

// WithEndpoint points the store at an S3-compatible endpoint
func WithEndpoint(endpoint string, usePathStyle bool) Option {
	return func(c *Config) error {
		c.Endpoint = endpoint
		c.UsePathStyle = usePathStyle
		return nil
	}
}

// WithStaticCredentials uses the given keys instead of the ambient chain
func WithStaticCredentials(accessKeyID, secretAccessKey, sessionToken string) Option {
	return func(c *Config) error {
		if accessKeyID == "" || secretAccessKey == "" {
			return fmt.Errorf("access key id and secret access key are required")
		}
		c.AccessKeyID = accessKeyID
		c.SecretAccessKey = secretAccessKey
		c.SessionToken = sessionToken
		return nil
	}
}

// WithDistribution enables CloudFront invalidations for the distribution
func WithDistribution(distributionID string) Option {
	return func(c *Config) error {
		if distributionID == "" {
			return fmt.Errorf("distribution id cannot be empty")
		}
		c.DistributionID = distributionID
		return nil
	}
}

// WithCDN selects the CDN backend explicitly
func WithCDN(cdnType string) Option {
	return func(c *Config) error {
		c.CDN = cdnType
		return nil
	}
}

// WithAccessPolicy sets the canned ACL applied to uploads
func WithAccessPolicy(acl publish.AccessPolicy) Option {
	return func(c *Config) error {
		if !acl.Valid() {
			return fmt.Errorf("unsupported access policy: %s", acl)
		}
		c.AccessPolicy = acl
		return nil
	}
}

// WithEncryption enables server-side encryption. keyID is only used with aws:kms.
func WithEncryption(mode publish.Encryption, keyID string) Option {
	return func(c *Config) error {
		if !mode.Valid() {
			return fmt.Errorf("unsupported encryption: %s", mode)
		}
		c.Encryption = mode
		c.KMSKeyID = keyID
		return nil
	}
}

// WithCacheControl sets the Cache-Control header stored with uploads
func WithCacheControl(value string) Option {
	return func(c *Config) error {
		c.CacheControl = value
		return nil
	}
}

// WithPartSize sets the multipart part size in bytes
func WithPartSize(size int64) Option {
	return func(c *Config) error {
		if size < publish.MinPartSize {
			return fmt.Errorf("part size must be at least %d bytes", publish.MinPartSize)
		}
		c.PartSize = size
		return nil
	}
}

// WithConcurrency sets how many files are processed in parallel
func WithConcurrency(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return fmt.Errorf("concurrency must be at least 1")
		}
		c.Concurrency = n
		return nil
	}
}

// WithLenientLookup treats every lookup failure as an absent object
func WithLenientLookup(enabled bool) Option {
	return func(c *Config) error {
		c.LenientLookup = enabled
		return nil
	}
}

// WithStoreType selects the storage backend without changing the bucket
func WithStoreType(storeType string) Option {
	return func(c *Config) error {
		if storeType == "" {
			return fmt.Errorf("store type cannot be empty")
		}
		c.Store = storeType
		return nil
	}
}
