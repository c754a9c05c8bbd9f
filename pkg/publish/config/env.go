package config

import (
	"fmt"
	"strconv"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/simple-publish/pkg/publish"
)

// envConfig mirrors Config as environment variables. Every field is read as
// a string so unset variables leave the current value alone.
type envConfig struct {
	Store           string `env:"PUBLISH_STORE" env-description:"storage backend: s3, minio or memory"`
	Bucket          string `env:"PUBLISH_BUCKET" env-description:"target bucket"`
	Region          string `env:"PUBLISH_REGION,AWS_REGION" env-description:"AWS region"`
	Profile         string `env:"PUBLISH_PROFILE" env-description:"shared config profile"`
	Endpoint        string `env:"PUBLISH_ENDPOINT,AWS_S3_ENDPOINT" env-description:"custom S3-compatible endpoint"`
	UsePathStyle    string `env:"PUBLISH_USE_PATH_STYLE" env-description:"use path-style addressing"`
	UseSSL          string `env:"PUBLISH_USE_SSL" env-description:"use TLS for minio endpoints"`
	AccessKeyID     string `env:"PUBLISH_ACCESS_KEY_ID" env-description:"static access key id"`
	SecretAccessKey string `env:"PUBLISH_SECRET_ACCESS_KEY" env-description:"static secret access key"`
	SessionToken    string `env:"PUBLISH_SESSION_TOKEN" env-description:"static session token"`
	CDN             string `env:"PUBLISH_CDN" env-description:"cdn backend: cloudfront, memory or none"`
	DistributionID  string `env:"PUBLISH_DISTRIBUTION_ID" env-description:"CloudFront distribution id"`
	AccessPolicy    string `env:"PUBLISH_ACL" env-description:"canned ACL (default public-read)"`
	Encryption      string `env:"PUBLISH_SSE" env-description:"server-side encryption: AES256 or aws:kms"`
	KMSKeyID        string `env:"PUBLISH_SSE_KMS_KEY_ID" env-description:"KMS key id for aws:kms"`
	CacheControl    string `env:"PUBLISH_CACHE_CONTROL" env-description:"Cache-Control header for uploads"`
	PartSize        string `env:"PUBLISH_PART_SIZE" env-description:"multipart part size in bytes"`
	Concurrency     string `env:"PUBLISH_CONCURRENCY" env-description:"files processed in parallel"`
	LenientLookup   string `env:"PUBLISH_LENIENT_LOOKUP" env-description:"treat lookup failures as absent objects"`
}

// WithEnv applies environment variable overrides.
//
//	PUBLISH_STORE            s3 (default), minio, memory
//	PUBLISH_BUCKET           target bucket
//	PUBLISH_REGION           region (falls back to AWS_REGION)
//	PUBLISH_ENDPOINT         custom endpoint (falls back to AWS_S3_ENDPOINT)
//	PUBLISH_DISTRIBUTION_ID  enables CloudFront invalidations
//	PUBLISH_ACL, PUBLISH_SSE, PUBLISH_SSE_KMS_KEY_ID, PUBLISH_CACHE_CONTROL
//	PUBLISH_PART_SIZE, PUBLISH_CONCURRENCY, PUBLISH_LENIENT_LOOKUP
//
// Credentials come from the ambient AWS chain unless PUBLISH_ACCESS_KEY_ID
// and PUBLISH_SECRET_ACCESS_KEY are set.
func WithEnv() Option {
	return func(c *Config) error {
		var env envConfig
		if err := cleanenv.ReadEnv(&env); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		return env.apply(c)
	}
}

// EnvUsage describes the environment variables WithEnv reads.
func EnvUsage() (string, error) {
	return cleanenv.GetDescription(&envConfig{}, nil)
}

func (e envConfig) apply(c *Config) error {
	setString(&c.Store, e.Store)
	setString(&c.Bucket, e.Bucket)
	setString(&c.Region, e.Region)
	setString(&c.Profile, e.Profile)
	setString(&c.Endpoint, e.Endpoint)
	setString(&c.AccessKeyID, e.AccessKeyID)
	setString(&c.SecretAccessKey, e.SecretAccessKey)
	setString(&c.SessionToken, e.SessionToken)
	setString(&c.CDN, e.CDN)
	setString(&c.DistributionID, e.DistributionID)
	setString(&c.KMSKeyID, e.KMSKeyID)
	setString(&c.CacheControl, e.CacheControl)
	if e.AccessPolicy != "" {
		c.AccessPolicy = publish.AccessPolicy(e.AccessPolicy)
	}
	if e.Encryption != "" {
		c.Encryption = publish.Encryption(e.Encryption)
	}

	if err := setBool(&c.UsePathStyle, "PUBLISH_USE_PATH_STYLE", e.UsePathStyle); err != nil {
		return err
	}
	if err := setBool(&c.UseSSL, "PUBLISH_USE_SSL", e.UseSSL); err != nil {
		return err
	}
	if err := setBool(&c.LenientLookup, "PUBLISH_LENIENT_LOOKUP", e.LenientLookup); err != nil {
		return err
	}

	if e.PartSize != "" {
		n, err := strconv.ParseInt(e.PartSize, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid PUBLISH_PART_SIZE %q: %w", e.PartSize, err)
		}
		c.PartSize = n
	}
	if e.Concurrency != "" {
		n, err := strconv.Atoi(e.Concurrency)
		if err != nil {
			return fmt.Errorf("invalid PUBLISH_CONCURRENCY %q: %w", e.Concurrency, err)
		}
		c.Concurrency = n
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setBool(dst *bool, name, v string) error {
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, v, err)
	}
	*dst = b
	return nil
}
