// Package credentials resolves ambient AWS credentials once and hands them
// to backend constructors as an explicit value.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscredentials "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/tendant/simple-publish/pkg/publish"
)

// DefaultRegion is used when no region is configured anywhere.
const DefaultRegion = "us-east-1"

// Option configures Resolve.
type Option func(*resolveOptions)

type resolveOptions struct {
	region   string
	profile  string
	provider aws.CredentialsProvider
}

// WithRegion sets the region used while loading the shared config.
func WithRegion(region string) Option {
	return func(o *resolveOptions) { o.region = region }
}

// WithProfile selects a named profile from the shared config files.
func WithProfile(profile string) Option {
	return func(o *resolveOptions) { o.profile = profile }
}

// WithProvider replaces the default chain with p.
func WithProvider(p aws.CredentialsProvider) Option {
	return func(o *resolveOptions) { o.provider = p }
}

// Resolve walks the default provider chain (environment, shared config and
// credentials files, container and instance metadata) and returns the first
// usable credentials. Failures wrap publish.ErrCredentialsUnavailable.
func Resolve(ctx context.Context, opts ...Option) (publish.Credentials, error) {
	var o resolveOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if o.region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(o.region))
	}
	if o.profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(o.profile))
	}
	if o.provider != nil {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(o.provider))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return publish.Credentials{}, fmt.Errorf("failed to load AWS config: %w: %w", publish.ErrCredentialsUnavailable, err)
	}
	if cfg.Credentials == nil {
		return publish.Credentials{}, fmt.Errorf("no credentials provider configured: %w", publish.ErrCredentialsUnavailable)
	}

	v, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return publish.Credentials{}, fmt.Errorf("failed to retrieve credentials: %w: %w", publish.ErrCredentialsUnavailable, err)
	}

	creds := publish.Credentials{
		AccessKeyID:     v.AccessKeyID,
		SecretAccessKey: v.SecretAccessKey,
		SessionToken:    v.SessionToken,
		Source:          v.Source,
		CanExpire:       v.CanExpire,
		Expires:         v.Expires,
	}
	if !creds.HasKeys() {
		return publish.Credentials{}, fmt.Errorf("provider %q returned empty keys: %w", v.Source, publish.ErrCredentialsUnavailable)
	}
	return creds, nil
}

// Provider wraps resolved credentials for SDK constructors.
func Provider(c publish.Credentials) aws.CredentialsProvider {
	return awscredentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, c.SessionToken)
}

// LoadConfig builds an aws.Config for region. With creds set the keys are
// used as given; with nil creds the default chain is consulted lazily by
// the SDK.
func LoadConfig(ctx context.Context, region string, creds *publish.Credentials) (aws.Config, error) {
	if region == "" {
		region = DefaultRegion
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if creds != nil {
		if !creds.HasKeys() {
			return aws.Config{}, errors.New("credentials are missing an access key or secret")
		}
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(Provider(*creds)))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}
