package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/simple-publish/pkg/publish"
)

// fileConfig is the on-disk form. Pointer fields distinguish "unset" from
// false or zero.
type fileConfig struct {
	Store          string `yaml:"store" json:"store" toml:"store"`
	Bucket         string `yaml:"bucket" json:"bucket" toml:"bucket"`
	Region         string `yaml:"region" json:"region" toml:"region"`
	Profile        string `yaml:"profile" json:"profile" toml:"profile"`
	Endpoint       string `yaml:"endpoint" json:"endpoint" toml:"endpoint"`
	UsePathStyle   *bool  `yaml:"use_path_style" json:"use_path_style" toml:"use_path_style"`
	UseSSL         *bool  `yaml:"use_ssl" json:"use_ssl" toml:"use_ssl"`
	CDN            string `yaml:"cdn" json:"cdn" toml:"cdn"`
	DistributionID string `yaml:"distribution_id" json:"distribution_id" toml:"distribution_id"`
	AccessPolicy   string `yaml:"acl" json:"acl" toml:"acl"`
	Encryption     string `yaml:"sse" json:"sse" toml:"sse"`
	KMSKeyID       string `yaml:"sse_kms_key_id" json:"sse_kms_key_id" toml:"sse_kms_key_id"`
	CacheControl   string `yaml:"cache_control" json:"cache_control" toml:"cache_control"`
	PartSize       int64  `yaml:"part_size" json:"part_size" toml:"part_size"`
	Concurrency    int    `yaml:"concurrency" json:"concurrency" toml:"concurrency"`
	LenientLookup  *bool  `yaml:"lenient_lookup" json:"lenient_lookup" toml:"lenient_lookup"`
}

// WithFile applies settings from a YAML, JSON or TOML file. Credentials are
// never read from files.
func WithFile(path string) Option {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		var f fileConfig
		if err := cleanenv.ReadConfig(path, &f); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		f.apply(c)
		return nil
	}
}

func (f fileConfig) apply(c *Config) {
	setString(&c.Store, f.Store)
	setString(&c.Bucket, f.Bucket)
	setString(&c.Region, f.Region)
	setString(&c.Profile, f.Profile)
	setString(&c.Endpoint, f.Endpoint)
	setString(&c.CDN, f.CDN)
	setString(&c.DistributionID, f.DistributionID)
	setString(&c.KMSKeyID, f.KMSKeyID)
	setString(&c.CacheControl, f.CacheControl)
	if f.AccessPolicy != "" {
		c.AccessPolicy = publish.AccessPolicy(f.AccessPolicy)
	}
	if f.Encryption != "" {
		c.Encryption = publish.Encryption(f.Encryption)
	}
	if f.UsePathStyle != nil {
		c.UsePathStyle = *f.UsePathStyle
	}
	if f.UseSSL != nil {
		c.UseSSL = *f.UseSSL
	}
	if f.LenientLookup != nil {
		c.LenientLookup = *f.LenientLookup
	}
	if f.PartSize != 0 {
		c.PartSize = f.PartSize
	}
	if f.Concurrency != 0 {
		c.Concurrency = f.Concurrency
	}
}
