package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		slog.Error("publish failed", "err", err)
		os.Exit(1)
	}
}

type globalFlags struct {
	configFile      string
	logFormat       string
	logLevel        string
	store           string
	bucket          string
	region          string
	profile         string
	endpoint        string
	usePathStyle    bool
	distribution    string
	cdn             string
	acl             string
	sse             string
	kmsKeyID        string
	cacheControl    string
	concurrency     int
	lenient         bool
	prefix          string
	metricsTextfile string
}

func newRootCommand() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "publish",
		Short:         "Upload changed files to S3 and invalidate CloudFront",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(flags.logFormat, flags.logLevel)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configFile, "config", "", "YAML, JSON or TOML config file")
	pf.StringVar(&flags.logFormat, "log-format", "text", "log format: text or json")
	pf.StringVar(&flags.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	pf.StringVar(&flags.store, "store", "", "storage backend: s3, minio or memory")
	pf.StringVar(&flags.bucket, "bucket", "", "target bucket")
	pf.StringVar(&flags.region, "region", "", "AWS region")
	pf.StringVar(&flags.profile, "profile", "", "shared config profile")
	pf.StringVar(&flags.endpoint, "endpoint", "", "custom S3-compatible endpoint")
	pf.BoolVar(&flags.usePathStyle, "path-style", false, "use path-style addressing")
	pf.StringVar(&flags.distribution, "distribution", "", "CloudFront distribution id")
	pf.StringVar(&flags.cdn, "cdn", "", "cdn backend: cloudfront, memory or none")
	pf.StringVar(&flags.acl, "acl", "", "canned ACL for uploads (default public-read)")
	pf.StringVar(&flags.sse, "sse", "", "server-side encryption: AES256 or aws:kms")
	pf.StringVar(&flags.kmsKeyID, "kms-key-id", "", "KMS key id for aws:kms")
	pf.StringVar(&flags.cacheControl, "cache-control", "", "Cache-Control header for uploads")
	pf.IntVar(&flags.concurrency, "concurrency", 0, "files processed in parallel")
	pf.BoolVar(&flags.lenient, "lenient-lookup", false, "treat lookup failures as absent objects")
	pf.StringVar(&flags.prefix, "prefix", "", "key prefix for FILE arguments without =KEY")
	pf.StringVar(&flags.metricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		newSyncCommand(flags),
		newCheckCommand(flags),
		newInvalidateCommand(flags),
		newWhoamiCommand(flags),
		newEnvCommand(),
	)
	return root
}

func setupLogging(format, level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	default:
		return fmt.Errorf("unsupported log format %q", format)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
