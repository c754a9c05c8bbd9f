package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/tendant/simple-publish/internal/deploy"
	"github.com/tendant/simple-publish/pkg/publish"
	"github.com/tendant/simple-publish/pkg/publish/config"
	"github.com/tendant/simple-publish/pkg/publish/metrics"
)

// app holds everything a command needs once configuration is resolved.
type app struct {
	cfg      *config.Config
	store    publish.ObjectStore
	cdn      publish.CDN
	registry *prometheus.Registry
	opts     []publish.Option
	textfile string
}

// flagOptions turns explicitly set flags into config options so they win
// over the file and the environment.
func (f *globalFlags) flagOptions(cmd *cobra.Command) []config.Option {
	changed := func(name string) bool { return cmd.Flags().Changed(name) }

	var opts []config.Option
	if changed("store") {
		opts = append(opts, config.WithStoreType(f.store))
	}
	if changed("bucket") {
		opts = append(opts, config.WithBucket(f.bucket))
	}
	if changed("region") {
		opts = append(opts, config.WithRegion(f.region))
	}
	if changed("profile") {
		opts = append(opts, config.WithProfile(f.profile))
	}
	if changed("endpoint") || changed("path-style") {
		opts = append(opts, config.WithEndpoint(f.endpoint, f.usePathStyle))
	}
	if changed("distribution") {
		opts = append(opts, config.WithDistribution(f.distribution))
	}
	if changed("cdn") {
		opts = append(opts, config.WithCDN(f.cdn))
	}
	if changed("acl") {
		opts = append(opts, config.WithAccessPolicy(publish.AccessPolicy(f.acl)))
	}
	if changed("sse") || changed("kms-key-id") {
		opts = append(opts, config.WithEncryption(publish.Encryption(f.sse), f.kmsKeyID))
	}
	if changed("cache-control") {
		opts = append(opts, config.WithCacheControl(f.cacheControl))
	}
	if changed("concurrency") {
		opts = append(opts, config.WithConcurrency(f.concurrency))
	}
	if changed("lenient-lookup") {
		opts = append(opts, config.WithLenientLookup(f.lenient))
	}
	return opts
}

// configOptions layers the config file, then the environment, then flags.
func (f *globalFlags) configOptions(cmd *cobra.Command) []config.Option {
	opts := []config.Option{config.WithFile(f.configFile), config.WithEnv()}
	return append(opts, f.flagOptions(cmd)...)
}

func loadApp(ctx context.Context, cmd *cobra.Command, f *globalFlags) (*app, error) {
	cfg, err := config.Load(f.configOptions(cmd)...)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	creds, err := cfg.ResolveCredentials(ctx)
	if err != nil {
		return nil, err
	}

	store, err := cfg.BuildStore(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to build store: %w", err)
	}
	cdn, err := cfg.BuildCDN(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("failed to build cdn: %w", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	coreOpts := append(cfg.CoreOptions(), publish.WithRecorder(m), publish.WithLogger(slog.Default()))

	return &app{
		cfg:      cfg,
		store:    store,
		cdn:      cdn,
		registry: registry,
		opts:     coreOpts,
		textfile: f.metricsTextfile,
	}, nil
}

func (a *app) deployer() *deploy.Deployer {
	d := &deploy.Deployer{
		Detector:       publish.NewDetector(a.store, a.opts...),
		Publisher:      publish.NewPublisher(a.store, a.opts...),
		Bucket:         a.cfg.Bucket,
		DistributionID: a.cfg.DistributionID,
		Options:        a.cfg.PublishOptions(),
		Concurrency:    a.cfg.Concurrency,
		Logger:         slog.Default(),
	}
	if a.cdn != nil {
		d.Invalidator = publish.NewInvalidator(a.cdn, a.opts...)
	}
	return d
}

func (a *app) flushMetrics() {
	if a.textfile == "" {
		return
	}
	if err := prometheus.WriteToTextfile(a.textfile, a.registry); err != nil {
		slog.Warn("failed to write metrics", "path", a.textfile, "err", err)
	}
}

func newSyncCommand(f *globalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "sync FILE[=KEY]...",
		Short: "Upload files whose content differs from the bucket",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd, f, args, force, false)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "upload even when fingerprints match")
	return cmd
}

func newCheckCommand(f *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE[=KEY]...",
		Short: "Report which files would be uploaded",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd, f, args, false, true)
		},
	}
}

func runDeploy(cmd *cobra.Command, f *globalFlags, args []string, force, dryRun bool) error {
	ctx := cmd.Context()
	files, err := deploy.ParseFileArgs(args, f.prefix)
	if err != nil {
		return err
	}

	a, err := loadApp(ctx, cmd, f)
	if err != nil {
		return err
	}
	defer a.flushMetrics()

	d := a.deployer()
	d.Force = force
	d.DryRun = dryRun

	report, err := d.Run(ctx, files)
	if report != nil {
		printReport(cmd, report)
	}
	return err
}

func printReport(cmd *cobra.Command, report *deploy.Report) {
	out := cmd.OutOrStdout()
	for _, res := range report.Results {
		if res.Action == "" {
			continue
		}
		fmt.Fprintf(out, "%-12s %s -> %s\n", res.Action, res.File.Path, res.File.Key)
	}
	if report.Invalidation != nil {
		fmt.Fprintf(out, "invalidation %s (%s) for %d paths\n",
			report.Invalidation.ID, report.Invalidation.Status, len(report.Invalidation.Paths))
	}
}

func newInvalidateCommand(f *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate PATH...",
		Short: "Request CloudFront invalidation of paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx, cmd, f)
			if err != nil {
				return err
			}
			defer a.flushMetrics()

			if a.cdn == nil {
				return fmt.Errorf("no CDN configured: set --distribution or PUBLISH_DISTRIBUTION_ID")
			}
			ack, err := publish.NewInvalidator(a.cdn, a.opts...).Invalidate(ctx, a.cfg.DistributionID, args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "invalidation %s (%s) caller reference %s\n", ack.ID, ack.Status, ack.CallerReference)
			return nil
		},
	}
}

func newWhoamiCommand(f *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Resolve credentials and print their source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// No bucket is needed here, so the configuration is not validated.
			cfg, err := config.Parse(f.configOptions(cmd)...)
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			creds, err := cfg.Credentials(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "access key %s from %s\n", creds.AccessKeyID, creds.Source)
			if creds.CanExpire {
				fmt.Fprintf(cmd.OutOrStdout(), "expires %s\n", creds.Expires.Format("2006-01-02T15:04:05Z07:00"))
			}
			return nil
		},
	}
}

func newEnvCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "env",
		Short: "List the environment variables publish reads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			usage, err := config.EnvUsage()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), usage)
			return nil
		},
	}
}
