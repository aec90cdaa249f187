package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/vango-dev/edgerules/internal/build"
	"github.com/vango-dev/edgerules/internal/config"
	"github.com/vango-dev/edgerules/internal/errors"
	"github.com/vango-dev/edgerules/internal/metrics"
	"github.com/vango-dev/edgerules/internal/publish"
)

// overrides are flags that replace config values for one run.
type overrides struct {
	manifest string
	output   string
	mode     string
	format   string
	fallback string
}

func (o *overrides) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.manifest, "manifest", "", "Route manifest path (default from edgerules.json)")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "Build output directory (default from edgerules.json)")
	cmd.Flags().StringVarP(&o.mode, "mode", "m", "", "Output mode: static, server or hybrid")
	cmd.Flags().StringVar(&o.format, "format", "", "Prerendered page layout: file or directory")
	cmd.Flags().StringVar(&o.fallback, "fallback", "", "Rewrite target for server-rendered routes")
}

// apply writes the overrides into cfg and validates the result. Paths
// given on the command line are taken relative to the working directory.
func (o *overrides) apply(cfg *config.Config) error {
	if o.manifest != "" {
		cfg.Manifest = absPath(o.manifest)
	}
	if o.output != "" {
		cfg.Build.Output = absPath(o.output)
	}
	if o.mode != "" {
		cfg.Output = o.mode
	}
	if o.format != "" {
		cfg.Build.Format = o.format
	}
	if o.fallback != "" {
		cfg.Fallback = o.fallback
	}
	return cfg.Validate()
}

type buildFlags struct {
	overrides
	json        bool
	publish     bool
	dryRun      bool
	clean       bool
	metricsFile string
}

func buildCmd(opts *globalOptions) *cobra.Command {
	var f buildFlags

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Generate the rules file",
		Long: `Generate the rules file from the route manifest.

This command:
  • Loads the route manifest (JSON, YAML or TOML)
  • Generates weighted rewrite and redirect rules
  • Writes the rules file into the build output directory
  • Optionally writes the rules as JSON
  • Optionally uploads the rule files to S3

Examples:
  edgerules build
  edgerules build --mode=hybrid --fallback=/_render
  edgerules build --json --publish
  edgerules build --dry-run`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()
			return runBuild(ctx, opts, f)
		},
	}

	f.overrides.register(cmd)
	cmd.Flags().BoolVar(&f.json, "json", false, "Also write the rules as JSON")
	cmd.Flags().BoolVar(&f.publish, "publish", false, "Upload the rule files to the configured bucket")
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Print the rules instead of writing them")
	cmd.Flags().BoolVar(&f.clean, "clean", false, "Remove previously generated rule files first")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "Write build metrics to this Prometheus textfile")

	return cmd
}

func runBuild(ctx context.Context, opts *globalOptions, f buildFlags) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if f.json {
		cfg.Build.JSON = true
	}
	if f.metricsFile != "" {
		cfg.Metrics.Textfile = absPath(f.metricsFile)
	}
	if err := f.overrides.apply(cfg); err != nil {
		return err
	}

	logger := opts.log()
	options := build.Options{
		Logger:  logger,
		DryRun:  f.dryRun,
		Metrics: newRecorder(cfg),
		OnProgress: func(step string) {
			info(step)
		},
	}

	if f.publish && !f.dryRun {
		publisher, err := newPublisher(ctx, cfg, logger)
		if err != nil {
			return err
		}
		options.Publisher = publisher
	}

	builder := build.New(cfg, options)

	if f.clean && !f.dryRun {
		info("Cleaning generated rule files...")
		if err := builder.Clean(); err != nil {
			return err
		}
	}

	result, err := builder.Build(ctx)
	if err != nil {
		return err
	}

	if f.dryRun {
		fmt.Println()
		if text := result.Rules.Print(); text != "" {
			fmt.Println(text)
		}
		return nil
	}

	fmt.Println()
	success("Generated %d rules from %d routes in %s", result.Rules.Len(), result.Routes, result.Duration.Round(time.Millisecond))
	if result.Rules.Empty() {
		warn("No rules were generated; the rules file is empty")
	}
	fmt.Println()
	fmt.Println("  Output:")
	for _, file := range result.Files {
		fmt.Printf("    %s\n", file)
	}
	if len(result.Published) > 0 {
		fmt.Println()
		fmt.Printf("  Published to s3://%s:\n", cfg.Publish.Bucket)
		for _, key := range result.Published {
			fmt.Printf("    %s\n", key)
		}
	}
	fmt.Println()

	return nil
}

// newRecorder returns a metrics recorder when a textfile is configured.
func newRecorder(cfg *config.Config) *metrics.Recorder {
	if cfg.MetricsPath() == "" {
		return nil
	}
	opts := []metrics.Option{metrics.WithNamespace(cfg.Metrics.Namespace)}
	if cfg.Name != "" {
		opts = append(opts, metrics.WithConstLabels(prometheus.Labels{"project": cfg.Name}))
	}
	return metrics.New(opts...)
}

func newPublisher(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*publish.S3Publisher, error) {
	if !cfg.PublishEnabled() {
		return nil, errors.New("E150").
			WithDetail("publish.bucket is not set").
			WithSuggestion("Add a \"publish\": {\"bucket\": \"...\"} section to edgerules.json")
	}
	client, err := publish.NewClient(ctx, publish.Config{
		Region:   cfg.Publish.Region,
		Endpoint: cfg.Publish.Endpoint,
	})
	if err != nil {
		return nil, err
	}
	return publish.NewS3Publisher(client, cfg.Publish.Bucket, cfg.Publish.Prefix, logger), nil
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
