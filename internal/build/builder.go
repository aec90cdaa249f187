package build

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/edgerules/internal/config"
	"github.com/vango-dev/edgerules/internal/errors"
	"github.com/vango-dev/edgerules/internal/metrics"
	"github.com/vango-dev/edgerules/pkg/routes"
	"github.com/vango-dev/edgerules/pkg/rules"
)

const tracerName = "github.com/vango-dev/edgerules/internal/build"

// Publisher uploads written files.
type Publisher interface {
	Publish(ctx context.Context, files ...string) ([]string, error)
}

// Result contains the build output.
type Result struct {
	// Duration is how long the build took.
	Duration time.Duration

	// Routes is the number of routes in the manifest.
	Routes int

	// Rules is the generated rule collection.
	Rules *rules.Rules

	// Files are the written files, rules file first.
	Files []string

	// Published are the uploaded object keys.
	Published []string
}

// Options configures the builder.
type Options struct {
	// Logger receives structured build logs. Defaults to slog.Default().
	Logger *slog.Logger

	// Publisher uploads the written files when set.
	Publisher Publisher

	// Metrics records build metrics when set.
	Metrics *metrics.Recorder

	// DryRun generates rules without writing or publishing anything.
	DryRun bool

	// OnProgress is called with progress updates.
	OnProgress func(step string)

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Builder generates and writes rules for one project.
type Builder struct {
	config  *config.Config
	options Options
	tracer  trace.Tracer
}

// New creates a new builder.
func New(cfg *config.Config, options Options) *Builder {
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Now == nil {
		options.Now = time.Now
	}
	return &Builder{
		config:  cfg,
		options: options,
		tracer:  otel.Tracer(tracerName),
	}
}

// Build runs the pipeline.
func (b *Builder) Build(ctx context.Context) (result *Result, err error) {
	start := b.options.Now()
	ctx, span := b.tracer.Start(ctx, "edgerules.build", trace.WithAttributes(
		attribute.String("edgerules.output", b.config.Output),
		attribute.String("edgerules.format", b.config.Build.Format),
	))
	defer func() {
		d := b.options.Now().Sub(start)
		if result != nil {
			result.Duration = d
		}
		if b.options.Metrics != nil {
			b.options.Metrics.ObserveBuild(d, err, b.options.Now())
			b.writeMetrics()
		}
		endSpan(span, err)
	}()

	if err := b.config.Validate(); err != nil {
		return nil, err
	}

	b.progress("Loading route manifest...")
	table, err := b.loadManifest(ctx)
	if err != nil {
		return nil, err
	}

	b.progress("Generating rules...")
	rs, err := b.generate(ctx, table)
	if err != nil {
		return nil, err
	}

	result = &Result{Routes: len(table), Rules: rs}
	if b.options.Metrics != nil {
		b.options.Metrics.ObserveRules(len(table), rs)
	}

	if b.options.DryRun {
		return result, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.progress("Writing rules...")
	files, err := b.write(ctx, rs)
	if err != nil {
		return nil, err
	}
	result.Files = files

	if b.options.Publisher != nil {
		b.progress("Publishing...")
		keys, err := b.publish(ctx, files)
		if err != nil {
			return nil, err
		}
		result.Published = keys
	}

	b.options.Logger.Info("build complete",
		"routes", result.Routes,
		"rules", rs.Len(),
		"files", len(files),
	)
	return result, nil
}

// Generate loads the manifest and generates rules without writing anything.
func (b *Builder) Generate(ctx context.Context) (*rules.Rules, error) {
	if err := b.config.Validate(); err != nil {
		return nil, err
	}
	table, err := b.loadManifest(ctx)
	if err != nil {
		return nil, err
	}
	return b.generate(ctx, table)
}

func (b *Builder) loadManifest(ctx context.Context) (routes.Table, error) {
	_, span := b.tracer.Start(ctx, "edgerules.manifest")
	path := b.config.ManifestPath()
	span.SetAttributes(attribute.String("edgerules.manifest", path))

	table, err := routes.LoadManifest(path, b.config.OutputPath())
	if err == nil {
		span.SetAttributes(attribute.Int("edgerules.routes", len(table)))
		b.options.Logger.Debug("loaded manifest", "path", path, "routes", len(table))
	}
	endSpan(span, err)
	return table, err
}

func (b *Builder) generate(ctx context.Context, table routes.Table) (*rules.Rules, error) {
	_, span := b.tracer.Start(ctx, "edgerules.generate")

	rs, err := rules.Generate(table, b.config.Options(), b.config.OutputPath(), b.config.Fallback)
	if err == nil {
		span.SetAttributes(attribute.Int("edgerules.rules", rs.Len()))
		if b.config.Fallback == "" && b.config.Output != string(rules.ModeStatic) {
			b.options.Logger.Warn("no fallback target configured; server-rendered routes will be skipped in the rules file")
		}
	}
	endSpan(span, err)
	return rs, err
}

func (b *Builder) write(ctx context.Context, rs *rules.Rules) (files []string, err error) {
	_, span := b.tracer.Start(ctx, "edgerules.write")
	defer func() { endSpan(span, err) }()

	if err := os.MkdirAll(b.config.OutputPath(), 0755); err != nil {
		return nil, errors.New("E142").WithLocation(b.config.OutputPath(), 0).Wrap(err)
	}

	path := b.config.RulesPath()
	if err := writeFile(path, []byte(rs.Print()+"\n")); err != nil {
		return nil, err
	}
	files = append(files, path)
	b.options.Logger.Debug("wrote rules", "path", path, "rules", rs.Len())

	if b.config.Build.JSON {
		data, err := json.MarshalIndent(rs, "", "  ")
		if err != nil {
			return nil, errors.New("E142").Wrap(err)
		}
		jsonPath := b.config.RulesJSONPath()
		if err := writeFile(jsonPath, append(data, '\n')); err != nil {
			return nil, err
		}
		files = append(files, jsonPath)
	}

	span.SetAttributes(attribute.StringSlice("edgerules.files", files))
	return files, nil
}

func (b *Builder) publish(ctx context.Context, files []string) (keys []string, err error) {
	ctx, span := b.tracer.Start(ctx, "edgerules.publish")
	defer func() { endSpan(span, err) }()

	keys, err = b.options.Publisher.Publish(ctx, files...)
	if err != nil {
		return nil, errors.FromError(err, "E150")
	}
	return keys, nil
}

func (b *Builder) writeMetrics() {
	path := b.config.MetricsPath()
	if path == "" || b.options.DryRun {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		b.options.Logger.Warn("cannot create metrics directory", "path", path, "error", err)
		return
	}
	if err := b.options.Metrics.WriteTextfile(path); err != nil {
		b.options.Logger.Warn("cannot write metrics", "path", path, "error", err)
	}
}

// Clean removes generated files from the output directory.
func (b *Builder) Clean() error {
	for _, path := range []string{b.config.RulesPath(), b.config.RulesJSONPath()} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return errors.New("E142").WithLocation(path, 0).Wrap(err)
		}
	}
	return nil
}

// progress reports progress if a callback is set.
func (b *Builder) progress(step string) {
	if b.options.OnProgress != nil {
		b.options.OnProgress(step)
	}
}

// writeFile writes data through a temporary file so readers never see a
// partially written rules file.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.New("E142").WithLocation(path, 0).Wrap(err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.New("E142").WithLocation(path, 0).Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		return errors.New("E142").WithLocation(path, 0).Wrap(err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return errors.New("E142").WithLocation(path, 0).Wrap(err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.New("E142").WithLocation(path, 0).Wrap(err)
	}
	return nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
