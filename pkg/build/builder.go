// Package build orchestrates a site build: passthrough copy, collection resolution,
// global data and page rendering.
package build

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Vilsol/kiln/pkg/data"
	kilnotel "github.com/Vilsol/kiln/pkg/otel"
	"github.com/Vilsol/kiln/pkg/passthrough"
	"github.com/Vilsol/kiln/pkg/render"
	"github.com/Vilsol/kiln/pkg/site"
	"github.com/Vilsol/slox"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// DataDir holds global data files, relative to the input directory.
const DataDir = "_data"

// Stage names in execution order.
const (
	StagePrepare     = "prepare"
	StagePassthrough = "passthrough"
	StageCollections = "collections"
	StageData        = "data"
	StageRender      = "render"
)

// StageTiming records how long one stage took.
type StageTiming struct {
	Stage    string
	Duration time.Duration
}

// Report summarizes a successful build.
type Report struct {
	Files       int
	Bytes       int64
	Pages       int
	Collections map[string]int
	Stages      []StageTiming
	Duration    time.Duration
}

// Option configures a Builder.
type Option func(b *Builder)

// WithClean removes the output directory before building.
func WithClean(clean bool) Option {
	return func(b *Builder) { b.clean = clean }
}

// WithWorkers bounds copy and render concurrency.
func WithWorkers(n int) Option {
	return func(b *Builder) { b.workers = n }
}

// WithRenderOptions passes options to the page renderer.
func WithRenderOptions(options ...render.Option) Option {
	return func(b *Builder) { b.renderOptions = append(b.renderOptions, options...) }
}

// Builder builds one site.
type Builder struct {
	site          *site.Site
	clean         bool
	workers       int
	renderOptions []render.Option

	tracer  trace.Tracer
	files   metric.Int64Counter
	pages   metric.Int64Counter
	elapsed metric.Float64Histogram
}

// NewBuilder creates a Builder for s.
func NewBuilder(s *site.Site, options ...Option) *Builder {
	b := &Builder{
		site:   s,
		tracer: kilnotel.Tracer(),
	}

	for _, option := range options {
		option(b)
	}

	meter := kilnotel.Meter()
	b.files, _ = meter.Int64Counter("kiln.build.files_copied", metric.WithDescription("Passthrough files copied"))
	b.pages, _ = meter.Int64Counter("kiln.build.pages_rendered", metric.WithDescription("Pages rendered"))
	b.elapsed, _ = meter.Float64Histogram("kiln.build.duration", metric.WithUnit("s"), metric.WithDescription("Build duration"))

	return b
}

// Build runs every stage in order. The first failing stage aborts the build.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	ctx, span := b.tracer.Start(ctx, "build", trace.WithAttributes(
		attribute.String("kiln.input", b.site.InputDir()),
		attribute.String("kiln.output", b.site.OutputDir()),
	))
	defer span.End()

	started := time.Now()
	report := &Report{}

	var collections map[string][]any
	var globals map[string]any

	stages := []struct {
		name string
		run  func(ctx context.Context) error
	}{
		{StagePrepare, b.prepare},
		{StagePassthrough, func(ctx context.Context) error {
			result, err := passthrough.NewCopier(passthrough.WithWorkers(b.workers)).Copy(ctx, b.site)
			report.Files, report.Bytes = result.Files, result.Bytes
			b.files.Add(ctx, int64(result.Files))
			return err //nolint:wrapcheck
		}},
		{StageCollections, func(ctx context.Context) error {
			var err error
			collections, err = b.site.ResolveCollections(ctx)
			report.Collections = make(map[string]int, len(collections))
			for name, items := range collections {
				report.Collections[name] = len(items)
			}
			return err //nolint:wrapcheck
		}},
		{StageData, func(context.Context) error {
			var err error
			globals, err = data.Load(filepath.Join(b.site.InputDir(), DataDir))
			return err //nolint:wrapcheck
		}},
		{StageRender, func(ctx context.Context) error {
			options := append([]render.Option{render.WithWorkers(b.workers)}, b.renderOptions...)
			result, err := render.NewRenderer(b.site, options...).Render(ctx, render.Globals{
				Collections: collections,
				Data:        globals,
			})
			report.Pages = len(result.Pages)
			b.pages.Add(ctx, int64(report.Pages))
			return err //nolint:wrapcheck
		}},
	}

	for _, stage := range stages {
		took, err := b.runStage(ctx, stage.name, stage.run)
		report.Stages = append(report.Stages, StageTiming{Stage: stage.name, Duration: took})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			b.elapsed.Record(ctx, time.Since(started).Seconds(), metric.WithAttributes(attribute.Bool("kiln.success", false)))
			return nil, oops.In("build").With("stage", stage.name).Wrapf(err, "build failed in %s stage", stage.name)
		}
	}

	report.Duration = time.Since(started)
	b.elapsed.Record(ctx, report.Duration.Seconds(), metric.WithAttributes(attribute.Bool("kiln.success", true)))

	return report, nil
}

func (b *Builder) runStage(ctx context.Context, name string, run func(ctx context.Context) error) (time.Duration, error) {
	ctx, span := b.tracer.Start(ctx, "build."+name)
	defer span.End()

	started := time.Now()
	err := run(ctx)
	took := time.Since(started)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	slox.Debug(ctx, "build stage finished", slog.String("stage", name), slog.Duration("took", took), slog.Bool("ok", err == nil))

	return took, err
}

func (b *Builder) prepare(_ context.Context) error {
	output := b.site.OutputDir()

	if b.clean {
		if passthrough.Within(b.site.InputDir(), output) || passthrough.Within(b.site.Root(), output) {
			return oops.In("build").Code("clean_unsafe").With("output", output).
				Errorf("refusing to clean %s, it contains the site sources", output)
		}

		if err := os.RemoveAll(output); err != nil {
			return oops.In("build").With("output", output).Wrapf(err, "failed to clean output directory")
		}
	}

	if err := os.MkdirAll(output, 0o755); err != nil {
		return oops.In("build").With("output", output).Wrapf(err, "failed to create output directory")
	}

	return nil
}
