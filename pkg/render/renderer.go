// Package render turns a site's HTML and Markdown pages into its output tree.
package render

import (
	"bytes"
	"context"
	"html/template"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sync/atomic"

	"github.com/Vilsol/kiln/pkg/passthrough"
	"github.com/Vilsol/kiln/pkg/site"
	"github.com/Vilsol/slox"
	"github.com/samber/oops"
	"github.com/sourcegraph/conc/pool"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

const maxLayoutDepth = 16

// Globals is the data shared by every page of a build.
type Globals struct {
	Collections map[string][]any
	Data        map[string]any
}

// Context is the data a page or layout template executes with.
type Context struct {
	Collections map[string][]any
	Data        map[string]any
	Page        Page
	Front       map[string]any
	Title       string
	Content     template.HTML
}

// Result lists the pages written by a render.
type Result struct {
	Pages []Page
}

// Option configures a Renderer.
type Option func(r *Renderer)

// WithWorkers bounds the number of pages rendered concurrently. Values below 1 use GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(r *Renderer) { r.workers = n }
}

// WithHighlightStyle sets the chroma style for fenced code blocks. Empty disables highlighting.
func WithHighlightStyle(style string) Option {
	return func(r *Renderer) { r.highlightStyle = style }
}

// WithFuncs adds template functions available to pages and layouts.
func WithFuncs(funcs template.FuncMap) Option {
	return func(r *Renderer) {
		for name, fn := range funcs {
			r.funcs[name] = fn
		}
	}
}

// Renderer renders the pages of one site.
type Renderer struct {
	site           *site.Site
	workers        int
	highlightStyle string
	funcs          template.FuncMap
	markdown       goldmark.Markdown
}

// NewRenderer creates a Renderer for s.
func NewRenderer(s *site.Site, options ...Option) *Renderer {
	r := &Renderer{
		site:           s,
		highlightStyle: "monokai",
		funcs:          template.FuncMap{},
	}

	for _, option := range options {
		option(r)
	}

	if r.workers < 1 {
		r.workers = runtime.GOMAXPROCS(0)
	}

	extensions := []goldmark.Extender{extension.GFM, extension.Typographer}
	if r.highlightStyle != "" {
		extensions = append(extensions, highlighting.NewHighlighting(highlighting.WithStyle(r.highlightStyle)))
	}

	r.markdown = goldmark.New(
		goldmark.WithExtensions(extensions...),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	return r
}

// passthroughSource returns the passthrough file that is copied to output, if any.
func (r *Renderer) passthroughSource(output string) (string, bool) {
	target := filepath.Join(r.site.OutputDir(), filepath.FromSlash(output))

	for _, rule := range r.site.Passthrough() {
		dest := r.site.TargetPath(rule)
		if !passthrough.Within(target, dest) {
			continue
		}

		rel, err := filepath.Rel(dest, target)
		if err != nil {
			continue
		}

		source := filepath.Join(r.site.SourcePath(rule), rel)
		if info, err := os.Stat(source); err == nil && !info.IsDir() {
			return filepath.ToSlash(filepath.Join(rule.Source, rel)), true
		}
	}

	return "", false
}

type layout struct {
	front    FrontMatter
	template *template.Template
}

type pending struct {
	page     Page
	front    FrontMatter
	body     []byte
	markdown bool
}

// Render discovers, renders and writes every page. Any failure aborts the render.
func (r *Renderer) Render(ctx context.Context, globals Globals) (Result, error) {
	inputs, err := Discover(r.site)
	if err != nil {
		return Result{}, err
	}

	pages := make([]pending, 0, len(inputs))
	owners := make(map[string]string, len(inputs))
	layouts := make(map[string]*layout)

	for _, input := range inputs {
		p, err := r.prepare(input)
		if err != nil {
			return Result{}, err
		}

		if previous, ok := owners[p.page.OutputPath]; ok {
			return Result{}, oops.In("render").Code("output_conflict").
				With("output", p.page.OutputPath).With("page", input).With("previous", previous).
				Errorf("%s and %s both write %s", previous, input, p.page.OutputPath)
		}
		owners[p.page.OutputPath] = input

		if source, ok := r.passthroughSource(p.page.OutputPath); ok {
			return Result{}, oops.In("render").Code("output_conflict").
				With("output", p.page.OutputPath).With("page", input).With("passthrough", source).
				Errorf("%s writes %s, which is copied from %s", input, p.page.OutputPath, source)
		}

		if err := r.loadLayoutChain(p.front.Layout, layouts); err != nil {
			return Result{}, oops.In("render").With("page", input).Wrapf(err, "failed to load layout for %s", input)
		}

		pages = append(pages, p)
	}

	var written atomic.Int64

	workers := pool.New().
		WithErrors().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(r.workers)

	for _, p := range pages {
		workers.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err //nolint:wrapcheck
			}

			if err := r.renderPage(p, globals, layouts); err != nil {
				return err
			}

			written.Add(1)
			return nil
		})
	}

	if err := workers.Wait(); err != nil {
		return Result{}, oops.In("render").Wrapf(err, "render failed")
	}

	result := Result{Pages: make([]Page, len(pages))}
	for i, p := range pages {
		result.Pages[i] = p.page
	}

	slox.Debug(ctx, "pages rendered", slog.Int64("pages", written.Load()))

	return result, nil
}

func (r *Renderer) prepare(input string) (pending, error) {
	src, err := os.ReadFile(filepath.Join(r.site.InputDir(), filepath.FromSlash(input)))
	if err != nil {
		return pending{}, oops.In("render").With("page", input).Wrapf(err, "failed to read page")
	}

	front, body, err := ParseFrontMatter(src)
	if err != nil {
		return pending{}, oops.In("render").With("page", input).Wrapf(err, "invalid page %s", input)
	}

	page, err := Locate(input, front.Permalink)
	if err != nil {
		return pending{}, err
	}

	return pending{
		page:     page,
		front:    front,
		body:     body,
		markdown: isMarkdown(input),
	}, nil
}

func (r *Renderer) loadLayoutChain(name string, layouts map[string]*layout) error {
	seen := make(map[string]bool)

	for depth := 0; name != ""; depth++ {
		if seen[name] || depth >= maxLayoutDepth {
			return oops.In("render").Code("layout_cycle").With("layout", name).
				Errorf("layout %q includes itself", name)
		}
		seen[name] = true

		l, ok := layouts[name]
		if !ok {
			var err error
			if l, err = r.loadLayout(name); err != nil {
				return err
			}
			layouts[name] = l
		}

		name = l.front.Layout
	}

	return nil
}

func (r *Renderer) loadLayout(name string) (*layout, error) {
	file := filepath.Join(r.site.InputDir(), IncludesDir, filepath.FromSlash(name))
	if path.Ext(name) == "" {
		file += ".html"
	}

	src, err := os.ReadFile(file)
	if err != nil {
		return nil, oops.In("render").Code("layout_missing").With("layout", name).
			Wrapf(err, "failed to read layout %q", name)
	}

	front, body, err := ParseFrontMatter(src)
	if err != nil {
		return nil, oops.In("render").With("layout", name).Wrapf(err, "invalid layout %q", name)
	}

	tmpl, err := template.New(name).Funcs(r.funcs).Parse(string(body))
	if err != nil {
		return nil, oops.In("render").With("layout", name).Wrapf(err, "failed to parse layout %q", name)
	}

	return &layout{front: front, template: tmpl}, nil
}

func (r *Renderer) renderPage(p pending, globals Globals, layouts map[string]*layout) error {
	data := Context{
		Collections: globals.Collections,
		Data:        globals.Data,
		Page:        p.page,
		Front:       p.front.Fields,
		Title:       p.front.Title,
	}

	content, err := r.renderBody(p, data)
	if err != nil {
		return oops.In("render").With("page", p.page.InputPath).Wrapf(err, "failed to render %s", p.page.InputPath)
	}

	for name := p.front.Layout; name != ""; name = layouts[name].front.Layout {
		l := layouts[name]
		if data.Title == "" {
			data.Title = l.front.Title
		}
		data.Content = template.HTML(content) //nolint:gosec

		var buf bytes.Buffer
		if err := l.template.Execute(&buf, data); err != nil {
			return oops.In("render").With("page", p.page.InputPath).With("layout", name).
				Wrapf(err, "failed to apply layout %q to %s", name, p.page.InputPath)
		}
		content = buf.Bytes()
	}

	target := filepath.Join(r.site.OutputDir(), filepath.FromSlash(p.page.OutputPath))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return oops.In("render").With("output", target).Wrapf(err, "failed to create output directory")
	}

	if err := os.WriteFile(target, content, 0o644); err != nil { //nolint:gosec
		return oops.In("render").With("output", target).Wrapf(err, "failed to write page")
	}

	return nil
}

func (r *Renderer) renderBody(p pending, data Context) ([]byte, error) {
	var buf bytes.Buffer

	if p.markdown {
		if err := r.markdown.Convert(p.body, &buf); err != nil {
			return nil, oops.Wrapf(err, "markdown conversion failed")
		}
		return buf.Bytes(), nil
	}

	tmpl, err := template.New(p.page.InputPath).Funcs(r.funcs).Parse(string(p.body))
	if err != nil {
		return nil, oops.Wrapf(err, "failed to parse template")
	}

	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, oops.Wrapf(err, "failed to execute template")
	}

	return buf.Bytes(), nil
}
