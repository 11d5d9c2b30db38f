// Package passthrough copies a site's passthrough rules into its output directory.
package passthrough

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/Vilsol/kiln/pkg/site"
	"github.com/Vilsol/slox"
	"github.com/samber/oops"
	"github.com/sourcegraph/conc/pool"
)

// Result summarizes a copy run.
type Result struct {
	Files int
	Bytes int64
}

// Option configures a Copier.
type Option func(c *Copier)

// WithWorkers bounds the number of files copied concurrently. Values below 1 use GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(c *Copier) { c.workers = n }
}

// Copier copies passthrough rules byte for byte.
type Copier struct {
	workers int
}

// NewCopier creates a Copier.
func NewCopier(options ...Option) *Copier {
	c := &Copier{}
	for _, option := range options {
		option(c)
	}
	if c.workers < 1 {
		c.workers = runtime.GOMAXPROCS(0)
	}
	return c
}

type job struct {
	src  string
	dst  string
	mode fs.FileMode
}

// Copy copies every passthrough rule of s. A missing source fails the copy, and the
// first failed file cancels the remaining ones.
func (c *Copier) Copy(ctx context.Context, s *site.Site) (Result, error) {
	jobs, err := plan(s)
	if err != nil {
		return Result{}, err
	}

	var files atomic.Int64
	var written atomic.Int64

	p := pool.New().
		WithErrors().
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError().
		WithMaxGoroutines(c.workers)

	for _, j := range jobs {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err //nolint:wrapcheck
			}

			n, err := copyFile(j)
			if err != nil {
				return err
			}

			files.Add(1)
			written.Add(n)

			return nil
		})
	}

	if err := p.Wait(); err != nil {
		return Result{}, oops.In("passthrough").Wrapf(err, "passthrough copy failed")
	}

	result := Result{Files: int(files.Load()), Bytes: written.Load()}

	slox.Debug(ctx, "passthrough copied", slog.Int("files", result.Files), slog.Int64("bytes", result.Bytes))

	return result, nil
}

func plan(s *site.Site) ([]job, error) {
	output := s.OutputDir()

	var jobs []job
	for _, rule := range s.Passthrough() {
		src := s.SourcePath(rule)
		dst := s.TargetPath(rule)

		if Within(src, output) {
			return nil, oops.In("passthrough").Code("passthrough_source_in_output").
				With("source", src).With("output", output).
				Errorf("passthrough source %s is inside the output directory", rule.Source)
		}

		info, err := os.Stat(src)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, oops.In("passthrough").Code("passthrough_source_missing").With("source", src).
					Errorf("passthrough source %s does not exist", rule.Source)
			}
			return nil, oops.In("passthrough").With("source", src).Wrapf(err, "failed to stat %s", rule.Source)
		}

		if !info.IsDir() {
			jobs = append(jobs, job{src: src, dst: dst, mode: info.Mode().Perm()})
			continue
		}

		walked, err := planDir(src, dst, output)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, walked...)
	}

	return jobs, nil
}

func planDir(src, dst, output string) ([]job, error) {
	var jobs []job

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path == output {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err //nolint:wrapcheck
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err //nolint:wrapcheck
		}

		jobs = append(jobs, job{src: path, dst: filepath.Join(dst, rel), mode: info.Mode().Perm()})

		return nil
	})
	if err != nil {
		return nil, oops.In("passthrough").With("source", src).Wrapf(err, "failed to walk %s", src)
	}

	return jobs, nil
}

func copyFile(j job) (int64, error) {
	in, err := os.Open(j.src)
	if err != nil {
		return 0, oops.In("passthrough").With("source", j.src).Wrapf(err, "failed to open source")
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(j.dst), 0o755); err != nil {
		return 0, oops.In("passthrough").With("target", j.dst).Wrapf(err, "failed to create target directory")
	}

	out, err := os.OpenFile(j.dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, j.mode)
	if err != nil {
		return 0, oops.In("passthrough").With("target", j.dst).Wrapf(err, "failed to create target")
	}

	n, err := io.Copy(out, in)
	if err != nil {
		_ = out.Close()
		return 0, oops.In("passthrough").With("source", j.src).With("target", j.dst).Wrapf(err, "failed to copy")
	}

	if err := out.Close(); err != nil {
		return 0, oops.In("passthrough").With("target", j.dst).Wrapf(err, "failed to close target")
	}

	if err := os.Chmod(j.dst, j.mode); err != nil {
		return 0, oops.In("passthrough").With("target", j.dst).Wrapf(err, "failed to set mode")
	}

	return n, nil
}

// Within reports whether path equals dir or lies below it.
func Within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
