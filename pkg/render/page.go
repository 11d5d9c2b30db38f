package render

import (
	"io/fs"
	"path"
	"path/filepath"
	"strings"

	"github.com/Vilsol/kiln/pkg/passthrough"
	"github.com/Vilsol/kiln/pkg/site"
	"github.com/samber/oops"
)

// IncludesDir holds layouts, relative to the input directory.
const IncludesDir = "_includes"

// Page locates a rendered page.
type Page struct {
	// URL is the site-absolute URL the page is served at.
	URL string
	// InputPath is slash-separated and relative to the input directory.
	InputPath string
	// OutputPath is slash-separated and relative to the output directory.
	OutputPath string
}

func isPage(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".html", ".md":
		return true
	default:
		return false
	}
}

func isMarkdown(name string) bool {
	return strings.ToLower(path.Ext(name)) == ".md"
}

// Discover lists the input-relative, slash-separated paths of every page of s in
// lexical order. Directories starting with "_" or ".", the output directory and
// passthrough sources are skipped.
func Discover(s *site.Site) ([]string, error) {
	input := s.InputDir()
	output := s.OutputDir()

	var excluded []string
	for _, rule := range s.Passthrough() {
		excluded = append(excluded, s.SourcePath(rule))
	}

	var pages []string
	err := filepath.WalkDir(input, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if p != input && (passthrough.Within(p, output) || withinAny(p, excluded)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if p != input && SkipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || !isPage(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(input, p)
		if err != nil {
			return err //nolint:wrapcheck
		}

		pages = append(pages, filepath.ToSlash(rel))

		return nil
	})
	if err != nil {
		return nil, oops.In("render").With("input", input).Wrapf(err, "failed to discover pages")
	}

	return pages, nil
}

// SkipDir reports whether a directory name is excluded from page discovery.
func SkipDir(name string) bool {
	return strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") || name == "node_modules"
}

func withinAny(p string, dirs []string) bool {
	for _, dir := range dirs {
		if passthrough.Within(p, dir) {
			return true
		}
	}
	return false
}

// Locate computes where the page at inputPath is written. "index.*" becomes
// "<dir>/index.html" and "name.*" becomes "<dir>/name/index.html". A permalink
// replaces the computed path, relative to the output root.
func Locate(inputPath, permalink string) (Page, error) {
	var out string

	if permalink != "" {
		out = strings.TrimPrefix(permalink, "/")
		if out == "" || strings.HasSuffix(out, "/") {
			out += "index.html"
		}
		out = path.Clean(out)

		if !filepath.IsLocal(filepath.FromSlash(out)) {
			return Page{}, oops.In("render").Code("permalink_escapes").
				With("page", inputPath).With("permalink", permalink).
				Errorf("permalink %q escapes the output root", permalink)
		}
	} else {
		dir := path.Dir(inputPath)
		stem := strings.TrimSuffix(path.Base(inputPath), path.Ext(inputPath))
		if stem == "index" {
			out = path.Join(dir, "index.html")
		} else {
			out = path.Join(dir, stem, "index.html")
		}
	}

	return Page{
		URL:        urlFor(out),
		InputPath:  inputPath,
		OutputPath: out,
	}, nil
}

func urlFor(out string) string {
	if path.Base(out) != "index.html" {
		return "/" + out
	}

	dir := path.Dir(out)
	if dir == "." {
		return "/"
	}
	return "/" + dir + "/"
}
