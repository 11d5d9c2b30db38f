package render

import (
	"bytes"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

const frontMatterFence = "---"

// FrontMatter is the YAML header of a page or layout.
type FrontMatter struct {
	Layout    string
	Title     string
	Permalink string

	// Fields holds every key, including the ones above.
	Fields map[string]any
}

// ParseFrontMatter splits src into its front matter and body. Sources without a
// leading "---" line have empty front matter and src as body.
func ParseFrontMatter(src []byte) (FrontMatter, []byte, error) {
	rest, ok := cutFence(src)
	if !ok {
		return FrontMatter{Fields: map[string]any{}}, src, nil
	}

	offset := 0
	for {
		end := bytes.IndexByte(rest[offset:], '\n')

		line := rest[offset:]
		next := len(rest)
		if end >= 0 {
			line = rest[offset : offset+end]
			next = offset + end + 1
		}

		if string(bytes.TrimRight(line, "\r")) == frontMatterFence {
			fm, err := decodeFrontMatter(rest[:offset])
			return fm, rest[next:], err
		}

		if end < 0 {
			return FrontMatter{}, nil, oops.In("render").Code("front_matter_unterminated").
				Errorf("front matter is not terminated")
		}

		offset = next
	}
}

func cutFence(src []byte) ([]byte, bool) {
	if rest, ok := bytes.CutPrefix(src, []byte(frontMatterFence+"\n")); ok {
		return rest, true
	}
	return bytes.CutPrefix(src, []byte(frontMatterFence+"\r\n"))
}

func decodeFrontMatter(header []byte) (FrontMatter, error) {
	fields := map[string]any{}
	if err := yaml.Unmarshal(header, &fields); err != nil {
		return FrontMatter{}, oops.In("render").Code("front_matter_invalid").Wrapf(err, "failed to parse front matter")
	}

	if fields == nil {
		fields = map[string]any{}
	}

	fm := FrontMatter{Fields: fields}

	for key, dst := range map[string]*string{
		"layout":    &fm.Layout,
		"title":     &fm.Title,
		"permalink": &fm.Permalink,
	} {
		value, ok := fields[key]
		if !ok || value == nil {
			continue
		}

		s, ok := value.(string)
		if !ok {
			return FrontMatter{}, oops.In("render").Code("front_matter_invalid").With("key", key).
				Errorf("front matter key %q must be a string", key)
		}
		*dst = s
	}

	return fm, nil
}
