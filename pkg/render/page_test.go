package render_test

import (
	"testing"

	"github.com/MarvinJWendt/testza"
	"github.com/Vilsol/kiln/pkg/render"
)

func TestLocate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input     string
		permalink string
		output    string
		url       string
	}{
		{input: "index.html", output: "index.html", url: "/"},
		{input: "about.md", output: "about/index.html", url: "/about/"},
		{input: "blog/index.md", output: "blog/index.html", url: "/blog/"},
		{input: "blog/post.html", output: "blog/post/index.html", url: "/blog/post/"},
		{input: "x.html", permalink: "/players/", output: "players/index.html", url: "/players/"},
		{input: "x.html", permalink: "feed.xml", output: "feed.xml", url: "/feed.xml"},
		{input: "x.html", permalink: "/", output: "index.html", url: "/"},
	}

	for _, tt := range tests {
		t.Run(tt.input+tt.permalink, func(t *testing.T) {
			t.Parallel()

			page, err := render.Locate(tt.input, tt.permalink)
			testza.AssertNil(t, err)
			testza.AssertEqual(t, tt.input, page.InputPath)
			testza.AssertEqual(t, tt.output, page.OutputPath)
			testza.AssertEqual(t, tt.url, page.URL)
		})
	}
}

func TestLocate_PermalinkEscapes(t *testing.T) {
	t.Parallel()

	_, err := render.Locate("x.html", "../outside.html")
	testza.AssertNotNil(t, err)
	testza.AssertContains(t, err.Error(), "escapes the output root")
}

func TestSkipDir(t *testing.T) {
	t.Parallel()

	testza.AssertTrue(t, render.SkipDir("_includes"))
	testza.AssertTrue(t, render.SkipDir(".git"))
	testza.AssertTrue(t, render.SkipDir("node_modules"))
	testza.AssertFalse(t, render.SkipDir("blog"))
}
