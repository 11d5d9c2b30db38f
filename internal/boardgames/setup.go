// Package boardgames is the site configuration of the board game suggestions site.
package boardgames

import (
	"github.com/Vilsol/kiln/pkg/collection"
	"github.com/Vilsol/kiln/pkg/site"
)

const (
	// StaticDir holds the site's static assets.
	StaticDir = "static"

	// UsersCollection is the collection of players found in SuggestedPlayersFile.
	UsersCollection = "users"
)

// SuggestedPlayersFile is the data file the users collection is read from, relative to the site root.
var SuggestedPlayersFile = []string{"_data", "suggested_players.json"}

type options struct {
	favicon string
}

// Option configures Setup.
type Option func(o *options)

// WithFavicon also copies the favicon at path.
func WithFavicon(path string) Option {
	return func(o *options) { o.favicon = path }
}

// Setup returns the site configuration.
func Setup(opts ...Option) site.Setup {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	return func(cfg *site.Config) (*site.Dirs, error) {
		cfg.AddPassthroughCopy(StaticDir)
		if o.favicon != "" {
			cfg.AddPassthroughCopy(o.favicon)
		}

		cfg.AddCollection(UsersCollection, collection.JSONKeys(SuggestedPlayersFile...))

		return &site.Dirs{Input: ".", Output: "_site"}, nil
	}
}
