// docgen writes kiln's configuration reference as YAML: the command line
// flags, and for every module its keys, defaults and environment variables.
//
//	go run ./cmd/docgen -o docs/config.yaml
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/Vilsol/kiln/internal/boardgames"
	"github.com/Vilsol/kiln/internal/cli"
	"github.com/Vilsol/kiln/pkg/build"
	"github.com/Vilsol/kiln/pkg/health"
	fiberserver "github.com/Vilsol/kiln/pkg/http/fiber"
	"github.com/Vilsol/kiln/pkg/logging/slog"
	"github.com/Vilsol/kiln/pkg/logging/tint"
	"github.com/Vilsol/kiln/pkg/otel"
	"github.com/Vilsol/kiln/pkg/site"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// documented lists the modules kiln runs with, paired with their default config.
func documented() []entry {
	return []entry{
		{site.NewModule(boardgames.Setup()), site.NewDefaultModuleConfig()},
		{build.NewModule(), build.NewDefaultConfig()},
		{fiberserver.NewModule(), fiberserver.NewDefaultConfig()},
		{health.NewModule(), health.NewDefaultConfig()},
		{otel.NewModule(), otel.NewDefaultConfig()},
		{tint.NewModule(), tint.NewDefaultConfig()},
		{slog.NewModule(), slog.NewDefaultConfig()},
	}
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	flags := pflag.NewFlagSet("docgen", pflag.ContinueOnError)
	target := flags.StringP("output", "o", "", "write to this file instead of stdout")
	if err := flags.Parse(args); err != nil {
		return oops.Wrapf(err, "failed to parse flags")
	}

	root, err := moduleRoot()
	if err != nil {
		return err
	}

	ref := newReference(root, cli.Flags(), documented())

	w := stdout
	if *target != "" {
		f, err := os.Create(*target)
		if err != nil {
			return oops.Wrapf(err, "failed to create %s", *target)
		}
		defer f.Close()
		w = f
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(ref); err != nil {
		return oops.Wrapf(err, "failed to encode reference")
	}

	return oops.Wrapf(enc.Close(), "failed to flush reference")
}
