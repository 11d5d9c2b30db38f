// kiln builds the board game suggestions site, and optionally watches and serves it.
//
//	kiln                  build once into _site
//	kiln --watch --serve  rebuild on change and serve on 127.0.0.1:8080
package main

import (
	"context"
	"os"

	"github.com/Vilsol/kiln/internal/boardgames"
	"github.com/Vilsol/kiln/internal/cli"
	"github.com/Vilsol/kiln/pkg/build"
	"github.com/Vilsol/kiln/pkg/config"
	"github.com/Vilsol/kiln/pkg/health"
	fiberserver "github.com/Vilsol/kiln/pkg/http/fiber"
	"github.com/Vilsol/kiln/pkg/kiln"
	"github.com/Vilsol/kiln/pkg/logging/slog"
	"github.com/Vilsol/kiln/pkg/logging/tint"
	"github.com/Vilsol/kiln/pkg/otel"
	"github.com/Vilsol/kiln/pkg/site"
	healthgo "github.com/hellofresh/health-go/v5"
)

func main() {
	builder := build.NewModule()

	runtime := kiln.NewRuntime(
		// Config module MUST be first
		config.NewModule(
			config.WithConfigDirs(".", "./config"),
			config.WithArgs(os.Args[1:]),
			config.WithAliases(cli.Flags()...),
		),

		tint.NewModule(),
		slog.NewModule(),
		otel.NewModule(),
		site.NewModule(boardgames.Setup()),
		builder,
		health.NewModule(
			health.WithCheck(healthgo.Config{
				Name:  "build",
				Check: func(ctx context.Context) error { return builder.Check(ctx) },
			}),
		),
		fiberserver.NewModule(
			fiberserver.WithHealthPath("/.kiln/health"),
		),
	)

	if err := runtime.Run(); err != nil {
		os.Exit(1)
		return
	}
}
