package build

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Vilsol/kiln/pkg/passthrough"
	"github.com/Vilsol/slox"
	"github.com/fsnotify/fsnotify"
	"github.com/samber/oops"
)

func (m *Module) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return oops.In("build").Wrapf(err, "failed to create file watcher")
	}
	defer func() { _ = watcher.Close() }()

	roots := []string{m.site.InputDir()}
	if !passthrough.Within(m.site.Root(), m.site.InputDir()) {
		roots = append(roots, m.site.Root())
	}

	for _, root := range roots {
		if err := m.watchTree(watcher, root); err != nil {
			return err
		}
	}

	slox.Info(ctx, "watching for changes", slog.Any("paths", roots))

	trigger := make(chan struct{}, 1)
	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if m.ignored(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := m.watchTree(watcher, event.Name); err != nil {
						slox.Warn(ctx, "failed to watch new directory", slog.String("path", event.Name), slog.Any("error", err))
					}
				}
			}

			slox.Debug(ctx, "source changed", slog.String("path", event.Name), slog.String("op", event.Op.String()))

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(m.settings().Debounce, func() {
				select {
				case trigger <- struct{}{}:
				default:
				}
			})

		case <-trigger:
			// Failures are recorded for Check and logged by rebuild.
			_ = m.rebuild(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slox.Error(ctx, "file watcher error", slog.Any("error", err))
		}
	}
}

func (m *Module) watchTree(watcher *fsnotify.Watcher, root string) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if path != root && m.ignored(path) {
			return filepath.SkipDir
		}

		return watcher.Add(path) //nolint:wrapcheck
	})
	if err != nil {
		return oops.In("build").With("path", root).Wrapf(err, "failed to watch %s", root)
	}

	return nil
}

func (m *Module) ignored(path string) bool {
	if passthrough.Within(path, m.site.OutputDir()) {
		return true
	}

	name := filepath.Base(path)
	return strings.HasPrefix(name, ".") || name == "node_modules"
}
