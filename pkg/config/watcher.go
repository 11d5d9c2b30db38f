package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/Vilsol/slox"
	"github.com/fsnotify/fsnotify"
)

const debounceDelay = 100 * time.Millisecond

// configWatch tracks the config files of a site. Directories are watched
// instead of files so that editors replacing a file through a rename do not
// drop the watch.
type configWatch struct {
	files map[string]struct{} // absolute paths
	dirs  []string
}

func newConfigWatch(files []configFile) configWatch {
	w := configWatch{files: make(map[string]struct{}, len(files))}

	for _, cf := range files {
		abs, err := filepath.Abs(cf.path)
		if err != nil {
			continue
		}

		w.files[abs] = struct{}{}

		if dir := filepath.Dir(abs); !slices.Contains(w.dirs, dir) {
			w.dirs = append(w.dirs, dir)
		}
	}

	return w
}

// affects reports whether an event touches a tracked config file in a way
// that changes its content.
func (w configWatch) affects(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}

	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}

	_, ok := w.files[abs]
	return ok
}

func (m *Module) startWatcher(ctx context.Context, src Source) {
	w := newConfigWatch(m.configFiles)
	if len(w.dirs) == 0 {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slox.Warn(ctx, "config hot reload disabled", slog.Any("error", err))
		return
	}

	for _, dir := range w.dirs {
		if err := watcher.Add(dir); err != nil {
			slox.Warn(ctx, "failed to watch config directory", slog.String("dir", dir), slog.Any("error", err))
		}
	}

	go m.watchLoop(ctx, watcher, w, src.Dir)
}

func (m *Module) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, w configWatch, base string) {
	defer func() { _ = watcher.Close() }()

	timer := time.NewTimer(debounceDelay)
	timer.Stop()

	changed := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if !w.affects(event) {
				continue
			}

			changed[displayPath(base, event.Name)] = struct{}{}
			timer.Reset(debounceDelay)

		case <-timer.C:
			files := make([]string, 0, len(changed))
			for name := range changed {
				files = append(files, name)
			}
			slices.Sort(files)
			clear(changed)

			if err := m.reload(); err != nil {
				slox.Error(ctx, "config reload failed, keeping previous values",
					slog.Any("files", files),
					slog.Any("error", err),
				)
				continue
			}

			slox.Info(ctx, "config reloaded", slog.Any("files", files))

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slox.Warn(ctx, "config watcher error", slog.Any("error", err))
		}
	}
}

// displayPath shortens a config file path to be relative to the site's config directory.
func displayPath(base, name string) string {
	if base == "" {
		return name
	}

	abs, err := filepath.Abs(name)
	if err != nil {
		return name
	}

	rel, err := filepath.Rel(base, abs)
	if err != nil {
		return name
	}

	return filepath.ToSlash(rel)
}
