package param

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/relief/internal/fileconf"
	"github.com/gogpu/relief/internal/rlog"
)

// LoadFile decodes a TOML or YAML params file on top of base.
func LoadFile(path string, base Params) (Params, error) {
	p := base
	if err := fileconf.DecodeFile(path, &p); err != nil {
		return base, fmt.Errorf("param: load %s: %w", path, err)
	}
	return p, nil
}

// Watch applies path to store now and again every time the file is written,
// until ctx is done. Rejected files are logged and leave the store as is.
// The directory is watched so that editors replacing the file are seen.
func Watch(ctx context.Context, path string, store *Store) error {
	if _, err := fileconf.FormatOf(path); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("param: watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("param: watch %s: %w", path, err)
	}

	reload(path, store)

	target := filepath.Clean(path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				reload(path, store)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			rlog.L().Warn("param: watcher error", "path", path, "err", err)
		}
	}
}

func reload(path string, store *Store) {
	p, err := LoadFile(path, store.Load())
	if err == nil {
		err = store.Apply(p)
	}
	if err != nil {
		rlog.L().Warn("param: params file rejected", "path", path, "err", err)
		return
	}
	rlog.L().Debug("param: params file applied", "path", path)
}
