package indexing

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Change is the effect of one file system event on the corpus.
type Change int

const (
	// ChangeNone means the event was ignored.
	ChangeNone Change = iota
	// ChangeIngested means the file was stored and submitted for indexing.
	ChangeIngested
	// ChangeRemoved means the document was dropped.
	ChangeRemoved
)

// Watcher follows a directory tree and keeps the corpus in sync with it.
type Watcher struct {
	pipeline *Pipeline
	root     string
	ignores  []string
	exts     map[string]bool
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
}

// NewWatcher creates a watcher for root. Call Run to start processing events.
func NewWatcher(pipeline *Pipeline, root string) (*Watcher, error) {
	if pipeline == nil {
		return nil, ErrPipelineRequired
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		pipeline: pipeline,
		root:     absRoot,
		ignores:  LoadIgnorePatterns(absRoot),
		exts:     pipeline.parser.Registry().Extensions(),
		watcher:  fw,
		logger:   pipeline.logger.With("component", "watcher"),
	}
	if err := w.addTree(absRoot); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "err", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// addTree watches root and every directory below it that is not ignored.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != w.root {
			rel, _ := filepath.Rel(w.root, path)
			if MatchesIgnore(d.Name(), filepath.ToSlash(rel), w.ignores) {
				return filepath.SkipDir
			}
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) Change {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return ChangeNone
	}
	rel = filepath.ToSlash(rel)
	if w.ignored(rel) {
		return ChangeNone
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if err := w.pipeline.Remove(ctx, rel); err != nil {
			w.logger.Error("failed to remove document", "path", rel, "err", err)
			return ChangeNone
		}
		return ChangeRemoved

	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			return ChangeNone
		}
		if info.IsDir() {
			if event.Has(fsnotify.Create) {
				if err := w.addTree(event.Name); err != nil {
					w.logger.Warn("failed to watch directory", "path", rel, "err", err)
				}
			}
			return ChangeNone
		}
		if !w.exts[extension(event.Name)] || info.Size() > MaxFileSize || info.Size() == 0 {
			return ChangeNone
		}
		contents, err := os.ReadFile(event.Name)
		if err != nil {
			w.logger.Warn("failed to read file", "path", rel, "err", err)
			return ChangeNone
		}
		if _, err := w.pipeline.Ingest(ctx, rel, contents); err != nil {
			w.logger.Error("failed to ingest file", "path", rel, "err", err)
			return ChangeNone
		}
		return ChangeIngested
	}
	return ChangeNone
}

// ignored reports whether any path component matches an ignore pattern or
// is hidden.
func (w *Watcher) ignored(rel string) bool {
	dir := rel
	for dir != "." && dir != "/" && dir != "" {
		name := filepath.Base(dir)
		if len(name) > 0 && name[0] == '.' {
			return true
		}
		if MatchesIgnore(name, dir, w.ignores) {
			return true
		}
		dir = filepath.ToSlash(filepath.Dir(dir))
	}
	return false
}
