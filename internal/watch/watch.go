// Package watch turns file saves under a directory into insertion events.
//
// Every watched file is snapshotted; when it changes the new content is
// diffed against the snapshot and the inserted text goes through the same
// detector and classifier an editor integration would use.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/phobologic/jimbo/internal/discover"
	"github.com/phobologic/jimbo/internal/insertion"
	"github.com/phobologic/jimbo/internal/model"
	"github.com/phobologic/jimbo/internal/outline"
	"github.com/phobologic/jimbo/internal/snippet"
)

const (
	DefaultDebounce    = 150 * time.Millisecond
	DefaultMaxFileSize = 1_000_000
)

// Options configures a Watcher. Filter is required.
type Options struct {
	Filter      *discover.Filter
	Detector    insertion.Detector
	Classifier  *snippet.Classifier // nil uses the built-in catalogs
	Outlines    *outline.Cache      // nil skips outlines
	Debounce    time.Duration
	MaxFileSize int64
	Sink        func(model.Insertion)
	Logger      *zap.Logger
}

// Stats counts watcher activity.
type Stats struct {
	Files      int
	Events     int
	Insertions int
	Errors     int
}

// Watcher is created with New and driven by Run.
type Watcher struct {
	opts Options
	root string
	fs   *fsnotify.Watcher

	mu         sync.Mutex
	snapshots  map[string]string    // rel path -> content
	pending    map[string]time.Time // rel path -> last event
	tombstones map[string]tombstone // removed snapshots, restored if the path reappears within tombstoneTTL
	stats      Stats
}

type tombstone struct {
	content string
	at      time.Time
}

// minTombstoneTTL is the shortest time a removed file's content is kept.
const minTombstoneTTL = 2 * time.Second

func (w *Watcher) tombstoneTTL() time.Duration {
	if ttl := 4 * w.opts.Debounce; ttl > minTombstoneTTL {
		return ttl
	}
	return minTombstoneTTL
}

// New scans the filter root, snapshots every matching file and registers
// every directory with fsnotify.
func New(opts Options) (*Watcher, error) {
	if opts.Filter == nil {
		return nil, errors.New("watch: filter is required")
	}
	if opts.Detector == (insertion.Detector{}) {
		opts.Detector = insertion.DefaultDetector()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.Sink == nil {
		opts.Sink = func(model.Insertion) {}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	root, err := filepath.Abs(opts.Filter.Root())
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", opts.Filter.Root(), err)
	}
	tree, err := discover.Scan(opts.Filter)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	w := &Watcher{
		opts:      opts,
		root:      root,
		fs:        fw,
		snapshots:  make(map[string]string, len(tree.Files)),
		pending:    make(map[string]time.Time),
		tombstones: make(map[string]tombstone),
	}

	for _, dir := range tree.Dirs {
		if err := fw.Add(filepath.Join(root, dir)); err != nil {
			opts.Logger.Warn("cannot watch directory", zap.String("dir", dir), zap.Error(err))
		}
	}
	for _, f := range tree.Files {
		if content, ok := w.read(f.Path); ok {
			w.snapshots[f.Path] = content
		}
	}
	w.stats.Files = len(w.snapshots)
	opts.Logger.Info("watching",
		zap.String("root", root),
		zap.Int("dirs", len(tree.Dirs)),
		zap.Int("files", len(w.snapshots)))
	return w, nil
}

// Run processes filesystem events until ctx is cancelled, then closes the
// underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()

	tick := w.opts.Debounce / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ev)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.opts.Logger.Error("watch error", zap.Error(err))
			w.mu.Lock()
			w.stats.Errors++
			w.mu.Unlock()

		case now := <-ticker.C:
			w.flush(ctx, now)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return
	}

	switch {
	case ev.Has(fsnotify.Create):
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.addDir(rel)
			return
		}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.mu.Lock()
		if content, ok := w.snapshots[rel]; ok {
			w.tombstones[rel] = tombstone{content: content, at: time.Now()}
			delete(w.snapshots, rel)
		}
		delete(w.pending, rel)
		w.mu.Unlock()
		return
	case !ev.Has(fsnotify.Write):
		return
	}

	if _, ok := w.opts.Filter.Match(rel); !ok {
		return
	}
	w.mu.Lock()
	w.pending[rel] = time.Now()
	w.stats.Events++
	w.mu.Unlock()
}

// addDir watches a newly created directory and anything already inside it.
func (w *Watcher) addDir(rel string) {
	if w.opts.Filter.SkipDir(rel) {
		return
	}
	sub := discover.NewFilter(filepath.Join(w.root, rel), nil, nil)
	tree, err := discover.Scan(sub)
	if err != nil {
		return
	}
	now := time.Now()
	for _, dir := range tree.Dirs {
		full := filepath.Join(rel, dir)
		if w.opts.Filter.SkipDir(full) {
			continue
		}
		if err := w.fs.Add(filepath.Join(w.root, full)); err != nil {
			w.opts.Logger.Warn("cannot watch directory", zap.String("dir", full), zap.Error(err))
		}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, f := range tree.Files {
		full := filepath.Join(rel, f.Path)
		if _, ok := w.opts.Filter.Match(full); ok {
			w.pending[full] = now
		}
	}
}

func (w *Watcher) flush(ctx context.Context, now time.Time) {
	w.mu.Lock()
	var ready []string
	for rel, at := range w.pending {
		if now.Sub(at) >= w.opts.Debounce {
			ready = append(ready, rel)
			delete(w.pending, rel)
		}
	}
	ttl := w.tombstoneTTL()
	for rel, ts := range w.tombstones {
		if now.Sub(ts.at) >= ttl {
			delete(w.tombstones, rel)
		}
	}
	w.mu.Unlock()

	for _, rel := range ready {
		content, ok := w.read(rel)
		if !ok {
			continue
		}
		if ins, ok := w.Observe(ctx, rel, content); ok {
			w.opts.Sink(ins)
		}
	}
}

func (w *Watcher) read(rel string) (string, bool) {
	path := filepath.Join(w.root, rel)
	info, err := os.Stat(path)
	if err != nil {
		return "", false
	}
	if info.Size() > w.opts.MaxFileSize {
		w.opts.Logger.Debug("skipping large file", zap.String("file", rel), zap.Int64("size", info.Size()))
		return "", false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		w.opts.Logger.Warn("cannot read file", zap.String("file", rel), zap.Error(err))
		return "", false
	}
	return string(data), true
}

// Observe records content as the new version of rel and reports the
// insertion it represents, if significant. A file removed moments ago diffs
// against its last content; other unknown files diff against empty content.
func (w *Watcher) Observe(ctx context.Context, rel, content string) (model.Insertion, bool) {
	language, ok := w.opts.Filter.Match(rel)
	if !ok {
		return model.Insertion{}, false
	}

	w.mu.Lock()
	before, ok := w.snapshots[rel]
	if !ok {
		if ts, found := w.tombstones[rel]; found {
			before = ts.content
			delete(w.tombstones, rel)
		}
	}
	w.snapshots[rel] = content
	w.stats.Files = len(w.snapshots)
	w.mu.Unlock()

	change := insertion.Diff(before, content)
	if !w.opts.Detector.Significant([]insertion.Change{change}) {
		return model.Insertion{}, false
	}

	log := w.opts.Logger.With(zap.String("file", rel))
	res, err := snippet.Safe(w.opts.Classifier, change.Text)
	if err != nil {
		log.Error("classification failed", zap.Error(err))
	}
	ins := model.Insertion{
		Report:  model.Report{File: rel, Result: res},
		Snippet: change.Text,
		At:      time.Now(),
	}
	if w.opts.Outlines != nil {
		o, err := w.opts.Outlines.Outline(ctx, language, change.Text)
		if err != nil {
			log.Warn("outline failed", zap.Error(err))
		} else {
			ins.Outline = &o
		}
	}

	w.mu.Lock()
	w.stats.Insertions++
	w.mu.Unlock()
	log.Debug("insertion",
		zap.String("gist", res.Gist),
		zap.Int("lines", res.LineCount))
	return ins, true
}

// Stats returns a snapshot of the watcher counters.
func (w *Watcher) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

// WatchList returns the absolute directories being watched.
func (w *Watcher) WatchList() []string {
	return w.fs.WatchList()
}
