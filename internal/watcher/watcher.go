// Package watcher ingests survey files dropped into inbox directories.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// FileFunc handles one file event. Returned errors are logged.
type FileFunc func(ctx context.Context, path string) error

// Config describes what to watch and what to do on changes.
type Config struct {
	Inboxes    []string
	Extensions []string // empty accepts every extension
	Recursive  bool
	OnChange   FileFunc // called once a file has been quiet for the debounce period
	OnRemove   FileFunc // called when a file is removed or renamed away
}

// Watcher watches inbox directories for survey files.
type Watcher struct {
	cfg      Config
	debounce time.Duration
	logger   *zap.Logger

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	ctx      context.Context
	pending  map[string]*time.Timer
	watched  map[string][]string // inbox -> directories registered with fsnotify
	inboxes  []string
	running  bool
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger for watch events and callback failures.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce sets how long a file must be quiet before OnChange runs.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher; call Start to begin receiving events.
func New(cfg Config, opts ...Option) *Watcher {
	w := &Watcher{
		cfg:      cfg,
		debounce: defaultDebounce,
		logger:   zap.NewNop(),
		pending:  make(map[string]*time.Timer),
		watched:  make(map[string][]string),
		inboxes:  append([]string(nil), cfg.Inboxes...),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = zap.NewNop()
	}
	return w
}

// Start registers every inbox, creating missing ones, and processes events
// until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw
	w.ctx = ctx
	for _, inbox := range w.inboxes {
		if err := w.watchInboxLocked(inbox); err != nil {
			_ = fsw.Close()
			w.fsw = nil
			return err
		}
	}
	w.running = true
	w.logger.Debug("watching inboxes",
		zap.Strings("inboxes", w.inboxes),
		zap.Strings("extensions", w.cfg.Extensions),
		zap.Bool("recursive", w.cfg.Recursive))
	go w.loop(ctx, fsw)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !w.inInbox(path) {
		return
	}
	w.logger.Debug("watch event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename):
		w.cancel(path)
		if w.accepts(path) {
			w.call(w.cfg.OnRemove, path)
		}
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if ev.Has(fsnotify.Create) && w.cfg.Recursive {
				w.watchNewDir(path)
			}
			return
		}
		if w.accepts(path) {
			w.schedule(path)
		}
	}
}

// watchNewDir registers a directory created inside an inbox and ingests the
// files it already holds.
func (w *Watcher) watchNewDir(dir string) {
	w.mu.Lock()
	fsw := w.fsw
	inbox := w.inboxOfLocked(dir)
	w.mu.Unlock()
	if fsw == nil {
		return
	}
	var added []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := fsw.Add(path); err != nil {
				w.logger.Warn("watch directory", zap.String("path", path), zap.Error(err))
			} else {
				added = append(added, path)
			}
			return nil
		}
		if w.accepts(path) {
			w.schedule(path)
		}
		return nil
	})
	w.mu.Lock()
	if inbox != "" {
		w.watched[inbox] = append(w.watched[inbox], added...)
	}
	w.mu.Unlock()
}

func (w *Watcher) call(fn FileFunc, path string) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	ctx := w.ctx
	w.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := fn(ctx, path); err != nil {
		w.logger.Warn("watch callback failed", zap.String("path", path), zap.Error(err))
	}
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.call(w.cfg.OnChange, path)
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) accepts(path string) bool {
	return acceptFile(path, w.cfg.Extensions)
}

// acceptFile reports whether path names a survey file worth ingesting.
// Hidden files and spreadsheet lock files ("~$name.xlsx") are ignored.
func acceptFile(path string, extensions []string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~$") {
		return false
	}
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(base)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}

func (w *Watcher) inInbox(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.inboxOfLocked(path) != ""
}

func (w *Watcher) inboxOfLocked(path string) string {
	for _, inbox := range w.inboxes {
		if within(filepath.Clean(inbox), path) {
			return filepath.Clean(inbox)
		}
	}
	return ""
}

// within reports whether path is dir or lies beneath it.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (w *Watcher) watchInboxLocked(inbox string) error {
	inbox = filepath.Clean(inbox)
	if err := os.MkdirAll(inbox, 0o755); err != nil {
		return err
	}
	if !w.cfg.Recursive {
		if err := w.fsw.Add(inbox); err != nil {
			return err
		}
		w.watched[inbox] = []string{inbox}
		return nil
	}
	var dirs []string
	err := filepath.WalkDir(inbox, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return err
		}
		if err := w.fsw.Add(path); err != nil {
			return err
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil {
		return err
	}
	w.watched[inbox] = dirs
	return nil
}

// AddInbox starts watching dir. With ingestExisting, files already present are
// passed to OnChange in the background.
func (w *Watcher) AddInbox(dir string, ingestExisting bool) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	for _, inbox := range w.inboxes {
		if filepath.Clean(inbox) == abs {
			w.mu.Unlock()
			return nil
		}
	}
	if w.fsw != nil {
		if err := w.watchInboxLocked(abs); err != nil {
			w.mu.Unlock()
			return err
		}
	}
	w.inboxes = append(w.inboxes, abs)
	w.mu.Unlock()
	w.logger.Debug("inbox added", zap.String("path", abs), zap.Bool("ingest_existing", ingestExisting))
	if ingestExisting {
		go w.scan(abs)
	}
	return nil
}

// RemoveInbox stops watching dir. Surveys already ingested from it are kept.
func (w *Watcher) RemoveInbox(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, inbox := range w.inboxes {
		if filepath.Clean(inbox) != abs {
			continue
		}
		if w.fsw != nil {
			for _, p := range w.watched[abs] {
				_ = w.fsw.Remove(p)
			}
		}
		delete(w.watched, abs)
		w.inboxes = append(w.inboxes[:i], w.inboxes[i+1:]...)
		w.logger.Debug("inbox removed", zap.String("path", abs))
		return nil
	}
	return nil
}

// Inboxes returns the watched directories.
func (w *Watcher) Inboxes() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.inboxes...)
}

// IngestExisting passes every accepted file already in the inboxes to OnChange.
func (w *Watcher) IngestExisting() {
	for _, inbox := range w.Inboxes() {
		w.scan(inbox)
	}
}

func (w *Watcher) scan(root string) {
	recursive := w.cfg.Recursive
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && !recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if w.accepts(path) {
			w.call(w.cfg.OnChange, path)
		}
		return nil
	})
}

// Stop cancels pending events and releases the fsnotify watcher.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	_ = w.fsw.Close()
	w.fsw = nil
	w.running = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
