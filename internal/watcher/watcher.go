// Package watcher turns directories into inboxes: documents dropped into them are analysed,
// documents removed from them are dropped from the corpus.
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

	"github.com/hyperjump/pagegrade/internal/config"
	"github.com/hyperjump/pagegrade/internal/models"
)

const defaultDebounce = 400 * time.Millisecond

// Handler receives inbox files. *pipeline.Analyzer satisfies it.
type Handler interface {
	AnalyzeFile(ctx context.Context, path string) (*models.AnalysisResult, error)
	RemoveFile(ctx context.Context, path string) error
}

// Inbox watches directories and hands matching files to a Handler.
type Inbox struct {
	dirs       []string
	extensions []string
	recursive  bool
	handler    Handler
	debounce   time.Duration
	logger     *zap.Logger

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	ctx      context.Context
	pending  map[string]*time.Timer
	stopped  bool
	inflight sync.WaitGroup
	loopDone chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures an Inbox.
type Option func(*Inbox)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(in *Inbox) {
		if l != nil {
			in.logger = l
		}
	}
}

// WithDebounce sets how long a file must be quiet before it is analysed.
func WithDebounce(d time.Duration) Option {
	return func(in *Inbox) {
		if d > 0 {
			in.debounce = d
		}
	}
}

// New creates an inbox over cfg.Directories. An empty extension list accepts every file.
func New(cfg config.WatchConfig, h Handler, opts ...Option) *Inbox {
	in := &Inbox{
		dirs:       append([]string(nil), cfg.Directories...),
		extensions: cfg.Extensions,
		recursive:  cfg.RecursiveOrDefault(),
		handler:    h,
		debounce:   defaultDebounce,
		logger:     zap.NewNop(),
		pending:    make(map[string]*time.Timer),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Dirs returns the watched inbox directories.
func (in *Inbox) Dirs() []string {
	return append([]string(nil), in.dirs...)
}

// Start creates missing inbox directories, registers them with fsnotify and processes events
// until ctx is cancelled or Stop is called.
func (in *Inbox) Start(ctx context.Context) error {
	in.mu.Lock()
	if in.fsw != nil {
		in.mu.Unlock()
		return nil
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		in.mu.Unlock()
		return err
	}
	in.fsw = fsw
	in.ctx = ctx
	in.stopped = false
	for _, dir := range in.dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			in.closeLocked()
			in.mu.Unlock()
			return err
		}
		if err := in.addTreeLocked(dir); err != nil {
			in.closeLocked()
			in.mu.Unlock()
			return err
		}
	}
	loopDone := make(chan struct{})
	in.loopDone = loopDone
	in.mu.Unlock()

	in.logger.Info("Inbox watching",
		zap.Strings("dirs", in.dirs),
		zap.Strings("extensions", in.extensions),
		zap.Bool("recursive", in.recursive))
	go func() {
		defer close(loopDone)
		in.loop(ctx, fsw)
	}()
	return nil
}

func (in *Inbox) addTreeLocked(dir string) error {
	if !in.recursive {
		return in.fsw.Add(dir)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return in.fsw.Add(path)
	})
}

func (in *Inbox) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			in.halt()
			return
		case <-in.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			in.handleEvent(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			in.logger.Warn("Inbox watcher error", zap.Error(err))
		}
	}
}

func (in *Inbox) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	in.logger.Debug("Inbox event", zap.String("op", ev.Op.String()), zap.String("path", path))
	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		info, err := os.Stat(path)
		if err != nil {
			return
		}
		if info.IsDir() {
			if ev.Has(fsnotify.Create) {
				in.handleNewDir(path)
			}
			return
		}
		if Accepts(path, in.extensions) {
			in.schedule(path)
		}
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		in.cancel(path)
		if Accepts(path, in.extensions) {
			in.remove(path)
		}
	}
}

// handleNewDir watches a directory created inside an inbox and analyses what is already in it.
func (in *Inbox) handleNewDir(dir string) {
	in.mu.Lock()
	if in.fsw == nil {
		in.mu.Unlock()
		return
	}
	var err error
	if in.recursive {
		err = in.addTreeLocked(dir)
	}
	in.mu.Unlock()
	if err != nil {
		in.logger.Warn("Inbox failed to watch directory", zap.String("path", dir), zap.Error(err))
	}
	if in.recursive {
		in.syncDir(in.context(), dir)
	}
}

func (in *Inbox) schedule(path string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if t, ok := in.pending[path]; ok {
		t.Stop()
	}
	in.pending[path] = time.AfterFunc(in.debounce, func() {
		in.mu.Lock()
		delete(in.pending, path)
		if in.stopped {
			in.mu.Unlock()
			return
		}
		in.inflight.Add(1)
		ctx := in.ctx
		in.mu.Unlock()
		if ctx == nil {
			ctx = context.Background()
		}
		defer in.inflight.Done()
		in.analyze(ctx, path)
	})
}

func (in *Inbox) cancel(path string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if t, ok := in.pending[path]; ok {
		t.Stop()
		delete(in.pending, path)
	}
}

func (in *Inbox) context() context.Context {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.ctx == nil {
		return context.Background()
	}
	return in.ctx
}

func (in *Inbox) analyze(ctx context.Context, path string) {
	res, err := in.handler.AnalyzeFile(ctx, path)
	if err != nil {
		in.logger.Warn("Inbox analysis failed", zap.String("path", path), zap.Error(err))
		return
	}
	in.logger.Info("Inbox file analysed",
		zap.String("path", path),
		zap.String("quality", string(res.QualityLabel)),
		zap.Float64("score", res.CompositeScore),
		zap.Bool("thin", res.IsThin))
}

func (in *Inbox) remove(path string) {
	if err := in.handler.RemoveFile(in.context(), path); err != nil {
		in.logger.Warn("Inbox removal failed", zap.String("path", path), zap.Error(err))
		return
	}
	in.logger.Info("Inbox file removed", zap.String("path", path))
}

// Sync analyses every matching file already present in the inboxes and returns how many
// were handed to the analyzer.
func (in *Inbox) Sync(ctx context.Context) int {
	n := 0
	for _, dir := range in.dirs {
		n += in.syncDir(ctx, dir)
	}
	return n
}

func (in *Inbox) syncDir(ctx context.Context, dir string) int {
	n := 0
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && !in.recursive {
				return filepath.SkipDir
			}
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if Accepts(path, in.extensions) {
			in.analyze(ctx, path)
			n++
		}
		return nil
	})
	return n
}

// Stop stops watching, cancels pending analyses and waits for running ones to finish.
func (in *Inbox) Stop() {
	in.halt()
	in.inflight.Wait()
	in.mu.Lock()
	loopDone := in.loopDone
	in.mu.Unlock()
	if loopDone != nil {
		<-loopDone
	}
}

func (in *Inbox) halt() {
	in.mu.Lock()
	in.stopped = true
	in.closeLocked()
	in.mu.Unlock()
	in.stopOnce.Do(func() { close(in.done) })
}

func (in *Inbox) closeLocked() {
	for path, t := range in.pending {
		t.Stop()
		delete(in.pending, path)
	}
	if in.fsw != nil {
		_ = in.fsw.Close()
		in.fsw = nil
	}
}

// Accepts reports whether path has one of extensions, compared case-insensitively with or
// without the leading dot. An empty list accepts everything.
func Accepts(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}
