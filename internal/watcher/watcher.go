// Package watcher notices edits to a workspace's build manifests so the
// classpath can be resolved again.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"jls/internal/slogutil"
)

// Manifests are the file names that trigger a change.
var Manifests = []string{
	"pom.xml",
	"build.gradle",
	"build.gradle.kt",
	"build.gradle.kts",
	"settings.gradle",
	"settings.gradle.kts",
}

// DefaultDebounce is used when Options.Debounce is not positive.
const DefaultDebounce = 500 * time.Millisecond

// Change reports that one or more manifests changed during a quiet period.
type Change struct {
	Paths []string
	Time  time.Time
}

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	Logger   *slog.Logger
}

// Watcher watches the top level of a workspace root. Every manifest event
// restarts a quiet-period timer; when it fires, the manifests touched since
// the last Change are delivered as one. Changes go to a channel of capacity
// one, and a change that finds it full is merged into the unread one.
type Watcher struct {
	root    string
	fs      *fsnotify.Watcher
	delay   time.Duration
	logger  *slog.Logger
	changes chan Change

	mu      sync.Mutex
	pending []string
	timer   *time.Timer
	stopped bool

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a watcher for root. Call Start to begin watching.
func New(root string, opts Options) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = slogutil.NewDiscardLogger()
	}
	return &Watcher{
		root:    root,
		fs:      fw,
		delay:   opts.Debounce,
		logger:  opts.Logger,
		changes: make(chan Change, 1),
		done:    make(chan struct{}),
	}, nil
}

// Changes returns the channel changes are delivered on.
func (w *Watcher) Changes() <-chan Change { return w.changes }

// Start adds the root directory and processes events until ctx ends or Stop
// is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.fs.Add(w.root); err != nil {
		return err
	}
	w.logger.Debug("Watching build manifests", "root", w.root)

	w.wg.Add(1)
	go w.processEvents(ctx)
	return nil
}

// Stop ends watching. Pending changes are discarded.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.fs.Close()
		w.wg.Wait()

		w.mu.Lock()
		w.stopped = true
		w.pending = nil
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
	})
}

// IsManifest reports whether path names a build manifest.
func IsManifest(path string) bool {
	return slices.Contains(Manifests, filepath.Base(path))
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !IsManifest(event.Name) || event.Op == fsnotify.Chmod {
				continue
			}
			w.logger.Debug("Build manifest event", "path", event.Name, "op", event.Op.String())
			w.record(event.Name)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", "error", err.Error())
		}
	}
}

// record adds path to the pending set and restarts the quiet period.
func (w *Watcher) record(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if !slices.Contains(w.pending, path) {
		w.pending = append(w.pending, path)
	}
	if w.timer == nil {
		w.timer = time.AfterFunc(w.delay, w.emit)
		return
	}
	w.timer.Reset(w.delay)
}

func (w *Watcher) emit() {
	w.mu.Lock()
	paths := w.pending
	w.pending = nil
	stopped := w.stopped
	w.mu.Unlock()
	if stopped || len(paths) == 0 {
		return
	}
	slices.Sort(paths)

	change := Change{Paths: paths, Time: time.Now()}
	select {
	case w.changes <- change:
	default:
		// The reader has not taken the previous change yet; merge into it.
		select {
		case prev := <-w.changes:
			for _, p := range prev.Paths {
				if !slices.Contains(change.Paths, p) {
					change.Paths = append(change.Paths, p)
				}
			}
			slices.Sort(change.Paths)
		default:
		}
		select {
		case w.changes <- change:
		default:
		}
	}
}
