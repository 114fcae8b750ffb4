// Package watch reports changes in the directories shown by the panels.
package watch

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Change says that something inside Dir was created, removed, renamed or
// written. Dir itself may be gone.
type Change struct {
	Dir string
}

// Watcher coalesces fsnotify events per directory. Events arriving within
// the debounce window after the first one are delivered as a single Change
// per directory.
type Watcher struct {
	fs       *fsnotify.Watcher
	log      *slog.Logger
	debounce time.Duration
	changes  chan Change

	mu   sync.Mutex
	dirs map[string]bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func New(debounce time.Duration, log *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	w := &Watcher{
		fs:       fw,
		log:      log,
		debounce: debounce,
		changes:  make(chan Change, 16),
		dirs:     map[string]bool{},
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Changes delivers debounced changes. It is closed by Stop.
func (w *Watcher) Changes() <-chan Change { return w.changes }

// Watch replaces the watched set with dirs. Directories that cannot be
// watched are skipped and reported in the returned error; the others are
// still watched.
func (w *Watcher) Watch(dirs ...string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	want := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		want[filepath.Clean(d)] = true
	}
	for d := range w.dirs {
		if !want[d] {
			// the directory may already be gone, which removes the watch anyway
			_ = w.fs.Remove(d)
			delete(w.dirs, d)
		}
	}
	var errs []error
	for d := range want {
		if w.dirs[d] {
			continue
		}
		if err := w.fs.Add(d); err != nil {
			errs = append(errs, fmt.Errorf("watch %s: %w", d, err))
			continue
		}
		w.dirs[d] = true
		w.log.Debug("watching directory", "dir", d)
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// Stop ends the event loop and closes Changes.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		if err := w.fs.Close(); err != nil {
			w.log.Warn("closing fsnotify watcher", "err", err)
		}
		<-w.done
		close(w.changes)
	})
}

func (w *Watcher) owner(name string) string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dirs[name] {
		return name
	}
	if dir := filepath.Dir(name); w.dirs[dir] {
		return dir
	}
	return ""
}

func (w *Watcher) loop() {
	defer close(w.done)
	pending := map[string]bool{}
	var fire <-chan time.Time
	var timer *time.Timer

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op == fsnotify.Chmod {
				continue
			}
			dir := w.owner(ev.Name)
			if dir == "" {
				continue
			}
			pending[dir] = true
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			}

		case <-fire:
			for dir := range pending {
				select {
				case w.changes <- Change{Dir: dir}:
				default:
					w.log.Warn("change channel full, dropped change", "dir", dir)
				}
			}
			clear(pending)
			timer, fire = nil, nil

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("fsnotify error", "err", err)

		case <-w.stop:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}
