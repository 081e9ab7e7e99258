// Package watch reports changes to a set of files using OS notifications.
package watch

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Op indicates a change operation.
type Op uint32

const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
	OpChmod
)

// Event describes a change to one of the watched files.
type Event struct {
	Path string
	Op   Op
	Time time.Time
}

// Watcher watches individual files. It subscribes to their directories,
// since editors often replace a file instead of writing it in place, and
// drops events for other files.
type Watcher struct {
	w     *fsnotify.Watcher
	files map[string]bool
	evC   chan Event
	erC   chan error

	done     chan struct{}
	exited   chan struct{}
	closeErr error
	once     sync.Once
}

// New starts watching paths.
func New(paths ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	fw := &Watcher{
		w:     w,
		files: make(map[string]bool, len(paths)),
		evC:   make(chan Event, 128),
		erC:   make(chan error, 1),

		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}

	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			w.Close()
			return nil, err
		}
		fw.files[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := w.Add(dir); err != nil {
			w.Close()
			return nil, err
		}
	}

	go fw.loop()
	return fw, nil
}

func (fw *Watcher) loop() {
	defer close(fw.exited)
	defer close(fw.evC)
	for {
		select {
		case <-fw.done:
			return
		case ev, ok := <-fw.w.Events:
			if !ok {
				return
			}
			abs, err := filepath.Abs(ev.Name)
			if err != nil || !fw.files[abs] {
				continue
			}
			var op Op
			if ev.Op&fsnotify.Create != 0 {
				op |= OpCreate
			}
			if ev.Op&fsnotify.Write != 0 {
				op |= OpWrite
			}
			if ev.Op&fsnotify.Remove != 0 {
				op |= OpRemove
			}
			if ev.Op&fsnotify.Rename != 0 {
				op |= OpRename
			}
			if ev.Op&fsnotify.Chmod != 0 {
				op |= OpChmod
			}
			select {
			case fw.evC <- Event{Path: abs, Op: op, Time: time.Now()}:
			case <-fw.done:
				return
			}
		case err, ok := <-fw.w.Errors:
			if !ok {
				return
			}
			select {
			case fw.erC <- err:
			default:
			}
		}
	}
}

func (fw *Watcher) Events() <-chan Event { return fw.evC }
func (fw *Watcher) Errors() <-chan error { return fw.erC }

// Close stops the watcher. It returns once no more events will be sent,
// even if nobody is reading them.
func (fw *Watcher) Close() error {
	fw.once.Do(func() {
		close(fw.done)
		fw.closeErr = fw.w.Close()
		<-fw.exited
	})
	return fw.closeErr
}

// Run calls fn with the files changed since the last call. Events closer
// than delay are merged into one call. Chmod-only events are ignored. Run
// returns when ctx is done, the watcher is closed, or the watcher fails.
func (fw *Watcher) Run(ctx context.Context, delay time.Duration, fn func(paths []string)) error {
	pending := make(map[string]bool)
	timer := time.NewTimer(delay)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-fw.erC:
			return err
		case ev, ok := <-fw.evC:
			if !ok {
				return nil
			}
			if ev.Op == OpChmod {
				continue
			}
			if len(pending) == 0 {
				timer.Reset(delay)
			}
			pending[ev.Path] = true
		case <-timer.C:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = make(map[string]bool)
			fn(paths)
		}
	}
}
