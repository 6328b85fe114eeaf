// Package watcher monitors a drop folder for new CSV files and feeds them
// into the staging area as they settle.
package watcher

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/shopstack/shopsync/internal/logging"
	"github.com/shopstack/shopsync/internal/staging"
)

// settleDelay is how long a file must stay quiet after its last write
// before it is considered fully copied into the drop folder.
const settleDelay = 500 * time.Millisecond

// FileEvent reports a CSV that settled in the drop folder and the staging
// result for it.
type FileEvent struct {
	Path   string
	Result staging.Result
	Err    error
}

// Watcher stages CSV files dropped into a directory.
type Watcher struct {
	fs     *fsnotify.Watcher
	stager *staging.Stager
	log    *logging.Logger
}

// New creates a drop-folder watcher feeding stager.
func New(stager *staging.Stager, log *logging.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{fs: fs, stager: stager, log: log}, nil
}

// Watch monitors dir until ctx is cancelled. Each CSV that settles is staged
// and reported on the returned channel; non-CSV files are ignored without an
// event.
func (w *Watcher) Watch(ctx context.Context, dir string) (<-chan FileEvent, error) {
	if err := w.fs.Add(dir); err != nil {
		return nil, err
	}

	out := make(chan FileEvent, 16)

	go func() {
		defer close(out)

		// Writes reset the file's settle timer; the file is staged only
		// after settleDelay of quiet so partial copies are never uploaded.
		pending := make(map[string]*time.Timer)
		settled := make(chan string, 16)

		for {
			select {
			case <-ctx.Done():
				for _, t := range pending {
					t.Stop()
				}
				return

			case path := <-settled:
				delete(pending, path)
				w.stage(ctx, path, out)

			case event, ok := <-w.fs.Events:
				if !ok {
					return
				}
				if !isCSV(event.Name) {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
					continue
				}
				path := event.Name
				if t, exists := pending[path]; exists {
					t.Reset(settleDelay)
					continue
				}
				pending[path] = time.AfterFunc(settleDelay, func() {
					select {
					case settled <- path:
					case <-ctx.Done():
					}
				})

			case err, ok := <-w.fs.Errors:
				if !ok {
					return
				}
				w.log.Errorf("Watcher error: %v", err)
			}
		}
	}()

	return out, nil
}

func (w *Watcher) stage(ctx context.Context, path string, out chan<- FileEvent) {
	cand, err := staging.FromPath(path)
	if err != nil {
		w.send(ctx, out, FileEvent{Path: path, Err: err})
		return
	}

	res := w.stager.Stage([]staging.Candidate{cand})
	w.send(ctx, out, FileEvent{Path: path, Result: res})
}

func (w *Watcher) send(ctx context.Context, out chan<- FileEvent, ev FileEvent) {
	select {
	case out <- ev:
	case <-ctx.Done():
	}
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}
