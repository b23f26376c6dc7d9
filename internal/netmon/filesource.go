package netmon

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// FileSource adapts a connectivity marker file into transition events.
// Platform agents (or an operator) write "online" or "offline" into the
// file; the source watches it with fsnotify and emits a bool per change.
// This keeps the monitor itself purely event-driven.
type FileSource struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *log.Logger
	events  chan bool
}

// NewFileSource watches the marker file at path. The parent directory must
// exist; the file itself may appear later.
func NewFileSource(path string, logger *log.Logger) (*FileSource, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[netmon] ", log.LstdFlags)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	// Watch the directory, not the file: editors and agents replace the
	// file on write, which would drop a direct watch.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	return &FileSource{
		path:    path,
		watcher: watcher,
		logger:  logger,
		events:  make(chan bool, 8),
	}, nil
}

// Events returns the transition channel consumed by Monitor.Run.
func (f *FileSource) Events() <-chan bool {
	return f.events
}

// Start reads the current marker state, emits it, then forwards every
// subsequent change until ctx is done.
func (f *FileSource) Start(ctx context.Context) {
	if online, ok := f.readState(); ok {
		f.events <- online
	}

	go func() {
		defer close(f.events)
		defer f.watcher.Close()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-f.watcher.Events:
				if !ok {
					return
				}
				if event.Name != f.path {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove) == 0 {
					continue
				}
				if online, ok := f.readState(); ok {
					select {
					case f.events <- online:
					case <-ctx.Done():
						return
					}
				}

			case err, ok := <-f.watcher.Errors:
				if !ok {
					return
				}
				f.logger.Printf("Watcher error: %v", err)
			}
		}
	}()
}

// readState interprets the marker file. A missing file means offline;
// anything other than "online" or "offline" is ignored.
func (f *FileSource) readState() (online, ok bool) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return false, true
	}
	if err != nil {
		f.logger.Printf("Failed to read %s: %v", f.path, err)
		return false, false
	}

	switch string(bytes.TrimSpace(data)) {
	case "online":
		return true, true
	case "offline":
		return false, true
	default:
		return false, false
	}
}
