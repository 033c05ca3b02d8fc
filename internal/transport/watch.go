package transport

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// DeviceWatcher wakes up device discovery as soon as a candidate device
// node is created, instead of relying solely on the backoff poll loop.
// It watches the parent directories of the candidate paths; a
// directory that does not exist yet is skipped (virtio-serial device
// directories are created by the kernel once the port is attached, so the
// directory itself may not exist at process start).
type DeviceWatcher struct {
	watcher *fsnotify.Watcher
	// Created fires (best-effort, may drop events under load) whenever a
	// file is created in one of the watched directories.
	Created <-chan string
}

// NewDeviceWatcher sets up a watch on every distinct parent directory of
// candidates that currently exists.
func NewDeviceWatcher(candidates []string) (*DeviceWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	for _, c := range candidates {
		dir := filepath.Dir(c)
		if seen[dir] {
			continue
		}
		seen[dir] = true
		// Best-effort: a missing directory just means no watch for it;
		// discovery still proceeds through the backoff poll loop.
		_ = w.Add(dir)
	}

	created := make(chan string, 8)
	go func() {
		defer close(created)
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&fsnotify.Create != 0 {
					select {
					case created <- ev.Name:
					default:
					}
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return &DeviceWatcher{watcher: w, Created: created}, nil
}

// Close stops the watch.
func (d *DeviceWatcher) Close() error {
	return d.watcher.Close()
}
