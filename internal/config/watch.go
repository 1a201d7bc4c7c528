package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// Watch reports on-disk changes to the catalog files. The catalog is
// immutable for the life of the process, so a change means the running
// engine is out of date and the operator should restart; onChange
// receives the changed path. There is no hot reload.
//
// The returned stop function releases the watcher.
func Watch(paths []string, onChange func(path string)) (stop func() error, err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	for _, p := range paths {
		if err := watcher.Add(p); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watch %s: %w", p, err)
		}
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Rename) {
					onChange(event.Name)
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return watcher.Close, nil
}
