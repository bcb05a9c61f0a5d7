package api

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces bursts of filesystem events (editors write
// multiple times per save) into one reload.
const debounceWindow = 500 * time.Millisecond

// watchDataDir watches the data directory (and its note subdirectories) and
// triggers a debounced reload when anything changes. Returns a stop function.
func (s *Server) watchDataDir() (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	if err := watcher.Add(s.cfg.DataDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", s.cfg.DataDir, err)
	}
	for _, sub := range []string{"people", "snippets", "projects", "abbreviations"} {
		dir := filepath.Join(s.cfg.DataDir, sub)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			if err := watcher.Add(dir); err != nil {
				fmt.Fprintf(os.Stderr, "watching %s failed: %v\n", dir, err)
			}
		}
	}

	done := make(chan struct{})
	go func() {
		var timer *time.Timer
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounceWindow, func() {
					if _, err := s.reload(context.Background()); err != nil {
						fmt.Fprintf(os.Stderr, "reload after change failed: %v\n", err)
						return
					}
					fmt.Printf("data directory changed, store reloaded\n")
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				fmt.Fprintf(os.Stderr, "watcher error: %v\n", err)
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}
