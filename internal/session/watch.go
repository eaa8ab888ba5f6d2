package session

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch emits the session summary every time a new state is committed.
// The channel is closed when ctx is done or the watcher fails.
// It only reads the canonical state file, never the write path.
func (s *Store) Watch(ctx context.Context, id string) (<-chan Summary, error) {
	if err := validID(id); err != nil {
		return nil, err
	}
	first, err := s.readSummary(id)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(s.Dir(id)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch session %s: %w", id, err)
	}

	out := make(chan Summary, 1)
	out <- first

	go func() {
		defer close(out)
		defer watcher.Close()

		last := first.UpdatedAt
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != stateFile {
					continue
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
					continue
				}

				sum, err := s.readSummary(id)
				if err != nil {
					s.logger.Debug("watch: state not readable yet", "id", id, "error", err)
					continue
				}
				if !sum.UpdatedAt.After(last) {
					continue
				}
				last = sum.UpdatedAt

				select {
				case out <- sum:
				case <-ctx.Done():
					return
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("watcher error", "id", id, "error", err)
			}
		}
	}()

	return out, nil
}
