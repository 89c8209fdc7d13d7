package plan

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/bassista/go_gym/internal/logger"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const reloadDebounce = 200 * time.Millisecond

// Holder keeps the current plan and swaps it when the plan file changes.
type Holder struct {
	mu   sync.RWMutex
	plan *Plan
	log  *logrus.Entry
}

// NewHolder loads the plan from path, or uses the built-in plan when path is empty.
func NewHolder(path string) (*Holder, error) {
	h := &Holder{log: logger.WithComponent("plan")}
	if path == "" {
		h.plan = Default()
		return h, nil
	}
	p, err := Load(path)
	if err != nil {
		return nil, err
	}
	h.plan = p
	return h, nil
}

// Current returns the active plan. Callers must not modify it.
func (h *Holder) Current() *Plan {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.plan
}

// Reload reads path and swaps the plan in. The previous plan stays active on error.
func (h *Holder) Reload(path string) error {
	p, err := Load(path)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.plan = p
	h.mu.Unlock()
	h.log.Infof("plan reloaded from %s (%d days)", path, len(p.Days))
	return nil
}

// Watch reloads the plan whenever path changes. It watches the parent
// directory so temp+rename replacements are seen, filters events by basename
// and debounces bursts into one reload. The goroutine stops when ctx is done.
func (h *Holder) Watch(ctx context.Context, path string) error {
	if path == "" {
		return errors.New("plan file path is required")
	}
	dir, base := filepath.Dir(path), filepath.Base(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch dir: %w", err)
	}

	onChange := func() {
		if err := h.Reload(path); err != nil {
			h.log.Warnf("plan reload failed, keeping previous plan: %v", err)
		}
	}

	go func() {
		defer watcher.Close()

		var debounce *time.Timer
		defer func() {
			if debounce != nil {
				debounce.Stop()
			}
		}()
		schedule := func() {
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, onChange)
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != base {
					continue
				}
				// removal waits for the following create
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					schedule()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				h.log.Errorf("watcher error: %v", err)
			}
		}
	}()

	h.log.Debugf("watching plan file %s", path)
	return nil
}
