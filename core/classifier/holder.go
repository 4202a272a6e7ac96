package classifier

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"GenreFM/logger"
)

// Holder publishes the current classifier. Each classifier stays immutable;
// a reload swaps the pointer so in-flight requests finish on the old model.
type Holder struct {
	current atomic.Pointer[Classifier]
	reloads atomic.Int64
}

// NewHolder starts with c.
func NewHolder(c *Classifier) *Holder {
	h := &Holder{}
	h.current.Store(c)
	return h
}

// Current returns the classifier to use for the next request.
func (h *Holder) Current() *Classifier {
	return h.current.Load()
}

// Reloads counts successful swaps since start.
func (h *Holder) Reloads() int64 {
	return h.reloads.Load()
}

// Swap replaces the current classifier.
func (h *Holder) Swap(c *Classifier) {
	h.current.Store(c)
	h.reloads.Add(1)
}

const reloadSettle = 200 * time.Millisecond

// Watch reloads the artifact at path whenever it changes, until ctx is done.
// An artifact that fails to load is logged and the previous model is kept.
// The parent directory is watched so that atomic renames are seen.
func (h *Holder) Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create model watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("resolve model path: %w", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	go func() {
		defer watcher.Close()
		h.watchLoop(ctx, watcher, abs)
	}()
	return nil
}

func (h *Holder) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string) {
	ticker := time.NewTicker(reloadSettle / 4)
	defer ticker.Stop()

	var changedAt time.Time
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				changedAt = time.Now()
			}

		case <-ticker.C:
			// wait until writes have settled before reloading
			if changedAt.IsZero() || time.Since(changedAt) < reloadSettle {
				continue
			}
			changedAt = time.Time{}
			h.reload(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("model watcher error", logger.ErrorField(err))
		}
	}
}

func (h *Holder) reload(path string) {
	c, err := Load(path)
	if err != nil {
		logger.Warn("model reload failed, keeping previous model",
			logger.String("path", path),
			logger.ErrorField(err))
		return
	}
	old := h.Current()
	h.Swap(c)
	fields := []zap.Field{logger.String("path", path), logger.String("version", c.Version())}
	if old != nil {
		fields = append(fields, logger.String("previous", old.Version()))
	}
	logger.Info("model reloaded", fields...)
}
