package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/capitalize-ai/commerce-assistant/pkg/logger"
)

// DefaultDebounce collapses the burst of events an editor produces on save.
const DefaultDebounce = 300 * time.Millisecond

// Watcher reports tenants whose catalog files changed on disk.
type Watcher struct {
	dir      string
	debounce time.Duration
	fw       *fsnotify.Watcher
	log      *logger.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher watches dir and every tenant directory below it.
func NewWatcher(dir string, debounce time.Duration, log *logger.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = logger.Nop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to add directory to watcher: %w", err)
	}
	w := &Watcher{
		dir:      dir,
		debounce: debounce,
		fw:       fw,
		log:      log.Named("catalog-watcher"),
		pending:  make(map[string]*time.Timer),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("list catalog dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() && ValidTenantID(e.Name()) {
			if err := fw.Add(filepath.Join(dir, e.Name())); err != nil {
				w.log.Warn("cannot watch tenant directory", zap.String("tenant_id", e.Name()), zap.Error(err))
			}
		}
	}
	return w, nil
}

// Run delivers debounced change notifications to onChange until ctx is done.
// onChange runs on a timer goroutine.
func (w *Watcher) Run(ctx context.Context, onChange func(tenantID string)) error {
	defer w.stopPending()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			w.handle(event, onChange)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.log.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event, onChange func(string)) {
	rel, err := filepath.Rel(w.dir, event.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	tenantID := parts[0]
	if !ValidTenantID(tenantID) {
		return
	}

	if len(parts) == 1 {
		// A new tenant directory: watch it and pick up files copied in with it.
		if event.Op&fsnotify.Create == 0 {
			return
		}
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			if err := w.fw.Add(event.Name); err != nil {
				w.log.Warn("cannot watch tenant directory", zap.String("tenant_id", tenantID), zap.Error(err))
				return
			}
			if _, err := os.Stat(filepath.Join(event.Name, ProductsFile)); err == nil {
				w.schedule(tenantID, onChange)
			}
		}
		return
	}

	if len(parts) != 2 || (parts[1] != ProductsFile && parts[1] != BusinessFile) {
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}
	w.schedule(tenantID, onChange)
}

func (w *Watcher) schedule(tenantID string, onChange func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[tenantID]; ok {
		t.Stop()
	}
	w.pending[tenantID] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, tenantID)
		w.mu.Unlock()
		w.log.Info("catalog changed on disk", zap.String("tenant_id", tenantID))
		onChange(tenantID)
	})
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for id, t := range w.pending {
		t.Stop()
		delete(w.pending, id)
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fw.Close()
}
