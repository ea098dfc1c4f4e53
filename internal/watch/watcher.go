// Package watch triggers folder audits when RPA bots drop new exports into
// the local source root.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"orderaudit/internal/domain"
	"orderaudit/internal/naming"
)

// Trigger starts an audit of one folder.
type Trigger func(ctx context.Context, folderID string, triggeredAt time.Time) error

// Watcher monitors <root>/<folder>/ directories for new order exports and
// triggers one audit per folder once writes settle for the debounce window.
type Watcher struct {
	root     string
	filter   string
	debounce time.Duration
	trigger  Trigger
	log      zerolog.Logger

	mu     sync.Mutex
	timers map[string]*pending
	wg     sync.WaitGroup
}

// New creates a Watcher.
func New(root, filter string, debounce time.Duration, trigger Trigger, log zerolog.Logger) *Watcher {
	return &Watcher{
		root:     filepath.Clean(root),
		filter:   filter,
		debounce: debounce,
		trigger:  trigger,
		log:      log.With().Str("component", "watch").Logger(),
		timers:   make(map[string]*pending),
	}
}

// Run watches until ctx is done. Pending triggers are dropped on shutdown.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.root); err != nil {
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.root, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			w.addFolder(fw, filepath.Join(w.root, e.Name()))
		}
	}
	w.log.Info().Str("root", w.root).Dur("debounce", w.debounce).Msg("watching for exports")

	defer w.stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case evt, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, fw, evt)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) addFolder(fw *fsnotify.Watcher, dir string) {
	if err := fw.Add(dir); err != nil {
		w.log.Warn().Err(err).Str("dir", dir).Msg("cannot watch folder")
	}
}

func (w *Watcher) handle(ctx context.Context, fw *fsnotify.Watcher, evt fsnotify.Event) {
	if !evt.Has(fsnotify.Create) && !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Rename) {
		return
	}
	parent := filepath.Dir(evt.Name)

	if parent == w.root {
		if evt.Has(fsnotify.Create) {
			if info, err := os.Stat(evt.Name); err == nil && info.IsDir() {
				w.addFolder(fw, evt.Name)
			}
		}
		return
	}
	if filepath.Dir(parent) != w.root || !naming.IsOrderExport(filepath.Base(evt.Name), w.filter) {
		return
	}
	w.schedule(ctx, filepath.Base(parent))
}

type pending struct {
	timer *time.Timer
}

// schedule restarts the folder's debounce timer. A timer that already
// expired keeps its callback; a fresh one replaces it.
func (w *Watcher) schedule(ctx context.Context, folderID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p, ok := w.timers[folderID]; ok && p.timer.Stop() {
		p.timer.Reset(w.debounce)
		return
	}
	p := &pending{}
	w.wg.Add(1)
	p.timer = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.timers[folderID] == p {
			delete(w.timers, folderID)
		}
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.fire(ctx, folderID)
	})
	w.timers[folderID] = p
}

func (w *Watcher) fire(ctx context.Context, folderID string) {
	log := w.log.With().Str("folder_id", folderID).Logger()
	log.Info().Msg("exports settled, triggering audit")
	err := w.trigger(ctx, folderID, time.Now().UTC())
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrDuplicateRun), errors.Is(err, domain.ErrEmptyRun):
		log.Info().Err(err).Msg("audit skipped")
	default:
		log.Error().Err(err).Msg("triggered audit failed")
	}
}

func (w *Watcher) stop() {
	w.mu.Lock()
	for id, p := range w.timers {
		if p.timer.Stop() {
			w.wg.Done()
		}
		delete(w.timers, id)
	}
	w.mu.Unlock()
	w.wg.Wait()
}
