package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/dpshade/pocket-forms/internal/logging"
	"github.com/dpshade/pocket-forms/internal/models"
	"github.com/dpshade/pocket-forms/internal/parser"
	"github.com/dpshade/pocket-forms/internal/state"
	"github.com/dpshade/pocket-forms/internal/storage"
)

// Reload replaces the in-memory templates with the stored ones. It reports
// whether anything changed. The active tab and form values survive where
// they are still valid.
func (s *Service) Reload() (bool, error) {
	templates, err := s.store.Load()
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	if sameTemplates(templates, s.state.Templates) {
		s.mu.Unlock()
		return false, nil
	}

	next := state.New(templates)
	if s.state.ActiveTab < len(next.Templates) {
		next.ActiveTab = s.state.ActiveTab
	}
	next.ConfigExpanded = s.state.ConfigExpanded
	next.SegmentsExpanded = s.state.SegmentsExpanded
	next.Values = parser.ReconcileValues(state.ActiveFields(next), s.state.Values)
	s.state = next
	onReload := s.onReload
	s.mu.Unlock()

	logging.Info("templates reloaded from store", zap.Int("count", len(templates)))
	if onReload != nil {
		onReload()
	}
	return true, nil
}

// sameTemplates compares the stored encodings, so formatting of embedded
// JSON documents does not count as a change
func sameTemplates(a, b []models.Template) bool {
	left, err := json.Marshal(a)
	if err != nil {
		return false
	}
	right, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(left, right)
}

// OnReload registers fn to run after an external change has been loaded
func (s *Service) OnReload(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReload = fn
}

// Watch reloads templates whenever another process writes the store
func (s *Service) Watch(ctx context.Context) error {
	pather, ok := s.store.KV().(interface{ Path() string })
	if !ok {
		return fmt.Errorf("store backend does not expose a file path")
	}

	w, err := storage.NewWatcher(pather.Path(), storage.DefaultDebounce, func() {
		if _, err := s.Reload(); err != nil {
			logging.Warn("reload after store change failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	s.mu.Lock()
	previous := s.watcher
	s.watcher = w
	s.mu.Unlock()

	if previous != nil {
		previous.Stop()
	}
	return nil
}

// StopWatching stops the store watcher, if one is running
func (s *Service) StopWatching() {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	if w != nil {
		w.Stop()
	}
}

// Info summarizes the service for health reporting
type Info struct {
	Templates    int    `json:"templates"`
	Store        string `json:"store,omitempty"`
	Watching     bool   `json:"watching"`
	CacheEntries int    `json:"cacheEntries"`
	CacheHits    int    `json:"cacheHits"`
	CacheMisses  int    `json:"cacheMisses"`
}

// Info returns template, store and cache statistics
func (s *Service) Info() Info {
	s.mu.Lock()
	info := Info{
		Templates: len(s.state.Templates),
		Watching:  s.watcher != nil,
	}
	s.mu.Unlock()

	if pather, ok := s.store.KV().(interface{ Path() string }); ok {
		info.Store = pather.Path()
	}
	info.CacheHits, info.CacheMisses = s.cache.Stats()
	info.CacheEntries = s.cache.Len()
	return info
}
