package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

const historyFileName = ".dock_dodger_apps.json"

// ErrNoHome reports that the user's home directory could not be
// resolved, so there is nowhere to keep the hidden-apps file.
var ErrNoHome = errors.New("history: home directory unknown")

// HistoryService persists the list of hidden app paths as a JSON array
// at ~/.dock_dodger_apps.json so the list survives restarts.
type HistoryService struct {
	path string // empty when the home directory is unknown
}

// NewHistoryService creates a HistoryService pointing to the standard
// history path.
func NewHistoryService() *HistoryService {
	home, err := os.UserHomeDir()
	if err != nil {
		return &HistoryService{}
	}
	return &HistoryService{path: filepath.Join(home, historyFileName)}
}

// newHistoryServiceAt creates a HistoryService with a custom path (tests only).
func newHistoryServiceAt(path string) *HistoryService {
	return &HistoryService{path: path}
}

// Save writes the paths to disk atomically (write to temp, then rename).
func (h *HistoryService) Save(paths []string) error {
	if h.path == "" {
		return ErrNoHome
	}
	if paths == nil {
		paths = []string{} // marshal as [] rather than null
	}
	data, err := json.MarshalIndent(paths, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	tmp := h.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return os.Rename(tmp, h.path)
}

// Load reads the persisted paths, dropping entries that no longer
// exist on disk or are not .app bundles. needsRewrite reports whether
// anything was dropped, so the caller can persist the pruned list.
//
// A missing file is a fresh install, not an error. A corrupt file is
// left in place for inspection and reported as an error.
func (h *HistoryService) Load() (paths []string, needsRewrite bool, err error) {
	if h.path == "" {
		return nil, false, ErrNoHome
	}
	data, err := os.ReadFile(h.path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read history: %w", err)
	}
	var stored []string
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, false, fmt.Errorf("parse history: %w", err)
	}
	for _, p := range stored {
		if _, statErr := os.Stat(p); statErr == nil && isAppBundle(p) {
			paths = append(paths, p)
		} else {
			log.Printf("history: dropping stale entry %s", p)
			needsRewrite = true
		}
	}
	return paths, needsRewrite, nil
}
