package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotBundle is returned when an offered path does not name an .app bundle.
var ErrNotBundle = errors.New("registry: not an .app bundle")

// ErrDuplicate is returned when the offered bundle is already managed.
var ErrDuplicate = errors.New("registry: app already hidden")

// ErrNotManaged is returned when a restore targets a bundle that isn't managed.
var ErrNotManaged = errors.New("registry: app not managed")

// bundleExt is the only file extension the registry admits, compared
// case-insensitively so "Foo.APP" drops work the same as "Foo.app".
const bundleExt = ".app"

// isAppBundle reports whether path names an application bundle by extension.
// No deeper validation is done — existence is the persistence layer's concern
// and bundle integrity is the Finder's.
func isAppBundle(path string) bool {
	return strings.EqualFold(filepath.Ext(path), bundleExt)
}

// ManagedApp is one hidden application tracked by the registry.
// Path is the identity key: two entries are the same app iff their paths
// are byte-equal (no symlink or inode resolution).
type ManagedApp struct {
	Path string `json:"path"`
}

// dockSetter abstracts the Info.plist mutation so registry tests never
// touch real bundles.
type dockSetter interface {
	SetHidden(bundlePath string, hidden bool) error
}

// Registry is the ordered set of currently hidden apps and the single
// source of truth for what Dock Dodger manages. Entries are unique by
// path and keep insertion order. An entry is present iff its last
// hide succeeded and no later restore has; to keep that true, the dock
// mutation runs under the registry lock, so a half-applied operation can
// never be observed.
type Registry struct {
	mu   sync.RWMutex
	dock dockSetter
	apps []ManagedApp
}

// NewRegistry creates an empty registry that hides/restores apps through dock.
func NewRegistry(dock dockSetter) *Registry {
	return &Registry{dock: dock}
}

// Admit validates an offered path, hides its Dock icon, and starts managing
// it. Returns nil when the app was added, ErrNotBundle or ErrDuplicate when
// the path is rejected up front, or the wrapped mutation error when hiding
// failed — in which case the registry is unchanged.
//
// The duplicate check runs before any filesystem mutation, so re-dropping an
// already-hidden bundle never rewrites its Info.plist.
func (r *Registry) Admit(path string) error {
	if !isAppBundle(path) {
		return ErrNotBundle
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(path) >= 0 {
		return ErrDuplicate
	}
	if err := r.dock.SetHidden(path, true); err != nil {
		return fmt.Errorf("hide dock icon: %w", err)
	}
	r.apps = append(r.apps, ManagedApp{Path: path})
	return nil
}

// Release restores a managed app's Dock icon and stops managing it. Returns
// nil when the app was removed, ErrNotManaged when the path is unknown, or
// the wrapped mutation error when restoring failed — the entry then stays
// managed so the user can retry.
func (r *Registry) Release(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(path)
	if i < 0 {
		return ErrNotManaged
	}
	if err := r.dock.SetHidden(path, false); err != nil {
		return fmt.Errorf("restore dock icon: %w", err)
	}
	r.apps = append(r.apps[:i], r.apps[i+1:]...)
	return nil
}

// Adopt appends an already-hidden app without touching its Info.plist.
// Used only when promoting revalidated history entries at startup — those
// bundles were hidden by a previous run. Reports whether the entry was added
// (false on duplicate).
func (r *Registry) Adopt(path string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(path) >= 0 {
		return false
	}
	r.apps = append(r.apps, ManagedApp{Path: path})
	return true
}

// Snapshot returns the managed paths in insertion order. The slice is a
// copy; callers may keep it.
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.apps))
	for i, app := range r.apps {
		out[i] = app.Path
	}
	return out
}

// Len reports how many apps are currently managed.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.apps)
}

// indexOf returns the position of path, or -1. Callers hold r.mu.
func (r *Registry) indexOf(path string) int {
	for i, app := range r.apps {
		if app.Path == path {
			return i
		}
	}
	return -1
}
