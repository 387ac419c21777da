package main

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"sync/atomic"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// eventBuffer sizes the router's inbox. Gestures arrive at human speed;
// the buffer only absorbs a multi-file drop.
const eventBuffer = 16

// eventKind discriminates the gestures the UI hands to the router.
type eventKind int

const (
	fileOffered      eventKind = iota // something was dropped on the window
	restoreRequested                  // user clicked Restore on a row
	windowClosed                      // user closed the window or chose Quit
)

// uiEvent is one user gesture. path is empty for windowClosed.
type uiEvent struct {
	kind eventKind
	path string
}

// hotkeyStarter is the minimal interface the App needs from HotkeyService.
// Using an interface keeps real CGo goroutines out of unit tests.
type hotkeyStarter interface {
	Start(ctx context.Context, combo string, onTrigger func()) error
	Stop()
}

// App routes every UI gesture through a single channel consumed by one
// goroutine, so dock mutations, history writes and UI updates never
// interleave.
//
// ctx is guarded by mu. startupCh is closed once startup() fires so that
// ToggleWindow/Quit callers that arrive before Wails is ready can wait.
type App struct {
	mu        sync.RWMutex
	ctx       context.Context
	startupCh chan struct{}
	once      sync.Once

	registry  *Registry
	history   *HistoryService
	projector projector

	loginItems *LoginItemService
	hotkeys    hotkeyStarter // nil in unit tests; real HotkeyService in production
	hotkeyCtx  context.CancelFunc

	events      chan uiEvent
	done        chan struct{}
	windowShown atomic.Bool
	quitting    atomic.Bool
	quitFn      func() // tests only; nil means runtime.Quit
}

// NewApp wires an App around the real services. hotkeys is
// intentionally nil — main.go injects a real HotkeyService via
// SetHotkeyService() before calling wails.Run(), keeping CGo goroutines
// out of unit tests entirely.
func NewApp(registry *Registry, history *HistoryService) *App {
	svc, err := NewLoginItemService()
	if err != nil {
		log.Printf("warning: failed to create LoginItemService: %v", err)
	}
	a := &App{
		startupCh:  make(chan struct{}),
		registry:   registry,
		history:    history,
		projector:  wailsProjector{},
		loginItems: svc,
		events:     make(chan uiEvent, eventBuffer),
		done:       make(chan struct{}),
	}
	a.windowShown.Store(true)
	return a
}

// newAppWith wires an App from explicit collaborators (tests only).
// It never touches the Wails runtime: the projector is the caller's and
// quitFn replaces runtime.Quit.
func newAppWith(registry *Registry, history *HistoryService, p projector, quitFn func()) *App {
	a := &App{
		startupCh: make(chan struct{}),
		registry:  registry,
		history:   history,
		projector: p,
		events:    make(chan uiEvent, eventBuffer),
		done:      make(chan struct{}),
		quitFn:    quitFn,
	}
	a.windowShown.Store(true)
	return a
}

// SetHotkeyService injects the hotkey service (called by main.go before wails.Run).
func (a *App) SetHotkeyService(hs hotkeyStarter) {
	a.hotkeys = hs
}

// startup is called by Wails when the runtime is ready.
func (a *App) startup(ctx context.Context) {
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()
	a.once.Do(func() { close(a.startupCh) })

	a.adoptHistory(ctx)
	go a.route()

	// Every dropped path becomes a fileOffered event; the router decides
	// whether it is a bundle worth hiding.
	runtime.OnFileDrop(ctx, func(x, y int, paths []string) {
		for _, p := range paths {
			a.events <- uiEvent{kind: fileOffered, path: p}
		}
	})

	// Start global hotkey listener — only if a service has been injected.
	if a.hotkeys != nil {
		hkCtx, cancel := context.WithCancel(ctx)
		a.hotkeyCtx = cancel
		if err := a.hotkeys.Start(hkCtx, "", a.ToggleWindow); err != nil {
			if errors.Is(err, ErrHotkeyConflict) {
				log.Printf("hotkey: %s is already registered by another app — using the window only", FormatHotkey(defaultHotkeyCombo))
			} else {
				log.Printf("hotkey: failed to register: %v", err)
			}
		}
	}
}

// shutdown is called by Wails as the process exits.
func (a *App) shutdown(ctx context.Context) {
	if a.hotkeyCtx != nil {
		a.hotkeyCtx()
	}
	if a.hotkeys != nil {
		a.hotkeys.Stop()
	}
	close(a.done)
}

// adoptHistory promotes persisted paths into the registry without
// touching any Info.plist — those apps are already hidden. Entries the
// loader pruned are persisted back so the file matches reality.
func (a *App) adoptHistory(ctx context.Context) {
	paths, needsRewrite, err := a.history.Load()
	if err != nil {
		log.Printf("history: load failed: %v — starting with an empty list", err)
		return
	}
	for _, p := range paths {
		a.registry.Adopt(p)
	}
	if needsRewrite {
		if err := a.history.Save(a.registry.Snapshot()); err != nil {
			log.Printf("history: rewrite failed: %v", err)
		}
	}
	if n := a.registry.Len(); n > 0 {
		log.Printf("history: tracking %d hidden app(s)", n)
	}
	a.projector.Reset(ctx, a.registry.Snapshot())
}

// route is the single consumer of the event channel.
func (a *App) route() {
	for {
		select {
		case ev := <-a.events:
			a.handle(ev)
		case <-a.done:
			return
		}
	}
}

func (a *App) handle(ev uiEvent) {
	// windowClosed is terminal: gestures still queued behind it are
	// dropped, and a second close cannot fire quit twice.
	if a.quitting.Load() {
		return
	}
	switch ev.kind {
	case fileOffered:
		a.handleDrop(ev.path)
	case restoreRequested:
		a.handleRestore(ev.path)
	case windowClosed:
		a.handleQuit()
	}
}

func (a *App) handleDrop(path string) {
	err := a.registry.Admit(path)
	switch {
	case err == nil:
		a.persist()
		a.projector.AppAdded(a.ctxValue(), path)
		log.Printf("dock: hid %s", path)
	case errors.Is(err, ErrNotBundle):
		log.Printf("dock: ignoring drop %q: not an .app bundle", path)
	case errors.Is(err, ErrDuplicate):
		log.Printf("dock: %s is already hidden", path)
	default:
		log.Printf("dock: hide %s failed: %v", path, err)
	}
}

func (a *App) handleRestore(path string) {
	err := a.registry.Release(path)
	switch {
	case err == nil:
		a.persist()
		a.projector.Reset(a.ctxValue(), a.registry.Snapshot())
		log.Printf("dock: restored %s", path)
	case errors.Is(err, ErrNotManaged):
		log.Printf("dock: restore of unmanaged path %q ignored", path)
	default:
		log.Printf("dock: restore %s failed: %v", path, err)
	}
}

func (a *App) handleQuit() {
	a.quitting.Store(true)
	if a.quitFn != nil {
		a.quitFn()
		return
	}
	runtime.Quit(a.ctxValue())
}

// persist writes the current snapshot; a failure costs persistence
// across restarts, never the in-memory session.
func (a *App) persist() {
	if err := a.history.Save(a.registry.Snapshot()); err != nil {
		log.Printf("history: save failed: %v", err)
	}
}

// beforeClose intercepts the window close so it flows through the
// router like every other gesture. Once the router decides to quit,
// the second pass lets the close proceed.
func (a *App) beforeClose(ctx context.Context) bool {
	if a.quitting.Load() {
		return false
	}
	a.events <- uiEvent{kind: windowClosed}
	return true
}

// waitForStartup blocks until Wails has initialised (startup() has been called).
func (a *App) waitForStartup() context.Context {
	<-a.startupCh
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ctx
}

func (a *App) ctxValue() context.Context {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ctx
}

// ── bound methods (callable from the webview) ─────────────

// Restore asks the router to un-hide the given app. The row disappears
// when the apps:reset event lands.
func (a *App) Restore(path string) {
	a.events <- uiEvent{kind: restoreRequested, path: path}
}

// HiddenApps returns the currently managed paths, oldest first. The
// frontend calls this once on load to seed the list.
func (a *App) HiddenApps() []string {
	return a.registry.Snapshot()
}

// HotkeyLabel returns the display form of the global hotkey, e.g. "⌃⌥D".
func (a *App) HotkeyLabel() string {
	return FormatHotkey(defaultHotkeyCombo)
}

// ToggleWindow shows or hides the main window (systray, hotkey, menu).
func (a *App) ToggleWindow() {
	go func() {
		ctx := a.waitForStartup()
		if a.windowShown.Load() {
			runtime.WindowHide(ctx)
			a.windowShown.Store(false)
		} else {
			runtime.WindowShow(ctx)
			a.windowShown.Store(true)
		}
	}()
}

// Quit exits the application. Routed like a window close so the router
// finishes whatever it is doing first.
func (a *App) Quit() {
	go func() {
		a.waitForStartup()
		a.events <- uiEvent{kind: windowClosed}
	}()
}

// GetLaunchAtLogin reports whether the app is registered as a login item.
func (a *App) GetLaunchAtLogin() bool {
	if a.loginItems == nil {
		return false
	}
	return a.loginItems.IsEnabled()
}

// SetLaunchAtLogin enables or disables the launch-at-login login item.
func (a *App) SetLaunchAtLogin(enabled bool) error {
	if a.loginItems == nil {
		return nil
	}
	if enabled {
		execPath, err := os.Executable()
		if err != nil {
			return err
		}
		return a.loginItems.Enable(execPath)
	}
	return a.loginItems.Disable()
}
