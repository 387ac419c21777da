package main

import (
	"context"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// projector pushes registry changes to the webview. Using an interface
// keeps the Wails runtime out of unit tests.
type projector interface {
	// AppAdded announces one newly hidden app.
	AppAdded(ctx context.Context, path string)
	// Reset replaces the whole list, oldest first.
	Reset(ctx context.Context, paths []string)
}

// wailsProjector emits the events frontend/dist/index.html listens for.
type wailsProjector struct{}

func (wailsProjector) AppAdded(ctx context.Context, path string) {
	runtime.EventsEmit(ctx, "apps:added", path)
}

func (wailsProjector) Reset(ctx context.Context, paths []string) {
	runtime.EventsEmit(ctx, "apps:reset", paths)
}
