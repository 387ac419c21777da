package main

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework AppKit
#import <AppKit/AppKit.h>

// setDockPolicy flips the process activation policy. Accessory removes
// the Dock tile and Task Switcher entry; Regular brings them back.
// Safe to call only after the Cocoa run loop is running.
void setDockPolicy(int hidden) {
    if ([NSApp isRunning]) {
        [NSApp setActivationPolicy:(hidden
            ? NSApplicationActivationPolicyAccessory
            : NSApplicationActivationPolicyRegular)];
        if (!hidden) {
            [NSApp activateIgnoringOtherApps:YES];
        }
    }
}
*/
import "C"

import "log"

// HideFromDock removes the app's own Dock tile at runtime.
// No-op if called before the Cocoa run loop (e.g. in tests).
func HideFromDock() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("cgo_activation: HideFromDock skipped (no run loop): %v", r)
		}
	}()
	C.setDockPolicy(C.int(1))
}

// ShowInDock restores the app's own Dock tile.
func ShowInDock() {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("cgo_activation: ShowInDock skipped (no run loop): %v", r)
		}
	}()
	C.setDockPolicy(C.int(0))
}
