package main

import (
	_ "embed"

	"github.com/getlantern/systray"
)

//go:embed assets/icon-template.png
var iconBytes []byte

// StartSystray launches the system-tray icon in a background goroutine.
// It must be called AFTER Wails startup() fires so the Cocoa run loop is
// already running — calling it earlier causes a deadlock.
func StartSystray(app *App) {
	go systray.Run(
		func() { onSystrayReady(app) },
		func() { /* onExit — nothing to clean up */ },
	)
}

func onSystrayReady(app *App) {
	systray.SetTemplateIcon(iconBytes, iconBytes)
	systray.SetTooltip("Dock Dodger — click to show")

	mToggle := systray.AddMenuItem("Show / Hide Window", "Toggle the Dock Dodger window")
	mDodgeSelf := systray.AddMenuItemCheckbox("Dodge My Own Icon", "Remove Dock Dodger's own Dock tile", false)
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit Dock Dodger", "Exit the application")

	go func() {
		for {
			select {
			case <-mToggle.ClickedCh:
				app.ToggleWindow()
			case <-mDodgeSelf.ClickedCh:
				// Activation policy, not LSUIElement: our own tile can
				// come and go without a relaunch.
				if mDodgeSelf.Checked() {
					mDodgeSelf.Uncheck()
					ShowInDock()
				} else {
					mDodgeSelf.Check()
					HideFromDock()
				}
			case <-mQuit.ClickedCh:
				systray.Quit()
				app.Quit()
				return
			}
		}
	}()
}
