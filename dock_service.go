package main

import (
	"fmt"
	"os"
	"path/filepath"

	"howett.net/plist"
)

// LaunchServices reads this key from a bundle's Info.plist; "1" turns
// the app into a UI-element (no Dock tile, no Cmd-Tab entry).
const uiElementKey = "LSUIElement"

// DockService rewrites an app bundle's Info.plist to toggle its Dock
// presence. The change takes effect the next time the app launches.
type DockService struct{}

func NewDockService() *DockService {
	return &DockService{}
}

// SetHidden sets LSUIElement to "1" (hidden) or "0" (visible) in
// <bundle>/Contents/Info.plist and rewrites the file as XML. The
// rewrite keeps every key and value but normalizes the document:
// keys come back in sorted order (a Go map cannot carry the on-disk
// order through the codec) and a binary plist comes back as XML.
//
// A plist whose root is not a dictionary has nowhere to carry the key;
// the file is left untouched and the call succeeds.
func (s *DockService) SetHidden(bundlePath string, hidden bool) error {
	plistPath := filepath.Join(bundlePath, "Contents", "Info.plist")

	data, err := os.ReadFile(plistPath)
	if err != nil {
		return fmt.Errorf("read Info.plist: %w", err)
	}

	var root interface{}
	if _, err := plist.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("parse Info.plist: %w", err)
	}

	dict, ok := root.(map[string]interface{})
	if !ok {
		return nil
	}
	flag := "0"
	if hidden {
		flag = "1"
	}
	dict[uiElementKey] = flag

	out, err := plist.MarshalIndent(dict, plist.XMLFormat, "\t")
	if err != nil {
		return fmt.Errorf("encode Info.plist: %w", err)
	}
	if err := os.WriteFile(plistPath, out, 0o644); err != nil {
		return fmt.Errorf("write Info.plist: %w", err)
	}
	return nil
}
