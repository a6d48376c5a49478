//go:build darwin && cgo

package darwin

import "github.com/mj1618/desktop-switch/internal/platform"

func init() {
	platform.NewProviderFunc = func() (*platform.Provider, error) {
		windows := NewWindowSource()
		return &platform.Provider{
			ZSource:      windows,
			TitleSource:  windows,
			AppDirectory: windows,
			Permission:   NewPermissionGate(),
			Focuser:      NewFocuser(),
			EventTap:     NewEventTap(),
		}, nil
	}
}
