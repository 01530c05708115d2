//go:build cgo

package desktop

import "github.com/keyforge/keyforge/internal/platform"

func init() {
	platform.NewProviderFunc = func() (*platform.Provider, error) {
		return &platform.Provider{
			Injector:      NewInjector(),
			Hooker:        NewHooker(),
			Screenshotter: NewScreenshotter(),
		}, nil
	}
}
