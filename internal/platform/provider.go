package platform

import (
	"fmt"
	"runtime"
)

// Provider bundles all platform backends for the current OS.
type Provider struct {
	Injector      Injector
	Hooker        Hooker
	Screenshotter Screenshotter
}

// ErrUnsupported is returned when no platform backend is compiled in.
var ErrUnsupported = fmt.Errorf("keyforge has no input backend for %s/%s (build with CGO enabled)", runtime.GOOS, runtime.GOARCH)

// NewProviderFunc is set by platform-specific packages via init().
// See internal/platform/desktop for the robotgo-based registration.
var NewProviderFunc func() (*Provider, error)

// NewProvider returns a Provider for the current OS.
func NewProvider() (*Provider, error) {
	if NewProviderFunc == nil {
		return nil, ErrUnsupported
	}
	return NewProviderFunc()
}
