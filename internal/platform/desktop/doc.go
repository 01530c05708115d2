// Package desktop provides the OS input backend using robotgo for synthetic
// input injection and screen capture, and gohook for the low-level input
// hook. Both require CGo; without it the package compiles as a no-op stub
// and platform.NewProvider reports ErrUnsupported.
package desktop
