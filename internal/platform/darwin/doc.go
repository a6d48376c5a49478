// Package darwin provides macOS platform support using CoreGraphics, AppKit
// and Accessibility APIs. All functionality requires cgo. On other systems,
// or when cgo is disabled, the package is empty and platform.NewProvider
// reports platform.ErrUnsupported.
package darwin
