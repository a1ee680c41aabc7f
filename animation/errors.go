package animation

import "errors"

var (
	// ErrDuplicateFrame means the same asset path was registered twice.
	ErrDuplicateFrame = errors.New("animation: duplicate frame path")
	// ErrEmptyClip means a clip directory produced no frames.
	ErrEmptyClip = errors.New("animation: clip has no frames")
	// ErrCatalogClosed is returned when adding to a closed catalog.
	ErrCatalogClosed = errors.New("animation: catalog closed")
)
