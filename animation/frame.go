package animation

import (
	"fmt"
	"image"
	"sync"
	"time"
)

// DecodeFunc produces the pixel payload of a frame.
type DecodeFunc func() (image.Image, error)

// Frame is a single image plus how long it stays on screen. The image is
// decoded on first use and never changes afterwards.
type Frame struct {
	Path     string
	Duration time.Duration
	Index    int

	decode DecodeFunc
	once   sync.Once
	img    image.Image
	err    error
}

// NewFrame creates a frame for path. Negative durations are treated as zero.
func NewFrame(path string, durationMs, index int, decode DecodeFunc) *Frame {
	if durationMs < 0 {
		durationMs = 0
	}
	return &Frame{
		Path:     path,
		Duration: time.Duration(durationMs) * time.Millisecond,
		Index:    index,
		decode:   decode,
	}
}

// NewImageFrame wraps an already decoded image.
func NewImageFrame(path string, durationMs, index int, img image.Image) *Frame {
	return NewFrame(path, durationMs, index, func() (image.Image, error) { return img, nil })
}

// Image returns the decoded image, decoding it on the first call.
func (f *Frame) Image() (image.Image, error) {
	if f == nil {
		return nil, fmt.Errorf("animation: nil frame")
	}
	f.once.Do(func() {
		if f.decode == nil {
			f.err = fmt.Errorf("animation: frame %s has no decoder", f.Path)
			return
		}
		f.img, f.err = f.decode()
		if f.err != nil {
			f.err = fmt.Errorf("animation: decode %s: %w", f.Path, f.err)
		}
	})
	return f.img, f.err
}

// DurationMs returns the display time in whole milliseconds.
func (f *Frame) DurationMs() int {
	if f == nil {
		return 0
	}
	return int(f.Duration / time.Millisecond)
}
