package animation

import (
	"fmt"
	"sync"
)

// FrameCache maps an asset path to its loaded frame.
type FrameCache struct {
	mu     sync.RWMutex
	frames map[string]*Frame
}

// NewFrameCache creates an empty cache.
func NewFrameCache() *FrameCache {
	return &FrameCache{frames: make(map[string]*Frame)}
}

// Add registers a frame under its path. Adding a path twice is a programming
// error and is reported instead of overwriting the first frame.
func (c *FrameCache) Add(f *Frame) error {
	if f == nil || f.Path == "" {
		return fmt.Errorf("animation: cache add: frame without path")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.frames[f.Path]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateFrame, f.Path)
	}
	c.frames[f.Path] = f
	return nil
}

// Remove drops f if it is the frame stored under its path.
func (c *FrameCache) Remove(f *Frame) {
	if c == nil || f == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frames[f.Path] == f {
		delete(c.frames, f.Path)
	}
}

// Get returns the frame stored for path.
func (c *FrameCache) Get(path string) (*Frame, bool) {
	if c == nil || path == "" {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.frames[path]
	return f, ok
}

// Len returns the number of cached frames.
func (c *FrameCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.frames)
}

// Reset drops every cached frame.
func (c *FrameCache) Reset() {
	c.mu.Lock()
	c.frames = make(map[string]*Frame)
	c.mu.Unlock()
}
