package animation

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Clip is a named, ordered run of frames. Clips are registered before their
// frames finish loading; callers must skip a clip until Ready reports true.
type Clip struct {
	Name string
	Dir  string

	lower  string
	frames []*Frame
	ready  atomic.Bool

	mu  sync.Mutex
	err error
}

// NewClip creates a clip that is not ready yet.
func NewClip(name, dir string) *Clip {
	return &Clip{Name: name, Dir: dir, lower: strings.ToLower(name)}
}

// NewReadyClip creates a clip that already holds its frames.
func NewReadyClip(name string, frames ...*Frame) *Clip {
	c := NewClip(name, "")
	c.complete(frames, nil)
	return c
}

// complete publishes the frame list. The atomic store orders the frames write
// before any Ready observer.
func (c *Clip) complete(frames []*Frame, err error) {
	if err == nil && len(frames) == 0 {
		err = ErrEmptyClip
	}
	if err != nil {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		return
	}
	c.frames = frames
	c.ready.Store(true)
}

// Ready reports whether the clip finished loading with at least one frame.
func (c *Clip) Ready() bool {
	return c != nil && c.ready.Load()
}

// Err returns the build error, if the clip failed to load.
func (c *Clip) Err() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Frames returns the playback-ordered frames, or nil while the clip loads.
func (c *Clip) Frames() []*Frame {
	if !c.Ready() {
		return nil
	}
	return c.frames
}

// Len returns the number of frames once ready.
func (c *Clip) Len() int {
	return len(c.Frames())
}

// Duration is the sum of all frame durations for one pass.
func (c *Clip) Duration() time.Duration {
	var total time.Duration
	for _, f := range c.Frames() {
		total += f.Duration
	}
	return total
}

// FamilyKey returns the family this clip belongs to.
func (c *Clip) FamilyKey() string {
	if c == nil {
		return ""
	}
	return FamilyKey(c.Name)
}

func (c *Clip) contains(substr string) bool {
	return strings.Contains(c.lower, substr)
}
