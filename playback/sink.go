package playback

import "github.com/milk9111/vpet/animation"

// Sink is the surface that shows frames.
//
// Display is called from the scheduler's worker goroutine and must return
// quickly; hand the frame to the UI goroutine instead of drawing inline.
// Display must not call back into the Scheduler. Clear hides the current
// image and is called when the scheduler shuts down.
type Sink interface {
	Display(frame *animation.Frame)
	Clear()
}

// Resolver is the catalog view the scheduler needs.
type Resolver interface {
	Resolve(name, mode string, v *animation.Variant, intn func(int) int) *animation.Clip
	Exist(name, mode string) bool
}
