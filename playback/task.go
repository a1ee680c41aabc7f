package playback

import (
	"context"

	"github.com/google/uuid"
	"github.com/milk9111/vpet/animation"
)

// MaxLoopTimes caps the number of extra passes a single request may queue.
const MaxLoopTimes = 1000

// Request is one PlayAnimation call. The scheduler keeps the active request
// so it can be replayed by RepeatCurrentAnimation.
type Request struct {
	ID        uuid.UUID
	Name      string
	Mode      string
	LoopTimes int
	ForceExit bool
	Callback  func()
}

func newRequest(name, mode string, loopTimes int, forceExit bool, callback func()) *Request {
	return &Request{
		ID:        uuid.New(),
		Name:      name,
		Mode:      mode,
		LoopTimes: clampLoops(loopTimes),
		ForceExit: forceExit,
		Callback:  callback,
	}
}

func clampLoops(n int) int {
	return max(0, min(n, MaxLoopTimes))
}

type taskKind uint8

const (
	taskDisplayFrame taskKind = iota
	taskInvokeCallback
	taskSwitchClip
)

func (k taskKind) String() string {
	switch k {
	case taskDisplayFrame:
		return "display_frame"
	case taskInvokeCallback:
		return "invoke_callback"
	case taskSwitchClip:
		return "switch_clip"
	default:
		return "unknown"
	}
}

// task is a queue entry. Only the fields of its kind are set.
type task struct {
	kind taskKind

	// taskDisplayFrame
	frame *animation.Frame
	clip  string
	sink  Sink
	gen   *generation

	// taskInvokeCallback
	callback func()

	// taskSwitchClip
	req *Request
}

func displayTask(frame *animation.Frame, clip string, sink Sink, gen *generation) task {
	return task{kind: taskDisplayFrame, frame: frame, clip: clip, sink: sink, gen: gen}
}

func callbackTask(fn func()) task {
	return task{kind: taskInvokeCallback, callback: fn}
}

func switchTask(req *Request) task {
	return task{kind: taskSwitchClip, req: req}
}

// generation groups the frame tasks queued between two forced requests.
// Cancelling it abandons every frame still queued or sleeping under it.
type generation struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func newGeneration(parent context.Context) *generation {
	ctx, cancel := context.WithCancel(parent)
	return &generation{ctx: ctx, cancel: cancel}
}

func (g *generation) stale() bool {
	return g == nil || g.ctx.Err() != nil
}

// wakeReason says why the worker stopped waiting.
type wakeReason uint8

const (
	wakeTimeout wakeReason = iota
	wakeNewWork
	wakePreempted
	wakeShutdown
)

func (r wakeReason) String() string {
	switch r {
	case wakeTimeout:
		return "timeout"
	case wakeNewWork:
		return "new_work"
	case wakePreempted:
		return "preempted"
	case wakeShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}
