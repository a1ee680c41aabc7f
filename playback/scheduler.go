package playback

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/milk9111/vpet/animation"
	"golang.org/x/time/rate"
)

const (
	defaultIdleBackoff     = time.Second
	defaultMissLogInterval = 5 * time.Second
)

const (
	phaseNew int32 = iota
	phaseRunning
	phaseClosed
)

// Options tunes a Scheduler. The zero value is usable.
type Options struct {
	// IdleBackoff bounds how long the worker sleeps with nothing to do
	// before re-checking its queues.
	IdleBackoff time.Duration
	// MissLogInterval limits how often a resolution miss is logged.
	MissLogInterval time.Duration
	Logger          *slog.Logger
	// Rand drives variant selection. It is only used under the scheduler lock.
	Rand *rand.Rand
}

// state is everything guarded by Scheduler.mu.
type state struct {
	frames   []task
	commands []task

	active        *Request
	repeatEnabled bool
	repeatCount   int

	variant animation.Variant
	gen     *generation
	sink    Sink
	catalog Resolver
	rng     *rand.Rand
}

// Scheduler plays clips on a Sink from a single worker goroutine.
//
// Frame tasks always run before commands, and the active request is replayed
// only when both queues are empty. A forced request discards everything
// queued and cuts the current frame short.
type Scheduler struct {
	log     *slog.Logger
	idle    time.Duration
	missLog *rate.Limiter

	phase  atomic.Int32
	root   context.Context
	cancel context.CancelFunc
	done   chan struct{}
	wake   chan struct{}

	// displayMu is held by the worker across the staleness check and
	// Sink.Display so a forced request can wait out an in-flight display.
	displayMu sync.Mutex
	playing   atomic.Pointer[string]

	mu sync.Mutex
	st state
}

// NewScheduler creates a stopped scheduler. sink and catalog may be nil and
// supplied later through RegisterSink and SetCatalog.
func NewScheduler(sink Sink, catalog Resolver, opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	idle := opts.IdleBackoff
	if idle <= 0 {
		idle = defaultIdleBackoff
	}
	missEvery := opts.MissLogInterval
	if missEvery <= 0 {
		missEvery = defaultMissLogInterval
	}
	rng := opts.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Scheduler{
		log:     logger.With(slog.String("component", "scheduler")),
		idle:    idle,
		missLog: rate.NewLimiter(rate.Every(missEvery), 1),
		done:    make(chan struct{}),
		wake:    make(chan struct{}, 1),
		st: state{
			sink:    sink,
			catalog: catalog,
			rng:     rng,
		},
	}
}

// Start launches the worker. The scheduler stops when ctx is cancelled or
// Close is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase.Load() != phaseNew {
		return ErrAlreadyStarted
	}
	s.root, s.cancel = context.WithCancel(ctx)
	s.st.gen = newGeneration(s.root)
	s.phase.Store(phaseRunning)
	go s.run()
	return nil
}

// Close stops the worker and waits for it to clear the sink.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	prev := s.phase.Swap(phaseClosed)
	cancel := s.cancel
	s.mu.Unlock()
	if prev == phaseNew || cancel == nil {
		return nil
	}
	cancel()
	<-s.done
	return nil
}

// RegisterSink replaces the sink used by requests enqueued from now on.
func (s *Scheduler) RegisterSink(sink Sink) error {
	if sink == nil {
		return ErrNilSink
	}
	s.mu.Lock()
	s.st.sink = sink
	s.mu.Unlock()
	return nil
}

// SetCatalog swaps the catalog used to resolve later requests. Frames already
// queued keep playing.
func (s *Scheduler) SetCatalog(catalog Resolver) {
	s.mu.Lock()
	s.st.catalog = catalog
	s.mu.Unlock()
}

// Playing returns the name of the clip that owns the last displayed frame.
func (s *Scheduler) Playing() string {
	if p := s.playing.Load(); p != nil {
		return *p
	}
	return ""
}

// Exist reports whether the catalog holds a clip for exactly name and mode.
func (s *Scheduler) Exist(name, mode string) bool {
	s.mu.Lock()
	catalog := s.st.catalog
	s.mu.Unlock()
	return catalog != nil && catalog.Exist(name, mode)
}

// PlayAnimation queues a clip for name and mode, played loopTimes+1 times.
// loopTimes is clamped to [0, MaxLoopTimes]. With forceExit the switch
// happens before PlayAnimation returns: queued work is dropped and no frame
// from it is displayed afterwards. callback, if non-nil, runs on the worker
// once the clip's frames are done. A name that resolves to nothing is
// silently ignored.
func (s *Scheduler) PlayAnimation(name, mode string, loopTimes int, forceExit bool, callback func()) error {
	s.mu.Lock()
	if err := s.checkLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	req := newRequest(name, mode, loopTimes, forceExit, callback)
	if !forceExit {
		s.st.commands = append(s.st.commands, switchTask(req))
		s.mu.Unlock()
		s.signal()
		return nil
	}

	s.st.repeatEnabled = false
	s.st.repeatCount = 0
	s.st.active = req
	s.switchLocked(req, true)
	s.mu.Unlock()

	// Wait out a display that began before the generation was cancelled.
	s.displayMu.Lock()
	s.displayMu.Unlock()
	s.signal()
	return nil
}

// RepeatCurrentAnimation replays the active request times more times once the
// queues drain. A negative count repeats until the next forced request, and
// zero stops repeating.
func (s *Scheduler) RepeatCurrentAnimation(times int) error {
	s.mu.Lock()
	if err := s.checkLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.st.repeatCount = times
	s.st.repeatEnabled = times != 0
	s.mu.Unlock()
	s.signal()
	return nil
}

func (s *Scheduler) checkLocked() error {
	if s.phase.Load() != phaseRunning || s.root.Err() != nil {
		return ErrNotRunning
	}
	if s.st.sink == nil {
		return ErrNilSink
	}
	if s.st.catalog == nil {
		return ErrNoCatalog
	}
	return nil
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// switchLocked resolves req and queues its frames. s.mu must be held.
func (s *Scheduler) switchLocked(req *Request, force bool) {
	var clip *animation.Clip
	if s.st.catalog != nil {
		clip = s.st.catalog.Resolve(req.Name, req.Mode, &s.st.variant, s.st.rng.IntN)
	}
	if clip == nil {
		if s.missLog.Allow() {
			s.log.Debug("no clip for request",
				slog.String("request", req.ID.String()),
				slog.String("name", req.Name),
				slog.String("mode", req.Mode),
			)
		}
		return
	}

	if force {
		dropped := len(s.st.frames) + len(s.st.commands)
		s.st.frames = nil
		s.st.commands = nil
		s.st.gen.cancel()
		s.st.gen = newGeneration(s.root)
		if dropped > 0 {
			s.log.Debug("preempted queued work", slog.Int("dropped", dropped), slog.String("clip", clip.Name))
		}
	}

	frames := clip.Frames()
	for range req.LoopTimes + 1 {
		for _, f := range frames {
			s.st.frames = append(s.st.frames, displayTask(f, clip.Name, s.st.sink, s.st.gen))
		}
	}
	if req.Callback != nil {
		s.st.commands = append(s.st.commands, callbackTask(req.Callback))
	}
	s.log.Debug("clip queued",
		slog.String("request", req.ID.String()),
		slog.String("clip", clip.Name),
		slog.Int("frames", len(frames)*(req.LoopTimes+1)),
		slog.Bool("force", force),
	)
}

// next pops the next task: frames first, then one command, then a repeat of
// the active request. Switch commands and repeats are applied here, under the
// same lock that dequeued them, so a forced request can never slip between
// dequeuing a switch and queuing its frames.
func (s *Scheduler) next() (task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		if len(s.st.frames) > 0 {
			t := s.st.frames[0]
			s.st.frames[0] = task{}
			s.st.frames = s.st.frames[1:]
			return t, true
		}
		if len(s.st.commands) > 0 {
			t := s.st.commands[0]
			s.st.commands[0] = task{}
			s.st.commands = s.st.commands[1:]
			if t.kind != taskSwitchClip {
				return t, true
			}
			s.st.active = t.req
			s.st.repeatEnabled = false
			s.st.repeatCount = 0
			s.switchLocked(t.req, false)
			continue
		}
		if s.st.repeatEnabled && s.st.repeatCount != 0 && s.st.active != nil {
			if s.st.repeatCount > 0 {
				s.st.repeatCount--
				if s.st.repeatCount == 0 {
					s.st.repeatEnabled = false
				}
			}
			s.switchLocked(s.st.active, false)
			if len(s.st.frames) > 0 || len(s.st.commands) > 0 {
				continue
			}
			// A repeat that resolves to nothing waits out the idle backoff.
		}
		return task{}, false
	}
}

func (s *Scheduler) run() {
	defer close(s.done)
	defer s.shutdown()

	for {
		if s.root.Err() != nil {
			return
		}
		t, ok := s.next()
		if !ok {
			if reason := s.idleWait(); reason == wakeShutdown {
				return
			}
			continue
		}

		switch t.kind {
		case taskDisplayFrame:
			reason := s.display(t)
			if reason == wakeShutdown {
				return
			}
			if reason == wakePreempted {
				s.log.Debug("frame preempted", slog.String("clip", t.clip), slog.Int("frame", t.frame.Index))
			}
		case taskInvokeCallback:
			s.invoke(t.callback)
		default:
			s.log.Warn("unknown task", slog.String("kind", t.kind.String()))
		}
	}
}

// display shows one frame and sleeps for its duration.
func (s *Scheduler) display(t task) wakeReason {
	s.displayMu.Lock()
	if t.gen.stale() {
		s.displayMu.Unlock()
		return s.cancelReason()
	}
	t.sink.Display(t.frame)
	name := t.clip
	s.playing.Store(&name)
	s.displayMu.Unlock()

	return s.sleep(t.gen.ctx, t.frame.Duration)
}

func (s *Scheduler) sleep(gen context.Context, d time.Duration) wakeReason {
	if d <= 0 {
		if gen.Err() != nil {
			return s.cancelReason()
		}
		return wakeTimeout
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return wakeTimeout
	case <-gen.Done():
		return s.cancelReason()
	}
}

func (s *Scheduler) cancelReason() wakeReason {
	if s.root.Err() != nil {
		return wakeShutdown
	}
	return wakePreempted
}

func (s *Scheduler) idleWait() wakeReason {
	timer := time.NewTimer(s.idle)
	defer timer.Stop()
	select {
	case <-timer.C:
		return wakeTimeout
	case <-s.wake:
		return wakeNewWork
	case <-s.root.Done():
		return wakeShutdown
	}
}

func (s *Scheduler) invoke(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("playback callback panicked", slog.Any("error", fmt.Errorf("panic: %v", r)))
		}
	}()
	fn()
}

func (s *Scheduler) shutdown() {
	s.phase.Store(phaseClosed)

	s.mu.Lock()
	sink := s.st.sink
	s.st.frames = nil
	s.st.commands = nil
	s.st.active = nil
	s.st.repeatEnabled = false
	s.st.repeatCount = 0
	s.st.catalog = nil
	if s.st.gen != nil {
		s.st.gen.cancel()
	}
	s.mu.Unlock()

	s.displayMu.Lock()
	if sink != nil {
		sink.Clear()
	}
	s.displayMu.Unlock()
	s.log.Debug("scheduler stopped")
}
