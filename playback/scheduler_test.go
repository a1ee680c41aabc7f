package playback

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/milk9111/vpet/animation"
)

type recordingSink struct {
	mu      sync.Mutex
	shown   []string
	cleared int
}

func (s *recordingSink) Display(f *animation.Frame) {
	s.mu.Lock()
	s.shown = append(s.shown, f.Path)
	s.mu.Unlock()
}

func (s *recordingSink) Clear() {
	s.mu.Lock()
	s.cleared++
	s.mu.Unlock()
}

func (s *recordingSink) snapshot() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.shown...)
}

func (s *recordingSink) count(prefix string) int {
	n := 0
	for _, p := range s.snapshot() {
		if strings.HasPrefix(p, prefix) {
			n++
		}
	}
	return n
}

// testClip builds a ready clip whose frame paths are "<name>/<i>".
func testClip(name string, frames, ms int) *animation.Clip {
	fs := make([]*animation.Frame, 0, frames)
	for i := range frames {
		fs = append(fs, animation.NewImageFrame(fmt.Sprintf("%s/%d", name, i), ms, i, nil))
	}
	return animation.NewReadyClip(name, fs...)
}

func newTestCatalog(t *testing.T, clips ...*animation.Clip) *animation.Catalog {
	t.Helper()
	c := animation.NewCatalog(nil, animation.CatalogOptions{})
	for _, clip := range clips {
		if err := c.AddReadyClip(clip); err != nil {
			t.Fatalf("add %s: %v", clip.Name, err)
		}
	}
	return c
}

func startScheduler(t *testing.T, sink Sink, catalog Resolver) *Scheduler {
	t.Helper()
	s := NewScheduler(sink, catalog, Options{
		IdleBackoff: 20 * time.Millisecond,
		Rand:        rand.New(rand.NewPCG(1, 2)),
	})
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestSchedulerConfigurationErrors(t *testing.T) {
	catalog := newTestCatalog(t, testClip("Default", 1, 0))

	idle := NewScheduler(&recordingSink{}, catalog, Options{})
	if err := idle.PlayAnimation("default", "", 0, false, nil); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("play before start: got %v", err)
	}

	cases := []struct {
		name    string
		sink    Sink
		catalog Resolver
		want    error
	}{
		{"no_sink", nil, catalog, ErrNilSink},
		{"no_catalog", &recordingSink{}, nil, ErrNoCatalog},
		{"ok", &recordingSink{}, catalog, nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := startScheduler(t, c.sink, c.catalog)
			if err := s.PlayAnimation("default", "", 0, false, nil); !errors.Is(err, c.want) {
				t.Fatalf("got %v, want %v", err, c.want)
			}
		})
	}

	s := startScheduler(t, &recordingSink{}, catalog)
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("second start: got %v", err)
	}
	if err := s.RegisterSink(nil); !errors.Is(err, ErrNilSink) {
		t.Fatalf("nil sink: got %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.PlayAnimation("default", "", 0, true, nil); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("play after close: got %v", err)
	}
}

func TestFramesRunBeforeCallback(t *testing.T) {
	sink := &recordingSink{}
	s := startScheduler(t, sink, newTestCatalog(t, testClip("Walk", 3, 5)))

	var atCallback atomic.Int32
	atCallback.Store(-1)
	err := s.PlayAnimation("walk", "", 1, false, func() {
		atCallback.Store(int32(len(sink.snapshot())))
	})
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	waitFor(t, "callback", func() bool { return atCallback.Load() >= 0 })
	if got := atCallback.Load(); got != 6 {
		t.Fatalf("callback ran after %d frames, want 6", got)
	}
}

func TestQueuedRequestWaitsForPrevious(t *testing.T) {
	sink := &recordingSink{}
	s := startScheduler(t, sink, newTestCatalog(t, testClip("Aaa", 4, 5), testClip("Bbb", 2, 5)))

	if err := s.PlayAnimation("aaa", "", 0, false, nil); err != nil {
		t.Fatalf("play a: %v", err)
	}
	if err := s.PlayAnimation("bbb", "", 0, false, nil); err != nil {
		t.Fatalf("play b: %v", err)
	}
	waitFor(t, "b frames", func() bool { return sink.count("Bbb/") == 2 })

	want := []string{"Aaa/0", "Aaa/1", "Aaa/2", "Aaa/3", "Bbb/0", "Bbb/1"}
	if got := sink.snapshot(); fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("display order = %v, want %v", got, want)
	}
}

func TestForcedRequestPreemptsBacklog(t *testing.T) {
	sink := &recordingSink{}
	s := startScheduler(t, sink, newTestCatalog(t, testClip("Old", 10, 50), testClip("New", 1, 0)))

	if err := s.PlayAnimation("old", "", 0, false, nil); err != nil {
		t.Fatalf("play old: %v", err)
	}
	waitFor(t, "first old frame", func() bool { return sink.count("Old/") > 0 })

	if err := s.PlayAnimation("new", "", 0, true, nil); err != nil {
		t.Fatalf("play new: %v", err)
	}
	mark := len(sink.snapshot())

	waitFor(t, "new frame", func() bool { return sink.count("New/") == 1 })
	time.Sleep(150 * time.Millisecond)

	for _, p := range sink.snapshot()[mark:] {
		if strings.HasPrefix(p, "Old/") {
			t.Fatalf("stale frame %s displayed after forced request returned", p)
		}
	}
	if s.Playing() != "New" {
		t.Fatalf("Playing() = %q, want New", s.Playing())
	}
}

func TestLoopTimesClamped(t *testing.T) {
	cases := []struct {
		name  string
		loops int
		want  int
	}{
		{"negative", -3, 1},
		{"zero", 0, 1},
		{"max", MaxLoopTimes, MaxLoopTimes + 1},
		{"over_max", 5000, MaxLoopTimes + 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			sink := &recordingSink{}
			s := startScheduler(t, sink, newTestCatalog(t, testClip("Tick", 1, 0)))

			done := make(chan struct{})
			if err := s.PlayAnimation("tick", "", c.loops, false, func() { close(done) }); err != nil {
				t.Fatalf("play: %v", err)
			}
			select {
			case <-done:
			case <-time.After(5 * time.Second):
				t.Fatalf("callback never ran")
			}
			if got := sink.count("Tick/"); got != c.want {
				t.Fatalf("displayed %d frames, want %d", got, c.want)
			}
		})
	}
}

func TestRepeatCurrentAnimation(t *testing.T) {
	sink := &recordingSink{}
	s := startScheduler(t, sink, newTestCatalog(t, testClip("Idle", 1, 0)))

	var passes atomic.Int32
	if err := s.PlayAnimation("idle", "", 0, true, func() { passes.Add(1) }); err != nil {
		t.Fatalf("play: %v", err)
	}
	if err := s.RepeatCurrentAnimation(2); err != nil {
		t.Fatalf("repeat: %v", err)
	}
	waitFor(t, "three passes", func() bool { return passes.Load() == 3 })
	time.Sleep(80 * time.Millisecond)

	if got := passes.Load(); got != 3 {
		t.Fatalf("callback ran %d times, want 3", got)
	}
	if got := sink.count("Idle/"); got != 3 {
		t.Fatalf("displayed %d frames, want 3", got)
	}
}

func TestUnboundedRepeatStopsOnForcedRequest(t *testing.T) {
	sink := &recordingSink{}
	s := startScheduler(t, sink, newTestCatalog(t, testClip("Idle", 1, 1), testClip("Wave", 1, 0)))

	if err := s.PlayAnimation("idle", "", 0, true, nil); err != nil {
		t.Fatalf("play: %v", err)
	}
	if err := s.RepeatCurrentAnimation(-1); err != nil {
		t.Fatalf("repeat: %v", err)
	}
	waitFor(t, "repeats", func() bool { return sink.count("Idle/") > 10 })

	if err := s.PlayAnimation("wave", "", 0, true, nil); err != nil {
		t.Fatalf("play wave: %v", err)
	}
	waitFor(t, "wave", func() bool { return sink.count("Wave/") == 1 })
	idle := sink.count("Idle/")
	time.Sleep(60 * time.Millisecond)
	if got := sink.count("Idle/"); got != idle {
		t.Fatalf("repeat kept running after forced request: %d -> %d", idle, got)
	}
}

func TestForcedRequestCancelsRepeatInFlight(t *testing.T) {
	sink := &recordingSink{}
	s := startScheduler(t, sink, newTestCatalog(t, testClip("Idle", 1, 0), testClip("Wave", 1, 0)))

	for i := range 200 {
		if err := s.PlayAnimation("idle", "", 0, true, nil); err != nil {
			t.Fatalf("play idle: %v", err)
		}
		if err := s.RepeatCurrentAnimation(-1); err != nil {
			t.Fatalf("repeat: %v", err)
		}
		time.Sleep(time.Millisecond)
		if err := s.PlayAnimation("wave", "", 0, true, nil); err != nil {
			t.Fatalf("play wave: %v", err)
		}
		mark := len(sink.snapshot())
		time.Sleep(5 * time.Millisecond)
		for _, p := range sink.snapshot()[mark:] {
			if p == "Idle/0" {
				t.Fatalf("iteration %d: idle replayed after the forced wave returned", i)
			}
		}
	}
}

func TestResolutionMissIsNoop(t *testing.T) {
	sink := &recordingSink{}
	s := startScheduler(t, sink, newTestCatalog(t, testClip("Walk_Happy", 1, 0)))

	var called atomic.Bool
	for _, force := range []bool{false, true} {
		if err := s.PlayAnimation("sleep", "ill", 0, force, func() { called.Store(true) }); err != nil {
			t.Fatalf("miss should not error: %v", err)
		}
	}
	time.Sleep(60 * time.Millisecond)
	if len(sink.snapshot()) != 0 || called.Load() {
		t.Fatalf("miss displayed %v, callback=%v", sink.snapshot(), called.Load())
	}
	if s.Exist("walk", "ill") || !s.Exist("walk", "happy") {
		t.Fatalf("Exist should delegate to the catalog")
	}
}

func TestCallbackPanicKeepsWorkerAlive(t *testing.T) {
	sink := &recordingSink{}
	s := startScheduler(t, sink, newTestCatalog(t, testClip("Jump", 1, 0)))

	if err := s.PlayAnimation("jump", "", 0, false, func() { panic("boom") }); err != nil {
		t.Fatalf("play: %v", err)
	}
	if err := s.PlayAnimation("jump", "", 0, false, nil); err != nil {
		t.Fatalf("play: %v", err)
	}
	waitFor(t, "second jump", func() bool { return sink.count("Jump/") == 2 })
}

func TestRegisterSinkAppliesToLaterRequests(t *testing.T) {
	first, second := &recordingSink{}, &recordingSink{}
	s := startScheduler(t, first, newTestCatalog(t, testClip("Walk", 2, 0)))

	if err := s.PlayAnimation("walk", "", 0, true, nil); err != nil {
		t.Fatalf("play: %v", err)
	}
	if err := s.RegisterSink(second); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := s.PlayAnimation("walk", "", 0, false, nil); err != nil {
		t.Fatalf("play: %v", err)
	}
	waitFor(t, "second sink", func() bool { return second.count("Walk/") == 2 })
	if got := first.count("Walk/"); got != 2 {
		t.Fatalf("first sink saw %d frames, want 2", got)
	}
}

func TestCloseClearsSink(t *testing.T) {
	sink := &recordingSink{}
	s := startScheduler(t, sink, newTestCatalog(t, testClip("Sleep", 5, 30)))

	if err := s.PlayAnimation("sleep", "", 3, false, nil); err != nil {
		t.Fatalf("play: %v", err)
	}
	waitFor(t, "first frame", func() bool { return sink.count("Sleep/") > 0 })
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	shown := len(sink.snapshot())
	time.Sleep(60 * time.Millisecond)

	sink.mu.Lock()
	cleared := sink.cleared
	sink.mu.Unlock()
	if cleared != 1 {
		t.Fatalf("sink cleared %d times, want 1", cleared)
	}
	if got := len(sink.snapshot()); got != shown {
		t.Fatalf("frames displayed after close: %d -> %d", shown, got)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestStopsWhenContextCancelled(t *testing.T) {
	sink := &recordingSink{}
	s := NewScheduler(sink, newTestCatalog(t, testClip("Walk", 1, 0)), Options{})
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	cancel()
	waitFor(t, "shutdown", func() bool {
		return errors.Is(s.PlayAnimation("walk", "", 0, false, nil), ErrNotRunning)
	})
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
