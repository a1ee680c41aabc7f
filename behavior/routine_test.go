package behavior

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"
)

type playCall struct {
	name  string
	mode  string
	loops int
	force bool
	cb    func()
}

type fakePlayer struct {
	mu      sync.Mutex
	exists  map[string]bool
	repeats []int
	calls   chan playCall
}

func newFakePlayer(exists ...string) *fakePlayer {
	p := &fakePlayer{exists: map[string]bool{}, calls: make(chan playCall, 64)}
	for _, e := range exists {
		p.exists[e] = true
	}
	return p
}

func (p *fakePlayer) PlayAnimation(name, mode string, loops int, force bool, cb func()) error {
	p.calls <- playCall{name: name, mode: mode, loops: loops, force: force, cb: cb}
	return nil
}

func (p *fakePlayer) RepeatCurrentAnimation(times int) error {
	p.mu.Lock()
	p.repeats = append(p.repeats, times)
	p.mu.Unlock()
	return nil
}

func (p *fakePlayer) Exist(name, mode string) bool {
	return p.exists[strings.ToLower(name)+"/"+mode]
}

func (p *fakePlayer) next(t *testing.T) playCall {
	t.Helper()
	select {
	case c := <-p.calls:
		return c
	case <-time.After(5 * time.Second):
		t.Fatalf("no play call")
		return playCall{}
	}
}

func (p *fakePlayer) none(t *testing.T) {
	t.Helper()
	select {
	case c := <-p.calls:
		t.Fatalf("unexpected play call %+v", c)
	case <-time.After(50 * time.Millisecond):
	}
}

const chainScript = `
initial_state := "walk"

onEnter := func(engine, state, current) {
	if current == "walk" {
		engine.play("walk", 2)
	} else if current == "nap" {
		engine.force("sleep_" + engine.mode(), 0)
		engine.repeat(2)
	}
}

onDone := func(engine, state, current) {
	if current == "walk" {
		engine.transition("nap")
	}
}

onMode := func(engine, state, current) {
	engine.transition("walk")
}
`

func runRoutine(t *testing.T, r *Routine) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = r.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func TestRoutineChainsThroughCallbacks(t *testing.T) {
	p := newFakePlayer()
	r, err := NewRoutine(p, Options{Script: []byte(chainScript), Mode: "Normal"})
	if err != nil {
		t.Fatalf("new routine: %v", err)
	}
	runRoutine(t, r)

	walk := p.next(t)
	if walk.name != "walk" || walk.mode != "normal" || walk.loops != 2 || walk.force {
		t.Fatalf("unexpected first call %+v", walk)
	}
	walk.cb()

	nap := p.next(t)
	if nap.name != "sleep_normal" || !nap.force {
		t.Fatalf("unexpected nap call %+v", nap)
	}
	waitState(t, r, "nap")
	p.mu.Lock()
	repeats := append([]int(nil), p.repeats...)
	p.mu.Unlock()
	if len(repeats) != 1 || repeats[0] != 2 {
		t.Fatalf("repeats = %v", repeats)
	}

	// A callback from an earlier clip must not advance the routine.
	walk.cb()
	p.none(t)

	r.SetMode("Happy")
	again := p.next(t)
	if again.name != "walk" || again.mode != "happy" {
		t.Fatalf("unexpected call after mode change %+v", again)
	}
	if r.Mode() != "happy" {
		t.Fatalf("Mode() = %q", r.Mode())
	}
}

func waitState(t *testing.T, r *Routine, want string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for r.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("state = %q, want %q", r.State(), want)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestRoutineTransitionLoopIsBounded(t *testing.T) {
	script := `
onEnter := func(engine, state, current) { engine.transition(current == "a" ? "b" : "a") }
onDone := func(engine, state, current) {}
onMode := func(engine, state, current) {}
`
	p := newFakePlayer()
	r, err := NewRoutine(p, Options{Script: []byte(script)})
	if err != nil {
		t.Fatalf("new routine: %v", err)
	}
	runRoutine(t, r)
	p.none(t)
}

func TestRoutineRestartsWhenStalled(t *testing.T) {
	p := newFakePlayer()
	r, err := NewRoutine(p, Options{Script: []byte(chainScript), Stall: 30 * time.Millisecond})
	if err != nil {
		t.Fatalf("new routine: %v", err)
	}
	runRoutine(t, r)

	first := p.next(t)
	second := p.next(t)
	if first.name != "walk" || second.name != "walk" {
		t.Fatalf("expected the stalled routine to restart, got %s then %s", first.name, second.name)
	}
}

func TestDefaultRoutineStarts(t *testing.T) {
	p := newFakePlayer("startup/normal", "default/normal")
	for _, chain := range []string{"touch_head", "touch_body", "sleep", "boring", "squat", "think"} {
		p.exists[chain+"_a_start/normal"] = true
	}
	r, err := NewRoutine(p, Options{Rand: rand.New(rand.NewPCG(3, 4))})
	if err != nil {
		t.Fatalf("new routine: %v", err)
	}
	runRoutine(t, r)

	startup := p.next(t)
	if startup.name != "startup" {
		t.Fatalf("expected startup clip, got %+v", startup)
	}
	startup.cb()
	idle := p.next(t)
	if idle.name != "default" && !strings.HasSuffix(idle.name, "_a_start") {
		t.Fatalf("unexpected idle call %+v", idle)
	}
}

func TestNewRoutineRejectsBadScript(t *testing.T) {
	if _, err := NewRoutine(newFakePlayer(), Options{Script: []byte("onEnter := func(")}); err == nil {
		t.Fatalf("expected compile error")
	}
	if _, err := NewRoutine(nil, Options{}); err == nil {
		t.Fatalf("expected nil player error")
	}
}

func TestGraphName(t *testing.T) {
	cases := map[string]string{
		"Touch_Head_A_Start": "touch_head_a",
		"Walk_Right_B_Loop":  "walk_right_b",
		"Sleep_C_End":        "sleep_c",
		"Default":            "default",
	}
	for in, want := range cases {
		if got := GraphName(in); got != want {
			t.Fatalf("GraphName(%q) = %q, want %q", in, got, want)
		}
	}
}
