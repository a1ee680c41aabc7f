package behavior

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

//go:embed scripts/*.tengo
var scriptsFS embed.FS

const (
	defaultStall = 30 * time.Second
	maxHops      = 8
)

const dispatchScript = `
if __phase == "enter" {
	onEnter(__engine, __state, __current_state)
} else if __phase == "done" {
	onDone(__engine, __state, __current_state)
} else if __phase == "mode" {
	onMode(__engine, __state, __current_state)
}
`

// Player is the playback surface a routine drives.
type Player interface {
	PlayAnimation(name, mode string, loopTimes int, forceExit bool, callback func()) error
	RepeatCurrentAnimation(times int) error
	Exist(name, mode string) bool
}

// Options configures a Routine.
type Options struct {
	// Script is tengo source defining onEnter, onDone and onMode. Nil uses
	// the embedded default routine.
	Script []byte
	Mode   string
	Logger *slog.Logger
	Rand   *rand.Rand
	// Stall restarts the routine when no clip finishes for this long.
	Stall time.Duration
}

// Routine is a scripted state machine that chains clips through playback
// callbacks. All script execution happens on the goroutine running Run.
type Routine struct {
	player Player
	log    *slog.Logger
	rng    *rand.Rand
	stall  time.Duration

	compiled  *tengo.Compiled
	stateData *tengo.Map
	initial   string
	current   string
	pending   string
	ticket    uint64
	curMode   string

	mode  atomic.Pointer[string]
	state atomic.Pointer[string]

	done  chan uint64
	modes chan string
}

// LoadScript reads a routine script from disk, or returns the embedded
// default when path is empty.
func LoadScript(path string) ([]byte, error) {
	if strings.TrimSpace(path) == "" {
		return scriptsFS.ReadFile("scripts/default.tengo")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("behavior: load script %s: %w", path, err)
	}
	return data, nil
}

// NewRoutine compiles the routine script. The routine does nothing until Run.
func NewRoutine(player Player, opts Options) (*Routine, error) {
	if player == nil {
		return nil, fmt.Errorf("behavior: nil player")
	}
	src := opts.Script
	if src == nil {
		var err error
		if src, err = LoadScript(""); err != nil {
			return nil, err
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	rng := opts.Rand
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	stall := opts.Stall
	if stall <= 0 {
		stall = defaultStall
	}

	script := tengo.NewScript([]byte(string(src) + "\n" + dispatchScript))
	_ = script.Add("__phase", "")
	_ = script.Add("__engine", map[string]any{})
	_ = script.Add("__state", map[string]any{})
	_ = script.Add("__current_state", "")
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("behavior: compile: %w", err)
	}

	r := &Routine{
		player:    player,
		log:       logger.With(slog.String("component", "routine")),
		rng:       rng,
		stall:     stall,
		compiled:  compiled,
		stateData: &tengo.Map{Value: map[string]tengo.Object{}},
		initial:   "idle",
		done:      make(chan uint64, 16),
		modes:     make(chan string, 1),
	}
	r.setMode(opts.Mode)

	// Resolve optional initial state from script global `initial_state`.
	noop := &tengo.ImmutableMap{Value: map[string]tengo.Object{}}
	if err := r.runPhase("noop", noop); err != nil {
		return nil, fmt.Errorf("behavior: init: %w", err)
	}
	if compiled.IsDefined("initial_state") {
		if s := strings.TrimSpace(objectAsString(compiled.Get("initial_state").Object())); s != "" {
			r.initial = s
		}
	}
	return r, nil
}

func (r *Routine) setMode(mode string) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	if mode == "" {
		mode = "normal"
	}
	r.curMode = mode
	r.mode.Store(&mode)
}

// Mode returns the current pet mode.
func (r *Routine) Mode() string {
	if p := r.mode.Load(); p != nil {
		return *p
	}
	return ""
}

// State returns the routine state being played.
func (r *Routine) State() string {
	if p := r.state.Load(); p != nil {
		return *p
	}
	return ""
}

// SetMode switches the pet mode. A pending switch not yet seen by Run is
// replaced.
func (r *Routine) SetMode(mode string) {
	for {
		select {
		case r.modes <- mode:
			return
		default:
		}
		select {
		case <-r.modes:
		default:
		}
	}
}

// Run drives the routine until ctx is done.
func (r *Routine) Run(ctx context.Context) error {
	r.enter(r.initial)

	stall := time.NewTimer(r.stall)
	defer stall.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ticket := <-r.done:
			if ticket != r.ticket {
				continue
			}
			r.dispatch("done")
		case mode := <-r.modes:
			r.setMode(mode)
			r.ticket++
			r.log.Info("mode changed", slog.String("mode", r.curMode))
			r.dispatch("mode")
		case <-stall.C:
			r.log.Warn("routine stalled, restarting", slog.String("state", r.current))
			r.ticket++
			r.enter(r.initial)
		}
		stall.Reset(r.stall)
	}
}

func (r *Routine) enter(state string) {
	r.setState(state)
	r.dispatch("enter")
}

func (r *Routine) setState(state string) {
	r.current = state
	s := state
	r.state.Store(&s)
}

// dispatch runs one phase and follows the transitions it requests.
func (r *Routine) dispatch(phase string) {
	for hop := 0; ; hop++ {
		if err := r.runPhase(phase, r.engine()); err != nil {
			r.log.Error("routine script failed",
				slog.String("phase", phase),
				slog.String("state", r.current),
				slog.Any("error", err),
			)
			r.pending = ""
			return
		}
		if r.pending == "" {
			return
		}
		if hop >= maxHops {
			r.log.Warn("routine transition limit reached", slog.String("state", r.current), slog.String("pending", r.pending))
			r.pending = ""
			return
		}
		r.log.Debug("routine transition", slog.String("from", r.current), slog.String("to", r.pending))
		r.setState(r.pending)
		r.pending = ""
		phase = "enter"
	}
}

func (r *Routine) runPhase(phase string, engine *tengo.ImmutableMap) error {
	if err := r.compiled.Set("__phase", phase); err != nil {
		return err
	}
	if err := r.compiled.Set("__engine", engine); err != nil {
		return err
	}
	if err := r.compiled.Set("__state", r.stateData); err != nil {
		return err
	}
	if err := r.compiled.Set("__current_state", r.current); err != nil {
		return err
	}
	return r.compiled.Run()
}

// callback returns a playback callback that reports completion for the
// current ticket. Callbacks from older tickets are ignored by Run.
func (r *Routine) callback() func() {
	r.ticket++
	ticket := r.ticket
	return func() {
		select {
		case r.done <- ticket:
		default:
			r.log.Warn("routine event dropped")
		}
	}
}

func (r *Routine) play(name string, loops int, force bool) bool {
	err := r.player.PlayAnimation(name, r.curMode, loops, force, r.callback())
	if err != nil {
		r.log.Warn("play failed", slog.String("name", name), slog.Any("error", err))
		return false
	}
	return true
}

// exist checks the current mode first, then the modes the resolver falls
// back to.
func (r *Routine) exist(name string) bool {
	for _, mode := range []string{r.curMode, "normal", "happy", "ill"} {
		if r.player.Exist(name, mode) {
			return true
		}
	}
	return false
}

func (r *Routine) engine() *tengo.ImmutableMap {
	values := map[string]tengo.Object{}

	values["transition"] = &tengo.UserFunction{Name: "transition", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 {
			return tengo.FalseValue, nil
		}
		name := strings.TrimSpace(objectAsString(args[0]))
		if name == "" {
			return tengo.FalseValue, nil
		}
		r.pending = name
		return tengo.TrueValue, nil
	}}

	playFn := func(fname string, force bool) *tengo.UserFunction {
		return &tengo.UserFunction{Name: fname, Value: func(args ...tengo.Object) (tengo.Object, error) {
			if len(args) < 1 {
				return tengo.FalseValue, nil
			}
			name := strings.TrimSpace(objectAsString(args[0]))
			if name == "" {
				return tengo.FalseValue, nil
			}
			loops := 0
			if len(args) > 1 {
				loops = objectAsInt(args[1])
			}
			return boolObject(r.play(name, loops, force)), nil
		}}
	}
	values["play"] = playFn("play", false)
	values["force"] = playFn("force", true)

	values["repeat"] = &tengo.UserFunction{Name: "repeat", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 {
			return tengo.FalseValue, nil
		}
		return boolObject(r.player.RepeatCurrentAnimation(objectAsInt(args[0])) == nil), nil
	}}

	values["exist"] = &tengo.UserFunction{Name: "exist", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 {
			return tengo.FalseValue, nil
		}
		return boolObject(r.exist(objectAsString(args[0]))), nil
	}}

	values["mode"] = &tengo.UserFunction{Name: "mode", Value: func(args ...tengo.Object) (tengo.Object, error) {
		return &tengo.String{Value: r.curMode}, nil
	}}

	values["rand"] = &tengo.UserFunction{Name: "rand", Value: func(args ...tengo.Object) (tengo.Object, error) {
		n := 0
		if len(args) > 0 {
			n = objectAsInt(args[0])
		}
		if n <= 0 {
			return &tengo.Int{Value: 0}, nil
		}
		return &tengo.Int{Value: int64(r.rng.IntN(n))}, nil
	}}

	values["graph"] = &tengo.UserFunction{Name: "graph", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) < 1 {
			return &tengo.String{}, nil
		}
		return &tengo.String{Value: GraphName(objectAsString(args[0]))}, nil
	}}

	values["log"] = &tengo.UserFunction{Name: "log", Value: func(args ...tengo.Object) (tengo.Object, error) {
		parts := make([]string, 0, len(args))
		for _, a := range args {
			parts = append(parts, objectAsString(a))
		}
		r.log.Info(strings.Join(parts, " "), slog.String("state", r.current))
		return tengo.UndefinedValue, nil
	}}

	return &tengo.ImmutableMap{Value: values}
}

func boolObject(v bool) tengo.Object {
	if v {
		return tengo.TrueValue
	}
	return tengo.FalseValue
}

func objectAsString(obj tengo.Object) string {
	if obj == nil {
		return ""
	}
	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	case *tengo.Undefined:
		return ""
	default:
		return strings.Trim(v.String(), "\"")
	}
}

func objectAsInt(obj tengo.Object) int {
	if v, ok := tengo.ToInt(obj); ok {
		return v
	}
	return 0
}
