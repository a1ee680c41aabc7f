package main

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/milk9111/vpet/animation"
	"github.com/milk9111/vpet/playback"
	"github.com/milk9111/vpet/render"
)

const playRefresh = 33 * time.Millisecond

type playOptions struct {
	Name   string
	Mode   string
	Loops  int
	Repeat int
}

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var opts playOptions

	cmd := &cobra.Command{
		Use:   "play <name>",
		Short: "Play a clip in the terminal (q or Esc to stop)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pc, err := ctx.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer pc.catalog.Close()

			opts.Name = args[0]
			if opts.Mode == "" {
				opts.Mode = pc.cfg.DefaultMode
			}

			screen, err := tcell.NewScreen()
			if err != nil {
				return fmt.Errorf("terminal: %w", err)
			}
			if err := screen.Init(); err != nil {
				return fmt.Errorf("terminal: %w", err)
			}
			defer screen.Fini()

			return playInTerminal(cmd.Context(), screen, pc, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Mode, "mode", "m", "", "Pet mode (defaults to the config default_mode)")
	cmd.Flags().IntVarP(&opts.Loops, "loops", "l", 0, "Extra loops per pass")
	cmd.Flags().IntVarP(&opts.Repeat, "repeat", "r", 0, "Extra passes; negative repeats until stopped")
	return cmd
}

// playInTerminal runs a scheduler against a terminal sink until every pass
// has finished, the user quits or ctx ends.
func playInTerminal(ctx context.Context, screen tcell.Screen, pc *petCatalog, opts playOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if pc.catalog.Resolve(opts.Name, opts.Mode, &animation.Variant{}, nil) == nil {
		return fmt.Errorf("no clip matches %q in mode %q", opts.Name, opts.Mode)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sink := render.NewTerminalSink(screen)
	sched := playback.NewScheduler(sink, pc.catalog, playback.Options{Logger: pc.logger})
	if err := sched.Start(runCtx); err != nil {
		return err
	}
	defer sched.Close()

	var passes atomic.Int64
	finished := make(chan struct{}, 1)
	want := int64(opts.Repeat) + 1
	onPass := func() {
		if n := passes.Add(1); opts.Repeat >= 0 && n >= want {
			select {
			case finished <- struct{}{}:
			default:
			}
		}
	}

	// Forced so the request is active at once and the repeat attaches to it.
	if err := sched.PlayAnimation(opts.Name, opts.Mode, opts.Loops, true, onPass); err != nil {
		return err
	}
	if opts.Repeat != 0 {
		if err := sched.RepeatCurrentAnimation(opts.Repeat); err != nil {
			return err
		}
	}

	quit := make(chan struct{})
	go func() {
		defer close(quit)
		for {
			switch ev := screen.PollEvent().(type) {
			case nil:
				return
			case *tcell.EventKey:
				if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q' {
					return
				}
			case *tcell.EventResize:
				screen.Sync()
			}
		}
	}()

	ticker := time.NewTicker(playRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-runCtx.Done():
			return runCtx.Err()
		case <-quit:
			return nil
		case <-finished:
			return sink.Draw()
		case <-ticker.C:
			if sink.Dirty() {
				if err := sink.Draw(); err != nil {
					return err
				}
			}
		}
	}
}
