package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestListCommand(t *testing.T) {
	cases := []struct {
		name    string
		args    []string
		want    []string
		notWant []string
	}{
		{
			name: "all_clips",
			args: []string{"list"},
			want: []string{"Default_Normal", "Touch_Head_A_Start_Happy", "ready"},
		},
		{
			name:    "filtered",
			args:    []string{"list", "sleep"},
			want:    []string{"Sleep_B_Loop_Ill"},
			notWant: []string{"Default_Normal"},
		},
		{
			name: "no_match",
			args: []string{"list", "dance"},
			want: []string{"No clips"},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			out, err := runCommand(t, c.args...)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			for _, w := range c.want {
				if !strings.Contains(out, w) {
					t.Fatalf("output missing %q:\n%s", w, out)
				}
			}
			for _, w := range c.notWant {
				if strings.Contains(out, w) {
					t.Fatalf("output should not contain %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestFamiliesCommand(t *testing.T) {
	out, err := runCommand(t, "families")
	if err != nil {
		t.Fatalf("families: %v", err)
	}
	if !strings.Contains(out, "default\n") {
		t.Fatalf("default family missing:\n%s", out)
	}
}

func TestResolveCommand(t *testing.T) {
	out, err := runCommand(t, "resolve", "touch_head_b_loop", "--mode", "poorcondition")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !strings.HasPrefix(out, "Touch_Head_B_Loop_Normal\t") {
		t.Fatalf("unexpected pick %q", out)
	}

	out, err = runCommand(t, "resolve", "sleep_b_loop", "-m", "happy", "-n", "3")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 3 {
		t.Fatalf("expected 3 picks, got %q", out)
	}

	if _, err := runCommand(t, "resolve", "default", "-c", "missing.yaml"); err == nil {
		t.Fatalf("missing config should fail")
	}
}

func TestPlayInTerminal(t *testing.T) {
	ctx := newCommandContext(new(string), new(string))
	pc, err := ctx.load(&bytes.Buffer{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defer pc.catalog.Close()

	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatalf("init screen: %v", err)
	}
	defer screen.Fini()
	screen.SetSize(16, 8)

	runCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = playInTerminal(runCtx, screen, pc, playOptions{Name: "default", Mode: "normal", Repeat: 1})
	if err != nil {
		t.Fatalf("play: %v", err)
	}

	drawn := 0
	w, h := screen.Size()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if r, _, _, _ := screen.GetContent(x, y); r == '▀' {
				drawn++
			}
		}
	}
	if drawn == 0 {
		t.Fatalf("no frame was drawn")
	}

	if err := playInTerminal(runCtx, screen, pc, playOptions{Name: "dance", Mode: "normal"}); err == nil {
		t.Fatalf("unknown clip should fail")
	}
}
