package main

import (
	"log/slog"
	"math"

	"github.com/ebitenui/ebitenui"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"golang.design/x/clipboard"
)

// Game is the ebiten front end of a running pet: it draws whatever frame the
// scheduler last displayed and turns mouse and keyboard input into mode
// changes, window drags and clipboard copies.
type Game struct {
	pet   *Pet
	log   *slog.Logger
	scale float64
	debug bool

	clipboardOK bool

	menu     *ebitenui.UI
	menuOpen bool
	quit     bool

	dragging bool
	grabX    int
	grabY    int

	winW int
	winH int
}

func NewGame(pet *Pet, scale float64, debug bool, logger *slog.Logger) *Game {
	g := &Game{
		pet:   pet,
		log:   logger,
		scale: scale,
		debug: debug,
	}
	if err := clipboard.Init(); err != nil {
		logger.Warn("clipboard unavailable", slog.Any("error", err))
	} else {
		g.clipboardOK = true
	}
	return g
}

func (g *Game) Update() error {
	if g.quit {
		return ebiten.Termination
	}

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonRight) {
		if g.menuOpen {
			g.closeMenu()
		} else {
			g.openMenu()
		}
	}
	if g.menuOpen {
		if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
			g.closeMenu()
		} else {
			g.menu.Update()
		}
	} else {
		if inpututil.IsKeyJustPressed(ebiten.KeyC) {
			g.copyPlaying()
		}
		g.updateDrag()
	}

	g.fitWindow()
	return nil
}

// updateDrag moves the window with the cursor while the left button is held.
func (g *Game) updateDrag() {
	cx, cy := ebiten.CursorPosition()
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		g.dragging = true
		g.grabX, g.grabY = cx, cy
	}
	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		g.dragging = false
		return
	}
	if g.dragging && (cx != g.grabX || cy != g.grabY) {
		wx, wy := ebiten.WindowPosition()
		ebiten.SetWindowPosition(wx+cx-g.grabX, wy+cy-g.grabY)
	}
}

// fitWindow sizes the window to the current frame, or to the menu while it
// is open.
func (g *Game) fitWindow() {
	w, h := g.petSize()
	if g.menuOpen {
		w, h = max(w, menuWidth), max(h, menuHeight)
	}
	if w == 0 || h == 0 || (w == g.winW && h == g.winH) {
		return
	}
	g.winW, g.winH = w, h
	ebiten.SetWindowSize(w, h)
}

func (g *Game) petSize() (int, int) {
	w, h := g.pet.sink.Size()
	return int(math.Ceil(float64(w) * g.scale)), int(math.Ceil(float64(h) * g.scale))
}

func (g *Game) openMenu() {
	g.menu = NewMenuUI(g)
	g.menuOpen = true
	g.dragging = false
}

func (g *Game) closeMenu() {
	g.menuOpen = false
}

func (g *Game) copyPlaying() {
	name := g.pet.Playing()
	if !g.clipboardOK || name == "" {
		return
	}
	clipboard.Write(clipboard.FmtText, []byte(name))
	g.log.Info("copied clip name", slog.String("clip", name))
}

func (g *Game) Draw(screen *ebiten.Image) {
	g.pet.sink.Draw(screen, g.scale)

	if g.menuOpen {
		g.menu.Draw(screen)
	}
	if g.debug {
		ebitenutil.DebugPrint(screen, g.pet.Playing())
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}
