package render

import (
	"image"
	"image/color"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"github.com/milk9111/vpet/animation"
)

// halfBlock draws two vertical pixels per cell: foreground on top,
// background below.
const halfBlock = '▀'

// TerminalSink draws frames into a tcell screen with half-block characters.
type TerminalSink struct {
	screen tcell.Screen
	frame  atomic.Pointer[animation.Frame]
	dirty  atomic.Bool
}

func NewTerminalSink(screen tcell.Screen) *TerminalSink {
	return &TerminalSink{screen: screen}
}

func (s *TerminalSink) Display(f *animation.Frame) {
	s.frame.Store(f)
	s.dirty.Store(true)
}

func (s *TerminalSink) Clear() {
	s.frame.Store(nil)
	s.dirty.Store(true)
}

// Dirty reports whether a frame arrived since the last Draw.
func (s *TerminalSink) Dirty() bool {
	return s.dirty.Load()
}

// Draw paints the current frame, centred and scaled to fit, and shows the
// screen. It must run on the goroutine that owns the screen.
func (s *TerminalSink) Draw() error {
	s.dirty.Store(false)
	s.screen.Clear()
	defer s.screen.Show()

	f := s.frame.Load()
	if f == nil {
		return nil
	}
	img, err := f.Image()
	if err != nil {
		return err
	}
	if img == nil {
		return nil
	}
	cols, rows := s.screen.Size()
	drawHalfBlocks(s.screen, img, cols, rows)
	return nil
}

func drawHalfBlocks(screen tcell.Screen, img image.Image, cols, rows int) {
	b := img.Bounds()
	fit := fitRect(b.Dx(), b.Dy(), cols, rows*2)
	if fit.Empty() {
		return
	}
	sample := func(px, py int) (tcell.Color, bool) {
		if !image.Pt(px, py).In(fit) {
			return tcell.ColorDefault, false
		}
		sx := b.Min.X + (px-fit.Min.X)*b.Dx()/fit.Dx()
		sy := b.Min.Y + (py-fit.Min.Y)*b.Dy()/fit.Dy()
		c := color.NRGBAModel.Convert(img.At(sx, sy)).(color.NRGBA)
		if c.A < 128 {
			return tcell.ColorDefault, false
		}
		return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B)), true
	}

	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			top, topOK := sample(x, y*2)
			bottom, bottomOK := sample(x, y*2+1)
			if !topOK && !bottomOK {
				continue
			}
			style := tcell.StyleDefault.Foreground(top).Background(bottom)
			screen.SetContent(x, y, halfBlock, nil, style)
		}
	}
}

// fitRect scales a w×h image to fit inside a cols×rows pixel grid while
// keeping its aspect ratio, centred.
func fitRect(w, h, cols, rows int) image.Rectangle {
	if w <= 0 || h <= 0 || cols <= 0 || rows <= 0 {
		return image.Rectangle{}
	}
	dw, dh := cols, h*cols/w
	if dh > rows {
		dw, dh = w*rows/h, rows
	}
	dw, dh = max(dw, 1), max(dh, 1)
	ox, oy := (cols-dw)/2, (rows-dh)/2
	return image.Rect(ox, oy, ox+dw, oy+dh)
}
