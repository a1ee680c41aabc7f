package render

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/milk9111/vpet/animation"
)

// EbitenSink hands frames from the playback worker to the ebiten draw loop.
// Display only swaps a pointer; conversion to GPU images happens in Draw on
// the UI goroutine and is cached per frame path.
type EbitenSink struct {
	log   *slog.Logger
	frame atomic.Pointer[animation.Frame]

	mu     sync.Mutex
	images map[string]*ebiten.Image
}

func NewEbitenSink(logger *slog.Logger) *EbitenSink {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &EbitenSink{
		log:    logger.With(slog.String("component", "ebiten_sink")),
		images: make(map[string]*ebiten.Image),
	}
}

func (s *EbitenSink) Display(f *animation.Frame) {
	s.frame.Store(f)
}

func (s *EbitenSink) Clear() {
	s.frame.Store(nil)
}

// Current returns the frame last passed to Display, or nil after Clear.
func (s *EbitenSink) Current() *animation.Frame {
	return s.frame.Load()
}

// Reset drops every cached image, for use after the catalog is reloaded.
func (s *EbitenSink) Reset() {
	s.mu.Lock()
	old := s.images
	s.images = make(map[string]*ebiten.Image)
	s.mu.Unlock()
	for _, img := range old {
		if img != nil {
			img.Deallocate()
		}
	}
}

func (s *EbitenSink) image(f *animation.Frame) *ebiten.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	if img, ok := s.images[f.Path]; ok {
		return img
	}
	src, err := f.Image()
	if err != nil {
		s.log.Error("frame decode failed", slog.String("path", f.Path), slog.Any("error", err))
		s.images[f.Path] = nil
		return nil
	}
	img := ebiten.NewImageFromImage(src)
	s.images[f.Path] = img
	return img
}

// Size returns the pixel size of the current frame, or 0, 0 when nothing is
// shown.
func (s *EbitenSink) Size() (int, int) {
	f := s.Current()
	if f == nil {
		return 0, 0
	}
	src, err := f.Image()
	if err != nil || src == nil {
		return 0, 0
	}
	b := src.Bounds()
	return b.Dx(), b.Dy()
}

// Draw renders the current frame scaled by scale.
func (s *EbitenSink) Draw(screen *ebiten.Image, scale float64) {
	f := s.Current()
	if screen == nil || f == nil {
		return
	}
	img := s.image(f)
	if img == nil {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(scale, scale)
	op.Filter = ebiten.FilterLinear
	screen.DrawImage(img, op)
}
