package main

import (
	"image/color"

	"golang.org/x/image/font/basicfont"

	"github.com/ebitenui/ebitenui"
	imageui "github.com/ebitenui/ebitenui/image"
	"github.com/ebitenui/ebitenui/widget"
	ebtext "github.com/hajimehoshi/ebiten/v2/text/v2"
)

const (
	menuWidth  = 160
	menuHeight = 230
)

// menuModes are the condition buttons, in display order.
var menuModes = []struct {
	label string
	mode  string
}{
	{"Normal", "normal"},
	{"Happy", "happy"},
	{"Poor condition", "poorcondition"},
	{"Ill", "ill"},
}

// NewMenuUI builds the right-click menu: one button per mode plus copy,
// close and quit. Buttons use colored nine-slices and the built-in basic
// font so no theme assets are needed.
func NewMenuUI(g *Game) *ebitenui.UI {
	panelImg := imageui.NewNineSliceColor(color.NRGBA{R: 0x00, G: 0x00, B: 0x00, A: 200})
	btnImg := imageui.NewNineSliceColor(color.NRGBA{R: 0x33, G: 0x33, B: 0x33, A: 255})
	activeImg := imageui.NewNineSliceColor(color.NRGBA{R: 0x2a, G: 0x5d, B: 0x8f, A: 255})

	var face ebtext.Face = ebtext.NewGoXFace(basicfont.Face7x13)
	white := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	btnTextColor := &widget.ButtonTextColor{Idle: white}
	center := widget.WidgetOpts.LayoutData(widget.RowLayoutData{Position: widget.RowLayoutPositionCenter, Stretch: true})

	button := func(label string, img *imageui.NineSlice, onClick func()) *widget.Button {
		return widget.NewButton(
			widget.ButtonOpts.Image(&widget.ButtonImage{Idle: img, Pressed: btnImg}),
			widget.ButtonOpts.Text(label, &face, btnTextColor),
			widget.ButtonOpts.WidgetOpts(center),
			widget.ButtonOpts.ClickedHandler(func(args *widget.ButtonClickedEventArgs) {
				onClick()
			}),
		)
	}

	panel := widget.NewContainer(
		widget.ContainerOpts.BackgroundImage(panelImg),
		widget.ContainerOpts.Layout(widget.NewRowLayout(
			widget.RowLayoutOpts.Direction(widget.DirectionVertical),
			widget.RowLayoutOpts.Spacing(6),
			widget.RowLayoutOpts.Padding(&widget.Insets{Top: 10, Bottom: 10, Left: 10, Right: 10}),
		)),
		widget.ContainerOpts.WidgetOpts(
			widget.WidgetOpts.MinSize(menuWidth, menuHeight),
			widget.WidgetOpts.LayoutData(widget.AnchorLayoutData{HorizontalPosition: widget.AnchorLayoutPositionCenter, VerticalPosition: widget.AnchorLayoutPositionCenter}),
		),
	)
	panel.AddChild(widget.NewText(
		widget.TextOpts.Text(g.pet.cfg.Name, &face, white),
		widget.TextOpts.WidgetOpts(widget.WidgetOpts.LayoutData(widget.RowLayoutData{Position: widget.RowLayoutPositionCenter})),
	))

	current := g.pet.Mode()
	for _, m := range menuModes {
		img := btnImg
		if m.mode == current {
			img = activeImg
		}
		mode := m.mode
		panel.AddChild(button(m.label, img, func() {
			g.pet.SetMode(mode)
			g.closeMenu()
		}))
	}
	panel.AddChild(button("Copy clip name", btnImg, func() {
		g.copyPlaying()
		g.closeMenu()
	}))
	panel.AddChild(button("Close", btnImg, g.closeMenu))
	panel.AddChild(button("Quit", btnImg, func() {
		g.quit = true
	}))

	root := widget.NewContainer(
		widget.ContainerOpts.Layout(widget.NewAnchorLayout()),
	)
	root.AddChild(panel)

	return &ebitenui.UI{Container: root}
}
