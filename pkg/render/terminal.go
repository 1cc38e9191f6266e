package render

import (
	"fmt"
	"image/color"

	uv "github.com/charmbracelet/ultraviolet"
)

// Draw converts the framebuffer to terminal cells and draws them on the
// screen. Each terminal row shows two framebuffer rows: ▀ with fg = top pixel
// and bg = bottom pixel.
func (fb *Framebuffer) Draw(scr uv.Screen, area uv.Rectangle) {
	for row := area.Min.Y; row < area.Max.Y; row++ {
		topY := (row - area.Min.Y) * 2
		botY := topY + 1

		for col := area.Min.X; col < area.Max.X; col++ {
			x := col - area.Min.X
			if x >= fb.Width {
				break
			}
			scr.SetCell(col, row, &uv.Cell{
				Content: "▀",
				Width:   1,
				Style: uv.Style{
					Fg: rgbaToColor(fb.GetPixel(x, topY)),
					Bg: rgbaToColor(fb.GetPixel(x, botY)),
				},
			})
		}
	}
}

// rgbaToColor converts color.RGBA to Go's color.Color interface.
func rgbaToColor(c color.RGBA) color.Color {
	if c.A == 0 {
		return nil // Transparent = no color
	}
	return c
}

// TerminalPresenter shows framebuffers on an ultraviolet terminal.
type TerminalPresenter struct {
	term          *uv.Terminal
	width, height int // in cells
}

// NewTerminalPresenter returns a presenter for a width x height cell area.
func NewTerminalPresenter(term *uv.Terminal, width, height int) *TerminalPresenter {
	return &TerminalPresenter{term: term, width: width, height: height}
}

// FramebufferSize returns the pixel size that fills the presenter's area.
func (p *TerminalPresenter) FramebufferSize() (width, height int) {
	return p.width, p.height * 2
}

// Present draws fb followed by any overlays and flushes the terminal.
func (p *TerminalPresenter) Present(fb *Framebuffer, overlays ...uv.Drawable) error {
	area := uv.Rect(0, 0, p.width, p.height)
	fb.Draw(p.term, area)
	for _, o := range overlays {
		o.Draw(p.term, area)
	}
	if err := p.term.Display(); err != nil {
		return fmt.Errorf("display frame: %w", err)
	}
	return nil
}
