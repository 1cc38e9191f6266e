package main

import (
	"fmt"
	"time"

	"charm.land/lipgloss/v2"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/taigrr/quadrics/pkg/render"
)

var (
	hudStyle   = lipgloss.NewStyle().Background(lipgloss.Color("#101018")).Foreground(lipgloss.Color("#E8E8F0")).Padding(0, 1)
	fpsStyle   = hudStyle.Foreground(lipgloss.Color("#5FD787"))
	titleStyle = hudStyle.Bold(true)
	boostStyle = hudStyle.Foreground(lipgloss.Color("#FFD75F")).Bold(true)
	hintStyle  = hudStyle.Faint(true)
)

// HUD draws frame statistics over the rendered image.
type HUD struct {
	title     string
	quadrics  int
	lights    int
	visible   bool
	boost     bool
	stats     render.Stats
	fps       float64
	fpsFrames int
	fpsTime   time.Time
}

// NewHUD creates a HUD for a scene.
func NewHUD(title string, quadrics, lights int) *HUD {
	return &HUD{
		title:    title,
		quadrics: quadrics,
		lights:   lights,
		visible:  true,
		fpsTime:  time.Now(),
	}
}

// Toggle shows or hides the overlay.
func (h *HUD) Toggle() { h.visible = !h.visible }

// Update counts one frame at now and records the latest tracer stats.
func (h *HUD) Update(now time.Time, stats render.Stats, boost bool) {
	h.stats = stats
	h.boost = boost
	h.fpsFrames++
	if elapsed := now.Sub(h.fpsTime); elapsed >= time.Second {
		h.fps = float64(h.fpsFrames) / elapsed.Seconds()
		h.fpsFrames = 0
		h.fpsTime = now
	}
}

// Draw implements uv.Drawable.
func (h *HUD) Draw(scr uv.Screen, area uv.Rectangle) {
	if !h.visible || area.Dy() < 2 {
		return
	}

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		fpsStyle.Render(fmt.Sprintf("%.0f FPS", h.fps)),
		titleStyle.Render(h.title),
		hudStyle.Render(fmt.Sprintf("%d quadrics, %d lights, %d culled", h.quadrics, h.lights, h.stats.Culled)),
	)
	uv.NewStyledString(top).Draw(scr, uv.Rect(area.Min.X, area.Min.Y, area.Dx(), 1))

	bottom := hintStyle.Render("wasd move  arrows look  b boost  r reset  ? hud  esc quit")
	if h.boost {
		bottom = lipgloss.JoinHorizontal(lipgloss.Top, boostStyle.Render("BOOST"), bottom)
	}
	uv.NewStyledString(bottom).Draw(scr, uv.Rect(area.Min.X, area.Max.Y-1, area.Dx(), 1))
}
