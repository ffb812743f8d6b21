// Package render draws host frames: a top-down terminal view for play and a
// log-only renderer for headless runs.
package render

import (
	"fmt"
	"strings"

	"github.com/Versifine/strafe/internal/host"
	"github.com/chewxy/math32"
	"github.com/gdamore/tcell/v2"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	DefaultTrailLength = 256
	// DefaultZoom is screen columns per reference unit.
	DefaultZoom = float32(1.0 / 16)
	// Terminal cells are about twice as tall as they are wide.
	cellAspect = 2
	gridStep   = 256
	arrowCells = 8
)

var (
	styleText   = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleDim    = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleTrail  = tcell.StyleDefault.Foreground(tcell.NewRGBColor(100, 150, 255))
	styleSolid  = tcell.StyleDefault.Foreground(tcell.NewRGBColor(120, 120, 120))
	styleVel    = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleWish   = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	stylePlayer = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleWarn   = tcell.StyleDefault.Foreground(tcell.ColorOrange)
	stylePrompt = tcell.StyleDefault.Foreground(tcell.NewRGBColor(144, 238, 144))
)

// Canvas is the part of tcell.Screen the HUD draws on.
type Canvas interface {
	SetContent(x, y int, primary rune, combining []rune, style tcell.Style)
	Size() (width, height int)
	Clear()
	Show()
}

// HUD draws the player from above, centred on screen, with speed readouts.
type HUD struct {
	canvas Canvas
	zoom   float32
	trail  []mgl32.Vec3
	head   int
	filled bool

	solid  func(mgl32.Vec3) bool
	prompt func() string
	help   string
}

type Option func(*HUD)

func WithZoom(columnsPerUnit float32) Option {
	return func(h *HUD) {
		if columnsPerUnit > 0 {
			h.zoom = columnsPerUnit
		}
	}
}

func WithTrailLength(n int) Option {
	return func(h *HUD) {
		if n > 0 {
			h.trail = make([]mgl32.Vec3, n)
		}
	}
}

// WithSolid shades every cell whose centre, at the player's chest height, is
// inside level geometry.
func WithSolid(fn func(mgl32.Vec3) bool) Option {
	return func(h *HUD) { h.solid = fn }
}

// WithPrompt shows text along the bottom of the screen when fn returns any.
func WithPrompt(fn func() string) Option {
	return func(h *HUD) { h.prompt = fn }
}

func WithHelp(text string) Option {
	return func(h *HUD) { h.help = text }
}

func NewHUD(c Canvas, opts ...Option) *HUD {
	h := &HUD{
		canvas: c,
		zoom:   DefaultZoom,
		trail:  make([]mgl32.Vec3, DefaultTrailLength),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ZoomBy multiplies the zoom, for the in-game zoom keys.
func (h *HUD) ZoomBy(factor float32) {
	if factor > 0 {
		h.zoom = mgl32.Clamp(h.zoom*factor, 1.0/256, 1)
	}
}

// ClearTrail forgets the trail, after a reset or a map change.
func (h *HUD) ClearTrail() {
	h.head = 0
	h.filled = false
}

func (h *HUD) Render(f host.Frame) {
	h.push(f.Position)

	h.canvas.Clear()
	w, ht := h.canvas.Size()
	v := view{
		centre: f.Position,
		cx:     w / 2,
		cy:     ht / 2,
		scale:  h.zoom / f.Constants.UnitScale,
		w:      w,
		h:      ht,
	}

	if h.solid != nil {
		h.drawSolid(v, f)
	}
	h.drawGrid(v, f.Constants.UnitScale)
	h.drawTrail(v)

	snap := f.Snapshot
	vel := mgl32.Vec2{snap.Velocity[0], snap.Velocity[1]}
	if f.Constants.GroundSpeedCap > 0 {
		length := math32.Min(vel.Len()/f.Constants.GroundSpeedCap, 4) * arrowCells
		h.drawArrow(v, vel, length, '*', styleVel)
	}
	h.drawArrow(v, snap.Wish, arrowCells, '+', styleWish)
	h.canvas.SetContent(v.cx, v.cy, facingGlyph(snap.Yaw), nil, stylePlayer)

	h.drawStatus(f, w)
	h.drawPrompt(w, ht)
	h.canvas.Show()
}

type view struct {
	centre mgl32.Vec3
	cx, cy int
	// scale is screen columns per world unit.
	scale float32
	w, h  int
}

func (v view) toScreen(p mgl32.Vec3) (int, int) {
	dx := (p[0] - v.centre[0]) * v.scale
	dy := (p[1] - v.centre[1]) * v.scale / cellAspect
	return v.cx + int(math32.Round(dx)), v.cy - int(math32.Round(dy))
}

func (v view) toWorld(x, y int) mgl32.Vec3 {
	return mgl32.Vec3{
		v.centre[0] + float32(x-v.cx)/v.scale,
		v.centre[1] - float32(y-v.cy)*cellAspect/v.scale,
		v.centre[2],
	}
}

func (v view) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < v.w && y < v.h
}

func (h *HUD) push(p mgl32.Vec3) {
	if len(h.trail) == 0 {
		return
	}
	h.trail[h.head] = p
	h.head++
	if h.head == len(h.trail) {
		h.head = 0
		h.filled = true
	}
}

func (h *HUD) drawTrail(v view) {
	n := h.head
	if h.filled {
		n = len(h.trail)
	}
	for i := 0; i < n; i++ {
		if x, y := v.toScreen(h.trail[i]); v.inside(x, y) {
			h.canvas.SetContent(x, y, '·', nil, styleTrail)
		}
	}
}

func (h *HUD) drawGrid(v view, unitScale float32) {
	step := gridStep * unitScale
	// Skip the grid when its dots would touch.
	if step*v.scale < 4 {
		return
	}
	corner := v.toWorld(0, 0)
	far := v.toWorld(v.w, v.h)
	for gx := math32.Floor(corner[0]/step) * step; gx <= far[0]; gx += step {
		for gy := math32.Floor(far[1]/step) * step; gy <= corner[1]; gy += step {
			if x, y := v.toScreen(mgl32.Vec3{gx, gy, 0}); v.inside(x, y) {
				h.canvas.SetContent(x, y, '.', nil, styleDim)
			}
		}
	}
}

func (h *HUD) drawSolid(v view, f host.Frame) {
	chest := f.Constants.Hull().Height / 2
	for y := 0; y < v.h; y++ {
		for x := 0; x < v.w; x++ {
			p := v.toWorld(x, y)
			p[2] += chest
			if h.solid(p) {
				h.canvas.SetContent(x, y, '░', nil, styleSolid)
			}
		}
	}
}

// drawArrow draws a ray of the given length in columns from the player
// toward dir.
func (h *HUD) drawArrow(v view, dir mgl32.Vec2, length float32, glyph rune, style tcell.Style) {
	l := dir.Len()
	if l == 0 || length < 1 {
		return
	}
	dir = dir.Mul(1 / l)
	for t := float32(1); t <= length; t++ {
		x := v.cx + int(math32.Round(dir[0]*t))
		y := v.cy - int(math32.Round(dir[1]*t/cellAspect))
		if v.inside(x, y) {
			h.canvas.SetContent(x, y, glyph, nil, style)
		}
	}
}

func (h *HUD) drawStatus(f host.Frame, w int) {
	snap := f.Snapshot
	r := SpeedReadout(snap.Speed, f.Constants.UnitScale)
	d := f.Diagnostics

	lines := []struct {
		text  string
		style tcell.Style
	}{
		{fmt.Sprintf("UPS %5.0f   MPH %6.1f   KPH %6.1f", r.UPS, r.MPH, r.KPH), styleText},
		{fmt.Sprintf("%s  %s  air %.2fs  yaw %4.0f°  keys [%s]",
			f.Preset, snap.Move, snap.AirTime, mgl32.RadToDeg(snap.Yaw), f.Keys), styleDim},
		{fmt.Sprintf("tick %d  jumps %d  clamped %d  resets %d  frame clamps %d",
			snap.Tick, d.Jumps, d.ClampedSteps, d.Resets, d.FrameClamps), styleDim},
	}
	if f.Report.Falling {
		lines = append(lines, struct {
			text  string
			style tcell.Style
		}{"falling", styleWarn})
	}
	for i, l := range lines {
		drawText(h.canvas, 1, i, w-1, l.text, l.style)
	}
	if h.help != "" {
		drawText(h.canvas, 1, len(lines), w-1, h.help, styleDim)
	}
}

func (h *HUD) drawPrompt(w, ht int) {
	if h.prompt == nil {
		return
	}
	text := h.prompt()
	if text == "" {
		return
	}
	lines := wrap(text, w-2)
	top := ht - len(lines) - 1
	for i, line := range lines {
		drawText(h.canvas, 1, top+i, w-1, line, stylePrompt)
	}
}

func drawText(c Canvas, x, y, maxX int, text string, style tcell.Style) {
	if y < 0 {
		return
	}
	for _, r := range text {
		if x >= maxX {
			return
		}
		c.SetContent(x, y, r, nil, style)
		x++
	}
}

// wrap breaks text on spaces into lines of at most width runes.
func wrap(text string, width int) []string {
	if width <= 0 {
		return nil
	}
	var (
		lines []string
		line  strings.Builder
		n     int
	)
	for _, word := range strings.Fields(text) {
		wl := len([]rune(word))
		if n > 0 && n+1+wl > width {
			lines = append(lines, line.String())
			line.Reset()
			n = 0
		}
		if n > 0 {
			line.WriteByte(' ')
			n++
		}
		line.WriteString(word)
		n += wl
	}
	if n > 0 {
		lines = append(lines, line.String())
	}
	return lines
}

// facingGlyph picks an arrow for the view direction. Yaw 0 faces +Y, which is
// up on screen.
func facingGlyph(yaw float32) rune {
	glyphs := [...]rune{'↑', '↖', '←', '↙', '↓', '↘', '→', '↗'}
	octant := int(math32.Round(yaw/(math32.Pi/4))) % len(glyphs)
	if octant < 0 {
		octant += len(glyphs)
	}
	return glyphs[octant]
}
