package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// MapView draws a top-down ASCII map of the trail around the aircraft.
// World X runs left to right and world Z (north) runs bottom to top.
type MapView struct {
	mu     sync.Mutex
	w      io.Writer
	width  int
	height int
	buffer [][]rune
	scale  float64 // meters per cell
	center mgl64.Vec3
}

// NewMapView creates a map of the given size in cells
func NewMapView(w io.Writer, width, height int, scale float64) *MapView {
	buffer := make([][]rune, height)
	for i := range buffer {
		buffer[i] = make([]rune, width)
	}
	return &MapView{
		w:      w,
		width:  width,
		height: height,
		buffer: buffer,
		scale:  scale,
	}
}

// worldToScreen converts a world position to a cell, north up
func (m *MapView) worldToScreen(pos mgl64.Vec3) (int, int) {
	screenX := int((pos.X()-m.center.X())/m.scale + float64(m.width)/2)
	screenY := int(-(pos.Z()-m.center.Z())/m.scale + float64(m.height)/2)
	return screenX, screenY
}

func (m *MapView) clear() {
	for y := range m.buffer {
		for x := range m.buffer[y] {
			m.buffer[y][x] = ' '
		}
	}
}

func (m *MapView) plot(pos mgl64.Vec3, symbol rune) {
	x, y := m.worldToScreen(pos)
	if x >= 0 && x < m.width && y >= 0 && y < m.height {
		m.buffer[y][x] = symbol
	}
}

// headingSymbol picks an arrow for the nearest of eight compass points
func headingSymbol(heading float64) rune {
	symbols := []rune{'^', '/', '>', '\\', 'v', '/', '<', '\\'}
	sector := int((heading+22.5)/45) % 8
	if sector < 0 {
		sector += 8
	}
	return symbols[sector]
}

// Render implements HUD
func (m *MapView) Render(frame Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.center = frame.State.Position
	m.clear()
	for _, p := range frame.Trail {
		m.plot(p, '.')
	}
	m.plot(frame.State.Position, headingSymbol(frame.State.Heading))

	var b strings.Builder
	b.WriteString("+" + strings.Repeat("-", m.width) + "+\n")
	for y := range m.buffer {
		b.WriteString("|")
		b.WriteString(string(m.buffer[y]))
		b.WriteString("|\n")
	}
	b.WriteString("+" + strings.Repeat("-", m.width) + "+\n")

	if _, err := io.WriteString(m.w, b.String()); err != nil {
		return fmt.Errorf("failed to write map: %w", err)
	}
	return nil
}
