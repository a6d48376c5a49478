package model

import "math"

// Geometry is a window frame in global display points. The canonical
// convention is top-left origin with y growing downward, which is what both
// CoreGraphics window lists and the AX position attribute report.
type Geometry struct {
	X      float64 `yaml:"x"      json:"x"`
	Y      float64 `yaml:"y"      json:"y"`
	Width  float64 `yaml:"width"  json:"width"`
	Height float64 `yaml:"height" json:"height"`
}

// Convention names the vertical origin a source reports geometry in.
type Convention int

const (
	// TopLeft is the canonical convention (y grows downward).
	TopLeft Convention = iota
	// BottomLeft is the Cocoa screen convention (y grows upward from the
	// bottom edge of the primary display).
	BottomLeft
)

// Normalize converts g from the given convention into TopLeft.
// primaryHeight is the height of the primary display in points.
func Normalize(g Geometry, from Convention, primaryHeight float64) Geometry {
	if from == BottomLeft {
		g.Y = primaryHeight - g.Y - g.Height
	}
	return g
}

// SizeDelta returns the absolute width and height differences.
func (g Geometry) SizeDelta(o Geometry) (dw, dh float64) {
	return math.Abs(g.Width - o.Width), math.Abs(g.Height - o.Height)
}

// Distance is the total absolute difference over all four components.
func (g Geometry) Distance(o Geometry) float64 {
	return math.Abs(g.X-o.X) + math.Abs(g.Y-o.Y) + math.Abs(g.Width-o.Width) + math.Abs(g.Height-o.Height)
}

// TitleBar returns the point used for a synthetic title-bar click: the
// horizontal center, a fixed offset below the top edge.
func (g Geometry) TitleBar() (x, y float64) {
	const titleBarOffset = 10
	off := float64(titleBarOffset)
	if g.Height < 2*off {
		off = g.Height / 2
	}
	return g.X + g.Width/2, g.Y + off
}

// Bounds returns the geometry rounded to [x, y, w, h] integers.
func (g Geometry) Bounds() [4]int {
	return [4]int{
		int(math.Round(g.X)),
		int(math.Round(g.Y)),
		int(math.Round(g.Width)),
		int(math.Round(g.Height)),
	}
}
