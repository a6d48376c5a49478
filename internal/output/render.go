package output

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mj1618/desktop-switch/internal/model"
)

// DefaultLayoutWidth is the width in pixels of a rendered layout.
const DefaultLayoutWidth = 1600

const layoutMargin = 16

var (
	backgroundColor = color.RGBA{R: 32, G: 32, B: 36, A: 255}
	textColor       = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	outlineColor    = color.RGBA{R: 0, G: 0, B: 0, A: 220}
	// frontColor outlines the frontmost window; the others fade with rank.
	frontColor = color.RGBA{R: 255, G: 64, B: 64, A: 255}
	backColor  = color.RGBA{R: 64, G: 128, B: 255, A: 255}
)

// RenderLayout draws every window's frame, back to front, scaled into an
// image width pixels wide. Each frame is labelled with its z rank and title,
// plus its kind when it is not a standard window.
func RenderLayout(windows []model.WindowRecord, width int) *image.RGBA {
	if width <= 0 {
		width = DefaultLayoutWidth
	}
	minX, minY, maxX, maxY := extent(windows)
	scale := float64(width-2*layoutMargin) / math.Max(maxX-minX, 1)
	height := int(math.Ceil((maxY-minY)*scale)) + 2*layoutMargin
	if height < 2*layoutMargin+13 {
		height = 2*layoutMargin + 13
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	for i := len(windows) - 1; i >= 0; i-- {
		w := windows[i]
		x1 := layoutMargin + int((w.Geometry.X-minX)*scale)
		y1 := layoutMargin + int((w.Geometry.Y-minY)*scale)
		x2 := x1 + int(w.Geometry.Width*scale)
		y2 := y1 + int(w.Geometry.Height*scale)
		c := rankColor(i, len(windows))
		drawRectangle(img, x1, y1, x2, y2, c)
		drawRectangle(img, x1+1, y1+1, x2-1, y2-1, c)

		drawText(img, truncate(layoutLabel(w), (x2-x1-8)/7), x1+4, y1+15)
	}
	return img
}

// EncodePNG renders windows and writes the PNG to w.
func EncodePNG(w io.Writer, windows []model.WindowRecord, width int) error {
	if err := png.Encode(w, RenderLayout(windows, width)); err != nil {
		return fmt.Errorf("png encode: %w", err)
	}
	return nil
}

func layoutLabel(w model.WindowRecord) string {
	label := fmt.Sprintf("#%d %s: %s", w.ZRank, w.AppName, w.Title)
	if kind := model.MapSubrole(w.Subrole); w.Subrole != "" && kind != "standard" {
		label += " (" + kind + ")"
	}
	return label
}

func extent(windows []model.WindowRecord) (minX, minY, maxX, maxY float64) {
	if len(windows) == 0 {
		return 0, 0, 1, 1
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, w := range windows {
		g := w.Geometry
		minX = math.Min(minX, g.X)
		minY = math.Min(minY, g.Y)
		maxX = math.Max(maxX, g.X+g.Width)
		maxY = math.Max(maxY, g.Y+g.Height)
	}
	return minX, minY, maxX, maxY
}

// rankColor blends from frontColor at rank 0 to backColor at the last rank.
func rankColor(i, n int) color.RGBA {
	if n <= 1 {
		return frontColor
	}
	t := float64(i) / float64(n-1)
	mix := func(a, b uint8) uint8 {
		return uint8(math.Round(float64(a)*(1-t) + float64(b)*t))
	}
	return color.RGBA{
		R: mix(frontColor.R, backColor.R),
		G: mix(frontColor.G, backColor.G),
		B: mix(frontColor.B, backColor.B),
		A: 255,
	}
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// drawRectangle draws a rectangle outline clamped to the image.
func drawRectangle(img *image.RGBA, x1, y1, x2, y2 int, c color.Color) {
	b := img.Bounds()
	x1, y1 = max(x1, b.Min.X), max(y1, b.Min.Y)
	x2, y2 = min(x2, b.Max.X), min(y2, b.Max.Y)
	if x2 <= x1 || y2 <= y1 {
		return
	}
	for x := x1; x < x2; x++ {
		img.Set(x, y1, c)
		img.Set(x, y2-1, c)
	}
	for y := y1; y < y2; y++ {
		img.Set(x1, y, c)
		img.Set(x2-1, y, c)
	}
}

// drawText draws text with a one-pixel outline; (x, y) is the baseline start.
func drawText(img *image.RGBA, text string, x, y int) {
	if text == "" {
		return
	}
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			if dx == 0 && dy == 0 {
				continue
			}
			d := &font.Drawer{
				Dst:  img,
				Src:  image.NewUniform(outlineColor),
				Face: basicfont.Face7x13,
				Dot:  fixed.P(x+dx, y+dy),
			}
			d.DrawString(text)
		}
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}
