// Package render implements the path/text/image/pattern/shading rendering
// contract: a Canvas consumed by the content-stream interpreter, and a
// software RasterCanvas implementation over image.NRGBA.
package render

import (
	"image"
	"image/color"
	"math"

	"pdfcore/coords"
)

// Paint is a resolved, device-space-independent fill/stroke color together
// with its alpha, already converted to sRGB by the colorspace package.
type Paint struct {
	R, G, B float64
	Alpha   float64
}

func (p Paint) toNRGBA() color.NRGBA {
	clamp := func(v float64) uint8 {
		if v <= 0 {
			return 0
		}
		if v >= 1 {
			return 255
		}
		return uint8(v*255 + 0.5)
	}
	return color.NRGBA{R: clamp(p.R), G: clamp(p.G), B: clamp(p.B), A: clamp(p.Alpha)}
}

// StrokeParams carries the line-painting parameters from the graphics
// state: line width, cap, join, miter limit, dash pattern.
type StrokeParams struct {
	Width      float64
	Cap        int // 0 butt, 1 round, 2 square
	Join       int // 0 miter, 1 round, 2 bevel
	MiterLimit float64
	Dash       []float64
	DashPhase  float64
}

// Path mirrors contentstream.Path in device space: a sequence of subpaths
// already transformed by the CTM, with curves flattened to line segments
// for rasterization.
type Path struct {
	Subpaths [][]coords.Point
	Closed   []bool
}

// Canvas is the back-end contract a renderer implements: a 2D raster target the
// interpreter paints onto. Path/text/image/pattern/shading rendering all
// reduce to Fill/Stroke/DrawImage calls against one of these plus, for
// transparency groups and soft masks, BeginGroup/EndGroup/Snapshot.
type Canvas interface {
	Bounds() (w, h int)
	Fill(p Path, paint Paint, evenOdd bool)
	Stroke(p Path, paint Paint, sp StrokeParams)
	DrawImage(img image.Image, ctm coords.Matrix, alpha float64, mask *image.Gray)
	SetClip(p Path, evenOdd bool)
	ClearClip()

	// BeginGroup returns a fresh same-size canvas for rendering an isolated
	// transparency group or soft-mask source into.
	BeginGroup(isolated bool, backdrop Paint) Canvas
	// EndGroup composites child onto the receiver with the given alpha,
	// blend mode, and optional soft mask (already materialized).
	EndGroup(child Canvas, alpha float64, blendMode string, mask *image.Gray)
	// Snapshot reduces the canvas contents to luminosity and alpha buffers,
	// for materializing a soft mask.
	Snapshot() (luminosity, alpha *image.Gray)
}

// RasterCanvas is the reference software Canvas implementation: a plain
// image.NRGBA with a scanline polygon fill/stroke rasterizer. It favors
// correctness of the compositing algorithm (soft masks, groups, clipping)
// over anti-aliased edge quality.
type RasterCanvas struct {
	img      *image.NRGBA
	clip     *image.Gray // nil = unclipped
	w, h     int
}

func NewRasterCanvas(w, h int) *RasterCanvas {
	return &RasterCanvas{img: image.NewNRGBA(image.Rect(0, 0, w, h)), w: w, h: h}
}

func (c *RasterCanvas) Image() *image.NRGBA { return c.img }

func (c *RasterCanvas) Bounds() (int, int) { return c.w, c.h }

func (c *RasterCanvas) SetClip(p Path, evenOdd bool) {
	mask := image.NewGray(image.Rect(0, 0, c.w, c.h))
	rasterizeCoverage(p, evenOdd, c.w, c.h, func(x, y int, cov float64) {
		mask.SetGray(x, y, color.Gray{Y: uint8(cov*255 + 0.5)})
	})
	if c.clip != nil {
		for y := 0; y < c.h; y++ {
			for x := 0; x < c.w; x++ {
				i := mask.PixOffset(x, y)
				prev := c.clip.Pix[i]
				mask.Pix[i] = uint8(int(mask.Pix[i]) * int(prev) / 255)
			}
		}
	}
	c.clip = mask
}

func (c *RasterCanvas) ClearClip() { c.clip = nil }

func (c *RasterCanvas) clipAt(x, y int) float64 {
	if c.clip == nil {
		return 1
	}
	return float64(c.clip.GrayAt(x, y).Y) / 255
}

func (c *RasterCanvas) Fill(p Path, paint Paint, evenOdd bool) {
	nrgba := paint.toNRGBA()
	rasterizeCoverage(p, evenOdd, c.w, c.h, func(x, y int, cov float64) {
		cov *= c.clipAt(x, y)
		if cov <= 0 {
			return
		}
		blendPixel(c.img, x, y, nrgba, cov)
	})
}

func (c *RasterCanvas) Stroke(p Path, paint Paint, sp StrokeParams) {
	outline := strokeToPolygons(p, sp)
	c.Fill(outline, paint, false)
}

func (c *RasterCanvas) DrawImage(img image.Image, ctm coords.Matrix, alpha float64, mask *image.Gray) {
	inv, err := ctm.Inverse()
	if err != nil {
		return
	}
	corners := []coords.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 1}}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, pt := range corners {
		p := ctm.Transform(pt)
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	x0, y0 := clampInt(int(math.Floor(minX)), 0, c.w), clampInt(int(math.Floor(minY)), 0, c.h)
	x1, y1 := clampInt(int(math.Ceil(maxX)), 0, c.w), clampInt(int(math.Ceil(maxY)), 0, c.h)
	b := img.Bounds()
	for y := y0; y < y1; y++ {
		for x := x0; x < x1; x++ {
			// Image space is the unit square with origin at bottom-left,
			// per the image-space convention (unit square, origin at bottom-left).
			src := inv.Transform(coords.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5})
			if src.X < 0 || src.X >= 1 || src.Y < 0 || src.Y >= 1 {
				continue
			}
			sx := b.Min.X + int(src.X*float64(b.Dx()))
			sy := b.Min.Y + int((1-src.Y)*float64(b.Dy()))
			r, g, bl, a := img.At(sx, sy).RGBA()
			cov := alpha * c.clipAt(x, y)
			if mask != nil {
				cov *= float64(mask.GrayAt(x, y).Y) / 255
			}
			if cov <= 0 || a == 0 {
				continue
			}
			nrgba := color.NRGBA{
				R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(bl >> 8), A: uint8(a >> 8),
			}
			blendPixel(c.img, x, y, nrgba, cov)
		}
	}
}

func (c *RasterCanvas) BeginGroup(isolated bool, backdrop Paint) Canvas {
	child := NewRasterCanvas(c.w, c.h)
	if !isolated {
		// Non-isolated groups start from the current backdrop: copy the
		// parent's pixels in rather than transparent.
		for y := 0; y < c.h; y++ {
			for x := 0; x < c.w; x++ {
				child.img.Set(x, y, c.img.At(x, y))
			}
		}
	} else if backdrop.Alpha > 0 {
		fill := backdrop.toNRGBA()
		for i := 0; i < len(child.img.Pix); i += 4 {
			child.img.Pix[i], child.img.Pix[i+1], child.img.Pix[i+2], child.img.Pix[i+3] =
				fill.R, fill.G, fill.B, fill.A
		}
	}
	return child
}

func (c *RasterCanvas) EndGroup(child Canvas, alpha float64, blendMode string, mask *image.Gray) {
	rc, ok := child.(*RasterCanvas)
	if !ok {
		return
	}
	for y := 0; y < c.h; y++ {
		for x := 0; x < c.w; x++ {
			sr, sg, sb, sa := rc.img.At(x, y).RGBA()
			if sa == 0 {
				continue
			}
			cov := alpha
			if mask != nil {
				cov *= float64(mask.GrayAt(x, y).Y) / 255
			}
			if cov <= 0 {
				continue
			}
			src := color.NRGBA{R: uint8(sr >> 8), G: uint8(sg >> 8), B: uint8(sb >> 8), A: uint8(sa >> 8)}
			src = applyBlendMode(blendMode, c.img.NRGBAAt(x, y), src)
			blendPixel(c.img, x, y, src, cov*float64(src.A)/255)
		}
	}
}

func (c *RasterCanvas) Snapshot() (luminosity, alpha *image.Gray) {
	lum := image.NewGray(image.Rect(0, 0, c.w, c.h))
	al := image.NewGray(image.Rect(0, 0, c.w, c.h))
	for y := 0; y < c.h; y++ {
		for x := 0; x < c.w; x++ {
			r, g, b, a := c.img.At(x, y).RGBA()
			rf, gf, bf := float64(r>>8)/255, float64(g>>8)/255, float64(b>>8)/255
			// Rec. 601 luminosity weights: 0.299/0.587/0.114.
			y8 := 0.299*rf + 0.587*gf + 0.114*bf
			lum.SetGray(x, y, color.Gray{Y: uint8(clamp01(y8)*255 + 0.5)})
			al.SetGray(x, y, color.Gray{Y: uint8(a >> 8)})
		}
	}
	return lum, al
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func blendPixel(img *image.NRGBA, x, y int, src color.NRGBA, cov float64) {
	if cov <= 0 {
		return
	}
	if cov > 1 {
		cov = 1
	}
	dst := img.NRGBAAt(x, y)
	a := cov * float64(src.A) / 255
	out := color.NRGBA{
		R: lerp8(dst.R, src.R, a),
		G: lerp8(dst.G, src.G, a),
		B: lerp8(dst.B, src.B, a),
		A: lerp8(dst.A, 255, a),
	}
	img.SetNRGBA(x, y, out)
}

func lerp8(dst, src uint8, a float64) uint8 {
	v := float64(dst)*(1-a) + float64(src)*a
	if v < 0 {
		v = 0
	}
	if v > 255 {
		v = 255
	}
	return uint8(v + 0.5)
}
