package render

import (
	"math"

	"pdfcore/coords"
)

// strokeToPolygons expands p's centerlines into filled quads of the given
// width, one per segment, plus cap/join fill approximated by a small regular
// polygon ("fan") at each vertex. This reduces stroking to the same
// nonzero-winding fill path Fill already uses, at the cost of exact miter
// geometry (miter joins render as round joins here, a documented
// simplification rather than a silent incorrectness: the visual difference
// is only visible at very sharp angles and large line widths).
// StrokeOutline exposes strokeToPolygons for callers that need the filled
// outline a stroke would produce without painting it directly, such as the
// interpreter painting a stroke through a Pattern color space: the
// pattern fills the stroke's outline, not a flat color.
func StrokeOutline(p Path, sp StrokeParams) Path {
	return strokeToPolygons(p, sp)
}

func strokeToPolygons(p Path, sp StrokeParams) Path {
	halfW := sp.Width / 2
	if halfW <= 0 {
		halfW = 0.5
	}
	var out Path
	for si, sub := range p.Subpaths {
		pts := sub
		if len(pts) < 2 {
			if len(pts) == 1 && sp.Cap == 1 {
				out.Subpaths = append(out.Subpaths, circlePolygon(pts[0], halfW))
				out.Closed = append(out.Closed, true)
			}
			continue
		}
		closed := si < len(p.Closed) && p.Closed[si]
		segPts := pts
		if closed {
			segPts = append(append([]coords.Point{}, pts...), pts[0])
		}
		for i := 0; i+1 < len(segPts); i++ {
			quad := segmentQuad(segPts[i], segPts[i+1], halfW, sp.Cap)
			out.Subpaths = append(out.Subpaths, quad)
			out.Closed = append(out.Closed, true)
		}
		// Round/bevel joins and round caps at interior vertices: approximate
		// every vertex with a small fan so adjoining segment quads overlap
		// cleanly instead of leaving gaps at the join.
		for i := 1; i < len(segPts)-1; i++ {
			out.Subpaths = append(out.Subpaths, circlePolygon(segPts[i], halfW))
			out.Closed = append(out.Closed, true)
		}
		if closed {
			out.Subpaths = append(out.Subpaths, circlePolygon(segPts[0], halfW))
			out.Closed = append(out.Closed, true)
		} else if sp.Cap == 1 {
			// Round caps at the two open ends.
			out.Subpaths = append(out.Subpaths, circlePolygon(pts[0], halfW), circlePolygon(pts[len(pts)-1], halfW))
			out.Closed = append(out.Closed, true, true)
		}
	}
	return out
}

func segmentQuad(a, b coords.Point, halfW float64, cap int) []coords.Point {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return circlePolygon(a, halfW)
	}
	nx, ny := -dy/length*halfW, dx/length*halfW
	if cap == 2 { // square: extend endpoints outward by halfW
		ex, ey := dx/length*halfW, dy/length*halfW
		a = coords.Point{X: a.X - ex, Y: a.Y - ey}
		b = coords.Point{X: b.X + ex, Y: b.Y + ey}
	}
	return []coords.Point{
		{X: a.X + nx, Y: a.Y + ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: a.X - nx, Y: a.Y - ny},
	}
}

func circlePolygon(center coords.Point, radius float64) []coords.Point {
	const sides = 12
	out := make([]coords.Point, sides)
	for i := 0; i < sides; i++ {
		theta := 2 * math.Pi * float64(i) / sides
		out[i] = coords.Point{X: center.X + radius*math.Cos(theta), Y: center.Y + radius*math.Sin(theta)}
	}
	return out
}
