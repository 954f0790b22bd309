package render

import (
	"math"
	"sort"

	"pdfcore/coords"
)

// rasterizeCoverage scanline-fills p (even-odd or nonzero winding) into a
// w x h raster, calling emit(x, y, coverage) for every covered pixel.
// Coverage is always 1.0: pixels are sampled at their centers with no edge
// anti-aliasing, an accepted fidelity tradeoff against a full
// analytic-coverage rasterizer.
func rasterizeCoverage(p Path, evenOdd bool, w, h int, emit func(x, y int, coverage float64)) {
	type edge struct {
		x0, y0, x1, y1 float64
		dir            int
	}
	var edges []edge
	for si, sub := range p.Subpaths {
		n := len(sub)
		if n < 2 {
			continue
		}
		closed := si < len(p.Closed) && p.Closed[si]
		limit := n - 1
		if closed {
			limit = n
		}
		for i := 0; i < limit; i++ {
			a := sub[i]
			b := sub[(i+1)%n]
			if a.Y == b.Y {
				continue
			}
			dir := 1
			if a.Y > b.Y {
				a, b = b, a
				dir = -1
			}
			edges = append(edges, edge{x0: a.X, y0: a.Y, x1: b.X, y1: b.Y, dir: dir})
		}
	}
	if len(edges) == 0 {
		return
	}
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, e := range edges {
		minY = math.Min(minY, e.y0)
		maxY = math.Max(maxY, e.y1)
	}
	y0 := clampInt(int(math.Floor(minY)), 0, h)
	y1 := clampInt(int(math.Ceil(maxY)), 0, h)

	type xCross struct {
		x   float64
		dir int
	}
	for y := y0; y < y1; y++ {
		scanY := float64(y) + 0.5
		var crossings []xCross
		for _, e := range edges {
			if scanY < e.y0 || scanY >= e.y1 {
				continue
			}
			t := (scanY - e.y0) / (e.y1 - e.y0)
			x := e.x0 + t*(e.x1-e.x0)
			crossings = append(crossings, xCross{x: x, dir: e.dir})
		}
		if len(crossings) == 0 {
			continue
		}
		sort.Slice(crossings, func(i, j int) bool { return crossings[i].x < crossings[j].x })

		if evenOdd {
			for i := 0; i+1 < len(crossings); i += 2 {
				fillSpan(crossings[i].x, crossings[i+1].x, y, w, emit)
			}
			continue
		}
		// Nonzero winding rule: walk crossings left to right, accumulating
		// winding number, filling the span while it's nonzero.
		winding := 0
		spanStart := 0.0
		inSpan := false
		for _, c := range crossings {
			before := winding
			winding += c.dir
			if before == 0 && winding != 0 {
				spanStart = c.x
				inSpan = true
			} else if before != 0 && winding == 0 && inSpan {
				fillSpan(spanStart, c.x, y, w, emit)
				inSpan = false
			}
		}
	}
}

func fillSpan(xStart, xEnd float64, y, w int, emit func(x, y int, coverage float64)) {
	if xEnd < xStart {
		xStart, xEnd = xEnd, xStart
	}
	x0 := clampInt(int(math.Floor(xStart+0.5)), 0, w)
	x1 := clampInt(int(math.Floor(xEnd+0.5)), 0, w)
	for x := x0; x < x1; x++ {
		emit(x, y, 1.0)
	}
}

// FlattenBezier subdivides a cubic Bezier into line segments, used to turn
// contentstream curve operators into the device-space polylines Path needs.
func FlattenBezier(p0, p1, p2, p3 coords.Point, segments int) []coords.Point {
	if segments < 1 {
		segments = 16
	}
	out := make([]coords.Point, 0, segments+1)
	for i := 0; i <= segments; i++ {
		t := float64(i) / float64(segments)
		mt := 1 - t
		x := mt*mt*mt*p0.X + 3*mt*mt*t*p1.X + 3*mt*t*t*p2.X + t*t*t*p3.X
		y := mt*mt*mt*p0.Y + 3*mt*mt*t*p1.Y + 3*mt*t*t*p2.Y + t*t*t*p3.Y
		out = append(out, coords.Point{X: x, Y: y})
	}
	return out
}
