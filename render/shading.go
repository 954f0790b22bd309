package render

import "math"

// ShadingFiller is an optional Canvas capability for filling a path with a
// per-pixel color function instead of a flat Paint, used for shading
// patterns and the sh operator. Canvas
// implementations that can't support it are used with a flat-color
// approximation instead (see interp's pattern handling).
type ShadingFiller interface {
	FillShaded(p Path, evenOdd bool, colorAt func(x, y int) (Paint, bool))
}

func (c *RasterCanvas) FillShaded(p Path, evenOdd bool, colorAt func(x, y int) (Paint, bool)) {
	rasterizeCoverage(p, evenOdd, c.w, c.h, func(x, y int, cov float64) {
		cov *= c.clipAt(x, y)
		if cov <= 0 {
			return
		}
		paint, ok := colorAt(x, y)
		if !ok {
			return
		}
		blendPixel(c.img, x, y, paint.toNRGBA(), cov*paint.Alpha)
	})
}

// AxialShader evaluates a Type 2 (axial) shading at device point (x, y) in
// shading space, per the s = ((x-x0)(x1-x0)+(y-y0)(y1-y0)) /
// ((x1-x0)^2+(y1-y0)^2) projection, clamped/extended per Extend.
type AxialShader struct {
	X0, Y0, X1, Y1 float64
	T0, T1         float64
	Extend0, Extend1 bool
	ColorAt        func(t float64) (Paint, bool)
}

func (a AxialShader) Eval(x, y float64) (Paint, bool) {
	dx, dy := a.X1-a.X0, a.Y1-a.Y0
	denom := dx*dx + dy*dy
	if denom == 0 {
		return a.ColorAt(a.T0)
	}
	s := ((x-a.X0)*dx + (y-a.Y0)*dy) / denom
	switch {
	case s < 0:
		if !a.Extend0 {
			return Paint{}, false
		}
		s = 0
	case s > 1:
		if !a.Extend1 {
			return Paint{}, false
		}
		s = 1
	}
	t := a.T0 + s*(a.T1-a.T0)
	return a.ColorAt(t)
}

// RadialShader evaluates a Type 3 (radial) shading between two circles,
// solving for the largest s in [0,1] (extended per Extend) such that the
// point lies on the interpolated circle, per the standard radial shading
// algorithm.
type RadialShader struct {
	X0, Y0, R0 float64
	X1, Y1, R1 float64
	T0, T1     float64
	Extend0, Extend1 bool
	ColorAt    func(t float64) (Paint, bool)
}

func (r RadialShader) Eval(px, py float64) (Paint, bool) {
	dx, dy, dr := r.X1-r.X0, r.Y1-r.Y0, r.R1-r.R0
	a := dx*dx + dy*dy - dr*dr
	fx, fy := px-r.X0, py-r.Y0
	b := 2 * (fx*dx + fy*dy + r.R0*dr)
	c := fx*fx + fy*fy - r.R0*r.R0

	var bestS float64
	found := false
	tryS := func(s float64) {
		radius := r.R0 + s*dr
		if radius < 0 {
			return
		}
		clamped := s
		extended := false
		if s < 0 {
			if !r.Extend0 {
				return
			}
			clamped, extended = 0, true
		} else if s > 1 {
			if !r.Extend1 {
				return
			}
			clamped, extended = 1, true
		}
		_ = extended
		if !found || s > bestS {
			bestS = clamped
			found = true
		}
	}

	if a == 0 {
		if b != 0 {
			tryS(-c / b)
		}
	} else {
		disc := b*b - 4*a*c
		if disc >= 0 {
			sq := math.Sqrt(disc)
			tryS((-b + sq) / (2 * a))
			tryS((-b - sq) / (2 * a))
		}
	}
	if !found {
		return Paint{}, false
	}
	t := r.T0 + bestS*(r.T1-r.T0)
	return r.ColorAt(t)
}
