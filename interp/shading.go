package interp

import (
	"math"

	"pdfcore/colorspace"
	"pdfcore/coords"
	"pdfcore/function"
	"pdfcore/ir/semantic"
	"pdfcore/render"
)

// execShading implements the sh operator: paint the named
// shading across the current clipping region using the canvas's existing
// clip mask.
func (ip *Interpreter) execShading(n string, res *semantic.Resources) error {
	if res == nil {
		return nil
	}
	sh, ok := res.Shadings[n]
	if !ok {
		return nil
	}
	eval, err := ip.shadingEvaluator(sh, ip.gs.CTM)
	if err != nil || eval == nil {
		return err
	}
	filler, ok := ip.Canvas.(render.ShadingFiller)
	if !ok {
		// No per-pixel capability: approximate with the midpoint color
		// (documented simplification, see DESIGN.md).
		w, h := ip.Canvas.Bounds()
		paint, ok := eval(w/2, h/2)
		if ok {
			ip.Canvas.Fill(fullCanvasPath(w, h), paint, false)
		}
		return nil
	}
	w, h := ip.Canvas.Bounds()
	filler.FillShaded(fullCanvasPath(w, h), false, eval)
	return nil
}

func fullCanvasPath(w, h int) render.Path {
	r := []coords.Point{{X: 0, Y: 0}, {X: float64(w), Y: 0}, {X: float64(w), Y: float64(h)}, {X: 0, Y: float64(h)}}
	return render.Path{Subpaths: [][]coords.Point{r}, Closed: []bool{true}}
}

// shadingEvaluator builds a device-pixel -> Paint function for sh, mapping
// device space back into shading space via the inverse of spaceToDevice
// Axial/radial evaluation happens in the shading's own
// coordinate space, not device space).
func (ip *Interpreter) shadingEvaluator(sh semantic.Shading, spaceToDevice coords.Matrix) (func(x, y int) (render.Paint, bool), error) {
	fs, ok := sh.(*semantic.FunctionShading)
	if !ok {
		// Mesh shadings (Type 4-7) are not rasterized: out of scope for this
		// interpreter's triangle/patch mesh support (see DESIGN.md).
		return nil, nil
	}
	conv, err := ip.Colors.Resolve(fs.ShadingColorSpace())
	if err != nil {
		return nil, err
	}
	colorAt := shadingColorFn(fs, conv)

	inv, err := spaceToDevice.Inverse()
	if err != nil {
		return nil, nil
	}

	t0, t1 := 0.0, 1.0
	if len(fs.Domain) >= 2 {
		t0, t1 = fs.Domain[0], fs.Domain[1]
	}
	ext0, ext1 := false, false
	if len(fs.Extend) >= 2 {
		ext0, ext1 = fs.Extend[0], fs.Extend[1]
	}

	switch fs.Type {
	case 2:
		if len(fs.Coords) < 4 {
			return nil, nil
		}
		shader := render.AxialShader{
			X0: fs.Coords[0], Y0: fs.Coords[1], X1: fs.Coords[2], Y1: fs.Coords[3],
			T0: t0, T1: t1, Extend0: ext0, Extend1: ext1, ColorAt: colorAt,
		}
		return func(x, y int) (render.Paint, bool) {
			p := inv.Transform(coords.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5})
			return shader.Eval(p.X, p.Y)
		}, nil
	case 3:
		if len(fs.Coords) < 6 {
			return nil, nil
		}
		shader := render.RadialShader{
			X0: fs.Coords[0], Y0: fs.Coords[1], R0: fs.Coords[2],
			X1: fs.Coords[3], Y1: fs.Coords[4], R1: fs.Coords[5],
			T0: t0, T1: t1, Extend0: ext0, Extend1: ext1, ColorAt: colorAt,
		}
		return func(x, y int) (render.Paint, bool) {
			p := inv.Transform(coords.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5})
			return shader.Eval(p.X, p.Y)
		}, nil
	default:
		// Function-based (Type 1) shadings use a 2-in function directly over
		// Domain's 2D rectangle rather than a 1D parametric axis.
		return shadingType1Fn(fs, conv, inv), nil
	}
}

func shadingColorFn(fs *semantic.FunctionShading, conv colorspace.Converter) func(t float64) (render.Paint, bool) {
	return func(t float64) (render.Paint, bool) {
		var out []float64
		if len(fs.Function) == 1 {
			res, err := function.Evaluate(fs.Function[0], []float64{t})
			if err != nil {
				return render.Paint{}, false
			}
			out = res
		} else {
			out = make([]float64, len(fs.Function))
			for i, fn := range fs.Function {
				res, err := function.Evaluate(fn, []float64{t})
				if err != nil || len(res) == 0 {
					return render.Paint{}, false
				}
				out[i] = res[0]
			}
		}
		r, g, b := conv.ToRGB(out)
		return render.Paint{R: r, G: g, B: b, Alpha: 1}, true
	}
}

func shadingType1Fn(fs *semantic.FunctionShading, conv colorspace.Converter, inv coords.Matrix) func(x, y int) (render.Paint, bool) {
	domain := fs.Domain
	if len(domain) < 4 {
		domain = []float64{0, 1, 0, 1}
	}
	return func(x, y int) (render.Paint, bool) {
		p := inv.Transform(coords.Point{X: float64(x) + 0.5, Y: float64(y) + 0.5})
		if p.X < domain[0] || p.X > domain[1] || p.Y < domain[2] || p.Y > domain[3] {
			return render.Paint{}, false
		}
		if len(fs.Function) == 0 {
			return render.Paint{}, false
		}
		var out []float64
		var err error
		if len(fs.Function) == 1 {
			out, err = function.Evaluate(fs.Function[0], []float64{p.X, p.Y})
		} else {
			out = make([]float64, len(fs.Function))
			for i, fn := range fs.Function {
				r, e := function.Evaluate(fn, []float64{p.X, p.Y})
				if e != nil || len(r) == 0 {
					return render.Paint{}, false
				}
				out[i] = r[0]
			}
		}
		if err != nil {
			return render.Paint{}, false
		}
		r, g, b := conv.ToRGB(out)
		return render.Paint{R: r, G: g, B: b, Alpha: 1}, true
	}
}

// paintPatternFill fills path with a tiling or shading pattern. Patterns
// are positioned relative to the stream's default coordinate system
// (ip.baseCTM), not the current CTM.
func (ip *Interpreter) paintPatternFill(path render.Path, evenOdd bool, pat semantic.Pattern, uncolored []float64, underlying semantic.ColorSpace) {
	switch p := pat.(type) {
	case *semantic.ShadingPattern:
		ip.paintShadingPattern(path, evenOdd, p)
	case *semantic.TilingPattern:
		ip.paintTilingPattern(path, evenOdd, p, uncolored, underlying)
	}
}

func patternMatrix(base coords.Matrix, pat []float64) coords.Matrix {
	m := coords.Identity()
	if len(pat) == 6 {
		copy(m[:], pat)
	}
	return m.Multiply(base)
}

func (ip *Interpreter) paintShadingPattern(path render.Path, evenOdd bool, p *semantic.ShadingPattern) {
	spaceToDevice := patternMatrix(ip.baseCTM, p.Matrix)
	eval, err := ip.shadingEvaluator(p.Shading, spaceToDevice)
	if err != nil || eval == nil {
		return
	}
	filler, ok := ip.Canvas.(render.ShadingFiller)
	if !ok {
		paint, ok := eval(0, 0)
		if ok {
			ip.Canvas.Fill(path, paint, evenOdd)
		}
		return
	}
	filler.FillShaded(path, evenOdd, eval)
}

// paintTilingPattern clips to path, then replays the pattern's content
// stream once per tile cell overlapping path's bounding box in pattern space.
func (ip *Interpreter) paintTilingPattern(path render.Path, evenOdd bool, p *semantic.TilingPattern, uncolored []float64, underlying semantic.ColorSpace) {
	if p.XStep == 0 || p.YStep == 0 {
		return
	}
	spaceToDevice := patternMatrix(ip.baseCTM, p.Matrix)
	inv, err := spaceToDevice.Inverse()
	if err != nil {
		return
	}

	minX, minY, maxX, maxY := math.Inf(1), math.Inf(1), math.Inf(-1), math.Inf(-1)
	for _, sub := range path.Subpaths {
		for _, pt := range sub {
			local := inv.Transform(pt)
			minX, maxX = math.Min(minX, local.X), math.Max(maxX, local.X)
			minY, maxY = math.Min(minY, local.Y), math.Max(maxY, local.Y)
		}
	}
	if math.IsInf(minX, 1) {
		return
	}
	col0 := int(math.Floor((minX - p.BBox.LLX) / p.XStep))
	col1 := int(math.Ceil((maxX - p.BBox.LLX) / p.XStep))
	row0 := int(math.Floor((minY - p.BBox.LLY) / p.YStep))
	row1 := int(math.Ceil((maxY - p.BBox.LLY) / p.YStep))
	const maxTiles = 4096
	if (col1-col0+1)*(row1-row0+1) > maxTiles {
		// Degenerate or absurdly fine pattern step: fall back to a flat
		// approximation rather than spending unbounded time tiling.
		ip.Canvas.Fill(path, render.Paint{Alpha: 0.5}, evenOdd)
		return
	}

	ops, err := parseXObjectContent(p.Content)
	if err != nil {
		return
	}

	ip.Canvas.SetClip(path, evenOdd)
	defer ip.Canvas.ClearClip()

	for row := row0; row <= row1; row++ {
		for col := col0; col <= col1; col++ {
			tileCTM := coords.Translate(float64(col)*p.XStep, float64(row)*p.YStep).Multiply(spaceToDevice)
			sub := &Interpreter{
				Canvas:    ip.Canvas,
				Colors:    ip.Colors,
				FontReg:   ip.FontReg,
				fontCache: ip.fontCache,
				gs:        initialGraphicsState(tileCTM),
				baseCTM:   tileCTM,
				visiting:  ip.visiting,
				depth:     ip.depth,
				Log:       ip.Log,
				Recover:   ip.Recover,
				Sink:      ip.Sink,
			}
			if p.PaintType == 2 && underlying != nil {
				sub.gs.Fill.Components = uncolored
				sub.gs.Stroke.Components = uncolored
				conv, err := ip.Colors.Resolve(underlying)
				if err == nil {
					sub.gs.Fill.Converter = conv
					sub.gs.Stroke.Converter = conv
				}
			}
			_ = sub.Run(ops, p.Resources)
		}
	}
}
