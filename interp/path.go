package interp

import (
	"pdfcore/coords"
	"pdfcore/ir/semantic"
	"pdfcore/render"
)

// pathBuilder accumulates the current path in device space:
// each construction operator transforms its user-space points through the
// CTM in effect at the moment it runs, since Bezier curves are affine-
// invariant this is equivalent to transforming the finished curve.
type pathBuilder struct {
	subpaths [][]coords.Point
	closed   []bool

	currentUser coords.Point
	startUser   coords.Point
	open        bool
}

func (ip *Interpreter) execPathConstruction(op semantic.Operation) {
	p := &ip.path
	switch op.Operator {
	case "m":
		pt := coords.Point{X: num(op.Operands, 0), Y: num(op.Operands, 1)}
		p.currentUser, p.startUser = pt, pt
		p.subpaths = append(p.subpaths, []coords.Point{ip.gs.CTM.Transform(pt)})
		p.closed = append(p.closed, false)
		p.open = true
	case "l":
		pt := coords.Point{X: num(op.Operands, 0), Y: num(op.Operands, 1)}
		p.appendUser(ip, pt)
	case "c":
		p0 := p.currentUser
		p1 := coords.Point{X: num(op.Operands, 0), Y: num(op.Operands, 1)}
		p2 := coords.Point{X: num(op.Operands, 2), Y: num(op.Operands, 3)}
		p3 := coords.Point{X: num(op.Operands, 4), Y: num(op.Operands, 5)}
		p.appendCurve(ip, p0, p1, p2, p3)
	case "v":
		p0 := p.currentUser
		p2 := coords.Point{X: num(op.Operands, 0), Y: num(op.Operands, 1)}
		p3 := coords.Point{X: num(op.Operands, 2), Y: num(op.Operands, 3)}
		p.appendCurve(ip, p0, p0, p2, p3)
	case "y":
		p0 := p.currentUser
		p1 := coords.Point{X: num(op.Operands, 0), Y: num(op.Operands, 1)}
		p3 := coords.Point{X: num(op.Operands, 2), Y: num(op.Operands, 3)}
		p.appendCurve(ip, p0, p1, p3, p3)
	case "h":
		p.closeSubpath()
	case "re":
		x, y, w, h := num(op.Operands, 0), num(op.Operands, 1), num(op.Operands, 2), num(op.Operands, 3)
		corners := []coords.Point{{X: x, Y: y}, {X: x + w, Y: y}, {X: x + w, Y: y + h}, {X: x, Y: y + h}}
		dev := make([]coords.Point, len(corners))
		for i, c := range corners {
			dev[i] = ip.gs.CTM.Transform(c)
		}
		p.subpaths = append(p.subpaths, dev)
		p.closed = append(p.closed, true)
		p.currentUser, p.startUser = coords.Point{X: x, Y: y}, coords.Point{X: x, Y: y}
		p.open = true
	}
}

func (p *pathBuilder) appendUser(ip *Interpreter, pt coords.Point) {
	if !p.open {
		p.subpaths = append(p.subpaths, nil)
		p.closed = append(p.closed, false)
		p.open = true
	}
	n := len(p.subpaths) - 1
	p.subpaths[n] = append(p.subpaths[n], ip.gs.CTM.Transform(pt))
	p.currentUser = pt
}

func (p *pathBuilder) appendCurve(ip *Interpreter, p0, p1, p2, p3 coords.Point) {
	pts := render.FlattenBezier(p0, p1, p2, p3, 16)
	if !p.open {
		p.subpaths = append(p.subpaths, nil)
		p.closed = append(p.closed, false)
		p.open = true
	}
	n := len(p.subpaths) - 1
	for _, pt := range pts[1:] { // pts[0] == p0, already the current point
		p.subpaths[n] = append(p.subpaths[n], ip.gs.CTM.Transform(pt))
	}
	p.currentUser = p3
}

func (p *pathBuilder) closeSubpath() {
	if n := len(p.closed); n > 0 {
		p.closed[n-1] = true
	}
	p.currentUser = p.startUser
}

func (p *pathBuilder) devicePath() render.Path {
	return render.Path{Subpaths: p.subpaths, Closed: p.closed}
}

func (p *pathBuilder) reset() {
	p.subpaths = nil
	p.closed = nil
	p.open = false
}

// execPaint implements the cross product of fill/stroke/clear painting
// operators: fill (nonzero or even-odd), stroke, both, or
// neither ("n", used only to establish a clip).
func (ip *Interpreter) execPaint(operator string) error {
	path := ip.path.devicePath()

	doFill, doStroke, evenOdd := false, false, false
	switch operator {
	case "f", "F":
		doFill = true
	case "f*":
		doFill, evenOdd = true, true
	case "S":
		doStroke = true
	case "s":
		ip.path.closeSubpath()
		path = ip.path.devicePath()
		doStroke = true
	case "B":
		doFill, doStroke = true, true
	case "B*":
		doFill, doStroke, evenOdd = true, true, true
	case "b":
		ip.path.closeSubpath()
		path = ip.path.devicePath()
		doFill, doStroke = true, true
	case "b*":
		ip.path.closeSubpath()
		path = ip.path.devicePath()
		doFill, doStroke, evenOdd = true, true, true
	case "n":
		// no painting; clip (if pending) still applies below.
	}

	if doFill {
		ip.paintFill(path, evenOdd)
	}
	if doStroke {
		ip.paintStroke(path)
	}
	if ip.pendingClip {
		ip.Canvas.SetClip(path, ip.pendingClipEven)
		ip.pendingClip = false
	}
	ip.path.reset()
	return nil
}

func (ip *Interpreter) fillPaint() render.Paint {
	r, g, b := 0.0, 0.0, 0.0
	if ip.gs.Fill.Converter != nil {
		r, g, b = ip.gs.Fill.Converter.ToRGB(ip.gs.Fill.Components)
	}
	return render.Paint{R: r, G: g, B: b, Alpha: ip.gs.FillAlpha}
}

func (ip *Interpreter) strokePaint() render.Paint {
	r, g, b := 0.0, 0.0, 0.0
	if ip.gs.Stroke.Converter != nil {
		r, g, b = ip.gs.Stroke.Converter.ToRGB(ip.gs.Stroke.Components)
	}
	return render.Paint{R: r, G: g, B: b, Alpha: ip.gs.StrokeAlpha}
}

func (ip *Interpreter) paintFill(path render.Path, evenOdd bool) {
	if pat, ok := ip.gs.Fill.Space.(*semantic.PatternColorSpace); ok {
		if ip.gs.Fill.Pattern != nil {
			ip.paintPatternFill(path, evenOdd, ip.gs.Fill.Pattern, ip.gs.Fill.Components, pat.Underlying)
			return
		}
	}
	ip.Canvas.Fill(path, ip.fillPaint(), evenOdd)
}

func (ip *Interpreter) paintStroke(path render.Path) {
	sp := render.StrokeParams{
		Width:      ip.gs.LineWidth,
		Cap:        ip.gs.LineCap,
		Join:       ip.gs.LineJoin,
		MiterLimit: ip.gs.MiterLimit,
		Dash:       ip.gs.DashArray,
		DashPhase:  ip.gs.DashPhase,
	}
	if pat, ok := ip.gs.Stroke.Space.(*semantic.PatternColorSpace); ok && ip.gs.Stroke.Pattern != nil {
		outline := render.StrokeOutline(path, sp)
		ip.paintPatternFill(outline, false, ip.gs.Stroke.Pattern, ip.gs.Stroke.Components, pat.Underlying)
		return
	}
	ip.Canvas.Stroke(path, ip.strokePaint(), sp)
}
