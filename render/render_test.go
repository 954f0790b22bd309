package render

import (
	"image/color"
	"testing"

	"pdfcore/coords"
)

func TestFillSolidRectangle(t *testing.T) {
	c := NewRasterCanvas(10, 10)
	rect := Path{
		Subpaths: [][]coords.Point{{{X: 2, Y: 2}, {X: 8, Y: 2}, {X: 8, Y: 8}, {X: 2, Y: 8}}},
		Closed:   []bool{true},
	}
	c.Fill(rect, Paint{R: 1, G: 0, B: 0, Alpha: 1}, false)

	px := c.Image().NRGBAAt(5, 5)
	if px.R != 255 || px.A != 255 {
		t.Fatalf("center pixel = %+v, want opaque red", px)
	}
	outside := c.Image().NRGBAAt(0, 0)
	if outside.A != 0 {
		t.Fatalf("outside pixel = %+v, want transparent", outside)
	}
}

func TestEvenOddVsNonzeroDonut(t *testing.T) {
	// Two concentric squares wound the same direction: nonzero fills the
	// hole (winding 2 inside, still nonzero), even-odd leaves it unfilled.
	outer := []coords.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	inner := []coords.Point{{X: 3, Y: 3}, {X: 7, Y: 3}, {X: 7, Y: 7}, {X: 3, Y: 7}}
	p := Path{Subpaths: [][]coords.Point{outer, inner}, Closed: []bool{true, true}}

	evenOdd := NewRasterCanvas(10, 10)
	evenOdd.Fill(p, Paint{R: 1, Alpha: 1}, true)
	if evenOdd.Image().NRGBAAt(5, 5).A != 0 {
		t.Fatalf("even-odd: center of donut hole should be unfilled")
	}

	nonzero := NewRasterCanvas(10, 10)
	nonzero.Fill(p, Paint{R: 1, Alpha: 1}, false)
	if nonzero.Image().NRGBAAt(5, 5).A == 0 {
		t.Fatalf("nonzero: same-direction inner square should still be filled")
	}
}

func TestBlendModeMultiplyDarkens(t *testing.T) {
	backdrop := color.NRGBA{R: 200, G: 200, B: 200, A: 255}
	src := color.NRGBA{R: 100, G: 100, B: 100, A: 255}
	out := applyBlendMode("Multiply", backdrop, src)
	if out.R >= backdrop.R {
		t.Fatalf("multiply should darken: got %d, backdrop %d", out.R, backdrop.R)
	}
}

func TestBlendModeNormalPassesThroughSource(t *testing.T) {
	backdrop := color.NRGBA{R: 10, G: 20, B: 30, A: 255}
	src := color.NRGBA{R: 200, G: 200, B: 200, A: 255}
	out := applyBlendMode("Normal", backdrop, src)
	if out != src {
		t.Fatalf("normal blend = %+v, want src %+v", out, src)
	}
}

func TestAxialShaderClampsOutsideExtend(t *testing.T) {
	shader := AxialShader{
		X0: 0, Y0: 0, X1: 10, Y1: 0, T0: 0, T1: 1,
		ColorAt: func(t float64) (Paint, bool) { return Paint{R: t, Alpha: 1}, true },
	}
	if _, ok := shader.Eval(-5, 0); ok {
		t.Fatalf("expected miss with Extend0=false")
	}
	shader.Extend0 = true
	p, ok := shader.Eval(-5, 0)
	if !ok || p.R != 0 {
		t.Fatalf("got %+v, %v, want clamped to t=0", p, ok)
	}
	p, ok = shader.Eval(5, 0)
	if !ok || p.R != 0.5 {
		t.Fatalf("midpoint got %+v, %v, want t=0.5", p, ok)
	}
}

func TestRadialShaderConcentricCircles(t *testing.T) {
	shader := RadialShader{
		X0: 5, Y0: 5, R0: 0,
		X1: 5, Y1: 5, R1: 5,
		T0: 0, T1: 1,
		ColorAt: func(t float64) (Paint, bool) { return Paint{R: t, Alpha: 1}, true },
	}
	p, ok := shader.Eval(5, 5)
	if !ok || p.R != 0 {
		t.Fatalf("center got %+v, %v, want t=0", p, ok)
	}
	p, ok = shader.Eval(10, 5)
	if !ok || p.R < 0.9 {
		t.Fatalf("edge got %+v, %v, want t close to 1", p, ok)
	}
}

func TestStrokeProducesOpaqueLine(t *testing.T) {
	c := NewRasterCanvas(20, 20)
	line := Path{Subpaths: [][]coords.Point{{{X: 2, Y: 10}, {X: 18, Y: 10}}}, Closed: []bool{false}}
	c.Stroke(line, Paint{G: 1, Alpha: 1}, StrokeParams{Width: 4, Cap: 0})
	if c.Image().NRGBAAt(10, 10).A == 0 {
		t.Fatalf("expected stroked pixel to be opaque")
	}
}

func TestSoftMaskMaterializeLuminosity(t *testing.T) {
	parent := NewRasterCanvas(4, 4)
	lut := IdentityTransferLUT()
	mask := MaterializeSoftMask(parent, true, Paint{}, func(c Canvas) {
		rc := c.(*RasterCanvas)
		rect := Path{Subpaths: [][]coords.Point{{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}}}, Closed: []bool{true}}
		rc.Fill(rect, Paint{R: 1, G: 1, B: 1, Alpha: 1}, false)
	}, lut)
	if mask.GrayAt(0, 0).Y != 255 {
		t.Fatalf("white fill should yield full luminosity, got %d", mask.GrayAt(0, 0).Y)
	}
}
