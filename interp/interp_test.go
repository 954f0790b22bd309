package interp

import (
	"context"
	"testing"

	"pdfcore/colorspace"
	"pdfcore/coords"
	"pdfcore/fontresolve"
	"pdfcore/ir/raw"
	"pdfcore/ir/semantic"
	"pdfcore/perr"
	"pdfcore/recovery"
	"pdfcore/render"
)

func newTestInterpreter(w, h int) (*Interpreter, *render.RasterCanvas) {
	canvas := render.NewRasterCanvas(w, h)
	ip := NewInterpreter(canvas, colorspace.NewCache(), fontresolve.NewPredefinedCMapRegistry(), coords.Identity())
	return ip, canvas
}

func numOp(v float64) semantic.Operand { return semantic.NumberOperand{Value: v} }

func op(operator string, operands ...semantic.Operand) semantic.Operation {
	return semantic.Operation{Operator: operator, Operands: operands}
}

func TestGraphicsStateStackBalance(t *testing.T) {
	ip, _ := newTestInterpreter(10, 10)
	ops := []semantic.Operation{
		op("w", numOp(1)),
		op("q"),
		op("w", numOp(5)),
		op("Q"),
	}
	if err := ip.Run(ops, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ip.gs.LineWidth != 1 {
		t.Fatalf("LineWidth after q/Q = %v, want 1 (restored)", ip.gs.LineWidth)
	}
	if len(ip.gsStack) != 0 {
		t.Fatalf("gsStack not drained: len=%d", len(ip.gsStack))
	}
}

func TestUnbalancedQIsIgnored(t *testing.T) {
	ip, _ := newTestInterpreter(10, 10)
	if err := ip.Run([]semantic.Operation{op("Q")}, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ip.gs.LineWidth != 1 {
		t.Fatalf("stray Q mutated state: LineWidth=%v", ip.gs.LineWidth)
	}
}

func TestQCloneDoesNotAliasSlices(t *testing.T) {
	ip, _ := newTestInterpreter(10, 10)
	ops := []semantic.Operation{
		op("rg", numOp(1), numOp(0), numOp(0)),
		op("q"),
		op("rg", numOp(0), numOp(1), numOp(0)),
		op("Q"),
	}
	if err := ip.Run(ops, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	got := ip.gs.Fill.Components
	if len(got) != 3 || got[0] != 1 || got[1] != 0 || got[2] != 0 {
		t.Fatalf("Fill.Components after Q = %v, want restored red [1 0 0]", got)
	}
}

func TestPathResetsAfterPaint(t *testing.T) {
	ip, canvas := newTestInterpreter(10, 10)
	ops := []semantic.Operation{
		op("rg", numOp(1), numOp(0), numOp(0)),
		op("re", numOp(2), numOp(2), numOp(4), numOp(4)),
		op("f"),
	}
	if err := ip.Run(ops, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(ip.path.subpaths) != 0 {
		t.Fatalf("path not cleared after paint: %d subpaths remain", len(ip.path.subpaths))
	}
	px := canvas.Image().NRGBAAt(4, 5)
	if px.A == 0 {
		t.Fatalf("fill did not paint inside the rectangle: %+v", px)
	}
}

func TestClipAppliesAtNextPaint(t *testing.T) {
	ip, canvas := newTestInterpreter(10, 10)
	ops := []semantic.Operation{
		op("re", numOp(0), numOp(0), numOp(5), numOp(10)),
		op("W"),
		op("n"),
		op("rg", numOp(0), numOp(0), numOp(1)),
		op("re", numOp(0), numOp(0), numOp(10), numOp(10)),
		op("f"),
	}
	if err := ip.Run(ops, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	inside := canvas.Image().NRGBAAt(2, 5)
	outside := canvas.Image().NRGBAAt(8, 5)
	if inside.A == 0 {
		t.Fatalf("expected fill inside the clip region")
	}
	if outside.A != 0 {
		t.Fatalf("fill leaked outside the W-established clip region: %+v", outside)
	}
}

func TestColorOperatorsSetSpaceAndComponents(t *testing.T) {
	ip, _ := newTestInterpreter(10, 10)
	ops := []semantic.Operation{op("k", numOp(0), numOp(0), numOp(0), numOp(1))}
	if err := ip.Run(ops, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ip.gs.Fill.Space.ColorSpaceName() != "DeviceCMYK" {
		t.Fatalf("Fill.Space = %v, want DeviceCMYK", ip.gs.Fill.Space.ColorSpaceName())
	}
	if len(ip.gs.Fill.Components) != 4 {
		t.Fatalf("Fill.Components = %v, want 4 components", ip.gs.Fill.Components)
	}
}

func TestSCNWithPatternName(t *testing.T) {
	ip, _ := newTestInterpreter(10, 10)
	pat := &semantic.TilingPattern{BasePattern: semantic.BasePattern{Type: 1}, XStep: 10, YStep: 10}
	res := &semantic.Resources{Patterns: map[string]semantic.Pattern{"P1": pat}}
	ops := []semantic.Operation{op("scn", semantic.NameOperand{Value: "P1"})}
	if err := ip.Run(ops, res); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ip.gs.Fill.Pattern != pat {
		t.Fatalf("Fill.Pattern not resolved to the named resource")
	}
	if ip.gs.Fill.PatternName != "P1" {
		t.Fatalf("Fill.PatternName = %q, want P1", ip.gs.Fill.PatternName)
	}
}

func TestSCNUncoloredPatternKeepsLeadingComponents(t *testing.T) {
	ip, _ := newTestInterpreter(10, 10)
	pat := &semantic.TilingPattern{BasePattern: semantic.BasePattern{Type: 1}, PaintType: 2, XStep: 10, YStep: 10}
	res := &semantic.Resources{Patterns: map[string]semantic.Pattern{"P1": pat}}
	ops := []semantic.Operation{op("scn", numOp(0.5), numOp(0.25), numOp(0.1), semantic.NameOperand{Value: "P1"})}
	if err := ip.Run(ops, res); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []float64{0.5, 0.25, 0.1}
	got := ip.gs.Fill.Components
	if len(got) != len(want) {
		t.Fatalf("Fill.Components = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Fill.Components = %v, want %v", got, want)
		}
	}
}

func TestExtGStateMergesOnlyPresentFields(t *testing.T) {
	ip, _ := newTestInterpreter(10, 10)
	ip.gs.StrokeAlpha = 1
	half := 0.5
	eg := semantic.ExtGState{FillAlpha: &half}
	res := &semantic.Resources{ExtGStates: map[string]semantic.ExtGState{"GS1": eg}}
	if err := ip.applyExtGState("GS1", res); err != nil {
		t.Fatalf("applyExtGState: %v", err)
	}
	if ip.gs.FillAlpha != 0.5 {
		t.Fatalf("FillAlpha = %v, want 0.5", ip.gs.FillAlpha)
	}
	if ip.gs.StrokeAlpha != 1 {
		t.Fatalf("StrokeAlpha unexpectedly changed to %v by an ExtGState that didn't set it", ip.gs.StrokeAlpha)
	}
}

func TestTextMatrixResetOnBT(t *testing.T) {
	ip, _ := newTestInterpreter(10, 10)
	ops := []semantic.Operation{
		op("BT"),
		op("Td", numOp(3), numOp(4)),
		op("ET"),
		op("BT"),
	}
	if err := ip.Run(ops, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ip.gs.TextMatrix != coords.Identity() {
		t.Fatalf("TextMatrix after BT = %v, want identity", ip.gs.TextMatrix)
	}
}

func TestTdAccumulatesOnTextLineMatrix(t *testing.T) {
	ip, _ := newTestInterpreter(10, 10)
	ip.execTd(2, 3)
	ip.execTd(1, 1)
	want := coords.Translate(1, 1).Multiply(coords.Translate(2, 3).Multiply(coords.Identity()))
	if ip.gs.TextMatrix != want {
		t.Fatalf("TextMatrix = %v, want %v", ip.gs.TextMatrix, want)
	}
	if ip.gs.TextLineMatrix != ip.gs.TextMatrix {
		t.Fatalf("TextLineMatrix should track TextMatrix after Td")
	}
}

func TestFormXObjectRecursionGuard(t *testing.T) {
	ip, _ := newTestInterpreter(10, 10)
	ref := raw.ObjectRef{Num: 7, Gen: 0}
	form := semantic.XObject{Subtype: "Form", OriginalRef: ref, Data: []byte("/Self Do")}
	res := &semantic.Resources{XObjects: map[string]semantic.XObject{"Self": form}}
	err := ip.execFormXObject(&form, res)
	if err == nil {
		t.Fatalf("expected an error from a Form XObject that recurses into itself")
	}
}

func TestFormXObjectNoGuardWithoutRef(t *testing.T) {
	ip, _ := newTestInterpreter(10, 10)
	form := semantic.XObject{Subtype: "Form", Data: []byte("0 0 1 1 re f")}
	if err := ip.execFormXObject(&form, &semantic.Resources{}); err != nil {
		t.Fatalf("execFormXObject: %v", err)
	}
	if len(ip.visiting) != 0 {
		t.Fatalf("visiting map should stay empty for a zero-value OriginalRef")
	}
}

func TestDoDispatchesImage(t *testing.T) {
	ip, canvas := newTestInterpreter(4, 4)
	img := semantic.XObject{
		Subtype: "Image", Width: 1, Height: 1, BitsPerComponent: 8,
		ColorSpace: semantic.DeviceColorSpace{Name: "DeviceRGB"},
		Data:       []byte{255, 0, 0},
	}
	res := &semantic.Resources{XObjects: map[string]semantic.XObject{"Im1": img}}
	ip.gs.CTM = coords.Scale(4, 4)
	if err := ip.execDo("Im1", res); err != nil {
		t.Fatalf("execDo: %v", err)
	}
	px := canvas.Image().NRGBAAt(2, 2)
	if px.A == 0 {
		t.Fatalf("Do on an Image XObject should have painted the canvas: %+v", px)
	}
}

func TestWordSpaceOnlyAppliesToSingleByteSpace(t *testing.T) {
	if wordSpaceFor(1, 32, 2) != 2 {
		t.Fatalf("single-byte code 32 should get word spacing")
	}
	if wordSpaceFor(1, 65, 2) != 0 {
		t.Fatalf("single-byte non-space code should not get word spacing")
	}
	if wordSpaceFor(2, 32, 2) != 0 {
		t.Fatalf("multi-byte code equal to 32 should not get word spacing")
	}
}

func TestPatternMatrixRelativeToBaseNotCurrentCTM(t *testing.T) {
	base := coords.Translate(10, 0)
	m := patternMatrix(base, []float64{1, 0, 0, 1, 5, 0})
	want := coords.Translate(5, 0).Multiply(base)
	if m != want {
		t.Fatalf("patternMatrix = %v, want %v (relative to base, ignoring current CTM)", m, want)
	}
}

type fixedStrategy struct {
	action recovery.Action
	calls  []error
}

func (s *fixedStrategy) OnError(ctx context.Context, err error, loc recovery.Location) recovery.Action {
	s.calls = append(s.calls, err)
	return s.action
}

func TestMalformedOperatorFailsFastWithoutRecover(t *testing.T) {
	ip, _ := newTestInterpreter(10, 10)
	err := ip.Run([]semantic.Operation{op("cm", numOp(1))}, nil)
	if err == nil {
		t.Fatalf("expected an error from cm with too few operands")
	}
	if !perr.Is(err, perr.KindMalformedSyntax) {
		t.Fatalf("err = %v, want a MalformedSyntax *perr.Error", err)
	}
}

func TestMalformedOperatorSkippedWithLenientRecover(t *testing.T) {
	ip, _ := newTestInterpreter(10, 10)
	strat := &fixedStrategy{action: recovery.ActionWarn}
	ip.Recover = strat
	ops := []semantic.Operation{
		op("cm", numOp(1)), // too few operands: skipped, not fatal
		op("w", numOp(3)),  // must still execute after the skip
	}
	if err := ip.Run(ops, nil); err != nil {
		t.Fatalf("Run: %v, want nil (lenient strategy should have skipped the bad cm)", err)
	}
	if len(strat.calls) != 1 {
		t.Fatalf("Recover.OnError called %d times, want 1", len(strat.calls))
	}
	if ip.gs.LineWidth != 3 {
		t.Fatalf("LineWidth = %v, want 3 (Run must continue past the skipped operator)", ip.gs.LineWidth)
	}
}

func TestFormXObjectRecursionErrorIsRecursionLimitKind(t *testing.T) {
	ip, _ := newTestInterpreter(10, 10)
	ref := raw.ObjectRef{Num: 7, Gen: 0}
	form := semantic.XObject{Subtype: "Form", OriginalRef: ref, Data: []byte("/Self Do")}
	res := &semantic.Resources{XObjects: map[string]semantic.XObject{"Self": form}}
	ip.visiting[ref] = true
	err := ip.execFormXObject(&form, res)
	if !perr.Is(err, perr.KindRecursionLimit) {
		t.Fatalf("err = %v, want a RecursionLimit *perr.Error", err)
	}
}

func TestSoftMaskMaterializationNilWithoutGroup(t *testing.T) {
	ip, _ := newTestInterpreter(4, 4)
	mask, err := ip.materializeSoftMask(&semantic.SoftMaskDict{Subtype: "Luminosity"}, nil)
	if err != nil {
		t.Fatalf("materializeSoftMask: %v", err)
	}
	if mask != nil {
		t.Fatalf("expected a nil mask when SoftMaskDict.Group is nil")
	}
}
