package interp

import (
	"pdfcore/coords"
	"pdfcore/fontresolve"
	"pdfcore/ir/semantic"
	"pdfcore/render"
)

// TextSink observes glyphs as Tj/TJ/'/" show them, independent of whether
// the interpreter paints them: used by callers that need character
// positions (text extraction) rather than pixels.
type TextSink interface {
	// EmitGlyph reports one shown glyph: code is the raw character code,
	// unicode is the font's best-effort Unicode mapping (empty if
	// unavailable), and trm is the text rendering matrix (text space to
	// the interpreter's CTM space) at the moment the glyph was shown.
	EmitGlyph(code uint32, unicode string, trm coords.Matrix)
}

func (ip *Interpreter) execSetFont(n string, size float64, res *semantic.Resources) error {
	ip.gs.FontSize = size
	if res == nil {
		return nil
	}
	f, ok := res.Fonts[n]
	if !ok {
		return nil
	}
	if rf, ok := ip.fontCache[f]; ok {
		ip.gs.Font = rf
		return nil
	}
	rf, err := fontresolve.Resolve(f, ip.FontReg)
	if err != nil {
		return err
	}
	ip.fontCache[f] = rf
	ip.gs.Font = rf
	return nil
}

func (ip *Interpreter) execTd(tx, ty float64) {
	m := coords.Translate(tx, ty).Multiply(ip.gs.TextLineMatrix)
	ip.gs.TextMatrix = m
	ip.gs.TextLineMatrix = m
}

func (ip *Interpreter) showTextArray(operands []semantic.Operand, res *semantic.Resources) error {
	if len(operands) == 0 {
		return nil
	}
	arr, ok := operands[0].(semantic.ArrayOperand)
	if !ok {
		return nil
	}
	for _, item := range arr.Values {
		switch v := item.(type) {
		case semantic.StringOperand:
			if err := ip.showText(v.Value, res); err != nil {
				return err
			}
		case semantic.NumberOperand:
			// A number in a TJ array is a horizontal displacement in
			// thousandths of text space, opposite the writing direction
			// (the glyph-positioning adjustment).
			adj := -v.Value / 1000 * ip.gs.FontSize * ip.gs.HScale
			ip.gs.TextMatrix = coords.Translate(adj, 0).Multiply(ip.gs.TextMatrix)
		}
	}
	return nil
}

// showText implements Tj: decode codes from s, advance the text matrix per
// glyph per the standard advance formula, and paint each glyph unless the render
// mode is invisible (Tr 3) or clip-only (Tr 7).
func (ip *Interpreter) showText(s []byte, res *semantic.Resources) error {
	font := ip.gs.Font
	if font == nil || len(s) == 0 {
		return nil
	}
	for len(s) > 0 {
		code, n := font.NextCode(s)
		if n <= 0 {
			break
		}
		s = s[n:]

		w0 := font.Width(code) / 1000

		if ip.Sink != nil {
			trm := coords.Matrix{ip.gs.FontSize * ip.gs.HScale, 0, 0, ip.gs.FontSize, 0, ip.gs.TextRise}.
				Multiply(ip.gs.TextMatrix).Multiply(ip.gs.CTM)
			unicode, _ := font.Unicode(code)
			ip.Sink.EmitGlyph(code, unicode, trm)
		}

		if ip.gs.TextRenderMode != 3 && ip.gs.TextRenderMode != 7 {
			if err := ip.renderGlyph(font, code, res); err != nil {
				return err
			}
		}

		tx := (w0*ip.gs.FontSize + ip.gs.CharSpace + wordSpaceFor(n, code, ip.gs.WordSpace)) * ip.gs.HScale
		ip.gs.TextMatrix = coords.Translate(tx, 0).Multiply(ip.gs.TextMatrix)
	}
	return nil
}

// wordSpaceFor applies Tw only to single-byte code 32, per the PDF
// edge case (word spacing never applies to multi-byte composite-font codes).
func wordSpaceFor(codeLen int, code uint32, tw float64) float64 {
	if codeLen == 1 && code == 32 {
		return tw
	}
	return 0
}

// renderGlyph paints one glyph. Type3 glyphs execute their charproc content
// stream under the glyph-space-to-text-space FontMatrix; all other fonts
// render as a filled advance-width box scaled to the font's cap height,
// since this interpreter does not parse glyf/CFF outlines (documented
// simplification, see DESIGN.md "Glyph outline rendering").
func (ip *Interpreter) renderGlyph(font fontresolve.ResolvedFont, code uint32, res *semantic.Resources) error {
	trm := coords.Matrix{ip.gs.FontSize * ip.gs.HScale, 0, 0, ip.gs.FontSize, 0, ip.gs.TextRise}.
		Multiply(ip.gs.TextMatrix).Multiply(ip.gs.CTM)

	if t3, ok := font.(interface {
		CharProc(uint32) ([]byte, bool)
		FontMatrix() []float64
		Resources() *semantic.Resources
	}); ok {
		proc, ok := t3.CharProc(code)
		if !ok {
			return nil
		}
		fm := t3.FontMatrix()
		if len(fm) != 6 {
			fm = []float64{0.001, 0, 0, 0.001, 0, 0}
		}
		var m coords.Matrix
		copy(m[:], fm)

		saved := ip.gs.clone()
		ip.gs.CTM = m.Multiply(trm)
		glyphRes := t3.Resources()
		if glyphRes == nil {
			glyphRes = res
		}
		ops, err := parseXObjectContent(proc)
		if err != nil {
			ip.gs = saved
			return err
		}
		err = ip.Run(ops, glyphRes)
		ip.gs = saved
		return err
	}

	w0 := font.Width(code) / 1000
	if w0 <= 0 {
		return nil
	}
	const approxCapHeight = 0.66 // fraction of the em box, lacking real glyph metrics
	corners := []coords.Point{{X: 0, Y: 0}, {X: w0, Y: 0}, {X: w0, Y: approxCapHeight}, {X: 0, Y: approxCapHeight}}
	dev := make([]coords.Point, 4)
	for i, c := range corners {
		dev[i] = trm.Transform(c)
	}
	path := render.Path{Subpaths: [][]coords.Point{dev}, Closed: []bool{true}}
	switch ip.gs.TextRenderMode {
	case 1, 5:
		ip.paintStroke(path)
	case 2, 6:
		ip.paintFill(path, false)
		ip.paintStroke(path)
	default:
		ip.paintFill(path, false)
	}
	return nil
}
