package extractor

import (
	"pdfcore/coords"
	"pdfcore/interp"
	"pdfcore/ir/semantic"
	"pdfcore/recovery"
	"pdfcore/render"
)

// PositionedChar is one character shown on a page, together with the text
// rendering matrix in effect when it was shown: text space to the page's
// own user space, not a device raster.
type PositionedChar struct {
	Text   string
	Matrix coords.Matrix
}

// Origin returns the glyph origin's page user-space position.
func (c PositionedChar) Origin() coords.Point {
	return c.Matrix.Transform(coords.Point{})
}

// PageText captures one page's extracted characters, in content-stream
// (reading) order, along with its computed page label.
type PageText struct {
	Page  int
	Label string
	Chars []PositionedChar
}

// Content joins a page's characters into one string, inserting a newline
// wherever the glyph origin's Y coordinate moves relative to the previous
// glyph: text on the same line shares a baseline, a changed Y marks a new
// one.
func (p PageText) Content() string {
	var out []byte
	lastY, have := 0.0, false
	for _, c := range p.Chars {
		y := c.Origin().Y
		if have && y != lastY {
			out = append(out, '\n')
		}
		out = append(out, c.Text...)
		lastY, have = y, true
	}
	return string(out)
}

// ExtractText runs every page's content streams through the content-stream
// interpreter and records each glyph Tj/TJ/'/" shows, regardless of
// TextRenderMode, so invisible OCR text layers extract too. A page whose
// content cannot be fully interpreted still returns whatever glyphs were
// shown before the failing operator, via a lenient recovery.Strategy.
func (e *Extractor) ExtractText() ([]PageText, error) {
	out := make([]PageText, 0, len(e.doc.Pages))
	for _, page := range e.doc.Pages {
		chars := e.extractPageText(page)
		if len(chars) == 0 {
			continue
		}
		out = append(out, PageText{
			Page:  page.Index,
			Label: e.pageLabels[page.Index],
			Chars: chars,
		})
	}
	return out, nil
}

type glyphSink struct {
	chars []PositionedChar
}

func (s *glyphSink) EmitGlyph(code uint32, unicode string, trm coords.Matrix) {
	if unicode == "" {
		return
	}
	s.chars = append(s.chars, PositionedChar{Text: unicode, Matrix: trm})
}

// extractPageText drives one page through a fresh Interpreter whose Sink
// records glyphs instead of an actual Canvas painting them; a recoverable
// operator error truncates the page's text rather than failing the whole
// extraction.
func (e *Extractor) extractPageText(page *semantic.Page) []PositionedChar {
	w, h := pageCanvasSize(page.MediaBox)
	canvas := render.NewRasterCanvas(w, h)
	ip := interp.NewInterpreter(canvas, e.colors, e.fontReg, coords.Identity())
	ip.Recover = recovery.NewLenientStrategy(nil)
	sink := &glyphSink{}
	ip.Sink = sink
	_ = ip.ExecutePage(page)
	return sink.chars
}

func pageCanvasSize(box semantic.Rectangle) (int, int) {
	w, h := int(box.URX-box.LLX), int(box.URY-box.LLY)
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	return w, h
}
