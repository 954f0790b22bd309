// Package annotrender interprets an annotation's appearance stream through
// the same content-stream interpreter used for page bodies.
package annotrender

import (
	"pdfcore/contentstream"
	"pdfcore/coords"
	"pdfcore/interp"
	"pdfcore/ir/semantic"
)

const (
	flagHidden = 1 << 1
	flagNoView = 1 << 5
)

// RenderAppearance interprets annot's appearance stream onto ip's canvas,
// anchored at the annotation's Rect under pageCTM (the page's own
// device-space transform).
//
// ir/semantic.BaseAnnotation.Appearance is a raw content-stream byte slice
// with no structured BBox, Matrix, or Resources of its own, unlike a real
// appearance XObject — so unlike the general appearance-stream algorithm,
// this renders the stream directly in a coordinate system whose origin is
// the Rect's lower-left corner, using the page's own resources. A Hidden or
// NoView annotation is skipped.
func RenderAppearance(ip *interp.Interpreter, annot semantic.Annotation, pageRes *semantic.Resources, pageCTM coords.Matrix) error {
	base := annot.Base()
	if base == nil || len(base.Appearance) == 0 {
		return nil
	}
	if base.Flags&(flagHidden|flagNoView) != 0 {
		return nil
	}
	ops, err := contentstream.Parse(base.Appearance)
	if err != nil {
		return err
	}
	rect := annot.Rect()
	ctm := coords.Translate(rect.LLX, rect.LLY).Multiply(pageCTM)
	return ip.RunWithCTM(ops, pageRes, ctm)
}

// RenderPageAnnotations renders every annotation on page that carries an
// appearance stream, in document order, onto ip's canvas.
func RenderPageAnnotations(ip *interp.Interpreter, page *semantic.Page, pageCTM coords.Matrix) error {
	for _, annot := range page.Annotations {
		if err := RenderAppearance(ip, annot, page.Resources, pageCTM); err != nil {
			return err
		}
	}
	return nil
}
