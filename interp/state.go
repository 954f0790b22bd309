// Package interp executes a parsed content stream against a render.Canvas,
// maintaining the PDF graphics state machine: CTM, color, text, and
// clipping state, plus the q/Q save/restore stack.
package interp

import (
	"image"

	"pdfcore/colorspace"
	"pdfcore/coords"
	"pdfcore/fontresolve"
	"pdfcore/ir/semantic"
)

// ColorState is one of the fill or stroke color slots: a resolved
// color-space converter, its native-space components, and (for the Pattern
// color space) the named pattern resource to paint with instead of a flat
// color.
type ColorState struct {
	Space      semantic.ColorSpace
	Converter  colorspace.Converter
	Components []float64
	Pattern    semantic.Pattern
	PatternName string
}

func defaultColorState() ColorState {
	return ColorState{
		Space:      semantic.DeviceColorSpace{Name: "DeviceGray"},
		Converter:  nil,
		Components: []float64{0},
	}
}

// GraphicsState is the PDF graphics state: everything q/Q
// saves and restores.
type GraphicsState struct {
	CTM coords.Matrix

	LineWidth  float64
	LineCap    int
	LineJoin   int
	MiterLimit float64
	DashArray  []float64
	DashPhase  float64
	RenderingIntent string

	Fill   ColorState
	Stroke ColorState

	FillAlpha   float64
	StrokeAlpha float64
	BlendMode   string
	SoftMask    *image.Gray
	Knockout    bool
	OverprintFill   bool
	OverprintStroke bool
	OverprintMode   int

	Font           fontresolve.ResolvedFont
	FontSize       float64
	CharSpace      float64
	WordSpace      float64
	HScale         float64
	Leading        float64
	TextRise       float64
	TextRenderMode int

	TextMatrix     coords.Matrix
	TextLineMatrix coords.Matrix
}

// initialGraphicsState is the state a content stream begins execution in,
// per the PDF graphics-state defaults.
func initialGraphicsState(ctm coords.Matrix) GraphicsState {
	return GraphicsState{
		CTM:        ctm,
		LineWidth:  1,
		MiterLimit: 10,
		Fill:       defaultColorState(),
		Stroke:     defaultColorState(),
		FillAlpha:  1,
		StrokeAlpha: 1,
		BlendMode:  "Normal",
		HScale:     1,

		TextMatrix:     coords.Identity(),
		TextLineMatrix: coords.Identity(),
	}
}

// clone deep-copies the mutable slice fields so a later mutation through one
// stack frame can't leak into another after q/Q.
func (g GraphicsState) clone() GraphicsState {
	if len(g.DashArray) > 0 {
		g.DashArray = append([]float64(nil), g.DashArray...)
	}
	if len(g.Fill.Components) > 0 {
		g.Fill.Components = append([]float64(nil), g.Fill.Components...)
	}
	if len(g.Stroke.Components) > 0 {
		g.Stroke.Components = append([]float64(nil), g.Stroke.Components...)
	}
	return g
}
