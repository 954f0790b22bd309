package interp

import (
	"image"

	"pdfcore/coords"
	"pdfcore/ir/semantic"
	"pdfcore/render"
)

// materializeSoftMask implements the /SMask entry of an ExtGState: render
// the mask group into an isolated canvas and reduce it to a coverage
// buffer via render.MaterializeSoftMask.
func (ip *Interpreter) materializeSoftMask(sm *semantic.SoftMaskDict, res *semantic.Resources) (*image.Gray, error) {
	if sm == nil || sm.Group == nil {
		return nil, nil
	}
	luminosity := sm.Subtype != "Alpha"
	backdrop := render.Paint{}
	if luminosity {
		backdrop = render.Paint{Alpha: 1} // black backdrop for luminosity soft masks
	}

	groupCTM := ip.gs.CTM
	if len(sm.Group.Matrix) == 6 {
		var m coords.Matrix
		copy(m[:], sm.Group.Matrix)
		groupCTM = m.Multiply(groupCTM)
	}
	groupResources := sm.Group.Resources
	if groupResources == nil {
		groupResources = res
	}
	ops, err := parseXObjectContent(sm.Group.Data)
	if err != nil {
		return nil, err
	}

	var renderErr error
	renderGroup := func(c render.Canvas) {
		sub := &Interpreter{
			Canvas:    c,
			Colors:    ip.Colors,
			FontReg:   ip.FontReg,
			fontCache: ip.fontCache,
			gs:        initialGraphicsState(groupCTM),
			baseCTM:   ip.baseCTM,
			visiting:  ip.visiting,
			depth:     ip.depth,
			Log:       ip.Log,
			Recover:   ip.Recover,
			Sink:      ip.Sink,
		}
		if bbox := sm.Group.BBox; bbox != (semantic.Rectangle{}) {
			corners := []coords.Point{
				{X: bbox.LLX, Y: bbox.LLY}, {X: bbox.URX, Y: bbox.LLY},
				{X: bbox.URX, Y: bbox.URY}, {X: bbox.LLX, Y: bbox.URY},
			}
			dev := make([]coords.Point, 4)
			for i, pt := range corners {
				dev[i] = groupCTM.Transform(pt)
			}
			c.SetClip(render.Path{Subpaths: [][]coords.Point{dev}, Closed: []bool{true}}, false)
		}
		renderErr = sub.Run(ops, groupResources)
	}

	lut := render.IdentityTransferLUT()
	mask := render.MaterializeSoftMask(ip.Canvas, luminosity, backdrop, renderGroup, lut)
	return mask, renderErr
}
