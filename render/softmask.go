package render

import "image"

// TransferLUT is a 256-entry lookup table mapping an input coverage byte to
// an output coverage byte.
type TransferLUT [256]byte

// IdentityTransferLUT is used when the ExtGState's /TR names "Identity" or
// is absent (the field resolved by ir/semantic is a name, not a sampled
// function, so only Identity is materialized here; see DESIGN.md).
func IdentityTransferLUT() TransferLUT {
	var lut TransferLUT
	for i := range lut {
		lut[i] = byte(i)
	}
	return lut
}

// ApplyTransferLUT rewrites mask in place through lut.
func ApplyTransferLUT(mask *image.Gray, lut TransferLUT) {
	for i, v := range mask.Pix {
		mask.Pix[i] = lut[v]
	}
}

// MaterializeSoftMask renders the mask
// group's content (via renderGroup, which the interpreter supplies since
// only it can execute a content stream) into an isolated child canvas,
// reduce it to luminosity or alpha, and apply the transfer function.
func MaterializeSoftMask(parent Canvas, luminosity bool, backdrop Paint, renderGroup func(Canvas), lut TransferLUT) *image.Gray {
	child := parent.BeginGroup(true, backdrop)
	renderGroup(child)
	lumImg, alphaImg := child.Snapshot()
	var mask *image.Gray
	if luminosity {
		mask = lumImg
	} else {
		mask = alphaImg
	}
	ApplyTransferLUT(mask, lut)
	return mask
}
