package interp

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"pdfcore/contentstream"
	"pdfcore/coords"
	"pdfcore/ir/raw"
	"pdfcore/ir/semantic"
	"pdfcore/perr"
	"pdfcore/recovery"
	"pdfcore/render"
)

// execDo implements the Do operator: dispatch
// on the named XObject's Subtype, with a recursion guard against an
// XObject (directly or transitively) invoking itself.
func (ip *Interpreter) execDo(n string, res *semantic.Resources) error {
	if res == nil {
		return nil
	}
	xo, ok := res.XObjects[n]
	if !ok {
		return nil
	}
	switch xo.Subtype {
	case "Image":
		return ip.drawImageXObject(&xo)
	case "Form":
		return ip.execFormXObject(&xo, res)
	}
	return nil
}

func (ip *Interpreter) execFormXObject(xo *semantic.XObject, parentRes *semantic.Resources) error {
	ref := xo.OriginalRef
	guardKey := ref
	hasGuard := ref != (raw.ObjectRef{})
	if hasGuard {
		if ip.visiting[guardKey] {
			return perr.RecursionLimit(recovery.Location{Component: "interp:Do"}, fmt.Sprintf("%v", guardKey))
		}
		ip.visiting[guardKey] = true
		defer delete(ip.visiting, guardKey)
	}

	saved := ip.gs.clone()
	defer func() { ip.gs = saved }()

	if len(xo.Matrix) == 6 {
		var m coords.Matrix
		copy(m[:], xo.Matrix)
		ip.gs.CTM = m.Multiply(ip.gs.CTM)
	}
	// Clip to the form's BBox.
	bbox := xo.BBox
	if bbox != (semantic.Rectangle{}) {
		corners := []coords.Point{
			{X: bbox.LLX, Y: bbox.LLY}, {X: bbox.URX, Y: bbox.LLY},
			{X: bbox.URX, Y: bbox.URY}, {X: bbox.LLX, Y: bbox.URY},
		}
		dev := make([]coords.Point, 4)
		for i, c := range corners {
			dev[i] = ip.gs.CTM.Transform(c)
		}
		ip.Canvas.SetClip(render.Path{Subpaths: [][]coords.Point{dev}, Closed: []bool{true}}, false)
		defer ip.Canvas.ClearClip()
	}

	resources := xo.Resources
	if resources == nil {
		resources = parentRes
	}

	if xo.Group != nil {
		return ip.execFormWithGroup(xo, resources)
	}

	ops, err := formOperations(xo)
	if err != nil {
		return err
	}
	return ip.Run(ops, resources)
}

// execFormWithGroup renders a transparency-group Form into an isolated
// child canvas and composites it back.
func (ip *Interpreter) execFormWithGroup(xo *semantic.XObject, resources *semantic.Resources) error {
	ops, err := formOperations(xo)
	if err != nil {
		return err
	}
	child := ip.Canvas.BeginGroup(xo.Group.Isolated, render.Paint{})
	sub := &Interpreter{
		Canvas:    child,
		Colors:    ip.Colors,
		FontReg:   ip.FontReg,
		fontCache: ip.fontCache,
		gs:        ip.gs,
		baseCTM:   ip.baseCTM,
		visiting:  ip.visiting,
		depth:     ip.depth,
		Log:       ip.Log,
		Recover:   ip.Recover,
		Sink:      ip.Sink,
	}
	if err := sub.Run(ops, resources); err != nil {
		return err
	}
	ip.Canvas.EndGroup(child, ip.gs.FillAlpha, ip.gs.BlendMode, ip.gs.SoftMask)
	return nil
}

func formOperations(xo *semantic.XObject) ([]semantic.Operation, error) {
	return parseXObjectContent(xo.Data)
}

func parseXObjectContent(data []byte) ([]semantic.Operation, error) {
	return contentstream.Parse(data)
}

func (ip *Interpreter) drawImageXObject(xo *semantic.XObject) error {
	img, alphaOverride, err := ip.decodeImageXObject(xo)
	if err != nil {
		return err
	}
	var mask *image.Gray
	if xo.SMask != nil {
		smImg, _, err := ip.decodeImageXObject(xo.SMask)
		if err == nil {
			mask = toGrayLuminosity(smImg)
		}
	} else if alphaOverride != nil {
		mask = alphaOverride
	}
	ip.Canvas.DrawImage(img, ip.gs.CTM, ip.gs.FillAlpha, mask)
	return nil
}

func toGrayLuminosity(img image.Image) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			lum := (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(bl)) / 257
			out.SetGray(x, y, color.Gray{Y: uint8(lum)})
		}
	}
	return out
}

// decodeImageXObject renders an image XObject's samples to an image.Image.
// DCTDecode-filtered data decodes via the standard JPEG codec rather than
// a hand-rolled DCT decoder; anything else
// is treated as BitsPerComponent-packed samples in xo.ColorSpace.
func (ip *Interpreter) decodeImageXObject(xo *semantic.XObject) (image.Image, *image.Gray, error) {
	switch xo.Filter {
	case "DCTDecode":
		img, err := jpeg.Decode(bytes.NewReader(xo.Data))
		return img, nil, err
	default:
		img, err := ip.unpackRasterSamples(xo)
		return img, nil, err
	}
}

func (ip *Interpreter) unpackRasterSamples(xo *semantic.XObject) (image.Image, error) {
	cs := xo.ColorSpace
	if cs == nil {
		cs = semantic.DeviceColorSpace{Name: "DeviceGray"}
	}
	conv, convErr := ip.Colors.Resolve(cs)
	if convErr != nil {
		return nil, convErr
	}
	n := conv.NumComponents()
	bpc := xo.BitsPerComponent
	if bpc == 0 {
		bpc = 8
	}
	out := image.NewNRGBA(image.Rect(0, 0, xo.Width, xo.Height))
	maxVal := float64((uint64(1) << uint(bpc)) - 1)
	br := newBitReader(xo.Data)
	rowBits := xo.Width * n * bpc
	for y := 0; y < xo.Height; y++ {
		br.alignToByte()
		rowStart := br.bitPos
		for x := 0; x < xo.Width; x++ {
			comp := make([]float64, n)
			for c := 0; c < n; c++ {
				v := br.read(bpc)
				comp[c] = float64(v) / maxVal
			}
			r, g, b := conv.ToRGB(comp)
			out.SetNRGBA(x, y, color.NRGBA{
				R: clampByte(r * 255), G: clampByte(g * 255), B: clampByte(b * 255), A: 255,
			})
		}
		br.bitPos = rowStart + rowBits
	}
	return out, nil
}

func clampByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

type bitReader struct {
	data   []byte
	bitPos int
}

func newBitReader(data []byte) *bitReader { return &bitReader{data: data} }

func (b *bitReader) alignToByte() {
	if r := b.bitPos % 8; r != 0 {
		b.bitPos += 8 - r
	}
}

func (b *bitReader) read(width int) uint64 {
	var v uint64
	for i := 0; i < width; i++ {
		byteIdx := b.bitPos / 8
		var bit uint64
		if byteIdx < len(b.data) {
			shift := 7 - uint(b.bitPos%8)
			bit = uint64((b.data[byteIdx] >> shift) & 1)
		}
		v = (v << 1) | bit
		b.bitPos++
	}
	return v
}

func (ip *Interpreter) execInlineImage(op semantic.Operation) error {
	img, ok := op.Operands[0].(semantic.InlineImageOperand)
	if !ok {
		return nil
	}
	xo := inlineImageToXObject(img)
	return ip.drawImageXObject(xo)
}

func inlineImageToXObject(img semantic.InlineImageOperand) *semantic.XObject {
	xo := &semantic.XObject{Subtype: "Image", Data: img.Data, BitsPerComponent: 8}
	get := func(keys ...string) (semantic.Operand, bool) {
		for _, k := range keys {
			if v, ok := img.Image.Values[k]; ok {
				return v, true
			}
		}
		return nil, false
	}
	if v, ok := get("Width", "W"); ok {
		if n, ok := v.(semantic.NumberOperand); ok {
			xo.Width = int(n.Value)
		}
	}
	if v, ok := get("Height", "H"); ok {
		if n, ok := v.(semantic.NumberOperand); ok {
			xo.Height = int(n.Value)
		}
	}
	if v, ok := get("BitsPerComponent", "BPC"); ok {
		if n, ok := v.(semantic.NumberOperand); ok {
			xo.BitsPerComponent = int(n.Value)
		}
	}
	xo.ColorSpace = semantic.DeviceColorSpace{Name: "DeviceGray"}
	if v, ok := get("ColorSpace", "CS"); ok {
		if nm, ok := v.(semantic.NameOperand); ok {
			switch nm.Value {
			case "RGB", "DeviceRGB":
				xo.ColorSpace = semantic.DeviceColorSpace{Name: "DeviceRGB"}
			case "CMYK", "DeviceCMYK":
				xo.ColorSpace = semantic.DeviceColorSpace{Name: "DeviceCMYK"}
			default:
				xo.ColorSpace = semantic.DeviceColorSpace{Name: "DeviceGray"}
			}
		}
	}
	if v, ok := get("Filter", "F"); ok {
		if nm, ok := v.(semantic.NameOperand); ok {
			xo.Filter = nm.Value
		}
	}
	return xo
}
