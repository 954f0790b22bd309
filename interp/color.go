package interp

import (
	"pdfcore/ir/semantic"
)

func (ip *Interpreter) execColor(op semantic.Operation, res *semantic.Resources) error {
	switch op.Operator {
	case "g":
		ip.setColorSpace(&ip.gs.Fill, semantic.DeviceColorSpace{Name: "DeviceGray"})
		ip.gs.Fill.Components = []float64{num(op.Operands, 0)}
		ip.gs.Fill.Pattern, ip.gs.Fill.PatternName = nil, ""
	case "G":
		ip.setColorSpace(&ip.gs.Stroke, semantic.DeviceColorSpace{Name: "DeviceGray"})
		ip.gs.Stroke.Components = []float64{num(op.Operands, 0)}
		ip.gs.Stroke.Pattern, ip.gs.Stroke.PatternName = nil, ""
	case "rg":
		ip.setColorSpace(&ip.gs.Fill, semantic.DeviceColorSpace{Name: "DeviceRGB"})
		ip.gs.Fill.Components = allNumbers(op.Operands)
		ip.gs.Fill.Pattern, ip.gs.Fill.PatternName = nil, ""
	case "RG":
		ip.setColorSpace(&ip.gs.Stroke, semantic.DeviceColorSpace{Name: "DeviceRGB"})
		ip.gs.Stroke.Components = allNumbers(op.Operands)
		ip.gs.Stroke.Pattern, ip.gs.Stroke.PatternName = nil, ""
	case "k":
		ip.setColorSpace(&ip.gs.Fill, semantic.DeviceColorSpace{Name: "DeviceCMYK"})
		ip.gs.Fill.Components = allNumbers(op.Operands)
		ip.gs.Fill.Pattern, ip.gs.Fill.PatternName = nil, ""
	case "K":
		ip.setColorSpace(&ip.gs.Stroke, semantic.DeviceColorSpace{Name: "DeviceCMYK"})
		ip.gs.Stroke.Components = allNumbers(op.Operands)
		ip.gs.Stroke.Pattern, ip.gs.Stroke.PatternName = nil, ""
	case "cs":
		cs, err := ip.resolveColorSpaceName(name(op.Operands, 0), res)
		if err != nil {
			return err
		}
		ip.setColorSpace(&ip.gs.Fill, cs)
		ip.gs.Fill.Components = ip.gs.Fill.Converter.Default()
		ip.gs.Fill.Pattern, ip.gs.Fill.PatternName = nil, ""
	case "CS":
		cs, err := ip.resolveColorSpaceName(name(op.Operands, 0), res)
		if err != nil {
			return err
		}
		ip.setColorSpace(&ip.gs.Stroke, cs)
		ip.gs.Stroke.Components = ip.gs.Stroke.Converter.Default()
		ip.gs.Stroke.Pattern, ip.gs.Stroke.PatternName = nil, ""
	case "sc":
		ip.gs.Fill.Components = allNumbers(op.Operands)
	case "SC":
		ip.gs.Stroke.Components = allNumbers(op.Operands)
	case "scn":
		return ip.setColorWithPattern(&ip.gs.Fill, op.Operands, res)
	case "SCN":
		return ip.setColorWithPattern(&ip.gs.Stroke, op.Operands, res)
	}
	return nil
}

func (ip *Interpreter) setColorSpace(slot *ColorState, cs semantic.ColorSpace) {
	slot.Space = cs
	conv, err := ip.Colors.Resolve(cs)
	if err != nil {
		conv, _ = ip.Colors.Resolve(semantic.DeviceColorSpace{Name: "DeviceGray"})
	}
	slot.Converter = conv
}

func (ip *Interpreter) resolveColorSpaceName(n string, res *semantic.Resources) (semantic.ColorSpace, error) {
	switch n {
	case "DeviceGray", "DeviceRGB", "DeviceCMYK", "Pattern":
		return semantic.DeviceColorSpace{Name: n}, nil
	}
	if res != nil {
		if cs, ok := res.ColorSpaces[n]; ok {
			return cs, nil
		}
	}
	return semantic.DeviceColorSpace{Name: "DeviceGray"}, nil
}

// setColorWithPattern implements scn/SCN: a plain color in the current
// space, or (for the Pattern color space) a trailing pattern-name operand
// with optional leading components for an uncolored tiling pattern.
func (ip *Interpreter) setColorWithPattern(slot *ColorState, operands []semantic.Operand, res *semantic.Resources) error {
	if len(operands) == 0 {
		return nil
	}
	if n, ok := operands[len(operands)-1].(semantic.NameOperand); ok {
		slot.PatternName = n.Value
		slot.Components = allNumbers(operands[:len(operands)-1])
		if res != nil {
			if pat, ok := res.Patterns[n.Value]; ok {
				slot.Pattern = pat
				return nil
			}
		}
		slot.Pattern = nil
		return nil
	}
	slot.Components = allNumbers(operands)
	slot.Pattern, slot.PatternName = nil, ""
	return nil
}

// applyExtGState implements the gs operator: merge the named
// ExtGState dictionary's present fields into the current graphics state.
func (ip *Interpreter) applyExtGState(n string, res *semantic.Resources) error {
	if res == nil {
		return nil
	}
	eg, ok := res.ExtGStates[n]
	if !ok {
		return nil
	}
	if eg.LineWidth != nil {
		ip.gs.LineWidth = *eg.LineWidth
	}
	if eg.StrokeAlpha != nil {
		ip.gs.StrokeAlpha = *eg.StrokeAlpha
	}
	if eg.FillAlpha != nil {
		ip.gs.FillAlpha = *eg.FillAlpha
	}
	if eg.BlendMode != "" {
		ip.gs.BlendMode = eg.BlendMode
	}
	if eg.OverprintFill != nil {
		ip.gs.OverprintFill = *eg.OverprintFill
	}
	if eg.Overprint != nil {
		ip.gs.OverprintStroke = *eg.Overprint
	}
	if eg.OverprintMode != nil {
		ip.gs.OverprintMode = *eg.OverprintMode
	}
	if eg.SoftMask != nil {
		mask, err := ip.materializeSoftMask(eg.SoftMask, res)
		if err != nil {
			return err
		}
		ip.gs.SoftMask = mask
	}
	return nil
}
