package interp

import (
	"fmt"

	"pdfcore/coords"
	"pdfcore/ir/semantic"
)

func num(operands []semantic.Operand, i int) float64 {
	if i < 0 || i >= len(operands) {
		return 0
	}
	if n, ok := operands[i].(semantic.NumberOperand); ok {
		return n.Value
	}
	return 0
}

func name(operands []semantic.Operand, i int) string {
	if i < 0 || i >= len(operands) {
		return ""
	}
	if n, ok := operands[i].(semantic.NameOperand); ok {
		return n.Value
	}
	return ""
}

func bytesOperand(operands []semantic.Operand, i int) []byte {
	if i < 0 || i >= len(operands) {
		return nil
	}
	if s, ok := operands[i].(semantic.StringOperand); ok {
		return s.Value
	}
	return nil
}

func matrixOperand(operands []semantic.Operand) (coords.Matrix, error) {
	if len(operands) < 6 {
		return coords.Identity(), fmt.Errorf("interp: matrix operator needs 6 operands, got %d", len(operands))
	}
	var m coords.Matrix
	for i := range m {
		m[i] = num(operands, i)
	}
	return m, nil
}

func dashOperand(operands []semantic.Operand) ([]float64, float64) {
	if len(operands) < 2 {
		return nil, 0
	}
	arr, ok := operands[0].(semantic.ArrayOperand)
	if !ok {
		return nil, num(operands, 1)
	}
	dash := make([]float64, 0, len(arr.Values))
	for _, v := range arr.Values {
		if n, ok := v.(semantic.NumberOperand); ok {
			dash = append(dash, n.Value)
		}
	}
	return dash, num(operands, 1)
}

func allNumbers(operands []semantic.Operand) []float64 {
	out := make([]float64, 0, len(operands))
	for _, v := range operands {
		if n, ok := v.(semantic.NumberOperand); ok {
			out = append(out, n.Value)
		}
	}
	return out
}
