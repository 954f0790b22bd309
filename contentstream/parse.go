package contentstream

import (
	"bytes"
	"errors"
	"io"

	"pdfcore/ir/semantic"
	"pdfcore/scanner"
)

// Parse tokenizes a content stream's decoded bytes into the operator/operand
// sequence ir/semantic.Operation already models, using the same scanner the
// object parser uses, reusing the token grammar instead of a second lexer.
// BI/ID/EI inline images are folded into a single synthetic "INLINE_IMAGE"
// operation carrying an InlineImageOperand.
func Parse(data []byte) ([]semantic.Operation, error) {
	sc := scanner.New(byteReaderAt(data), scanner.Config{WindowSize: int64(len(data) + 1)})
	var ops []semantic.Operation
	var stack []semantic.Operand
	var pendingImageDict []semantic.Operand // flat key,value,... pairs since BI

	inImageDict := false

	for {
		tok, err := sc.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return ops, err
		}
		switch tok.Type {
		case scanner.TokenNumber:
			v := tok.Float
			if tok.IsInt {
				v = float64(tok.Int)
			}
			operand := semantic.NumberOperand{Value: v}
			if inImageDict {
				pendingImageDict = append(pendingImageDict, operand)
			} else {
				stack = append(stack, operand)
			}
		case scanner.TokenName:
			operand := semantic.NameOperand{Value: tok.Str}
			if inImageDict {
				pendingImageDict = append(pendingImageDict, operand)
			} else {
				stack = append(stack, operand)
			}
		case scanner.TokenString:
			operand := semantic.StringOperand{Value: tok.Bytes}
			if inImageDict {
				pendingImageDict = append(pendingImageDict, operand)
			} else {
				stack = append(stack, operand)
			}
		case scanner.TokenBoolean:
			v := 0.0
			if tok.Bool {
				v = 1.0
			}
			operand := semantic.NumberOperand{Value: v}
			if inImageDict {
				pendingImageDict = append(pendingImageDict, operand)
			} else {
				stack = append(stack, operand)
			}
		case scanner.TokenArray:
			arr, err := parseArray(sc)
			if err != nil {
				return ops, err
			}
			if inImageDict {
				pendingImageDict = append(pendingImageDict, arr)
			} else {
				stack = append(stack, arr)
			}
		case scanner.TokenDict:
			d, err := parseDict(sc)
			if err != nil {
				return ops, err
			}
			if inImageDict {
				pendingImageDict = append(pendingImageDict, d)
			} else {
				stack = append(stack, d)
			}
		case scanner.TokenInlineImage:
			img := semantic.DictOperand{Values: pairsToDict(pendingImageDict)}
			ops = append(ops, semantic.Operation{
				Operator: "INLINE_IMAGE",
				Operands: []semantic.Operand{semantic.InlineImageOperand{Image: img, Data: tok.Bytes}},
			})
			pendingImageDict = nil
			inImageDict = false
			stack = stack[:0]
		case scanner.TokenKeyword:
			switch tok.Str {
			case "BI":
				inImageDict = true
				pendingImageDict = nil
			case "]", ">>":
				// Unbalanced closer at the top level; ignore (malformed
				// content recovers by resynchronizing on the next operator).
			default:
				ops = append(ops, semantic.Operation{Operator: tok.Str, Operands: stack})
				stack = nil
			}
		}
	}
	return ops, nil
}

func parseArray(sc scanner.Scanner) (semantic.ArrayOperand, error) {
	var items []semantic.Operand
	for {
		tok, err := sc.Next()
		if err != nil {
			return semantic.ArrayOperand{Values: items}, err
		}
		switch tok.Type {
		case scanner.TokenKeyword:
			if tok.Str == "]" {
				return semantic.ArrayOperand{Values: items}, nil
			}
		case scanner.TokenNumber:
			v := tok.Float
			if tok.IsInt {
				v = float64(tok.Int)
			}
			items = append(items, semantic.NumberOperand{Value: v})
		case scanner.TokenName:
			items = append(items, semantic.NameOperand{Value: tok.Str})
		case scanner.TokenString:
			items = append(items, semantic.StringOperand{Value: tok.Bytes})
		case scanner.TokenArray:
			inner, err := parseArray(sc)
			if err != nil {
				return semantic.ArrayOperand{Values: items}, err
			}
			items = append(items, inner)
		case scanner.TokenDict:
			inner, err := parseDict(sc)
			if err != nil {
				return semantic.ArrayOperand{Values: items}, err
			}
			items = append(items, inner)
		}
	}
}

func parseDict(sc scanner.Scanner) (semantic.DictOperand, error) {
	var pairs []semantic.Operand
	for {
		tok, err := sc.Next()
		if err != nil {
			return semantic.DictOperand{Values: pairsToDict(pairs)}, err
		}
		switch tok.Type {
		case scanner.TokenKeyword:
			if tok.Str == ">>" {
				return semantic.DictOperand{Values: pairsToDict(pairs)}, nil
			}
		case scanner.TokenNumber:
			v := tok.Float
			if tok.IsInt {
				v = float64(tok.Int)
			}
			pairs = append(pairs, semantic.NumberOperand{Value: v})
		case scanner.TokenName:
			pairs = append(pairs, semantic.NameOperand{Value: tok.Str})
		case scanner.TokenString:
			pairs = append(pairs, semantic.StringOperand{Value: tok.Bytes})
		case scanner.TokenBoolean:
			v := 0.0
			if tok.Bool {
				v = 1.0
			}
			pairs = append(pairs, semantic.NumberOperand{Value: v})
		case scanner.TokenArray:
			inner, err := parseArray(sc)
			if err != nil {
				return semantic.DictOperand{Values: pairsToDict(pairs)}, err
			}
			pairs = append(pairs, inner)
		case scanner.TokenDict:
			inner, err := parseDict(sc)
			if err != nil {
				return semantic.DictOperand{Values: pairsToDict(pairs)}, err
			}
			pairs = append(pairs, inner)
		}
	}
}

// pairsToDict folds a flat [/Key1, val1, /Key2, val2, ...] sequence (the
// shape both image dicts and << >> bodies tokenize to) into a map.
func pairsToDict(pairs []semantic.Operand) map[string]semantic.Operand {
	out := make(map[string]semantic.Operand, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		key, ok := pairs[i].(semantic.NameOperand)
		if !ok {
			continue
		}
		out[key.Value] = pairs[i+1]
	}
	return out
}

type byteReaderAt []byte

func (b byteReaderAt) ReadAt(p []byte, off int64) (int, error) {
	return bytes.NewReader(b).ReadAt(p, off)
}
