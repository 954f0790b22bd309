package contentstream

import (
	"testing"

	"pdfcore/ir/semantic"
)

func TestParseSimplePathOperators(t *testing.T) {
	ops, err := Parse([]byte("1 0 0 1 0 0 cm 10 20 m 30 40 l S"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(ops) != 3 {
		t.Fatalf("got %d ops, want 3: %+v", len(ops), ops)
	}
	if ops[0].Operator != "cm" || len(ops[0].Operands) != 6 {
		t.Fatalf("op0 = %+v", ops[0])
	}
	if ops[1].Operator != "m" || len(ops[1].Operands) != 2 {
		t.Fatalf("op1 = %+v", ops[1])
	}
	if ops[2].Operator != "S" || len(ops[2].Operands) != 0 {
		t.Fatalf("op2 = %+v", ops[2])
	}
}

func TestParseStringAndArrayOperands(t *testing.T) {
	ops, err := Parse([]byte("/F1 12 Tf (Hello) Tj [(A) -250 (B)] TJ"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ops[0].Operator != "Tf" {
		t.Fatalf("op0 = %+v", ops[0])
	}
	if name, ok := ops[0].Operands[0].(semantic.NameOperand); !ok || name.Value != "F1" {
		t.Fatalf("Tf name operand = %+v", ops[0].Operands[0])
	}
	if s, ok := ops[1].Operands[0].(semantic.StringOperand); !ok || string(s.Value) != "Hello" {
		t.Fatalf("Tj string operand = %+v", ops[1].Operands[0])
	}
	arr, ok := ops[2].Operands[0].(semantic.ArrayOperand)
	if !ok || len(arr.Values) != 3 {
		t.Fatalf("TJ array operand = %+v", ops[2].Operands[0])
	}
}

func TestParseInlineImage(t *testing.T) {
	data := []byte("q BI /W 2 /H 2 /BPC 8 /CS /G ID \x00\xff\xff\x00\nEI Q")
	ops, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	var found bool
	for _, op := range ops {
		if op.Operator == "INLINE_IMAGE" {
			found = true
			img, ok := op.Operands[0].(semantic.InlineImageOperand)
			if !ok {
				t.Fatalf("operand type = %T", op.Operands[0])
			}
			if w, ok := img.Image.Values["W"].(semantic.NumberOperand); !ok || w.Value != 2 {
				t.Fatalf("W = %+v", img.Image.Values["W"])
			}
			if len(img.Data) != 5 {
				t.Fatalf("image data len = %d, want 5 (trailing newline included)", len(img.Data))
			}
		}
	}
	if !found {
		t.Fatalf("no INLINE_IMAGE operation found in %+v", ops)
	}
}

func TestParseNestedDictOperand(t *testing.T) {
	ops, err := Parse([]byte("<< /Type /ExtGState /CA 0.5 >> gs"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if ops[0].Operator != "gs" {
		t.Fatalf("op0 = %+v", ops[0])
	}
	d, ok := ops[0].Operands[0].(semantic.DictOperand)
	if !ok {
		t.Fatalf("operand type = %T", ops[0].Operands[0])
	}
	if ca, ok := d.Values["CA"].(semantic.NumberOperand); !ok || ca.Value != 0.5 {
		t.Fatalf("CA = %+v", d.Values["CA"])
	}
}
