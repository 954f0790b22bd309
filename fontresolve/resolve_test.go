package fontresolve

import (
	"pdfcore/ir/semantic"
	"testing"
)

func TestResolveSimpleFontWidthsAndUnicode(t *testing.T) {
	f := &semantic.Font{
		Subtype:  "TrueType",
		Encoding: "WinAnsiEncoding",
		Widths:   map[int]int{65: 722},
	}
	rf, err := Resolve(f, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := rf.Width('A'); got != 722 {
		t.Fatalf("width = %v, want 722", got)
	}
	if u, ok := rf.Unicode('A'); !ok || u != "A" {
		t.Fatalf("unicode = %q, %v", u, ok)
	}
	code, length := rf.NextCode([]byte("AB"))
	if code != 'A' || length != 1 {
		t.Fatalf("nextcode = %d,%d", code, length)
	}
}

func TestResolveCompositeIdentityDefaults(t *testing.T) {
	f := &semantic.Font{
		Subtype:  "Type0",
		Encoding: "Identity-H",
		DescendantFont: &semantic.CIDFont{
			Subtype:         "CIDFontType2",
			DW:              1000,
			W:               map[int]int{3: 600},
			CIDToGIDMapName: "Identity",
		},
	}
	reg := NewPredefinedCMapRegistry()
	rf, err := Resolve(f, reg)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	code, length := rf.NextCode([]byte{0x00, 0x03, 0x00, 0x04})
	if length != 2 || code != 0x0003 {
		t.Fatalf("nextcode = %d,%d", code, length)
	}
	if got := rf.Width(code); got != 600 {
		t.Fatalf("width = %v, want 600", got)
	}
	if gid, ok := rf.GlyphID(code); !ok || gid != 3 {
		t.Fatalf("glyphid = %d, %v", gid, ok)
	}
}

func TestResolveType3CharProcLookup(t *testing.T) {
	f := &semantic.Font{
		Subtype:    "Type3",
		Encoding:   "StandardEncoding",
		FontMatrix: []float64{0.001, 0, 0, 0.001, 0, 0},
		CharProcs:  map[string][]byte{"A": []byte("1 0 0 1 0 0 cm")},
		Widths:     map[int]int{65: 750},
	}
	rf, err := Resolve(f, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	t3, ok := rf.(*type3Font)
	if !ok {
		t.Fatalf("expected *type3Font, got %T", rf)
	}
	proc, ok := t3.CharProc('A')
	if !ok || string(proc) != "1 0 0 1 0 0 cm" {
		t.Fatalf("charproc = %q, %v", proc, ok)
	}
	if got := rf.Width('A'); got != 750 {
		t.Fatalf("width = %v, want 750", got)
	}
}
