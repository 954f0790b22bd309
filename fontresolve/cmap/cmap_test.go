package cmap

import "testing"

func TestNextCodeLongestPrefix(t *testing.T) {
	c := New("test")
	c.AddCodespaceRange(1, 0x00, 0x80)
	c.AddCodespaceRange(2, 0x8100, 0xFFFF)

	code, length, defined := c.NextCode([]byte{0x41})
	if !defined || length != 1 || code != 0x41 {
		t.Fatalf("got code=%x length=%d defined=%v", code, length, defined)
	}

	code, length, defined = c.NextCode([]byte{0x81, 0x40})
	if !defined || length != 2 || code != 0x8140 {
		t.Fatalf("got code=%x length=%d defined=%v", code, length, defined)
	}

	// Byte outside any declared codespace still consumes one byte.
	code, length, defined = c.NextCode([]byte{0x90})
	if defined || length != 1 {
		t.Fatalf("got code=%x length=%d defined=%v, want undefined 1-byte", code, length, defined)
	}
}

func TestBFRangeSequentialLookup(t *testing.T) {
	c := New("test")
	c.AddBFRange(2, 0x0020, 0x007E, nil, 'a', nil, true)

	got, ok := c.LookupUnicode(2, 0x0021)
	if !ok || got != "b" {
		t.Fatalf("got %q, %v", got, ok)
	}
}

// TestBFRangeMultiRunePrefixLookup covers a bfrange whose destination
// string has more than one UTF-16 unit: <0D01> <0D03> <0048656C6C6F>
// ("Hello") maps 0x0D01->"Hello", 0x0D02->"Hellp", 0x0D03->"Hellq" — only
// the destination string's last code unit increments with the code, the
// rest is a fixed prefix.
func TestBFRangeMultiRunePrefixLookup(t *testing.T) {
	c := New("test")
	dst := []rune("Hello")
	c.AddBFRange(2, 0x0D01, 0x0D03, dst[:len(dst)-1], dst[len(dst)-1], nil, true)

	for code, want := range map[uint32]string{
		0x0D01: "Hello",
		0x0D02: "Hellp",
		0x0D03: "Hellq",
	} {
		got, ok := c.LookupUnicode(2, code)
		if !ok || got != want {
			t.Fatalf("code %#x: got %q, %v; want %q", code, got, ok, want)
		}
	}
}

func TestBFRangeArrayLookup(t *testing.T) {
	c := New("test")
	c.AddBFRange(2, 0x0001, 0x0003, nil, 0, [][]rune{{'x'}, {'y'}, {'z'}}, true)

	got, ok := c.LookupUnicode(2, 0x0002)
	if !ok || got != "y" {
		t.Fatalf("got %q, %v", got, ok)
	}
}

func TestCIDRangeLookup(t *testing.T) {
	c := New("test")
	c.AddCIDRange(2, 0x0100, 0x01FF, 1000, true)

	cid, ok := c.LookupCID(2, 0x0110)
	if !ok || cid != 1016 {
		t.Fatalf("got cid=%d, %v", cid, ok)
	}
}

func TestMergeUsecmapPreservesPreexisting(t *testing.T) {
	base := New("base")
	base.AddBFChar(1, 0x41, []rune("Z"), true)
	base.AddCodespaceRange(1, 0x00, 0xFF)

	c := New("overlay")
	c.AddBFChar(1, 0x41, []rune("A"), true)

	c.Merge(base)

	got, ok := c.LookupUnicode(1, 0x41)
	if !ok || got != "A" {
		t.Fatalf("overlay entry overwritten: got %q, %v", got, ok)
	}
	if len(c.Codespaces) != 1 {
		t.Fatalf("expected codespace pulled in from base, got %d", len(c.Codespaces))
	}
}

func TestMergeIdempotent(t *testing.T) {
	base := New("base")
	base.AddCIDRange(1, 0x00, 0xFF, 0, true)

	c := New("overlay")
	c.Merge(base)
	before, _ := c.LookupCID(1, 0x10)
	c.Merge(base)
	after, _ := c.LookupCID(1, 0x10)

	if before != after {
		t.Fatalf("merge not idempotent: %d != %d", before, after)
	}
}

func TestBinarySearchRangeMiss(t *testing.T) {
	bucket := []rangeEntry{{start: 10, end: 20}, {start: 30, end: 40}}
	if _, idx := binarySearchRange(bucket, 25); idx != -1 {
		t.Fatalf("expected miss, got idx=%d", idx)
	}
	if e, idx := binarySearchRange(bucket, 35); idx == -1 || e.start != 30 {
		t.Fatalf("expected hit on second range, got idx=%d e=%+v", idx, e)
	}
}
