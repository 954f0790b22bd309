package fontresolve

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildMinimalFont assembles an sfnt-directory-shaped blob with a cmap
// format 4 subtable (mapping 'A' -> gid 3), a post format 1.0 table, and an
// hmtx table, enough to exercise the lookup paths without a real font file.
func buildMinimalFont(t *testing.T) []byte {
	t.Helper()

	cmapSub := buildCmapFormat4(t, map[uint16]uint16{'A': 3, 'B': 4})
	cmapTable := buildCmapTable(cmapSub)

	post := make([]byte, 4)
	binary.BigEndian.PutUint32(post, 0x00010000)

	hhea := make([]byte, 36)
	binary.BigEndian.PutUint16(hhea[34:], 2) // numberOfHMetrics

	hmtx := make([]byte, 8)
	binary.BigEndian.PutUint16(hmtx[0:], 500)
	binary.BigEndian.PutUint16(hmtx[4:], 600)

	tables := map[string][]byte{
		"cmap": cmapTable,
		"post": post,
		"hhea": hhea,
		"hmtx": hmtx,
	}
	return assembleSFNT(tables)
}

func buildCmapFormat4(t *testing.T, mapping map[uint16]uint16) []byte {
	t.Helper()
	// single segment covering 'A'-'B', plus the mandatory terminal 0xFFFF segment.
	var lo, hi uint16 = 'A', 'B'
	segCount := 2
	buf := &bytes.Buffer{}
	header := make([]byte, 14)
	binary.BigEndian.PutUint16(header[0:], 4)
	binary.BigEndian.PutUint16(header[6:], uint16(segCount*2))
	buf.Write(header)

	endCode := []uint16{hi, 0xFFFF}
	for _, v := range endCode {
		binary.Write(buf, binary.BigEndian, v)
	}
	binary.Write(buf, binary.BigEndian, uint16(0)) // reservedPad
	startCode := []uint16{lo, 0xFFFF}
	for _, v := range startCode {
		binary.Write(buf, binary.BigEndian, v)
	}
	idDelta := []int16{int16(mapping[lo] - lo), 1}
	for _, v := range idDelta {
		binary.Write(buf, binary.BigEndian, v)
	}
	idRangeOffset := []uint16{0, 0}
	for _, v := range idRangeOffset {
		binary.Write(buf, binary.BigEndian, v)
	}
	return buf.Bytes()
}

func buildCmapTable(subtable []byte) []byte {
	buf := &bytes.Buffer{}
	header := make([]byte, 4)
	binary.BigEndian.PutUint16(header[2:], 1) // numTables
	buf.Write(header)

	rec := make([]byte, 8)
	binary.BigEndian.PutUint16(rec[0:], 3) // platform Windows
	binary.BigEndian.PutUint16(rec[2:], 1) // encoding Unicode BMP
	binary.BigEndian.PutUint32(rec[4:], uint32(4+8))
	buf.Write(rec)
	buf.Write(subtable)
	return buf.Bytes()
}

func assembleSFNT(tables map[string][]byte) []byte {
	names := make([]string, 0, len(tables))
	for n := range tables {
		names = append(names, n)
	}
	header := make([]byte, 12)
	binary.BigEndian.PutUint16(header[4:], uint16(len(names)))

	dirSize := 12 + 16*len(names)
	body := &bytes.Buffer{}
	dir := &bytes.Buffer{}
	offset := dirSize
	for _, n := range names {
		data := tables[n]
		rec := make([]byte, 16)
		copy(rec[0:4], n)
		binary.BigEndian.PutUint32(rec[8:], uint32(offset))
		binary.BigEndian.PutUint32(rec[12:], uint32(len(data)))
		dir.Write(rec)
		body.Write(data)
		offset += len(data)
	}
	out := append(header, dir.Bytes()...)
	out = append(out, body.Bytes()...)
	return out
}

func TestGlyphForCodepointFormat4(t *testing.T) {
	font := buildMinimalFont(t)
	gid, ok := GlyphForCodepoint(font, 'A')
	if !ok || gid != 3 {
		t.Fatalf("got gid=%d ok=%v, want 3,true", gid, ok)
	}
	gid, ok = GlyphForCodepoint(font, 'B')
	if !ok || gid != 4 {
		t.Fatalf("got gid=%d ok=%v, want 4,true", gid, ok)
	}
	if _, ok := GlyphForCodepoint(font, 'Z'); ok {
		t.Fatalf("expected miss for unmapped rune")
	}
}

func TestGlyphForNamePostFormat1(t *testing.T) {
	font := buildMinimalFont(t)
	gid, ok := GlyphForName(font, "space")
	if !ok || gid != 3 {
		t.Fatalf("got gid=%d ok=%v, want 3,true (space is macGlyphOrder[3])", gid, ok)
	}
}

func TestAdvanceWidthClampsToLastMetric(t *testing.T) {
	font := buildMinimalFont(t)
	w, ok := AdvanceWidth(font, 0)
	if !ok || w != 500 {
		t.Fatalf("gid 0: got %d, %v", w, ok)
	}
	w, ok = AdvanceWidth(font, 10) // beyond numberOfHMetrics, clamps to last
	if !ok || w != 600 {
		t.Fatalf("gid 10: got %d, %v", w, ok)
	}
}
