// Package fontresolve implements the glyph-id resolution chain,
// mapping a decoded character code, through encoding/CMap/ToUnicode
// layers, to a glyph id inside an embedded or substituted font program.
package fontresolve

import (
	"encoding/binary"
	"fmt"
)

// sfntDirectory is a minimal TrueType/OpenType table directory reader,
// limited to the read-only lookups glyph resolution needs (cmap/post/hmtx).
type sfntDirectory struct {
	data   []byte
	tables map[string]sfntTableEntry
}

type sfntTableEntry struct {
	offset, length uint32
}

func parseSFNTDirectory(data []byte) (*sfntDirectory, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("fontresolve: font data too short for sfnt header")
	}
	numTables := int(binary.BigEndian.Uint16(data[4:6]))
	d := &sfntDirectory{data: data, tables: make(map[string]sfntTableEntry, numTables)}
	off := 12
	for i := 0; i < numTables; i++ {
		if off+16 > len(data) {
			return nil, fmt.Errorf("fontresolve: sfnt table directory truncated")
		}
		tag := string(data[off : off+4])
		tableOff := binary.BigEndian.Uint32(data[off+8 : off+12])
		tableLen := binary.BigEndian.Uint32(data[off+12 : off+16])
		d.tables[tag] = sfntTableEntry{offset: tableOff, length: tableLen}
		off += 16
	}
	return d, nil
}

func (d *sfntDirectory) hasTable(tag string) bool {
	_, ok := d.tables[tag]
	return ok
}

func (d *sfntDirectory) table(tag string) ([]byte, bool) {
	e, ok := d.tables[tag]
	if !ok {
		return nil, false
	}
	end := uint64(e.offset) + uint64(e.length)
	if end > uint64(len(d.data)) {
		return nil, false
	}
	return d.data[e.offset:end], true
}

// cmapSubtable is a resolved code->gid table for one platform/encoding pair.
type cmapSubtable struct {
	format int
	// format 0
	byteMap [256]byte
	// format 4
	endCode, startCode []uint16
	idDelta            []int16
	idRangeOffset      []uint16
	idRangeData        []byte // the full cmap table, for idRangeOffset indirection
}

func (t *cmapSubtable) lookup(code uint32) (int, bool) {
	switch t.format {
	case 0:
		if code > 255 {
			return 0, false
		}
		gid := t.byteMap[code]
		return int(gid), gid != 0
	case 4:
		if code > 0xFFFF {
			return 0, false
		}
		c := uint16(code)
		for i, end := range t.endCode {
			if c > end {
				continue
			}
			if c < t.startCode[i] {
				return 0, false
			}
			if t.idRangeOffset[i] == 0 {
				gid := uint16(int32(c) + int32(t.idDelta[i]))
				return int(gid), gid != 0
			}
			// idRangeOffset indirection, per the cmap format 4 spec: the
			// address is relative to the idRangeOffset array slot itself.
			idx := 2*i + int(t.idRangeOffset[i]) + 2*(int(c)-int(t.startCode[i]))
			if idx+1 >= len(t.idRangeData) || idx < 0 {
				return 0, false
			}
			gid := binary.BigEndian.Uint16(t.idRangeData[idx : idx+2])
			if gid == 0 {
				return 0, false
			}
			gid = uint16(int32(gid) + int32(t.idDelta[i]))
			return int(gid), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// GlyphForCodepoint resolves a Unicode code point to a glyph id using the
// font's best available (3,1) Windows-Unicode or (0,x) Unicode cmap subtable.
// Returns ok=false (caller falls back to .notdef) if the font has no usable
// Unicode cmap or the rune is unmapped.
func GlyphForCodepoint(fontData []byte, r rune) (int, bool) {
	dir, err := parseSFNTDirectory(fontData)
	if err != nil || !dir.hasTable("cmap") {
		return 0, false
	}
	cmapData, _ := dir.table("cmap")
	sub, err := bestUnicodeCmapSubtable(cmapData)
	if err != nil || sub == nil {
		return 0, false
	}
	return sub.lookup(uint32(r))
}

func bestUnicodeCmapSubtable(cmapData []byte) (*cmapSubtable, error) {
	if len(cmapData) < 4 {
		return nil, fmt.Errorf("fontresolve: cmap table too short")
	}
	numTables := int(binary.BigEndian.Uint16(cmapData[2:4]))
	var bestOffset uint32
	bestScore := -1
	for i := 0; i < numTables; i++ {
		recOff := 4 + i*8
		if recOff+8 > len(cmapData) {
			break
		}
		platformID := binary.BigEndian.Uint16(cmapData[recOff : recOff+2])
		encodingID := binary.BigEndian.Uint16(cmapData[recOff+2 : recOff+4])
		subOffset := binary.BigEndian.Uint32(cmapData[recOff+4 : recOff+8])
		score := cmapSubtableScore(platformID, encodingID)
		if score > bestScore {
			bestScore = score
			bestOffset = subOffset
		}
	}
	if bestScore < 0 || int(bestOffset) >= len(cmapData) {
		return nil, fmt.Errorf("fontresolve: no usable cmap subtable")
	}
	return parseCmapSubtable(cmapData, int(bestOffset))
}

// cmapSubtableScore ranks platform/encoding pairs by preference order:
// Windows Unicode BMP, then Unicode platform, then Windows symbol.
func cmapSubtableScore(platformID, encodingID uint16) int {
	switch {
	case platformID == 3 && encodingID == 1:
		return 3 // Windows, Unicode BMP
	case platformID == 0:
		return 2 // Unicode platform
	case platformID == 3 && encodingID == 0:
		return 1 // Windows, Symbol
	default:
		return -1
	}
}

func parseCmapSubtable(cmapData []byte, offset int) (*cmapSubtable, error) {
	if offset+2 > len(cmapData) {
		return nil, fmt.Errorf("fontresolve: cmap subtable offset out of range")
	}
	format := int(binary.BigEndian.Uint16(cmapData[offset : offset+2]))
	switch format {
	case 0:
		return parseCmapFormat0(cmapData, offset)
	case 4:
		return parseCmapFormat4(cmapData, offset)
	default:
		return nil, fmt.Errorf("fontresolve: unsupported cmap subtable format %d", format)
	}
}

func parseCmapFormat0(data []byte, offset int) (*cmapSubtable, error) {
	if offset+262 > len(data) {
		return nil, fmt.Errorf("fontresolve: cmap format 0 truncated")
	}
	t := &cmapSubtable{format: 0}
	copy(t.byteMap[:], data[offset+6:offset+262])
	return t, nil
}

func parseCmapFormat4(data []byte, offset int) (*cmapSubtable, error) {
	if offset+14 > len(data) {
		return nil, fmt.Errorf("fontresolve: cmap format 4 truncated")
	}
	segCountX2 := int(binary.BigEndian.Uint16(data[offset+6 : offset+8]))
	segCount := segCountX2 / 2
	end := offset + 14
	readSeg := func(slice []byte) []uint16 {
		out := make([]uint16, segCount)
		for i := range out {
			out[i] = binary.BigEndian.Uint16(slice[i*2 : i*2+2])
		}
		return out
	}
	if end+segCountX2 > len(data) {
		return nil, fmt.Errorf("fontresolve: cmap format 4 endCode truncated")
	}
	endCode := readSeg(data[end : end+segCountX2])
	end += segCountX2 + 2 // skip reservedPad
	if end+segCountX2 > len(data) {
		return nil, fmt.Errorf("fontresolve: cmap format 4 startCode truncated")
	}
	startCode := readSeg(data[end : end+segCountX2])
	end += segCountX2
	if end+segCountX2 > len(data) {
		return nil, fmt.Errorf("fontresolve: cmap format 4 idDelta truncated")
	}
	idDeltaRaw := readSeg(data[end : end+segCountX2])
	idDelta := make([]int16, segCount)
	for i, v := range idDeltaRaw {
		idDelta[i] = int16(v)
	}
	end += segCountX2
	idRangeOffsetStart := end
	if end+segCountX2 > len(data) {
		return nil, fmt.Errorf("fontresolve: cmap format 4 idRangeOffset truncated")
	}
	idRangeOffset := readSeg(data[end : end+segCountX2])

	return &cmapSubtable{
		format:        4,
		endCode:       endCode,
		startCode:     startCode,
		idDelta:       idDelta,
		idRangeOffset: idRangeOffset,
		idRangeData:   data[idRangeOffsetStart:],
	}, nil
}

// GlyphForName resolves a PostScript glyph name to a glyph id using the
// font's post table (format 1.0 standard Macintosh order, or format 2.0
// custom names). Returns ok=false if the font lacks a usable post table or
// the name is not present.
func GlyphForName(fontData []byte, name string) (int, bool) {
	dir, err := parseSFNTDirectory(fontData)
	if err != nil || !dir.hasTable("post") {
		return 0, false
	}
	postData, _ := dir.table("post")
	return lookupPostName(postData, name)
}

func lookupPostName(post []byte, name string) (int, bool) {
	if len(post) < 4 {
		return 0, false
	}
	version := binary.BigEndian.Uint32(post[0:4])
	switch version {
	case 0x00010000:
		for i, n := range macGlyphOrder {
			if n == name {
				return i, true
			}
		}
		return 0, false
	case 0x00020000:
		return lookupPostFormat2(post, name)
	default:
		return 0, false
	}
}

func lookupPostFormat2(post []byte, name string) (int, bool) {
	if len(post) < 34 {
		return 0, false
	}
	numGlyphs := int(binary.BigEndian.Uint16(post[32:34]))
	idxStart := 34
	if idxStart+numGlyphs*2 > len(post) {
		return 0, false
	}
	indices := make([]uint16, numGlyphs)
	for i := 0; i < numGlyphs; i++ {
		indices[i] = binary.BigEndian.Uint16(post[idxStart+i*2 : idxStart+i*2+2])
	}
	namesStart := idxStart + numGlyphs*2
	customNames := parsePascalStrings(post[namesStart:])

	for gid, idx := range indices {
		var candidate string
		if idx < 258 {
			if int(idx) >= len(macGlyphOrder) {
				continue
			}
			candidate = macGlyphOrder[idx]
		} else {
			customIdx := int(idx) - 258
			if customIdx >= len(customNames) {
				continue
			}
			candidate = customNames[customIdx]
		}
		if candidate == name {
			return gid, true
		}
	}
	return 0, false
}

func parsePascalStrings(data []byte) []string {
	var out []string
	for i := 0; i < len(data); {
		n := int(data[i])
		i++
		if i+n > len(data) {
			break
		}
		out = append(out, string(data[i:i+n]))
		i += n
	}
	return out
}

// AdvanceWidth returns the horizontal advance for gid from the hmtx table;
// gids beyond numberOfHMetrics repeat the final entry's advance, per the
// hmtx table's own convention.
func AdvanceWidth(fontData []byte, gid int) (int, bool) {
	dir, err := parseSFNTDirectory(fontData)
	if err != nil || !dir.hasTable("hhea") || !dir.hasTable("hmtx") {
		return 0, false
	}
	hhea, _ := dir.table("hhea")
	if len(hhea) < 36 {
		return 0, false
	}
	numberOfHMetrics := int(binary.BigEndian.Uint16(hhea[34:36]))
	hmtx, _ := dir.table("hmtx")
	if numberOfHMetrics == 0 {
		return 0, false
	}
	idx := gid
	if idx >= numberOfHMetrics {
		idx = numberOfHMetrics - 1
	}
	off := idx * 4
	if off+2 > len(hmtx) {
		return 0, false
	}
	return int(binary.BigEndian.Uint16(hmtx[off : off+2])), true
}
