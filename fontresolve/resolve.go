package fontresolve

import (
	"pdfcore/fontresolve/cmap"
	"pdfcore/fontresolve/encoding"
	"pdfcore/ir/semantic"
)

// ResolvedFont is the capability set the content-stream interpreter needs
// from a font: decode a text string into character codes,
// and map each code to a glyph id, an advance width, and (when available) a
// Unicode value for extraction/search.
type ResolvedFont interface {
	// NextCode consumes one character code from the head of data, returning
	// its byte length. Simple fonts always consume 1 byte; composite fonts
	// consume 1-4 bytes per their embedded CMap's codespace ranges.
	NextCode(data []byte) (code uint32, length int)
	// Width returns the glyph-space advance width for code, in 1/1000 em.
	Width(code uint32) float64
	// GlyphID resolves code to a glyph id within the embedded font program,
	// or false if no embedded program backs this font (e.g. unembedded
	// standard-14, where only metrics/Unicode matter).
	GlyphID(code uint32) (int, bool)
	// Unicode returns the best-effort Unicode text for code.
	Unicode(code uint32) (string, bool)
	// WritingMode is 0 (horizontal) or 1 (vertical).
	WritingMode() int
}

// PredefinedCMapRegistry resolves the small set of predefined CIDFont CMaps
// (Identity-H/V, and document-embedded CMaps registered via Register) used
// by usecmap and by Type0 font Encoding entries that name a predefined CMap
// instead of embedding a stream.
type PredefinedCMapRegistry struct {
	byName map[string]*cmap.CMap
}

func NewPredefinedCMapRegistry() *PredefinedCMapRegistry {
	r := &PredefinedCMapRegistry{byName: make(map[string]*cmap.CMap)}
	r.byName["Identity-H"] = identityCMap(0)
	r.byName["Identity-V"] = identityCMap(1)
	return r
}

func (r *PredefinedCMapRegistry) ByName(name string) (*cmap.CMap, bool) {
	c, ok := r.byName[name]
	return c, ok
}

func (r *PredefinedCMapRegistry) Register(name string, c *cmap.CMap) {
	r.byName[name] = c
}

func identityCMap(writingMode int) *cmap.CMap {
	c := cmap.New("Identity")
	c.WritingMode = writingMode
	c.AddCodespaceRange(2, 0x0000, 0xFFFF)
	c.AddCIDRange(2, 0x0000, 0xFFFF, 0, true)
	return c
}

// Resolve builds a ResolvedFont for f. reg resolves predefined/usecmap base
// CMaps; it must not be nil for composite fonts.
func Resolve(f *semantic.Font, reg *PredefinedCMapRegistry) (ResolvedFont, error) {
	if f.Subtype == "Type0" {
		return resolveComposite(f, reg)
	}
	if f.Subtype == "Type3" {
		return resolveType3(f)
	}
	return resolveSimple(f)
}

// simpleFont backs Type1/TrueType/MMType1 fonts: single-byte codes, an
// encoding table mapping code->glyph name, and a Widths array keyed by code.
type simpleFont struct {
	table     *encoding.Table
	widths    map[int]int
	missing   float64
	fontFile  []byte
	fontType  string
	toUnicode map[int][]rune
	baseFont  string
}

func resolveSimple(f *semantic.Font) (ResolvedFont, error) {
	base := encoding.Base(f.Encoding)
	if f.EncodingDict != nil {
		if f.EncodingDict.BaseEncoding != "" {
			base = encoding.Base(f.EncodingDict.BaseEncoding)
		}
		diffs := make([]encoding.Difference, 0, len(f.EncodingDict.Differences))
		for _, d := range f.EncodingDict.Differences {
			diffs = append(diffs, encoding.Difference{Code: d.Code, Name: d.Name})
		}
		base = encoding.ApplyDifferences(base, diffs)
	}
	sf := &simpleFont{
		table:     base,
		widths:    f.Widths,
		missing:   0,
		toUnicode: f.ToUnicode,
		baseFont:  f.BaseFont,
	}
	if f.Descriptor != nil {
		sf.fontFile = f.Descriptor.FontFile
		sf.fontType = f.Descriptor.FontFileType
	}
	return sf, nil
}

func (f *simpleFont) NextCode(data []byte) (uint32, int) {
	if len(data) == 0 {
		return 0, 0
	}
	return uint32(data[0]), 1
}

func (f *simpleFont) Width(code uint32) float64 {
	if w, ok := f.widths[int(code)]; ok {
		return float64(w)
	}
	return f.missing
}

func (f *simpleFont) GlyphID(code uint32) (int, bool) {
	if len(f.fontFile) == 0 {
		return 0, false
	}
	name := f.table.GlyphName(byte(code))
	if name == "" {
		return 0, false
	}
	if f.fontType == "FontFile2" {
		if gid, ok := GlyphForName(f.fontFile, name); ok {
			return gid, true
		}
		if r, ok := encoding.GlyphNameToRune(name); ok {
			return GlyphForCodepoint(f.fontFile, r)
		}
		return 0, false
	}
	// FontFile/FontFile3 (Type1/CFF): glyph selection is by name against the
	// program's own charstring dictionary, which this package does not parse;
	// callers fall back to rendering via ToUnicode/width-only metrics.
	return 0, false
}

func (f *simpleFont) Unicode(code uint32) (string, bool) {
	if u, ok := f.toUnicode[int(code)]; ok {
		return string(u), true
	}
	name := f.table.GlyphName(byte(code))
	if name == "" {
		return "", false
	}
	if r, ok := encoding.GlyphNameToRune(name); ok {
		return string(r), true
	}
	return "", false
}

func (f *simpleFont) WritingMode() int { return 0 }

// compositeFont backs Type0 fonts: a variable-length encoding CMap maps
// code->CID, and CIDToGIDMap maps CID->GID within the descendant font
// program (Identity, or an explicit stream table).
type compositeFont struct {
	enc         *cmap.CMap
	toUnicode   *cmap.CMap
	widths      map[int]int
	dw          float64
	cidToGID    []byte
	cidToGIDId  bool
	fontFile    []byte
	writingMode int
}

func resolveComposite(f *semantic.Font, reg *PredefinedCMapRegistry) (ResolvedFont, error) {
	var enc *cmap.CMap
	if f.EncodingCMap != nil {
		parsed, err := cmap.Parse(f.EncodingCMap, reg)
		if err != nil {
			return nil, err
		}
		enc = parsed
	} else if reg != nil {
		if c, ok := reg.ByName(f.Encoding); ok {
			enc = c
		}
	}
	if enc == nil {
		enc = identityCMap(0)
	}

	var toUni *cmap.CMap
	if f.ToUnicodeCMap != nil {
		if parsed, err := cmap.Parse(f.ToUnicodeCMap, reg); err == nil {
			toUni = parsed
		}
	}

	cf := &compositeFont{enc: enc, toUnicode: toUni, writingMode: enc.WritingMode}
	if f.DescendantFont != nil {
		d := f.DescendantFont
		cf.dw = float64(d.DW)
		if cf.dw == 0 {
			cf.dw = 1000
		}
		cf.widths = d.W
		cf.cidToGIDId = d.CIDToGIDMapName == "" || d.CIDToGIDMapName == "Identity"
		cf.cidToGID = d.CIDToGIDMap
		if d.Descriptor != nil {
			cf.fontFile = d.Descriptor.FontFile
		}
	} else {
		cf.dw = 1000
	}
	return cf, nil
}

func (f *compositeFont) NextCode(data []byte) (uint32, int) {
	code, length, _ := f.enc.NextCode(data)
	if length == 0 {
		length = 1
	}
	return code, length
}

func (f *compositeFont) cid(code uint32) uint32 {
	// Codespace length is not tracked per-call here; try the common 1,2-byte
	// lengths the codespace declarations populated.
	for _, length := range [...]int{2, 1, 3, 4} {
		if cid, ok := f.enc.LookupCID(length, code); ok {
			return cid
		}
	}
	return code // Identity fallback: CID == code
}

func (f *compositeFont) Width(code uint32) float64 {
	cid := f.cid(code)
	if w, ok := f.widths[int(cid)]; ok {
		return float64(w)
	}
	return f.dw
}

func (f *compositeFont) GlyphID(code uint32) (int, bool) {
	cid := f.cid(code)
	if f.cidToGIDId {
		return int(cid), true
	}
	off := int(cid) * 2
	if off+2 > len(f.cidToGID) {
		return 0, false
	}
	gid := int(f.cidToGID[off])<<8 | int(f.cidToGID[off+1])
	return gid, true
}

func (f *compositeFont) Unicode(code uint32) (string, bool) {
	if f.toUnicode == nil {
		return "", false
	}
	for _, length := range [...]int{2, 1, 3, 4} {
		if s, ok := f.toUnicode.LookupUnicode(length, code); ok {
			return s, true
		}
	}
	return "", false
}

func (f *compositeFont) WritingMode() int { return f.writingMode }

// type3Font backs Type3 fonts: codes select a named content-stream glyph
// procedure rather than a glyph id in an embedded program.
type type3Font struct {
	table      *encoding.Table
	widths     map[int]int
	charProcs  map[string][]byte
	fontMatrix []float64
	resources  *semantic.Resources
}

func resolveType3(f *semantic.Font) (ResolvedFont, error) {
	base := encoding.Base(f.Encoding)
	if f.EncodingDict != nil {
		diffs := make([]encoding.Difference, 0, len(f.EncodingDict.Differences))
		for _, d := range f.EncodingDict.Differences {
			diffs = append(diffs, encoding.Difference{Code: d.Code, Name: d.Name})
		}
		base = encoding.ApplyDifferences(base, diffs)
	}
	return &type3Font{
		table:      base,
		widths:     f.Widths,
		charProcs:  f.CharProcs,
		fontMatrix: f.FontMatrix,
		resources:  f.Resources,
	}, nil
}

func (f *type3Font) NextCode(data []byte) (uint32, int) {
	if len(data) == 0 {
		return 0, 0
	}
	return uint32(data[0]), 1
}

// Width returns the width in the font's own glyph-space units (Type3 widths
// are not in 1/1000 em; the interpreter scales by FontMatrix instead of the
// usual /1000 convention).
func (f *type3Font) Width(code uint32) float64 {
	if w, ok := f.widths[int(code)]; ok {
		return float64(w)
	}
	return 0
}

func (f *type3Font) GlyphID(code uint32) (int, bool) { return 0, false }

func (f *type3Font) Unicode(code uint32) (string, bool) { return "", false }

func (f *type3Font) WritingMode() int { return 0 }

// CharProc returns the content stream for code's glyph procedure, per its
// /Differences-mapped glyph name, for Type3 fonts.
func (f *type3Font) CharProc(code uint32) ([]byte, bool) {
	name := f.table.GlyphName(byte(code))
	if name == "" {
		return nil, false
	}
	proc, ok := f.charProcs[name]
	return proc, ok
}

// FontMatrix returns the Type3 font's glyph-space-to-text-space matrix.
func (f *type3Font) FontMatrix() []float64 { return f.fontMatrix }

// Resources returns the Type3 font's private resource dictionary, used when
// executing a CharProc in isolation from the page's own resources.
func (f *type3Font) Resources() *semantic.Resources { return f.resources }
