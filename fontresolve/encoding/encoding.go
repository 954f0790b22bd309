// Package encoding implements single-byte encoding resolution:
// StandardEncoding/WinAnsiEncoding/MacRomanEncoding/MacExpertEncoding base
// tables plus /Differences array overrides.
package encoding

import "golang.org/x/text/encoding/charmap"

// Table maps a single byte code (0-255) to a PostScript glyph name.
type Table struct {
	names [256]string
}

// GlyphName returns the glyph name bound to code, or "" if unbound.
func (t *Table) GlyphName(code byte) string { return t.names[code] }

// Clone returns an independent copy, used as the base for applying
// /Differences without mutating the shared standard table.
func (t *Table) Clone() *Table {
	c := *t
	return &c
}

// SetGlyph binds code to name (used when applying /Differences).
func (t *Table) SetGlyph(code byte, name string) { t.names[code] = name }

// Standard encoding names.
const (
	StandardEncoding   = "StandardEncoding"
	WinAnsiEncoding    = "WinAnsiEncoding"
	MacRomanEncoding   = "MacRomanEncoding"
	MacExpertEncoding  = "MacExpertEncoding"
	IdentityEncoding   = "Identity-H" // composite fonts: code is never mapped to a glyph name
)

// Base returns the built-in table for one of the four standard names,
// falling back to StandardEncoding for an unrecognized name.
func Base(name string) *Table {
	switch name {
	case WinAnsiEncoding:
		return winAnsiTable
	case MacRomanEncoding:
		return macRomanTable
	case MacExpertEncoding:
		return macExpertTable
	default:
		return standardTable
	}
}

// Difference is one entry of a /Differences array: assign Name to Code, then
// the next entry (if a name) applies to Code+1.
type Difference struct {
	Code int
	Name string
}

// ApplyDifferences layers already-walked Differences entries (see
// WalkDifferencesArray) over a copy of base and returns it; entries whose
// code is outside 0-255 are ignored.
func ApplyDifferences(base *Table, entries []Difference) *Table {
	t := base.Clone()
	for _, e := range entries {
		if e.Code < 0 || e.Code > 255 {
			continue
		}
		t.SetGlyph(byte(e.Code), e.Name)
	}
	return t
}

// WalkDifferencesArray interprets a raw /Differences array (alternating
// integers and names, integers resetting the current code and each
// following name incrementing it) into a flat entry list.
func WalkDifferencesArray(items []DifferenceItem) []Difference {
	var out []Difference
	code := 0
	for _, it := range items {
		if it.IsInt {
			code = it.Int
			continue
		}
		out = append(out, Difference{Code: code, Name: it.Name})
		code++
	}
	return out
}

// DifferenceItem is a single array element: either an integer (sets the
// current code) or a name (assigns the current code and advances it).
type DifferenceItem struct {
	IsInt bool
	Int   int
	Name  string
}

// winAnsiTable/macRomanTable are built from the Windows-1252 and Macintosh
// tables of golang.org/x/text/encoding/charmap, translated to glyph names
// via the Adobe Glyph List subset; no PDF-specific deltas are applied on
// top. standardTable and macExpertTable are hand-encoded (standard.go).
var (
	standardTable  = buildStandardTable()
	winAnsiTable   = buildFromCharmap(charmap.Windows1252)
	macRomanTable  = buildFromCharmap(charmap.Macintosh)
	macExpertTable = buildMacExpertTable()
)

func buildFromCharmap(cm *charmap.Charmap) *Table {
	t := &Table{}
	for code := 0; code < 256; code++ {
		r := cm.DecodeByte(byte(code))
		if r == 0 && code != 0 {
			continue
		}
		if name, ok := RuneToGlyphName(r); ok {
			t.SetGlyph(byte(code), name)
		}
	}
	return t
}
