package encoding

// buildStandardTable hand-encodes Adobe's StandardEncoding, the PDF default
// simple-font encoding. It predates Windows-1252 and Mac Roman and diverges
// from both even in the printable ASCII range (quote glyphs), so it cannot
// be derived from a charmap.Charmap the way WinAnsi/MacRoman are.
func buildStandardTable() *Table {
	t := &Table{}
	for code := 0x20; code <= 0x7E; code++ {
		if name, ok := RuneToGlyphName(rune(code)); ok {
			t.SetGlyph(byte(code), name)
		}
	}
	// StandardEncoding-specific deltas from plain ASCII glyph naming.
	t.SetGlyph(0x27, "quoteright")
	t.SetGlyph(0x60, "quoteleft")

	high := map[byte]string{
		0xA1: "exclamdown", 0xA2: "cent", 0xA3: "sterling", 0xA4: "fraction",
		0xA5: "yen", 0xA6: "florin", 0xA7: "section", 0xA8: "currency",
		0xA9: "quotesingle", 0xAA: "quotedblleft", 0xAB: "guillemotleft",
		0xAC: "guilsinglleft", 0xAD: "guilsinglright", 0xAE: "fi", 0xAF: "fl",
		0xB1: "endash", 0xB2: "dagger", 0xB3: "daggerdbl",
		0xB4: "periodcentered", 0xB6: "paragraph", 0xB7: "bullet",
		0xB8: "quotesinglbase", 0xB9: "quotedblbase", 0xBA: "quotedblright",
		0xBB: "guillemotright", 0xBC: "ellipsis", 0xBD: "perthousand",
		0xBF: "questiondown",
		0xC1: "grave", 0xC2: "acute", 0xC3: "circumflex", 0xC4: "tilde",
		0xC5: "macron", 0xC6: "breve", 0xC7: "dotaccent", 0xC8: "dieresis",
		0xCA: "ring", 0xCB: "cedilla", 0xCD: "hungarumlaut", 0xCE: "ogonek",
		0xCF: "caron", 0xD0: "emdash",
		0xE1: "AE", 0xE3: "ordfeminine", 0xE8: "Lslash", 0xE9: "Oslash",
		0xEA: "OE", 0xEB: "ordmasculine", 0xF1: "ae", 0xF5: "dotlessi",
		0xF8: "lslash", 0xF9: "oslash", 0xFA: "oe", 0xFB: "germandbls",
	}
	for code, name := range high {
		t.SetGlyph(code, name)
	}
	return t
}

// buildMacExpertTable hand-encodes the small, frequently-used subset of
// MacExpertEncoding (small caps, oldstyle figures, fraction/superior
// glyphs). golang.org/x/text/encoding/charmap has no equivalent table since
// MacExpertEncoding is PDF/PostScript-specific, not an OS code page; codes
// outside this subset are left unbound (GlyphName returns "" for them), the
// same degraded-but-functional state a font with a sparse /Differences
// array already produces.
func buildMacExpertTable() *Table {
	t := &Table{}
	t.SetGlyph(0x20, "space")
	entries := map[byte]string{
		0x21: "exclamsmall", 0x22: "Hungarumlautsmall", 0x27: "quotesingle",
		0x28: "parenleftsuperior", 0x29: "parenrightsuperior",
		0x2C: "comma", 0x2D: "hyphen", 0x2E: "period",
		0x30: "zerooldstyle", 0x31: "oneoldstyle", 0x32: "twooldstyle",
		0x33: "threeoldstyle", 0x34: "fouroldstyle", 0x35: "fiveoldstyle",
		0x36: "sixoldstyle", 0x37: "sevenoldstyle", 0x38: "eightoldstyle",
		0x39: "nineoldstyle", 0x3A: "colon", 0x3B: "semicolon",
		0x3F: "questionsmall",
		0x56: "Asmall", 0x57: "Bsmall", 0x58: "Csmall", 0x59: "Dsmall",
		0x5A: "Esmall", 0x5B: "Fsmall", 0x5C: "Gsmall", 0x5D: "Hsmall",
		0x5E: "Ismall", 0x5F: "Jsmall", 0x60: "Ksmall", 0x61: "Lsmall",
		0x62: "Msmall", 0x63: "Nsmall", 0x64: "Osmall", 0x65: "Psmall",
		0x66: "Qsmall", 0x67: "Rsmall", 0x68: "Ssmall", 0x69: "Tsmall",
		0x6A: "Usmall", 0x6B: "Vsmall", 0x6C: "Wsmall", 0x6D: "Xsmall",
		0x6E: "Ysmall", 0x6F: "Zsmall",
	}
	for code, name := range entries {
		t.SetGlyph(code, name)
	}
	return t
}
