package cmap

import (
	"bytes"
	"errors"
	"io"

	"pdfcore/scanner"
)

// Registry resolves a predefined CMap by name (e.g. "Identity-H",
// "UniGB-UCS2-H") for usecmap, independent of the document's own object
// table. A document-scoped cache wraps this with its own parsed-stream
// registry: a registry of parsed CMaps keyed by CMap name.
type Registry interface {
	ByName(name string) (*CMap, bool)
}

// Parse reads a CMap stream (the bfchar/bfrange/cidchar/cidrange/
// codespacerange/usecmap grammar) and returns the populated
// CMap. reg resolves usecmap base CMaps by name; it may be nil if usecmap is
// not expected to appear.
func Parse(data []byte, reg Registry) (*CMap, error) {
	c := New("")
	sc := scanner.New(byteReaderAt(data), scanner.Config{WindowSize: int64(len(data) + 1)})

	var pending []scanner.Token
	for {
		tok, err := sc.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, err
		}
		switch tok.Type {
		case scanner.TokenKeyword:
			switch tok.Str {
			case "begincodespacerange":
				if err := parseCodespaceBlock(sc, c); err != nil {
					return nil, err
				}
			case "beginbfchar":
				if err := parseBFCharBlock(sc, c); err != nil {
					return nil, err
				}
			case "beginbfrange":
				if err := parseBFRangeBlock(sc, c); err != nil {
					return nil, err
				}
			case "begincidchar":
				if err := parseCIDCharBlock(sc, c); err != nil {
					return nil, err
				}
			case "begincidrange":
				if err := parseCIDRangeBlock(sc, c); err != nil {
					return nil, err
				}
			case "usecmap":
				// Per spec Open Question resolution: usecmap resolves by
				// CMap name only; the preceding operand must be a /Name.
				if len(pending) > 0 && pending[len(pending)-1].Type == scanner.TokenName && reg != nil {
					if base, ok := reg.ByName(pending[len(pending)-1].Str); ok {
						c.Merge(base)
					}
				}
			case "def":
				if len(pending) >= 2 {
					applyDictDef(c, pending)
				}
			}
			pending = pending[:0]
		default:
			pending = append(pending, tok)
			if len(pending) > 8 {
				pending = pending[len(pending)-8:]
			}
		}
	}
	return c, nil
}

// applyDictDef recognizes "/CMapName /Foo def", "/WMode 1 def", and CIDSystemInfo
// dictionary assignment patterns emitted before a literal "def" keyword.
func applyDictDef(c *CMap, pending []scanner.Token) {
	if len(pending) < 2 {
		return
	}
	key := pending[len(pending)-2]
	val := pending[len(pending)-1]
	if key.Type != scanner.TokenName {
		return
	}
	switch key.Str {
	case "CMapName":
		if val.Type == scanner.TokenName {
			c.Name = val.Str
		}
	case "WMode":
		if val.Type == scanner.TokenNumber {
			c.WritingMode = int(val.Int)
		}
	}
}

func parseCodespaceBlock(sc scanner.Scanner, c *CMap) error {
	for {
		lo, ok, err := nextHexToken(sc)
		if err != nil {
			return err
		}
		if !ok {
			return nil // saw endcodespacerange
		}
		hi, ok, err := nextHexToken(sc)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		c.AddCodespaceRange(len(lo.Bytes), beUint(lo.Bytes), beUint(hi.Bytes))
	}
}

func parseBFCharBlock(sc scanner.Scanner, c *CMap) error {
	for {
		src, ok, err := nextHexToken(sc)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		dst, err := sc.Next()
		if err != nil {
			return err
		}
		uni := tokenToUnicode(dst)
		c.AddBFChar(len(src.Bytes), beUint(src.Bytes), uni, true)
	}
}

func parseBFRangeBlock(sc scanner.Scanner, c *CMap) error {
	for {
		lo, ok, err := nextHexToken(sc)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		hi, ok, err := nextHexToken(sc)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		third, err := sc.Next()
		if err != nil {
			return err
		}
		length := len(lo.Bytes)
		start, end := beUint(lo.Bytes), beUint(hi.Bytes)
		switch third.Type {
		case scanner.TokenString:
			uni := decodeUTF16BEWithBOM(third.Bytes)
			if len(uni) == 0 {
				c.AddBFRange(length, start, end, nil, 0, nil, true)
				continue
			}
			prefix := append([]rune(nil), uni[:len(uni)-1]...)
			base := uni[len(uni)-1]
			c.AddBFRange(length, start, end, prefix, base, nil, true)
		case scanner.TokenArray:
			var arr [][]rune
			for {
				el, err := sc.Next()
				if err != nil {
					return err
				}
				if el.Type == scanner.TokenKeyword && el.Str == "]" {
					break
				}
				arr = append(arr, decodeUTF16BEWithBOM(el.Bytes))
			}
			c.AddBFRange(length, start, end, nil, 0, arr, true)
		}
	}
}

func parseCIDCharBlock(sc scanner.Scanner, c *CMap) error {
	for {
		src, ok, err := nextHexToken(sc)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		cid, err := sc.Next()
		if err != nil {
			return err
		}
		if cid.Type != scanner.TokenNumber {
			continue
		}
		c.AddCIDChar(len(src.Bytes), beUint(src.Bytes), uint32(cid.Int), true)
	}
}

func parseCIDRangeBlock(sc scanner.Scanner, c *CMap) error {
	for {
		lo, ok, err := nextHexToken(sc)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		hi, ok, err := nextHexToken(sc)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		cid, err := sc.Next()
		if err != nil {
			return err
		}
		if cid.Type != scanner.TokenNumber {
			continue
		}
		c.AddCIDRange(len(lo.Bytes), beUint(lo.Bytes), beUint(hi.Bytes), uint32(cid.Int), true)
	}
}

// nextHexToken reads the next token, returning ok=false (no error) when an
// "end*" keyword closes the current block instead of a hex string.
func nextHexToken(sc scanner.Scanner) (scanner.Token, bool, error) {
	tok, err := sc.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return scanner.Token{}, false, nil
		}
		return scanner.Token{}, false, err
	}
	if tok.Type == scanner.TokenKeyword {
		return scanner.Token{}, false, nil
	}
	return tok, true, nil
}

// tokenToUnicode converts a bfchar destination token (hex string, in
// practice) to a Unicode rune slice, stripping a leading BOM.
func tokenToUnicode(tok scanner.Token) []rune {
	if tok.Type != scanner.TokenString {
		return nil
	}
	return decodeUTF16BEWithBOM(tok.Bytes)
}

func decodeUTF16BEWithBOM(b []byte) []rune {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		b = b[2:]
	}
	var units []uint16
	for i := 0; i+1 < len(b); i += 2 {
		u := uint16(b[i])<<8 | uint16(b[i+1])
		if u == 0xFFFF {
			continue // 0xFFFF is the unmapped-destination sentinel
		}
		units = append(units, u)
	}
	return utf16Decode(units)
}

func utf16Decode(units []uint16) []rune {
	var out []rune
	for i := 0; i < len(units); i++ {
		u := units[i]
		if u >= 0xD800 && u <= 0xDBFF && i+1 < len(units) {
			lo := units[i+1]
			if lo >= 0xDC00 && lo <= 0xDFFF {
				r := rune(u-0xD800)<<10 + rune(lo-0xDC00) + 0x10000
				out = append(out, r)
				i++
				continue
			}
		}
		out = append(out, rune(u))
	}
	return out
}

// byteReaderAt adapts a byte slice to scanner.ReaderAt.
type byteReaderAt []byte

func (b byteReaderAt) ReadAt(p []byte, off int64) (int, error) {
	return bytes.NewReader(b).ReadAt(p, off)
}
