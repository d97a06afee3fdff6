package dicom

import (
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/jpfielding/dicomctl.go/pkg/dicom/tag"
)

// DefaultCharacterSet is written by the worklist and capture builders
const DefaultCharacterSet = "ISO_IR 100"

// single byte repertoires, see PS3.2 D.6.2
var singleByteByTerm = map[string]encoding.Encoding{
	"ISO_IR 100":      charmap.ISO8859_1,
	"ISO_IR 101":      charmap.ISO8859_2,
	"ISO_IR 109":      charmap.ISO8859_3,
	"ISO_IR 110":      charmap.ISO8859_4,
	"ISO_IR 144":      charmap.ISO8859_5,
	"ISO_IR 127":      charmap.ISO8859_6,
	"ISO_IR 126":      charmap.ISO8859_7,
	"ISO_IR 138":      charmap.ISO8859_8,
	"ISO_IR 148":      charmap.ISO8859_9,
	"ISO_IR 166":      charmap.Windows874,
	"ISO 2022 IR 100": charmap.ISO8859_1,
	"ISO 2022 IR 101": charmap.ISO8859_2,
	"ISO 2022 IR 144": charmap.ISO8859_5,
	"ISO 2022 IR 126": charmap.ISO8859_7,
	"ISO 2022 IR 148": charmap.ISO8859_9,
}

// multi byte repertoires resolved through the html charset labels
// TODO: code extension escapes for ISO 2022 IR 87/159 are not switched per value
var labelByTerm = map[string]string{
	"ISO_IR 13":       "shift_jis",
	"GB18030":         "gb18030",
	"GBK":             "gbk",
	"ISO 2022 IR 87":  "iso-2022-jp",
	"ISO 2022 IR 159": "iso-2022-jp",
	"ISO 2022 IR 149": "euc-kr",
}

// Charset converts text values between Go strings and the bytes of a
// Specific Character Set. A nil Charset passes bytes through unchanged.
type Charset struct {
	Term string
	enc  encoding.Encoding
}

// LookupCharset resolves a Specific Character Set defined term
func LookupCharset(term string) (*Charset, error) {
	term = strings.TrimSpace(term)
	switch term {
	case "", "ISO_IR 6", "ISO 2022 IR 6", "ISO_IR 192":
		return &Charset{Term: term}, nil
	}
	if enc, ok := singleByteByTerm[term]; ok {
		return &Charset{Term: term, enc: enc}, nil
	}
	label, ok := labelByTerm[term]
	if !ok {
		return nil, fmt.Errorf("specific character set defined term not found: %q", term)
	}
	enc, _ := charset.Lookup(label)
	if enc == nil {
		return nil, fmt.Errorf("missing encoding for label %q", label)
	}
	return &Charset{Term: term, enc: enc}, nil
}

// Encode converts s to the character set, replacing unsupported runes
func (c *Charset) Encode(s string) ([]byte, error) {
	if c == nil || c.enc == nil {
		return []byte(s), nil
	}
	out, err := encoding.ReplaceUnsupported(c.enc.NewEncoder()).String(s)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", c.Term, err)
	}
	return []byte(out), nil
}

// Decode converts bytes in the character set to a Go string
func (c *Charset) Decode(b []byte) (string, error) {
	if c == nil || c.enc == nil {
		return string(b), nil
	}
	out, err := c.enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", c.Term, err)
	}
	return string(out), nil
}

// charsetOf returns the character set declared by ds, or fallback when the
// dataset declares none. Unknown terms fall back with a warning.
func charsetOf(ds *Dataset, fallback *Charset) *Charset {
	elem, ok := ds.Get(tag.SpecificCharacterSet)
	if !ok {
		return fallback
	}
	values, _ := elem.GetStrings()
	term := ""
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			term = v
			break
		}
	}
	cs, err := LookupCharset(term)
	if err != nil {
		slog.Warn("unsupported character set, using bytes as-is", slog.String("term", term))
		return fallback
	}
	return cs
}
