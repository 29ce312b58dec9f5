package text

import (
	"fmt"

	"github.com/retroenv/bccextract/internal/rom"
)

// DefaultMaxScan bounds runaway decoding of a single string.
const DefaultMaxScan = 256

// Token is a decoded code unit. Unmapped units keep their raw value.
type Token struct {
	Value  uint16
	Glyph  string
	Mapped bool
}

// Text is a decoded string.
type Text struct {
	Offset     int     // image offset of the first code unit
	Tokens     []Token // glyphs without the terminator
	Terminator uint16  // terminator unit as found in the image
	Size       int     // bytes consumed including the terminator
}

// Unknown returns the number of unmapped code units.
func (t Text) Unknown() int {
	var n int
	for _, token := range t.Tokens {
		if !token.Mapped {
			n++
		}
	}
	return n
}

// Decoder reads strings from an image.
type Decoder struct {
	Table      *Table
	MaxScan    int    // maximum bytes scanned, including the terminator
	FormatMask uint16 // bits cleared from every unit before lookup
}

// NewDecoder returns a decoder for the table.
func NewDecoder(table *Table, maxScan int) Decoder {
	if maxScan <= 0 {
		maxScan = DefaultMaxScan
	}
	return Decoder{
		Table:   table,
		MaxScan: maxScan,
	}
}

// WithFormatMask returns a copy of the decoder that clears the given bits.
func (d Decoder) WithFormatMask(mask uint16) Decoder {
	d.FormatMask = mask
	return d
}

// Decode reads code units starting at offset until the terminator. If the
// terminator is not found within MaxScan bytes the decoded prefix is returned
// together with an ErrUnterminatedString error.
func (d Decoder) Decode(img *rom.Image, offset int) (Text, error) {
	text := Text{Offset: offset}
	unitSize := d.Table.UnitSize()

	for scanned := 0; ; scanned += unitSize {
		if scanned+unitSize > d.MaxScan {
			text.Size = scanned
			return text, fmt.Errorf("%w: no terminator within %d bytes at offset 0x%x",
				rom.ErrUnterminatedString, d.MaxScan, offset)
		}

		unit, err := d.readUnit(img, offset+scanned)
		if err != nil {
			text.Size = scanned
			return text, fmt.Errorf("string at offset 0x%x: %w", offset, err)
		}

		if d.Table.IsTerminator(unit) {
			text.Terminator = unit
			text.Size = scanned + unitSize
			return text, nil
		}

		unit &^= d.FormatMask
		glyph, ok := d.Table.Glyph(unit)
		text.Tokens = append(text.Tokens, Token{Value: unit, Glyph: glyph, Mapped: ok})
	}
}

// DecodeLines reads count consecutive strings starting at offset.
func (d Decoder) DecodeLines(img *rom.Image, offset, count int) ([]Text, error) {
	lines := make([]Text, 0, count)
	for range count {
		text, err := d.Decode(img, offset)
		lines = append(lines, text)
		if err != nil {
			return lines, err
		}
		offset += text.Size
	}
	return lines, nil
}

func (d Decoder) readUnit(img *rom.Image, offset int) (uint16, error) {
	if d.Table.Wide {
		return img.Uint16(offset)
	}
	b, err := img.Byte(offset)
	return uint16(b), err
}

// Encode returns the code units of the tokens as bytes, without terminator.
func Encode(values []uint16, wide bool) []byte {
	if !wide {
		buf := make([]byte, len(values))
		for i, value := range values {
			buf[i] = byte(value)
		}
		return buf
	}

	buf := make([]byte, 0, 2*len(values))
	for _, value := range values {
		buf = append(buf, byte(value), byte(value>>8))
	}
	return buf
}
