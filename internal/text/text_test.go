package text

import (
	"errors"
	"strings"
	"testing"

	"github.com/retroenv/bccextract/internal/rom"
	"github.com/retroenv/retrogolib/assert"
)

func TestParseTable(t *testing.T) {
	input := "# test table\n41 A\n42=B\n20= \n/E6\nE0 heart\nFF é\n"
	table, err := ParseTable(strings.NewReader(input), "test.tbl", false)
	assert.NoError(t, err)
	assert.Equal(t, 5, table.Len())
	assert.Equal(t, uint16(0xe6), table.Terminator)
	assert.True(t, table.IsTerminator(0xe6))
	assert.False(t, table.IsTerminator(0xe7))

	glyph, ok := table.Glyph(0x20)
	assert.True(t, ok)
	assert.Equal(t, " ", glyph)
	glyph, _ = table.Glyph(0xe0)
	assert.Equal(t, "heart", glyph)
	assert.Equal(t, []uint16{0x20, 0x41, 0x42, 0xe0, 0xff}, table.Values())
}

func TestParseTableErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		wide  bool
	}{
		{"missing glyph", "41\n", false},
		{"bad hex", "4G A\n", false},
		{"byte table with wide code", "0141 A\n", false},
		{"empty glyph", "41=\n", false},
		{"reserved characters in name", "41 {x}\n", false},
		{"bad terminator", "/XYZ\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTable(strings.NewReader(tt.input), "bad.tbl", tt.wide)
			assert.True(t, errors.Is(err, errInvalidTable))
		})
	}
}

func TestDecodeIdentity(t *testing.T) {
	data := make([]byte, 0x20)
	copy(data[0x10:], []byte{0x41, 0x42, 0x43, 0x00})
	img := rom.NewImage(data)

	d := NewDecoder(Identity(), 0)
	text, err := d.Decode(img, 0x10)
	assert.NoError(t, err)
	assert.Equal(t, "ABC", text.String())
	assert.Equal(t, 4, text.Size)
	assert.Equal(t, 0, text.Unknown())
}

func TestDecodeUnmappedBytesArePreserved(t *testing.T) {
	img := rom.NewImage([]byte{0x41, 0x01, 0x22, 0x5c, 0x7b, 0xff, 0x00})

	text, err := NewDecoder(Identity(), 0).Decode(img, 0)
	assert.NoError(t, err)
	assert.Equal(t, `A\x01\"\\\{\xff`, text.String())
	assert.Equal(t, 2, text.Unknown())

	lines, err := Parse(text.String(), Identity())
	assert.NoError(t, err)
	assert.Len(t, lines, 1)
	assert.Equal(t, []byte{0x41, 0x01, 0x22, 0x5c, 0x7b, 0xff}, Encode(lines[0], false))
}

func TestDecodeUnterminated(t *testing.T) {
	data := make([]byte, 512)
	for i := range data {
		data[i] = 'x'
	}
	img := rom.NewImage(data)

	text, err := NewDecoder(Identity(), 256).Decode(img, 0)
	assert.True(t, errors.Is(err, rom.ErrUnterminatedString))
	assert.Len(t, text.Tokens, 256)
	assert.Equal(t, strings.Repeat("x", 256), text.String())
}

func TestDecodeTerminatorAtScanLimit(t *testing.T) {
	data := make([]byte, 256)
	for i := range 255 {
		data[i] = 'y'
	}
	img := rom.NewImage(data)

	text, err := NewDecoder(Identity(), 256).Decode(img, 0)
	assert.NoError(t, err)
	assert.Len(t, text.Tokens, 255)
	assert.Equal(t, 256, text.Size)
}

func TestDecodeAtImageEnd(t *testing.T) {
	img := rom.NewImage([]byte{'a', 'b'})

	text, err := NewDecoder(Identity(), 0).Decode(img, 0)
	assert.True(t, errors.Is(err, rom.ErrBadLayout))
	assert.Equal(t, "ab", text.String())
}

func TestDecodeWide(t *testing.T) {
	// "Cannon" followed by the 0x80LL terminator
	data := []byte{
		0x60, 0x00, 0xeb, 0x00, 0xf8, 0x00, 0xf8, 0x00, 0xf9, 0x00, 0xf8, 0x00,
		0x06, 0x80,
	}
	img := rom.NewImage(data)

	text, err := NewDecoder(BCC(), 0).Decode(img, 0)
	assert.NoError(t, err)
	assert.Equal(t, "Cannon", text.String())
	assert.Equal(t, uint16(0x8006), text.Terminator)
	assert.Equal(t, 14, text.Size)
}

func TestDecodeWideFormatMask(t *testing.T) {
	// "Ab1" rendered with the 0x0600 bold format, then terminator
	data := []byte{0x5e, 0x06, 0xec, 0x06, 0x02, 0x06, 0x03, 0x80}
	img := rom.NewImage(data)

	d := NewDecoder(BCC(), 0).WithFormatMask(0x0600)
	text, err := d.Decode(img, 0)
	assert.NoError(t, err)
	assert.Equal(t, "Ab1", text.String())

	plain, err := NewDecoder(BCC(), 0).Decode(img, 0)
	assert.NoError(t, err)
	assert.Equal(t, `\x{065e}\x{06ec}\x{0602}`, plain.String())
}

func TestDecodeWideTableFileZeroTerminator(t *testing.T) {
	table, err := ParseTable(strings.NewReader("0041 A\n0042 B\n"), "wide.tbl", true)
	assert.NoError(t, err)
	assert.Equal(t, uint16(0xffff), table.TerminatorMask)

	img := rom.NewImage([]byte{0x41, 0x00, 0x42, 0x00, 0x00, 0x00})
	text, err := NewDecoder(table, 0).Decode(img, 0)
	assert.NoError(t, err)
	assert.Equal(t, "AB", text.String())
	assert.Equal(t, 6, text.Size)
}

func TestDecodeLines(t *testing.T) {
	data := []byte{
		0x5e, 0x00, 0x01, 0x80, // "A"
		0x5f, 0x00, 0x60, 0x00, 0x02, 0x80, // "BC"
	}
	img := rom.NewImage(data)

	lines, err := NewDecoder(BCC(), 0).DecodeLines(img, 0, 2)
	assert.NoError(t, err)
	assert.Equal(t, `A\nBC`, Render(lines))

	units, err := Parse(Render(lines), BCC())
	assert.NoError(t, err)
	assert.Len(t, units, 2)
	assert.Equal(t, []uint16{0x5f, 0x60}, units[1])
	assert.Equal(t, []byte{0x5f, 0x00, 0x60, 0x00}, Encode(units[1], true))
}

func TestRenderAndParseNamedGlyphs(t *testing.T) {
	table := NewTable("named", false)
	table.Set(0x01, "heart")
	table.Set(0x02, "é")
	table.Set(0x03, "A")

	text := Text{Tokens: []Token{
		{Value: 0x01, Glyph: "heart", Mapped: true},
		{Value: 0x02, Glyph: "é", Mapped: true},
		{Value: 0x03, Glyph: "A", Mapped: true},
	}}
	assert.Equal(t, `{heart}\u00e9A`, text.String())

	units, err := Parse(text.String(), table)
	assert.NoError(t, err)
	assert.Equal(t, []uint16{0x01, 0x02, 0x03}, units[0])
}

func TestParseErrors(t *testing.T) {
	for _, s := range []string{`{heart`, `\`, `\q`, `\x4`, `\x{12`, `Z`} {
		_, err := Parse(s, NewTable("empty", false))
		assert.True(t, errors.Is(err, errInvalidEscape))
	}
}

func TestPresets(t *testing.T) {
	identity, ok := Preset("")
	assert.True(t, ok)
	assert.Equal(t, IdentityTable, identity.Name)
	assert.True(t, identity.IsTerminator(0x00))

	bcc, ok := Preset(BCCTable)
	assert.True(t, ok)
	assert.True(t, bcc.Wide)
	assert.True(t, bcc.IsTerminator(0x8000))
	assert.True(t, bcc.IsTerminator(0x8008))
	assert.False(t, bcc.IsTerminator(0x0080))

	value, ok := bcc.Value("z")
	assert.True(t, ok)
	assert.Equal(t, uint16(0xeb+25), value)

	_, ok = Preset("missing")
	assert.False(t, ok)
}
