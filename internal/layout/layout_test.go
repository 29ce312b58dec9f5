package layout

import (
	"errors"
	"testing"

	"github.com/retroenv/bccextract/internal/rom"
	"github.com/retroenv/retrogolib/assert"
)

var testChip = []byte{
	0x64, 0x00, // hp
	0x01, 0x00, // effect
	0x50, 0x00, // AP
	0x1e, 0x00, // MB
	0x10, 0x00, // flags
	0x03,       // rarity
	0x01,       // subtype
	0x80,       // hit
	0x40,       // dodge
	0x07,       // art
	0x02,       // palette
}

func TestBuiltinLayoutsAreValid(t *testing.T) {
	for _, l := range []*Layout{Encounter(), Chip(), StartingChips()} {
		t.Run(l.Name, func(t *testing.T) {
			assert.NoError(t, l.Validate())
		})
	}
	assert.Equal(t, 20, Encounter().Size)
	assert.Equal(t, 16, Chip().Size)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
	}{
		{
			name:   "zero size",
			layout: Layout{Name: "x"},
		},
		{
			name:   "unsupported width",
			layout: Layout{Name: "x", Size: 4, Fields: []Field{{Name: "a", Width: 3}}},
		},
		{
			name:   "field past end",
			layout: Layout{Name: "x", Size: 4, Fields: []Field{{Name: "a", Offset: 2, Width: 4}}},
		},
		{
			name: "overlapping fields",
			layout: Layout{Name: "x", Size: 4, Fields: []Field{
				{Name: "a", Offset: 0, Width: 2},
				{Name: "b", Offset: 1, Width: 1},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.layout.Validate(), errInvalidLayout))
		})
	}
}

func TestDecodeChip(t *testing.T) {
	data := make([]byte, 0x200)
	copy(data[0x100:], testChip)
	img := rom.NewImage(data)

	record, err := Chip().Decode(img, 0x100)
	assert.NoError(t, err)
	assert.Equal(t, 0x100, record.Offset)

	expected := map[string]uint32{
		"hp": 100, "effect": 1, "AP": 80, "MB": 30, "flags": 0x10,
		"rarity": 3, "subtype": 1, "hit": 128, "dodge": 64, "art": 7, "palette": 2,
	}
	for name, want := range expected {
		assert.Equal(t, want, record.Uint(name))
	}

	hp, ok := record.Value("hp")
	assert.True(t, ok)
	assert.Equal(t, "100 (0x64)", hp.String())
	flags, _ := record.Value("flags")
	assert.Equal(t, "0x0010", flags.String())
	mb, _ := record.Value("MB")
	assert.Equal(t, "30", mb.String())
}

func TestDecodePreservesRawFields(t *testing.T) {
	data := []byte{
		0x07, 0xaa, 0xbb, 0xcc, 0x55, 0xd0, 0x99,
		1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13,
	}
	img := rom.NewImage(data)

	record, err := Encounter().Decode(img, 0)
	assert.NoError(t, err)

	unk1, _ := record.Value("unk1")
	assert.Equal(t, []byte{0xaa, 0xbb, 0xcc}, unk1.Raw)
	assert.Equal(t, "aabbcc", unk1.String())
	unk4, _ := record.Value("unk4")
	assert.Equal(t, "55", unk4.String())
	assert.Equal(t, uint32(0xd0), record.Uint(FieldNavi))
	assert.Equal(t, uint32(13), record.Uint("slotTopThresh"))

	buf := make([]byte, 20)
	assert.NoError(t, Encounter().Encode(record, buf))
	assert.Equal(t, data, buf)
}

func TestDecodeSignedFields(t *testing.T) {
	l := &Layout{Name: "signed", Size: 7, Fields: []Field{
		{Name: "b", Offset: 0, Width: 1, Signed: true},
		{Name: "w", Offset: 1, Width: 2, Signed: true},
		{Name: "d", Offset: 3, Width: 4, Signed: true},
	}}
	assert.NoError(t, l.Validate())

	data := []byte{0xff, 0xfe, 0xff, 0x00, 0x00, 0x00, 0x80}
	record, err := l.Decode(rom.NewImage(data), 0)
	assert.NoError(t, err)

	b, _ := record.Value("b")
	w, _ := record.Value("w")
	d, _ := record.Value("d")
	assert.Equal(t, int64(-1), b.Int)
	assert.Equal(t, int64(-2), w.Int)
	assert.Equal(t, int64(-2147483648), d.Int)

	buf := make([]byte, 7)
	assert.NoError(t, l.Encode(record, buf))
	assert.Equal(t, data, buf)
}

func TestDecodePastImageEnd(t *testing.T) {
	img := rom.NewImage(make([]byte, 20))
	_, err := Chip().Decode(img, 8)
	assert.True(t, errors.Is(err, rom.ErrBadLayout))
}

func TestParseValue(t *testing.T) {
	l := Chip()
	hp, _ := l.FieldByName("hp")
	value, err := hp.ParseValue("100")
	assert.NoError(t, err)
	assert.Equal(t, int64(100), value.Int)

	flags, _ := l.FieldByName("flags")
	value, err = flags.ParseValue("0x0010")
	assert.NoError(t, err)
	assert.Equal(t, int64(0x10), value.Int)

	_, err = flags.ParseValue("zz")
	assert.Error(t, err)

	unk1, _ := Encounter().FieldByName("unk1")
	value, err = unk1.ParseValue("0a0b0c")
	assert.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0x0b, 0x0c}, value.Raw)

	_, err = unk1.ParseValue("0a0b")
	assert.Error(t, err)
}
