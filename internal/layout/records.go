package layout

// Field names referenced outside of the layout definitions.
const (
	FieldNavi = "navi"
)

// EncounterChipFields are the fields of an encounter that hold chip library
// codes.
var EncounterChipFields = []string{
	"chipBottomFirst",
	"chipTopFirst",
	"chipBottomMiddle",
	"chipMiddleMiddle",
	"chipTopMiddle",
	"chipBottomEnd",
	"chip2End",
	"chip3End",
	"chip4End",
	"chipSlotBot",
	"chipSlotDown",
}

// Encounter returns the 20 byte encounter record layout.
func Encounter() *Layout {
	fields := []Field{
		{Name: "idx", Offset: 0, Width: 1},
		{Name: "unk1", Offset: 1, Width: 3, Raw: true},
		{Name: "unk4", Offset: 4, Width: 1, Raw: true}, // observed 0x55, 0x3f, never zero
		{Name: FieldNavi, Offset: 5, Width: 1},         // library code + 5
		{Name: "unk6", Offset: 6, Width: 1, Raw: true},
	}
	for i, name := range EncounterChipFields {
		fields = append(fields, Field{Name: name, Offset: 7 + i, Width: 1})
	}
	fields = append(fields,
		Field{Name: "slotBotThresh", Offset: 18, Width: 1},
		Field{Name: "slotTopThresh", Offset: 19, Width: 1},
	)

	return &Layout{
		Name:   "Encounter",
		Size:   20,
		Fields: fields,
	}
}

// Chip returns the chip record layout. The record holds 16 bytes of fields,
// the stride between chips is configured separately.
func Chip() *Layout {
	return &Layout{
		Name: "Chip",
		Size: 16,
		Fields: []Field{
			{Name: "hp", Offset: 0, Width: 2, Format: DecimalHex},
			{Name: "effect", Offset: 2, Width: 2},
			{Name: "AP", Offset: 4, Width: 2},
			{Name: "MB", Offset: 6, Width: 2},
			{Name: "flags", Offset: 8, Width: 2, Format: Hex}, // low nibble element, rest unknown
			{Name: "rarity", Offset: 10, Width: 1},
			{Name: "subtype", Offset: 11, Width: 1},
			{Name: "hit", Offset: 12, Width: 1},
			{Name: "dodge", Offset: 13, Width: 1},
			{Name: "art", Offset: 14, Width: 1},
			{Name: "palette", Offset: 15, Width: 1},
		},
	}
}

// StartingChips returns the layout of the starting chip list.
func StartingChips() *Layout {
	l := &Layout{
		Name: "StartingChips",
		Size: 7,
	}
	for i := range 7 {
		l.Fields = append(l.Fields, Field{Name: "chip" + string(rune('1'+i)), Offset: i, Width: 1})
	}
	return l
}
