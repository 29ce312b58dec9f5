package text

// Names of the built-in tables.
const (
	IdentityTable = "identity"
	BCCTable      = "bcc"
)

// Preset returns a built-in table. An empty name selects the identity table.
func Preset(name string) (*Table, bool) {
	switch name {
	case "", IdentityTable:
		return Identity(), true
	case BCCTable:
		return BCC(), true
	default:
		return nil, false
	}
}

// Identity returns a byte table that maps printable ASCII to itself, strings
// end with a zero byte.
func Identity() *Table {
	t := NewTable(IdentityTable, false)
	for c := uint16(0x20); c < 0x7f; c++ {
		t.Set(c, string(rune(c)))
	}
	return t
}

// BCC returns the 16-bit table of the game. Strings end with 0x80LL where LL
// is the string length.
func BCC() *Table {
	t := NewTable(BCCTable, true)
	t.Terminator = 0x8000
	t.TerminatorMask = 0xff00 // low byte holds the length

	t.Set(0x00, " ")
	for i := uint16(0); i < 10; i++ {
		t.Set(1+i, string(rune('0'+i)))
	}
	for i := uint16(0); i < 26; i++ {
		t.Set(0x5e+i, string(rune('A'+i)))
		t.Set(0xeb+i, string(rune('a'+i)))
	}
	t.Set(0x79, "×")
	t.Set(0x7c, "?")
	t.Set(0x7d, "+")
	t.Set(0x81, "!")
	t.Set(0x87, ".")
	t.Set(0x8c, "∀")
	t.Set(0x99, "_")
	t.Set(0x109, "-")
	return t
}
