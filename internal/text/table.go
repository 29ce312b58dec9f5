// Package text implements the pluggable game text decoding tables and the
// string decoder.
package text

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var errInvalidTable = errors.New("invalid text table")

// Table maps code units to glyphs. A glyph is either a single printable
// character or a human-readable name.
type Table struct {
	Name           string
	Wide           bool   // 16-bit little-endian code units
	Terminator     uint16 // code unit ending a string
	TerminatorMask uint16 // bits of a unit compared against the terminator

	glyphs map[uint16]string
	values map[string]uint16
}

// NewTable returns an empty table that compares the full unit against the
// terminator.
func NewTable(name string, wide bool) *Table {
	t := &Table{
		Name:           name,
		Wide:           wide,
		TerminatorMask: 0xff,
		glyphs:         map[uint16]string{},
		values:         map[string]uint16{},
	}
	if wide {
		t.TerminatorMask = 0xffff
	}
	return t
}

// Set maps a code unit to a glyph. The first unit set for a glyph is used
// when encoding.
func (t *Table) Set(value uint16, glyph string) {
	t.glyphs[value] = glyph
	if _, ok := t.values[glyph]; !ok {
		t.values[glyph] = value
	}
}

// Glyph returns the glyph of a code unit.
func (t *Table) Glyph(value uint16) (string, bool) {
	glyph, ok := t.glyphs[value]
	return glyph, ok
}

// Value returns the code unit of a glyph.
func (t *Table) Value(glyph string) (uint16, bool) {
	value, ok := t.values[glyph]
	return value, ok
}

// IsTerminator returns whether the code unit ends a string.
func (t *Table) IsTerminator(unit uint16) bool {
	return unit&t.TerminatorMask == t.Terminator&t.TerminatorMask
}

// UnitSize returns the size of a code unit in bytes.
func (t *Table) UnitSize() int {
	if t.Wide {
		return 2
	}
	return 1
}

// Values returns all mapped code units in ascending order.
func (t *Table) Values() []uint16 {
	values := maps.Keys(t.glyphs)
	slices.Sort(values)
	return values
}

// Len returns the number of mapped code units.
func (t *Table) Len() int {
	return len(t.glyphs)
}

// LoadTable returns the preset with the given name or loads a table file.
// An empty name selects the identity table.
func LoadTable(name string, wide bool) (*Table, error) {
	if preset, ok := Preset(name); ok {
		return preset, nil
	}

	file, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening text table %s: %w", name, err)
	}
	defer func() { _ = file.Close() }()

	table, err := ParseTable(file, name, wide)
	if err != nil {
		return nil, fmt.Errorf("reading text table %s: %w", name, err)
	}
	return table, nil
}

// ParseTable reads a line-oriented table: "<hex> <glyph>" or "<hex>=<glyph>"
// per line, "#" starts a comment line and "/<hex>" declares the terminator.
func ParseTable(r io.Reader, name string, wide bool) (*Table, error) {
	table := NewTable(name, wide)
	maxValue := uint64(0xff)
	if wide {
		maxValue = 0xffff
	}

	scanner := bufio.NewScanner(r)
	for lineNumber := 1; scanner.Scan(); lineNumber++ {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" || strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}

		if strings.HasPrefix(line, "/") {
			code, _, _ := strings.Cut(line[1:], "=")
			value, err := parseCode(strings.TrimSpace(code), maxValue)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNumber, err)
			}
			table.Terminator = value
			continue
		}

		code, glyph, err := splitLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNumber, err)
		}
		value, err := parseCode(code, maxValue)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNumber, err)
		}
		if err := validateGlyph(glyph); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNumber, err)
		}
		table.Set(value, glyph)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning table: %w", err)
	}
	return table, nil
}

func splitLine(line string) (string, string, error) {
	if code, glyph, ok := strings.Cut(line, "="); ok {
		return strings.TrimSpace(code), glyph, nil
	}

	fields := strings.Fields(line)
	if len(fields) < 2 {
		return "", "", fmt.Errorf("%w: missing glyph in %q", errInvalidTable, line)
	}
	glyph := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), fields[0]))
	return fields[0], glyph, nil
}

func parseCode(code string, maxValue uint64) (uint16, error) {
	code = strings.TrimPrefix(strings.TrimPrefix(code, "0x"), "0X")
	value, err := strconv.ParseUint(code, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: code %q: %w", errInvalidTable, code, err)
	}
	if value > maxValue {
		return 0, fmt.Errorf("%w: code 0x%x exceeds unit size", errInvalidTable, value)
	}
	return uint16(value), nil
}

func validateGlyph(glyph string) error {
	switch {
	case glyph == "":
		return fmt.Errorf("%w: empty glyph", errInvalidTable)
	case utf8.RuneCountInString(glyph) > 1 && strings.ContainsAny(glyph, "{}\\\""):
		return fmt.Errorf("%w: glyph name %q contains reserved characters", errInvalidTable, glyph)
	}
	return nil
}
