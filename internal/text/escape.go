package text

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

var errInvalidEscape = errors.New("invalid escaped string")

// String renders the text in escaped form: printable ASCII glyphs as is,
// named glyphs as {name}, other characters as \u escapes and unmapped units
// as \xHH, or \x{HHHH} for wide tables.
func (t Text) String() string {
	var sb strings.Builder
	for _, token := range t.Tokens {
		writeToken(&sb, token)
	}
	return sb.String()
}

// Render joins the escaped form of multiple strings with \n.
func Render(lines []Text) string {
	parts := make([]string, len(lines))
	for i, line := range lines {
		parts[i] = line.String()
	}
	return strings.Join(parts, `\n`)
}

func writeToken(sb *strings.Builder, token Token) {
	if !token.Mapped {
		if token.Value > 0xff {
			fmt.Fprintf(sb, `\x{%04x}`, token.Value)
		} else {
			fmt.Fprintf(sb, `\x%02x`, token.Value)
		}
		return
	}

	if utf8.RuneCountInString(token.Glyph) > 1 {
		sb.WriteString("{" + token.Glyph + "}")
		return
	}

	r, _ := utf8.DecodeRuneInString(token.Glyph)
	switch {
	case r == '"' || r == '\\' || r == '{':
		sb.WriteByte('\\')
		sb.WriteRune(r)
	case r >= 0x20 && r < 0x7f:
		sb.WriteRune(r)
	case r > 0xffff:
		fmt.Fprintf(sb, `\U%08x`, r)
	default:
		fmt.Fprintf(sb, `\u%04x`, r)
	}
}

// Parse converts an escaped string back to code units using the table. The
// result holds one slice of units per \n separated string.
func Parse(s string, table *Table) ([][]uint16, error) {
	lines := [][]uint16{{}}
	current := 0

	for i := 0; i < len(s); {
		c := s[i]
		switch c {
		case '{':
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				return nil, fmt.Errorf("%w: unclosed glyph name at %d", errInvalidEscape, i)
			}
			value, err := lookup(table, s[i+1:i+end])
			if err != nil {
				return nil, err
			}
			lines[current] = append(lines[current], value)
			i += end + 1

		case '\\':
			value, size, newline, err := parseEscape(s[i:], table)
			if err != nil {
				return nil, err
			}
			if newline {
				lines = append(lines, []uint16{})
				current++
			} else {
				lines[current] = append(lines[current], value)
			}
			i += size

		default:
			r, size := utf8.DecodeRuneInString(s[i:])
			value, err := lookup(table, string(r))
			if err != nil {
				return nil, err
			}
			lines[current] = append(lines[current], value)
			i += size
		}
	}
	return lines, nil
}

func parseEscape(s string, table *Table) (uint16, int, bool, error) {
	if len(s) < 2 {
		return 0, 0, false, fmt.Errorf("%w: trailing backslash", errInvalidEscape)
	}

	switch s[1] {
	case 'n':
		return 0, 2, true, nil

	case '"', '\\', '{':
		value, err := lookup(table, string(s[1]))
		return value, 2, false, err

	case 'x':
		if strings.HasPrefix(s[2:], "{") {
			end := strings.IndexByte(s, '}')
			if end < 0 {
				return 0, 0, false, fmt.Errorf("%w: unclosed \\x{", errInvalidEscape)
			}
			value, err := strconv.ParseUint(s[3:end], 16, 16)
			if err != nil {
				return 0, 0, false, fmt.Errorf("%w: %w", errInvalidEscape, err)
			}
			return uint16(value), end + 1, false, nil
		}
		return parseHex(s, 2, nil)

	case 'u':
		return parseHex(s, 4, table)

	case 'U':
		return parseHex(s, 8, table)

	default:
		return 0, 0, false, fmt.Errorf("%w: unknown escape \\%c", errInvalidEscape, s[1])
	}
}

// parseHex parses a fixed width hex escape. Without a table the value is the
// raw unit, otherwise it is a rune that is looked up in the table.
func parseHex(s string, digits int, table *Table) (uint16, int, bool, error) {
	if len(s) < 2+digits {
		return 0, 0, false, fmt.Errorf("%w: short escape %q", errInvalidEscape, s)
	}
	value, err := strconv.ParseUint(s[2:2+digits], 16, 32)
	if err != nil {
		return 0, 0, false, fmt.Errorf("%w: %w", errInvalidEscape, err)
	}
	if table == nil {
		return uint16(value), 2 + digits, false, nil
	}

	unit, err := lookup(table, string(rune(value)))
	return unit, 2 + digits, false, err
}

func lookup(table *Table, glyph string) (uint16, error) {
	value, ok := table.Value(glyph)
	if !ok {
		return 0, fmt.Errorf("%w: glyph %q is not in table %s", errInvalidEscape, glyph, table.Name)
	}
	return value, nil
}
