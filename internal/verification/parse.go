package verification

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/retroenv/bccextract/internal/options"
	"github.com/retroenv/bccextract/internal/writer"
	"github.com/tidwall/gjson"
)

// table is an emitted table as read back from the output.
type table struct {
	name   string
	base   int // image offset
	stride int
	count  int
	lines  []line
}

// line is an emitted element with the field values in display form.
type line struct {
	index  int
	fields map[string]string
}

func parseText(data []byte) ([]*table, error) {
	var tables []*table
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for lineNumber := 1; scanner.Scan(); lineNumber++ {
		s := scanner.Text()
		switch {
		case s == "":
			continue

		case strings.HasPrefix(s, "# table="):
			fields, err := parseFields(strings.TrimPrefix(s, "# "))
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNumber, err)
			}
			t, err := textHeader(fields)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNumber, err)
			}
			tables = append(tables, t)

		case strings.HasPrefix(s, "#"):
			continue

		default:
			if len(tables) == 0 {
				return nil, fmt.Errorf("line %d: record outside of a table", lineNumber)
			}
			fields, err := parseFields(s)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNumber, err)
			}
			index, err := strconv.Atoi(fields["index"])
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid index: %w", lineNumber, err)
			}
			delete(fields, "index")

			t := tables[len(tables)-1]
			t.lines = append(t.lines, line{index: index, fields: fields})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning output: %w", err)
	}
	return tables, nil
}

func textHeader(fields map[string]string) (*table, error) {
	base, err := strconv.ParseUint(fields["base"], 0, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid table base: %w", err)
	}
	stride, err := strconv.Atoi(fields["stride"])
	if err != nil {
		return nil, fmt.Errorf("invalid table stride: %w", err)
	}
	count, err := strconv.Atoi(fields["count"])
	if err != nil {
		return nil, fmt.Errorf("invalid table count: %w", err)
	}

	return &table{
		name:   fields["table"],
		base:   options.Offset(uint32(base)),
		stride: stride,
		count:  count,
	}, nil
}

// parseFields splits a line of the form "name=value name="quoted" ..." into
// its fields. Unquoted values may contain spaces, they end before the next
// " name=" sequence.
func parseFields(s string) (map[string]string, error) {
	fields := map[string]string{}

	for s != "" {
		eq := strings.IndexByte(s, '=')
		if eq <= 0 {
			return nil, fmt.Errorf("missing field name in '%s'", s)
		}
		name := s[:eq]
		rest := s[eq+1:]

		var end int
		if strings.HasPrefix(rest, `"`) {
			closing := closingQuote(rest)
			if closing < 0 {
				return nil, fmt.Errorf("unterminated quoted value of field %s", name)
			}
			fields[name] = rest[1:closing]
			end = closing + 1
		} else {
			end = nextField(rest)
			fields[name] = rest[:end]
		}
		s = strings.TrimPrefix(rest[end:], " ")
	}
	return fields, nil
}

func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

func nextField(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] == ' ' && startsField(s[i+1:]) {
			return i
		}
	}
	return len(s)
}

func startsField(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '=':
			return i > 0
		case c == '_' || c == '-' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return false
}

func parseJSON(data []byte) ([]*table, error) {
	var tables []*table

	for lineNumber, s := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(s) == "" {
			continue
		}
		if !gjson.Valid(s) {
			return nil, fmt.Errorf("line %d: invalid json", lineNumber+1)
		}

		result := gjson.Parse(s)
		switch result.Get("type").String() {
		case writer.TypeTable:
			tables = append(tables, &table{
				name:   result.Get("table").String(),
				base:   int(result.Get("base").Int()),
				stride: int(result.Get("stride").Int()),
				count:  int(result.Get("count").Int()),
			})

		case writer.TypeRecord:
			if len(tables) == 0 {
				return nil, fmt.Errorf("line %d: record outside of a table", lineNumber+1)
			}
			l := line{
				index:  int(result.Get("index").Int()),
				fields: map[string]string{},
			}
			result.Get("fields").ForEach(func(key, value gjson.Result) bool {
				if value.Type == gjson.Number {
					l.fields[key.String()] = value.Raw
				} else {
					l.fields[key.String()] = value.String()
				}
				return true
			})

			t := tables[len(tables)-1]
			t.lines = append(t.lines, l)
		}
	}
	return tables, nil
}
