// Package writer implements the text and JSON lines emitters of extracted tables.
package writer

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/retroenv/bccextract/internal/layout"
	"github.com/retroenv/bccextract/internal/options"
	"github.com/retroenv/bccextract/internal/rom"
	"github.com/retroenv/bccextract/internal/text"
)

// Emitter defines a shared interface used by the different output formats.
type Emitter interface {
	Banner(banner Banner) error
	Header(header Header) error
	Line(line Line) error
	Footer(errorCount int) error
}

// Banner describes the processed image.
type Banner struct {
	Path  string
	Title string
	Size  int
}

// Header starts the output of a table.
type Header struct {
	Table  string
	Base   int // image offset of the table
	Stride int
	Count  int // number of emitted elements
}

// Kind of an emitted field.
type Kind int

// Field kinds.
const (
	IntField    Kind = iota // integer, Text holds the display form
	RawField                // bytes as lowercase hex
	StringField             // escaped game text
	ErrorField              // per-record error description
)

// Field is a named value of an output line.
type Field struct {
	Name string
	Kind Kind
	Int  int64
	Text string
}

// Line is one table element.
type Line struct {
	Table  string
	Index  int
	Fields []Field
}

// New returns the emitter for the output format.
func New(format string, w io.Writer) (Emitter, error) {
	switch format {
	case "", options.FormatText:
		return &Text{writer: w}, nil
	case options.FormatJSON:
		return &JSON{writer: w}, nil
	default:
		return nil, fmt.Errorf("unsupported output format '%s'", format)
	}
}

// Open returns the output sink. An empty path selects standard output, which
// is not closed by the returned close function.
func Open(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stdout, func() error { return nil }, nil
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return file, file.Close, nil
}

// RecordFields converts the values of a decoded record to output fields.
func RecordFields(record layout.Record) []Field {
	fields := make([]Field, 0, len(record.Values))
	for _, value := range record.Values {
		field := Field{
			Name: value.Field.Name,
			Kind: IntField,
			Int:  value.Int,
			Text: value.String(),
		}
		if value.Field.Raw {
			field.Kind = RawField
		}
		fields = append(fields, field)
	}
	return fields
}

// IntValue returns a decimal integer field.
func IntValue(name string, value int) Field {
	return Field{
		Name: name,
		Kind: IntField,
		Int:  int64(value),
		Text: strconv.Itoa(value),
	}
}

// StringValue returns the field for decoded strings. Multiple strings are
// joined with an escaped newline.
func StringValue(name string, lines []text.Text) Field {
	return Field{
		Name: name,
		Kind: StringField,
		Text: text.Render(lines),
	}
}

// ErrorValue returns the field describing a per-record error.
func ErrorValue(name string, err error) Field {
	return Field{
		Name: name,
		Kind: ErrorField,
		Text: rom.Kind(err) + ": " + err.Error(),
	}
}

// quote escapes the characters that would end a quoted value. Game text is
// escaped by the text package already.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
