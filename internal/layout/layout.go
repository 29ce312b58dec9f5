// Package layout implements fixed size little-endian record layouts and the
// stateless record decoder. The decoder only transcribes, it never interprets.
package layout

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/retroenv/bccextract/internal/rom"
)

// Format controls how an integer field is displayed.
type Format int

// Display formats of integer fields.
const (
	Decimal    Format = iota // 30
	DecimalHex               // 100 (0x64)
	Hex                      // 0x0010
)

// Field describes one field of a record.
type Field struct {
	Name   string
	Offset int // offset within the record
	Width  int // 1, 2 or 4 for integers, any positive width for raw fields
	Signed bool
	Raw    bool // unknown field, bytes are passed through verbatim
	Format Format
}

// Layout describes a fixed size record.
type Layout struct {
	Name   string
	Size   int
	Fields []Field
}

// Value is a decoded field value.
type Value struct {
	Field *Field
	Int   int64
	Raw   []byte
}

// Record is a decoded record.
type Record struct {
	Layout *Layout
	Offset int // image offset of the record
	Values []Value
}

var errInvalidLayout = errors.New("invalid layout")

// Validate checks that all fields fit the record and use supported widths.
func (l *Layout) Validate() error {
	if l.Size <= 0 {
		return fmt.Errorf("%w %s: size %d", errInvalidLayout, l.Name, l.Size)
	}

	used := make([]string, l.Size)
	for _, field := range l.Fields {
		if !field.Raw && field.Width != 1 && field.Width != 2 && field.Width != 4 {
			return fmt.Errorf("%w %s: field %s has unsupported width %d", errInvalidLayout, l.Name, field.Name, field.Width)
		}
		if field.Width <= 0 || field.Offset < 0 || field.Offset+field.Width > l.Size {
			return fmt.Errorf("%w %s: field %s exceeds record size %d", errInvalidLayout, l.Name, field.Name, l.Size)
		}
		for i := field.Offset; i < field.Offset+field.Width; i++ {
			if used[i] != "" {
				return fmt.Errorf("%w %s: fields %s and %s overlap", errInvalidLayout, l.Name, used[i], field.Name)
			}
			used[i] = field.Name
		}
	}
	return nil
}

// FieldByName returns the field with the given name.
func (l *Layout) FieldByName(name string) (*Field, bool) {
	for i := range l.Fields {
		if l.Fields[i].Name == name {
			return &l.Fields[i], true
		}
	}
	return nil, false
}

// Decode reads the record at the given image offset.
func (l *Layout) Decode(img *rom.Image, offset int) (Record, error) {
	data, err := img.Span(offset, l.Size)
	if err != nil {
		return Record{}, fmt.Errorf("decoding %s record at 0x%x: %w", l.Name, offset, err)
	}

	record := Record{
		Layout: l,
		Offset: offset,
		Values: make([]Value, len(l.Fields)),
	}
	for i := range l.Fields {
		field := &l.Fields[i]
		record.Values[i] = decodeField(field, data[field.Offset:field.Offset+field.Width])
	}
	return record, nil
}

// Encode writes the record into buf, which has to hold at least Size bytes.
// Bytes not covered by any field are left untouched.
func (l *Layout) Encode(record Record, buf []byte) error {
	if len(buf) < l.Size {
		return fmt.Errorf("%w: buffer of %d bytes for %s record of %d bytes", rom.ErrBadLayout, len(buf), l.Name, l.Size)
	}

	for _, value := range record.Values {
		field := value.Field
		out := buf[field.Offset : field.Offset+field.Width]
		if field.Raw {
			if len(value.Raw) != field.Width {
				return fmt.Errorf("%w: raw field %s has %d bytes, expected %d", rom.ErrBadLayout, field.Name, len(value.Raw), field.Width)
			}
			copy(out, value.Raw)
			continue
		}

		switch field.Width {
		case 1:
			out[0] = byte(value.Int)
		case 2:
			binary.LittleEndian.PutUint16(out, uint16(value.Int))
		case 4:
			binary.LittleEndian.PutUint32(out, uint32(value.Int))
		}
	}
	return nil
}

func decodeField(field *Field, data []byte) Value {
	value := Value{Field: field}
	if field.Raw {
		value.Raw = append([]byte(nil), data...)
		return value
	}

	switch field.Width {
	case 1:
		if field.Signed {
			value.Int = int64(int8(data[0]))
		} else {
			value.Int = int64(data[0])
		}
	case 2:
		w := binary.LittleEndian.Uint16(data)
		if field.Signed {
			value.Int = int64(int16(w))
		} else {
			value.Int = int64(w)
		}
	case 4:
		d := binary.LittleEndian.Uint32(data)
		if field.Signed {
			value.Int = int64(int32(d))
		} else {
			value.Int = int64(d)
		}
	}
	return value
}

// Value returns the value of the named field.
func (r Record) Value(name string) (Value, bool) {
	for _, value := range r.Values {
		if value.Field.Name == name {
			return value, true
		}
	}
	return Value{}, false
}

// Uint returns the integer value of the named field, 0 for unknown fields.
func (r Record) Uint(name string) uint32 {
	value, ok := r.Value(name)
	if !ok {
		return 0
	}
	return uint32(value.Int)
}

// String returns the display form of the value.
func (v Value) String() string {
	field := v.Field
	if field.Raw {
		return hex.EncodeToString(v.Raw)
	}

	switch field.Format {
	case DecimalHex:
		return fmt.Sprintf("%d (0x%x)", v.Int, uint64(v.Int)&widthMask(field.Width))
	case Hex:
		return fmt.Sprintf("0x%0*x", field.Width*2, uint64(v.Int)&widthMask(field.Width))
	default:
		return strconv.FormatInt(v.Int, 10)
	}
}

// ParseValue parses the display form of a field value. For fields displayed
// in decimal with hex annotation only the decimal part is expected.
func (f *Field) ParseValue(s string) (Value, error) {
	value := Value{Field: f}
	if f.Raw {
		raw, err := hex.DecodeString(s)
		if err != nil {
			return value, fmt.Errorf("parsing raw field %s: %w", f.Name, err)
		}
		if len(raw) != f.Width {
			return value, fmt.Errorf("raw field %s has %d bytes, expected %d", f.Name, len(raw), f.Width)
		}
		value.Raw = raw
		return value, nil
	}

	i, err := strconv.ParseInt(s, 0, 64)
	if err != nil {
		return value, fmt.Errorf("parsing field %s: %w", f.Name, err)
	}
	value.Int = i
	return value, nil
}

func widthMask(width int) uint64 {
	return 1<<(uint(width)*8) - 1
}
