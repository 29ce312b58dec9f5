// Package walker walks record tables and pointer arrays of an image.
package walker

import (
	"fmt"

	"github.com/retroenv/bccextract/internal/layout"
	"github.com/retroenv/bccextract/internal/rom"
)

// Entry is the result of one table element. Err is set for per-record errors,
// Value may still hold partially decoded data in that case.
type Entry[T any] struct {
	Index  int
	Offset int // image offset of the element
	Value  T
	Err    error
}

// Terminal reports whether a record ends a sentinel terminated table.
type Terminal func(record layout.Record) bool

// Fixed decodes count records starting at base. The walk stops at the first
// record that would cross the end of the image, which is reported as a
// BadLayout error entry.
func Fixed(img *rom.Image, l *layout.Layout, base, stride, count int) []Entry[layout.Record] {
	entries := make([]Entry[layout.Record], 0, max(count, 0))
	for i := range count {
		entry, ok := decodeRecord(img, l, base, stride, i)
		entries = append(entries, entry)
		if !ok {
			break
		}
	}
	return entries
}

// Sentinel decodes records starting at base until the terminal predicate
// holds for a record or the image ends. The terminal record is not returned.
// A partial record at the end of the image is reported as BadLayout error,
// as is a stride that does not advance.
func Sentinel(img *rom.Image, l *layout.Layout, base, stride int, terminal Terminal) []Entry[layout.Record] {
	if stride <= 0 {
		return []Entry[layout.Record]{{
			Offset: base,
			Err:    fmt.Errorf("%w: %s stride %d does not advance", rom.ErrBadLayout, l.Name, stride),
		}}
	}

	var entries []Entry[layout.Record]
	for i := 0; ; i++ {
		offset := base + i*stride
		if offset >= img.Len() {
			return entries
		}

		entry, ok := decodeRecord(img, l, base, stride, i)
		if !ok {
			return append(entries, entry)
		}
		if terminal(entry.Value) {
			return entries
		}
		entries = append(entries, entry)
	}
}

func decodeRecord(img *rom.Image, l *layout.Layout, base, stride, index int) (Entry[layout.Record], bool) {
	offset := base + index*stride
	entry := Entry[layout.Record]{
		Index:  index,
		Offset: offset,
	}

	// the whole stride has to be inside the image, not only the named fields
	span := max(stride, l.Size)
	if !img.Contains(offset, span) {
		entry.Err = fmt.Errorf("%w: %s record %d at 0x%x with %d bytes crosses the image end 0x%x",
			rom.ErrBadLayout, l.Name, index, offset, span, img.Len())
		return entry, false
	}

	record, err := l.Decode(img, offset)
	if err != nil {
		entry.Err = err
		return entry, false
	}
	entry.Value = record
	return entry, true
}
