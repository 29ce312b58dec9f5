package walker

import (
	"fmt"

	"github.com/retroenv/bccextract/internal/rom"
	"github.com/retroenv/bccextract/internal/text"
)

const pointerSize = 4

// String is a decoded pointer array element.
type String struct {
	Pointer uint32      // element value as stored in the array
	Target  int         // image offset of the first string
	Lines   []text.Text // decoded strings, possibly partial on error
	Shared  bool        // target was already decoded for an earlier element
	First   int         // index of the first element with the same target, if shared
}

// PointerOptions control a pointer array walk.
type PointerOptions struct {
	Count    int  // maximum number of elements, 0 walks until the null pointer
	Indirect bool // elements point to a pointer to the strings
	Lines    int  // consecutive strings per element, at least 1
}

// Pointers walks an array of 32-bit cartridge pointers starting at base and
// decodes the target strings. A null pointer terminates the array. Pointers
// that do not resolve into the image are reported as BadPointer error entries
// and the walk continues with the next element.
func Pointers(img *rom.Image, decoder text.Decoder, base int, opts PointerOptions) []Entry[String] {
	lines := max(opts.Lines, 1)
	first := map[int]int{} // target offset to index of the first element

	var entries []Entry[String]
	for i := 0; opts.Count <= 0 || i < opts.Count; i++ {
		offset := base + i*pointerSize
		entry := Entry[String]{
			Index:  i,
			Offset: offset,
		}

		address, err := img.Uint32(offset)
		if err != nil {
			entry.Err = fmt.Errorf("pointer %d: %w", i, err)
			return append(entries, entry)
		}
		if address == 0 {
			return entries
		}
		entry.Value.Pointer = address

		target, err := resolveTarget(img, address, opts.Indirect)
		if err != nil {
			entry.Err = fmt.Errorf("pointer %d: %w", i, err)
			entries = append(entries, entry)
			continue
		}
		entry.Value.Target = target
		if index, ok := first[target]; ok {
			entry.Value.Shared = true
			entry.Value.First = index
		} else {
			first[target] = i
		}

		entry.Value.Lines, err = decoder.DecodeLines(img, target, lines)
		if err != nil {
			entry.Err = fmt.Errorf("pointer %d: %w", i, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func resolveTarget(img *rom.Image, address uint32, indirect bool) (int, error) {
	target, err := img.Resolve(address)
	if err != nil || !indirect {
		return target, err
	}

	_, target, err = img.ReadPointer(target)
	if err != nil {
		return 0, fmt.Errorf("indirect pointer 0x%08x: %w", address, err)
	}
	return target, nil
}
