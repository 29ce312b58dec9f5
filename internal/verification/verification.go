// Package verification verifies that the generated output recreates the
// decoded bytes of the input image.
package verification

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/retroenv/bccextract/internal/layout"
	"github.com/retroenv/bccextract/internal/options"
	"github.com/retroenv/bccextract/internal/rom"
	"github.com/retroenv/bccextract/internal/text"
	"github.com/retroenv/retrogolib/log"
)

const (
	pointerSize   = 4
	maxLoggedDiff = 10
)

var errMismatch = errors.New("output does not match image")

// VerifyOutput reads the output file back, rebuilds the bytes of every
// emitted record and string and compares them to the image. Elements that
// were reported with an error are skipped.
func VerifyOutput(ctx context.Context, logger *log.Logger, opts options.Program, img *rom.Image,
	extraction options.Extraction, decoder text.Decoder) error {

	if opts.Output == "" {
		return errors.New("can not verify console output")
	}

	data, err := os.ReadFile(opts.Output)
	if err != nil {
		return fmt.Errorf("reading output file for comparison: %w", err)
	}

	var tables []*table
	if opts.Format == options.FormatJSON {
		tables, err = parseJSON(data)
	} else {
		tables, err = parseText(data)
	}
	if err != nil {
		return fmt.Errorf("parsing output: %w", err)
	}

	v := &verifier{
		logger:     logger,
		img:        img,
		extraction: extraction,
		decoder:    decoder,
	}
	for _, t := range tables {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("verification cancelled: %w", err)
		}
		if err := v.verifyTable(t); err != nil {
			return err
		}
	}

	if v.diffs > 0 {
		return fmt.Errorf("%w: %d mismatches in %d checked elements", errMismatch, v.diffs, v.checked)
	}
	logger.Debug("Verified output", log.Int("elements", v.checked))
	return nil
}

type verifier struct {
	logger     *log.Logger
	img        *rom.Image
	extraction options.Extraction
	decoder    text.Decoder

	checked int
	diffs   int
}

func (v *verifier) verifyTable(t *table) error {
	if len(t.lines) != t.count {
		return fmt.Errorf("%w: table %s has %d lines, header announces %d",
			errMismatch, t.name, len(t.lines), t.count)
	}

	var l *layout.Layout
	switch t.name {
	case options.Encounters:
		l = layout.Encounter()
	case options.Chips:
		l = layout.Chip()
	case options.StartingChips:
		l = layout.StartingChips()
	}

	for _, ln := range t.lines {
		if l != nil {
			if err := v.verifyRecord(t, l, ln); err != nil {
				return err
			}
		}
		for _, pt := range v.stringTables(t.name) {
			v.verifyString(pt, ln)
		}
	}
	return nil
}

// stringTables returns the pointer tables whose strings are part of the
// lines of the named table.
func (v *verifier) stringTables(name string) []*options.Table {
	var tables []*options.Table
	for _, pt := range v.extraction.Tables() {
		if !pt.Enabled || pt.Field == "" {
			continue
		}
		if pt.Name == name || name == options.Chips && options.IsParallel(pt.Name) {
			tables = append(tables, pt)
		}
	}
	return tables
}

func (v *verifier) verifyRecord(t *table, l *layout.Layout, ln line) error {
	if _, ok := ln.fields["error"]; ok {
		return nil
	}

	record := layout.Record{Layout: l}
	for i := range l.Fields {
		field := &l.Fields[i]
		s, ok := ln.fields[field.Name]
		if !ok {
			return fmt.Errorf("%w: %s record %d is missing field %s", errMismatch, t.name, ln.index, field.Name)
		}
		// only the decimal part of a "100 (0x64)" display value is parsed
		s, _, _ = strings.Cut(s, " ")

		value, err := field.ParseValue(s)
		if err != nil {
			return fmt.Errorf("%s record %d: %w", t.name, ln.index, err)
		}
		record.Values = append(record.Values, value)
	}

	buf := make([]byte, l.Size)
	if err := l.Encode(record, buf); err != nil {
		return fmt.Errorf("%s record %d: %w", t.name, ln.index, err)
	}

	offset := t.base + ln.index*t.stride
	expected, err := v.img.Span(offset, l.Size)
	if err != nil {
		return fmt.Errorf("%w: %s record %d: %w", errMismatch, t.name, ln.index, err)
	}

	v.checked++
	for i := range buf {
		if buf[i] != expected[i] {
			v.mismatch(t.name, ln.index, offset+i, uint16(expected[i]), uint16(buf[i]))
			break
		}
	}
	return nil
}

func (v *verifier) verifyString(pt *options.Table, ln line) {
	escaped, ok := ln.fields[pt.Field]
	if !ok {
		return
	}
	if _, failed := ln.fields[pt.Field+"_error"]; failed {
		return
	}

	v.checked++
	lines, err := text.Parse(escaped, v.decoder.Table)
	if err != nil {
		v.logger.Error("Parsing emitted string failed",
			log.String("table", pt.Name),
			log.Int("index", ln.index),
			log.Err(err))
		v.diffs++
		return
	}

	offset, err := v.stringOffset(pt, ln.index)
	if err != nil {
		v.logger.Error("Resolving string failed",
			log.String("table", pt.Name),
			log.Int("index", ln.index),
			log.Err(err))
		v.diffs++
		return
	}

	table := v.decoder.Table
	unitSize := table.UnitSize()
	for _, units := range lines {
		for _, unit := range units {
			got, err := v.readUnit(offset)
			if err != nil || got&^pt.FormatMask != unit {
				v.mismatch(pt.Name, ln.index, offset, got, unit)
				return
			}
			offset += unitSize
		}

		got, err := v.readUnit(offset)
		if err != nil || !table.IsTerminator(got) {
			v.mismatch(pt.Name, ln.index, offset, got, table.Terminator)
			return
		}
		offset += unitSize
	}
}

func (v *verifier) stringOffset(pt *options.Table, index int) (int, error) {
	_, offset, err := v.img.ReadPointer(pt.Base + index*pointerSize)
	if err != nil || !pt.Indirect {
		return offset, err
	}
	_, offset, err = v.img.ReadPointer(offset)
	return offset, err
}

func (v *verifier) readUnit(offset int) (uint16, error) {
	if v.decoder.Table.Wide {
		return v.img.Uint16(offset)
	}
	b, err := v.img.Byte(offset)
	return uint16(b), err
}

func (v *verifier) mismatch(name string, index, offset int, expected, got uint16) {
	v.diffs++
	if v.diffs <= maxLoggedDiff {
		v.logger.Error("Offset mismatch",
			log.String("table", name),
			log.Int("index", index),
			log.Hex("offset", offset),
			log.Hex("expected", expected),
			log.Hex("got", got))
	}
}
