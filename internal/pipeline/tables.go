package pipeline

import (
	"context"
	"fmt"

	"github.com/retroenv/bccextract/internal/layout"
	"github.com/retroenv/bccextract/internal/options"
	"github.com/retroenv/bccextract/internal/rom"
	"github.com/retroenv/bccextract/internal/text"
	"github.com/retroenv/bccextract/internal/walker"
	"github.com/retroenv/bccextract/internal/writer"
	"github.com/retroenv/retrogolib/log"
)

// sentinelSpan is the number of leading bytes that end the encounter table
// when they are all zero.
const sentinelSpan = 8

// extractionRun holds the state of one extraction.
type extractionRun struct {
	logger     *log.Logger
	img        *rom.Image
	extraction options.Extraction
	decoder    text.Decoder
	emitter    writer.Emitter
	result     Result
}

func (r *extractionRun) process(ctx context.Context) error {
	ex := &r.extraction

	for _, table := range ex.Tables() {
		if !table.Enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("extraction cancelled: %w", err)
		}

		var lines []writer.Line
		stride := table.Stride
		switch table.Name {
		case options.Encounters:
			lines = r.encounters(table)
		case options.Chips:
			lines = r.chips(table)
		case options.StartingChips:
			lines = r.startingChips(table)
		default:
			if ex.Chips.Enabled && options.IsParallel(table.Name) {
				continue // emitted as part of the chip lines
			}
			lines = r.pointerTable(table, table.Count)
			stride = pointerSize
		}

		if err := r.emit(table, stride, lines); err != nil {
			return err
		}
	}
	return nil
}

func (r *extractionRun) encounters(table *options.Table) []writer.Line {
	l := layout.Encounter()

	var entries []walker.Entry[layout.Record]
	if table.Count > 0 {
		entries = walker.Fixed(r.img, l, table.Base, table.Stride, table.Count)
	} else {
		entries = walker.Sentinel(r.img, l, table.Base, table.Stride, r.isEncounterEnd)
	}

	lines := make([]writer.Line, 0, len(entries))
	for _, entry := range entries {
		line := r.recordLine(table, entry)
		if entry.Err == nil {
			r.checkChipReferences(table, &line, entry.Value, layout.EncounterChipFields)
		}
		lines = append(lines, line)
	}
	return lines
}

// isEncounterEnd reports whether the navi byte lies outside of the legal navi
// range or the leading bytes of the record are all zero.
func (r *extractionRun) isEncounterEnd(record layout.Record) bool {
	sentinel := r.extraction.Sentinel
	navi := int(record.Uint(layout.FieldNavi))
	if navi < sentinel.NaviMin || navi > sentinel.NaviMax {
		return true
	}

	data, err := r.img.Span(record.Offset, sentinelSpan)
	if err != nil {
		return true
	}
	for _, b := range data {
		if b != 0 {
			return false
		}
	}
	return true
}

func (r *extractionRun) chips(table *options.Table) []writer.Line {
	entries := walker.Fixed(r.img, layout.Chip(), table.Base, table.Stride, table.Count)

	// parallel pointer arrays are walked with the element count of the chip table
	var parallel []*options.Table
	var parallelEntries [][]walker.Entry[walker.String]
	for _, pt := range r.extraction.Tables() {
		if pt.Enabled && options.IsParallel(pt.Name) {
			parallel = append(parallel, pt)
			parallelEntries = append(parallelEntries, r.walkStrings(pt, table.Count))
		}
	}

	lines := make([]writer.Line, 0, len(entries))
	for i, entry := range entries {
		line := r.recordLine(table, entry)
		for j, pt := range parallel {
			if i < len(parallelEntries[j]) {
				line.Fields = append(line.Fields, r.stringFields(pt, parallelEntries[j][i])...)
			}
		}
		lines = append(lines, line)
	}
	return lines
}

func (r *extractionRun) startingChips(table *options.Table) []writer.Line {
	l := layout.StartingChips()
	chipFields := make([]string, 0, len(l.Fields))
	for _, field := range l.Fields {
		chipFields = append(chipFields, field.Name)
	}

	entries := walker.Fixed(r.img, l, table.Base, table.Stride, table.Count)
	lines := make([]writer.Line, 0, len(entries))
	for _, entry := range entries {
		line := r.recordLine(table, entry)
		if entry.Err == nil {
			r.checkChipReferences(table, &line, entry.Value, chipFields)
		}
		lines = append(lines, line)
	}
	return lines
}

func (r *extractionRun) pointerTable(table *options.Table, count int) []writer.Line {
	entries := r.walkStrings(table, count)

	lines := make([]writer.Line, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, writer.Line{
			Table:  table.Name,
			Index:  entry.Index,
			Fields: r.stringFields(table, entry),
		})
	}
	return lines
}

func (r *extractionRun) walkStrings(table *options.Table, count int) []walker.Entry[walker.String] {
	decoder := r.decoder.WithFormatMask(table.FormatMask)
	opts := walker.PointerOptions{
		Count:    count,
		Indirect: table.Indirect,
		Lines:    table.Lines,
	}
	entries := walker.Pointers(r.img, decoder, table.Base, opts)
	r.logger.Debug("Walked pointer table",
		log.String("table", table.Name),
		log.Int("elements", len(entries)))
	return entries
}

func (r *extractionRun) recordLine(table *options.Table, entry walker.Entry[layout.Record]) writer.Line {
	line := writer.Line{
		Table: table.Name,
		Index: entry.Index,
	}
	if entry.Err != nil {
		r.recordError(table, entry.Index, entry.Err)
		line.Fields = []writer.Field{writer.ErrorValue("error", entry.Err)}
		return line
	}
	line.Fields = writer.RecordFields(entry.Value)
	return line
}

func (r *extractionRun) stringFields(table *options.Table, entry walker.Entry[walker.String]) []writer.Field {
	var fields []writer.Field
	if len(entry.Value.Lines) > 0 {
		fields = append(fields, writer.StringValue(table.Field, entry.Value.Lines))
	}
	if entry.Value.Shared {
		fields = append(fields, writer.IntValue(table.Field+"_shared", entry.Value.First))
	}
	if entry.Err != nil {
		r.recordError(table, entry.Index, entry.Err)
		fields = append(fields, writer.ErrorValue(table.Field+"_error", entry.Err))
	}
	return fields
}

// checkChipReferences reports chip codes that exceed the chip table. Zero
// marks an unused slot.
func (r *extractionRun) checkChipReferences(table *options.Table, line *writer.Line,
	record layout.Record, fields []string) {

	chips := r.extraction.Chips
	if !chips.Enabled || chips.Count <= 0 {
		return
	}

	for _, name := range fields {
		code := int(record.Uint(name))
		if code == 0 || code < chips.Count {
			continue
		}
		err := fmt.Errorf("%w: %s %d exceeds chip count %d", rom.ErrBadChipIndex, name, code, chips.Count)
		r.recordError(table, line.Index, err)
		line.Fields = append(line.Fields, writer.ErrorValue(name+"_error", err))
	}
}

func (r *extractionRun) recordError(table *options.Table, index int, err error) {
	r.result.Errors++
	r.logger.Warn("Decoding record failed",
		log.String("table", table.Name),
		log.Int("index", index),
		log.String("kind", rom.Kind(err)),
		log.Err(err))
}

func (r *extractionRun) emit(table *options.Table, stride int, lines []writer.Line) error {
	header := writer.Header{
		Table:  table.Name,
		Base:   table.Base,
		Stride: stride,
		Count:  len(lines),
	}
	if err := r.emitter.Header(header); err != nil {
		return err
	}

	for _, line := range lines {
		if err := r.emitter.Line(line); err != nil {
			return err
		}
		if isClean(line) {
			r.result.Records++
		}
	}

	r.logger.Debug("Extracted table",
		log.String("table", table.Name),
		log.Hex("base", rom.CartridgeAddress(table.Base)),
		log.Int("count", len(lines)))
	return nil
}

func isClean(line writer.Line) bool {
	for _, field := range line.Fields {
		if field.Kind == writer.ErrorField {
			return false
		}
	}
	return true
}
