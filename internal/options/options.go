// Package options contains the program options.
package options

import "github.com/retroenv/bccextract/internal/rom"

// Output formats of the emitter.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Table names, also used as output table identifiers.
const (
	Encounters    = "encounters"
	Chips         = "chips"
	StartingChips = "starting-chips"
	ChipNames     = "chip-names"
	ChipDescs     = "chip-descs"
	EffectDescs   = "effect-descs"
	OperatorNames = "operator-names"
)

// Parameters contains file path options.
type Parameters struct {
	Input       string `flag:"rom" usage:"cartridge image to extract from"`
	Output      string `flag:"out" usage:"output file (default: stdout)"`
	Config      string `flag:"config" usage:"TOML layout configuration file"`
	WriteConfig string `flag:"write-config" usage:"write the effective layout configuration to this file"`
}

// Flags contains behavior options.
type Flags struct {
	Format string `flag:"format" usage:"output format: text, json" default:"text"`
	Verify bool   `flag:"verify" usage:"rebuild the decoded records from the output and compare to the image"`
	Debug  bool   `flag:"debug" usage:"enable debug logging"`
	Quiet  bool   `flag:"q" usage:"quiet mode"`
}

// Program options of the extractor.
type Program struct {
	Parameters
	Flags
}

// Table describes where a table lives in the image and how it is walked.
type Table struct {
	Name string

	Base    int // image offset of the first element
	Stride  int // distance between records, record tables only
	Count   int // number of elements, 0 walks until the table stop condition
	Enabled bool

	Indirect   bool   // elements point to pointers to the strings
	Lines      int    // consecutive strings per element
	FormatMask uint16 // bits cleared from every code unit before glyph lookup
	Field      string // output field name of the decoded strings
}

// Text configures the string decoder.
type Text struct {
	Table          string // table file path or preset name
	Terminator     int    // -1 uses the terminator of the table
	TerminatorMask uint16 // 0 uses the mask of the table
	MaxScan        int    // maximum bytes scanned for a terminator
	Wide           bool   // 16-bit code units, only applies to table files
}

// Sentinel configures the stop condition of the encounter table walk.
type Sentinel struct {
	NaviMin int
	NaviMax int
}

// Extraction defines the tables to extract and how to decode them.
type Extraction struct {
	Encounters    Table
	Chips         Table
	StartingChips Table
	ChipNames     Table
	ChipDescs     Table
	EffectDescs   Table
	OperatorNames Table

	Text     Text
	Sentinel Sentinel
}

// Default table locations of the US cartridge as cartridge addresses.
const (
	DefaultEncountersBase    = 0x08229900
	DefaultChipsBase         = 0x0822740c
	DefaultStartingChipsBase = 0x082273c1
	DefaultChipNamesBase     = 0x0822bb8c
	DefaultChipDescsBase     = 0x0822c35c
	DefaultEffectDescsBase   = 0x0822bf78
	DefaultOperatorNamesBase = 0x0822d69c

	DefaultChipStride    = 16
	DefaultChipCount     = 248
	DefaultOperatorCount = 143
	DefaultMaxScan       = 256

	// DefaultEffectFormatMask is set on every character of the effect descriptions.
	DefaultEffectFormatMask = 0x0600
)

// NewExtraction returns a new extraction options instance with default options.
func NewExtraction() Extraction {
	return Extraction{
		Encounters:    Table{Name: Encounters, Base: Offset(DefaultEncountersBase), Stride: 20, Enabled: true},
		Chips:         Table{Name: Chips, Base: Offset(DefaultChipsBase), Stride: DefaultChipStride, Count: DefaultChipCount, Enabled: true},
		StartingChips: Table{Name: StartingChips, Base: Offset(DefaultStartingChipsBase), Stride: 7, Count: 1, Enabled: true},
		ChipNames: Table{Name: ChipNames, Base: Offset(DefaultChipNamesBase), Count: DefaultChipCount,
			Lines: 1, Field: "name", Enabled: true},
		ChipDescs: Table{Name: ChipDescs, Base: Offset(DefaultChipDescsBase), Count: DefaultChipCount,
			Lines: 1, Field: "desc", Enabled: true},
		EffectDescs: Table{Name: EffectDescs, Base: Offset(DefaultEffectDescsBase), Count: DefaultChipCount,
			Lines: 1, Field: "effect_desc", FormatMask: DefaultEffectFormatMask, Enabled: true},
		OperatorNames: Table{Name: OperatorNames, Base: Offset(DefaultOperatorNamesBase), Count: DefaultOperatorCount,
			Lines: 1, Field: "name", Enabled: true},

		Text: Text{
			Terminator: -1,
			MaxScan:    DefaultMaxScan,
		},
		Sentinel: Sentinel{
			NaviMin: 0x01,
			NaviMax: 0xff,
		},
	}
}

// Tables returns all tables in extraction order.
func (e *Extraction) Tables() []*Table {
	return []*Table{
		&e.Encounters,
		&e.Chips,
		&e.StartingChips,
		&e.ChipNames,
		&e.ChipDescs,
		&e.EffectDescs,
		&e.OperatorNames,
	}
}

// Table returns the table with the given name or nil.
func (e *Extraction) Table(name string) *Table {
	for _, table := range e.Tables() {
		if table.Name == name {
			return table
		}
	}
	return nil
}

// EnableOnly enables the named tables and disables all others.
func (e *Extraction) EnableOnly(names ...string) {
	for _, table := range e.Tables() {
		table.Enabled = false
		for _, name := range names {
			if table.Name == name {
				table.Enabled = true
			}
		}
	}
}

// Offset converts a table location given either as cartridge address or as
// image offset to an image offset.
func Offset(location uint32) int {
	if rom.IsCartridgeAddress(location) {
		offset, _ := rom.CartridgeOffset(location)
		return offset
	}
	return int(location)
}

// IsParallel returns whether the pointer table holds one element per chip.
func IsParallel(name string) bool {
	switch name {
	case ChipNames, ChipDescs, EffectDescs:
		return true
	default:
		return false
	}
}
