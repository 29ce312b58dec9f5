package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/retroenv/bccextract/internal/options"
	"github.com/retroenv/bccextract/internal/rom"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

var errInvalidConfig = errors.New("invalid layout configuration")

// Address is a table location. It is written as hex string and read from
// either a string or an integer, both as cartridge address or image offset.
type Address uint32

// UnmarshalText parses a decimal or 0x prefixed hex location.
func (a *Address) UnmarshalText(text []byte) error {
	value, err := strconv.ParseUint(strings.TrimSpace(string(text)), 0, 32)
	if err != nil {
		return fmt.Errorf("parsing address '%s': %w", string(text), err)
	}
	*a = Address(value)
	return nil
}

// MarshalText writes the location as hex string.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(fmt.Sprintf("0x%08x", uint32(a))), nil
}

// Table is the configuration of one table.
type Table struct {
	Base       Address `toml:"base"`
	Stride     int     `toml:"stride,omitempty"`
	Count      int     `toml:"count"`
	Enabled    bool    `toml:"enabled"`
	Indirect   bool    `toml:"indirect,omitempty"`
	Lines      int     `toml:"lines,omitempty"`
	FormatMask uint16  `toml:"format_mask,omitempty"`
}

// Text is the configuration of the string decoder.
type Text struct {
	Table          string `toml:"table,omitempty"`
	Terminator     int    `toml:"terminator"`
	TerminatorMask uint16 `toml:"terminator_mask,omitempty"`
	MaxScan        int    `toml:"max_scan"`
	Wide           bool   `toml:"wide,omitempty"`
}

// Encounters configures the stop condition of the encounter table walk.
type Encounters struct {
	NaviMin int `toml:"navi_min"`
	NaviMax int `toml:"navi_max"`
}

// Layout is the content of a layout configuration file.
type Layout struct {
	Tables     map[string]Table `toml:"tables"`
	Text       Text             `toml:"text"`
	Encounters Encounters       `toml:"encounters"`
}

// LoadLayout reads a layout configuration file and applies all values that
// it defines to the extraction options.
func LoadLayout(path string, extraction *options.Extraction) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening layout configuration: %w", err)
	}
	defer func() { _ = file.Close() }()

	if err := ReadLayout(file, extraction); err != nil {
		return fmt.Errorf("reading layout configuration %s: %w", path, err)
	}
	return nil
}

// ReadLayout decodes a layout configuration and applies all values that it
// defines to the extraction options.
func ReadLayout(r io.Reader, extraction *options.Extraction) error {
	var cfg Layout
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidConfig, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return fmt.Errorf("%w: unknown keys %s", errInvalidConfig, strings.Join(keys, ", "))
	}

	names := maps.Keys(cfg.Tables)
	slices.Sort(names)
	for _, name := range names {
		table := extraction.Table(name)
		if table == nil {
			return fmt.Errorf("%w: unknown table '%s', valid tables: %s",
				errInvalidConfig, name, strings.Join(tableNames(extraction), ", "))
		}
		applyTable(md, name, cfg.Tables[name], table)
	}

	applyText(md, cfg.Text, &extraction.Text)

	if md.IsDefined("encounters", "navi_min") {
		extraction.Sentinel.NaviMin = cfg.Encounters.NaviMin
	}
	if md.IsDefined("encounters", "navi_max") {
		extraction.Sentinel.NaviMax = cfg.Encounters.NaviMax
	}
	return nil
}

func applyTable(md toml.MetaData, name string, cfg Table, table *options.Table) {
	defined := func(key string) bool {
		return md.IsDefined("tables", name, key)
	}

	if defined("base") {
		table.Base = options.Offset(uint32(cfg.Base))
	}
	if defined("stride") {
		table.Stride = cfg.Stride
	}
	if defined("count") {
		table.Count = cfg.Count
	}
	if defined("enabled") {
		table.Enabled = cfg.Enabled
	}
	if defined("indirect") {
		table.Indirect = cfg.Indirect
	}
	if defined("lines") {
		table.Lines = cfg.Lines
	}
	if defined("format_mask") {
		table.FormatMask = cfg.FormatMask
	}
}

func applyText(md toml.MetaData, cfg Text, text *options.Text) {
	if md.IsDefined("text", "table") {
		text.Table = cfg.Table
	}
	if md.IsDefined("text", "terminator") {
		text.Terminator = cfg.Terminator
	}
	if md.IsDefined("text", "terminator_mask") {
		text.TerminatorMask = cfg.TerminatorMask
	}
	if md.IsDefined("text", "max_scan") {
		text.MaxScan = cfg.MaxScan
	}
	if md.IsDefined("text", "wide") {
		text.Wide = cfg.Wide
	}
}

// SaveLayout writes the effective extraction options as layout configuration.
func SaveLayout(path string, extraction options.Extraction) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating layout configuration: %w", err)
	}

	if err := WriteLayout(file, extraction); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing layout configuration: %w", err)
	}
	return nil
}

// WriteLayout encodes the extraction options as layout configuration.
func WriteLayout(w io.Writer, extraction options.Extraction) error {
	cfg := Layout{
		Tables: map[string]Table{},
		Text: Text{
			Table:          extraction.Text.Table,
			Terminator:     extraction.Text.Terminator,
			TerminatorMask: extraction.Text.TerminatorMask,
			MaxScan:        extraction.Text.MaxScan,
			Wide:           extraction.Text.Wide,
		},
		Encounters: Encounters{
			NaviMin: extraction.Sentinel.NaviMin,
			NaviMax: extraction.Sentinel.NaviMax,
		},
	}

	for _, table := range extraction.Tables() {
		cfg.Tables[table.Name] = Table{
			Base:       Address(rom.CartridgeAddress(table.Base)),
			Stride:     table.Stride,
			Count:      table.Count,
			Enabled:    table.Enabled,
			Indirect:   table.Indirect,
			Lines:      table.Lines,
			FormatMask: table.FormatMask,
		}
	}

	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("encoding layout configuration: %w", err)
	}
	return nil
}

func tableNames(extraction *options.Extraction) []string {
	tables := extraction.Tables()
	names := make([]string, 0, len(tables))
	for _, table := range tables {
		names = append(names, table.Name)
	}
	slices.Sort(names)
	return names
}
