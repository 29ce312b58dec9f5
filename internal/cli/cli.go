// Package cli handles command line interface logic
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/retroenv/bccextract/internal/config"
	"github.com/retroenv/bccextract/internal/options"
)

// baseFlags maps the table base flags to the tables they locate.
var baseFlags = []struct {
	name  string
	table string
	base  uint32
	usage string
}{
	{"encounters-base", options.Encounters, options.DefaultEncountersBase, "encounter table location"},
	{"chips-base", options.Chips, options.DefaultChipsBase, "chip table location"},
	{"starting-chips", options.StartingChips, options.DefaultStartingChipsBase, "starting chip list location"},
	{"chip-name-ptrs", options.ChipNames, options.DefaultChipNamesBase, "chip name pointer array location"},
	{"chip-desc-ptrs", options.ChipDescs, options.DefaultChipDescsBase, "chip description pointer array location"},
	{"effect-desc-ptrs", options.EffectDescs, options.DefaultEffectDescsBase, "effect description pointer array location"},
	{"operator-name", options.OperatorNames, options.DefaultOperatorNamesBase, "operator name pointer array location"},
}

// extractionFlags holds the values of flags that override the layout.
type extractionFlags struct {
	bases          map[string]*config.Address
	chipStride     int
	count          int
	encounterCount int
	naviMin        int
	naviMax        int
	textTable      string
	terminator     int
	terminatorMask int
	maxScan        int
	wide           bool
}

// ParseFlags parses command line flags and returns program and extraction options.
// Table locations given as flags override the layout configuration file, if any
// base flag is given only the tables with explicitly given bases are extracted.
func ParseFlags() (options.Program, options.Extraction, error) {
	flags := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	var opts options.Program
	readOptionFlags(flags, &opts)
	var ef extractionFlags
	readExtractionFlags(flags, &ef)

	err := flags.Parse(os.Args[1:])
	args := flags.Args()
	if errors.Is(err, flag.ErrHelp) {
		return opts, options.Extraction{}, &UsageError{flags: flags}
	}
	if err != nil {
		return opts, options.Extraction{}, &UsageError{flags: flags, msg: err.Error()}
	}

	if opts.Input == "" && len(args) == 1 {
		opts.Input = args[0]
		args = nil
	}
	if opts.Input == "" {
		return opts, options.Extraction{}, &UsageError{flags: flags}
	}
	if len(args) > 0 {
		return opts, options.Extraction{}, &UsageError{
			flags: flags,
			msg:   fmt.Sprintf("unexpected arguments: %s", strings.Join(args, " ")),
		}
	}

	if err := normalizeOptions(&opts); err != nil {
		return opts, options.Extraction{}, err
	}

	extraction := options.NewExtraction()
	if opts.Config != "" {
		if err := config.LoadLayout(opts.Config, &extraction); err != nil {
			return opts, options.Extraction{}, err
		}
	}

	visited := map[string]bool{}
	flags.Visit(func(f *flag.Flag) {
		visited[f.Name] = true
	})
	if ef.terminatorMask < 0 || ef.terminatorMask > 0xffff {
		return opts, options.Extraction{}, fmt.Errorf("invalid terminator mask %d", ef.terminatorMask)
	}
	applyExtractionFlags(visited, ef, &extraction)

	if err := validateExtraction(extraction); err != nil {
		return opts, options.Extraction{}, err
	}

	return opts, extraction, nil
}

// UsageError represents an error that should show usage information
type UsageError struct {
	flags *flag.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

// ShowUsage prints the usage message and the flag defaults.
func (e *UsageError) ShowUsage() {
	if e.msg != "" {
		fmt.Fprintf(os.Stderr, "%s\n\n", e.msg)
	}
	fmt.Fprintf(os.Stderr, "usage: extract --rom <file> [options]\n\n")
	e.flags.SetOutput(os.Stderr)
	e.flags.PrintDefaults()
	fmt.Fprintln(os.Stderr)
}

// normalizeOptions normalizes and validates option values
func normalizeOptions(opts *options.Program) error {
	opts.Format = strings.ToLower(opts.Format)
	if opts.Format != options.FormatText && opts.Format != options.FormatJSON {
		return fmt.Errorf("unsupported output format: %s. Valid options: %s, %s",
			opts.Format, options.FormatText, options.FormatJSON)
	}
	if opts.Verify && opts.Output == "" {
		return errors.New("verification requires an output file, set -out")
	}
	return nil
}

func applyExtractionFlags(visited map[string]bool, ef extractionFlags, extraction *options.Extraction) {
	var explicit []string
	for _, bf := range baseFlags {
		if !visited[bf.name] {
			continue
		}
		table := extraction.Table(bf.table)
		table.Base = options.Offset(uint32(*ef.bases[bf.name]))
		explicit = append(explicit, bf.table)
	}
	if len(explicit) > 0 {
		extraction.EnableOnly(explicit...)
	}

	if visited["chip-stride"] {
		extraction.Chips.Stride = ef.chipStride
	}
	if visited["count"] {
		// applies to the chip table and all pointer arrays
		for _, table := range extraction.Tables() {
			if table.Name != options.Encounters && table.Name != options.StartingChips {
				table.Count = ef.count
			}
		}
	}
	if visited["encounter-count"] {
		extraction.Encounters.Count = ef.encounterCount
	}
	if visited["navi-min"] {
		extraction.Sentinel.NaviMin = ef.naviMin
	}
	if visited["navi-max"] {
		extraction.Sentinel.NaviMax = ef.naviMax
	}
	if visited["text-table"] {
		extraction.Text.Table = ef.textTable
	}
	if visited["terminator"] {
		extraction.Text.Terminator = ef.terminator
	}
	if visited["terminator-mask"] {
		extraction.Text.TerminatorMask = uint16(ef.terminatorMask)
	}
	if visited["max-scan"] {
		extraction.Text.MaxScan = ef.maxScan
	}
	if visited["wide"] {
		extraction.Text.Wide = ef.wide
	}
}

func validateExtraction(extraction options.Extraction) error {
	for _, table := range extraction.Tables() {
		if table.Count < 0 {
			return fmt.Errorf("invalid count %d for table %s", table.Count, table.Name)
		}
		if table.Field == "" {
			if table.Stride <= 0 {
				return fmt.Errorf("invalid stride %d for table %s", table.Stride, table.Name)
			}
			continue
		}
		if table.Lines < 1 {
			return fmt.Errorf("invalid line count %d for table %s", table.Lines, table.Name)
		}
	}
	if extraction.Text.MaxScan <= 0 {
		return fmt.Errorf("invalid maximum string scan length %d", extraction.Text.MaxScan)
	}
	if extraction.Sentinel.NaviMin > extraction.Sentinel.NaviMax {
		return fmt.Errorf("navi range %d-%d is empty", extraction.Sentinel.NaviMin, extraction.Sentinel.NaviMax)
	}
	return nil
}

func readOptionFlags(flags *flag.FlagSet, opts *options.Program) {
	flags.StringVar(&opts.Input, "rom", "", "name of the input ROM file, zstd compressed files are supported")
	flags.StringVar(&opts.Output, "out", "", "name of the output file, printed on console if no name given")
	flags.StringVar(&opts.Config, "config", "", "TOML layout configuration file to load")
	flags.StringVar(&opts.WriteConfig, "write-config", "", "write the effective layout configuration to this TOML file")
	flags.StringVar(&opts.Format, "format", options.FormatText, "output format (text/json)")
	flags.BoolVar(&opts.Verify, "verify", false, "verify the output by rebuilding the decoded records and comparing them to the ROM")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debugging options for extended logging")
	flags.BoolVar(&opts.Quiet, "q", false, "perform operations quietly")
}

func readExtractionFlags(flags *flag.FlagSet, ef *extractionFlags) {
	ef.bases = make(map[string]*config.Address, len(baseFlags))
	for _, bf := range baseFlags {
		base := new(config.Address)
		ef.bases[bf.name] = base
		flags.TextVar(base, bf.name, config.Address(bf.base), bf.usage+" as cartridge address or file offset")
	}

	flags.IntVar(&ef.chipStride, "chip-stride", options.DefaultChipStride, "distance in bytes between chip records")
	flags.IntVar(&ef.count, "count", options.DefaultChipCount, "number of chips and pointer array elements to extract")
	flags.IntVar(&ef.encounterCount, "encounter-count", 0, "number of encounters to extract, 0 stops at the first invalid record")
	flags.IntVar(&ef.naviMin, "navi-min", 0x01, "lowest navi code of a valid encounter")
	flags.IntVar(&ef.naviMax, "navi-max", 0xff, "highest navi code of a valid encounter")
	flags.StringVar(&ef.textTable, "text-table", "", "text table file or preset name (identity/bcc)")
	flags.IntVar(&ef.terminator, "terminator", -1, "string terminator code, default is the one of the text table")
	flags.IntVar(&ef.terminatorMask, "terminator-mask", 0, "bits of a code unit compared against the terminator, default is the mask of the text table")
	flags.IntVar(&ef.maxScan, "max-scan", options.DefaultMaxScan, "maximum bytes scanned for a string terminator")
	flags.BoolVar(&ef.wide, "wide", false, "text table files use 16-bit code units")
}
