package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/retroenv/bccextract/internal/options"
	"github.com/retroenv/retrogolib/assert"
)

func parseArgs(t *testing.T, args ...string) (options.Program, options.Extraction, error) {
	t.Helper()

	oldArgs := os.Args
	t.Cleanup(func() { os.Args = oldArgs })
	os.Args = append([]string{"prog"}, args...)

	return ParseFlags()
}

func TestParseFlags_Defaults(t *testing.T) {
	opts, extraction, err := parseArgs(t, "--rom", "bcc.gba")
	assert.NoError(t, err)
	assert.Equal(t, "bcc.gba", opts.Input)
	assert.Equal(t, options.FormatText, opts.Format)
	assert.Equal(t, options.NewExtraction(), extraction)
}

func TestParseFlags_PositionalInput(t *testing.T) {
	opts, _, err := parseArgs(t, "-q", "bcc.gba")
	assert.NoError(t, err)
	assert.Equal(t, "bcc.gba", opts.Input)
	assert.True(t, opts.Quiet)
}

func TestParseFlags_ExplicitBases(t *testing.T) {
	_, extraction, err := parseArgs(t,
		"--rom", "test.gba",
		"--chips-base", "0x100",
		"--chip-name-ptrs", "0x08000200",
		"--count", "1",
		"--text-table", "identity",
	)
	assert.NoError(t, err)

	assert.True(t, extraction.Chips.Enabled)
	assert.True(t, extraction.ChipNames.Enabled)
	assert.False(t, extraction.Encounters.Enabled)
	assert.False(t, extraction.ChipDescs.Enabled)
	assert.False(t, extraction.OperatorNames.Enabled)

	assert.Equal(t, 0x100, extraction.Chips.Base)
	assert.Equal(t, 0x200, extraction.ChipNames.Base)
	assert.Equal(t, 1, extraction.Chips.Count)
	assert.Equal(t, 1, extraction.ChipNames.Count)
	assert.Equal(t, 1, extraction.OperatorNames.Count)
	assert.Equal(t, 1, extraction.StartingChips.Count)
	assert.Equal(t, "identity", extraction.Text.Table)
}

func TestParseFlags_Overrides(t *testing.T) {
	_, extraction, err := parseArgs(t,
		"--rom", "test.gba",
		"--chip-stride", "14",
		"--encounter-count", "419",
		"--navi-min", "2",
		"--navi-max", "0x90",
		"--terminator", "0xe6",
		"--terminator-mask", "0xffff",
		"--max-scan", "512",
		"--wide",
	)
	assert.NoError(t, err)

	assert.Equal(t, 14, extraction.Chips.Stride)
	assert.Equal(t, 419, extraction.Encounters.Count)
	assert.Equal(t, 2, extraction.Sentinel.NaviMin)
	assert.Equal(t, 0x90, extraction.Sentinel.NaviMax)
	assert.Equal(t, 0xe6, extraction.Text.Terminator)
	assert.Equal(t, uint16(0xffff), extraction.Text.TerminatorMask)
	assert.Equal(t, 512, extraction.Text.MaxScan)
	assert.True(t, extraction.Text.Wide)
	assert.True(t, extraction.OperatorNames.Enabled)
}

func TestParseFlags_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layout.toml")
	content := "[tables.chips]\nbase = 0x100\nstride = 14\n\n[text]\ntable = \"bcc\"\n"
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	_, extraction, err := parseArgs(t, "--rom", "test.gba", "--config", path, "--chip-stride", "16")
	assert.NoError(t, err)
	assert.Equal(t, 0x100, extraction.Chips.Base)
	assert.Equal(t, 16, extraction.Chips.Stride)
	assert.Equal(t, "bcc", extraction.Text.Table)
	assert.True(t, extraction.Encounters.Enabled)
}

func TestParseFlags_Errors(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		usage bool
	}{
		{"no input", nil, true},
		{"unknown flag", []string{"--rom", "a.gba", "--bogus"}, true},
		{"bad address", []string{"--rom", "a.gba", "--chips-base", "zz"}, true},
		{"extra argument", []string{"--rom", "a.gba", "b.gba"}, true},
		{"bad format", []string{"--rom", "a.gba", "--format", "xml"}, false},
		{"verify without output", []string{"--rom", "a.gba", "--verify"}, false},
		{"zero stride", []string{"--rom", "a.gba", "--chip-stride", "0"}, false},
		{"negative count", []string{"--rom", "a.gba", "--count", "-1"}, false},
		{"empty navi range", []string{"--rom", "a.gba", "--navi-min", "9", "--navi-max", "8"}, false},
		{"missing config", []string{"--rom", "a.gba", "--config", "/nonexistent/layout.toml"}, false},
		{"terminator mask too wide", []string{"--rom", "a.gba", "--terminator-mask", "0x10000"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := parseArgs(t, tt.args...)
			assert.Error(t, err)

			var usageErr *UsageError
			assert.Equal(t, tt.usage, errors.As(err, &usageErr))
		})
	}
}

func TestParseFlags_FormatNormalized(t *testing.T) {
	opts, _, err := parseArgs(t, "--rom", "a.gba", "--format", "JSON", "--out", "out.jsonl", "--verify")
	assert.NoError(t, err)
	assert.Equal(t, options.FormatJSON, opts.Format)
	assert.True(t, opts.Verify)
}

func TestParseFlags_InvalidConfigTables(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"zero encounter stride", "[tables.encounters]\nstride = 0\n"},
		{"negative starting chips stride", "[tables.starting-chips]\nstride = -7\n"},
		{"zero chip name lines", "[tables.chip-names]\nlines = 0\n"},
		{"zero operator name lines", "[tables.operator-names]\nlines = 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "layout.toml")
			assert.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, _, err := parseArgs(t, "--rom", "a.gba", "--config", path)
			assert.Error(t, err)

			var usageErr *UsageError
			assert.False(t, errors.As(err, &usageErr))
		})
	}
}
