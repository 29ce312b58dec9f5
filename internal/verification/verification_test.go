package verification

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/retroenv/bccextract/internal/options"
	"github.com/retroenv/bccextract/internal/rom"
	"github.com/retroenv/bccextract/internal/text"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

const chipLine = `index=0 hp=100 (0x64) effect=1 AP=80 MB=30 flags=0x0010 rarity=3 subtype=1 hit=128 dodge=64 art=7 palette=2 name="ABC"`

func testImage() *rom.Image {
	data := make([]byte, 0x8000)
	for i, v := range []uint16{0x64, 0x01, 0x50, 0x1e, 0x10} {
		binary.LittleEndian.PutUint16(data[0x100+2*i:], v)
	}
	copy(data[0x10a:], []byte{3, 1, 128, 64, 7, 2})
	binary.LittleEndian.PutUint32(data[0x200:], 0x08000300)
	copy(data[0x300:], "ABC\x00")
	return rom.NewImage(data)
}

func testExtraction() options.Extraction {
	extraction := options.NewExtraction()
	extraction.EnableOnly(options.Chips, options.ChipNames)
	extraction.Chips.Base = 0x100
	extraction.Chips.Count = 1
	extraction.ChipNames.Base = 0x200
	extraction.ChipNames.Count = 1
	return extraction
}

func writeOutput(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "out.txt")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func verify(t *testing.T, format, content string) error {
	t.Helper()
	opts := options.Program{
		Parameters: options.Parameters{Output: writeOutput(t, content)},
		Flags:      options.Flags{Format: format},
	}
	decoder := text.NewDecoder(text.Identity(), 0)
	return VerifyOutput(context.Background(), log.NewTestLogger(t), opts, testImage(), testExtraction(), decoder)
}

func TestVerifyText(t *testing.T) {
	output := strings.Join([]string{
		`# rom=test.gba title="" size=32768`,
		``,
		`# table=chips base=0x08000100 stride=16 count=1`,
		chipLine,
		``,
		`# errors=0`,
	}, "\n")
	assert.NoError(t, verify(t, options.FormatText, output))
}

func TestVerifyTextMismatch(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"record field", strings.Replace(chipLine, "AP=80", "AP=81", 1)},
		{"string", strings.Replace(chipLine, `name="ABC"`, `name="ABD"`, 1)},
		{"short string", strings.Replace(chipLine, `name="ABC"`, `name="AB"`, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := "# table=chips base=0x100 stride=16 count=1\n" + tt.line + "\n"
			err := verify(t, options.FormatText, output)
			assert.True(t, errors.Is(err, errMismatch))
		})
	}
}

func TestVerifySkipsErrors(t *testing.T) {
	output := "# table=chips base=0x100 stride=16 count=1\n" +
		`index=0 error="BadLayout: record crosses the image end" name="XYZ" name_error="BadPointer: \"x\""` + "\n"
	assert.NoError(t, verify(t, options.FormatText, output))
}

func TestVerifyCountMismatch(t *testing.T) {
	output := "# table=chips base=0x100 stride=16 count=2\n" + chipLine + "\n"
	err := verify(t, options.FormatText, output)
	assert.True(t, errors.Is(err, errMismatch))
}

func TestVerifyJSON(t *testing.T) {
	output := `{"type":"banner","rom":"test.gba","title":"","size":32768}
{"type":"table","table":"chips","base":256,"stride":16,"count":1}
{"type":"record","table":"chips","index":0,"fields":{"hp":100,"effect":1,"AP":80,"MB":30,"flags":16,"rarity":3,"subtype":1,"hit":128,"dodge":64,"art":7,"palette":2,"name":"ABC"}}
{"type":"summary","errors":0}
`
	assert.NoError(t, verify(t, options.FormatJSON, output))

	tampered := strings.Replace(output, `"dodge":64`, `"dodge":65`, 1)
	assert.True(t, errors.Is(verify(t, options.FormatJSON, tampered), errMismatch))
}

func TestVerifyConsoleOutput(t *testing.T) {
	err := VerifyOutput(context.Background(), log.NewTestLogger(t), options.Program{}, testImage(),
		testExtraction(), text.NewDecoder(text.Identity(), 0))
	assert.Error(t, err)
}

func TestParseFields(t *testing.T) {
	fields, err := parseFields(`index=3 hp=100 (0x64) unk1=00aa55 name="a \"b\" c" name_error="BadPointer: x"`)
	assert.NoError(t, err)
	assert.Equal(t, "3", fields["index"])
	assert.Equal(t, "100 (0x64)", fields["hp"])
	assert.Equal(t, "00aa55", fields["unk1"])
	assert.Equal(t, `a \"b\" c`, fields["name"])
	assert.Equal(t, "BadPointer: x", fields["name_error"])

	_, err = parseFields(`name="open`)
	assert.Error(t, err)
}
