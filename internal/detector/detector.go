// Package detector handles input image format detection.
package detector

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/murkland/gbarom"
	"github.com/retroenv/retrogolib/log"
)

// Format is the container format of an input file.
type Format string

// Supported input formats.
const (
	Raw  Format = "raw"
	Zstd Format = "zstd"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

const (
	headerSize       = 0xc0
	headerFixedValue = 0xb2 // offset of the fixed 0x96 byte in the GBA header
)

// Detector handles input format detection from file content and extension.
type Detector struct {
	logger *log.Logger
}

// New creates a new format detector.
func New(logger *log.Logger) *Detector {
	return &Detector{
		logger: logger,
	}
}

// Detect determines the container format of the file content. The frame magic
// takes priority, the file extension is only used to log a mismatch.
func (d *Detector) Detect(filename string, data []byte) Format {
	format := Raw
	if bytes.HasPrefix(data, zstdMagic) {
		format = Zstd
	}

	if extFormat := d.detectFromFile(filename); extFormat != format {
		d.logger.Debug("File extension does not match content",
			log.String("file", filename),
			log.String("content", string(format)))
	}
	return format
}

// Title returns the game title of the GBA cartridge header, or an empty string
// if the image does not carry a valid header.
func (d *Detector) Title(data []byte) string {
	if len(data) < headerSize || data[headerFixedValue] != 0x96 {
		return ""
	}

	title, err := gbarom.ReadROMTitle(bytes.NewReader(data))
	if err != nil {
		d.logger.Debug("Reading cartridge title failed", log.Err(err))
		return ""
	}
	return strings.TrimRight(title, "\x00 ")
}

// detectFromFile determines the container format based on file extension.
func (d *Detector) detectFromFile(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".zst", ".zstd":
		return Zstd
	default:
		return Raw
	}
}
