// Package loader handles cartridge image loading operations.
package loader

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/retroenv/bccextract/internal/detector"
	"github.com/retroenv/bccextract/internal/rom"
	"github.com/retroenv/retrogolib/log"
)

// maxImageSize bounds decompressed input, twice the 32 MiB cartridge address space.
const maxImageSize = 64 << 20

// Loader handles loading cartridge images from disk.
type Loader struct {
	logger   *log.Logger
	detector *detector.Detector
}

// New creates a new cartridge image loader.
func New(logger *log.Logger) *Loader {
	return &Loader{
		logger:   logger,
		detector: detector.New(logger),
	}
}

// Load reads the whole file into memory, decompresses it if it is a zstd
// frame and returns the image. Images shorter than minSize are rejected.
func (l *Loader) Load(path string, minSize int) (*rom.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading file %s: %w", rom.ErrBadImage, path, err)
	}

	return l.LoadFromBytes(path, data, minSize)
}

// LoadFromBytes creates an image from file content that has already been read.
func (l *Loader) LoadFromBytes(name string, data []byte, minSize int) (*rom.Image, error) {
	format := l.detector.Detect(name, data)
	if format == detector.Zstd {
		decompressed, err := decompress(data)
		if err != nil {
			return nil, fmt.Errorf("%w: decompressing %s: %w", rom.ErrBadImage, name, err)
		}
		l.logger.Debug("Decompressed image",
			log.String("file", name),
			log.Int("compressed", len(data)),
			log.Int("size", len(decompressed)))
		data = decompressed
	}

	if len(data) < minSize {
		return nil, fmt.Errorf("%w: %s has %d bytes, at least %d bytes are required",
			rom.ErrBadImage, name, len(data), minSize)
	}

	return rom.NewImage(data), nil
}

// Title returns the game title of the image header, if present.
func (l *Loader) Title(img *rom.Image) string {
	header, err := img.Span(0, min(img.Len(), 0xc0))
	if err != nil {
		return ""
	}
	return l.detector.Title(header)
}

func decompress(data []byte) ([]byte, error) {
	zr, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	buf, err := io.ReadAll(io.LimitReader(zr, maxImageSize+1))
	if err != nil {
		return nil, err
	}
	if len(buf) > maxImageSize {
		return nil, fmt.Errorf("decompressed image exceeds %d bytes", maxImageSize)
	}
	return buf, nil
}
