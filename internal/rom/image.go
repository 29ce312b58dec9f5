// Package rom provides bounded read access to a GBA cartridge image and the
// cartridge pointer resolver.
package rom

import (
	"encoding/binary"
	"fmt"
)

// Image is a read-only cartridge image. The buffer is the image, there is no
// caching or seeking model.
type Image struct {
	data []byte
}

// NewImage wraps a buffer as image. The buffer must not be modified afterwards.
func NewImage(data []byte) *Image {
	return &Image{data: data}
}

// Len returns the size of the image in bytes.
func (img *Image) Len() int {
	return len(img.data)
}

// Contains returns whether the n bytes starting at offset lie within the image.
func (img *Image) Contains(offset, n int) bool {
	return offset >= 0 && n >= 0 && offset <= len(img.data) && n <= len(img.data)-offset
}

// Byte reads one byte at offset.
func (img *Image) Byte(offset int) (byte, error) {
	if err := img.check(offset, 1); err != nil {
		return 0, err
	}
	return img.data[offset], nil
}

// Uint16 reads a little-endian 16-bit word at offset.
func (img *Image) Uint16(offset int) (uint16, error) {
	if err := img.check(offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(img.data[offset:]), nil
}

// Uint32 reads a little-endian 32-bit word at offset.
func (img *Image) Uint32(offset int) (uint32, error) {
	if err := img.check(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(img.data[offset:]), nil
}

// Span returns the n bytes starting at offset. The returned slice aliases the
// image and must be treated as read-only.
func (img *Image) Span(offset, n int) ([]byte, error) {
	if err := img.check(offset, n); err != nil {
		return nil, err
	}
	return img.data[offset : offset+n : offset+n], nil
}

func (img *Image) check(offset, n int) error {
	if !img.Contains(offset, n) {
		return fmt.Errorf("%w: read of %d bytes at offset 0x%x exceeds image size 0x%x",
			ErrBadLayout, n, offset, len(img.data))
	}
	return nil
}
