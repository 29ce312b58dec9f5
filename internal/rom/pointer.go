package rom

import "fmt"

const (
	// CartridgeBase is the address the cartridge ROM is mapped to.
	CartridgeBase = 0x08000000

	offsetMask = 0x01FFFFFF
)

// IsCartridgeAddress returns whether the address lies in one of the two
// cartridge ROM address regions 0x08xxxxxx and 0x09xxxxxx.
func IsCartridgeAddress(address uint32) bool {
	region := address >> 24
	return region == 0x08 || region == 0x09
}

// CartridgeOffset converts a cartridge address to an image offset without
// checking it against any image.
func CartridgeOffset(address uint32) (int, error) {
	if !IsCartridgeAddress(address) {
		return 0, fmt.Errorf("%w: 0x%08x is not a cartridge address", ErrBadPointer, address)
	}
	return int(address & offsetMask), nil
}

// CartridgeAddress converts an image offset to its cartridge address.
func CartridgeAddress(offset int) uint32 {
	return CartridgeBase + uint32(offset)&offsetMask
}

// Resolve converts a cartridge pointer read from the image to an offset into
// the image. Pointers to other address spaces are refused, not remapped.
func (img *Image) Resolve(address uint32) (int, error) {
	offset, err := CartridgeOffset(address)
	if err != nil {
		return 0, err
	}
	if offset >= len(img.data) {
		return 0, fmt.Errorf("%w: 0x%08x resolves to offset 0x%x outside image size 0x%x",
			ErrBadPointer, address, offset, len(img.data))
	}
	return offset, nil
}

// ReadPointer reads the 32-bit pointer stored at offset and resolves it.
func (img *Image) ReadPointer(offset int) (uint32, int, error) {
	address, err := img.Uint32(offset)
	if err != nil {
		return 0, 0, err
	}
	target, err := img.Resolve(address)
	if err != nil {
		return address, 0, err
	}
	return address, target, nil
}
