package format

import (
	"fmt"
)

// GameBoy header layout offsets, relative to the start of the first
// ROM bank (the only bank a GameBoyFormat program is expected to
// declare, by convention — nothing in this package enforces that).
const (
	gbHeaderSize      = 0x150
	gbEntryPoint      = 0x100
	gbLogoOffset      = 0x104
	gbTitleOffset     = 0x134
	gbTitleLen        = 11
	gbCartTypeOffset  = 0x147
	gbRomSizeOffset   = 0x148
	gbRamSizeOffset   = 0x149
	gbHeaderChecksum  = 0x14d
	gbGlobalChecksum1 = 0x14e
)

// gbLogo is the boot logo every real Game Boy checks against before
// running a cartridge. GameBoyFormat writes it verbatim so ROMs it
// produces boot on real hardware and in logo-checking emulators.
var gbLogo = [48]byte{
	0xce, 0xed, 0x66, 0x66, 0xcc, 0x0d, 0x00, 0x0b, 0x03, 0x73, 0x00, 0x83,
	0x00, 0x0c, 0x00, 0x0d, 0x00, 0x08, 0x11, 0x1f, 0x88, 0x89, 0x00, 0x0e,
	0xdc, 0xcc, 0x6e, 0xe6, 0xdd, 0xdd, 0xd9, 0x99, 0xbb, 0xbb, 0x67, 0x63,
	0x6e, 0x0e, 0xec, 0xcc, 0xdd, 0xdc, 0x99, 0x9f, 0xbb, 0xb9, 0x33, 0x3e,
}

// GameBoyFormat writes the concatenated bank buffers with the Game Boy
// cartridge header written over bytes 0x100-0x14F of that ROM image
// (which must be at least 0x150 bytes), modeled on gb_format.h's
// GameBoyFormat. Title
// is truncated/padded to the 11 bytes the header allots it; cartridge
// type and ROM/RAM size bytes are left at 0 (ROM-only, no banking),
// matching the simplest cartridge this target's bank model can
// express with a single fixed bank.
type GameBoyFormat struct {
	Title string
}

func (f GameBoyFormat) Generate(ctx *Context) ([]byte, error) {
	body, err := RawFormat{}.Generate(ctx)
	if err != nil {
		return nil, err
	}
	if len(body) < gbHeaderSize {
		return nil, fmt.Errorf("gb format requires at least %d bytes of ROM, got %d", gbHeaderSize, len(body))
	}

	out := make([]byte, len(body))
	copy(out, body)

	// NOP; JP $0150 - hands control to the first byte past the header.
	out[gbEntryPoint] = 0x00
	out[gbEntryPoint+1] = 0xc3
	out[gbEntryPoint+2] = byte(gbHeaderSize & 0xff)
	out[gbEntryPoint+3] = byte(gbHeaderSize >> 8)

	copy(out[gbLogoOffset:], gbLogo[:])

	title := f.Title
	if len(title) > gbTitleLen {
		title = title[:gbTitleLen]
	}
	copy(out[gbTitleOffset:gbTitleOffset+gbTitleLen], title)

	out[gbCartTypeOffset] = 0x00
	out[gbRomSizeOffset] = 0x00
	out[gbRamSizeOffset] = 0x00

	out[gbHeaderChecksum] = headerChecksum(out)
	sum := globalChecksum(out)
	out[gbGlobalChecksum1] = byte(sum >> 8)
	out[gbGlobalChecksum1+1] = byte(sum)

	return out, nil
}

// headerChecksum implements the real Game Boy boot ROM's header
// validation sum over 0x134-0x14C.
func headerChecksum(rom []byte) byte {
	var x byte
	for addr := 0x134; addr <= 0x14c; addr++ {
		x = x - rom[addr] - 1
	}
	return x
}

// globalChecksum sums every byte of the ROM except the two checksum
// bytes themselves.
func globalChecksum(rom []byte) uint16 {
	var sum uint16
	for i, b := range rom {
		if i == gbGlobalChecksum1 || i == gbGlobalChecksum1+1 {
			continue
		}
		sum += uint16(b)
	}
	return sum
}
