// Package bank implements the StorageAllocator from spec.md 4.5: a
// named, sized memory region with a relative cursor and a backing byte
// buffer, supporting absolute seeks, RAM reservation, ROM
// reservation+write, and inter-pass rewind.
//
// Grounded on the teacher's bump-allocator fields in
// mscr/compiler/asm_types.go's asmTransformState (globalMemoryMap,
// maxDataAddr, binData), generalized into a full Bank object per 4.5's
// contract.
package bank

import (
	"fmt"

	"github.com/undisbeliever/wiz/internal/opt"
	"github.com/undisbeliever/wiz/internal/report"
)

// Kind distinguishes ROM-like (stored) banks from RAM-like
// (reservation-only) banks.
type Kind int

const (
	KindRom Kind = iota
	KindRam
)

// ReservedSpanKind labels why a span of a bank is occupied, for
// collision diagnostics.
type ReservedSpanKind int

const (
	SpanReservation ReservedSpanKind = iota
	SpanWrite
)

// ReservedSpan records a [start, start+len) region already claimed,
// plus what claimed it (spec.md 4.5's collision check).
type ReservedSpan struct {
	Start  int
	Len    int
	Kind   ReservedSpanKind
	Origin string // description of what reserved it, for diagnostics
}

// Bank is spec.md §3's Bank runtime object.
type Bank struct {
	Name       string
	BankKind   Kind
	OriginAddr opt.Value[int] // absolute base address, if fixed
	Capacity   int
	PadByte    byte

	cursor      int // relative position within the bank
	maxWritten  int
	buffer      []byte
	written     []bool // tracks which buffer bytes were actually written (for padding)
	reservedSpans []ReservedSpan
}

// New constructs a Bank. capacity must be > 0.
func New(name string, kind Kind, origin opt.Value[int], capacity int, padByte byte) *Bank {
	return &Bank{
		Name:       name,
		BankKind:   kind,
		OriginAddr: origin,
		Capacity:   capacity,
		PadByte:    padByte,
		buffer:     make([]byte, capacity),
		written:    make([]bool, capacity),
	}
}

// CurrentAddress returns the bank-relative cursor position. If an
// OriginAddr is set, callers should add it to obtain an absolute
// address.
func (b *Bank) CurrentAddress() int { return b.cursor }

// AbsoluteAddress returns cursor + origin, if origin is known.
func (b *Bank) AbsoluteAddress() (int, bool) {
	origin, ok := b.OriginAddr.Get()
	if !ok {
		return 0, false
	}
	return origin + b.cursor, true
}

// AbsoluteSeek implements spec.md 4.5's absoluteSeek: requires
// addr in [origin, origin+capacity) if origin is set; otherwise records
// a relative-only cursor equal to addr directly (no origin to check
// against, per the contract "else records a relative-only cursor").
func (b *Bank) AbsoluteSeek(r *report.Report, pos report.Position, addr int) bool {
	if origin, ok := b.OriginAddr.Get(); ok {
		if addr < origin || addr >= origin+b.Capacity {
			r.Error(pos, "address 0x%X is outside bank '%s' range [0x%X, 0x%X)", addr, b.Name, origin, origin+b.Capacity)
			return false
		}
		b.cursor = addr - origin
		return true
	}
	if addr < 0 || addr >= b.Capacity {
		r.Error(pos, "address 0x%X is outside bank '%s' capacity %d", addr, b.Name, b.Capacity)
		return false
	}
	b.cursor = addr
	return true
}

func (b *Bank) checkSpace(r *report.Report, pos report.Position, size int) bool {
	if size < 0 {
		r.InternalError(pos, "negative reservation size %d in bank '%s'", size, b.Name)
		return false
	}
	if b.cursor+size > b.Capacity {
		r.Error(pos, "bank '%s' out of space: cannot reserve %d bytes at offset %d (capacity %d)", b.Name, size, b.cursor, b.Capacity)
		return false
	}
	return true
}

func (b *Bank) collides(start, length int) *ReservedSpan {
	end := start + length
	for i := range b.reservedSpans {
		s := &b.reservedSpans[i]
		if start < s.Start+s.Len && s.Start < end {
			return s
		}
	}
	return nil
}

// ReserveRam advances the cursor size bytes without producing bytes
// (spec.md 4.5 reserveRam). description is used in collision
// diagnostics.
func (b *Bank) ReserveRam(r *report.Report, pos report.Position, description string, size int) bool {
	if !b.checkSpace(r, pos, size) {
		return false
	}
	if span := b.collides(b.cursor, size); span != nil {
		r.Error(pos, "'%s' collides with previous reservation '%s' at offset %d", description, span.Origin, span.Start)
		return false
	}
	b.reservedSpans = append(b.reservedSpans, ReservedSpan{Start: b.cursor, Len: size, Kind: SpanReservation, Origin: description})
	b.cursor += size
	if b.cursor > b.maxWritten {
		b.maxWritten = b.cursor
	}
	return true
}

// ReserveRom reserves coverage for an upcoming write of size bytes,
// intended for stored banks (spec.md 4.5 reserveRom). Used during pass
// 5a sizing, before the concrete bytes are known.
func (b *Bank) ReserveRom(r *report.Report, pos report.Position, description string, size int) bool {
	return b.ReserveRam(r, pos, description, size)
}

// Write writes bytes into the backing buffer at the cursor and advances
// by len(bytes) (spec.md 4.5 write). Used during pass 5b.
func (b *Bank) Write(r *report.Report, pos report.Position, description string, data []byte) bool {
	if !b.checkSpace(r, pos, len(data)) {
		return false
	}
	copy(b.buffer[b.cursor:], data)
	for i := range data {
		b.written[b.cursor+i] = true
	}
	b.cursor += len(data)
	if b.cursor > b.maxWritten {
		b.maxWritten = b.cursor
	}
	return true
}

// Rewind resets the cursor to the beginning between passes, retaining
// the reservation map (spec.md 4.5 rewind).
func (b *Bank) Rewind() { b.cursor = 0 }

// SeekRelative moves the cursor to an already-validated bank-relative
// position without re-checking capacity or collisions (internal/codegen
// uses this to restore the sequential cursor after an explicitly
// addressed Var borrowed a spot out of order, per spec.md 4.9's Var
// pass "restore the cursor").
func (b *Bank) SeekRelative(cursor int) { b.cursor = cursor }

// Buffer returns the finished, padded backing buffer (spec.md 4.5
// "Padding: bytes the compiler never wrote are filled with padByte
// before output").
func (b *Bank) Buffer() []byte {
	out := make([]byte, len(b.buffer))
	copy(out, b.buffer)
	for i, w := range b.written {
		if !w {
			out[i] = b.PadByte
		}
	}
	return out
}

// MaxWritten returns the highest cursor position reached, for formats
// that want to trim trailing padding.
func (b *Bank) MaxWritten() int { return b.maxWritten }

func (b *Bank) String() string {
	return fmt.Sprintf("bank %s (cap=%d, cursor=%d)", b.Name, b.Capacity, b.cursor)
}
