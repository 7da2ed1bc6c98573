package bank

import (
	"io/ioutil"
	"testing"

	"github.com/undisbeliever/wiz/internal/opt"
	"github.com/undisbeliever/wiz/internal/report"
)

func newReport() *report.Report { return report.New(ioutil.Discard, false) }

func TestWriteAdvancesCursorAndTracksMaxWritten(t *testing.T) {
	b := New("code", KindRom, opt.None[int](), 8, 0xFF)
	r := newReport()
	if !b.Write(r, report.Position{}, "a", []byte{1, 2, 3}) {
		t.Fatal("expected the write to succeed")
	}
	if b.CurrentAddress() != 3 {
		t.Errorf("got cursor %d, want 3", b.CurrentAddress())
	}
	if b.MaxWritten() != 3 {
		t.Errorf("got MaxWritten %d, want 3", b.MaxWritten())
	}
	if !r.Validate() {
		t.Fatalf("got %d diagnostics, want 0", r.ErrorCount())
	}
}

func TestBufferPadsUnwrittenBytes(t *testing.T) {
	b := New("code", KindRom, opt.None[int](), 4, 0xAA)
	r := newReport()
	b.Write(r, report.Position{}, "a", []byte{1, 2})
	buf := b.Buffer()
	want := []byte{1, 2, 0xAA, 0xAA}
	for i := range want {
		if buf[i] != want[i] {
			t.Fatalf("got %v, want %v", buf, want)
		}
	}
}

func TestWriteFailsWhenOutOfSpace(t *testing.T) {
	b := New("code", KindRom, opt.None[int](), 2, 0)
	r := newReport()
	if b.Write(r, report.Position{}, "too big", []byte{1, 2, 3}) {
		t.Fatal("expected a write larger than capacity to fail")
	}
	if r.Validate() {
		t.Fatal("expected an out-of-space error to be reported")
	}
}

func TestReserveRamDetectsCollision(t *testing.T) {
	b := New("ram", KindRam, opt.None[int](), 8, 0)
	r := newReport()
	if !b.ReserveRam(r, report.Position{}, "first", 4) {
		t.Fatal("expected the first reservation to succeed")
	}
	b.Rewind()
	if !r.Validate() {
		t.Fatalf("got %d diagnostics after first reservation, want 0", r.ErrorCount())
	}
	if b.ReserveRam(r, report.Position{}, "second", 4) {
		t.Fatal("expected a reservation that overlaps the first to fail")
	}
	if r.Validate() {
		t.Fatal("expected a collision error")
	}
}

func TestAbsoluteSeekWithAndWithoutOrigin(t *testing.T) {
	r := newReport()
	withOrigin := New("code", KindRom, opt.Some(0x8000), 0x100, 0)
	if !withOrigin.AbsoluteSeek(r, report.Position{}, 0x8010) {
		t.Fatal("expected a seek within range to succeed")
	}
	if withOrigin.CurrentAddress() != 0x10 {
		t.Errorf("got cursor %#x, want 0x10", withOrigin.CurrentAddress())
	}
	if withOrigin.AbsoluteSeek(r, report.Position{}, 0x7FFF) {
		t.Fatal("expected a seek before the origin to fail")
	}
	if r.Validate() {
		t.Fatal("expected an out-of-range seek error")
	}

	r2 := newReport()
	noOrigin := New("ram", KindRam, opt.None[int](), 0x100, 0)
	if !noOrigin.AbsoluteSeek(r2, report.Position{}, 0x50) {
		t.Fatal("expected a relative-only seek within capacity to succeed")
	}
	if noOrigin.CurrentAddress() != 0x50 {
		t.Errorf("got cursor %#x, want 0x50", noOrigin.CurrentAddress())
	}
}

func TestRewindResetsCursorButKeepsReservations(t *testing.T) {
	b := New("ram", KindRam, opt.None[int](), 8, 0)
	r := newReport()
	b.ReserveRam(r, report.Position{}, "first", 4)
	b.Rewind()
	if b.CurrentAddress() != 0 {
		t.Errorf("got cursor %d after rewind, want 0", b.CurrentAddress())
	}
	if b.ReserveRam(r, report.Position{}, "second", 4) {
		t.Fatal("expected the old reservation to still collide after rewind")
	}
}

func TestSeekRelativeBypassesChecks(t *testing.T) {
	b := New("code", KindRom, opt.None[int](), 4, 0)
	b.SeekRelative(2)
	if b.CurrentAddress() != 2 {
		t.Errorf("got cursor %d, want 2", b.CurrentAddress())
	}
}
