package format

import (
	"io/ioutil"
	"strings"
	"testing"

	"github.com/undisbeliever/wiz/internal/bank"
	"github.com/undisbeliever/wiz/internal/defs"
	"github.com/undisbeliever/wiz/internal/opt"
	"github.com/undisbeliever/wiz/internal/report"
)

func newTestBank(t *testing.T, name string, kind defs.BankKind, bkind bank.Kind, data []byte, capacity int) (*defs.Bank, *bank.Bank) {
	t.Helper()
	def := defs.NewBank(name, report.Position{})
	def.BankKind = kind
	h := bank.New(name, bkind, opt.None[int](), capacity, 0)
	if len(data) > 0 {
		if !h.Write(report.New(ioutil.Discard, false), report.Position{}, "test data", data) {
			t.Fatalf("could not write test data into bank %q", name)
		}
	}
	def.Handle = h
	return def, h
}

func TestRawFormatConcatenatesRomBanksOnly(t *testing.T) {
	romDef, romHandle := newTestBank(t, "rom0", defs.BankKindRom, bank.KindRom, []byte{1, 2, 3}, 8)
	ramDef, ramHandle := newTestBank(t, "ram0", defs.BankKindRam, bank.KindRam, nil, 8)

	ctx := &Context{
		Banks:   []*defs.Bank{romDef, ramDef},
		Handles: map[*defs.Bank]*bank.Bank{romDef: romHandle, ramDef: ramHandle},
	}
	out, err := RawFormat{}.Generate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got := out; len(got) != 8 {
		t.Fatalf("got %d bytes, want the full 8-byte rom0 buffer (ram0 excluded)", len(got))
	}
	if got := out[:3]; got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Errorf("got %v, want the written prefix [1 2 3 ...]", got)
	}
}

func TestRawFormatMissingHandleErrors(t *testing.T) {
	def := defs.NewBank("rom0", report.Position{})
	def.BankKind = defs.BankKindRom
	ctx := &Context{Banks: []*defs.Bank{def}, Handles: map[*defs.Bank]*bank.Bank{}}
	if _, err := (RawFormat{}).Generate(ctx); err == nil {
		t.Fatal("expected an error for a bank with no storage handle")
	}
}

func TestGameBoyFormatHeader(t *testing.T) {
	data := make([]byte, gbHeaderSize+16)
	romDef, romHandle := newTestBank(t, "rom0", defs.BankKindRom, bank.KindRom, data, len(data))
	ctx := &Context{
		Banks:   []*defs.Bank{romDef},
		Handles: map[*defs.Bank]*bank.Bank{romDef: romHandle},
	}
	out, err := GameBoyFormat{Title: "WIZGAME"}.Generate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(out[gbTitleOffset:gbTitleOffset+gbTitleLen]), "WIZGAME") {
		t.Errorf("title not written at the expected header offset")
	}
	if out[gbEntryPoint+1] != 0xc3 {
		t.Errorf("entry point missing the JP opcode")
	}
	for i, b := range gbLogo {
		if out[gbLogoOffset+i] != b {
			t.Fatalf("logo byte %d mismatched", i)
		}
	}
}

func TestGameBoyFormatTooSmall(t *testing.T) {
	romDef, romHandle := newTestBank(t, "rom0", defs.BankKindRom, bank.KindRom, []byte{1, 2, 3}, 8)
	ctx := &Context{
		Banks:   []*defs.Bank{romDef},
		Handles: map[*defs.Bank]*bank.Bank{romDef: romHandle},
	}
	if _, err := (GameBoyFormat{}).Generate(ctx); err == nil {
		t.Fatal("expected an error for a rom too small to hold the gb header")
	}
}
