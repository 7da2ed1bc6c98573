// Command wiz drives a single compilation: parse, compile, format,
// write. Grounded on the teacher's mscr.go ("one function that owns the
// whole CLI, no subcommands"), scaled up for repeated `-D` flags and a
// choice of output format in place of mscr.go's fixed two positional
// arguments.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/undisbeliever/wiz/internal/builtins"
	"github.com/undisbeliever/wiz/internal/compiler"
	"github.com/undisbeliever/wiz/internal/format"
	"github.com/undisbeliever/wiz/internal/parser"
	"github.com/undisbeliever/wiz/internal/platform/mcpc16"
	"github.com/undisbeliever/wiz/internal/report"
)

type defineFlags []string

func (d *defineFlags) String() string     { return strings.Join(*d, ",") }
func (d *defineFlags) Set(v string) error { *d = append(*d, v); return nil }

func main() {
	var (
		output      = flag.String("o", "", "output file (default: input path with its extension replaced)")
		verbose     = flag.Bool("verbose", false, "log each compilation phase as it runs")
		noOptimize  = flag.Bool("no-optimize", false, "disable peephole optimization passes")
		outputFmt   = flag.String("format", "raw", "output format: raw or gb")
		gbTitle     = flag.String("gb-title", "", "cartridge title, used only with -format gb")
		dumpIR      = flag.Bool("dump-ir", false, "print each bank's written byte count after compilation")
	)
	var defines defineFlags
	flag.Var(&defines, "D", "define a compile-time symbol (name or name=value); may be repeated")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalln("usage: wiz [flags] <input.wiz>")
	}
	inputFile := flag.Arg(0)
	outputFile := *output
	if outputFile == "" {
		outputFile = defaultOutputPath(inputFile, *outputFmt)
	}

	if *verbose {
		log.Printf("compiling %s -> %s (format=%s)", inputFile, outputFile, *outputFmt)
	}

	defs, err := builtins.ParseDefines(defines)
	if err != nil {
		log.Fatalln(err)
	}

	r := report.New(os.Stderr, true)
	plat := mcpc16.New()
	c := compiler.New(r, plat, defs)
	c.Config.Optimize = !*noOptimize

	p := parser.New()
	pipeline := c.Pipeline(r, p, []string{"."})
	if _, err := pipeline.Import("", inputFile); err != nil {
		log.Fatalln(err)
	}
	if !r.Validate() {
		os.Exit(1)
	}

	if *verbose {
		log.Println("running compilation phases")
	}
	result, ok := c.Compile()
	if !ok {
		os.Exit(1)
	}

	if *dumpIR {
		dumpResult(result)
	}

	var f format.Format
	switch *outputFmt {
	case "raw":
		f = format.RawFormat{}
	case "gb":
		f = format.GameBoyFormat{Title: *gbTitle}
	default:
		log.Fatalf("unknown -format %q (want raw or gb)", *outputFmt)
	}

	out, err := f.Generate(&format.Context{Banks: result.Banks, Handles: result.Handles})
	if err != nil {
		log.Fatalln(err)
	}
	if err := os.WriteFile(outputFile, out, 0644); err != nil {
		log.Fatalln(err)
	}

	if *verbose {
		log.Printf("wrote %d bytes", len(out))
	}
}

func defaultOutputPath(inputFile, outputFmt string) string {
	ext := ".bin"
	if outputFmt == "gb" {
		ext = ".gb"
	}
	if dot := strings.LastIndexByte(inputFile, '.'); dot >= 0 {
		return inputFile[:dot] + ext
	}
	return inputFile + ext
}

func dumpResult(result *compiler.Result) {
	for _, b := range result.Banks {
		h := result.Handles[b]
		size := 0
		if h != nil {
			size = h.MaxWritten()
		}
		fmt.Fprintf(os.Stderr, "bank %s: %d bytes written\n", b.DeclName(), size)
	}
}
