// Package report implements the diagnostic sink described in spec.md
// §6 ("Report") and §7 (Error Handling Design). Diagnostics accumulate
// per phase; Validate mirrors the spec's validate(), returning true iff
// no error has been recorded since the last call (and no fatal ever).
//
// Severity coloring uses github.com/logrusorgru/aurora, the same
// library the teacher (PiMaker-MCPC-Software) uses in compiler/ast.go's
// verbose AST dump.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/logrusorgru/aurora"
)

// Severity distinguishes the four diagnostic kinds from spec.md §7.
type Severity int

const (
	// SeverityWarning is informational; never halts a phase.
	SeverityWarning Severity = iota
	// SeverityError accumulates within a phase; validated at phase end.
	SeverityError
	// SeverityContinued extends the previous diagnostic with another
	// line, grouped under the same severity for display purposes.
	SeverityContinued
	// SeverityFatal bypasses accumulation and halts immediately.
	SeverityFatal
	// SeverityInternal marks an invariant violation in the compiler
	// itself; always fatal.
	SeverityInternal
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityContinued:
		return "note"
	case SeverityFatal:
		return "fatal error"
	case SeverityInternal:
		return "internal error"
	default:
		return "diagnostic"
	}
}

// Position is a source location. Filename empty means "unknown".
type Position struct {
	Filename string
	Line     int
	Column   int
	Offset   int
}

func (p Position) String() string {
	if p.Filename == "" && p.Line == 0 {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// Diagnostic is a single recorded message.
type Diagnostic struct {
	Severity Severity
	Position Position
	Message  string
}

// Report accumulates diagnostics across the whole compile, and tracks
// how many have appeared since the last Validate call so each phase can
// fail fast independently (spec.md §5 "Cancellation").
type Report struct {
	out          io.Writer
	color        bool
	diagnostics  []Diagnostic
	sinceValidate int
	fatal        bool
}

// New creates a Report writing human-readable diagnostics to out.
// Color enables aurora ANSI coloring (disable for piping to files/CI).
func New(out io.Writer, color bool) *Report {
	if out == nil {
		out = os.Stderr
	}
	return &Report{out: out, color: color}
}

func (r *Report) colorize(sev Severity, s string) string {
	if !r.color {
		return s
	}
	switch sev {
	case SeverityWarning:
		return aurora.Yellow(s).String()
	case SeverityFatal, SeverityInternal:
		return aurora.Bold(aurora.Red(s)).String()
	case SeverityError:
		return aurora.Red(s).String()
	default:
		return aurora.Cyan(s).String()
	}
}

func (r *Report) emit(d Diagnostic) {
	r.diagnostics = append(r.diagnostics, d)
	prefix := r.colorize(d.Severity, d.Severity.String())
	if d.Severity == SeverityContinued {
		fmt.Fprintf(r.out, "  %s: %s\n", prefix, d.Message)
	} else {
		fmt.Fprintf(r.out, "%s: %s: %s\n", d.Position, prefix, d.Message)
	}
	switch d.Severity {
	case SeverityError, SeverityFatal, SeverityInternal:
		r.sinceValidate++
	}
	if d.Severity == SeverityFatal || d.Severity == SeverityInternal {
		r.fatal = true
	}
}

// Warning records a non-fatal advisory diagnostic.
func (r *Report) Warning(pos Position, format string, args ...interface{}) {
	r.emit(Diagnostic{Severity: SeverityWarning, Position: pos, Message: fmt.Sprintf(format, args...)})
}

// Error records an accumulating error (spec.md §7 taxonomy entries).
func (r *Report) Error(pos Position, format string, args ...interface{}) {
	r.emit(Diagnostic{Severity: SeverityError, Position: pos, Message: fmt.Sprintf(format, args...)})
}

// Continued appends another line to the previous diagnostic (multi-line
// explanations, e.g. instruction-selection candidate listings).
func (r *Report) Continued(format string, args ...interface{}) {
	r.emit(Diagnostic{Severity: SeverityContinued, Message: fmt.Sprintf(format, args...)})
}

// Fatal records a diagnostic that halts compilation immediately,
// bypassing per-phase accumulation.
func (r *Report) Fatal(pos Position, format string, args ...interface{}) {
	r.emit(Diagnostic{Severity: SeverityFatal, Position: pos, Message: fmt.Sprintf(format, args...)})
}

// InternalError marks a violated compiler invariant (spec.md §7,
// Codegen Consistency e.g. label address drift). Always fatal.
func (r *Report) InternalError(pos Position, format string, args ...interface{}) {
	r.emit(Diagnostic{Severity: SeverityInternal, Position: pos, Message: fmt.Sprintf(format, args...)})
}

// Validate returns true iff no error/fatal/internal diagnostic has been
// recorded since the last call to Validate (spec.md §6 "validate()").
func (r *Report) Validate() bool {
	ok := r.sinceValidate == 0 && !r.fatal
	r.sinceValidate = 0
	return ok
}

// HasFatal reports whether a Fatal or InternalError has ever been
// recorded, regardless of Validate resets.
func (r *Report) HasFatal() bool { return r.fatal }

// Diagnostics returns every diagnostic recorded so far, in order.
func (r *Report) Diagnostics() []Diagnostic { return r.diagnostics }

// ErrorCount returns the total number of Error/Fatal/InternalError
// diagnostics recorded across the whole run.
func (r *Report) ErrorCount() int {
	n := 0
	for _, d := range r.diagnostics {
		if d.Severity == SeverityError || d.Severity == SeverityFatal || d.Severity == SeverityInternal {
			n++
		}
	}
	return n
}
