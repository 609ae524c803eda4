// Package diag implements the diagnostic taxonomy and rendering of
// spec.md §7: note/warning/error/fatal severities, per-TU error
// counting, and the `<file>:<line>:<col>: <severity>: <message>`
// user-visible format, layered over the teacher's internal/logio.Logger.
package diag

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/jcorbin/cc0/internal/logio"
	"github.com/jcorbin/cc0/internal/source"
)

// Severity classifies a Diagnostic, per spec.md §7's taxonomy.
type Severity int

const (
	Note Severity = iota
	Warning
	Error
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Note:
		return "note"
	case Warning:
		return "warning"
	case Error:
		return "error"
	case Fatal:
		return "fatal"
	default:
		return "diagnostic"
	}
}

// Diagnostic is one reported condition, with optional secondary Notes
// attached (spec.md §7: "Note. Secondary location attached to another
// diagnostic").
type Diagnostic struct {
	Severity Severity
	Pos      source.Pos
	Message  string
	Notes    []Diagnostic
}

// Format renders d as "<file>:<line>:<col>: <severity>: <message>",
// resolving Pos.File through names.
func (d Diagnostic) Format(names *source.Stack) string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", names.Name(d.Pos.File), d.Pos.Line, d.Pos.Col, d.Severity, d.Message)
}

// Bag accumulates every Diagnostic reported for one translation unit,
// tracking the TU error counter spec.md §7 requires and whether any
// fatal diagnostic was seen.
type Bag struct {
	names      *source.Stack
	log        *logio.Logger
	suppressWarnings bool

	Diagnostics []Diagnostic
	ErrorCount  int
	fatal       bool
}

// NewBag builds a Bag rendering through log, resolving positions
// against names, and suppressing Warning severities when quiet is
// true (the `-w` flag of spec.md §6).
func NewBag(names *source.Stack, log *logio.Logger, quiet bool) *Bag {
	return &Bag{names: names, log: log, suppressWarnings: quiet}
}

// Report records d, rendering it through the logger unless it is a
// suppressed warning, and updates the TU error counter/fatal flag per
// spec.md §7's propagation policy.
func (b *Bag) Report(d Diagnostic) {
	b.Diagnostics = append(b.Diagnostics, d)
	switch d.Severity {
	case Error:
		b.ErrorCount++
	case Fatal:
		b.ErrorCount++
		b.fatal = true
	case Warning:
		if b.suppressWarnings {
			return
		}
	}
	if b.log != nil {
		b.log.Printf("", "%s", d.Format(b.names))
		for _, n := range d.Notes {
			b.log.Printf("", "%s", n.Format(b.names))
		}
		if d.Severity == Fatal {
			b.log.Printf("", "Aborting because of previous error(s).")
		}
	}
}

// HasFatal reports whether any Fatal diagnostic has been reported.
func (b *Bag) HasFatal() bool { return b.fatal }

// Reportf is a convenience wrapper building and reporting a Diagnostic
// with no notes.
func (b *Bag) Reportf(sev Severity, pos source.Pos, format string, args ...interface{}) {
	b.Report(Diagnostic{Severity: sev, Pos: pos, Message: fmt.Sprintf(format, args...)})
}

// Wrap attaches a stack trace to an internal/unexpected error (I/O
// failures opening include files, backend sink errors) via
// github.com/pkg/errors, per SPEC_FULL.md §3: day-to-day diagnostics
// use Diagnostic (source locations), not wrapped errors (stacks);
// wrapping is reserved for failures that are not about a source
// location at all.
func Wrap(err error, message string) error {
	return errors.Wrap(err, message)
}

// Cause unwraps an error built by Wrap back to its root cause.
func Cause(err error) error { return errors.Cause(err) }
