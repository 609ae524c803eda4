package diag_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/cc0/internal/diag"
	"github.com/jcorbin/cc0/internal/logio"
	"github.com/jcorbin/cc0/internal/source"
)

func newStack(src string) *source.Stack {
	var stk source.Stack
	stk.Push(source.File, "t.c", strings.NewReader(src))
	return &stk
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func TestSeverityStrings(t *testing.T) {
	assert.Equal(t, "note", diag.Note.String())
	assert.Equal(t, "warning", diag.Warning.String())
	assert.Equal(t, "error", diag.Error.String())
	assert.Equal(t, "fatal", diag.Fatal.String())
}

func TestDiagnosticFormat(t *testing.T) {
	stk := newStack("int x;\n")
	d := diag.Diagnostic{
		Severity: diag.Error,
		Pos:      source.Pos{File: 1, Line: 3, Col: 7},
		Message:  "expected ';'",
	}
	assert.Equal(t, "t.c:3:7: error: expected ';'", d.Format(stk))
}

func TestBagCountsErrorsNotWarnings(t *testing.T) {
	stk := newStack("")
	bag := diag.NewBag(stk, nil, false)

	bag.Reportf(diag.Warning, source.Pos{File: 1, Line: 1, Col: 1}, "suspicious")
	assert.Equal(t, 0, bag.ErrorCount, "warnings do not increment the error counter")

	bag.Reportf(diag.Error, source.Pos{File: 1, Line: 2, Col: 1}, "bad")
	bag.Reportf(diag.Error, source.Pos{File: 1, Line: 3, Col: 1}, "worse")
	assert.Equal(t, 2, bag.ErrorCount)
	assert.False(t, bag.HasFatal())
	assert.Len(t, bag.Diagnostics, 3, "suppression never drops the record, only the rendering")
}

func TestBagFatal(t *testing.T) {
	stk := newStack("")
	bag := diag.NewBag(stk, nil, false)
	bag.Reportf(diag.Fatal, source.Pos{File: 1, Line: 1, Col: 1}, "unterminated string literal")
	assert.True(t, bag.HasFatal())
	assert.Equal(t, 1, bag.ErrorCount, "fatal also counts as an error")
}

func TestBagRendersThroughLogger(t *testing.T) {
	var buf bytes.Buffer
	var log logio.Logger
	log.SetOutput(nopWriteCloser{&buf})

	stk := newStack("")
	bag := diag.NewBag(stk, &log, false)
	bag.Reportf(diag.Error, source.Pos{File: 1, Line: 2, Col: 5}, "no such thing")

	assert.Contains(t, buf.String(), "t.c:2:5: error: no such thing")
}

func TestBagFatalFooter(t *testing.T) {
	var buf bytes.Buffer
	var log logio.Logger
	log.SetOutput(nopWriteCloser{&buf})

	stk := newStack("")
	bag := diag.NewBag(stk, &log, false)
	bag.Reportf(diag.Fatal, source.Pos{File: 1, Line: 1, Col: 1}, "cannot open include file")

	out := buf.String()
	assert.Contains(t, out, "t.c:1:1: fatal: cannot open include file")
	assert.Contains(t, out, "Aborting because of previous error(s).")
}

func TestBagSuppressesWarnings(t *testing.T) {
	var buf bytes.Buffer
	var log logio.Logger
	log.SetOutput(nopWriteCloser{&buf})

	stk := newStack("")
	bag := diag.NewBag(stk, &log, true)
	bag.Reportf(diag.Warning, source.Pos{File: 1, Line: 1, Col: 1}, "sketchy cast")

	assert.Empty(t, buf.String(), "-w silences warning rendering")
	assert.Len(t, bag.Diagnostics, 1)
}

func TestNotesRenderWithParent(t *testing.T) {
	var buf bytes.Buffer
	var log logio.Logger
	log.SetOutput(nopWriteCloser{&buf})

	stk := newStack("")
	bag := diag.NewBag(stk, &log, false)
	bag.Report(diag.Diagnostic{
		Severity: diag.Error,
		Pos:      source.Pos{File: 1, Line: 9, Col: 1},
		Message:  "redefinition of 'a'",
		Notes: []diag.Diagnostic{{
			Severity: diag.Note,
			Pos:      source.Pos{File: 1, Line: 2, Col: 1},
			Message:  "previous definition is here",
		}},
	})

	out := buf.String()
	require.Contains(t, out, "t.c:9:1: error: redefinition of 'a'")
	assert.Contains(t, out, "t.c:2:1: note: previous definition is here")
}

func TestWrapAndCause(t *testing.T) {
	root := io.ErrUnexpectedEOF
	wrapped := diag.Wrap(root, "reading include")
	require.Error(t, wrapped)
	assert.Contains(t, wrapped.Error(), "reading include")
	assert.Equal(t, root, diag.Cause(wrapped))
}
