// Package depsink writes the makefile fragment the `-M` family of
// flags asks for: `target: src headers...`, continuation-escaped over
// multiple lines the way make(1) expects, built from the directive
// engine's recorded include list (cpp.Processor.Dependencies). It is
// not a backend.Sink: `-M` suppresses normal compilation entirely, so
// nothing here ever sees an ir.Def.
package depsink

import (
	"fmt"
	"io"
	"strings"
)

// Write emits `target: dep dep ...`, line-wrapped with `\` the way
// make expects, and one extra phony rule per dependency when phony is
// true (the `-MP` convention: a removed header does not break the
// build with a "no rule to make target" error).
func Write(w io.Writer, target string, deps []string, phony bool) error {
	if _, err := fmt.Fprintf(w, "%s:", escape(target)); err != nil {
		return err
	}
	for _, d := range deps {
		if _, err := fmt.Fprintf(w, " \\\n  %s", escape(d)); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}
	if phony {
		for _, d := range deps {
			if _, err := fmt.Fprintf(w, "%s:\n", escape(d)); err != nil {
				return err
			}
		}
	}
	return nil
}

// escape doubles `$` to `$$` and backslash-escapes spaces, the two characters make's
// dependency-line syntax treats specially.
func escape(s string) string {
	s = strings.ReplaceAll(s, "$", "$$")
	s = strings.ReplaceAll(s, " ", "\\ ")
	return s
}
