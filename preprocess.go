package cc

import (
	"fmt"
	"io"
	"strings"

	"github.com/jcorbin/cc0/internal/flushio"
	"github.com/jcorbin/cc0/internal/runeio"
	"github.com/jcorbin/cc0/internal/token"
)

// preprocess implements -E: the expanded token stream rendered back to
// text with original line numbering preserved via
// `# <line> "<file>" <flags>` linemarkers at every file push and pop.
func (tu *TU) preprocess(w io.Writer) error {
	wf := flushio.NewWriteFlusher(w)

	const noFile = ^uint32(0)
	var (
		open    []uint32 // file ids with frames still conceptually open
		curFile = noFile
		curLine int
		midLine bool
	)

	marker := func(file uint32, line, flag int) {
		if midLine {
			wf.Write([]byte{'\n'})
			midLine = false
		}
		if flag > 0 {
			fmt.Fprintf(wf, "# %d %q %d\n", line, tu.stack.Name(file), flag)
		} else {
			fmt.Fprintf(wf, "# %d %q\n", line, tu.stack.Name(file))
		}
	}

	for {
		tok := tu.proc.Next()
		if tok.Kind == token.EOF || tu.bag.HasFatal() {
			break
		}
		if tok.Kind == token.Newline || tok.Kind == token.Error {
			continue
		}

		pos := tok.Pos
		switch {
		case pos.File != curFile:
			flag := 0
			if curFile != noFile {
				if idx := indexOfFile(open, pos.File); idx >= 0 {
					open = open[:idx+1]
					flag = 2
				} else {
					flag = 1
				}
			}
			if indexOfFile(open, pos.File) < 0 {
				open = append(open, pos.File)
			}
			marker(pos.File, pos.Line, flag)
			curFile, curLine = pos.File, pos.Line
		case pos.Line != curLine:
			// Small forward gaps become blank lines so the output
			// stays diffable against the input; anything else gets a
			// fresh linemarker.
			if pos.Line > curLine && pos.Line-curLine <= 8 {
				if midLine {
					wf.Write([]byte{'\n'})
					midLine = false
					curLine++
				}
				for ; curLine < pos.Line; curLine++ {
					wf.Write([]byte{'\n'})
				}
			} else {
				marker(curFile, pos.Line, 0)
				curLine = pos.Line
			}
		}

		if midLine && tok.SpaceBefore {
			wf.Write([]byte{' '})
		}
		runeio.WriteANSIString(wf, tu.spellToken(tok))
		midLine = true
	}
	if midLine {
		wf.Write([]byte{'\n'})
	}
	return wf.Flush()
}

func indexOfFile(open []uint32, file uint32) int {
	for i, f := range open {
		if f == file {
			return i
		}
	}
	return -1
}

// spellToken renders one token back to C source text; string and
// character literals are re-escaped since the lexer stored them decoded.
func (tu *TU) spellToken(tok token.Token) string {
	switch tok.Kind {
	case token.StringLit:
		return `"` + escapeCString(tok.Val.Str) + `"`
	case token.CharLit:
		return "'" + escapeCString(string(rune(tok.Val.Int))) + "'"
	default:
		return tu.strs.Text(tok.Lit)
	}
}

func escapeCString(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case 0:
			sb.WriteString(`\0`)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
