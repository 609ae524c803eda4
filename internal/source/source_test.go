package source_test

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/cc0/internal/source"
)

func readAll(t *testing.T, s *source.Stack) string {
	t.Helper()
	var sb strings.Builder
	for {
		r, err := s.ReadRune()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		sb.WriteRune(r)
	}
	return sb.String()
}

func TestPushDownIncludeOrder(t *testing.T) {
	var s source.Stack
	s.Push(source.File, "a.c", strings.NewReader("AC"))

	// simulate #include "b.h" seen mid-file: push on top, must drain
	// fully before "a.c" resumes -- that is the push-down/LIFO contract
	// a flat queue cannot give.
	got := make([]rune, 0, 2)
	r, err := s.ReadRune()
	require.NoError(t, err)
	got = append(got, r)

	s.Push(source.File, "b.h", strings.NewReader("B"))
	r, err = s.ReadRune()
	require.NoError(t, err)
	got = append(got, r)
	assert.Equal(t, "B", string(got[1]))

	r, err = s.ReadRune()
	require.NoError(t, err)
	got = append(got, r)
	assert.Equal(t, "C", string(got[2]), "must resume a.c after b.h drains")

	_, err = s.ReadRune()
	assert.Equal(t, io.EOF, err)
}

func TestLineColumnTracking(t *testing.T) {
	var s source.Stack
	s.Push(source.File, "t.c", strings.NewReader("ab\ncd"))

	s.ReadRune() // a
	loc := s.Location()
	assert.Equal(t, 1, loc.Line)
	assert.Equal(t, 1, loc.Col)

	s.ReadRune() // b
	loc = s.Location()
	assert.Equal(t, 2, loc.Col)

	s.ReadRune() // \n
	s.ReadRune() // c, now on line 2
	loc = s.Location()
	assert.Equal(t, 2, loc.Line)
	assert.Equal(t, 1, loc.Col)
}

func TestSetLine(t *testing.T) {
	var s source.Stack
	s.Push(source.File, "t.c", strings.NewReader("x\ny"))
	s.ReadRune()
	require.NoError(t, s.SetLine(100, "other.c"))
	s.ReadRune() // newline
	s.ReadRune() // y, now reported at line 100 under the renamed frame
	loc := s.Location()
	assert.Equal(t, 100, loc.Line)
	assert.Equal(t, "other.c", s.Name(loc.File))
}

func TestFullDrain(t *testing.T) {
	var s source.Stack
	s.Push(source.File, "only.c", strings.NewReader("hi"))
	assert.Equal(t, "hi", readAll(t, &s))
	assert.Equal(t, 0, s.Depth())
}
