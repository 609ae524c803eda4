package depsink_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcorbin/cc0/internal/backend/depsink"
)

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, depsink.Write(&buf, "out.o", []string{"src/a.c", "include/a.h"}, false))
	assert.Equal(t, "out.o: \\\n  src/a.c \\\n  include/a.h\n", buf.String())
}

func TestWritePhony(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, depsink.Write(&buf, "out.o", []string{"include/a.h"}, true))
	assert.Equal(t, "out.o: \\\n  include/a.h\ninclude/a.h:\n", buf.String())
}

func TestWriteEscapesSpacesAndDollar(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, depsink.Write(&buf, "My Target", []string{"$ROOT/a.h"}, false))
	assert.Equal(t, "My\\ Target: \\\n  $$ROOT/a.h\n", buf.String())
}
