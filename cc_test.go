package cc_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cc "github.com/jcorbin/cc0"
	"github.com/jcorbin/cc0/internal/backend/objsink"
	"github.com/jcorbin/cc0/internal/ir"
)

func openMap(files map[string]string) func(string) (io.ReadCloser, error) {
	return func(path string) (io.ReadCloser, error) {
		if body, ok := files[path]; ok {
			return ioutil.NopCloser(strings.NewReader(body)), nil
		}
		return nil, fmt.Errorf("no such file")
	}
}

// compile runs one TU over src and returns it along with whatever the
// selected sink wrote.
func compile(t *testing.T, src string, opts ...cc.Option) (*cc.TU, string, error) {
	t.Helper()
	var buf bytes.Buffer
	tu := cc.NewTU("t.c", strings.NewReader(src),
		cc.WithMode(cc.ModeAssembly),
		cc.WithOutput(&buf),
		cc.WithNow(func() time.Time { return time.Date(2021, 3, 14, 15, 9, 2, 0, time.UTC) }),
		cc.Options(opts...),
	)
	err := tu.Run(context.Background())
	return tu, buf.String(), err
}

func countOpcodes(defs []*ir.Def) map[ir.Opcode]int {
	counts := map[ir.Opcode]int{}
	for _, def := range defs {
		def.Walk(func(b *ir.Block) {
			for _, op := range b.Ops {
				counts[op.Opcode]++
			}
		})
	}
	return counts
}

func TestReturnConstantFolds(t *testing.T) {
	_, asm, err := compile(t, "int main(void) { return 1 + 2; }")
	require.NoError(t, err)
	assert.Contains(t, asm, ".globl main")
	assert.Contains(t, asm, "ret 3", "1+2 folds at the evaluator")
	assert.NotContains(t, asm, "add", "no add op survives constant folding")
}

func TestMacroExpansionIntoIR(t *testing.T) {
	src := "#define SQ(x) ((x)*(x))\nint f(int a) { return SQ(a + 1); }\n"
	tu, _, err := compile(t, src)
	require.NoError(t, err)

	counts := countOpcodes(tu.Result().Defs)
	assert.Equal(t, 1, counts[ir.OpMul], "one multiply, returning the product")
	assert.NotZero(t, counts[ir.OpAdd])
}

func TestPragmaOnceDependencyList(t *testing.T) {
	files := map[string]string{"b.h": "#pragma once\nint fromb;\n"}
	src := "#include \"b.h\"\n#include \"b.h\"\nint main(void) { return 0; }\n"
	tu, _, err := compile(t, src,
		cc.WithOpen(openMap(files)),
		cc.WithDependencyMode(),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.h"}, tu.Dependencies(), "a #pragma once header is listed exactly once")
}

func TestTentativeThenDefinition(t *testing.T) {
	_, asm, err := compile(t, "int a; int a = 3;")
	require.NoError(t, err, "tentative then real definition is accepted")
	assert.NotContains(t, asm, ".comm a", "the definition supersedes the tentative allocation")
}

func TestDoubleDefinitionRejected(t *testing.T) {
	tu, _, err := compile(t, "int a = 1; int a = 2;")
	require.Error(t, err)
	require.NotEmpty(t, tu.Bag().Diagnostics)
	assert.Contains(t, tu.Bag().Diagnostics[0].Message, "redefinition")
}

func TestTentativeAloneBecomesCommon(t *testing.T) {
	_, asm, err := compile(t, "int counter;")
	require.NoError(t, err)
	assert.Contains(t, asm, ".comm counter, 4, 4")
}

func TestUndefinedExternReported(t *testing.T) {
	src := "extern int other(void);\nint main(void) { return other(); }\n"
	_, asm, err := compile(t, src)
	require.NoError(t, err)
	assert.Contains(t, asm, ".extern other")
}

func TestLoopRetainedAtO2(t *testing.T) {
	src := "int f(void) { int x = 0; while (x < 10) x++; return x; }\n"
	tu, asm, err := compile(t, src, cc.WithOptLevel(2))
	require.NoError(t, err)

	counts := countOpcodes(tu.Result().Defs)
	assert.NotZero(t, counts[ir.OpLt], "the loop condition survives")
	assert.NotZero(t, counts[ir.OpAdd], "the increment survives")
	assert.Contains(t, asm, "br ", "the conditional branch survives")
}

func TestErrorsSuppressBackendOutput(t *testing.T) {
	_, asm, err := compile(t, "int f(void) { return ; }\nint 3bad;\n")
	require.Error(t, err)
	assert.Empty(t, asm, "a TU with errors produces no backend output")
}

func TestPredefines(t *testing.T) {
	src := "#if FEATURE\nint enabled;\n#endif\n"
	_, asm, err := compile(t, src, cc.WithDefine("FEATURE", "1"))
	require.NoError(t, err)
	assert.Contains(t, asm, "enabled")
}

func TestIncludeInjection(t *testing.T) {
	files := map[string]string{"pre.h": "#define FROM_PRE 7\n"}
	src := "int x = FROM_PRE;\n"
	tu, _, err := compile(t, src,
		cc.WithOpen(openMap(files)),
		cc.WithInclude("pre.h"),
		cc.WithMode(cc.ModeObject),
	)
	require.NoError(t, err)
	require.Len(t, tu.Result().Inits, 1)
	assert.Equal(t, int64(7), tu.Result().Inits[0].Val.ImmInt)
}

func TestStdSelectsVersionMacro(t *testing.T) {
	src := "#if __STDC_VERSION__ >= 199901L\nint isC99;\n#else\nint isC89;\n#endif\n"
	_, asm, err := compile(t, src, cc.WithStd(cc.C99))
	require.NoError(t, err)
	assert.Contains(t, asm, "isC99")

	_, asm, err = compile(t, src, cc.WithStd(cc.C89))
	require.NoError(t, err)
	assert.Contains(t, asm, "isC89")
}

func TestObjectSinkEmitsDataImage(t *testing.T) {
	var buf bytes.Buffer
	tu := cc.NewTU("t.c", strings.NewReader("int a = 3;\n"),
		cc.WithMode(cc.ModeObject),
		cc.WithOutput(&buf),
	)
	require.NoError(t, tu.Run(context.Background()))

	out := buf.Bytes()
	require.NotEmpty(t, out)
	// one 'G' record: name NUL, uint32 LE offset 0, then the 4 image
	// bytes of the little-endian 3.
	want := append([]byte("a\x00"), 0, 0, 0, 0, 3, 0, 0, 0)
	assert.True(t, bytes.Contains(out, want), "data record carries the zero-padded constant image")
	assert.Equal(t, objsink.TagData, byte('G'))
}

func TestPreprocessEmitsLinemarkers(t *testing.T) {
	files := map[string]string{"a.h": "int fromheader;\n"}
	src := "int pre;\n#include \"a.h\"\nint mainline;\n"
	_, out, err := compile(t, src,
		cc.WithMode(cc.ModePreprocess),
		cc.WithOpen(openMap(files)),
	)
	require.NoError(t, err)
	assert.Contains(t, out, "# 1 \"t.c\"")
	assert.Contains(t, out, "\"a.h\" 1", "entering an include is flagged 1")
	assert.Contains(t, out, "\"t.c\" 2", "returning to the includer is flagged 2")
	assert.Contains(t, out, "fromheader")
	assert.Contains(t, out, "mainline")
}

// tokensOf preprocesses src and returns every token spelling, for the
// round-trip property: preprocessing already-preprocessed text yields
// the same stream modulo whitespace.
func tokensOf(t *testing.T, src string, files map[string]string) []string {
	t.Helper()
	var buf bytes.Buffer
	tu := cc.NewTU("t.c", strings.NewReader(src),
		cc.WithMode(cc.ModePreprocess),
		cc.WithOutput(&buf),
		cc.WithOpen(openMap(files)),
	)
	require.NoError(t, tu.Run(context.Background()))
	return strings.Fields(stripLinemarkers(buf.String()))
}

func stripLinemarkers(s string) string {
	var keep []string
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		keep = append(keep, line)
	}
	return strings.Join(keep, "\n")
}

func TestPreprocessRoundTrip(t *testing.T) {
	files := map[string]string{"a.h": "#define N 4\nint header_decl;\n"}
	src := "#include \"a.h\"\nint arr[N];\nint tail;\n"

	first := tokensOf(t, src, files)

	var buf bytes.Buffer
	tu := cc.NewTU("t.c", strings.NewReader(src),
		cc.WithMode(cc.ModePreprocess),
		cc.WithOutput(&buf),
		cc.WithOpen(openMap(files)),
	)
	require.NoError(t, tu.Run(context.Background()))

	second := tokensOf(t, buf.String(), nil)
	assert.Equal(t, first, second)
}

func TestFilterSystem(t *testing.T) {
	deps := []string{"local.h", "/usr/include/stdio.h", "sub/own.h"}
	got := cc.FilterSystem(deps, []string{"/usr/include"})
	assert.Equal(t, []string{"local.h", "sub/own.h"}, got)
}

func TestCancellationAbortsTU(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	tu := cc.NewTU("t.c", strings.NewReader("int main(void) { return 0; }"),
		cc.WithMode(cc.ModeAssembly),
		cc.WithOutput(&buf),
	)
	err := tu.Run(ctx)
	require.Error(t, err)
	assert.Empty(t, buf.String(), "a cancelled TU emits nothing")
}

// TestCorpusCompiles drives every testdata fixture through the full
// pipeline at -O0 and -O2; scripts/gencorpus.go
// regenerates assembly snapshots from the same files.
func TestCorpusCompiles(t *testing.T) {
	names, err := filepath.Glob(filepath.Join("testdata", "*.c"))
	require.NoError(t, err)
	require.NotEmpty(t, names)

	for _, name := range names {
		for _, level := range []int{0, 2} {
			t.Run(fmt.Sprintf("%s/O%d", filepath.Base(name), level), func(t *testing.T) {
				body, err := ioutil.ReadFile(name)
				require.NoError(t, err)

				var buf bytes.Buffer
				tu := cc.NewTU(name, bytes.NewReader(body),
					cc.WithMode(cc.ModeAssembly),
					cc.WithOutput(&buf),
					cc.WithOptLevel(level),
				)
				require.NoError(t, tu.Run(context.Background()))
				assert.NotEmpty(t, buf.String())
				assert.NotEmpty(t, tu.Result().Defs)
			})
		}
	}
}

func TestDotMode(t *testing.T) {
	_, out, err := compile(t, "int f(int a) { if (a) return 1; return 2; }",
		cc.WithMode(cc.ModeDot))
	require.NoError(t, err)
	assert.Contains(t, out, "digraph")
	assert.Contains(t, out, "->")
}
