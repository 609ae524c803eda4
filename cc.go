// Package cc assembles the C front end and middle end under internal/
// into a runnable translation-unit pipeline: preprocessor, parser/IR
// constructor, optimizer, and a selected backend sink. The package is
// reentrant; all compilation state lives on a TU built fresh per input
// file and discarded at its end.
package cc

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"strings"
	"time"

	"github.com/jcorbin/cc0/internal/backend"
	"github.com/jcorbin/cc0/internal/backend/asmsink"
	"github.com/jcorbin/cc0/internal/backend/dotsink"
	"github.com/jcorbin/cc0/internal/backend/objsink"
	"github.com/jcorbin/cc0/internal/cpp"
	"github.com/jcorbin/cc0/internal/diag"
	"github.com/jcorbin/cc0/internal/lexer"
	"github.com/jcorbin/cc0/internal/logio"
	"github.com/jcorbin/cc0/internal/macro"
	"github.com/jcorbin/cc0/internal/optimize"
	"github.com/jcorbin/cc0/internal/panicerr"
	"github.com/jcorbin/cc0/internal/parser"
	"github.com/jcorbin/cc0/internal/source"
	"github.com/jcorbin/cc0/internal/strtab"
	"github.com/jcorbin/cc0/internal/token"
	"github.com/jcorbin/cc0/internal/types"
)

// Std selects the accepted C dialect and the builtin macro values that
// go with it.
type Std int

// Dialects, in the order the -std= flag accepts them.
const (
	C89 Std = iota
	C99
	C11
)

func (s Std) String() string {
	switch s {
	case C89:
		return "c89"
	case C99:
		return "c99"
	case C11:
		return "c11"
	default:
		return fmt.Sprintf("Std(%d)", int(s))
	}
}

// ParseStd maps a -std= flag value to a Std.
func ParseStd(name string) (Std, error) {
	switch name {
	case "c89", "c90":
		return C89, nil
	case "c99":
		return C99, nil
	case "c11":
		return C11, nil
	}
	return C99, fmt.Errorf("unknown -std=%s", name)
}

func (s Std) lexDialect() lexer.Dialect {
	switch s {
	case C89:
		return lexer.C89
	case C11:
		return lexer.C11
	default:
		return lexer.C99
	}
}

func (s Std) parseDialect() parser.Dialect {
	switch s {
	case C89:
		return parser.C89
	case C11:
		return parser.C11
	default:
		return parser.C99
	}
}

// stdcVersion is the __STDC_VERSION__ spelling, empty pre-C94.
func (s Std) stdcVersion() string {
	switch s {
	case C99:
		return "199901L"
	case C11:
		return "201112L"
	default:
		return ""
	}
}

// Mode selects the pipeline's terminal stage.
type Mode int

const (
	// ModeObject emits the object record stream (-c and the default
	// link path; linking itself is the external driver's job).
	ModeObject Mode = iota
	// ModeAssembly emits assembly text (-S).
	ModeAssembly
	// ModePreprocess emits expanded source with linemarkers (-E).
	ModePreprocess
	// ModeDot emits a Graphviz rendering of each function's CFG.
	ModeDot
)

// Define is one -D name[=value] predefinition.
type Define struct {
	Name  string
	Value string // "1" when the flag had no =value part
}

// Config is the assembled option state for one TU.
type Config struct {
	Std      Std
	Mode     Mode
	OptLevel optimize.Level

	SearchPath []string // -I, searched in order
	SystemPath []string // -isystem plus any default system dirs
	NoStdInc   bool

	Defines  []Define // -D, injected before the first source line
	Includes []string // -include, read before the primary file

	SuppressWarnings bool // -w
	Verbose          bool // -v
	ShortWChar       bool // -fshort-wchar
	DepMode          bool // any of the -M family

	Codegen backend.CodegenOpts

	Output io.Writer
	Logger *logio.Logger

	// Open is how include files (and -include injections) are opened;
	// tests substitute an in-memory filesystem.
	Open func(path string) (io.ReadCloser, error)

	// Now stamps __DATE__/__TIME__; tests pin it.
	Now func() time.Time
}

// Option mutates a Config, composed the same way the teacher composes
// VM options: nil and no-op options collapse away.
type Option interface{ apply(cfg *Config) }

var defaultOptions = Options(
	WithStd(C99),
	WithOutput(ioutil.Discard),
)

// Options flattens opts into a single Option.
func Options(opts ...Option) Option {
	var res options
	for _, opt := range opts {
		switch impl := opt.(type) {
		case nil, noption:
		case options:
			res = append(res, impl...)
		default:
			res = append(res, opt)
		}
	}
	switch len(res) {
	case 0:
		return noption{}
	case 1:
		return res[0]
	default:
		return res
	}
}

type noption struct{}

func (noption) apply(cfg *Config) {}

type options []Option

func (opts options) apply(cfg *Config) {
	for _, opt := range opts {
		if opt != nil {
			opt.apply(cfg)
		}
	}
}

type optionFunc func(cfg *Config)

func (f optionFunc) apply(cfg *Config) { f(cfg) }

// WithStd selects the accepted dialect and builtin macros.
func WithStd(std Std) Option { return optionFunc(func(cfg *Config) { cfg.Std = std }) }

// WithMode selects the pipeline's terminal stage.
func WithMode(mode Mode) Option { return optionFunc(func(cfg *Config) { cfg.Mode = mode }) }

// WithOptLevel sets the -O level.
func WithOptLevel(level int) Option {
	return optionFunc(func(cfg *Config) { cfg.OptLevel = optimize.Level(level) })
}

// WithSearchPath appends -I include directories.
func WithSearchPath(dirs ...string) Option {
	return optionFunc(func(cfg *Config) { cfg.SearchPath = append(cfg.SearchPath, dirs...) })
}

// WithSystemPath appends -isystem include directories.
func WithSystemPath(dirs ...string) Option {
	return optionFunc(func(cfg *Config) { cfg.SystemPath = append(cfg.SystemPath, dirs...) })
}

// WithNoStdInc suppresses the system search path (-nostdinc).
func WithNoStdInc() Option { return optionFunc(func(cfg *Config) { cfg.NoStdInc = true }) }

// WithDefine predefines a macro (-D name[=value]).
func WithDefine(name, value string) Option {
	if value == "" {
		value = "1"
	}
	return optionFunc(func(cfg *Config) { cfg.Defines = append(cfg.Defines, Define{name, value}) })
}

// WithInclude injects a file before the first source line (-include).
func WithInclude(path string) Option {
	return optionFunc(func(cfg *Config) { cfg.Includes = append(cfg.Includes, path) })
}

// WithSuppressWarnings implements -w.
func WithSuppressWarnings() Option {
	return optionFunc(func(cfg *Config) { cfg.SuppressWarnings = true })
}

// WithVerbose implements -v.
func WithVerbose() Option { return optionFunc(func(cfg *Config) { cfg.Verbose = true }) }

// WithShortWChar selects a 16-bit wchar_t (-fshort-wchar).
func WithShortWChar() Option { return optionFunc(func(cfg *Config) { cfg.ShortWChar = true }) }

// WithDependencyMode records every opened include path for the -M
// family; read back via Dependencies after Run.
func WithDependencyMode() Option { return optionFunc(func(cfg *Config) { cfg.DepMode = true }) }

// WithCodegen passes the -f/-m/-g/-O surface through to the sink.
func WithCodegen(opts backend.CodegenOpts) Option {
	return optionFunc(func(cfg *Config) { cfg.Codegen = opts })
}

// WithOutput sets the sink's output stream.
func WithOutput(w io.Writer) Option { return optionFunc(func(cfg *Config) { cfg.Output = w }) }

// WithLogger routes diagnostics through log.
func WithLogger(log *logio.Logger) Option {
	return optionFunc(func(cfg *Config) { cfg.Logger = log })
}

// WithOpen substitutes the include-file opener.
func WithOpen(open func(path string) (io.ReadCloser, error)) Option {
	return optionFunc(func(cfg *Config) { cfg.Open = open })
}

// WithNow pins the __DATE__/__TIME__ clock.
func WithNow(now func() time.Time) Option {
	return optionFunc(func(cfg *Config) { cfg.Now = now })
}

// TU is one translation unit's compiler state, built fresh per input
// file and discarded at its end.
type TU struct {
	cfg   Config
	name  string
	input io.Reader

	strs  *strtab.Table
	stack *source.Stack
	in    *types.Interner
	bag   *diag.Bag
	proc  *cpp.Processor
	prs   *parser.Parser
	res   parser.Result

	closers []io.Closer
}

// NewTU builds a TU compiling the source text read from r, reported
// under name in diagnostics and linemarkers.
func NewTU(name string, r io.Reader, opts ...Option) *TU {
	var cfg Config
	defaultOptions.apply(&cfg)
	Options(opts...).apply(&cfg)
	if cfg.Open == nil {
		cfg.Open = func(path string) (io.ReadCloser, error) { return os.Open(path) }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TU{cfg: cfg, name: name, input: r}
}

// Run executes the whole pipeline for this TU. A non-nil error means
// the TU produced no backend output: either its error counter is
// non-zero, a fatal diagnostic aborted it, or an internal failure
// (wrapped with its cause) occurred.
func (tu *TU) Run(ctx context.Context) error {
	return panicerr.Recover("cc", func() error {
		return tu.run(ctx)
	})
}

// Bag exposes the TU's diagnostics after Run, for drivers and tests.
func (tu *TU) Bag() *diag.Bag { return tu.bag }

// Dependencies returns the include paths recorded under
// WithDependencyMode, in open order, after Run.
func (tu *TU) Dependencies() []string {
	if tu.proc == nil {
		return nil
	}
	return tu.proc.Dependencies()
}

// Result exposes the parsed TU for dump mode and tests.
func (tu *TU) Result() parser.Result { return tu.res }

// Dump renders the finalized symbol table and CFGs to w.
func (tu *TU) Dump(w io.Writer) {
	if tu.prs == nil {
		return
	}
	diag.Dump(w, tu.prs.Idents, tu.prs.Labels, tu.prs.Tags, tu.res.Defs)
}

func (tu *TU) logf(mess string, args ...interface{}) {
	if tu.cfg.Verbose && tu.cfg.Logger != nil {
		tu.cfg.Logger.Printf("", mess, args...)
	}
}

func (tu *TU) run(ctx context.Context) error {
	tu.strs = &strtab.Table{}
	tu.stack = &source.Stack{}
	tu.in = types.NewInterner()
	defer tu.close()

	tu.logf("compiling %s (-std=%s -O%d)", tu.name, tu.cfg.Std, int(tu.cfg.OptLevel))

	// The stack pops LIFO, so the primary file goes on first and the
	// predefine buffer last: predefines read first, then -include
	// injections in flag order, then the primary source.
	tu.stack.Push(source.File, tu.name, tu.input)
	for i := len(tu.cfg.Includes) - 1; i >= 0; i-- {
		path := tu.cfg.Includes[i]
		rc, err := tu.cfg.Open(path)
		if err != nil {
			return diag.Wrap(err, "opening -include file")
		}
		tu.stack.Push(source.File, path, rc)
	}
	if pre := tu.predefineText(); pre != "" {
		tu.stack.Push(source.Synthetic, "<command-line>", strings.NewReader(pre))
	}

	search := append([]string{}, tu.cfg.SearchPath...)
	if !tu.cfg.NoStdInc {
		search = append(search, tu.cfg.SystemPath...)
	}
	resolver := cpp.DirResolver{SearchPath: search, Open: tu.cfg.Open}

	tu.bag = diag.NewBag(tu.stack, tu.cfg.Logger, tu.cfg.SuppressWarnings)

	now := tu.cfg.Now()
	builtins := macro.Builtins{
		File: func() string { return tu.stack.Name(tu.stack.Location().File) },
		Line: func() int { return tu.stack.Location().Line },
		Date: now.Format("Jan _2 2006"),
		Time: now.Format("15:04:05"),
		Std:  tu.cfg.Std.stdcVersion(),
	}

	tu.proc = cpp.New(tu.stack, tu.strs, tu.cfg.Std.lexDialect(), resolver, builtins, bagDiag{tu.bag})
	tu.proc.SetDependencyMode(tu.cfg.DepMode)

	if tu.cfg.Mode == ModePreprocess {
		if err := tu.preprocess(tu.cfg.Output); err != nil {
			return err
		}
		return tu.finishErr()
	}

	tu.prs = parser.New(tu.proc, tu.strs, tu.in, tu.bag, tu.cfg.Std.parseDialect())
	tu.prs.AbortCheck = func() bool { return ctx.Err() != nil || tu.bag.HasFatal() }
	tu.prs.DeclareBuiltinTypedef("size_t", types.SizeType)
	tu.prs.DeclareBuiltinTypedef("ptrdiff_t", types.PtrdiffType)
	tu.prs.DeclareBuiltinTypedef("wchar_t", types.WCharType(tu.cfg.ShortWChar))
	tu.res = tu.prs.Parse()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tu.finishErr(); err != nil {
		return err
	}

	for _, def := range tu.res.Defs {
		optimize.Run(def, tu.cfg.OptLevel)
	}
	tu.logf("parsed %d definition(s), %d tentative, %d undefined",
		len(tu.res.Defs), len(tu.res.Tentative), len(tu.res.Undefined))

	return tu.emit()
}

// finishErr turns a non-zero TU error counter into Run's error result,
// suppressing backend emission.
func (tu *TU) finishErr() error {
	if n := tu.bag.ErrorCount; n > 0 {
		return fmt.Errorf("%d error(s) compiling %s", n, tu.name)
	}
	return nil
}

func (tu *TU) emit() error {
	out := tu.cfg.Output
	var sink backend.Sink
	var objs *objsink.Sink
	switch tu.cfg.Mode {
	case ModeAssembly:
		sink = asmsink.New(out, tu.strs, tu.cfg.Codegen)
	case ModeDot:
		sink = dotsink.New(out, tu.strs)
	default:
		objs = objsink.New(out, tu.strs, tu.cfg.Codegen)
		sink = objs
	}

	for _, def := range tu.res.Defs {
		if err := sink.Define(def); err != nil {
			return diag.Wrap(err, "emitting definition")
		}
	}
	if objs != nil {
		img, err := buildDataImage(tu.strs, tu.res.Inits)
		if err != nil {
			return diag.Wrap(err, "laying out static data")
		}
		if err := img.writeTo(objs); err != nil {
			return diag.Wrap(err, "emitting static data")
		}
	}
	if err := sink.Finish(tu.res.Tentative, tu.res.Undefined); err != nil {
		return diag.Wrap(err, "finishing translation unit")
	}
	return nil
}

// predefineText synthesizes the -D command-line buffer.
func (tu *TU) predefineText() string {
	if len(tu.cfg.Defines) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, d := range tu.cfg.Defines {
		fmt.Fprintf(&sb, "#define %s %s\n", d.Name, d.Value)
	}
	return sb.String()
}

func (tu *TU) close() {
	if tu.stack != nil {
		tu.stack.Close()
	}
	for i := len(tu.closers) - 1; i >= 0; i-- {
		tu.closers[i].Close()
	}
}

// bagDiag adapts the diagnostic bag to the token-position interfaces
// the preprocessor layers expect.
type bagDiag struct{ bag *diag.Bag }

func (bd bagDiag) Warningf(tok token.Token, format string, args ...interface{}) {
	bd.bag.Reportf(diag.Warning, tok.Pos, format, args...)
}

func (bd bagDiag) Errorf(tok token.Token, format string, args ...interface{}) {
	bd.bag.Reportf(diag.Error, tok.Pos, format, args...)
}

func (bd bagDiag) Fatalf(tok token.Token, format string, args ...interface{}) {
	bd.bag.Reportf(diag.Fatal, tok.Pos, format, args...)
}

// FilterSystem drops dependency paths under any of sysDirs, for -MM's
// user-headers-only fragment.
func FilterSystem(deps, sysDirs []string) []string {
	var out []string
	for _, dep := range deps {
		sys := false
		for _, dir := range sysDirs {
			if dir != "" && strings.HasPrefix(dep, strings.TrimSuffix(dir, "/")+"/") {
				sys = true
				break
			}
		}
		if !sys {
			out = append(out, dep)
		}
	}
	return out
}
