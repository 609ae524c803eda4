// Command cc drives the compiler over each input file in sequence: one
// translation unit per file, preprocessed (-E), compiled to assembly
// (-S), to an object record stream (-c, the default), or to a CFG dot
// graph (-dot), with the -M dependency family layered on top. Linking
// object files into an executable is an external linker driver's job.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"time"

	cc "github.com/jcorbin/cc0"
	"github.com/jcorbin/cc0/internal/backend"
	"github.com/jcorbin/cc0/internal/backend/depsink"
	"github.com/jcorbin/cc0/internal/logio"
)

// stringList is a repeatable string flag (-I dir -I dir2).
type stringList []string

func (sl *stringList) String() string { return strings.Join(*sl, ":") }

func (sl *stringList) Set(s string) error {
	*sl = append(*sl, s)
	return nil
}

type flags struct {
	preprocess bool // -E
	assembly   bool // -S
	object     bool // -c
	dot        bool // -dot

	output   string
	includes stringList // -I
	isystem  stringList // -isystem
	nostdinc bool
	defines  stringList // -D name[=value]
	preinc   stringList // -include
	std      string
	optLevel int
	debug    bool
	quiet    bool // -w
	verbose  bool
	dump     bool
	timeout  time.Duration

	pic, noPIC       bool
	common, noCommon bool
	sse, noSSE       bool
	shortWChar       bool

	depM, depMM, depMD, depMMD bool
	depFile                    string // -MF
	depTarget                  string // -MT
	depQuoted                  string // -MQ
	depMissing                 bool   // -MG
	depPhony                   bool   // -MP
}

func parseFlags() *flags {
	var fl flags
	flag.BoolVar(&fl.preprocess, "E", false, "preprocess only")
	flag.BoolVar(&fl.assembly, "S", false, "emit assembly")
	flag.BoolVar(&fl.object, "c", false, "emit object")
	flag.BoolVar(&fl.dot, "dot", false, "emit an IR dot graph")
	flag.StringVar(&fl.output, "o", "", "output path")
	flag.Var(&fl.includes, "I", "add an include search directory")
	flag.Var(&fl.isystem, "isystem", "add a system include search directory")
	flag.BoolVar(&fl.nostdinc, "nostdinc", false, "suppress standard include paths")
	flag.Var(&fl.defines, "D", "predefine a macro, name[=value]")
	flag.Var(&fl.preinc, "include", "inject a file before the first source line")
	flag.StringVar(&fl.std, "std", "c99", "accepted dialect: c89, c99, c11")
	flag.IntVar(&fl.optLevel, "O", 0, "optimization level 0-3")
	flag.BoolVar(&fl.debug, "g", false, "emit debug info hooks")
	flag.BoolVar(&fl.quiet, "w", false, "suppress warnings")
	flag.BoolVar(&fl.verbose, "v", false, "verbose")
	flag.BoolVar(&fl.dump, "dump", false, "print a symbol/IR dump after each TU")
	flag.DurationVar(&fl.timeout, "timeout", 0, "specify a time limit per invocation")

	flag.BoolVar(&fl.pic, "fPIC", false, "position independent code")
	flag.BoolVar(&fl.noPIC, "fno-PIC", false, "disable position independent code")
	flag.BoolVar(&fl.common, "fcommon", true, "common tentative definitions")
	flag.BoolVar(&fl.noCommon, "fno-common", false, "disable common tentative definitions")
	flag.BoolVar(&fl.sse, "msse", true, "use SSE for floating point")
	flag.BoolVar(&fl.noSSE, "mno-sse", false, "disable SSE")
	flag.BoolVar(&fl.shortWChar, "fshort-wchar", false, "16-bit wchar_t")

	flag.BoolVar(&fl.depM, "M", false, "emit a dependency fragment instead of compiling")
	flag.BoolVar(&fl.depMM, "MM", false, "like -M, skipping system headers")
	flag.BoolVar(&fl.depMD, "MD", false, "compile and write a dependency fragment")
	flag.BoolVar(&fl.depMMD, "MMD", false, "like -MD, skipping system headers")
	flag.StringVar(&fl.depFile, "MF", "", "dependency fragment output path")
	flag.StringVar(&fl.depTarget, "MT", "", "dependency fragment target name")
	flag.StringVar(&fl.depQuoted, "MQ", "", "dependency fragment target name, quoted")
	flag.BoolVar(&fl.depMissing, "MG", false, "tolerate missing headers in dependency mode")
	flag.BoolVar(&fl.depPhony, "MP", false, "emit phony targets for headers")
	flag.Parse()
	return &fl
}

func main() {
	fl := parseFlags()

	log := logio.Logger{}
	log.SetOutput(os.Stderr)
	defer os.Exit(log.ExitCode())

	if flag.NArg() == 0 {
		log.Errorf("no input files")
		return
	}
	if fl.output != "" && flag.NArg() > 1 && !fl.preprocess {
		log.Errorf("cannot specify -o with multiple input files")
		return
	}

	ctx := context.Background()
	if fl.timeout != 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, fl.timeout)
		defer cancel()
	}

	for _, name := range flag.Args() {
		if err := compileOne(ctx, &log, fl, name); err != nil {
			log.ErrorIf(err)
		}
	}
}

func compileOne(ctx context.Context, log *logio.Logger, fl *flags, name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	depOnly := fl.depM || fl.depMM
	mode := cc.ModeObject
	switch {
	case fl.preprocess || depOnly:
		mode = cc.ModePreprocess
	case fl.dot:
		mode = cc.ModeDot
	case fl.assembly:
		mode = cc.ModeAssembly
	}

	outPath := fl.output
	if outPath == "" && !depOnly {
		switch mode {
		case cc.ModePreprocess:
			// -E defaults to stdout
		case cc.ModeAssembly:
			outPath = derivedName(name, ".s")
		case cc.ModeDot:
			outPath = derivedName(name, ".dot")
		default:
			outPath = derivedName(name, ".o")
		}
	}

	var out io.Writer = os.Stdout
	if depOnly {
		// -M/-MM replace the preprocessed output with the fragment.
		out = ioutil.Discard
	} else if outPath != "" {
		of, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer of.Close()
		out = of
	}

	codegen := backend.CodegenOpts{
		OptLevel: fl.optLevel,
		PIC:      fl.pic && !fl.noPIC,
		Common:   fl.common && !fl.noCommon,
		SSE:      fl.sse && !fl.noSSE,
		Debug:    fl.debug,
	}

	std, err := cc.ParseStd(fl.std)
	if err != nil {
		return err
	}

	opts := cc.Options(
		cc.WithStd(std),
		cc.WithMode(mode),
		cc.WithOptLevel(fl.optLevel),
		cc.WithSearchPath(fl.includes...),
		cc.WithSystemPath(fl.isystem...),
		cc.WithCodegen(codegen),
		cc.WithOutput(out),
		cc.WithLogger(log),
	)
	if fl.nostdinc {
		opts = cc.Options(opts, cc.WithNoStdInc())
	}
	if fl.quiet {
		opts = cc.Options(opts, cc.WithSuppressWarnings())
	}
	if fl.verbose {
		opts = cc.Options(opts, cc.WithVerbose())
	}
	if fl.shortWChar {
		opts = cc.Options(opts, cc.WithShortWChar())
	}
	for _, d := range fl.defines {
		dname, value := d, ""
		if i := strings.IndexByte(d, '='); i >= 0 {
			dname, value = d[:i], d[i+1:]
		}
		opts = cc.Options(opts, cc.WithDefine(dname, value))
	}
	for _, inc := range fl.preinc {
		opts = cc.Options(opts, cc.WithInclude(inc))
	}
	depMode := fl.depM || fl.depMM || fl.depMD || fl.depMMD
	if depMode {
		opts = cc.Options(opts, cc.WithDependencyMode())
	}

	tu := cc.NewTU(name, f, opts)
	runErr := tu.Run(ctx)

	if fl.dump {
		lw := &logio.Writer{Logf: log.Leveledf("DUMP")}
		tu.Dump(lw)
		lw.Close()
	}

	if depMode && (runErr == nil || fl.depMissing) {
		if err := writeDeps(fl, name, tu.Dependencies()); err != nil {
			return err
		}
	}
	return runErr
}

// writeDeps emits the makefile dependency fragment for one TU, per the
// -M family semantics: -MM/-MMD skip system headers, -MF redirects the
// fragment, -MT/-MQ rename the target, -MP appends phony rules.
func writeDeps(fl *flags, name string, deps []string) error {
	if fl.depMM || fl.depMMD {
		deps = cc.FilterSystem(deps, fl.isystem)
	}
	deps = append([]string{name}, deps...)

	target := fl.depTarget
	quoted := false
	if target == "" && fl.depQuoted != "" {
		target, quoted = fl.depQuoted, true
	}
	if target == "" {
		target = derivedName(name, ".o")
	}
	_ = quoted // depsink escapes make-special characters unconditionally

	path := fl.depFile
	if path == "" {
		if fl.depMD || fl.depMMD {
			path = derivedName(name, ".o.d")
		} else if fl.output != "" {
			path = fl.output
		}
	}

	if path == "" {
		return depsink.Write(os.Stdout, target, deps, fl.depPhony)
	}
	df, err := os.Create(path)
	if err != nil {
		return err
	}
	defer df.Close()
	return depsink.Write(df, target, deps, fl.depPhony)
}

// derivedName strips the directory and replaces the final suffix:
// foo/bar.c becomes bar.s, bar.o, bar.dot, or bar.o.d.
func derivedName(name, suffix string) string {
	base := filepath.Base(name)
	if ext := filepath.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	return fmt.Sprintf("%s%s", base, suffix)
}
