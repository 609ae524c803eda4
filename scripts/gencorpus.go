// Command gencorpus regenerates the golden assembly fixtures under
// testdata/: every *.c file is compiled with -S at the given -O level,
// each in its own isolated translation unit, writing <name>.s next to
// it. The fan-out runs one worker per input; each worker still runs a
// wholly sequential single-TU pipeline.
//
//	go run scripts/gencorpus.go [-O level] [dir]
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/context"
	"golang.org/x/sync/errgroup"

	cc "github.com/jcorbin/cc0"
)

var (
	optLevel = flag.Int("O", 2, "optimization level for the regenerated corpus")
	std      = flag.String("std", "c99", "dialect for the regenerated corpus")
)

func main() {
	flag.Parse()

	dir := "testdata"
	if args := flag.Args(); len(args) > 0 {
		dir = args[0]
	}

	names, err := filepath.Glob(filepath.Join(dir, "*.c"))
	if err != nil {
		log.Fatalln(err)
	}
	if len(names) == 0 {
		log.Fatalf("no *.c files under %v", dir)
	}

	dialect, err := cc.ParseStd(*std)
	if err != nil {
		log.Fatalln(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		eg.Go(func() error {
			return regen(ctx, name, dialect)
		})
	}
	if err := eg.Wait(); err != nil {
		log.Fatalln(err)
	}
}

func regen(ctx context.Context, name string, std cc.Std) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	var buf bytes.Buffer
	tu := cc.NewTU(name, f,
		cc.WithStd(std),
		cc.WithMode(cc.ModeAssembly),
		cc.WithOptLevel(*optLevel),
		cc.WithSearchPath(filepath.Dir(name)),
		cc.WithOutput(&buf),
	)
	if err := tu.Run(ctx); err != nil {
		return fmt.Errorf("compiling %v: %w", name, err)
	}

	out := strings.TrimSuffix(name, ".c") + ".s"
	if err := ioutil.WriteFile(out, buf.Bytes(), 0644); err != nil {
		return err
	}
	fmt.Printf("regenerated %v\n", out)
	return nil
}
