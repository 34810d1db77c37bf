// Command soupdump parses an HTML file, or stdin, and prints the repaired
// document.
//
// Usage:
//
//	soupdump [-trace] [-dump] [-quirks|-strict] [-v] [file]
//
// By default the document is rendered back as HTML. -dump prints one node per
// line, -trace prints the calls the tree builder made.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/net/html"

	tagsoup "github.com/dpotapov/go-tagsoup"
	"github.com/dpotapov/go-tagsoup/grammar"
	"github.com/dpotapov/go-tagsoup/sink"
)

func main() {
	var (
		trace    = flag.Bool("trace", false, "print the tree builder calls")
		dump     = flag.Bool("dump", false, "print the tree one node per line")
		quirks   = flag.Bool("quirks", true, "build in quirks mode")
		strict   = flag.Bool("strict", false, "build in full standards mode")
		verbose  = flag.Bool("v", false, "log recovery events")
		comments = flag.Bool("comments", false, "keep comments")
		noscript = flag.Bool("noscript", false, "parse as a browser with scripting disabled")
		noframes = flag.Bool("noframes", false, "parse as a browser with frames disabled")
	)
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts := tagsoup.Options{Logger: logger}
	switch {
	case *strict:
		opts.Mode = grammar.FullStandards
	case !*quirks:
		opts.Mode = grammar.AlmostStandards
	}
	opts.DTD.Comments = *comments
	opts.Tree = sink.TreeOptions{DisableScripting: *noscript, DisableFrames: *noframes}

	in := io.Reader(os.Stdin)
	if name := flag.Arg(0); name != "" {
		f, err := os.Open(name)
		if err != nil {
			logger.Error("Failed to open input", "file", name, "error", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	out := bufio.NewWriter(os.Stdout)
	if err := run(in, out, opts, *trace, *dump); err != nil {
		logger.Error("Failed to parse", "error", err)
		os.Exit(1)
	}
	if err := out.Flush(); err != nil {
		logger.Error("Failed to write output", "error", err)
		os.Exit(1)
	}
}

func run(r io.Reader, w io.Writer, opts tagsoup.Options, trace, dump bool) error {
	tree := sink.NewTree(opts.Tree)
	if trace {
		rec := &sink.Recorder{Next: tree}
		if err := tagsoup.Build(r, rec, opts); err != nil {
			return err
		}
		for _, c := range rec.Calls {
			if _, err := fmt.Fprintln(w, c); err != nil {
				return err
			}
		}
		return nil
	}

	if err := tagsoup.Build(r, tree, opts); err != nil {
		return err
	}
	if dump {
		return sink.Dump(w, tree.Document())
	}
	if err := html.Render(w, tree.Document()); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w)
	return err
}
