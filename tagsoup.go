// Package tagsoup builds golang.org/x/net/html documents out of malformed
// HTML the way legacy browser engines did: residual styles are carried
// across block boundaries, content misplaced inside tables is moved in front
// of them, and stray end tags are repaired instead of dropped.
//
// Parse wires the three stages together. Use the scanner, dtd and sink
// packages directly for incremental parsing or custom sinks.
package tagsoup

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/net/html"

	"github.com/dpotapov/go-tagsoup/dtd"
	"github.com/dpotapov/go-tagsoup/grammar"
	"github.com/dpotapov/go-tagsoup/scanner"
	"github.com/dpotapov/go-tagsoup/sink"
	"github.com/dpotapov/go-tagsoup/token"
)

// Options configures ParseWithOptions.
type Options struct {
	// Mode is the compatibility mode. The zero value is quirks mode.
	Mode grammar.Mode

	DTD dtd.Options

	// Grammar overrides the built-in HTML table.
	Grammar grammar.Grammar

	Tree sink.TreeOptions

	// Limit, when positive, caps the number of live tokens and nodes.
	Limit int

	// Logger is passed to the scanner and, unless DTD.Logger is set, to the
	// tree builder.
	Logger *slog.Logger
}

// Parse returns the document tree for the HTML read from r, built in quirks
// mode with scripting and frames enabled.
func Parse(r io.Reader) (*html.Node, error) {
	return ParseWithOptions(r, Options{})
}

// ParseString is Parse over a string.
func ParseString(s string) (*html.Node, error) {
	return Parse(strings.NewReader(s))
}

// ParseWithOptions is like Parse, with options.
func ParseWithOptions(r io.Reader, opts Options) (*html.Node, error) {
	tree := sink.NewTree(opts.Tree)
	if err := Build(r, tree, opts); err != nil {
		return nil, err
	}
	return tree.Document(), nil
}

// Build tokenizes the markup read from r and feeds it to s. Interruptions
// requested by s are resumed until the input is drained.
func Build(r io.Reader, s dtd.Sink, opts Options) error {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	dopts := opts.DTD
	if dopts.Logger == nil {
		dopts.Logger = logger
	}

	src := scanner.NewSource(&token.Allocator{Limit: opts.Limit})
	defer src.Release()

	err := scanner.Tokenize(r, src, scanner.Options{
		Scripting: s.IsEnabled(token.Script),
		Grammar:   opts.Grammar,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("tokenize: %w", err)
	}

	d := dtd.New(opts.Grammar, dopts)
	if err := d.WillBuildModel(opts.Mode, s); err != nil {
		return err
	}
	interrupts := 0
	err = d.BuildModel(src)
	for errors.Is(err, dtd.ErrInterrupted) {
		interrupts++
		err = d.BuildModel(src)
	}
	if derr := d.DidBuildModel(err); err == nil {
		err = derr
	}
	if err != nil {
		logger.Error("Failed to build document", "line", d.Line(), "error", err)
		return err
	}
	logger.Debug("Built document", "mode", opts.Mode, "lines", d.Line(), "interrupts", interrupts)
	return nil
}
