package dtd

import (
	"io"
	"log/slog"
)

// DefaultMaxDepth is the stack depth at which generic containers start to
// be closed instead of nested.
const DefaultMaxDepth = 200

// Command selects how the document is built.
type Command int

const (
	// ViewNormal builds a complete document.
	ViewNormal Command = iota
	// ViewFragment builds a fragment. Containment rules are suspended: every
	// start tag opens where it appears.
	ViewFragment
)

// Options configures a DTD.
type Options struct {
	Command Command

	// PlainText wraps the document in a <pre> element.
	PlainText bool

	// MaxDepth bounds the open-element stack. Font-style tags are dropped
	// past 80% of it and phrase tags past 90%. Zero means DefaultMaxDepth.
	MaxDepth int

	// Comments adds comments, CDATA sections and markup declarations to the
	// sink as leaves. By default they are dropped.
	Comments bool

	// Logger receives recovery events at debug level.
	Logger *slog.Logger
}

func (o Options) maxDepth() int {
	if o.MaxDepth > 0 {
		return o.MaxDepth
	}
	return DefaultMaxDepth
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Flags is the state of a DTD that is not captured by its stack.
type Flags struct {
	HasOpenHead     bool
	HasOpenBody     bool
	HasOpenForm     bool
	HasExplicitHead bool
	HadBody         bool
	HadFrameset     bool

	ResidualStyle      bool // residual-style handling enabled
	AlternateContent   bool // inside noembed, noscript, iframe or noframes
	MisplacedContent   bool // misplaced content is pending
	InMisplacedContent bool // misplaced content is being replayed
	StopParsing        bool

	ScriptEnabled bool
	FramesEnabled bool
}

// HasMainContainer reports whether a body or a frameset was opened.
func (f Flags) HasMainContainer() bool {
	return f.HadBody || f.HadFrameset
}
