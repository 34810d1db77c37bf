// Package dtd builds a document tree out of a stream of HTML tokens that may
// be arbitrarily malformed.
//
// A DTD keeps a stack of open elements and a handful of flags, and for each
// token decides whether to open, close, relocate, propagate or drop elements
// so that the calls it makes on its Sink always describe a balanced tree.
// The containment rules come from a grammar.Grammar.
package dtd

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/net/html/atom"

	"github.com/dpotapov/go-tagsoup/grammar"
	"github.com/dpotapov/go-tagsoup/token"
)

// Tags that flush pending misplaced content when they show up.
var legalElements = []token.Tag{
	token.Table, token.Thead, token.Tbody, token.Tr, token.Td, token.Th,
	token.Caption, token.Tag(atom.Col), token.Tag(atom.Colgroup), token.Tfoot,
}

// Tags that stop a stray residual-style end tag from reaching pending
// styles.
var barrierTags = []token.Tag{
	token.Thead, token.Tbody, token.Tfoot, token.Table,
}

// A DTD is the tree-building state machine. It is not safe for concurrent
// use; a parse runs on the goroutine that calls BuildModel.
type DTD struct {
	g    grammar.Grammar
	opts Options
	log  *slog.Logger

	mode  grammar.Mode
	flags Flags
	sink  Sink
	src   TokenSource
	alloc *token.Allocator

	body      *Context
	temp      *Context
	misplaced Queue
	scratch   []token.Tag

	openMapCount     int
	headContainerPos int
	line             int
	stopErr          error
}

// New returns a DTD that builds according to g.
func New(g grammar.Grammar, opts Options) *DTD {
	if g == nil {
		g = grammar.Default()
	}
	return &DTD{
		g:                g,
		opts:             opts,
		log:              opts.logger(),
		alloc:            &token.Allocator{},
		body:             newContext(),
		temp:             newContext(),
		headContainerPos: -1,
		line:             1,
	}
}

// WillBuildModel prepares the DTD for a new document built on s.
func (d *DTD) WillBuildModel(mode grammar.Mode, s Sink) error {
	d.mode = mode
	d.sink = s
	d.body.release(d.alloc)
	d.temp.release(d.alloc)
	d.misplaced.release(d.alloc)
	d.body.TopIndex = -1
	d.openMapCount = 0
	d.headContainerPos = -1
	d.line = 1
	d.stopErr = nil
	d.flags = Flags{ResidualStyle: true}
	if s == nil {
		return d.stop(errors.New("nil sink"))
	}
	d.flags.ScriptEnabled = s.IsEnabled(token.Script)
	d.flags.FramesEnabled = s.IsEnabled(token.Frameset)
	d.log.Debug("Will build model", "mode", mode, "scripting", d.flags.ScriptEnabled, "frames", d.flags.FramesEnabled)
	return nil
}

// BuildModel consumes tokens from src until it is drained. It returns
// ErrInterrupted when the sink asked to yield; calling BuildModel again with
// the same source resumes the parse. Once the parse stopped every call
// returns an error wrapping ErrStopParsing.
func (d *DTD) BuildModel(src TokenSource) error {
	if src == nil {
		return nil
	}
	if d.flags.StopParsing {
		return d.stopError()
	}
	if d.sink == nil {
		return d.stop(errors.New("no sink, call WillBuildModel first"))
	}
	d.src = src
	d.alloc = src.Allocator()

	if d.body.Count() == 0 {
		if d.opts.PlainText {
			if err := d.pushImplicit(token.Pre); err != nil {
				return d.stop(err)
			}
		}
		if !d.flags.FramesEnabled {
			if err := d.pushImplicit(token.Body); err != nil {
				return d.stop(err)
			}
		}
		if first := src.TokenAt(0); first == nil || first.Kind != token.Start || first.Tag != token.HTML {
			if err := d.pushImplicit(token.HTML); err != nil {
				return d.stop(err)
			}
		}
	}

	for {
		if d.flags.StopParsing {
			return d.stopError()
		}
		tok := src.PopToken()
		if tok == nil {
			return nil
		}
		if err := d.HandleToken(tok); err != nil {
			return err
		}
		if err := d.sink.DidProcessAToken(); err != nil {
			if errors.Is(err, ErrInterrupted) {
				d.log.Debug("Sink interrupted the parse", "line", d.line)
				return ErrInterrupted
			}
			return d.stop(fmt.Errorf("did process token: %w", err))
		}
	}
}

func (d *DTD) pushImplicit(tag token.Tag) error {
	t, err := d.alloc.NewToken(token.Start, tag, "")
	if err != nil {
		return err
	}
	d.src.PushTokenFront(t)
	return nil
}

// DidBuildModel finishes the document. With a nil buildErr it opens a body
// if none was seen, replays pending misplaced content and closes every open
// element. Otherwise it only releases the remaining state.
func (d *DTD) DidBuildModel(buildErr error) error {
	if d.sink == nil {
		return d.stopError()
	}
	defer func() {
		d.misplaced.release(d.alloc)
		d.body.release(d.alloc)
		d.temp.release(d.alloc)
	}()

	if buildErr != nil || d.flags.StopParsing {
		d.log.Debug("Did build model", "terminated", true)
		return nil
	}

	if !d.flags.HasMainContainer() {
		if err := d.buildNeglectedTarget(token.Body); err != nil {
			return err
		}
	}

	if d.flags.MisplacedContent {
		// Replay may queue more content; keep draining at the saved index.
		index := d.body.TopIndex
		for {
			pending := d.misplaced.Len()
			d.flags.MisplacedContent = false
			if err := d.handleSavedTokens(d.body.TopIndex); err != nil {
				return d.stop(err)
			}
			d.body.TopIndex = index
			// Stop once a pass leaves the queue no shorter, or the replay
			// would never end.
			if !d.flags.MisplacedContent || d.misplaced.Len() >= pending {
				break
			}
		}
		d.body.TopIndex = -1
	}

	d.flags.ResidualStyle = false
	// Forms are not on the stack.
	if d.flags.HasOpenForm {
		if err := d.closeContainer(token.Form, false); err != nil {
			return d.stop(err)
		}
	}
	for d.body.Count() > 0 {
		if err := d.closeContainersToTag(d.body.Last(), false); err != nil {
			return d.stop(err)
		}
	}
	d.log.Debug("Did build model", "terminated", false, "lines", d.line)
	return nil
}

// buildNeglectedTarget feeds a synthesized start tag through the loop.
func (d *DTD) buildNeglectedTarget(tag token.Tag) error {
	if d.src == nil {
		return nil
	}
	t, err := d.alloc.NewToken(token.Start, tag, "")
	if err != nil {
		return d.stop(err)
	}
	d.src.PushTokenFront(t)
	for {
		err := d.BuildModel(d.src)
		if !errors.Is(err, ErrInterrupted) {
			return err
		}
	}
}

// Terminate stops the parse. BuildModel returns at the next token.
func (d *DTD) Terminate() {
	d.flags.StopParsing = true
}

// Flags returns the current state flags.
func (d *DTD) Flags() Flags {
	return d.flags
}

// Context returns the open-element stack. It must not be modified.
func (d *DTD) Context() *Context {
	return d.body
}

// Misplaced returns the number of tokens waiting to be relocated.
func (d *DTD) Misplaced() int {
	return d.misplaced.Len()
}

// Line returns the current line number.
func (d *DTD) Line() int {
	return d.line
}

func (d *DTD) stop(err error) error {
	d.flags.StopParsing = true
	if !errors.Is(err, ErrStopParsing) {
		err = fmt.Errorf("%w: %w", ErrStopParsing, err)
		d.log.Error("Stopped parsing", "line", d.line, "error", err)
	}
	if d.stopErr == nil {
		d.stopErr = err
	}
	return err
}

func (d *DTD) stopError() error {
	if d.stopErr != nil {
		return d.stopErr
	}
	return ErrStopParsing
}

// HandleToken processes one token. The DTD takes over the caller's
// reference to tok.
func (d *DTD) HandleToken(tok *token.Token) error {
	if tok == nil {
		return nil
	}
	if d.flags.StopParsing {
		d.alloc.ReleaseToken(tok)
		return d.stopError()
	}
	tag := tok.Tag
	tok.Line = d.line
	d.line += tok.Newlines

	if d.flags.MisplacedContent {
		if d.flags.InMisplacedContent {
			d.pushMisplaced(tok)
			return nil
		}
		parent := d.body.Last()
		if slices.Contains(legalElements, tag) ||
			(d.g.CanContain(parent, tag, d.mode) && (!d.g.HasProperty(tag, grammar.LegalOpen) || tag == token.Script)) ||
			(tag == token.Input && tok.Kind == token.Start && slices.Contains(legalElements, parent) && d.isHiddenInput(tok)) {
			d.flags.MisplacedContent = false
			if err := d.handleSavedTokens(d.body.TopIndex); err != nil {
				d.alloc.ReleaseToken(tok)
				return d.stop(err)
			}
			d.body.TopIndex = -1
		} else {
			d.pushMisplaced(tok)
			return nil
		}
	}

	switch tag {
	case token.HTML, token.Noframes, token.Script, token.Doctype, token.Instruction:
	default:
		if !d.g.SectionContains(token.HTML, tag) && !d.flags.HasMainContainer() && !d.flags.AlternateContent {
			inHead, exclusive := d.g.IsChildOfHead(tag)
			if inHead && !exclusive && !d.g.HasProperty(tag, grammar.PreferHead) {
				if d.misplaced.Len() > 0 || (d.g.HasProperty(tag, grammar.PreferBody) && !d.flags.HasExplicitHead) {
					inHead = false
				}
			}
			if !inHead {
				top := d.body.Last()
				if top == token.HTML || top == token.Head || !d.g.CanContain(top, tag, d.mode) {
					return d.deferUntilBody(tok)
				}
			}
		}
	}

	var err error
	switch tok.Kind {
	case token.TextKind, token.Start, token.WhitespaceKind, token.NewlineKind:
		err = d.handleStartToken(tok)
	case token.End:
		err = d.handleEndToken(tok)
	case token.CommentKind, token.CDATAKind, token.MarkupDeclKind:
		err = d.handleCommentToken(tok)
	case token.EntityKind:
		err = d.handleEntityToken(tok)
	case token.DoctypeKind:
		err = d.handleDoctypeToken(tok)
	case token.Attribute:
		d.log.Debug("Dropped stray attribute", "key", tok.Key, "line", tok.Line)
	}
	d.alloc.ReleaseToken(tok)
	if err != nil {
		return d.stop(err)
	}
	return nil
}

// deferUntilBody queues content that arrived before the body and opens the
// body when the content needs one.
func (d *DTD) deferUntilBody(tok *token.Token) error {
	tag := tok.Tag
	requiresBody := d.g.RequiresBody(tag, d.attrLookup(tok))
	d.pushMisplaced(tok)
	d.log.Debug("Queued content before body", "tag", tag, "line", tok.Line)

	if d.isAlternateTag(tag) && tok.Kind == token.Start {
		for {
			t := d.src.PopToken()
			if t == nil {
				break
			}
			d.pushMisplaced(t)
			if t.Kind == token.End && t.Tag == tag {
				break
			}
		}
	}
	if !requiresBody {
		return nil
	}
	b, err := d.alloc.NewToken(token.Start, token.Body, "")
	if err != nil {
		return d.stop(err)
	}
	return d.HandleToken(b)
}

// isAlternateTag reports whether tag holds content shown only when a
// feature is off.
func (d *DTD) isAlternateTag(tag token.Tag) bool {
	switch tag {
	case token.Noembed:
		return true
	case token.Noscript:
		return d.flags.ScriptEnabled
	case token.Iframe, token.Noframes:
		return d.flags.FramesEnabled
	}
	return false
}

// attrLookup reads the attributes of tok while they are still pending in the
// source.
func (d *DTD) attrLookup(tok *token.Token) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if d.src == nil {
			return "", false
		}
		n := min(tok.AttrCount, d.src.Count())
		for i := 0; i < n; i++ {
			a := d.src.TokenAt(i)
			if a == nil || a.Kind != token.Attribute {
				break
			}
			if strings.EqualFold(a.Key, key) {
				return a.Value(), true
			}
		}
		return "", false
	}
}

func (d *DTD) isHiddenInput(tok *token.Token) bool {
	v, ok := d.attrLookup(tok)("type")
	return ok && isHidden(v)
}

func isHidden(v string) bool {
	return strings.EqualFold(strings.Trim(v, "\n\r\t\b"), "hidden")
}

func (d *DTD) pushMisplaced(tok *token.Token) {
	// Newlines were counted when the token was first seen.
	tok.Newlines = 0
	d.misplaced.Push(tok)
}

// pushMisplacedAttributes moves the attributes of n into the queue, right
// after their start token.
func (d *DTD) pushMisplacedAttributes(n *token.Node) int {
	pushed := 0
	for a := n.PopAttributeTokenFront(); a != nil; a = n.PopAttributeTokenFront() {
		d.pushMisplaced(a)
		pushed++
	}
	return pushed
}

// collectAttributes moves the next count attribute tokens of the source into
// n. A nil n discards them.
func (d *DTD) collectAttributes(n *token.Node, count int) error {
	if count > d.src.Count() {
		return errMissingAttributes
	}
	for i := 0; i < count; i++ {
		t := d.src.PopToken()
		if t == nil {
			break
		}
		if t.Kind != token.Attribute {
			d.src.PushTokenFront(t)
			break
		}
		d.line += t.Newlines
		if n == nil || t.Key == "" || !n.AddAttribute(t) {
			d.alloc.ReleaseToken(t)
		}
	}
	return nil
}

var errMissingAttributes = errors.New("dtd: missing attribute tokens")

func (d *DTD) sinkOpen(n *token.Node) error {
	if err := d.sink.OpenContainer(n); err != nil {
		return fmt.Errorf("open %s: %w", n.Tag(), err)
	}
	return nil
}

func (d *DTD) sinkClose(tag token.Tag, malformed bool) error {
	var err error
	if malformed {
		err = d.sink.CloseMalformedContainer(tag)
	} else {
		err = d.sink.CloseContainer(tag)
	}
	if err != nil {
		return fmt.Errorf("close %s: %w", tag, err)
	}
	return nil
}

func (d *DTD) sinkLeaf(n *token.Node) error {
	if err := d.sink.AddLeaf(n); err != nil {
		return fmt.Errorf("add %s: %w", n.Tag(), err)
	}
	return nil
}
