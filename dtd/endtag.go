package dtd

import (
	"slices"

	"github.com/dpotapov/go-tagsoup/grammar"
	"github.com/dpotapov/go-tagsoup/token"
)

func (d *DTD) handleEndToken(tok *token.Token) error {
	child := tok.Tag

	// Attributes of end tags are dropped.
	_ = d.collectAttributes(nil, tok.AttrCount)
	tok.AttrCount = 0

	switch child {
	case token.Link, token.Meta:
		return nil

	case token.Head:
		d.stripWhitespace()
		var err error
		if d.body.LastOf(token.Head) >= 0 {
			err = d.closeContainersToTag(token.Head, false)
		}
		d.flags.HasExplicitHead = false
		return err

	case token.Form:
		return d.closeContainer(token.Form, false)

	case token.Br:
		if d.mode != grammar.Quirks {
			return nil
		}
		br, err := d.alloc.NewToken(token.Start, token.Br, "")
		if err != nil {
			return err
		}
		return d.HandleToken(br)

	case token.Body, token.HTML:
		d.stripWhitespace()
		return nil

	case token.Script:
		// Nothing can be open between a script and its end tag.
		if d.body.Last() != token.Script {
			return nil
		}
		n, styles := d.body.Pop()
		styles.release(d.alloc)
		d.alloc.ReleaseNode(n)
		return d.closeContainer(token.Script, tok.InError)
	}

	if d.g.CanOmitEndTag(child) {
		d.popStyle(child)
		return nil
	}

	parent := d.body.Last()
	if d.g.IsResidualStyleTag(child) {
		if err := d.openTransientStyles(child, true); err != nil {
			return err
		}
	}

	if d.g.IndexOfChildOrSynonym(d.body, child) < 0 {
		// A stray style end tag removes the pending style unless a table
		// part is in the way.
		if !slices.Contains(barrierTags, parent) && d.g.IsResidualStyleTag(child) {
			d.body.RemoveStyle(child, d.alloc)
		}
		if d.g.HasProperty(child, grammar.HandleStrayTag) && d.mode == grammar.Quirks {
			return d.handleStrayEndTag(tok, parent)
		}
		d.log.Debug("Dropped stray end tag", "tag", child, "line", tok.Line)
		return nil
	}

	if target := d.findAutoCloseTargetForEndTag(child); target != token.Unknown {
		return d.closeContainersToTag(target, false)
	}
	d.log.Debug("Dropped gated end tag", "tag", child, "line", tok.Line)
	return nil
}

// handleStrayEndTag turns an end tag without a matching start tag into an
// empty element, so </p> alone still breaks the line.
func (d *DTD) handleStrayEndTag(tok *token.Token, parent token.Tag) error {
	child := tok.Tag
	if d.canOmit(parent, child, d.canContain(parent, child)) {
		d.log.Debug("Dropped stray end tag", "tag", child, "parent", parent, "line", tok.Line)
		return nil
	}
	start, err := d.alloc.NewToken(token.Start, child, "")
	if err != nil {
		return err
	}
	d.log.Debug("Opening start tag for stray end tag", "tag", child, "line", tok.Line)
	tok.Hold()
	if !d.flags.InMisplacedContent {
		d.src.PushTokenFront(tok)
		d.src.PushTokenFront(start)
		return nil
	}
	if err := d.HandleToken(start); err != nil {
		d.alloc.ReleaseToken(tok)
		return err
	}
	return d.HandleToken(tok)
}

// stripWhitespace drops the whitespace and newline tokens that follow.
func (d *DTD) stripWhitespace() {
	for {
		t := d.src.PeekToken()
		if t == nil || (t.Kind != token.WhitespaceKind && t.Kind != token.NewlineKind) {
			return
		}
		t = d.src.PopToken()
		d.line += t.Newlines
		d.alloc.ReleaseToken(t)
	}
}

// findAutoCloseTargetForEndTag returns the open element an end tag of tag
// closes, or token.Unknown when the end tag is gated.
func (d *DTD) findAutoCloseTargetForEndTag(tag token.Tag) token.Tag {
	if !d.g.IsContainer(tag) {
		return token.Unknown
	}
	ci := d.g.IndexOfChildOrSynonym(d.body, tag)
	if ci < 0 {
		return token.Unknown
	}
	if d.body.Last() == d.body.TagAt(ci) {
		return d.body.TagAt(ci)
	}
	if !d.g.IsBlockCloser(tag) {
		return d.g.CloseTargetForEndTag(d.body, tag, ci, d.mode)
	}

	closeTags := d.g.AutoCloseEndTags(tag)
	roots := d.g.EndRootTags(tag)
	switch {
	case len(closeTags) > 0:
		for i := d.body.Count() - 1; i > ci; i-- {
			next := d.body.TagAt(i)
			if !slices.Contains(closeTags, next) && slices.Contains(roots, next) {
				return token.Unknown
			}
		}
		return d.body.TagAt(ci)
	case len(roots) > 0:
		if d.hasCloseablePeerAboveRoot(roots, tag) {
			return tag
		}
	}
	return token.Unknown
}

// hasCloseablePeerAboveRoot reports whether an element tag is open above
// the top-most of roots.
func (d *DTD) hasCloseablePeerAboveRoot(roots []token.Tag, tag token.Tag) bool {
	childIndex := d.body.LastOf(tag)
	if closeTags := d.g.AutoCloseEndTags(tag); len(closeTags) > 0 {
		childIndex = grammar.LastOf(d.body, closeTags)
	}
	return grammar.LastOf(d.body, roots) <= childIndex
}
