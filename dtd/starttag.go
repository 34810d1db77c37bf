package dtd

import (
	"errors"
	"slices"

	"github.com/dpotapov/go-tagsoup/grammar"
	"github.com/dpotapov/go-tagsoup/token"
)

// Parents under which a hidden input may stay where it appears.
var tableElements = []token.Tag{
	token.Table, token.Thead, token.Tbody, token.Tr, token.Tfoot,
}

// handleStartToken handles start tags and the text-like tokens that are
// placed the same way.
func (d *DTD) handleStartToken(tok *token.Token) error {
	n, err := d.alloc.NewNode(tok)
	if err != nil {
		return err
	}
	defer d.alloc.ReleaseNode(n)

	parent := d.body.Last()
	if tok.AttrCount > 0 {
		if err := d.collectAttributes(n, tok.AttrCount); err != nil {
			if errors.Is(err, errMissingAttributes) {
				d.log.Debug("Dropped start tag with missing attributes", "tag", tok.Tag, "line", tok.Line)
				return nil
			}
			return err
		}
	}

	err = d.willHandleStartTag(tok.Tag)
	if err == nil {
		err = d.handleStartTag(tok, n, parent)
	}
	if errors.Is(err, errHierarchyTooDeep) {
		d.log.Debug("Dropped start tag past depth limit", "tag", tok.Tag, "depth", d.body.Count())
		return nil
	}
	return err
}

// willHandleStartTag applies the depth guards.
func (d *DTD) willHandleStartTag(tag token.Tag) error {
	depth := d.body.Count()
	limit := d.opts.maxDepth()
	if depth >= d.fontStyleDepth() && d.g.IsMemberOf(tag, grammar.FontStyle) {
		return errHierarchyTooDeep
	}
	if depth >= limit*90/100 && d.g.IsMemberOf(tag, grammar.Phrase) {
		return errHierarchyTooDeep
	}
	if depth > limit && d.g.IsContainer(tag) && !d.g.HasProperty(tag, grammar.HandleStrayTag) {
		d.log.Debug("Closing containers past depth limit", "tag", tag, "depth", depth)
		for ; depth > limit; depth-- {
			if err := d.closeContainersToTag(d.body.Last(), false); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *DTD) fontStyleDepth() int {
	return d.opts.maxDepth() * 80 / 100
}

func (d *DTD) handleStartTag(tok *token.Token, n *token.Node, parent token.Tag) error {
	child := tok.Tag
	handled := false

	if d.g.IsSectionTag(child) {
		switch child {
		case token.HTML:
			if d.body.Count() > 0 {
				if err := d.openContainer(n, child); err != nil {
					return err
				}
				handled = true
			}
		case token.Body:
			if d.flags.HasOpenBody {
				if err := d.openContainer(n, child); err != nil {
					return err
				}
				handled = true
			}
		case token.Head:
			d.flags.HasExplicitHead = true
			if d.flags.HasMainContainer() {
				d.handleOmittedTag(tok, child, parent, n)
				handled = true
			}
		}
	}

	inHead, exclusive := d.g.IsChildOfHead(child)
	switch child {
	case token.Area:
		handled = true
		if d.openMapCount == 0 {
			d.log.Debug("Dropped area outside map", "line", tok.Line)
			break
		}
		if err := d.sinkLeaf(n); err != nil {
			return err
		}
	case token.Image:
		tok.Tag, tok.Text = token.Img, token.Img.String()
		child = token.Img
	case token.Keygen:
		d.log.Debug("Dropped keygen", "line", tok.Line)
		handled = true
	case token.Script:
		exclusive = !d.flags.HadBody
	}

	if !handled {
		if inHead && !exclusive {
			if d.g.HasProperty(child, grammar.PreferBody) {
				inHead = d.flags.HasExplicitHead && d.flags.HasOpenHead
			} else {
				inHead = !d.flags.HasMainContainer()
			}
		}
		var err error
		if inHead {
			err = d.addHeadContent(n)
		} else {
			err = d.handleDefaultStartToken(tok, child, n)
		}
		if err != nil {
			return err
		}
	}

	d.didHandleStartTag(child)
	return nil
}

// didHandleStartTag drops the newline that directly follows <pre> or
// <listing>.
func (d *DTD) didHandleStartTag(tag token.Tag) {
	if d.opts.PlainText || (tag != token.Pre && tag != token.Listing) {
		return
	}
	if t := d.src.PeekToken(); t != nil && t.Kind == token.NewlineKind {
		d.line += t.Newlines
		d.alloc.ReleaseToken(d.src.PopToken())
	}
}

// handleDefaultStartToken walks the stack down until it finds a parent that
// may hold child, dropping, relocating, propagating or closing on the way.
func (d *DTD) handleDefaultStartToken(tok *token.Token, child token.Tag, n *token.Node) error {
	isContainer := d.g.IsContainer(child)

	if d.opts.Command != ViewFragment {
		agrees := true
		contains := false
		index := d.body.Count()
		for !(contains && agrees) {
			index--
			if index < 0 {
				break
			}
			parent := d.body.TagAt(index)
			if parent == token.Userdefined {
				continue
			}

			hiddenInTable := false
			if child == token.Input && slices.Contains(tableElements, parent) {
				v, _ := n.Attr("type")
				hiddenInTable = isHidden(v)
			}
			contains = hiddenInTable || d.canContain(parent, child)
			if !hiddenInTable && d.canOmit(parent, child, contains) {
				d.handleOmittedTag(tok, child, parent, n)
				return nil
			}

			if !contains && d.isBlockElement(child) && d.isInlineElement(parent) && child != token.Li {
				if top := d.body.PeekNode(); top != nil && top.Token != nil && top.Token.WellFormed {
					contains = true
					agrees = true
					continue
				}
			}

			agrees = true
			if contains {
				if anc := d.g.RequiredAncestor(child); anc != token.Unknown {
					agrees = d.hasOpenContainer(anc)
				}
				if agrees && isContainer && parent != child && d.g.HasProperty(child, grammar.VerifyHierarchy) {
					if ci := d.g.IndexOfChildOrSynonym(d.body, child); ci > -1 && ci < index {
						agrees = d.canBeContained(child)
					}
				}
			}
			if contains && agrees {
				break
			}

			if !d.canPropagate(parent, child, contains) {
				if !isContainer && contains {
					continue
				}
				switch {
				case !agrees && !d.g.CanAutoCloseTag(d.body, index, child):
					d.log.Debug("Dropped start tag that cannot close its way in", "tag", child, "line", tok.Line)
					return nil
				case d.body.TopIndex > 0 && index <= d.body.TopIndex:
					contains = true
				default:
					if err := d.closeContainersTo(index, child, true); err != nil {
						return err
					}
				}
				continue
			}

			before := d.body.Count()
			if err := d.createContextStackFor(parent, child); err != nil {
				return err
			}
			if d.body.Count() == before {
				d.log.Debug("Dropped start tag, implied parents did not open", "tag", child, "line", tok.Line)
				return nil
			}
			index = d.body.Count()
		}
	}

	if isContainer {
		return d.openContainer(n, child)
	}
	return d.addLeaf(n)
}

// canBeContained reports whether child may nest under the already open
// element of the same kind.
func (d *DTD) canBeContained(child token.Tag) bool {
	count := d.body.Count()
	if count == 0 {
		return true
	}
	roots := d.g.RootTags(child)
	if len(roots) == 0 {
		return true
	}
	rootIndex := grammar.LastOf(d.body, roots)
	spIndex := -1
	if sp := d.g.SpecialParents(child); len(sp) > 0 {
		spIndex = grammar.LastOf(d.body, sp)
	}
	childIndex := d.g.IndexOfChildOrSynonym(d.body, child)
	target := max(rootIndex, spIndex)
	if target == count-1 || (target == childIndex && d.g.CanContainSelf(child)) {
		return true
	}
	for i := count - 1; childIndex < i; i-- {
		p := d.body.TagAt(i)
		if d.g.IsMemberOf(p, grammar.BlockEntity|grammar.FormControl) {
			if !d.g.HasProperty(p, grammar.OptionalEndTag) {
				return true
			}
		} else if p == token.Td || p == token.Th {
			return true
		}
	}
	return false
}

// handleOmittedTag queues a start tag its parent refused when the parent
// watches for bad content or saves misplaced tags. Otherwise the tag is
// dropped.
func (d *DTD) handleOmittedTag(tok *token.Token, child, parent token.Tag, n *token.Node) {
	push := false
	if d.g.HasProperty(parent, grammar.BadContentWatch) && !d.g.IsWhitespaceTag(child) {
		if d.flags.HasOpenHead {
			return
		}
		for i := d.body.Count() - 1; i >= 0; i-- {
			if !d.g.HasProperty(d.body.TagAt(i), grammar.BadContentWatch) {
				d.body.TopIndex = i
				break
			}
		}
		if d.body.TopIndex > -1 {
			push = true
			d.flags.MisplacedContent = true
		}
	}
	if child != parent && d.g.HasProperty(parent, grammar.SaveMisplaced) {
		push = true
	}
	if !push {
		d.log.Debug("Dropped omitted tag", "tag", child, "parent", parent, "line", tok.Line)
		return
	}

	d.log.Debug("Queued misplaced content", "tag", child, "parent", parent, "index", d.body.TopIndex)
	tok.Hold()
	d.pushMisplaced(tok)
	tok.AttrCount = d.pushMisplacedAttributes(n)
}

// createContextStackFor opens the chain of implied parents between parent
// and child.
func (d *DTD) createContextStackFor(parent, child token.Tag) error {
	d.scratch = d.scratch[:0]
	ok := d.forwardPropagate(parent, child)
	if !ok {
		switch {
		case parent == token.Unknown:
			ok = d.backwardPropagate(token.HTML, child)
		case parent != child:
			ok = d.backwardPropagate(parent, child)
		}
	}
	if !ok || len(d.scratch) < 2 {
		return nil
	}
	chain := slices.Clone(d.scratch[:len(d.scratch)-1])
	slices.Reverse(chain)
	d.log.Debug("Opening implied parents", "tag", child, "parents", chain)
	for _, tag := range chain {
		t, err := d.alloc.NewToken(token.Start, tag, "")
		if err != nil {
			return err
		}
		if err := d.HandleToken(t); err != nil {
			return err
		}
	}
	return nil
}
