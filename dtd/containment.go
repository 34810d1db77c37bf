package dtd

import (
	"github.com/dpotapov/go-tagsoup/grammar"
	"github.com/dpotapov/go-tagsoup/token"
)

// Upper bound of implied parents opened for one tag.
const maxPropagation = 8

// canContain is the grammar's answer, except that a <nobr> never nests in
// an inline parent while another <nobr> is open.
func (d *DTD) canContain(parent, child token.Tag) bool {
	if child == token.Nobr && d.isInlineElement(parent) && d.hasOpenContainer(token.Nobr) {
		return false
	}
	return d.g.CanContain(parent, child, d.mode)
}

func (d *DTD) isBlockElement(tag token.Tag) bool {
	return !tag.IsPseudo() &&
		d.g.IsMemberOf(tag, grammar.Block|grammar.BlockEntity|grammar.Heading|grammar.Preformatted|grammar.List)
}

func (d *DTD) isInlineElement(tag token.Tag) bool {
	return !tag.IsPseudo() &&
		d.g.IsMemberOf(tag, grammar.InlineEntity|grammar.FontStyle|grammar.Phrase|grammar.Special|grammar.FormControl)
}

// hasOpenContainer answers for form and map from the DTD flags, since
// neither is kept on the stack.
func (d *DTD) hasOpenContainer(tag token.Tag) bool {
	switch tag {
	case token.Form:
		return d.flags.HasOpenForm
	case token.Map:
		return d.openMapCount > 0
	}
	return d.body.HasOpenContainer(tag)
}

// hasOpenContainerIn reports whether one of tags is open above the root.
func (d *DTD) hasOpenContainerIn(tags ...token.Tag) bool {
	for i := d.body.Count() - 1; i > 0; i-- {
		for _, t := range tags {
			if d.body.TagAt(i) == t {
				return true
			}
		}
	}
	return false
}

func (d *DTD) hasOpenTagOfType(g grammar.Group) bool {
	for i := d.body.Count() - 1; i >= 0; i-- {
		if d.g.IsMemberOf(d.body.TagAt(i), g) {
			return true
		}
	}
	return false
}

// canOmit reports whether child should be dropped, or queued, instead of
// opened under parent.
func (d *DTD) canOmit(parent, child token.Tag, contains bool) bool {
	if anc := d.g.ExcludingAncestor(child); anc != token.Unknown && d.hasOpenContainer(anc) {
		return true
	}
	if anc := d.g.RequiredAncestor(child); anc != token.Unknown {
		return !d.hasOpenContainer(anc) && !d.canPropagate(parent, child, contains)
	}
	if d.g.CanExclude(parent, child) {
		return true
	}
	if contains || child == parent {
		return false
	}
	if d.g.IsMemberOf(parent, grammar.BlockEntity) && d.g.IsMemberOf(child, grammar.InlineEntity) {
		return true
	}
	if d.g.HasProperty(parent, grammar.BadContentWatch) {
		return !d.g.HasProperty(child, grammar.BadContentWatch)
	}
	if d.g.HasProperty(parent, grammar.SaveMisplaced) {
		return true
	}
	return parent == token.Body
}

// canPropagate reports whether a short chain of implied parents would let
// parent hold child. The chain is left in d.scratch.
func (d *DTD) canPropagate(parent, child token.Tag, contains bool) bool {
	if parent == child {
		return false
	}
	if !d.g.IsContainer(child) {
		return contains
	}
	d.scratch = d.scratch[:0]
	ok := false
	if !d.g.HasProperty(child, grammar.NoPropagate) && (d.g.IsBlockParent(parent) || d.g.HasSpecialKids(parent)) {
		ok = d.forwardPropagate(parent, child)
		if !ok {
			if parent != token.Unknown {
				ok = d.backwardPropagate(parent, child)
			} else {
				ok = d.backwardPropagate(token.HTML, child)
			}
		}
	}
	if len(d.scratch) == 0 || len(d.scratch)-1 > d.g.PropagateRange(parent) {
		return false
	}
	return ok
}

// forwardPropagate handles the table parts, where the chain goes through a
// cell.
func (d *DTD) forwardPropagate(parent, child token.Tag) bool {
	switch parent {
	case token.Table:
		if child == token.Tr || child == token.Td {
			return d.backwardPropagate(parent, child)
		}
		return d.propagateThroughCell(parent, child)
	case token.Tr:
		return d.propagateThroughCell(parent, child)
	}
	return false
}

func (d *DTD) propagateThroughCell(parent, child token.Tag) bool {
	if !d.canContain(token.Td, child) {
		return false
	}
	d.scratch = append(d.scratch, token.Td)
	return d.backwardPropagate(parent, token.Td)
}

// backwardPropagate follows the first root tag of child upwards until it
// reaches parent.
func (d *DTD) backwardPropagate(parent, child token.Tag) bool {
	p := parent
	for i := 0; i < maxPropagation; i++ {
		roots := d.g.RootTags(child)
		if len(roots) == 0 {
			break
		}
		p = roots[0]
		child = p
		d.scratch = append(d.scratch, p)
		if p == token.Unknown || p == parent {
			break
		}
	}
	return p == parent
}
