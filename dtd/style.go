package dtd

import (
	"github.com/dpotapov/go-tagsoup/grammar"
	"github.com/dpotapov/go-tagsoup/token"
)

// Attribute set on residual styles reopened inside a heading, so that
// renderers can let the heading size win.
const headingStyleAttr = "_rs-heading"

// openTransientStyles reopens the residual styles pending below the top of
// the stack that may contain child. With closeInvalid set, pending styles
// that may not contain child are discarded.
func (d *DTD) openTransientStyles(child token.Tag, closeInvalid bool) error {
	if !d.flags.ResidualStyle || child == token.Newline || d.flags.HasOpenHead {
		return nil
	}
	if !d.canContain(token.Font, child) {
		return nil
	}

	count := d.body.Count()
	level := count
	for level > 1 {
		level--
		if d.g.HasProperty(d.body.TagAt(level), grammar.NoStyleLeaksIn) {
			break
		}
	}

	d.flags.ResidualStyle = false
	defer func() { d.flags.ResidualStyle = true }()

	for ; level < count; level++ {
		styles := d.body.StylesAt(level)
		if styles == nil {
			continue
		}
		if count+styles.Count() >= d.fontStyleDepth() {
			break
		}
		inHeading := d.hasOpenTagOfType(grammar.Heading)
		for i := 0; i < styles.Count(); i++ {
			n := styles.NodeAt(i)
			if n.UseCount != 1 {
				continue
			}
			tag := n.Tag()
			if d.g.CanContain(tag, child, d.mode) {
				if err := d.reopenStyle(n, tag, inHeading); err != nil {
					return err
				}
			} else if closeInvalid {
				d.alloc.ReleaseNode(d.body.removeStyleAt(level, i))
				i--
			}
		}
	}
	return nil
}

func (d *DTD) reopenStyle(n *token.Node, tag token.Tag, inHeading bool) error {
	if !inHeading {
		return d.openContainer(n, tag)
	}
	attr, err := d.alloc.NewAttribute(headingStyleAttr, "")
	if err != nil {
		return err
	}
	if !n.AddAttribute(attr) {
		d.alloc.ReleaseToken(attr)
		return d.openContainer(n, tag)
	}
	err = d.openContainer(n, tag)
	d.alloc.ReleaseToken(n.PopAttributeToken())
	return err
}

// popStyle drops the most recent pending style of the given tag.
func (d *DTD) popStyle(tag token.Tag) {
	if d.flags.ResidualStyle && d.g.IsResidualStyleTag(tag) {
		d.alloc.ReleaseNode(d.body.PopStyle(tag))
	}
}

// closeResidualStyleTags closes the run of residual styles on top of the
// stack.
func (d *DTD) closeResidualStyleTags(tag token.Tag, byStart bool) error {
	count := d.body.Count()
	pos := count
	for pos > 0 && d.g.IsResidualStyleTag(d.body.TagAt(pos-1)) {
		pos--
	}
	if pos < count {
		return d.closeContainersTo(pos, tag, byStart)
	}
	return nil
}

// closeContainersToTag closes the top-most open element with the given tag
// and everything above it. A residual style or heading closes the open
// element of the same kind; otherwise the element's first root is searched.
func (d *DTD) closeContainersToTag(tag token.Tag, byStart bool) error {
	if pos := d.body.LastOf(tag); pos >= 0 {
		return d.closeContainersTo(pos, tag, byStart)
	}

	top := d.body.Last()
	if (d.g.IsResidualStyleTag(tag) && d.g.IsResidualStyleTag(top)) ||
		(d.g.IsMemberOf(tag, grammar.Heading) && d.g.IsMemberOf(top, grammar.Heading)) {
		tag = top
		if pos := d.body.LastOf(tag); pos >= 0 {
			return d.closeContainersTo(pos, tag, byStart)
		}
	}

	parent := token.Unknown
	if roots := d.g.RootTags(tag); len(roots) > 0 {
		parent = roots[0]
	}
	if pos := d.body.LastOf(parent); pos >= 0 {
		return d.closeContainersTo(pos+1, tag, byStart)
	}
	return nil
}

// closeContainersTo closes the entries from the top of the stack down to
// index. Residual styles closed on the way are kept pending at the level
// below so that they reopen around later content.
func (d *DTD) closeContainersTo(index int, target token.Tag, byStart bool) error {
	if index < 0 || index >= d.body.Count() {
		return nil
	}
	for d.body.Count() > index {
		tag := d.body.Last()
		n, childStyles := d.body.Pop()
		if err := d.closeContainer(tag, false); err != nil {
			childStyles.release(d.alloc)
			d.alloc.ReleaseNode(n)
			return err
		}

		noLeak := d.g.HasProperty(tag, grammar.NoStyleLeaksOut) ||
			d.g.HasProperty(target, grammar.NoStyleLeaksOut)

		switch {
		case d.g.IsResidualStyleTag(tag) && !d.flags.AlternateContent && n != nil:
			d.leakStyle(n, tag, target, childStyles, byStart, noLeak)
		case childStyles != nil && noLeak:
			childStyles.release(d.alloc)
		default:
			d.body.PushStyles(childStyles, d.alloc)
		}
		d.alloc.ReleaseNode(n)
	}
	return nil
}

// leakStyle decides whether the residual style n, just closed, stays
// pending at the new top of the stack.
func (d *DTD) leakStyle(n *token.Node, tag, target token.Tag, childStyles *EntryStack, byStart, noLeak bool) {
	if byStart {
		if n.UseCount == 0 {
			if tag != target {
				if childStyles != nil {
					childStyles.PushFront(n)
				} else {
					d.body.PushStyle(n)
				}
			}
		} else if tag == target && !d.g.CanContainSelf(target) {
			// <a><a>: the second one does not bring the first back.
			d.alloc.ReleaseNode(d.body.PopStyle(tag))
		}
		d.body.PushStyles(childStyles, d.alloc)
		return
	}

	if childStyles != nil {
		if noLeak {
			childStyles.release(d.alloc)
			return
		}
		if tag != target {
			if n.UseCount == 0 {
				childStyles.PushFront(n)
			}
		} else if n.UseCount == 1 {
			d.body.RemoveStyle(tag, d.alloc)
		}
		d.body.PushStyles(childStyles, d.alloc)
		return
	}

	if n.UseCount == 0 {
		if tag != target {
			d.body.PushStyle(n)
		}
	} else if tag == target && d.g.IsResidualStyleTag(target) {
		d.body.RemoveStyle(tag, d.alloc)
	}
}
