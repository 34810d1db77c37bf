package dtd

import (
	"fmt"

	"github.com/dpotapov/go-tagsoup/token"
)

// openContainer opens n on the sink and pushes it on the stack. The
// singletons (html, head, body, form) are opened at most once.
func (d *DTD) openContainer(n *token.Node, tag token.Tag) error {
	rs := d.g.IsResidualStyleTag(tag)
	if rs || tag == token.Li {
		// An <li> reopens pending styles so the marker gets them too, but
		// never discards them.
		if err := d.openTransientStyles(tag, tag != token.Li); err != nil {
			return err
		}
	}

	switch tag {
	case token.HTML:
		return d.openHTML(n)

	case token.Head:
		if d.flags.HasOpenHead {
			return nil
		}
		d.flags.HasOpenHead = true

	case token.Body:
		if !d.g.IsSpecialParent(tag, d.body.Last()) {
			d.flags.HasOpenBody = true
			return d.openBody(n)
		}

	case token.Map:
		d.openMapCount++

	case token.Form:
		// Nested forms are dropped. The form is not kept on the stack.
		if d.flags.HasOpenForm {
			d.log.Debug("Dropped nested form", "line", n.Token.Line)
			return nil
		}
		d.flags.HasOpenForm = true
		return d.sinkOpen(n)

	case token.Frameset:
		if err := d.closeContainer(token.Head, false); err != nil {
			return err
		}
		d.flags.HadFrameset = true

	case token.Noembed:
		d.flags.AlternateContent = true

	case token.Noscript:
		if d.flags.ScriptEnabled {
			d.flags.AlternateContent = true
		}

	case token.Iframe, token.Noframes:
		if d.flags.FramesEnabled {
			d.flags.AlternateContent = true
		}
	}

	if err := d.sinkOpen(n); err != nil {
		return err
	}
	d.body.Push(n, rs)
	return nil
}

func (d *DTD) openHTML(n *token.Node) error {
	if d.body.Count() > 0 {
		return d.mergeAttributes(n)
	}
	if err := d.sinkOpen(n); err != nil {
		return err
	}
	d.body.Push(n, false)
	return nil
}

// openBody closes the head, opens the body and feeds the content that was
// waiting for a body back to the source.
func (d *DTD) openBody(n *token.Node) error {
	if d.flags.HadFrameset {
		return nil
	}
	d.flags.HadBody = true
	if err := d.closeContainer(token.Head, false); err != nil {
		return err
	}
	if d.hasOpenContainer(token.Body) {
		return d.mergeAttributes(n)
	}
	if err := d.sinkOpen(n); err != nil {
		return err
	}
	d.body.Push(n, false)
	if pending := d.misplaced.Drain(); len(pending) > 0 {
		d.log.Debug("Replaying content queued before body", "tokens", len(pending))
		d.src.PrependTokens(pending)
	}
	return nil
}

// mergeAttributes hands the attributes of a repeated html or body start tag
// to the sink. The element itself stays open only once.
func (d *DTD) mergeAttributes(n *token.Node) error {
	as, ok := d.sink.(AttributeSink)
	if !ok || n.AttrCount() == 0 {
		return nil
	}
	if err := as.MergeAttributes(n); err != nil {
		return fmt.Errorf("merge %s: %w", n.Tag(), err)
	}
	return nil
}

// closeContainer closes tag on the sink. The caller has already popped the
// entry, except for the head, which closeContainer pops itself.
func (d *DTD) closeContainer(tag token.Tag, malformed bool) error {
	switch tag {
	case token.Head:
		if !d.flags.HasOpenHead {
			return nil
		}
		d.flags.HasOpenHead = false
		if d.body.Last() == token.Head {
			n, styles := d.body.Pop()
			styles.release(d.alloc)
			d.alloc.ReleaseNode(n)
		}

	case token.Map:
		if d.openMapCount == 0 {
			return nil
		}
		d.openMapCount--

	case token.Form:
		if !d.flags.HasOpenForm {
			return nil
		}
		d.flags.HasOpenForm = false
		// Styles opened inside the form must close before it.
		if err := d.closeResidualStyleTags(token.Form, false); err != nil {
			return err
		}

	case token.Iframe, token.Noembed, token.Noscript, token.Noframes:
		d.flags.AlternateContent = false
	}

	if err := d.sinkClose(tag, malformed); err != nil {
		return err
	}

	// A head element opened after the body closes the head with it.
	if d.body.Count() == d.headContainerPos {
		d.headContainerPos = -1
		return d.closeContainer(token.Head, false)
	}
	return nil
}

func (d *DTD) addLeaf(n *token.Node) error {
	if err := d.openTransientStyles(n.Tag(), true); err != nil {
		return err
	}
	return d.sinkLeaf(n)
}

// addHeadContent adds n to the head, opening the head first if needed.
func (d *DTD) addHeadContent(n *token.Node) error {
	tag := n.Tag()
	if (tag == token.Meta || tag == token.Script) && d.hasOpenContainerIn(token.Noembed, token.Noframes) {
		return nil
	}

	if !d.flags.HasOpenHead {
		if err := d.sink.OpenHead(); err != nil {
			return fmt.Errorf("open head: %w", err)
		}
		d.body.PushTag(token.Head)
		d.flags.HasOpenHead = true
	}

	if !d.g.IsContainer(tag) || tag == token.Userdefined {
		if err := d.sinkLeaf(n); err != nil {
			return err
		}
		if d.flags.HasMainContainer() {
			return d.closeContainer(token.Head, false)
		}
		return nil
	}

	if d.flags.HasMainContainer() && d.headContainerPos == -1 {
		d.headContainerPos = d.body.Count()
	}
	if err := d.sinkOpen(n); err != nil {
		return err
	}
	d.body.Push(n, false)
	return nil
}
