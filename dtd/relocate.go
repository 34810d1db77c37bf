package dtd

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/dpotapov/go-tagsoup/token"
)

// handleSavedTokens replays the misplaced content under the entry at index.
// The entries above index are set aside for the duration of the replay, so
// the content lands in front of them.
func (d *DTD) handleSavedTokens(index int) error {
	if index < 0 {
		return nil
	}
	bad := d.misplaced.Len()
	if bad == 0 {
		return nil
	}

	d.flags.InMisplacedContent = true
	topIndex := index + 1
	tagCount := d.body.Count()
	d.log.Debug("Replaying misplaced content", "tokens", bad, "index", index)

	if err := d.sink.BeginContext(index); err != nil {
		return fmt.Errorf("begin context: %w", err)
	}
	d.body.MoveEntries(d.temp, tagCount-topIndex)

	for bad > 0 {
		bad--
		tok := d.misplaced.PopFront()
		if tok == nil {
			continue
		}
		attrs := make([]*token.Token, 0, tok.AttrCount)
		for j := 0; j < tok.AttrCount; j++ {
			if a := d.misplaced.PopFront(); a != nil {
				attrs = append(attrs, a)
			}
			bad--
		}
		d.src.PrependTokens(attrs)

		if tok.Kind == token.End {
			// An end tag must not close the element the content is replayed
			// under: <center><table><a></center>.
			if closed := d.findAutoCloseTargetForEndTag(tok.Tag); closed != token.Unknown {
				if i := d.body.LastOf(closed); i >= 0 && i <= d.body.TopIndex {
					d.alloc.ReleaseToken(tok)
					continue
				}
			}
		}
		if err := d.HandleToken(tok); err != nil {
			return err
		}
	}

	if topIndex != d.body.Count() {
		if err := d.closeContainersTo(topIndex, d.body.TagAt(topIndex), true); err != nil {
			return err
		}
	}
	d.temp.MoveEntries(d.body, tagCount-topIndex)

	if err := d.sink.EndContext(index); err != nil {
		return fmt.Errorf("end context: %w", err)
	}
	d.flags.InMisplacedContent = false
	return nil
}

// handleEntityToken adds a character reference as a leaf. Unknown named
// references are kept as text.
func (d *DTD) handleEntityToken(tok *token.Token) error {
	if !strings.HasPrefix(tok.Text, "#") && !isKnownEntity(tok.Text) {
		t, err := d.alloc.NewToken(token.TextKind, token.Text, "&"+tok.Text)
		if err != nil {
			return err
		}
		t.Line = tok.Line
		return d.HandleToken(t)
	}

	n, err := d.alloc.NewNode(tok)
	if err != nil {
		return err
	}
	defer d.alloc.ReleaseNode(n)

	parent := d.body.Last()
	if d.canOmit(parent, token.Entity, d.canContain(parent, token.Entity)) {
		d.handleOmittedTag(tok, tok.Tag, parent, n)
		return nil
	}
	return d.addLeaf(n)
}

func isKnownEntity(name string) bool {
	if name == "" {
		return false
	}
	ref := "&" + name + ";"
	return html.UnescapeString(ref) != ref
}

// handleCommentToken adds comments, CDATA sections and markup declarations
// as leaves when Options.Comments is set.
func (d *DTD) handleCommentToken(tok *token.Token) error {
	if !d.opts.Comments {
		return nil
	}
	n, err := d.alloc.NewNode(tok)
	if err != nil {
		return err
	}
	defer d.alloc.ReleaseNode(n)
	return d.sinkLeaf(n)
}

func (d *DTD) handleDoctypeToken(tok *token.Token) error {
	ds, ok := d.sink.(DoctypeSink)
	if !ok {
		return nil
	}
	n, err := d.alloc.NewNode(tok)
	if err != nil {
		return err
	}
	defer d.alloc.ReleaseNode(n)
	if err := ds.AddDocTypeDecl(n); err != nil {
		return fmt.Errorf("doctype: %w", err)
	}
	return nil
}
