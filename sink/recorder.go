package sink

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dpotapov/go-tagsoup/dtd"
	"github.com/dpotapov/go-tagsoup/token"
)

// Recorder is a dtd.Sink that records every call as a line of text:
//
//	open p class=x
//	close p
//	close! font       (malformed)
//	leaf br
//	leaf #text "a"
//	head
//	begin 1
//	end 1
//	doctype "html"
//	merge body id=b
//
// Calls are forwarded to Next when it is set; an error from Next is
// returned unchanged.
type Recorder struct {
	Calls []string

	// Enabled lists the tags IsEnabled reports true for.
	Enabled []token.Tag

	// InterruptAt lists the token counts after which DidProcessAToken
	// returns dtd.ErrInterrupted.
	InterruptAt []int

	Next dtd.Sink

	tokens int
}

var (
	_ dtd.Sink          = (*Recorder)(nil)
	_ dtd.DoctypeSink   = (*Recorder)(nil)
	_ dtd.AttributeSink = (*Recorder)(nil)
)

func (r *Recorder) record(format string, args ...any) {
	r.Calls = append(r.Calls, fmt.Sprintf(format, args...))
}

func (r *Recorder) OpenContainer(n *token.Node) error {
	r.record("open %s", describeNode(n))
	if r.Next != nil {
		return r.Next.OpenContainer(n)
	}
	return nil
}

func (r *Recorder) CloseContainer(tag token.Tag) error {
	r.record("close %s", tag)
	if r.Next != nil {
		return r.Next.CloseContainer(tag)
	}
	return nil
}

func (r *Recorder) CloseMalformedContainer(tag token.Tag) error {
	r.record("close! %s", tag)
	if r.Next != nil {
		return r.Next.CloseMalformedContainer(tag)
	}
	return nil
}

func (r *Recorder) AddLeaf(n *token.Node) error {
	r.record("leaf %s", describeNode(n))
	if r.Next != nil {
		return r.Next.AddLeaf(n)
	}
	return nil
}

func (r *Recorder) OpenHead() error {
	r.record("head")
	if r.Next != nil {
		return r.Next.OpenHead()
	}
	return nil
}

func (r *Recorder) IsEnabled(tag token.Tag) bool {
	if r.Next != nil {
		return r.Next.IsEnabled(tag)
	}
	return slices.Contains(r.Enabled, tag)
}

func (r *Recorder) BeginContext(index int) error {
	r.record("begin %d", index)
	if r.Next != nil {
		return r.Next.BeginContext(index)
	}
	return nil
}

func (r *Recorder) EndContext(index int) error {
	r.record("end %d", index)
	if r.Next != nil {
		return r.Next.EndContext(index)
	}
	return nil
}

func (r *Recorder) DidProcessAToken() error {
	r.tokens++
	if slices.Contains(r.InterruptAt, r.tokens) {
		return dtd.ErrInterrupted
	}
	if r.Next != nil {
		return r.Next.DidProcessAToken()
	}
	return nil
}

func (r *Recorder) AddDocTypeDecl(n *token.Node) error {
	r.record("doctype %q", n.Text())
	if ds, ok := r.Next.(dtd.DoctypeSink); ok {
		return ds.AddDocTypeDecl(n)
	}
	return nil
}

func (r *Recorder) MergeAttributes(n *token.Node) error {
	r.record("merge %s", describeNode(n))
	if as, ok := r.Next.(dtd.AttributeSink); ok {
		return as.MergeAttributes(n)
	}
	return nil
}

// Reset forgets the recorded calls.
func (r *Recorder) Reset() {
	r.Calls = r.Calls[:0]
}

func describeNode(n *token.Node) string {
	tag := n.Tag()
	if tag.IsPseudo() && tag != token.Userdefined {
		return fmt.Sprintf("%s %q", tag, n.Text())
	}
	var b strings.Builder
	b.WriteString(n.Text())
	for i := 0; i < n.AttrCount(); i++ {
		fmt.Fprintf(&b, " %s=%s", n.Key(i), n.Value(i))
	}
	return b.String()
}
