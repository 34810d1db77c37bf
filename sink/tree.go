// Package sink implements the receivers of the tree a dtd.DTD builds.
//
// Tree assembles a golang.org/x/net/html document. Recorder keeps the
// sequence of calls, for tests and tracing.
package sink

import (
	"errors"
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/dpotapov/go-tagsoup/dtd"
	"github.com/dpotapov/go-tagsoup/token"
)

var errNotOpen = errors.New("sink: no open element")

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// TreeOptions configures a Tree.
type TreeOptions struct {
	// DisableScripting makes <noscript> content part of the document.
	DisableScripting bool

	// DisableFrames makes <iframe> and <noframes> content part of the
	// document, and opens the body before any content.
	DisableFrames bool

	// YieldEvery, when positive, interrupts the parse every YieldEvery
	// tokens.
	YieldEvery int
}

type entry struct {
	node *html.Node
	tag  token.Tag

	// untracked entries have no counterpart on the DTD stack.
	untracked bool
}

// A nested context in which misplaced content is inserted under parent,
// in front of before.
type nested struct {
	base   int
	parent *html.Node
	before *html.Node
	saved  []entry
}

// Tree is a dtd.Sink that builds an *html.Node document.
type Tree struct {
	opts TreeOptions

	doc   *html.Node
	html  *html.Node
	head  *html.Node
	body  *html.Node
	stack []entry
	ctx   *nested

	tokens int
}

var (
	_ dtd.Sink          = (*Tree)(nil)
	_ dtd.DoctypeSink   = (*Tree)(nil)
	_ dtd.AttributeSink = (*Tree)(nil)
)

func NewTree(opts TreeOptions) *Tree {
	return &Tree{
		opts: opts,
		doc:  &html.Node{Type: html.DocumentNode},
	}
}

// Document returns the root of the tree built so far.
func (t *Tree) Document() *html.Node {
	return t.doc
}

func (t *Tree) IsEnabled(tag token.Tag) bool {
	switch tag {
	case token.Script:
		return !t.opts.DisableScripting
	case token.Frameset:
		return !t.opts.DisableFrames
	}
	return false
}

func (t *Tree) OpenContainer(n *token.Node) error {
	switch tag := n.Tag(); tag {
	case token.HTML:
		t.ensureHTML()
		mergeAttributes(t.html, n)
		if !t.onStack(t.html) {
			t.push(t.html, tag, false)
		}
		return nil

	case token.Head:
		if err := t.OpenHead(); err != nil {
			return err
		}
		mergeAttributes(t.head, n)
		return nil

	case token.Body:
		if top := t.top(); top != nil && top.DataAtom == token.Noframes.Atom() {
			break
		}
		if t.body == nil {
			t.body = newElement(n)
			t.ensureHTML().AppendChild(t.body)
		} else {
			mergeAttributes(t.body, n)
		}
		if !t.onStack(t.body) {
			t.push(t.body, tag, false)
		}
		return nil

	case token.Form:
		el := newElement(n)
		t.insert(el)
		// Table parts cannot hold a form's content: keep an empty form.
		if !isTablePart(t.top()) {
			t.push(el, tag, true)
		}
		return nil
	}

	el := newElement(n)
	t.insert(el)
	t.push(el, n.Tag(), false)
	return nil
}

func (t *Tree) CloseContainer(tag token.Tag) error {
	i := lastOf(t.stack, tag)
	if i < 0 {
		// A form left open below the context is closed when the context ends.
		if t.ctx != nil {
			if j := lastOf(t.ctx.saved, tag); j >= 0 && t.ctx.saved[j].untracked {
				t.ctx.saved = slices.Delete(t.ctx.saved, j, j+1)
			}
		}
		return nil
	}
	if t.stack[i].untracked {
		// The DTD keeps the elements above a form open.
		t.stack = slices.Delete(t.stack, i, i+1)
		if t.ctx != nil && i < t.ctx.base {
			t.ctx.base--
		}
		return nil
	}
	clear(t.stack[i:])
	t.stack = t.stack[:i]
	return nil
}

// MergeAttributes copies the attributes of a repeated html or body start
// tag that the element does not have yet.
func (t *Tree) MergeAttributes(n *token.Node) error {
	switch n.Tag() {
	case token.HTML:
		mergeAttributes(t.ensureHTML(), n)
	case token.Body:
		if t.body != nil {
			mergeAttributes(t.body, n)
		}
	}
	return nil
}

func (t *Tree) CloseMalformedContainer(tag token.Tag) error {
	return t.CloseContainer(tag)
}

func (t *Tree) AddLeaf(n *token.Node) error {
	switch n.Kind() {
	case token.TextKind, token.WhitespaceKind:
		t.insertText(n.Text())
	case token.NewlineKind:
		t.insertText(newlines.Replace(n.Text()))
	case token.EntityKind:
		t.insertText(html.UnescapeString("&" + n.Text() + ";"))
	case token.CDATAKind:
		t.insertText(n.Text())
	case token.CommentKind, token.MarkupDeclKind, token.InstructionKind:
		t.insert(&html.Node{Type: html.CommentNode, Data: n.Text()})
	default:
		t.insert(newElement(n))
	}
	return nil
}

// OpenHead opens the head element, creating it in front of the body if
// the document has none.
func (t *Tree) OpenHead() error {
	if t.head == nil {
		t.head = &html.Node{Type: html.ElementNode, Data: "head", DataAtom: token.Head.Atom()}
		h := t.ensureHTML()
		if t.body != nil && t.body.Parent == h {
			h.InsertBefore(t.head, t.body)
		} else {
			h.AppendChild(t.head)
		}
	}
	if !t.onStack(t.head) {
		t.push(t.head, token.Head, false)
	}
	return nil
}

func (t *Tree) BeginContext(index int) error {
	if t.ctx != nil {
		return errors.New("sink: nested context")
	}
	pos := t.position(index)
	if pos < 0 {
		return errNotOpen
	}
	ctx := &nested{
		base:   pos + 1,
		parent: t.stack[pos].node,
		saved:  slices.Clone(t.stack[pos+1:]),
	}
	for _, e := range ctx.saved {
		if e.node.Parent == ctx.parent {
			ctx.before = e.node
			break
		}
	}
	clear(t.stack[pos+1:])
	t.stack = t.stack[:pos+1]
	t.ctx = ctx
	return nil
}

func (t *Tree) EndContext(int) error {
	ctx := t.ctx
	if ctx == nil {
		return errors.New("sink: no context")
	}
	t.ctx = nil
	if len(t.stack) > ctx.base {
		clear(t.stack[ctx.base:])
		t.stack = t.stack[:ctx.base]
	}
	t.stack = append(t.stack, ctx.saved...)
	return nil
}

func (t *Tree) DidProcessAToken() error {
	t.tokens++
	if t.opts.YieldEvery > 0 && t.tokens%t.opts.YieldEvery == 0 {
		return dtd.ErrInterrupted
	}
	return nil
}

func (t *Tree) AddDocTypeDecl(n *token.Node) error {
	dt := parseDoctype(n.Text())
	if t.html != nil && t.html.Parent == t.doc {
		t.doc.InsertBefore(dt, t.html)
	} else {
		t.doc.AppendChild(dt)
	}
	return nil
}

func (t *Tree) ensureHTML() *html.Node {
	if t.html == nil {
		t.html = &html.Node{Type: html.ElementNode, Data: "html", DataAtom: token.HTML.Atom()}
		t.doc.AppendChild(t.html)
	}
	return t.html
}

func (t *Tree) push(n *html.Node, tag token.Tag, untracked bool) {
	t.stack = append(t.stack, entry{node: n, tag: tag, untracked: untracked})
}

func (t *Tree) top() *html.Node {
	if len(t.stack) == 0 {
		return nil
	}
	return t.stack[len(t.stack)-1].node
}

func (t *Tree) onStack(n *html.Node) bool {
	return slices.ContainsFunc(t.stack, func(e entry) bool { return e.node == n })
}

func lastOf(stack []entry, tag token.Tag) int {
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].tag == tag {
			return i
		}
	}
	return -1
}

// position maps an index on the DTD stack to an index on t.stack.
func (t *Tree) position(index int) int {
	for i, e := range t.stack {
		if e.untracked {
			continue
		}
		if index == 0 {
			return i
		}
		index--
	}
	return -1
}

// insert adds n as the last child of the current element.
func (t *Tree) insert(n *html.Node) {
	parent := t.top()
	if parent == nil {
		parent = t.doc
	}
	if t.ctx != nil && parent == t.ctx.parent && t.ctx.before != nil {
		parent.InsertBefore(n, t.ctx.before)
		return
	}
	parent.AppendChild(n)
}

// insertText adds s to the current element, merging it into a preceding
// text node.
func (t *Tree) insertText(s string) {
	if s == "" {
		return
	}
	parent := t.top()
	if parent == nil {
		parent = t.doc
	}
	prev := parent.LastChild
	if t.ctx != nil && parent == t.ctx.parent && t.ctx.before != nil {
		prev = t.ctx.before.PrevSibling
	}
	if prev != nil && prev.Type == html.TextNode {
		prev.Data += s
		return
	}
	t.insert(&html.Node{Type: html.TextNode, Data: s})
}

func newElement(n *token.Node) *html.Node {
	el := &html.Node{
		Type:     html.ElementNode,
		Data:     n.Text(),
		DataAtom: n.Tag().Atom(),
	}
	if n.Tag() != token.Userdefined && !n.Tag().IsPseudo() {
		el.Data = n.Tag().String()
	}
	for i := 0; i < n.AttrCount(); i++ {
		el.Attr = append(el.Attr, html.Attribute{Key: n.Key(i), Val: n.Value(i)})
	}
	return el
}

// mergeAttributes copies the attributes of n that el does not have yet.
func mergeAttributes(el *html.Node, n *token.Node) {
	for i := 0; i < n.AttrCount(); i++ {
		key := n.Key(i)
		if !slices.ContainsFunc(el.Attr, func(a html.Attribute) bool { return a.Key == key }) {
			el.Attr = append(el.Attr, html.Attribute{Key: key, Val: n.Value(i)})
		}
	}
}

func isTablePart(n *html.Node) bool {
	if n == nil {
		return false
	}
	switch token.Tag(n.DataAtom) {
	case token.Table, token.Thead, token.Tbody, token.Tfoot, token.Tr:
		return true
	}
	return false
}
