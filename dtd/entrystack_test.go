package dtd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpotapov/go-tagsoup/token"
)

func newNode(t *testing.T, a *token.Allocator, tag token.Tag) *token.Node {
	t.Helper()
	tok, err := a.NewToken(token.Start, tag, "")
	require.NoError(t, err)
	n, err := a.NewNode(tok)
	require.NoError(t, err)
	a.ReleaseToken(tok)
	return n
}

func tags(s interface {
	Count() int
	TagAt(int) token.Tag
}) []token.Tag {
	var out []token.Tag
	for i := 0; i < s.Count(); i++ {
		out = append(out, s.TagAt(i))
	}
	return out
}

func TestEntryStack(t *testing.T) {
	var a token.Allocator
	var s EntryStack

	assert.Equal(t, token.Unknown, s.Last())
	n, styles := s.Pop()
	assert.Nil(t, n)
	assert.Nil(t, styles)

	b := newNode(t, &a, token.B)
	h := newNode(t, &a, token.HTML)
	s.Push(h, false)
	a.ReleaseNode(h)
	s.PushTag(token.Head)
	s.Push(b, true)
	assert.Equal(t, []token.Tag{token.HTML, token.Head, token.B}, tags(&s))
	assert.Equal(t, 1, b.UseCount)

	s.PushFront(b)
	assert.Equal(t, []token.Tag{token.B, token.HTML, token.Head, token.B}, tags(&s))
	assert.Equal(t, 2, b.UseCount)
	assert.Equal(t, 0, s.FirstOf(token.B))
	assert.Equal(t, 3, s.LastOf(token.B))
	assert.Equal(t, -1, s.LastOf(token.I))

	got := s.Remove(0)
	assert.Same(t, b, got)
	assert.Equal(t, 1, b.UseCount)
	a.ReleaseNode(got)

	got, _ = s.Pop()
	assert.Same(t, b, got)
	assert.Equal(t, 0, b.UseCount)
	a.ReleaseNode(got)

	s.release(&a)
	assert.Equal(t, 0, s.Count())
	a.ReleaseNode(b)
	assert.Equal(t, 0, a.Live())
}

func TestEntryStackAppend(t *testing.T) {
	var a token.Allocator
	var s, other EntryStack
	s.Push(newNode(t, &a, token.B), true)
	other.Push(newNode(t, &a, token.I), true)
	other.Push(newNode(t, &a, token.Font), true)

	s.Append(&other)
	assert.Equal(t, []token.Tag{token.B, token.I, token.Font}, tags(&s))
	assert.Equal(t, 0, other.Count())

	var nilStack *EntryStack
	s.Append(nilStack)
	assert.Equal(t, 3, s.Count())
	assert.Equal(t, 0, nilStack.Count())
}

func TestContextStyles(t *testing.T) {
	var a token.Allocator
	c := newContext()
	for _, tag := range []token.Tag{token.HTML, token.Body} {
		n := newNode(t, &a, tag)
		c.Push(n, false)
		a.ReleaseNode(n)
	}

	b := newNode(t, &a, token.B)
	i := newNode(t, &a, token.I)
	c.PushStyle(b)
	c.PushStyle(i)
	assert.Equal(t, 2, c.StyleCount())
	assert.Equal(t, []token.Tag{token.B, token.I}, tags(c.StylesAt(1)))
	assert.Equal(t, 1, b.UseCount)

	// only the last style of a depth can be popped
	assert.Nil(t, c.PopStyle(token.B))
	got := c.PopStyle(token.I)
	assert.Same(t, i, got)
	assert.Equal(t, 0, i.UseCount)
	a.ReleaseNode(got)
	a.ReleaseNode(i)

	c.RemoveStyle(token.B, &a)
	assert.Equal(t, 0, c.StyleCount())
	assert.Equal(t, 0, b.UseCount)
	a.ReleaseNode(b)

	c.release(&a)
	assert.Equal(t, 0, a.Live())
}

func TestContextMoveEntries(t *testing.T) {
	var a token.Allocator
	body, temp := newContext(), newContext()
	for _, tag := range []token.Tag{token.HTML, token.Body, token.Table, token.Tr} {
		n := newNode(t, &a, tag)
		body.Push(n, false)
		a.ReleaseNode(n)
	}
	s := newNode(t, &a, token.B)
	body.PushStyle(s)
	a.ReleaseNode(s)

	body.MoveEntries(temp, 2)
	assert.Equal(t, []token.Tag{token.HTML, token.Body}, tags(body))
	assert.Equal(t, []token.Tag{token.Tr, token.Table}, tags(temp))
	assert.Equal(t, 0, body.StyleCount())
	assert.Equal(t, 1, temp.StyleCount())

	temp.MoveEntries(body, 2)
	assert.Equal(t, []token.Tag{token.HTML, token.Body, token.Table, token.Tr}, tags(body))
	assert.Equal(t, 1, body.StyleCount())

	// out of range: no-op
	body.MoveEntries(temp, 5)
	assert.Equal(t, 4, body.Count())

	body.release(&a)
	temp.release(&a)
	assert.Equal(t, 0, a.Live())
}

func TestQueue(t *testing.T) {
	var a token.Allocator
	var q Queue
	assert.Nil(t, q.PopFront())

	for _, s := range []string{"a", "b", "c"} {
		tok, err := a.NewToken(token.TextKind, token.Unknown, s)
		require.NoError(t, err)
		q.Push(tok)
	}
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, "a", q.PopFront().Text)

	rest := q.Drain()
	require.Len(t, rest, 2)
	assert.Equal(t, "b", rest[0].Text)
	assert.Equal(t, 0, q.Len())
}
